package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/snapmarket/snapmarket-backend/pkg/logger"
	"github.com/snapmarket/snapmarket-backend/pkg/metrics"
)

// RequestExpiryJobParams configure the request expiry sweep.
type RequestExpiryJobParams struct {
	Logger  *logger.Logger
	Expirer openRequestExpirer
	Metrics *metrics.CronJobMetrics
}

type openRequestExpirer interface {
	ExpireOpenPastDeadline(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// NewRequestExpiryJob builds the cron job that expires open requests whose
// deadline has passed.
func NewRequestExpiryJob(params RequestExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("request expirer required")
	}
	return &requestExpiryJob{
		logg:    params.Logger,
		expirer: params.Expirer,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

type requestExpiryJob struct {
	logg    *logger.Logger
	expirer openRequestExpirer
	metrics *metrics.CronJobMetrics
	now     func() time.Time
}

func (j *requestExpiryJob) Name() string { return "request-expiry" }

func (j *requestExpiryJob) Run(ctx context.Context) error {
	ids, err := j.expirer.ExpireOpenPastDeadline(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("expire open requests: %w", err)
	}

	j.metrics.AddItems(j.Name(), len(ids))
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": len(ids)})
	j.logg.Info(logCtx, "request expiry loop complete")
	return nil
}
