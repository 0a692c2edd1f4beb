package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/snapmarket/snapmarket-backend/pkg/db/models"
	"github.com/snapmarket/snapmarket-backend/pkg/logger"
	"github.com/snapmarket/snapmarket-backend/pkg/metrics"
	"github.com/snapmarket/snapmarket-backend/pkg/storage/s3"
)

// PurchasedPurgeJobParams configure the purchased asset purge.
type PurchasedPurgeJobParams struct {
	Logger    *logger.Logger
	Repo      purchasedPurgeRepo
	Store     s3.ObjectStore
	Metrics   *metrics.CronJobMetrics
	Retention time.Duration
}

type purchasedPurgeRepo interface {
	FindPurchasedForPurge(ctx context.Context, cutoff time.Time, limit int) ([]models.Entry, error)
	MarkFilePurged(ctx context.Context, id uuid.UUID, at time.Time) error
}

// NewPurchasedPurgeJob builds the cron job that deletes purchased binaries
// after the retention window. Entry and payment records are kept.
func NewPurchasedPurgeJob(params PurchasedPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("entries repo required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.Retention <= 0 {
		return nil, fmt.Errorf("retention window must be positive")
	}
	return &purchasedPurgeJob{
		logg:      params.Logger,
		repo:      params.Repo,
		store:     params.Store,
		metrics:   params.Metrics,
		retention: params.Retention,
		now:       time.Now,
	}, nil
}

type purchasedPurgeJob struct {
	logg      *logger.Logger
	repo      purchasedPurgeRepo
	store     s3.ObjectStore
	metrics   *metrics.CronJobMetrics
	retention time.Duration
	now       func() time.Time
}

func (j *purchasedPurgeJob) Name() string { return "purchased-purge" }

func (j *purchasedPurgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)

	var errs []error
	purged := 0
	for {
		entries, err := j.repo.FindPurchasedForPurge(ctx, cutoff, purgeBatchSize)
		if err != nil {
			errs = append(errs, fmt.Errorf("query purchased entries: %w", err))
			break
		}
		if len(entries) == 0 {
			break
		}

		progressed := false
		for _, entry := range entries {
			if err := j.purgeAssets(ctx, entry); err != nil {
				errs = append(errs, err)
				continue
			}
			purged++
			progressed = true
		}
		if !progressed {
			break
		}
		if len(entries) < purgeBatchSize {
			break
		}
	}

	j.metrics.AddItems(j.Name(), purged)
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": purged, "errors": len(errs)})
	j.logg.Info(logCtx, "purchased purge loop complete")
	return multierr.Combine(errs...)
}

// purgeAssets removes both binaries and stamps the purge time on the record.
// The record stays as purchase history; the stamp keeps the sweep from
// revisiting it.
func (j *purchasedPurgeJob) purgeAssets(ctx context.Context, entry models.Entry) error {
	if entry.FileKey != "" {
		if err := j.store.Delete(ctx, entry.FileKey); err != nil {
			return fmt.Errorf("delete asset for entry %s: %w", entry.ID, err)
		}
	}
	if entry.ThumbnailKey != "" {
		if err := j.store.Delete(ctx, entry.ThumbnailKey); err != nil {
			return fmt.Errorf("delete thumbnail for entry %s: %w", entry.ID, err)
		}
	}
	if err := j.repo.MarkFilePurged(ctx, entry.ID, j.now().UTC()); err != nil {
		return fmt.Errorf("mark entry %s purged: %w", entry.ID, err)
	}
	return nil
}
