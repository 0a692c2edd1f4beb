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

const purgeBatchSize = 500

// UnselectedPurgeJobParams configure the unselected asset purge.
type UnselectedPurgeJobParams struct {
	Logger  *logger.Logger
	Repo    unselectedPurgeRepo
	Store   s3.ObjectStore
	Metrics *metrics.CronJobMetrics
	Grace   time.Duration
}

type unselectedPurgeRepo interface {
	FindUnselectedForPurge(ctx context.Context, cutoff time.Time, limit int) ([]models.Entry, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// NewUnselectedPurgeJob builds the cron job that removes entries that were
// never selected, once their request has been terminal for the grace period.
// Both binaries and the entry record itself are deleted.
func NewUnselectedPurgeJob(params UnselectedPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("entries repo required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.Grace <= 0 {
		return nil, fmt.Errorf("grace period must be positive")
	}
	return &unselectedPurgeJob{
		logg:    params.Logger,
		repo:    params.Repo,
		store:   params.Store,
		metrics: params.Metrics,
		grace:   params.Grace,
		now:     time.Now,
	}, nil
}

type unselectedPurgeJob struct {
	logg    *logger.Logger
	repo    unselectedPurgeRepo
	store   s3.ObjectStore
	metrics *metrics.CronJobMetrics
	grace   time.Duration
	now     func() time.Time
}

func (j *unselectedPurgeJob) Name() string { return "unselected-purge" }

func (j *unselectedPurgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)

	var errs []error
	purged := 0
	for {
		entries, err := j.repo.FindUnselectedForPurge(ctx, cutoff, purgeBatchSize)
		if err != nil {
			errs = append(errs, fmt.Errorf("query unselected entries: %w", err))
			break
		}
		if len(entries) == 0 {
			break
		}

		progressed := false
		for _, entry := range entries {
			if err := j.purgeEntry(ctx, entry); err != nil {
				errs = append(errs, err)
				continue
			}
			purged++
			progressed = true
		}
		// Every remaining row failed; stop instead of spinning on the batch.
		if !progressed {
			break
		}
		if len(entries) < purgeBatchSize {
			break
		}
	}

	j.metrics.AddItems(j.Name(), purged)
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": purged, "errors": len(errs)})
	j.logg.Info(logCtx, "unselected purge loop complete")
	return multierr.Combine(errs...)
}

// purgeEntry removes both binaries and then the record itself. Object deletes
// are idempotent, so a crash before the record delete just means the next run
// repeats a no-op delete.
func (j *unselectedPurgeJob) purgeEntry(ctx context.Context, entry models.Entry) error {
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
	if err := j.repo.DeleteByID(ctx, entry.ID); err != nil {
		return fmt.Errorf("delete entry %s: %w", entry.ID, err)
	}
	return nil
}
