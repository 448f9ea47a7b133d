package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/snapwall/snapwall-backend/pkg/db/models"
	"github.com/snapwall/snapwall-backend/pkg/enums"
	"github.com/snapwall/snapwall-backend/pkg/logger"
)

const (
	defaultFailedMediaRetention = 24 * time.Hour
	defaultAbandonedAfter       = time.Hour
	defaultBatchSize            = 100
)

type staleMediaLister interface {
	ListStale(ctx context.Context, states []enums.MediaState, cutoff time.Time, limit int) ([]models.MediaItem, error)
}

type mediaPurger interface {
	Purge(ctx context.Context, item models.MediaItem) error
	FailAbandoned(ctx context.Context, item models.MediaItem) (bool, error)
}

type FailedMediaCleanupJobParams struct {
	Logger    *logger.Logger
	Repo      staleMediaLister
	Media     mediaPurger
	Retention time.Duration
	// AbandonedAfter is how long an item may sit in processing before its task counts as lost.
	AbandonedAfter time.Duration
	BatchSize      int
}

// NewFailedMediaCleanupJob fails processing items whose task was lost with its process, then removes
// objects and rows of failed or deleted media older than the retention.
func NewFailedMediaCleanupJob(params FailedMediaCleanupJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.Repo == nil:
		return nil, fmt.Errorf("media repository required")
	case params.Media == nil:
		return nil, fmt.Errorf("media service required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultFailedMediaRetention
	}
	abandoned := params.AbandonedAfter
	if abandoned <= 0 {
		abandoned = defaultAbandonedAfter
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &failedMediaCleanupJob{
		logg:      params.Logger,
		repo:      params.Repo,
		media:     params.Media,
		retention: retention,
		abandoned: abandoned,
		batch:     batch,
		now:       time.Now,
	}, nil
}

type failedMediaCleanupJob struct {
	logg      *logger.Logger
	repo      staleMediaLister
	media     mediaPurger
	retention time.Duration
	abandoned time.Duration
	batch     int
	now       func() time.Time
}

func (j *failedMediaCleanupJob) Name() string { return "failed_media_cleanup" }

func (j *failedMediaCleanupJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	failed, failErr := j.failAbandoned(ctx, now.Add(-j.abandoned))

	cutoff := now.Add(-j.retention)
	rows, err := j.repo.ListStale(ctx, []enums.MediaState{enums.MediaStateFailed, enums.MediaStateDeleted}, cutoff, j.batch)
	if err != nil {
		return multierr.Append(failErr, fmt.Errorf("list stale media: %w", err))
	}

	var (
		purged   int
		purgeErr error
	)
	for _, item := range rows {
		if err := j.media.Purge(ctx, item); err != nil {
			purgeErr = multierr.Append(purgeErr, fmt.Errorf("purge media %s: %w", item.ID, err))
			continue
		}
		purged++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"abandoned":  failed,
		"candidates": len(rows),
		"purged":     purged,
	}), "cron.failed_media_cleanup")
	return multierr.Append(failErr, purgeErr)
}

// failAbandoned settles processing rows no live task will finish; the in-memory queue does not
// survive a crash or a shutdown that hits its deadline.
func (j *failedMediaCleanupJob) failAbandoned(ctx context.Context, cutoff time.Time) (int, error) {
	rows, err := j.repo.ListStale(ctx, []enums.MediaState{enums.MediaStateProcessing}, cutoff, j.batch)
	if err != nil {
		return 0, fmt.Errorf("list abandoned media: %w", err)
	}
	var (
		failed  int
		failErr error
	)
	for _, item := range rows {
		ok, err := j.media.FailAbandoned(ctx, item)
		if err != nil {
			failErr = multierr.Append(failErr, fmt.Errorf("fail abandoned media %s: %w", item.ID, err))
			continue
		}
		if ok {
			failed++
		}
	}
	return failed, failErr
}
