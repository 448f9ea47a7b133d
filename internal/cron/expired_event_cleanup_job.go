package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/snapwall/snapwall-backend/pkg/db/models"
	"github.com/snapwall/snapwall-backend/pkg/logger"
)

const defaultExpiredEventGrace = 30 * 24 * time.Hour

type expiredEventLister interface {
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.Event, error)
}

type eventPurger interface {
	Purge(ctx context.Context, event *models.Event) error
}

type ExpiredEventCleanupJobParams struct {
	Logger    *logger.Logger
	Repo      expiredEventLister
	Events    eventPurger
	Grace     time.Duration
	BatchSize int
}

// NewExpiredEventCleanupJob purges events that expired more than Grace ago, media and quota included.
func NewExpiredEventCleanupJob(params ExpiredEventCleanupJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.Repo == nil:
		return nil, fmt.Errorf("event repository required")
	case params.Events == nil:
		return nil, fmt.Errorf("event service required")
	}
	grace := params.Grace
	if grace <= 0 {
		grace = defaultExpiredEventGrace
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &expiredEventCleanupJob{
		logg:   params.Logger,
		repo:   params.Repo,
		events: params.Events,
		grace:  grace,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type expiredEventCleanupJob struct {
	logg   *logger.Logger
	repo   expiredEventLister
	events eventPurger
	grace  time.Duration
	batch  int
	now    func() time.Time
}

func (j *expiredEventCleanupJob) Name() string { return "expired_event_cleanup" }

func (j *expiredEventCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	rows, err := j.repo.ListExpired(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list expired events: %w", err)
	}

	var (
		purged   int
		purgeErr error
	)
	for i := range rows {
		if err := j.events.Purge(ctx, &rows[i]); err != nil {
			purgeErr = multierr.Append(purgeErr, fmt.Errorf("purge event %s: %w", rows[i].ID, err))
			continue
		}
		purged++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(rows),
		"purged":     purged,
	}), "cron.expired_event_cleanup")
	return purgeErr
}
