package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/snapwall/snapwall-backend/pkg/db/models"
	"github.com/snapwall/snapwall-backend/pkg/enums"
	"github.com/snapwall/snapwall-backend/pkg/logger"
)

type fakeStaleMediaRepo struct {
	rows        []models.MediaItem
	stuck       []models.MediaItem
	err         error
	lastStates  []enums.MediaState
	lastCutoff  time.Time
	lastLimit   int
	stuckCutoff time.Time
}

func (f *fakeStaleMediaRepo) ListStale(_ context.Context, states []enums.MediaState, cutoff time.Time, limit int) ([]models.MediaItem, error) {
	if len(states) == 1 && states[0] == enums.MediaStateProcessing {
		f.stuckCutoff = cutoff
		return f.stuck, f.err
	}
	f.lastStates = states
	f.lastCutoff = cutoff
	f.lastLimit = limit
	return f.rows, f.err
}

type fakeMediaPurger struct {
	failFor  map[uuid.UUID]bool
	settled  map[uuid.UUID]bool
	purged   []uuid.UUID
	abandons []uuid.UUID
}

func (f *fakeMediaPurger) FailAbandoned(_ context.Context, item models.MediaItem) (bool, error) {
	if f.failFor[item.ID] {
		return false, errors.New("db unavailable")
	}
	if f.settled[item.ID] {
		return false, nil
	}
	f.abandons = append(f.abandons, item.ID)
	return true, nil
}

func (f *fakeMediaPurger) Purge(_ context.Context, item models.MediaItem) error {
	if f.failFor[item.ID] {
		return errors.New("bucket unavailable")
	}
	f.purged = append(f.purged, item.ID)
	return nil
}

func TestFailedMediaCleanupPurgesStaleRows(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := []models.MediaItem{{ID: uuid.New()}, {ID: uuid.New()}}
	repo := &fakeStaleMediaRepo{rows: rows}
	purger := &fakeMediaPurger{}
	job := newFailedMediaCleanupJob(t, repo, purger)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-2 * time.Hour); !repo.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %s got %s", want, repo.lastCutoff)
	}
	if repo.lastLimit != 10 {
		t.Fatalf("expected batch 10 got %d", repo.lastLimit)
	}
	if len(repo.lastStates) != 2 || repo.lastStates[0] != enums.MediaStateFailed || repo.lastStates[1] != enums.MediaStateDeleted {
		t.Fatalf("unexpected states %v", repo.lastStates)
	}
	if len(purger.purged) != 2 {
		t.Fatalf("expected 2 purged got %d", len(purger.purged))
	}
}

func TestFailedMediaCleanupContinuesPastFailures(t *testing.T) {
	t.Parallel()

	bad := uuid.New()
	good := uuid.New()
	repo := &fakeStaleMediaRepo{rows: []models.MediaItem{{ID: bad}, {ID: good}}}
	purger := &fakeMediaPurger{failFor: map[uuid.UUID]bool{bad: true}}
	job := newFailedMediaCleanupJob(t, repo, purger)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected purge error to be reported")
	}
	if len(purger.purged) != 1 || purger.purged[0] != good {
		t.Fatalf("expected healthy row purged, got %v", purger.purged)
	}
}

func TestFailedMediaCleanupPropagatesListError(t *testing.T) {
	t.Parallel()

	job := newFailedMediaCleanupJob(t, &fakeStaleMediaRepo{err: errors.New("db down")}, &fakeMediaPurger{})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestFailedMediaCleanupFailsAbandonedProcessing(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	lost := uuid.New()
	finished := uuid.New()
	repo := &fakeStaleMediaRepo{stuck: []models.MediaItem{{ID: lost, State: enums.MediaStateProcessing}, {ID: finished, State: enums.MediaStateProcessing}}}
	purger := &fakeMediaPurger{settled: map[uuid.UUID]bool{finished: true}}
	job := newFailedMediaCleanupJob(t, repo, purger)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-30 * time.Minute); !repo.stuckCutoff.Equal(want) {
		t.Fatalf("expected abandoned cutoff %s got %s", want, repo.stuckCutoff)
	}
	if len(purger.abandons) != 1 || purger.abandons[0] != lost {
		t.Fatalf("expected only the lost item failed, got %v", purger.abandons)
	}
	if len(repo.lastStates) != 2 {
		t.Fatalf("expected purge pass to run after reconcile, got states %v", repo.lastStates)
	}
}

func TestFailedMediaCleanupPurgesDespiteAbandonFailure(t *testing.T) {
	t.Parallel()

	bad := uuid.New()
	stale := uuid.New()
	repo := &fakeStaleMediaRepo{
		stuck: []models.MediaItem{{ID: bad}},
		rows:  []models.MediaItem{{ID: stale}},
	}
	purger := &fakeMediaPurger{failFor: map[uuid.UUID]bool{bad: true}}
	job := newFailedMediaCleanupJob(t, repo, purger)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected abandon error to be reported")
	}
	if len(purger.purged) != 1 || purger.purged[0] != stale {
		t.Fatalf("expected stale row purged, got %v", purger.purged)
	}
}

func TestCleanupJobNames(t *testing.T) {
	t.Parallel()

	media := newFailedMediaCleanupJob(t, &fakeStaleMediaRepo{}, &fakeMediaPurger{})
	if media.Name() != "failed_media_cleanup" {
		t.Fatalf("unexpected name %q", media.Name())
	}
	events, err := NewExpiredEventCleanupJob(ExpiredEventCleanupJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Repo:   &fakeExpiredEventRepo{},
		Events: &fakeEventPurger{},
	})
	if err != nil {
		t.Fatalf("NewExpiredEventCleanupJob: %v", err)
	}
	if events.Name() != "expired_event_cleanup" {
		t.Fatalf("unexpected name %q", events.Name())
	}
}

func newFailedMediaCleanupJob(t *testing.T, repo *fakeStaleMediaRepo, purger *fakeMediaPurger) *failedMediaCleanupJob {
	t.Helper()
	jobIface, err := NewFailedMediaCleanupJob(FailedMediaCleanupJobParams{
		Logger:         logger.New(logger.Options{ServiceName: "test"}),
		Repo:           repo,
		Media:          purger,
		Retention:      2 * time.Hour,
		AbandonedAfter: 30 * time.Minute,
		BatchSize:      10,
	})
	if err != nil {
		t.Fatalf("NewFailedMediaCleanupJob: %v", err)
	}
	job, ok := jobIface.(*failedMediaCleanupJob)
	if !ok {
		t.Fatalf("expected failedMediaCleanupJob, got %T", jobIface)
	}
	return job
}

type fakeExpiredEventRepo struct {
	rows       []models.Event
	lastCutoff time.Time
}

func (f *fakeExpiredEventRepo) ListExpired(_ context.Context, cutoff time.Time, _ int) ([]models.Event, error) {
	f.lastCutoff = cutoff
	return f.rows, nil
}

type fakeEventPurger struct {
	purged []uuid.UUID
}

func (f *fakeEventPurger) Purge(_ context.Context, event *models.Event) error {
	f.purged = append(f.purged, event.ID)
	return nil
}

func TestExpiredEventCleanupPurgesPastGrace(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := []models.Event{{ID: uuid.New()}, {ID: uuid.New()}, {ID: uuid.New()}}
	repo := &fakeExpiredEventRepo{rows: rows}
	purger := &fakeEventPurger{}
	jobIface, err := NewExpiredEventCleanupJob(ExpiredEventCleanupJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Repo:   repo,
		Events: purger,
		Grace:  48 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewExpiredEventCleanupJob: %v", err)
	}
	job := jobIface.(*expiredEventCleanupJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-48 * time.Hour); !repo.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %s got %s", want, repo.lastCutoff)
	}
	for i, row := range rows {
		if purger.purged[i] != row.ID {
			t.Fatalf("purge order mismatch at %d", i)
		}
	}
}

func TestCleanupJobsRequireDependencies(t *testing.T) {
	t.Parallel()

	logg := logger.New(logger.Options{ServiceName: "test"})
	if _, err := NewFailedMediaCleanupJob(FailedMediaCleanupJobParams{Logger: logg, Repo: &fakeStaleMediaRepo{}}); err == nil {
		t.Fatal("expected missing media service error")
	}
	if _, err := NewExpiredEventCleanupJob(ExpiredEventCleanupJobParams{Logger: logg, Events: &fakeEventPurger{}}); err == nil {
		t.Fatal("expected missing repo error")
	}
}
