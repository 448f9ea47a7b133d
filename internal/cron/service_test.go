package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/snapwall/snapwall-backend/pkg/logger"
	"github.com/snapwall/snapwall-backend/pkg/metrics"
)

type fakeLock struct {
	acquired bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	registry := NewRegistry(&testJob{name: "success"}, &testJob{name: "fail", err: errors.New("boom")})
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     &fakeLock{},
		Interval: 0,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx := context.Background()
	err = service.runCycle(ctx)
	if err == nil || err.Error() != "fail: boom" {
		t.Fatalf("expected combined job failure, got %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if success, ok := jobs[0].(*testJob); ok {
		if success.runs != 1 {
			t.Fatalf("expected success job to run once, ran %d", success.runs)
		}
	} else {
		t.Fatalf("first job type mismatch")
	}
	if failure, ok := jobs[1].(*testJob); ok {
		if failure.runs != 1 {
			t.Fatalf("expected failure job to run once, ran %d", failure.runs)
		}
	} else {
		t.Fatalf("second job type mismatch")
	}
}

type heldLock struct{}

func (heldLock) Acquire(context.Context) (bool, error) { return false, nil }
func (heldLock) Release(context.Context) error         { return nil }

func TestServiceSkipsCycleWhenLockHeld(t *testing.T) {
	job := &testJob{name: "skipped"}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: NewRegistry(job),
		Lock:     heldLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job not to run while lock is held, ran %d", job.runs)
	}
}

func TestServiceRecordsJobOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: NewRegistry(&testJob{name: "ok"}, &testJob{name: "bad", err: errors.New("boom")}),
		Lock:     &fakeLock{},
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.RunOnce(context.Background()); err == nil {
		t.Fatal("expected RunOnce to report the failed job")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counts := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil {
				counts[mf.GetName()] += m.GetCounter().GetValue()
			}
		}
	}
	if counts["snapwall_cron_job_runs_total"] != 2 {
		t.Fatalf("unexpected counters %v", counts)
	}
}

type fakeRedisStore struct {
	values map[string]string
}

func (f *fakeRedisStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedisStore) Get(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeRedisStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func TestRedisLockIsExclusiveAndOwnerScoped(t *testing.T) {
	store := &fakeRedisStore{values: map[string]string{}}
	key := LockKey("test")
	first, err := NewRedisLock(store, key, time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, key, time.Minute)

	if ok, err := first.Acquire(context.Background()); err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if ok, _ := second.Acquire(context.Background()); ok {
		t.Fatal("second holder must not acquire a held lock")
	}
	if err := second.Release(context.Background()); err != nil {
		t.Fatalf("release by non-owner: %v", err)
	}
	if _, ok := store.values[key]; !ok {
		t.Fatal("non-owner release removed the lock")
	}

	store.values[key] = "someone-else"
	if err := first.Release(context.Background()); !errors.Is(err, ErrLockLost) {
		t.Fatalf("expected ErrLockLost after takeover, got %v", err)
	}
	if store.values[key] != "someone-else" {
		t.Fatal("release must not delete a lock owned by another holder")
	}
}

func TestLockKeyDefaultsEnvironment(t *testing.T) {
	if got := LockKey(""); got != "sw:cron-worker:lock:local" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := LockKey("prod"); got != "sw:cron-worker:lock:prod" {
		t.Fatalf("unexpected key %q", got)
	}
}

type panicJob struct{}

func (panicJob) Name() string              { return "panicky" }
func (panicJob) Run(context.Context) error { panic("kaboom") }

type deadlineJob struct {
	remaining time.Duration
}

func (d *deadlineJob) Name() string { return "deadline" }

func (d *deadlineJob) Run(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		d.remaining = time.Until(deadline)
	}
	return nil
}

func TestServiceRecoversJobPanicsAndBoundsRuntime(t *testing.T) {
	after := &testJob{name: "after"}
	timed := &deadlineJob{}
	service, err := NewService(ServiceParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry:   NewRegistry(panicJob{}, timed, after),
		Lock:       &fakeLock{},
		JobTimeout: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	err = service.RunOnce(context.Background())
	if err == nil || err.Error() != "panicky: panic: kaboom" {
		t.Fatalf("expected panic converted to error, got %v", err)
	}
	if after.runs != 1 {
		t.Fatalf("jobs after a panic must still run, ran %d", after.runs)
	}
	if timed.remaining <= 0 || timed.remaining > 30*time.Second {
		t.Fatalf("expected job deadline within timeout, got %s", timed.remaining)
	}
}

func TestRedisLockReleaseAfterExpiry(t *testing.T) {
	store := &fakeRedisStore{values: map[string]string{}}
	lock, _ := NewRedisLock(store, LockKey("test"), time.Minute)
	if ok, err := lock.Acquire(context.Background()); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	delete(store.values, LockKey("test"))
	if err := lock.Release(context.Background()); !errors.Is(err, ErrLockLost) {
		t.Fatalf("expected ErrLockLost after expiry, got %v", err)
	}
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("second release should be a no-op, got %v", err)
	}
}
