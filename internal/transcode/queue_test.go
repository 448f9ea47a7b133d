package transcode

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingProcessor struct {
	mu       sync.Mutex
	release  chan struct{}
	started  []uuid.UUID
	current  atomic.Int32
	peak     atomic.Int32
	finished atomic.Int32
	panicOn  uuid.UUID
}

func newBlockingProcessor() *blockingProcessor {
	return &blockingProcessor{release: make(chan struct{})}
}

func (b *blockingProcessor) Process(ctx context.Context, task Task) (Outcome, error) {
	n := b.current.Add(1)
	for {
		peak := b.peak.Load()
		if n <= peak || b.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	b.mu.Lock()
	b.started = append(b.started, task.MediaID)
	b.mu.Unlock()

	defer func() {
		b.current.Add(-1)
		b.finished.Add(1)
	}()
	if task.MediaID == b.panicOn {
		panic("boom")
	}
	<-b.release
	return OutcomeReady, nil
}

func (b *blockingProcessor) startedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.started)
}

func newTestQueue(t *testing.T, proc TaskProcessor, concurrency int) *Queue {
	t.Helper()
	q, err := NewQueue(QueueParams{Concurrency: concurrency, Processor: proc})
	require.NoError(t, err)
	q.Start(context.Background())
	return q
}

func TestQueueBoundsConcurrency(t *testing.T) {
	proc := newBlockingProcessor()
	q := newTestQueue(t, proc, 2)

	ids := make([]uuid.UUID, 6)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, q.Submit(Task{MediaID: ids[i]}))
	}

	require.Eventually(t, func() bool { return proc.startedCount() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, proc.startedCount(), "only two tasks may hold a slot")

	pending, running := q.Stats()
	assert.Equal(t, 4, pending)
	assert.Equal(t, 2, running)

	close(proc.release)
	require.NoError(t, q.Shutdown(context.Background()))

	assert.Equal(t, int32(6), proc.finished.Load())
	assert.LessOrEqual(t, proc.peak.Load(), int32(2))
	assert.Equal(t, ids[:2], proc.started[:2])
}

func TestQueueStartsTasksInSubmissionOrder(t *testing.T) {
	proc := newBlockingProcessor()
	close(proc.release)
	q := newTestQueue(t, proc, 1)

	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, q.Submit(Task{MediaID: ids[i]}))
	}
	require.NoError(t, q.Shutdown(context.Background()))
	assert.Equal(t, ids, proc.started)
}

func TestQueueRejectsAfterShutdown(t *testing.T) {
	proc := newBlockingProcessor()
	close(proc.release)
	q := newTestQueue(t, proc, 2)

	require.NoError(t, q.Shutdown(context.Background()))
	err := q.Submit(Task{MediaID: uuid.New()})
	assert.True(t, errors.Is(err, ErrQueueClosed))
}

func TestQueueShutdownDrainsPendingTasks(t *testing.T) {
	proc := newBlockingProcessor()
	q := newTestQueue(t, proc, 1)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Submit(Task{MediaID: uuid.New()}))
	}
	require.Eventually(t, func() bool { return proc.startedCount() == 1 }, time.Second, 5*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- q.Shutdown(context.Background()) }()

	select {
	case <-done:
		t.Fatal("shutdown returned while tasks were still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(proc.release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(3), proc.finished.Load())
}

func TestQueueShutdownHonorsDeadline(t *testing.T) {
	proc := newBlockingProcessor()
	q := newTestQueue(t, proc, 1)
	require.NoError(t, q.Submit(Task{MediaID: uuid.New()}))
	require.Eventually(t, func() bool { return proc.startedCount() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Shutdown(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(proc.release)
}

func TestQueueReleasesSlotAfterPanic(t *testing.T) {
	proc := newBlockingProcessor()
	close(proc.release)
	proc.panicOn = uuid.New()
	q := newTestQueue(t, proc, 1)

	require.NoError(t, q.Submit(Task{MediaID: proc.panicOn}))
	require.NoError(t, q.Submit(Task{MediaID: uuid.New()}))
	require.NoError(t, q.Shutdown(context.Background()))

	assert.Equal(t, int32(2), proc.finished.Load())
	pending, running := q.Stats()
	assert.Zero(t, pending)
	assert.Zero(t, running)
}

func TestNewQueueRequiresProcessor(t *testing.T) {
	_, err := NewQueue(QueueParams{})
	require.Error(t, err)
}
