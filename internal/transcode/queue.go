package transcode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/snapwall/snapwall-backend/pkg/logger"
	"github.com/snapwall/snapwall-backend/pkg/metrics"
)

const defaultConcurrency = 2

// ErrQueueClosed is returned by Submit once Shutdown has begun.
var ErrQueueClosed = errors.New("transcode queue closed")

// TaskProcessor settles one task.
type TaskProcessor interface {
	Process(ctx context.Context, task Task) (Outcome, error)
}

// QueueParams wires a Queue.
type QueueParams struct {
	Concurrency int
	Processor   TaskProcessor
	Logger      *logger.Logger
	Metrics     *metrics.TranscodeMetrics
}

// Queue runs tasks in submission order with at most Concurrency in flight.
// Accepted tasks always run, including those still pending at Shutdown.
type Queue struct {
	processor TaskProcessor
	logg      *logger.Logger
	metrics   *metrics.TranscodeMetrics
	slots     *semaphore.Weighted

	mu      sync.Mutex
	pending []Task
	running int
	closed  bool
	started bool
	wake    chan struct{}

	inflight sync.WaitGroup
	done     chan struct{}
}

func NewQueue(params QueueParams) (*Queue, error) {
	if params.Processor == nil {
		return nil, errors.New("transcode processor is required")
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Queue{
		processor: params.Processor,
		logg:      params.Logger,
		metrics:   params.Metrics,
		slots:     semaphore.NewWeighted(int64(concurrency)),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start launches the dispatcher. Tasks run with ctx, which should outlive requests.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	go q.dispatch(context.WithoutCancel(ctx))
}

// Submit appends task to the pending list.
func (q *Queue) Submit(task Task) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if task.SubmittedAt.IsZero() {
		task.SubmittedAt = time.Now()
	}
	q.pending = append(q.pending, task)
	depth := len(q.pending)
	q.mu.Unlock()

	q.metrics.SetQueueDepth(depth)
	q.signal()
	return nil
}

// Shutdown refuses new tasks, then waits until every accepted task has settled or ctx ends.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	alreadyClosed := q.closed
	q.closed = true
	started := q.started
	q.mu.Unlock()

	if !alreadyClosed {
		q.signal()
	}
	if !started {
		return nil
	}

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		pending, running := q.Stats()
		return fmt.Errorf("transcode queue shutdown with %d pending and %d running: %w", pending, running, ctx.Err())
	}
}

// Stats returns the number of waiting and running tasks.
func (q *Queue) Stats() (pending, running int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending), q.running
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// dispatch is the only consumer of pending, so tasks start in submission order.
func (q *Queue) dispatch(ctx context.Context) {
	defer close(q.done)
	for {
		q.mu.Lock()
		empty := len(q.pending) == 0
		closed := q.closed
		q.mu.Unlock()

		if empty {
			if closed {
				q.inflight.Wait()
				return
			}
			<-q.wake
			continue
		}

		if err := q.slots.Acquire(ctx, 1); err != nil {
			return
		}

		q.mu.Lock()
		task := q.pending[0]
		q.pending[0] = Task{}
		q.pending = q.pending[1:]
		q.running++
		depth, running := len(q.pending), q.running
		q.mu.Unlock()

		q.metrics.SetQueueDepth(depth)
		q.metrics.SetRunning(running)

		q.inflight.Add(1)
		go q.run(ctx, task)
	}
}

func (q *Queue) run(ctx context.Context, task Task) {
	started := time.Now()
	outcome := OutcomeFailed
	defer func() {
		if r := recover(); r != nil && q.logg != nil {
			q.logg.Error(q.logg.WithMediaID(ctx, task.MediaID.String()), "transcode.task_panic", fmt.Errorf("panic: %v", r))
		}
		q.mu.Lock()
		q.running--
		running := q.running
		q.mu.Unlock()

		q.metrics.SetRunning(running)
		q.metrics.ObserveTask(string(outcome), time.Since(started))
		q.slots.Release(1)
		q.inflight.Done()
	}()

	result, err := q.processor.Process(ctx, task)
	outcome = result
	if err != nil && q.logg != nil {
		q.logg.Warn(q.logg.WithFields(ctx, map[string]any{
			"media_id": task.MediaID.String(),
			"outcome":  string(result),
			"error":    err.Error(),
		}), "transcode.task_settled_with_error")
	}
}
