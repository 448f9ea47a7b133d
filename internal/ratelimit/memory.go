package ratelimit

import (
	"context"
	"sync"
	"time"
)

const defaultSweepInterval = time.Minute

type window struct {
	count   int
	started time.Time
	length  time.Duration
}

func (w window) expired(now time.Time) bool {
	return !now.Before(w.started.Add(w.length))
}

// MemoryOptions configures an in-process limiter.
type MemoryOptions struct {
	SweepInterval time.Duration
	Now           func() time.Time
}

// MemoryLimiter keeps per-key windows in process memory. Start runs the eviction sweep.
type MemoryLimiter struct {
	mu       sync.Mutex
	windows  map[string]window
	now      func() time.Time
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

func NewMemoryLimiter(opts MemoryOptions) *MemoryLimiter {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	interval := opts.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &MemoryLimiter{
		windows:  make(map[string]window),
		now:      now,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, length time.Duration) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || w.expired(now) {
		w = window{started: now, length: length}
	}
	if w.count >= limit {
		m.windows[key] = w
		return false, nil
	}
	w.count++
	m.windows[key] = w
	return true, nil
}

// Sweep evicts every expired window and returns how many were removed.
func (m *MemoryLimiter) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, w := range m.windows {
		if w.expired(now) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

// Start runs the sweep ticker until ctx ends or Close is called.
func (m *MemoryLimiter) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

// Close stops the sweeper. It is safe to call more than once, with or without Start.
func (m *MemoryLimiter) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// Len returns the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}
