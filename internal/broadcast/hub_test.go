package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapwall/snapwall-backend/pkg/metrics"
)

type fakeSubscriber struct {
	mu       sync.Mutex
	userID   string
	capacity int
	messages [][]byte
	closed   bool
}

func newFakeSubscriber(capacity int) *fakeSubscriber {
	return &fakeSubscriber{capacity: capacity}
}

func (f *fakeSubscriber) UserID() string { return f.userID }

func (f *fakeSubscriber) Enqueue(data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || len(f.messages) >= f.capacity {
		return false
	}
	f.messages = append(f.messages, data)
	return true
}

func (f *fakeSubscriber) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSubscriber) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSubscriber) types(t *testing.T) []EventType {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]EventType, 0, len(f.messages))
	for _, raw := range f.messages {
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		out = append(out, msg.Type)
	}
	return out
}

func TestHubDeliversOnlyToEventChannel(t *testing.T) {
	hub := NewHub(HubParams{})
	a := newFakeSubscriber(10)
	b := newFakeSubscriber(10)
	hub.Subscribe(a, "evt-1")
	hub.Subscribe(b, "evt-2")

	hub.Publish(context.Background(), "evt-1", EventMediaReady, map[string]string{"media_id": "m1"})

	assert.Equal(t, []EventType{EventMediaReady}, a.types(t))
	assert.Empty(t, b.types(t))
	assert.Equal(t, 2, hub.Channels())
	assert.Equal(t, 1, hub.Subscribers("evt-1"))
}

func TestHubMessageEnvelope(t *testing.T) {
	fixed := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	hub := NewHub(HubParams{Now: func() time.Time { return fixed }})
	sub := newFakeSubscriber(1)
	hub.Subscribe(sub, "evt-1")

	hub.Publish(context.Background(), "evt-1", EventNewLike, LikePayload{MediaID: "m1", LikeCount: 3})

	require.Len(t, sub.messages, 1)
	var decoded struct {
		Type    EventType   `json:"type"`
		EventID string      `json:"event_id"`
		Payload LikePayload `json:"payload"`
		SentAt  time.Time   `json:"sent_at"`
	}
	require.NoError(t, json.Unmarshal(sub.messages[0], &decoded))
	assert.Equal(t, EventNewLike, decoded.Type)
	assert.Equal(t, "evt-1", decoded.EventID)
	assert.Equal(t, int64(3), decoded.Payload.LikeCount)
	assert.True(t, fixed.Equal(decoded.SentAt))
}

func TestHubPreservesPublishOrder(t *testing.T) {
	hub := NewHub(HubParams{})
	sub := newFakeSubscriber(10)
	hub.Subscribe(sub, "evt")

	hub.Publish(context.Background(), "evt", EventMediaCreated, nil)
	hub.Publish(context.Background(), "evt", EventMediaProcessing, nil)
	hub.Publish(context.Background(), "evt", EventMediaProcessed, nil)

	assert.Equal(t, []EventType{EventMediaCreated, EventMediaProcessing, EventMediaProcessed}, sub.types(t))
}

func TestHubDropsSlowConsumer(t *testing.T) {
	hub := NewHub(HubParams{})
	slow := newFakeSubscriber(1)
	fast := newFakeSubscriber(10)
	hub.Subscribe(slow, "evt")
	hub.Subscribe(slow, "other")
	hub.Subscribe(fast, "evt")

	hub.Publish(context.Background(), "evt", EventMediaReady, nil)
	hub.Publish(context.Background(), "evt", EventMediaReady, nil)

	assert.True(t, slow.isClosed())
	assert.False(t, fast.isClosed())
	assert.Len(t, fast.types(t), 2)
	assert.Equal(t, 1, hub.Subscribers("evt"))
	assert.Equal(t, 0, hub.Subscribers("other"), "a dropped consumer leaves every channel")
}

func TestHubUnsubscribeAndDrop(t *testing.T) {
	hub := NewHub(HubParams{})
	sub := newFakeSubscriber(10)
	sub.userID = "user-1"
	hub.Subscribe(sub, "a")
	hub.Subscribe(sub, "b")
	assert.True(t, hub.Online("user-1"))

	hub.Unsubscribe(sub, "a")
	assert.Equal(t, 0, hub.Subscribers("a"))
	assert.Equal(t, 1, hub.Subscribers("b"))

	hub.Drop(sub)
	assert.Equal(t, 0, hub.Channels())
	assert.False(t, hub.Online("user-1"))
	assert.False(t, sub.isClosed(), "drop does not close the connection")
}

func TestHubCloseClosesSubscribers(t *testing.T) {
	hub := NewHub(HubParams{})
	a := newFakeSubscriber(10)
	b := newFakeSubscriber(10)
	hub.Subscribe(a, "evt")
	hub.Subscribe(b, "evt")

	hub.Close()
	hub.Close()

	assert.True(t, a.isClosed())
	assert.True(t, b.isClosed())
	assert.Equal(t, 0, hub.Channels())

	late := newFakeSubscriber(10)
	hub.Subscribe(late, "evt")
	assert.True(t, late.isClosed())
	assert.Equal(t, 0, hub.Subscribers("evt"))
}

func TestHubCountsMessagesAndSubscribers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPipelineMetrics(reg)
	hub := NewHub(HubParams{Metrics: m})
	sub := newFakeSubscriber(10)
	hub.Subscribe(sub, "evt")
	hub.Publish(context.Background(), "evt", EventMediaDeleted, nil)

	families, err := reg.Gather()
	require.NoError(t, err)
	found := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				found[mf.GetName()] += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				found[mf.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, float64(1), found["snapwall_broadcast_messages_total"])
	assert.Equal(t, float64(1), found["snapwall_broadcast_subscribers"])
}

type fakeRelay struct {
	mu         sync.Mutex
	published  [][]byte
	publishErr error
	ch         chan []byte
	stopped    bool
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{ch: make(chan []byte, 16)}
}

func (f *fakeRelay) Publish(ctx context.Context, channel string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	data := payload.([]byte)
	f.published = append(f.published, data)
	f.ch <- data
	return nil
}

func (f *fakeRelay) Listen(ctx context.Context, channel string) (<-chan []byte, func() error, error) {
	return f.ch, func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stopped = true
		return nil
	}, nil
}

func TestHubRelaysThroughRunLoop(t *testing.T) {
	relay := newFakeRelay()
	hub := NewHub(HubParams{Relay: relay})
	sub := newFakeSubscriber(10)
	hub.Subscribe(sub, "evt")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Run(ctx)
	}()

	hub.Publish(ctx, "evt", EventMediaCreated, nil)
	hub.Publish(ctx, "evt", EventMediaProcessed, nil)

	assert.Eventually(t, func() bool { return len(sub.types(t)) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []EventType{EventMediaCreated, EventMediaProcessed}, sub.types(t))

	cancel()
	<-done
	assert.True(t, relay.stopped)
	assert.True(t, sub.isClosed(), "run closes the hub on exit")
}

func TestHubFallsBackToLocalDeliveryWhenRelayFails(t *testing.T) {
	relay := newFakeRelay()
	relay.publishErr = errors.New("redis down")
	hub := NewHub(HubParams{Relay: relay})
	sub := newFakeSubscriber(10)
	hub.Subscribe(sub, "evt")

	hub.Publish(context.Background(), "evt", EventMediaFailed, nil)

	assert.Equal(t, []EventType{EventMediaFailed}, sub.types(t))
}

func TestHubConcurrentPublishers(t *testing.T) {
	hub := NewHub(HubParams{})
	sub := newFakeSubscriber(1000)
	hub.Subscribe(sub, "evt")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				hub.Publish(context.Background(), "evt", EventNewLike, nil)
			}
		}()
	}
	wg.Wait()
	assert.Len(t, sub.types(t), 200)
}

func TestHubEventDeletedEmptiesChannel(t *testing.T) {
	hub := NewHub(HubParams{})
	sub := newFakeSubscriber(10)
	hub.Subscribe(sub, "evt")
	hub.Subscribe(sub, "other")

	hub.Publish(context.Background(), "evt", EventEventDeleted, EventDeletedPayload{EventID: "evt"})
	hub.Publish(context.Background(), "evt", EventMediaReady, nil)

	assert.Equal(t, []EventType{EventEventDeleted}, sub.types(t))
	assert.Zero(t, hub.Subscribers("evt"))
	assert.Equal(t, 1, hub.Subscribers("other"))
	assert.False(t, sub.isClosed())
}
