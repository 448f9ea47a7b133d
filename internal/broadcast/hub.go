package broadcast

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/snapwall/snapwall-backend/pkg/logger"
	"github.com/snapwall/snapwall-backend/pkg/metrics"
)

// DefaultRelayChannel is the Redis channel shared by every API node.
const DefaultRelayChannel = "sw:broadcast"

// Subscriber is one live connection. Enqueue must never block.
type Subscriber interface {
	UserID() string
	Enqueue(data []byte) bool
	Close()
}

// Publisher is the fire-and-forget notification surface used by services.
type Publisher interface {
	Publish(ctx context.Context, eventID string, eventType EventType, payload any)
}

// HubParams wires optional collaborators. A nil Relay keeps delivery node-local.
type HubParams struct {
	Logger       *logger.Logger
	Metrics      *metrics.PipelineMetrics
	Relay        Relay
	RelayChannel string
	Now          func() time.Time
}

// Hub fans messages out to the subscribers of each event channel.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[Subscriber]struct{}
	members  map[Subscriber]map[string]struct{}
	closed   bool

	relay        Relay
	relayChannel string
	logg         *logger.Logger
	metrics      *metrics.PipelineMetrics
	now          func() time.Time
}

func NewHub(params HubParams) *Hub {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	channel := strings.TrimSpace(params.RelayChannel)
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &Hub{
		channels:     make(map[string]map[Subscriber]struct{}),
		members:      make(map[Subscriber]map[string]struct{}),
		relay:        params.Relay,
		relayChannel: channel,
		logg:         params.Logger,
		metrics:      params.Metrics,
		now:          now,
	}
}

// Subscribe adds sub to the channel of eventID. Subscribing to a closed hub closes sub.
func (h *Hub) Subscribe(sub Subscriber, eventID string) {
	if sub == nil || eventID == "" {
		return
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.Close()
		return
	}
	subs, ok := h.channels[eventID]
	if !ok {
		subs = make(map[Subscriber]struct{})
		h.channels[eventID] = subs
	}
	subs[sub] = struct{}{}
	joined, ok := h.members[sub]
	if !ok {
		joined = make(map[string]struct{})
		h.members[sub] = joined
	}
	joined[eventID] = struct{}{}
	total := h.subscriptionCountLocked()
	h.mu.Unlock()

	h.metrics.SetSubscribers(total)
}

// Unsubscribe removes sub from one channel and keeps the connection open.
func (h *Hub) Unsubscribe(sub Subscriber, eventID string) {
	h.mu.Lock()
	h.removeLocked(sub, eventID)
	total := h.subscriptionCountLocked()
	h.mu.Unlock()

	h.metrics.SetSubscribers(total)
}

// Drop removes sub from every channel.
func (h *Hub) Drop(sub Subscriber) {
	h.mu.Lock()
	for eventID := range h.members[sub] {
		h.removeLocked(sub, eventID)
	}
	delete(h.members, sub)
	total := h.subscriptionCountLocked()
	h.mu.Unlock()

	h.metrics.SetSubscribers(total)
}

// Publish delivers a message to every subscriber of eventID, through the relay when configured.
// Failures are logged and never returned.
func (h *Hub) Publish(ctx context.Context, eventID string, eventType EventType, payload any) {
	if eventID == "" {
		return
	}
	msg := Message{
		Type:    eventType,
		EventID: eventID,
		Payload: payload,
		SentAt:  h.now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logError(ctx, "broadcast.marshal_failed", err, eventID, eventType)
		return
	}
	h.metrics.IncBroadcast(string(eventType))

	if h.relay != nil {
		err := h.relay.Publish(ctx, h.relayChannel, data)
		if err == nil {
			return
		}
		h.logError(ctx, "broadcast.relay_publish_failed", err, eventID, eventType)
	}
	h.deliver(eventID, data, eventType == EventEventDeleted)
}

// Run consumes the relay until ctx ends, then closes the hub.
func (h *Hub) Run(ctx context.Context) error {
	defer h.Close()
	if h.relay == nil {
		<-ctx.Done()
		return nil
	}

	messages, stop, err := h.relay.Listen(ctx, h.relayChannel)
	if err != nil {
		return err
	}
	defer func() {
		if err := stop(); err != nil {
			h.logError(context.Background(), "broadcast.relay_close_failed", err, "", "")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-messages:
			if !ok {
				return nil
			}
			var envelope struct {
				Type    EventType `json:"type"`
				EventID string    `json:"event_id"`
			}
			if err := json.Unmarshal(raw, &envelope); err != nil || envelope.EventID == "" {
				h.logError(ctx, "broadcast.relay_decode_failed", err, "", "")
				continue
			}
			h.deliver(envelope.EventID, raw, envelope.Type == EventEventDeleted)
		}
	}
}

// Close drops every subscription and closes every connection. Later subscribes are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]Subscriber, 0, len(h.members))
	for sub := range h.members {
		subs = append(subs, sub)
	}
	h.channels = make(map[string]map[Subscriber]struct{})
	h.members = make(map[Subscriber]map[string]struct{})
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	h.metrics.SetSubscribers(0)
}

// Subscribers returns the number of connections joined to eventID.
func (h *Hub) Subscribers(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[eventID])
}

// Channels returns the number of event channels with at least one subscriber.
func (h *Hub) Channels() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

// Online reports whether userID holds at least one live connection on this node.
func (h *Hub) Online(userID string) bool {
	if userID == "" {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.members {
		if sub.UserID() == userID {
			return true
		}
	}
	return false
}

// deliver holds the write lock so that concurrent publishes reach each subscriber in one order.
// teardown empties the channel after the final message; connections stay open.
func (h *Hub) deliver(eventID string, data []byte, teardown bool) {
	var slow []Subscriber

	h.mu.Lock()
	for sub := range h.channels[eventID] {
		if !sub.Enqueue(data) {
			slow = append(slow, sub)
		}
	}
	for _, sub := range slow {
		for joined := range h.members[sub] {
			h.removeLocked(sub, joined)
		}
		delete(h.members, sub)
	}
	if teardown {
		for sub := range h.channels[eventID] {
			h.removeLocked(sub, eventID)
		}
	}
	total := h.subscriptionCountLocked()
	h.mu.Unlock()

	for _, sub := range slow {
		if h.logg != nil {
			h.logg.Warn(h.logg.WithEventID(context.Background(), eventID), "broadcast.slow_consumer_dropped")
		}
		sub.Close()
	}
	if len(slow) > 0 || teardown {
		h.metrics.SetSubscribers(total)
	}
}

func (h *Hub) removeLocked(sub Subscriber, eventID string) {
	if subs, ok := h.channels[eventID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.channels, eventID)
		}
	}
	if joined, ok := h.members[sub]; ok {
		delete(joined, eventID)
	}
}

func (h *Hub) subscriptionCountLocked() int {
	total := 0
	for _, subs := range h.channels {
		total += len(subs)
	}
	return total
}

func (h *Hub) logError(ctx context.Context, msg string, err error, eventID string, eventType EventType) {
	if h.logg == nil {
		return
	}
	fields := map[string]any{}
	if eventID != "" {
		fields["event_id"] = eventID
	}
	if eventType != "" {
		fields["type"] = string(eventType)
	}
	h.logg.Error(h.logg.WithFields(ctx, fields), msg, err)
}

var _ Publisher = (*Hub)(nil)
