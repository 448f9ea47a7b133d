package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/snapwall/snapwall-backend/pkg/logger"
)

const mirrorTimeout = 10 * time.Second

// Sink receives mirrored lifecycle messages, e.g. a Pub/Sub topic.
type Sink interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) error
}

// Mirror forwards every publish to the wrapped Publisher and copies lifecycle
// messages to a Sink in the background. Sink failures are logged only.
type Mirror struct {
	next    Publisher
	sink    Sink
	logg    *logger.Logger
	now     func() time.Time
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewMirror wraps next. A nil sink makes the mirror a pass-through.
func NewMirror(next Publisher, sink Sink, logg *logger.Logger) *Mirror {
	return &Mirror{next: next, sink: sink, logg: logg, now: time.Now, timeout: mirrorTimeout}
}

func (m *Mirror) Publish(ctx context.Context, eventID string, eventType EventType, payload any) {
	m.next.Publish(ctx, eventID, eventType, payload)
	if m.sink == nil || !mirrored(eventType) {
		return
	}

	data, err := json.Marshal(Message{Type: eventType, EventID: eventID, Payload: payload, SentAt: m.now().UTC()})
	if err != nil {
		m.logError(ctx, "broadcast.mirror_marshal_failed", err, eventID, eventType)
		return
	}
	attrs := map[string]string{"event_type": string(eventType), "event_id": eventID}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		if err := m.sink.Publish(pubCtx, data, attrs); err != nil {
			m.logError(ctx, "broadcast.mirror_publish_failed", err, eventID, eventType)
		}
	}()
}

// Wait blocks until in-flight mirror publishes finish.
func (m *Mirror) Wait() {
	m.wg.Wait()
}

// mirrored excludes likes; they carry no lifecycle change.
func mirrored(eventType EventType) bool {
	return eventType != EventNewLike
}

func (m *Mirror) logError(ctx context.Context, msg string, err error, eventID string, eventType EventType) {
	if m.logg == nil {
		return
	}
	ctx = m.logg.WithFields(m.logg.WithEventID(ctx, eventID), map[string]any{"event_type": string(eventType)})
	m.logg.Error(ctx, msg, err)
}
