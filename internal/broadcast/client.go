package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/snapwall/snapwall-backend/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	defaultClientBuffer = 64
)

const (
	inboundJoin  = "join"
	inboundLeave = "leave"
)

type inboundMessage struct {
	Type    string `json:"type"`
	EventID string `json:"event_id"`
}

// ClientOptions tunes a live connection.
type ClientOptions struct {
	UserID        string
	Buffer        int
	InboundPerSec float64
	InboundBurst  int
	// CanJoin gates join requests for channels other than the one opened on connect.
	CanJoin func(eventID string) bool
	Logger  *logger.Logger
}

// Client is a websocket subscriber. Outbound messages queue in a bounded buffer.
type Client struct {
	id      string
	userID  string
	hub     *Hub
	conn    *websocket.Conn
	limiter *rate.Limiter
	canJoin func(string) bool
	logg    *logger.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, opts ClientOptions) *Client {
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	perSec := opts.InboundPerSec
	if perSec <= 0 {
		perSec = 5
	}
	burst := opts.InboundBurst
	if burst <= 0 {
		burst = 10
	}
	return &Client{
		id:      uuid.NewString(),
		userID:  opts.UserID,
		hub:     hub,
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
		canJoin: opts.CanJoin,
		logg:    opts.Logger,
		send:    make(chan []byte, buffer),
	}
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }

// Enqueue hands data to the write pump without blocking. False means the buffer is full or closed.
func (c *Client) Enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close stops the write pump, which then sends a close frame and releases the socket.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Serve joins eventID and pumps the connection until it ends.
func (c *Client) Serve(ctx context.Context, eventID string) {
	c.hub.Subscribe(c, eventID)
	go c.WritePump()
	c.ReadPump(ctx)
}

// ReadPump applies join/leave requests and keeps the read deadline alive.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Drop(c)
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && c.logg != nil {
				c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "broadcast.client_read_failed")
			}
			return
		}
		if !c.limiter.Allow() {
			continue
		}
		if err := c.handleInbound(raw); err != nil && c.logg != nil {
			c.logg.Debug(c.logg.WithField(ctx, "error", err.Error()), "broadcast.client_message_ignored")
		}
	}
}

func (c *Client) handleInbound(raw []byte) error {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}
	eventID := strings.TrimSpace(msg.EventID)
	if eventID == "" {
		return errors.New("event_id is required")
	}
	switch strings.ToLower(strings.TrimSpace(msg.Type)) {
	case inboundJoin:
		if c.canJoin != nil && !c.canJoin(eventID) {
			return errors.New("join not permitted")
		}
		c.hub.Subscribe(c, eventID)
	case inboundLeave:
		c.hub.Unsubscribe(c, eventID)
	default:
		return errors.New("unknown message type")
	}
	return nil
}

// WritePump drains the send buffer and pings the peer.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var _ Subscriber = (*Client)(nil)
