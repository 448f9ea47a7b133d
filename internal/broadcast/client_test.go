package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLiveServer(t *testing.T, hub *Hub, eventID string, opts ClientOptions) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(hub, conn, opts).Serve(context.Background(), eventID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestClientReceivesChannelMessages(t *testing.T) {
	hub := NewHub(HubParams{})
	conn := startLiveServer(t, hub, "evt-1", ClientOptions{UserID: "user-1"})

	require.Eventually(t, func() bool { return hub.Subscribers("evt-1") == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, hub.Online("user-1"))

	hub.Publish(context.Background(), "evt-1", EventMediaCreated, nil)
	hub.Publish(context.Background(), "evt-1", EventMediaProcessed, nil)

	assert.Equal(t, EventMediaCreated, readMessage(t, conn).Type)
	assert.Equal(t, EventMediaProcessed, readMessage(t, conn).Type)
}

func TestClientJoinAndLeave(t *testing.T) {
	hub := NewHub(HubParams{})
	conn := startLiveServer(t, hub, "evt-1", ClientOptions{
		CanJoin: func(eventID string) bool { return eventID != "forbidden" },
	})
	require.Eventually(t, func() bool { return hub.Subscribers("evt-1") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "join", EventID: "evt-2"}))
	require.Eventually(t, func() bool { return hub.Subscribers("evt-2") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "join", EventID: "forbidden"}))
	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "leave", EventID: "evt-1"}))
	require.Eventually(t, func() bool { return hub.Subscribers("evt-1") == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, hub.Subscribers("forbidden"))
	assert.Equal(t, 1, hub.Subscribers("evt-2"))
}

func TestClientDisconnectLeavesChannels(t *testing.T) {
	hub := NewHub(HubParams{})
	conn := startLiveServer(t, hub, "evt-1", ClientOptions{})
	require.Eventually(t, func() bool { return hub.Subscribers("evt-1") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Channels() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestClientEnqueueAfterClose(t *testing.T) {
	client := NewClient(NewHub(HubParams{}), nil, ClientOptions{Buffer: 1})
	assert.True(t, client.Enqueue([]byte("a")))
	assert.False(t, client.Enqueue([]byte("b")), "full buffer refuses without blocking")

	client.Close()
	client.Close()
	assert.False(t, client.Enqueue([]byte("c")))
}
