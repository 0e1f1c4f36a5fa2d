package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyquiz/chat-service/internal/config"
	"github.com/studyquiz/chat-service/internal/domain"
)

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
	}
}

func newTestClient(h *Hub, id string, buffer int) *Client {
	return &Client{
		ID:      id,
		Hub:     h,
		Send:    make(chan []byte, buffer),
		Session: domain.NewSession(id, 1, "tester"),
		config:  testConfig(),
	}
}

func register(t *testing.T, h *Hub, c *Client) {
	t.Helper()
	h.Register(c)
	waitFor(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		_, ok := h.clients[c.ID]
		return ok
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data := <-c.Send:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func TestBroadcastToRoom(t *testing.T) {
	h := NewHub(testConfig())
	go h.Run()

	a := newTestClient(h, "a", 8)
	b := newTestClient(h, "b", 8)
	register(t, h, a)
	register(t, h, b)

	h.JoinRoom(a, "42")
	h.JoinRoom(b, "42")
	assert.Equal(t, 2, h.RoomClientCount("42"))

	frame := domain.NewMessageFrame(domain.ChatMessage{RoomID: "42", Content: "hi", Type: domain.MessageTalk})
	require.NoError(t, h.BroadcastToRoom("42", frame))

	for _, c := range []*Client{a, b} {
		var got domain.MessageFrame
		require.NoError(t, json.Unmarshal(receive(t, c), &got))
		assert.Equal(t, "/sub/42", got.Destination)
		assert.Equal(t, "hi", got.Message.Content)
	}
}

func TestBroadcastRoomIsolation(t *testing.T) {
	h := NewHub(testConfig())
	go h.Run()

	a := newTestClient(h, "a", 8)
	b := newTestClient(h, "b", 8)
	register(t, h, a)
	register(t, h, b)

	h.JoinRoom(a, "1")
	h.JoinRoom(b, "2")

	require.NoError(t, h.BroadcastToRoom("1", domain.NewMessageFrame(domain.ChatMessage{RoomID: "1", Content: "only room 1"})))

	receive(t, a)

	select {
	case <-b.Send:
		t.Fatal("message leaked into another room")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	h := NewHub(testConfig())
	go h.Run()

	a := newTestClient(h, "a", 8)
	register(t, h, a)

	h.JoinRoom(a, "5")
	h.LeaveRoom(a, "5")
	assert.Equal(t, 0, h.RoomClientCount("5"))

	require.NoError(t, h.BroadcastToRoom("5", domain.NewMessageFrame(domain.ChatMessage{RoomID: "5"})))

	select {
	case <-a.Send:
		t.Fatal("unsubscribed client still received a message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnregisterRemovesFromAllRooms(t *testing.T) {
	h := NewHub(testConfig())
	go h.Run()

	a := newTestClient(h, "a", 8)
	register(t, h, a)

	h.JoinRoom(a, "1")
	h.JoinRoom(a, "2")

	h.Unregister(a)
	waitFor(t, func() bool {
		return h.RoomClientCount("1") == 0 && h.RoomClientCount("2") == 0
	})

	// Send channel is closed on unregister.
	_, open := <-a.Send
	assert.False(t, open)
}

func TestSlowConsumerDropped(t *testing.T) {
	h := NewHub(testConfig())
	go h.Run()

	slow := newTestClient(h, "slow", 1)
	register(t, h, slow)
	h.JoinRoom(slow, "9")

	// Fill the buffer, then force a drop.
	require.NoError(t, h.BroadcastToRoom("9", domain.NewMessageFrame(domain.ChatMessage{RoomID: "9", Content: "1"})))
	require.NoError(t, h.BroadcastToRoom("9", domain.NewMessageFrame(domain.ChatMessage{RoomID: "9", Content: "2"})))

	waitFor(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		_, ok := h.clients["slow"]
		return !ok
	})
}
