package handler

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyquiz/chat-service/internal/broker"
	"github.com/studyquiz/chat-service/internal/config"
	"github.com/studyquiz/chat-service/internal/domain"
	"github.com/studyquiz/chat-service/internal/hub"
)

// memBroker fans every published message out to all subscribed
// handlers, standing in for the shared pub/sub channel.
type memBroker struct {
	mu       sync.Mutex
	handlers []broker.Handler
}

func (b *memBroker) Publish(ctx context.Context, msg *domain.ChatMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, h := range b.handlers {
		h(ctx, msg)
	}
	return nil
}

func (b *memBroker) Subscribe(ctx context.Context, handler broker.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
	return nil
}

func (b *memBroker) Close() error { return nil }

func wsTestConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
	}
}

func receiveFrame(t *testing.T, c *hub.Client) domain.MessageFrame {
	t.Helper()
	select {
	case data := <-c.Send:
		var frame domain.MessageFrame
		require.NoError(t, json.Unmarshal(data, &frame))
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered")
		return domain.MessageFrame{}
	}
}

func TestBroadcastBridgeCrossInstanceDelivery(t *testing.T) {
	cfg := wsTestConfig()
	ctx := context.Background()

	// Two hubs stand in for two gateway instances sharing one broker.
	hubA := hub.NewHub(cfg)
	hubB := hub.NewHub(cfg)
	go hubA.Run()
	go hubB.Run()

	b := &memBroker{}
	require.NoError(t, b.Subscribe(ctx, NewBroadcastBridge(hubA)))
	require.NoError(t, b.Subscribe(ctx, NewBroadcastBridge(hubB)))

	clientA := hub.NewClient("a", hubA, nil, cfg, 1, "alice")
	clientB := hub.NewClient("b", hubB, nil, cfg, 2, "bob")
	hubA.Register(clientA)
	hubB.Register(clientB)
	hubA.JoinRoom(clientA, "42")
	hubB.JoinRoom(clientB, "42")

	msg := domain.ChatMessage{RoomID: "42", Sender: "alice", Content: "hi", CreatedAt: "2026-03-14 10:00:00", Type: domain.MessageTalk}
	require.NoError(t, b.Publish(ctx, &msg))

	// Both instances deliver, including the one the sender is not on.
	for _, c := range []*hub.Client{clientA, clientB} {
		frame := receiveFrame(t, c)
		assert.Equal(t, domain.FrameMessage, frame.Type)
		assert.Equal(t, "/sub/42", frame.Destination)
		assert.Equal(t, "hi", frame.Message.Content)
	}
}

func TestBroadcastBridgeRoomScoped(t *testing.T) {
	cfg := wsTestConfig()
	ctx := context.Background()

	h := hub.NewHub(cfg)
	go h.Run()

	b := &memBroker{}
	require.NoError(t, b.Subscribe(ctx, NewBroadcastBridge(h)))

	subscribed := hub.NewClient("in", h, nil, cfg, 1, "alice")
	elsewhere := hub.NewClient("out", h, nil, cfg, 2, "bob")
	h.Register(subscribed)
	h.Register(elsewhere)
	h.JoinRoom(subscribed, "1")
	h.JoinRoom(elsewhere, "2")

	require.NoError(t, b.Publish(ctx, &domain.ChatMessage{RoomID: "1", Content: "only room 1", Type: domain.MessageTalk}))

	receiveFrame(t, subscribed)

	select {
	case <-elsewhere.Send:
		t.Fatal("message delivered outside its room")
	case <-time.After(100 * time.Millisecond):
	}
}
