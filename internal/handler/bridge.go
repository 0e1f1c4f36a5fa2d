package handler

import (
	"context"

	"github.com/studyquiz/chat-service/internal/broker"
	"github.com/studyquiz/chat-service/internal/domain"
	"github.com/studyquiz/chat-service/internal/hub"
	"github.com/studyquiz/chat-service/pkg/log"
)

// NewBroadcastBridge returns the broker handler that completes the
// fan-out path: every delivery on the shared channel is pushed to this
// instance's connections subscribed to the message's room, no matter
// which instance ingested it.
func NewBroadcastBridge(h *hub.Hub) broker.Handler {
	return func(ctx context.Context, msg *domain.ChatMessage) {
		if err := h.BroadcastToRoom(msg.RoomID, domain.NewMessageFrame(*msg)); err != nil {
			l := log.Ctx(ctx)
			l.Error().Err(err).Str(log.FieldRoomID, msg.RoomID).Msg("room broadcast failed")
		}
	}
}
