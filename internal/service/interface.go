package service

import (
	"context"
	"time"

	"github.com/studyquiz/chat-service/internal/auth"
	"github.com/studyquiz/chat-service/internal/domain"
)

// ChatService owns the ingestion, read, and archival-drain paths of
// the chat pipeline.
type ChatService interface {
	// SendMessage stamps msg with server time and the sender's
	// identity, buffers it in the ephemeral store, then publishes it
	// for fan-out. Returns the stamped message for the gateway to echo
	// back to the originating connection.
	SendMessage(ctx context.Context, roomID int64, msg domain.ChatMessage, sender auth.Identity) (domain.ChatMessage, error)

	// Announce republishes a join/leave message on the broker without
	// touching the ephemeral store.
	Announce(ctx context.Context, roomID int64, msg domain.ChatMessage) error

	// FetchFromCache returns today's buffered messages for a room in
	// insertion order.
	FetchFromCache(ctx context.Context, roomID int64) ([]domain.ChatMessage, error)

	// FetchByDate returns the archived messages of a completed day.
	// Today's un-archived buffer is deliberately absent from this path.
	FetchByDate(ctx context.Context, roomID int64, day time.Time) ([]domain.MessageView, error)

	// CollectAllRoomsAndClear drains every room's buffer and returns
	// the drained messages grouped by room. Not atomic across rooms.
	CollectAllRoomsAndClear(ctx context.Context) (map[int64][]domain.ChatMessage, error)

	// ArchiveRoom persists one room's drained messages as a single
	// durable batch.
	ArchiveRoom(ctx context.Context, roomID int64, messages []domain.ChatMessage) error
}
