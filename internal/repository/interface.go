package repository

import (
	"context"
	"errors"
	"time"

	"github.com/studyquiz/chat-service/internal/domain"
)

var ErrRoomNotFound = errors.New("chat room not found")

// BatchRepository is the append-only durable store of per-room, per-day
// message batches.
type BatchRepository interface {
	// Save appends a new batch. Batches are never updated afterwards.
	Save(ctx context.Context, batch *domain.ChatMessageBatch) error

	// FindByRoomAndDate flattens all batches for roomID whose SendAt
	// falls within [day 00:00, day+1 00:00) into one sequence, in
	// SendAt order.
	FindByRoomAndDate(ctx context.Context, roomID int64, day time.Time) ([]domain.ChatMessage, error)

	// RoomExists reports whether the owning room row still exists.
	RoomExists(ctx context.Context, roomID int64) (bool, error)
}
