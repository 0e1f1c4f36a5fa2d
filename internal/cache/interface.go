package cache

import (
	"context"

	"github.com/studyquiz/chat-service/internal/domain"
)

// MessageCache is the ephemeral store holding each room's
// not-yet-archived messages as an insertion-ordered list. Every value
// crossing this boundary is a schema-validated ChatMessage; the store
// never holds untyped blobs.
type MessageCache interface {
	// Append adds msg to the end of roomID's buffer, creating it if
	// absent. The message's RoomID must match the key it is stored
	// under.
	Append(ctx context.Context, roomID int64, msg domain.ChatMessage) error

	// Read returns the full buffer in insertion order without mutating
	// it. A missing key yields an empty slice.
	Read(ctx context.Context, roomID int64) ([]domain.ChatMessage, error)

	// Delete removes the buffer entirely. Idempotent.
	Delete(ctx context.Context, roomID int64) error

	// RoomIDs lists the rooms that currently have a buffer.
	RoomIDs(ctx context.Context) ([]int64, error)

	// Drain atomically detaches roomID's buffer and returns its
	// contents. Messages appended concurrently with a drain land in a
	// fresh buffer, and a drain that fails partway leaves its snapshot
	// where a later Drain recovers it; either way nothing is lost,
	// though a failed drain may surface the same messages twice.
	Drain(ctx context.Context, roomID int64) ([]domain.ChatMessage, error)
}
