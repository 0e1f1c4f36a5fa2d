package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/studyquiz/chat-service/internal/domain"
)

func TestParseRoomKey(t *testing.T) {
	tests := []struct {
		key    string
		roomID int64
		ok     bool
	}{
		{key: "chat:room:42", roomID: 42, ok: true},
		{key: "chat:room:1", roomID: 1, ok: true},
		{key: "chat:room:42:draining", ok: false},
		{key: "chat:room:abc", ok: false},
		{key: "chat:room:0", ok: false},
		{key: "chat:room:-5", ok: false},
		{key: "chat:room:", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			id, ok := parseRoomKey(tt.key, "chat:room:")
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.roomID, id)
			}
		})
	}
}

func TestIsNoSuchKey(t *testing.T) {
	assert.True(t, isNoSuchKey(errors.New("ERR no such key")))
	assert.False(t, isNoSuchKey(errors.New("connection refused")))
	assert.False(t, isNoSuchKey(nil))
}

func TestAppendRejectsInvalidMessage(t *testing.T) {
	c := NewRedisMessageCache(nil, "chat:room:")

	// Validation happens before any Redis call, so a nil client is
	// never touched.
	err := c.Append(t.Context(), 1, domain.ChatMessage{Content: "x", Type: "SHOUT"})
	assert.ErrorIs(t, err, domain.ErrInvalidMessageType)
}

func TestAppendRejectsRoomMismatch(t *testing.T) {
	c := NewRedisMessageCache(nil, "chat:room:")

	msg := domain.ChatMessage{Content: "x", Type: domain.MessageTalk}.Stamp(time.Now(), 2, 7)
	err := c.Append(t.Context(), 1, msg)
	assert.ErrorIs(t, err, ErrRoomMismatch)
}

func TestQueryCacheBuildKey(t *testing.T) {
	qc := NewQueryCache(nil, time.Minute)

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "chat:history:42:2026-03-14", qc.BuildKey(42, day))
}
