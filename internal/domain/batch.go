package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ChatRoom rows are owned by the surrounding platform (one room per
// study group); this service only reads them to resolve batch ownership.
type ChatRoom struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"size:255"`
	CreatedAt time.Time
}

func (ChatRoom) TableName() string {
	return "chat_rooms"
}

// MessageList stores a full day's ordered messages as one opaque JSON
// column, the same shape they had on the wire.
type MessageList []ChatMessage

// Value implements driver.Valuer.
func (l MessageList) Value() (driver.Value, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *MessageList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("MessageList: unsupported scan type")
	}
}

// ChatMessageBatch is one archived room-day: the room's drained buffer
// persisted as a single append-only record. Never updated after
// creation.
type ChatMessageBatch struct {
	ID         int64       `gorm:"primaryKey;autoIncrement"`
	ChatRoomID int64       `gorm:"index:idx_batches_room_send_at;not null"`
	Messages   MessageList `gorm:"type:text"`
	SendAt     time.Time   `gorm:"index:idx_batches_room_send_at;not null"`
}

func (ChatMessageBatch) TableName() string {
	return "chat_message_batches"
}
