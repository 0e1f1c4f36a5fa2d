package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/studyquiz/chat-service/internal/domain"
)

type batchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) Save(ctx context.Context, batch *domain.ChatMessageBatch) error {
	if batch.SendAt.IsZero() {
		batch.SendAt = time.Now()
	}

	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

func (r *batchRepository) FindByRoomAndDate(ctx context.Context, roomID int64, day time.Time) ([]domain.ChatMessage, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var batches []domain.ChatMessageBatch
	err := r.db.WithContext(ctx).
		Where("chat_room_id = ? AND send_at >= ? AND send_at < ?", roomID, start, end).
		Order("send_at ASC").
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}

	// Normally one batch per room-day; concatenation covers the case
	// of more.
	var messages []domain.ChatMessage
	for _, batch := range batches {
		messages = append(messages, batch.Messages...)
	}

	return messages, nil
}

func (r *batchRepository) RoomExists(ctx context.Context, roomID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.ChatRoom{}).
		Where("id = ?", roomID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up room: %w", err)
	}
	return count > 0, nil
}
