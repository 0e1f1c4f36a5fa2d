package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/studyquiz/chat-service/internal/auth"
	"github.com/studyquiz/chat-service/internal/broker"
	"github.com/studyquiz/chat-service/internal/cache"
	"github.com/studyquiz/chat-service/internal/domain"
	"github.com/studyquiz/chat-service/internal/repository"
	"github.com/studyquiz/chat-service/pkg/log"
)

type chatService struct {
	cache   cache.MessageCache
	broker  broker.Broker
	repo    repository.BatchRepository
	queries *cache.QueryCache // optional; nil disables by-date memoization
	sf      singleflight.Group
	now     func() time.Time
}

func NewChatService(
	msgCache cache.MessageCache,
	b broker.Broker,
	repo repository.BatchRepository,
	queries *cache.QueryCache,
) ChatService {
	return &chatService{
		cache:   msgCache,
		broker:  b,
		repo:    repo,
		queries: queries,
		now:     time.Now,
	}
}

func (s *chatService) SendMessage(ctx context.Context, roomID int64, msg domain.ChatMessage, sender auth.Identity) (domain.ChatMessage, error) {
	if !msg.Type.Valid() {
		return domain.ChatMessage{}, domain.ErrInvalidMessageType
	}
	if msg.Sender == "" {
		msg.Sender = sender.DisplayName
	}

	stamped := msg.Stamp(s.now(), roomID, sender.UserID)

	// Append before publish: a message that fails live fan-out still
	// reaches the daily archive.
	if err := s.cache.Append(ctx, roomID, stamped); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("message not buffered: %w", err)
	}

	if err := s.broker.Publish(ctx, &stamped); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoomID, stamped.RoomID).Msg("live fan-out lost, message kept for archival")
	}

	return stamped, nil
}

func (s *chatService) Announce(ctx context.Context, roomID int64, msg domain.ChatMessage) error {
	// The routing key comes from the destination the frame was
	// addressed to; everything else passes through unmodified.
	msg.RoomID = strconv.FormatInt(roomID, 10)

	if err := s.broker.Publish(ctx, &msg); err != nil {
		return fmt.Errorf("announcement not delivered: %w", err)
	}
	return nil
}

func (s *chatService) FetchFromCache(ctx context.Context, roomID int64) ([]domain.ChatMessage, error) {
	msgs, err := s.cache.Read(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to read today's messages: %w", err)
	}
	return msgs, nil
}

func (s *chatService) FetchByDate(ctx context.Context, roomID int64, day time.Time) ([]domain.MessageView, error) {
	// Same-day and future queries bypass the memo: the sweep may still
	// add a batch for today.
	if s.queries == nil || !day.Before(startOfDay(s.now())) {
		return s.fetchArchived(ctx, roomID, day)
	}

	key := s.queries.BuildKey(roomID, day)

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		cached, err := s.queries.Get(ctx, key)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Msg("history cache get error")
		}

		views, err := s.fetchArchived(ctx, roomID, day)
		if err != nil {
			return nil, err
		}

		if err := s.queries.Set(ctx, key, views); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Msg("history cache set error")
		}

		return views, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]domain.MessageView), nil
}

func (s *chatService) fetchArchived(ctx context.Context, roomID int64, day time.Time) ([]domain.MessageView, error) {
	msgs, err := s.repo.FindByRoomAndDate(ctx, roomID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to read archived messages: %w", err)
	}

	views := make([]domain.MessageView, 0, len(msgs))
	for _, msg := range msgs {
		views = append(views, msg.View())
	}
	return views, nil
}

func (s *chatService) CollectAllRoomsAndClear(ctx context.Context) (map[int64][]domain.ChatMessage, error) {
	roomIDs, err := s.cache.RoomIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover active rooms: %w", err)
	}

	collected := make(map[int64][]domain.ChatMessage, len(roomIDs))
	for _, roomID := range roomIDs {
		msgs, err := s.cache.Drain(ctx, roomID)
		if err != nil {
			// One room's drain failure must not abort the sweep.
			l := log.Ctx(ctx)
			l.Error().Err(err).Str(log.FieldRoomID, strconv.FormatInt(roomID, 10)).Msg("failed to drain room buffer")
			continue
		}
		collected[roomID] = msgs
	}

	return collected, nil
}

func (s *chatService) ArchiveRoom(ctx context.Context, roomID int64, messages []domain.ChatMessage) error {
	exists, err := s.repo.RoomExists(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to resolve room %d: %w", roomID, err)
	}
	if !exists {
		return fmt.Errorf("room %d: %w", roomID, repository.ErrRoomNotFound)
	}

	batch := &domain.ChatMessageBatch{
		ChatRoomID: roomID,
		Messages:   messages,
		SendAt:     s.now(),
	}

	if err := s.repo.Save(ctx, batch); err != nil {
		return fmt.Errorf("failed to archive room %d: %w", roomID, err)
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
