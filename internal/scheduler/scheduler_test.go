package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyquiz/chat-service/internal/auth"
	"github.com/studyquiz/chat-service/internal/config"
	"github.com/studyquiz/chat-service/internal/domain"
)

type fakeService struct {
	collected  map[int64][]domain.ChatMessage
	collectErr error
	archiveErr map[int64]error
	archived   map[int64][]domain.ChatMessage
}

func newFakeService(collected map[int64][]domain.ChatMessage) *fakeService {
	return &fakeService{
		collected:  collected,
		archiveErr: make(map[int64]error),
		archived:   make(map[int64][]domain.ChatMessage),
	}
}

func (s *fakeService) SendMessage(ctx context.Context, roomID int64, msg domain.ChatMessage, sender auth.Identity) (domain.ChatMessage, error) {
	return domain.ChatMessage{}, nil
}

func (s *fakeService) Announce(ctx context.Context, roomID int64, msg domain.ChatMessage) error {
	return nil
}

func (s *fakeService) FetchFromCache(ctx context.Context, roomID int64) ([]domain.ChatMessage, error) {
	return nil, nil
}

func (s *fakeService) FetchByDate(ctx context.Context, roomID int64, day time.Time) ([]domain.MessageView, error) {
	return nil, nil
}

func (s *fakeService) CollectAllRoomsAndClear(ctx context.Context) (map[int64][]domain.ChatMessage, error) {
	return s.collected, s.collectErr
}

func (s *fakeService) ArchiveRoom(ctx context.Context, roomID int64, messages []domain.ChatMessage) error {
	if err := s.archiveErr[roomID]; err != nil {
		return err
	}
	s.archived[roomID] = messages
	return nil
}

func testArchiveConfig() config.ArchiveConfig {
	return config.ArchiveConfig{Cron: "0 0 * * *", Timezone: "UTC"}
}

func TestRunOnceArchivesEachRoom(t *testing.T) {
	svc := newFakeService(map[int64][]domain.ChatMessage{
		1: {{RoomID: "1", Content: "a", Type: domain.MessageTalk}},
		2: {{RoomID: "2", Content: "b", Type: domain.MessageTalk}, {RoomID: "2", Content: "c", Type: domain.MessageTalk}},
	})

	a, err := New(testArchiveConfig(), svc)
	require.NoError(t, err)

	a.RunOnce(context.Background())

	require.Len(t, svc.archived, 2)
	assert.Len(t, svc.archived[1], 1)
	assert.Len(t, svc.archived[2], 2)
}

func TestRunOnceSkipsEmptyRooms(t *testing.T) {
	svc := newFakeService(map[int64][]domain.ChatMessage{
		1: {{RoomID: "1", Content: "a", Type: domain.MessageTalk}},
		2: {},
	})

	a, err := New(testArchiveConfig(), svc)
	require.NoError(t, err)

	a.RunOnce(context.Background())

	require.Len(t, svc.archived, 1)
	_, ok := svc.archived[2]
	assert.False(t, ok)
}

func TestRunOnceArchiveFailureIsolated(t *testing.T) {
	svc := newFakeService(map[int64][]domain.ChatMessage{
		1: {{RoomID: "1", Content: "a", Type: domain.MessageTalk}},
		2: {{RoomID: "2", Content: "b", Type: domain.MessageTalk}},
	})
	svc.archiveErr[1] = errors.New("room deleted")

	a, err := New(testArchiveConfig(), svc)
	require.NoError(t, err)

	a.RunOnce(context.Background())

	require.Len(t, svc.archived, 1)
	assert.Len(t, svc.archived[2], 1)
}

func TestRunOnceCollectFailureAborts(t *testing.T) {
	svc := newFakeService(nil)
	svc.collectErr = errors.New("redis down")

	a, err := New(testArchiveConfig(), svc)
	require.NoError(t, err)

	a.RunOnce(context.Background())
	assert.Empty(t, svc.archived)
}

func TestNewRejectsBadTimezone(t *testing.T) {
	_, err := New(config.ArchiveConfig{Cron: "0 0 * * *", Timezone: "Mars/Olympus"}, newFakeService(nil))
	assert.Error(t, err)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	a, err := New(config.ArchiveConfig{Cron: "not a schedule", Timezone: "UTC"}, newFakeService(nil))
	require.NoError(t, err)
	assert.Error(t, a.Start())
}
