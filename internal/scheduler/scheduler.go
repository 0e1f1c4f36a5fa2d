package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/studyquiz/chat-service/internal/audit"
	"github.com/studyquiz/chat-service/internal/config"
	"github.com/studyquiz/chat-service/internal/service"
	"github.com/studyquiz/chat-service/pkg/log"
)

// Archiver runs the daily sweep that drains every room's ephemeral
// buffer into one durable batch per room.
type Archiver struct {
	cron *cron.Cron
	svc  service.ChatService
	spec string
}

func New(cfg config.ArchiveConfig, svc service.ChatService) (*Archiver, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid archive timezone %q: %w", cfg.Timezone, err)
	}

	// SkipIfStillRunning: a sweep that overruns its slot must not
	// overlap the next one.
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &Archiver{
		cron: c,
		svc:  svc,
		spec: cfg.Cron,
	}, nil
}

func (a *Archiver) Start() error {
	_, err := a.cron.AddFunc(a.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		a.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid archive schedule %q: %w", a.spec, err)
	}

	a.cron.Start()
	l := log.L()
	l.Info().Str("schedule", a.spec).Msg("archival scheduler started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (a *Archiver) Stop() {
	<-a.cron.Stop().Done()
	l := log.L()
	l.Info().Msg("archival scheduler stopped")
}

// RunOnce performs one full sweep. Per-room failures are logged and
// skipped; they never abort the remaining rooms.
func (a *Archiver) RunOnce(ctx context.Context) {
	l := log.Ctx(ctx)
	l.Info().Msg("archival sweep starting")

	collected, err := a.svc.CollectAllRoomsAndClear(ctx)
	if err != nil {
		l.Error().Err(err).Msg("archival sweep aborted")
		return
	}

	archived := 0
	for roomID, messages := range collected {
		if len(messages) == 0 {
			continue
		}

		if err := a.svc.ArchiveRoom(ctx, roomID, messages); err != nil {
			l.Error().Err(err).Str(log.FieldRoomID, strconv.FormatInt(roomID, 10)).Msg("room archival failed")
			continue
		}
		audit.LogWithDetail(ctx, audit.ActionArchive, "",
			strconv.Itoa(len(messages))+" messages", "room "+strconv.FormatInt(roomID, 10)+" archived")
		archived++
	}

	l.Info().Int("rooms_archived", archived).Int("rooms_drained", len(collected)).Msg("archival sweep finished")
}
