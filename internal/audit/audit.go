package audit

import (
	"context"

	"github.com/studyquiz/chat-service/pkg/log"
)

// Audit actions for the chat pipeline.
const (
	ActionAuthFailed  = "chat.auth_failed"
	ActionSubscribe   = "chat.subscribe"
	ActionUnsubscribe = "chat.unsubscribe"
	ActionSendMessage = "chat.send_message"
	ActionAnnounce    = "chat.announce"
	ActionArchive     = "chat.archive"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithDetail emits an audit log with an extra detail field.
func LogWithDetail(ctx context.Context, action string, userID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
