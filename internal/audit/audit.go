package audit

import (
	"context"

	"github.com/eventbem/chat-service/pkg/log"
)

// Audit actions for the chat service.
const (
	ActionConnect      = "chat.connect"
	ActionRejected     = "chat.rejected"
	ActionJoin         = "chat.join"
	ActionSendMessage  = "chat.send_message"
	ActionPrivateSend  = "chat.private_send"
	ActionAccessRevoke = "chat.access_revoked"
	ActionDisconnect   = "chat.disconnect"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID uint, eventID uint, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Uint(log.FieldUserID, userID).
		Uint(log.FieldEventID, eventID).
		Msg(msg)
}

// LogWithDetail emits an audit log with an extra detail field.
func LogWithDetail(ctx context.Context, action string, userID uint, eventID uint, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Uint(log.FieldUserID, userID).
		Uint(log.FieldEventID, eventID).
		Str(FieldDetail, detail).
		Msg(msg)
}
