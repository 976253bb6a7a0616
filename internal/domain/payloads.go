package domain

import "time"

// Inbound is the client → server message envelope. The optional Token
// field rotates the session credential; when absent the token presented
// at connect time is re-validated instead.
type Inbound struct {
	Message    string `json:"message"`
	ReceiverID *uint  `json:"receiver_id,omitempty"`
	Token      string `json:"token,omitempty"`
}

// MessageRecord is the serialized form of a persisted ChatMessage.
type MessageRecord struct {
	ID              uint      `json:"id"`
	EventID         uint      `json:"event_id"`
	SenderID        uint      `json:"sender_id"`
	ReceiverID      *uint     `json:"receiver_id"`
	Message         string    `json:"message"`
	IsFromOrganizer bool      `json:"is_from_organizer"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewMessageRecord converts a persisted message to its wire form.
func NewMessageRecord(m *ChatMessage) MessageRecord {
	return MessageRecord{
		ID:              m.ID,
		EventID:         m.EventID,
		SenderID:        m.SenderID,
		ReceiverID:      m.ReceiverID,
		Message:         m.Message,
		IsFromOrganizer: m.IsFromOrganizer,
		CreatedAt:       m.CreatedAt.UTC(),
	}
}

// Server → client payload variants. Exactly one field is set per frame.

// HistoryPayload is pushed once after a successful join.
type HistoryPayload struct {
	History []MessageRecord `json:"history"`
}

// MessagePayload carries one delivered chat message.
type MessagePayload struct {
	Message MessageRecord `json:"message"`
}

// StatusPayload acknowledges a successful send to the sender.
type StatusPayload struct {
	Status string `json:"status"`
}

// ErrorPayload carries a human-readable error. Fatal errors are followed
// by a close frame with a distinguishing close code.
type ErrorPayload struct {
	Error string `json:"error"`
}
