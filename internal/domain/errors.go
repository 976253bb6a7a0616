package domain

import "fmt"

// WebSocket close codes. The 4xxx range is reserved for application use;
// each rejection reason gets its own code so clients can distinguish them.
const (
	CloseInternalError   = 4000
	CloseUnauthenticated = 4001
	CloseForbidden       = 4003
	CloseEventEnded      = 4004
	CloseEventNotFound   = 4005
)

// ChatError classifies a chat failure as fatal (connection must close,
// carrying a close code) or recoverable (error payload only, connection
// stays open).
type ChatError struct {
	Message   string
	CloseCode int
	Fatal     bool
}

func (e *ChatError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("chat: %s (close %d)", e.Message, e.CloseCode)
	}
	return fmt.Sprintf("chat: %s", e.Message)
}

// Fatal errors close the connection after a best-effort error payload.

func ErrUnauthenticated() *ChatError {
	return &ChatError{Message: "invalid or expired credentials", CloseCode: CloseUnauthenticated, Fatal: true}
}

func ErrForbidden() *ChatError {
	return &ChatError{Message: "you do not have access to this chat room", CloseCode: CloseForbidden, Fatal: true}
}

func ErrEventEnded() *ChatError {
	return &ChatError{Message: "the event has ended", CloseCode: CloseEventEnded, Fatal: true}
}

func ErrEventNotFound() *ChatError {
	return &ChatError{Message: "the event does not exist", CloseCode: CloseEventNotFound, Fatal: true}
}

func ErrInternal() *ChatError {
	return &ChatError{Message: "internal error", CloseCode: CloseInternalError, Fatal: true}
}

// Recoverable errors leave the connection open.

func ErrEmptyMessage() *ChatError {
	return &ChatError{Message: "message must not be empty"}
}

func ErrReceiverNotFound() *ChatError {
	return &ChatError{Message: "the receiver does not exist"}
}

func ErrReceiverForbidden() *ChatError {
	return &ChatError{Message: "the receiver does not have access to this chat room"}
}

func ErrBadPayload() *ChatError {
	return &ChatError{Message: "invalid message payload"}
}

// ErrPartialDelivery reports that a message was persisted but could not
// be delivered to its private receiver. Never rolls back persistence.
func ErrPartialDelivery() *ChatError {
	return &ChatError{Message: "message saved but could not be delivered to the receiver"}
}
