package service

import (
	"context"

	"github.com/eventbem/chat-service/internal/hub"
)

// ChatService drives the lifecycle of one chat connection: admission
// (authenticate, authorize, join, history replay), per-message routing,
// and teardown.
type ChatService interface {
	// HandleConnect runs the admission sequence for a freshly accepted
	// connection. On failure the client receives an error payload and a
	// close code; the returned error is for logging only.
	HandleConnect(ctx context.Context, c *hub.Client, token string) error

	// HandleInbound routes one inbound frame from a joined session.
	HandleInbound(ctx context.Context, c *hub.Client, raw []byte)

	// HandleDisconnect releases the session's room membership and
	// presence. Idempotent.
	HandleDisconnect(ctx context.Context, c *hub.Client)
}
