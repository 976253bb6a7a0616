package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/eventbem/chat-service/internal/access"
	"github.com/eventbem/chat-service/internal/audit"
	"github.com/eventbem/chat-service/internal/auth"
	"github.com/eventbem/chat-service/internal/domain"
	"github.com/eventbem/chat-service/internal/hub"
	"github.com/eventbem/chat-service/internal/presence"
	"github.com/eventbem/chat-service/internal/store"
	"github.com/eventbem/chat-service/pkg/log"
)

type chatService struct {
	registry     *hub.Registry
	store        *store.Store
	validator    auth.Validator
	presence     presence.Tracker
	historyLimit int

	// Collapses concurrent history reads for the same event into one
	// query when many clients join at once.
	history singleflight.Group
}

func NewChatService(
	registry *hub.Registry,
	st *store.Store,
	validator auth.Validator,
	tracker presence.Tracker,
	historyLimit int,
) ChatService {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &chatService{
		registry:     registry,
		store:        st,
		validator:    validator,
		presence:     tracker,
		historyLimit: historyLimit,
	}
}

// HandleConnect authenticates and authorizes the connection, joins it to
// the event's room, and replays recent history. Every rejection is
// notify-then-close: the connection was already accepted, so the client
// reads a structured error payload before the close frame.
func (s *chatService) HandleConnect(ctx context.Context, c *hub.Client, token string) error {
	eventID := c.Session.EventID

	if token == "" {
		return s.terminate(ctx, c, domain.ErrUnauthenticated())
	}

	claims, err := s.validator.Validate(token)
	if err != nil {
		return s.terminate(ctx, c, domain.ErrUnauthenticated())
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.terminate(ctx, c, domain.ErrUnauthenticated())
		}
		return s.internalError(ctx, c, err)
	}
	if !user.IsActive {
		return s.terminate(ctx, c, domain.ErrUnauthenticated())
	}

	c.Session.Authenticate(user.ID, user.Username, user.Role, token)

	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.terminate(ctx, c, domain.ErrEventNotFound())
		}
		return s.internalError(ctx, c, err)
	}

	if event.HasEnded(time.Now()) {
		return s.terminate(ctx, c, domain.ErrEventEnded())
	}

	decision, err := s.evaluateAccess(ctx, user, event)
	if err != nil {
		return s.internalError(ctx, c, err)
	}
	if !decision.Allowed() {
		audit.Log(ctx, audit.ActionRejected, user.ID, eventID, "join rejected: no access")
		return s.terminate(ctx, c, domain.ErrForbidden())
	}

	c.Session.Authorize()

	records, err := s.recentHistory(ctx, eventID)
	if err != nil {
		return s.internalError(ctx, c, err)
	}

	s.registry.Join(eventID, c)
	c.Session.Join()

	if err := s.presence.Track(ctx, user.ID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Uint(log.FieldUserID, user.ID).Msg("presence track failed")
	}

	if err := c.SendPayload(domain.HistoryPayload{History: records}); err != nil {
		return s.internalError(ctx, c, err)
	}

	audit.Log(ctx, audit.ActionJoin, user.ID, eventID, "client joined chat room")
	return nil
}

// HandleInbound routes one message from a joined session: re-authenticate,
// re-authorize, validate, persist, deliver, acknowledge.
func (s *chatService) HandleInbound(ctx context.Context, c *hub.Client, raw []byte) {
	if !c.Session.IsJoined() {
		return
	}

	eventID := c.Session.EventID

	var in domain.Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		s.reject(c, domain.ErrBadPayload())
		return
	}

	// The credential must still be valid for every message: the token
	// presented at connect time can expire or be superseded mid-session.
	token := c.Session.GetToken()
	if in.Token != "" {
		token = in.Token
	}
	claims, err := s.validator.Validate(token)
	if err != nil || claims.UserID != c.Session.GetUserID() {
		s.terminate(ctx, c, domain.ErrUnauthenticated())
		return
	}
	if in.Token != "" {
		c.Session.SetToken(in.Token)
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.terminate(ctx, c, domain.ErrUnauthenticated())
			return
		}
		s.internalError(ctx, c, err)
		return
	}
	if !user.IsActive {
		s.terminate(ctx, c, domain.ErrUnauthenticated())
		return
	}

	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.terminate(ctx, c, domain.ErrEventNotFound())
			return
		}
		s.internalError(ctx, c, err)
		return
	}

	if event.HasEnded(time.Now()) {
		s.terminate(ctx, c, domain.ErrEventEnded())
		return
	}

	decision, err := s.evaluateAccess(ctx, user, event)
	if err != nil {
		s.internalError(ctx, c, err)
		return
	}
	if !decision.Allowed() {
		audit.Log(ctx, audit.ActionAccessRevoke, user.ID, eventID, "access revoked mid-session")
		s.terminate(ctx, c, domain.ErrForbidden())
		return
	}

	body := strings.TrimSpace(in.Message)
	if body == "" {
		s.reject(c, domain.ErrEmptyMessage())
		return
	}

	// Receiver checks happen before persistence: a message addressed to
	// an unknown or unauthorized receiver leaves no row behind.
	if in.ReceiverID != nil {
		receiver, err := s.store.GetUser(ctx, *in.ReceiverID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.reject(c, domain.ErrReceiverNotFound())
				return
			}
			s.internalError(ctx, c, err)
			return
		}

		receiverDecision, err := s.evaluateAccess(ctx, receiver, event)
		if err != nil {
			s.internalError(ctx, c, err)
			return
		}
		if !receiverDecision.Allowed() {
			s.reject(c, domain.ErrReceiverForbidden())
			return
		}
	}

	msg := &domain.ChatMessage{
		EventID:         eventID,
		SenderID:        user.ID,
		ReceiverID:      in.ReceiverID,
		Message:         body,
		IsFromOrganizer: decision.IsOrganizer && user.Role == domain.RoleOrganizer,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		s.internalError(ctx, c, err)
		return
	}

	envelope := domain.MessagePayload{Message: domain.NewMessageRecord(msg)}

	deliveryFailed := false
	if in.ReceiverID != nil {
		delivered, err := s.registry.SendToUser(*in.ReceiverID, envelope)
		if err != nil {
			deliveryFailed = true
		} else if !delivered {
			s.notifyOffline(ctx, *in.ReceiverID, event, user)
		}
		audit.LogWithDetail(ctx, audit.ActionPrivateSend, user.ID, eventID,
			strconv.FormatUint(uint64(*in.ReceiverID), 10), "private message routed")
	}

	// Broadcast always happens; private delivery is additive, not
	// exclusive.
	if err := s.registry.Broadcast(eventID, envelope); err != nil {
		deliveryFailed = true
	}

	if deliveryFailed {
		s.reject(c, domain.ErrPartialDelivery())
	} else {
		c.SendPayload(domain.StatusPayload{Status: "message sent"})
	}

	audit.Log(ctx, audit.ActionSendMessage, user.ID, eventID, "chat message sent")
}

// HandleDisconnect releases room membership and presence exactly once.
func (s *chatService) HandleDisconnect(ctx context.Context, c *hub.Client) {
	s.cleanup(ctx, c)
}

// evaluateAccess runs the access policy with a fresh ticket lookup.
func (s *chatService) evaluateAccess(ctx context.Context, user *domain.User, event *domain.Event) (access.Decision, error) {
	hasTicket, err := s.store.HasPaidTicket(ctx, event.ID, user.ID)
	if err != nil {
		return access.Decision{}, err
	}
	return access.Evaluate(user, event, hasTicket), nil
}

// recentHistory loads the last historyLimit messages for the event,
// ascending by creation time, deduplicating concurrent loads.
func (s *chatService) recentHistory(ctx context.Context, eventID uint) ([]domain.MessageRecord, error) {
	key := strconv.FormatUint(uint64(eventID), 10)
	v, err, _ := s.history.Do(key, func() (interface{}, error) {
		messages, err := s.store.RecentMessages(ctx, eventID, s.historyLimit)
		if err != nil {
			return nil, err
		}
		records := make([]domain.MessageRecord, 0, len(messages))
		for i := range messages {
			records = append(records, domain.NewMessageRecord(&messages[i]))
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.MessageRecord), nil
}

// notifyOffline persists a notification for a private message whose
// receiver has no live session anywhere in the cluster. Best effort;
// the message itself is already persisted and broadcast.
func (s *chatService) notifyOffline(ctx context.Context, receiverID uint, event *domain.Event, sender *domain.User) {
	online, err := s.presence.IsOnline(ctx, receiverID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Uint(log.FieldReceiverID, receiverID).Msg("presence lookup failed")
	}
	if online {
		// Connected to another instance; its registry delivers.
		return
	}

	eventID := event.ID
	n := &domain.Notification{
		UserID:           receiverID,
		EventID:          &eventID,
		NotificationType: domain.NotificationUpdate,
		Title:            "New message in " + event.Title,
		Message:          sender.Username + " sent you a message in the event chat.",
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Uint(log.FieldReceiverID, receiverID).Msg("offline notification failed")
	}
}

// reject sends a recoverable error payload; the connection stays open.
func (s *chatService) reject(c *hub.Client, cherr *domain.ChatError) {
	c.SendPayload(domain.ErrorPayload{Error: cherr.Message})
}

// terminate sends a best-effort error payload, releases the session, and
// requests a close frame with the error's code.
func (s *chatService) terminate(ctx context.Context, c *hub.Client, cherr *domain.ChatError) error {
	c.SendPayload(domain.ErrorPayload{Error: cherr.Message})
	s.cleanup(ctx, c)
	c.CloseWithCode(cherr.CloseCode, cherr.Message)
	return cherr
}

// internalError logs the cause and closes the connection with a generic
// payload that leaks no internal detail.
func (s *chatService) internalError(ctx context.Context, c *hub.Client, err error) error {
	l := log.Ctx(ctx)
	l.Error().Err(err).Str(log.FieldClientID, c.ID).Msg("internal chat error")
	return s.terminate(ctx, c, domain.ErrInternal())
}

// cleanup deregisters the session exactly once, even under concurrent
// disconnect and in-flight-message races.
func (s *chatService) cleanup(ctx context.Context, c *hub.Client) {
	prev, first := c.Session.Terminate()
	if !first {
		return
	}
	if prev != domain.StateJoined {
		return
	}

	eventID := c.Session.EventID
	userID := c.Session.GetUserID()

	s.registry.Leave(eventID, c)
	if err := s.presence.Untrack(ctx, userID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Uint(log.FieldUserID, userID).Msg("presence untrack failed")
	}
	audit.Log(ctx, audit.ActionDisconnect, userID, eventID, "client left chat room")
}
