// Package store is the relational source of truth for users, events,
// tickets, messages, and notifications. Reads are row lookups and writes
// are single-row inserts; no transaction ever spans a network round trip
// to a client.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/eventbem/chat-service/internal/domain"
	"github.com/eventbem/chat-service/pkg/database"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrOrganizerFlag    = errors.New("only organizers can send messages as organizer")
	ErrEmptyMessageBody = errors.New("message body must not be empty")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the chat-relevant tables.
func (s *Store) Migrate() error {
	return database.AutoMigrate(s.db,
		&domain.User{},
		&domain.Event{},
		&domain.Ticket{},
		&domain.ChatMessage{},
		&domain.Notification{},
	)
}

// GetEvent loads one event by ID. Returns ErrNotFound for a missing row
// so callers decide explicitly whether that is fatal.
func (s *Store) GetEvent(ctx context.Context, id uint) (*domain.Event, error) {
	var event domain.Event
	if err := s.db.WithContext(ctx).First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load event %d: %w", id, err)
	}
	return &event, nil
}

// GetUser loads one user by ID.
func (s *Store) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	return &user, nil
}

// HasPaidTicket reports whether the user currently holds a paid ticket
// for the event. Called fresh on every access evaluation: payment state
// can change between messages.
func (s *Store) HasPaidTicket(ctx context.Context, eventID, userID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("event_id = ? AND user_id = ? AND is_paid = ?", eventID, userID, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check ticket for user %d event %d: %w", userID, eventID, err)
	}
	return count > 0, nil
}

// CreateMessage persists one chat message. The organizer flag may only
// be set by a sender whose role is organizer at creation time.
func (s *Store) CreateMessage(ctx context.Context, msg *domain.ChatMessage) error {
	if msg.Message == "" {
		return ErrEmptyMessageBody
	}
	if msg.IsFromOrganizer {
		sender, err := s.GetUser(ctx, msg.SenderID)
		if err != nil {
			return err
		}
		if sender.Role != domain.RoleOrganizer {
			return ErrOrganizerFlag
		}
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}
	return nil
}

// RecentMessages returns the most recent messages for an event, capped
// at limit, ordered ascending by creation time. The underlying query
// fetches newest-first; the result is re-sorted so the delivered history
// is deterministic.
func (s *Store) RecentMessages(ctx context.Context, eventID uint, limit int) ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages for event %d: %w", eventID, err)
	}

	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

// CreateNotification persists one notification row.
func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}
