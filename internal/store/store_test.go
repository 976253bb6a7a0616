package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/eventbem/chat-service/internal/domain"
)

// setupTestStore creates an in-memory SQLite database for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	s := New(db)
	if err := s.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return s
}

func seedUser(t *testing.T, s *Store, id uint, role string) *domain.User {
	t.Helper()
	name := fmt.Sprintf("%s-%d", role, id)
	user := &domain.User{ID: id, Username: name, Email: name + "@example.com", Role: role, IsActive: true}
	if err := s.db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func seedEvent(t *testing.T, s *Store, id, organizerID uint, endTime time.Time) *domain.Event {
	t.Helper()
	event := &domain.Event{
		ID:          id,
		OrganizerID: organizerID,
		Title:       "Test Event",
		Category:    "music",
		StartTime:   endTime.Add(-2 * time.Hour),
		EndTime:     endTime,
		IsActive:    true,
	}
	if err := s.db.Create(event).Error; err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
	return event
}

func TestStore_GetEventNotFound(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.GetEvent(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetEvent() error = %v, want ErrNotFound", err)
	}
}

func TestStore_HasPaidTicket(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	organizer := seedUser(t, s, 1, domain.RoleOrganizer)
	paid := seedUser(t, s, 2, domain.RoleAttendee)
	unpaid := seedUser(t, s, 3, domain.RoleAttendee)
	event := seedEvent(t, s, 1, organizer.ID, time.Now().Add(time.Hour))
	other := seedEvent(t, s, 2, organizer.ID, time.Now().Add(time.Hour))

	now := time.Now()
	if err := s.db.Create(&domain.Ticket{UserID: paid.ID, EventID: event.ID, QRCode: "qr-paid", IsPaid: true, PurchaseDate: &now}).Error; err != nil {
		t.Fatalf("failed to seed ticket: %v", err)
	}
	if err := s.db.Create(&domain.Ticket{UserID: unpaid.ID, EventID: event.ID, QRCode: "qr-unpaid", IsPaid: false}).Error; err != nil {
		t.Fatalf("failed to seed ticket: %v", err)
	}

	tests := []struct {
		name    string
		eventID uint
		userID  uint
		want    bool
	}{
		{"paid ticket", event.ID, paid.ID, true},
		{"unpaid ticket", event.ID, unpaid.ID, false},
		{"no ticket", event.ID, organizer.ID, false},
		{"paid ticket for another event", other.ID, paid.ID, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.HasPaidTicket(ctx, tt.eventID, tt.userID)
			if err != nil {
				t.Fatalf("HasPaidTicket() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("HasPaidTicket() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStore_CreateMessageOrganizerFlag(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	organizer := seedUser(t, s, 1, domain.RoleOrganizer)
	attendee := seedUser(t, s, 2, domain.RoleAttendee)
	event := seedEvent(t, s, 1, organizer.ID, time.Now().Add(time.Hour))

	msg := &domain.ChatMessage{EventID: event.ID, SenderID: organizer.ID, Message: "hello", IsFromOrganizer: true}
	if err := s.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}
	if msg.ID == 0 {
		t.Error("CreateMessage() did not assign an ID")
	}

	bad := &domain.ChatMessage{EventID: event.ID, SenderID: attendee.ID, Message: "hi", IsFromOrganizer: true}
	if err := s.CreateMessage(ctx, bad); !errors.Is(err, ErrOrganizerFlag) {
		t.Errorf("CreateMessage() error = %v, want ErrOrganizerFlag", err)
	}

	empty := &domain.ChatMessage{EventID: event.ID, SenderID: attendee.ID, Message: ""}
	if err := s.CreateMessage(ctx, empty); !errors.Is(err, ErrEmptyMessageBody) {
		t.Errorf("CreateMessage() error = %v, want ErrEmptyMessageBody", err)
	}
}

func TestStore_RecentMessages(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	organizer := seedUser(t, s, 1, domain.RoleOrganizer)
	event := seedEvent(t, s, 1, organizer.ID, time.Now().Add(time.Hour))
	other := seedEvent(t, s, 2, organizer.ID, time.Now().Add(time.Hour))

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 60; i++ {
		msg := &domain.ChatMessage{
			EventID:   event.ID,
			SenderID:  organizer.ID,
			Message:   "msg",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.db.Create(msg).Error; err != nil {
			t.Fatalf("failed to seed message: %v", err)
		}
	}
	if err := s.db.Create(&domain.ChatMessage{EventID: other.ID, SenderID: organizer.ID, Message: "other event", CreatedAt: base.Add(2 * time.Hour)}).Error; err != nil {
		t.Fatalf("failed to seed message: %v", err)
	}

	messages, err := s.RecentMessages(ctx, event.ID, 50)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}

	if len(messages) != 50 {
		t.Fatalf("RecentMessages() returned %d messages, want 50", len(messages))
	}
	for _, m := range messages {
		if m.EventID != event.ID {
			t.Fatalf("RecentMessages() returned message for event %d", m.EventID)
		}
	}
	// Oldest 10 are cut; the window is the newest 50 in ascending order.
	for i := 1; i < len(messages); i++ {
		if messages[i].CreatedAt.Before(messages[i-1].CreatedAt) {
			t.Fatalf("RecentMessages() not ascending at index %d", i)
		}
	}
	if got := messages[0].CreatedAt; !got.Equal(base.Add(10 * time.Second)) {
		t.Errorf("RecentMessages() first message at %v, want %v", got, base.Add(10*time.Second))
	}
}
