package domain

import "time"

// User roles.
const (
	RoleAdmin     = "admin"
	RoleOrganizer = "organizer"
	RoleAttendee  = "attendee"
)

// Notification types.
const (
	NotificationReminder = "reminder"
	NotificationUpdate   = "update"
)

// User is a platform account. Owned by the user CRUD API; the chat
// subsystem only reads it.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"size:255;uniqueIndex"`
	Email     string `gorm:"size:255;uniqueIndex"`
	Password  string `gorm:"size:255"`
	Role      string `gorm:"size:20;index;default:attendee"`
	Phone     string `gorm:"size:15"`
	IsActive  bool   `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Event is a bookable event. The chat subsystem reads organizer and end
// time to gate room access.
type Event struct {
	ID          uint   `gorm:"primaryKey"`
	OrganizerID uint   `gorm:"index"`
	Title       string `gorm:"size:255;index"`
	Description string
	Category    string `gorm:"size:50"`
	StartTime   time.Time
	EndTime     time.Time
	Location    string `gorm:"size:500"`
	IsActive    bool   `gorm:"default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Ticket links a user to an event. Only paid tickets grant chat access,
// and payment state can flip mid-session (refunds).
type Ticket struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       uint   `gorm:"index:idx_tickets_user_event"`
	EventID      uint   `gorm:"index:idx_tickets_user_event"`
	QRCode       string `gorm:"size:255;uniqueIndex"`
	IsPaid       bool   `gorm:"default:false"`
	PurchaseDate *time.Time
	IsCheckedIn  bool `gorm:"default:false"`
	CheckInDate  *time.Time
	CreatedAt    time.Time
}

// ChatMessage is one persisted chat message. Immutable once created;
// a nil ReceiverID means the message was addressed to the whole room.
type ChatMessage struct {
	ID              uint  `gorm:"primaryKey"`
	EventID         uint  `gorm:"index:idx_chat_event_created"`
	SenderID        uint  `gorm:"index"`
	ReceiverID      *uint `gorm:"index"`
	Message         string
	IsFromOrganizer bool      `gorm:"default:false"`
	CreatedAt       time.Time `gorm:"index:idx_chat_event_created"`
}

// Notification is an out-of-band message surfaced to a user outside an
// active chat session, e.g. a private message that arrived while they
// were offline.
type Notification struct {
	ID               uint   `gorm:"primaryKey"`
	UserID           uint   `gorm:"index:idx_notifications_user_read"`
	EventID          *uint  `gorm:"index"`
	NotificationType string `gorm:"size:20;default:update"`
	Title            string `gorm:"size:255"`
	Message          string
	IsRead           bool `gorm:"default:false;index:idx_notifications_user_read"`
	CreatedAt        time.Time
}

// IsOrganizerOf reports whether the user organizes the given event.
func (u *User) IsOrganizerOf(e *Event) bool {
	return u.ID == e.OrganizerID
}

// HasEnded reports whether the event is past its end time.
func (e *Event) HasEnded(now time.Time) bool {
	return e.EndTime.Before(now)
}
