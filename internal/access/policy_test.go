package access

import (
	"testing"

	"github.com/eventbem/chat-service/internal/domain"
)

func TestEvaluate(t *testing.T) {
	event := &domain.Event{ID: 1, OrganizerID: 10}

	tests := []struct {
		name          string
		user          *domain.User
		hasPaidTicket bool
		wantOrganizer bool
		wantAllowed   bool
	}{
		{
			name:          "organizer without ticket",
			user:          &domain.User{ID: 10, Role: domain.RoleOrganizer},
			hasPaidTicket: false,
			wantOrganizer: true,
			wantAllowed:   true,
		},
		{
			name:          "attendee with paid ticket",
			user:          &domain.User{ID: 20, Role: domain.RoleAttendee},
			hasPaidTicket: true,
			wantOrganizer: false,
			wantAllowed:   true,
		},
		{
			name:          "attendee without ticket",
			user:          &domain.User{ID: 30, Role: domain.RoleAttendee},
			hasPaidTicket: false,
			wantOrganizer: false,
			wantAllowed:   false,
		},
		{
			name:          "organizer of a different event",
			user:          &domain.User{ID: 40, Role: domain.RoleOrganizer},
			hasPaidTicket: false,
			wantOrganizer: false,
			wantAllowed:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.user, event, tt.hasPaidTicket)

			if d.IsOrganizer != tt.wantOrganizer {
				t.Errorf("Evaluate() IsOrganizer = %v, want %v", d.IsOrganizer, tt.wantOrganizer)
			}
			if d.Allowed() != tt.wantAllowed {
				t.Errorf("Allowed() = %v, want %v", d.Allowed(), tt.wantAllowed)
			}
		})
	}
}
