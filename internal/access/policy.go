// Package access decides whether a user may participate in an event's
// chat room. Decisions are computed fresh on connect and before every
// inbound message: ticket payment state can flip (refunds) and the event
// can cross its end time while a session is open, so nothing here is
// cached.
package access

import "github.com/eventbem/chat-service/internal/domain"

// Decision is the transient outcome of one access evaluation.
type Decision struct {
	IsOrganizer   bool
	HasPaidTicket bool
}

// Allowed reports whether the user may participate in the room.
func (d Decision) Allowed() bool {
	return d.IsOrganizer || d.HasPaidTicket
}

// Evaluate computes the access decision for a user against an event.
// hasPaidTicket is the current paid-ticket lookup result, supplied by
// the caller so the predicate itself stays free of I/O.
func Evaluate(user *domain.User, event *domain.Event, hasPaidTicket bool) Decision {
	return Decision{
		IsOrganizer:   user.IsOrganizerOf(event),
		HasPaidTicket: hasPaidTicket,
	}
}
