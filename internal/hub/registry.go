// Package hub holds the in-process room registry: the runtime mapping
// from events to connected sessions. Rooms are created lazily on first
// join and destroyed when the last session leaves; nothing in here is
// durable.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/eventbem/chat-service/pkg/log"
)

// Registry maps event IDs to rooms and user IDs to their live sessions
// for private addressing. The registry lock guards only room lookup and
// creation; membership churn and broadcast fan-out take the per-room
// lock instead.
type Registry struct {
	mu    sync.RWMutex
	rooms map[uint]*room

	usersMu sync.RWMutex
	users   map[uint]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[uint]*room),
		users: make(map[uint]map[*Client]struct{}),
	}
}

// Join registers the client in the event's room and in the per-user
// index. Idempotent.
func (g *Registry) Join(eventID uint, c *Client) {
	g.mu.Lock()
	r, ok := g.rooms[eventID]
	if !ok {
		r = newRoom(eventID)
		g.rooms[eventID] = r
	}
	// Add while still holding the registry lock so a concurrent Leave
	// cannot destroy the room between lookup and add. Lock order is
	// always registry then room.
	r.add(c)
	g.mu.Unlock()

	userID := c.Session.GetUserID()
	g.usersMu.Lock()
	sessions, ok := g.users[userID]
	if !ok {
		sessions = make(map[*Client]struct{})
		g.users[userID] = sessions
	}
	sessions[c] = struct{}{}
	g.usersMu.Unlock()

	l := log.L()
	l.Info().
		Str(log.FieldClientID, c.ID).
		Uint(log.FieldUserID, userID).
		Uint(log.FieldEventID, eventID).
		Msg("client joined room")
}

// Leave removes the client from the event's room, destroying the room if
// it becomes empty. Safe to call for a room or session that was never
// registered.
func (g *Registry) Leave(eventID uint, c *Client) {
	g.mu.Lock()
	r, ok := g.rooms[eventID]
	g.mu.Unlock()

	if ok && r.remove(c) {
		g.mu.Lock()
		// Re-check under the registry lock: a concurrent Join may have
		// repopulated the room between remove and here.
		if r.size() == 0 {
			delete(g.rooms, eventID)
		}
		g.mu.Unlock()
	}

	userID := c.Session.GetUserID()
	g.usersMu.Lock()
	if sessions, ok := g.users[userID]; ok {
		delete(sessions, c)
		if len(sessions) == 0 {
			delete(g.users, userID)
		}
	}
	g.usersMu.Unlock()
}

// Broadcast delivers the payload to every session currently in the
// event's room. A missing room is a no-op.
func (g *Registry) Broadcast(eventID uint, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	g.mu.RLock()
	r, ok := g.rooms[eventID]
	g.mu.RUnlock()
	if !ok {
		return nil
	}

	r.broadcast(data)
	return nil
}

// SendToUser delivers the payload to each of the user's live sessions.
// Returns false when the user has no session registered here; private
// delivery is best effort and never queued.
func (g *Registry) SendToUser(userID uint, payload interface{}) (bool, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return false, err
	}

	g.usersMu.RLock()
	sessions, ok := g.users[userID]
	targets := make([]*Client, 0, len(sessions))
	for c := range sessions {
		targets = append(targets, c)
	}
	g.usersMu.RUnlock()

	if !ok || len(targets) == 0 {
		return false, nil
	}

	for _, c := range targets {
		c.enqueue(data)
	}
	return true, nil
}

// UserOnline reports whether the user has at least one live session on
// this instance.
func (g *Registry) UserOnline(userID uint) bool {
	g.usersMu.RLock()
	defer g.usersMu.RUnlock()
	return len(g.users[userID]) > 0
}

// RoomSize returns the number of sessions in the event's room.
func (g *Registry) RoomSize(eventID uint) int {
	g.mu.RLock()
	r, ok := g.rooms[eventID]
	g.mu.RUnlock()
	if !ok {
		return 0
	}
	return r.size()
}

// RoomCount returns the number of live rooms, for health reporting.
func (g *Registry) RoomCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}
