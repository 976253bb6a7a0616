package hub

import "sync"

// room is the ephemeral membership set for one event's chat. Each room
// carries its own lock so traffic in one room never serializes another;
// the lock only covers map mutation and channel pushes, never network
// or storage I/O.
type room struct {
	eventID uint
	mu      sync.RWMutex
	members map[*Client]struct{}
}

func newRoom(eventID uint) *room {
	return &room{
		eventID: eventID,
		members: make(map[*Client]struct{}),
	}
}

// add is idempotent.
func (r *room) add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[c] = struct{}{}
}

// remove reports whether the room is empty afterwards.
func (r *room) remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, c)
	return len(r.members) == 0
}

func (r *room) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// broadcast queues data on every member present at call time. At most
// once per currently registered session, best effort.
func (r *room) broadcast(data []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.members {
		c.enqueue(data)
	}
}
