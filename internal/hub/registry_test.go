package hub

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/eventbem/chat-service/internal/config"
	"github.com/eventbem/chat-service/internal/domain"
)

func testClient(t *testing.T, userID, eventID uint) *Client {
	t.Helper()
	c := NewClient(fmt.Sprintf("client-%d-%d", userID, eventID), nil, eventID, config.WebSocketConfig{SendBuffer: 16})
	c.Session.Authenticate(userID, fmt.Sprintf("user-%d", userID), domain.RoleAttendee, "token")
	return c
}

// receivedPayloads drains the client's send buffer and decodes each frame.
func receivedPayloads(t *testing.T, c *Client) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for {
		select {
		case data := <-c.Send:
			var payload map[string]interface{}
			if err := json.Unmarshal(data, &payload); err != nil {
				t.Fatalf("failed to decode frame: %v", err)
			}
			out = append(out, payload)
		default:
			return out
		}
	}
}

func TestRegistry_JoinIdempotent(t *testing.T) {
	g := NewRegistry()
	c := testClient(t, 1, 100)

	g.Join(100, c)
	g.Join(100, c)

	if size := g.RoomSize(100); size != 1 {
		t.Errorf("RoomSize() = %d after double join, want 1", size)
	}
}

func TestRegistry_LeaveIdempotent(t *testing.T) {
	g := NewRegistry()
	a := testClient(t, 1, 100)
	b := testClient(t, 2, 100)

	g.Join(100, a)
	g.Join(100, b)

	g.Leave(100, a)
	g.Leave(100, a) // second leave is a no-op

	if size := g.RoomSize(100); size != 1 {
		t.Errorf("RoomSize() = %d, want 1", size)
	}
	if g.UserOnline(1) {
		t.Error("UserOnline(1) = true after leave")
	}
	if !g.UserOnline(2) {
		t.Error("UserOnline(2) = false, want true")
	}

	// Leaving a room that never existed must not panic.
	g.Leave(999, a)
}

func TestRegistry_RoomDestroyedWhenEmpty(t *testing.T) {
	g := NewRegistry()
	c := testClient(t, 1, 100)

	g.Join(100, c)
	if count := g.RoomCount(); count != 1 {
		t.Fatalf("RoomCount() = %d, want 1", count)
	}

	g.Leave(100, c)
	if count := g.RoomCount(); count != 0 {
		t.Errorf("RoomCount() = %d after last leave, want 0", count)
	}
}

func TestRegistry_BroadcastRoomIsolation(t *testing.T) {
	g := NewRegistry()
	a := testClient(t, 1, 100)
	b := testClient(t, 2, 100)
	other := testClient(t, 3, 200)

	g.Join(100, a)
	g.Join(100, b)
	g.Join(200, other)

	if err := g.Broadcast(100, domain.StatusPayload{Status: "hello"}); err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}

	for _, c := range []*Client{a, b} {
		got := receivedPayloads(t, c)
		if len(got) != 1 {
			t.Fatalf("client %s received %d frames, want 1", c.ID, len(got))
		}
		if got[0]["status"] != "hello" {
			t.Errorf("client %s received %v", c.ID, got[0])
		}
	}

	if got := receivedPayloads(t, other); len(got) != 0 {
		t.Errorf("client in another room received %d frames, want 0", len(got))
	}
}

func TestRegistry_BroadcastUnknownRoom(t *testing.T) {
	g := NewRegistry()
	if err := g.Broadcast(12345, domain.StatusPayload{Status: "x"}); err != nil {
		t.Errorf("Broadcast() to unknown room error = %v", err)
	}
}

func TestRegistry_SendToUser(t *testing.T) {
	g := NewRegistry()
	a := testClient(t, 1, 100)
	b := testClient(t, 2, 100)

	g.Join(100, a)
	g.Join(100, b)

	delivered, err := g.SendToUser(1, domain.StatusPayload{Status: "private"})
	if err != nil {
		t.Fatalf("SendToUser() error = %v", err)
	}
	if !delivered {
		t.Fatal("SendToUser() delivered = false, want true")
	}

	if got := receivedPayloads(t, a); len(got) != 1 {
		t.Errorf("target received %d frames, want 1", len(got))
	}
	if got := receivedPayloads(t, b); len(got) != 0 {
		t.Errorf("bystander received %d frames, want 0", len(got))
	}
}

func TestRegistry_SendToUserOffline(t *testing.T) {
	g := NewRegistry()

	delivered, err := g.SendToUser(42, domain.StatusPayload{Status: "private"})
	if err != nil {
		t.Fatalf("SendToUser() error = %v", err)
	}
	if delivered {
		t.Error("SendToUser() delivered = true for offline user, want false")
	}
}
