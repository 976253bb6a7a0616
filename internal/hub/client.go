package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eventbem/chat-service/internal/config"
	"github.com/eventbem/chat-service/internal/domain"
	"github.com/eventbem/chat-service/pkg/log"
)

// Client is one connected chat participant. All transport writes go
// through WritePump (gorilla permits a single writer goroutine), so a
// fatal termination is recorded on the client and executed by the pump.
type Client struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Session *domain.Session
	config  config.WebSocketConfig

	closeOnce   sync.Once
	done        chan struct{}
	closeCode   int
	closeReason string
}

func NewClient(id string, conn *websocket.Conn, eventID uint, cfg config.WebSocketConfig) *Client {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{
		ID:      id,
		Conn:    conn,
		Send:    make(chan []byte, buffer),
		Session: domain.NewSession(id, eventID),
		config:  cfg,
		done:    make(chan struct{}),
	}
}

// ReadPump reads inbound frames and hands them to handler one at a time,
// preserving per-connection message order. onDisconnect runs exactly
// once when the connection dies for any reason.
func (c *Client) ReadPump(handler func(*Client, []byte), onDisconnect func(*Client)) {
	defer func() {
		onDisconnect(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				l := log.L()
				l.Debug().Str(log.FieldClientID, c.ID).Err(err).Msg("websocket read failed")
			}
			return
		}

		c.Session.UpdateActivity()
		handler(c, message)

		select {
		case <-c.done:
			// A fatal error terminated the session; stop reading.
			return
		default:
		}
	}
}

// WritePump is the single transport writer: it drains Send, emits pings,
// and writes the close frame when termination is requested.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-c.done:
			// Flush anything queued before the termination was requested,
			// then deliver the close frame so the client sees the code.
			c.flushPending()
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			c.Conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(c.closeCode, c.closeReason),
			)
			return

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) flushPending() {
	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				return
			}
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		default:
			return
		}
	}
}

// SendPayload marshals a payload and queues it for delivery. Delivery is
// best effort: a full buffer drops the frame rather than blocking the
// sender's goroutine.
func (c *Client) SendPayload(payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) error {
	select {
	case <-c.done:
		return nil
	default:
	}

	select {
	case c.Send <- data:
	default:
		l := log.L()
		l.Warn().Str(log.FieldClientID, c.ID).Msg("send buffer full, dropping frame")
	}
	return nil
}

// CloseWithCode requests termination with the given close code. Safe to
// call multiple times; only the first call wins.
func (c *Client) CloseWithCode(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
}

// CloseCode returns the recorded close code, or 0 if termination has not
// been requested.
func (c *Client) CloseCode() int {
	select {
	case <-c.done:
		return c.closeCode
	default:
		return 0
	}
}

// Done is closed once termination has been requested.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
