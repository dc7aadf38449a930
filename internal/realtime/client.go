package realtime

import (
	"sync"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/protocol"
	"github.com/google/uuid"
)

const defaultSendQueue = 64

// Client is one connected realtime session. Send is never closed by the
// server so concurrent broadcasters cannot panic; the done channel signals
// the write pump to stop instead.
type Client struct {
	ID     string
	UserID string
	Send   chan protocol.ServerMessage

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(userID string) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Send:   make(chan protocol.ServerMessage, defaultSendQueue),
		done:   make(chan struct{}),
	}
}

// Done is closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close signals the client goroutines to stop. Idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// TrySend queues a message without blocking. Returns false when the send
// queue is full or the client is closing; the message is dropped.
func (c *Client) TrySend(msg protocol.ServerMessage) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}
