package realtime

import (
	"sync"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/protocol"
	"github.com/sirupsen/logrus"
)

// Hub tracks broadcast rooms. A room is keyed by user ID and normally holds
// the single connection that claimed a cart for that user.
type Hub struct {
	log *logrus.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		log:   log,
		rooms: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
}

func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[room], c)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
}

// Broadcast fans a message out to every connection in the room. Slow
// consumers are skipped rather than blocking the event path.
func (h *Hub) Broadcast(room string, msg protocol.ServerMessage) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.TrySend(msg) {
			h.log.WithFields(logrus.Fields{
				"room":  room,
				"event": msg.Event,
			}).Warn("dropped broadcast to slow client")
		}
	}
}

// RoomSize reports the connections in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
