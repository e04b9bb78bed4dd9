// internal/handlers/hub.go
package handlers

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/uno/internal/game"
)

// DefaultSendQueueSize is the per-connection outbound buffer used when none is configured.
const DefaultSendQueueSize = 256

// Client is one registered connection's outbound side. Frames are delivered
// on Send in the order they were queued; Done closes when the hub drops the
// connection (unregistered or too slow to keep up).
type Client struct {
	ID   string
	Send chan []byte
	Done chan struct{}

	closeOnce sync.Once
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.Done) })
}

// Hub routes outbound frames to connections, either directly or through a
// room group. It never calls back into a Room, so rooms may use it while
// holding their own lock.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*Client
	groups  map[string]map[string]struct{} // roomID -> set of connection ids

	queueSize int
	logger    *logrus.Logger
}

// NewHub creates a hub with the given per-connection queue size.
func NewHub(logger *logrus.Logger, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultSendQueueSize
	}
	return &Hub{
		clients:   make(map[string]*Client),
		groups:    make(map[string]map[string]struct{}),
		queueSize: queueSize,
		logger:    logger,
	}
}

// Register adds a connection and returns its outbound side.
func (h *Hub) Register(connectionID string) *Client {
	c := &Client{
		ID:   connectionID,
		Send: make(chan []byte, h.queueSize),
		Done: make(chan struct{}),
	}
	h.mu.Lock()
	if old, ok := h.clients[connectionID]; ok {
		old.close()
	}
	h.clients[connectionID] = c
	h.mu.Unlock()
	return c
}

// Unregister drops a connection and removes it from every room group.
func (h *Hub) Unregister(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(connectionID)
}

// Subscribe adds a connection to a room group.
func (h *Hub) Subscribe(roomID, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connectionID]; !ok {
		return
	}
	members, ok := h.groups[roomID]
	if !ok {
		members = make(map[string]struct{})
		h.groups[roomID] = members
	}
	members[connectionID] = struct{}{}
}

// Unsubscribe removes a connection from one room group.
func (h *Hub) Unsubscribe(roomID, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeLocked(roomID, connectionID)
}

// Members returns the number of connections in a room group.
func (h *Hub) Members(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[roomID])
}

// SendTo queues a frame for one connection.
func (h *Hub) SendTo(connectionID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[connectionID]; ok {
		h.enqueueLocked(c, data)
	}
}

// Broadcast queues a frame for every connection in a room group.
func (h *Hub) Broadcast(roomID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.groups[roomID] {
		if c, ok := h.clients[id]; ok {
			h.enqueueLocked(c, data)
		}
	}
}

// AttachRoom points a room's broadcast hooks at this hub.
func (h *Hub) AttachRoom(r *game.Room) {
	roomID := r.ID
	r.BroadcastFn = func(ev game.GameEvent) {
		h.Broadcast(roomID, game.EventBytes(ev))
	}
	r.BroadcastToPlayerFn = func(connectionID string, ev game.GameEvent) {
		h.SendTo(connectionID, game.EventBytes(ev))
	}
}

// enqueueLocked never blocks: a connection whose queue is full is dropped.
// Assumes h.mu is held.
func (h *Hub) enqueueLocked(c *Client, data []byte) {
	select {
	case c.Send <- data:
	default:
		h.logger.Warnf("Outbound queue full for connection %s, dropping it.", c.ID)
		h.dropLocked(c.ID)
	}
}

// Assumes h.mu is held.
func (h *Hub) dropLocked(connectionID string) {
	c, ok := h.clients[connectionID]
	if !ok {
		return
	}
	delete(h.clients, connectionID)
	for roomID := range h.groups {
		h.unsubscribeLocked(roomID, connectionID)
	}
	c.close()
}

// Assumes h.mu is held.
func (h *Hub) unsubscribeLocked(roomID, connectionID string) {
	members, ok := h.groups[roomID]
	if !ok {
		return
	}
	delete(members, connectionID)
	if len(members) == 0 {
		delete(h.groups, roomID)
	}
}
