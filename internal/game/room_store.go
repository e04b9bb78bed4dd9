package game

import (
	"sort"
	"strings"
	"sync"
)

// RoomStore owns every room in the process. Rooms are created on first
// reference and live until the process exits.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*Room

	defaultRoomID string
	deckOpts      DeckOptions

	// OnCreate runs once for every new room before it is published to other
	// callers, so broadcast hooks and the action log are set before first use.
	OnCreate func(r *Room)
}

// NewRoomStore creates a store. Requests that omit a room id fall back to defaultRoomID.
func NewRoomStore(defaultRoomID string, opts DeckOptions) *RoomStore {
	return &RoomStore{
		rooms:         make(map[string]*Room),
		defaultRoomID: defaultRoomID,
		deckOpts:      opts,
	}
}

// DefaultRoomID returns the room used when a request omits one.
func (s *RoomStore) DefaultRoomID() string {
	return s.defaultRoomID
}

// ResolveID trims id and substitutes the default room for an empty one.
func (s *RoomStore) ResolveID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return s.defaultRoomID
	}
	return id
}

// GetOrCreateRoom returns the room for id, creating it if needed. Concurrent
// callers with the same id always receive the same *Room.
func (s *RoomStore) GetOrCreateRoom(id string) *Room {
	id = s.ResolveID(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[id]; ok {
		return r
	}
	r := NewRoom(id, s.deckOpts)
	if s.OnCreate != nil {
		s.OnCreate(r)
	}
	s.rooms[id] = r
	return r
}

// GetRoom looks up a room without creating it.
func (s *RoomStore) GetRoom(id string) (*Room, bool) {
	id = s.ResolveID(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	r, exists := s.rooms[id]
	return r, exists
}

// Rooms returns every room, ordered by id.
func (s *RoomStore) Rooms() []*Room {
	s.mu.Lock()
	out := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RemoveConnection unseats connectionID from every room that holds it and
// returns the ids of those rooms.
func (s *RoomStore) RemoveConnection(connectionID string) []string {
	var left []string
	for _, r := range s.Rooms() {
		if r.Leave(connectionID) {
			left = append(left, r.ID)
		}
	}
	return left
}
