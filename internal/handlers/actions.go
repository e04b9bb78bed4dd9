// internal/handlers/actions.go
package handlers

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/uno/internal/game"
)

// DefaultPlayerName is used when a join carries no usable name.
const DefaultPlayerName = "Anonymous"

// ErrUnknownAction is returned for a message type the server doesn't handle.
var ErrUnknownAction = errors.New("unknown action type")

// GameMessage is an inbound client frame. Only the fields relevant to Type are read.
type GameMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`

	Name string `json:"name,omitempty"`

	// HandSize is loosely typed; clients send numbers, numeric strings, or garbage.
	HandSize interface{} `json:"handSize,omitempty"`

	CardID      string `json:"cardId,omitempty"`
	ChosenColor string `json:"chosenColor,omitempty"`
	Color       string `json:"color,omitempty"`

	// Count is accepted on draw and ignored; a draw is always one card.
	Count interface{} `json:"count,omitempty"`
}

// ActionHandler validates inbound actions and applies them to rooms.
type ActionHandler struct {
	Store           *game.RoomStore
	Hub             *Hub
	Logger          *logrus.Logger
	DefaultHandSize int
}

// NewActionHandler wires a room store to a hub: every room the store creates
// broadcasts through the hub and, when actionLog is non-nil, records its actions there.
func NewActionHandler(logger *logrus.Logger, store *game.RoomStore, hub *Hub, defaultHandSize int, actionLog game.ActionLogger) *ActionHandler {
	if defaultHandSize <= 0 {
		defaultHandSize = game.DefaultHandSize
	}
	store.OnCreate = func(r *game.Room) {
		hub.AttachRoom(r)
		if actionLog != nil {
			r.ActionLog = actionLog
		}
		logger.Infof("Created room %s.", r.ID)
	}
	return &ActionHandler{
		Store:           store,
		Hub:             hub,
		Logger:          logger,
		DefaultHandSize: defaultHandSize,
	}
}

// Handle dispatches one message from connectionID. Rule violations are
// reported to the player as game events and are not errors; only a message
// type the server doesn't know returns one.
func (h *ActionHandler) Handle(connectionID string, msg GameMessage) error {
	h.Logger.Debugf("Received action '%s' from %s (room %q).", msg.Type, connectionID, msg.RoomID)

	switch msg.Type {
	case "join":
		name := strings.TrimSpace(msg.Name)
		if name == "" {
			name = DefaultPlayerName
		}
		room := h.Store.GetOrCreateRoom(msg.RoomID)
		// subscribe first so the joiner receives the roster broadcast
		h.Hub.Subscribe(room.ID, connectionID)
		room.Join(connectionID, name)

	case "start":
		room := h.Store.GetOrCreateRoom(msg.RoomID)
		room.Start(connectionID, ParseHandSize(msg.HandSize, h.DefaultHandSize))

	case "play":
		room, ok := h.Store.GetRoom(msg.RoomID)
		if !ok {
			h.rejectMissingRoom(connectionID, msg.RoomID)
			return nil
		}
		room.PlayCard(connectionID, msg.CardID, msg.ChosenColor)

	case "draw":
		room, ok := h.Store.GetRoom(msg.RoomID)
		if !ok {
			h.rejectMissingRoom(connectionID, msg.RoomID)
			return nil
		}
		room.Draw(connectionID)

	case "chooseStartColor":
		room, ok := h.Store.GetRoom(msg.RoomID)
		if !ok {
			h.Logger.Debugf("Start color from %s ignored: room %q does not exist.", connectionID, msg.RoomID)
			return nil
		}
		color := msg.Color
		if color == "" {
			color = msg.ChosenColor
		}
		room.ChooseStartColor(connectionID, color)

	case "leave":
		room, ok := h.Store.GetRoom(msg.RoomID)
		if !ok {
			return nil
		}
		room.Leave(connectionID)
		h.Hub.Unsubscribe(room.ID, connectionID)

	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, msg.Type)
	}
	return nil
}

// Disconnect unseats connectionID from every room and drops its outbound queue.
func (h *ActionHandler) Disconnect(connectionID string) {
	left := h.Store.RemoveConnection(connectionID)
	h.Hub.Unregister(connectionID)
	if len(left) > 0 {
		h.Logger.Infof("Connection %s removed from room(s) %v.", connectionID, left)
	}
}

func (h *ActionHandler) rejectMissingRoom(connectionID, roomID string) {
	h.Logger.Debugf("Action from %s rejected: room %q does not exist.", connectionID, roomID)
	h.Hub.SendTo(connectionID, game.EventBytes(game.GameEvent{
		Type:   game.EventInvalidMove,
		RoomID: h.Store.ResolveID(roomID),
		Reason: game.ReasonNotStarted,
	}))
}

// ParseHandSize coerces a client-supplied hand size. Absent (or blank) means
// def; anything non-numeric or below one becomes 1; fractions are floored.
func ParseHandSize(v interface{}, def int) int {
	var f float64
	switch x := v.(type) {
	case nil:
		return def
	case float64:
		f = x
	case int:
		f = float64(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return def
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 1
		}
		f = parsed
	default:
		return 1
	}

	if math.IsNaN(f) || f < 1 {
		return 1
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(f))
}
