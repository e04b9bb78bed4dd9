// internal/game/events.go
package game

import (
	"encoding/json"

	"github.com/jason-s-yu/uno/internal/models"
)

// GameEventType names an outbound notification. The string values are the
// wire names clients listen for.
type GameEventType string

const (
	EventJoined            GameEventType = "joined"            // private: assigned player id and room id
	EventPlayerList        GameEventType = "playerList"        // room: roster (id+name only)
	EventDeal              GameEventType = "deal"              // private: full current hand
	EventGameStarted       GameEventType = "gameStarted"       // room: current player and roster
	EventCardPlacedOnTable GameEventType = "cardPlacedOnTable" // room: the table card
	EventRequestStartColor GameEventType = "requestStartColor" // private: first player must pick a color
	EventCardPlayed        GameEventType = "cardPlayed"        // room: who played what
	EventPlayerDrew        GameEventType = "playerDrew"        // room: voluntary draw
	EventPlayerDrewCards   GameEventType = "playerDrewCards"   // room: forced draw (Draw Two / Wild Draw Four)
	EventDrawPileCount     GameEventType = "drawPileCount"     // room: remaining draw pile size
	EventTurnChanged       GameEventType = "turnChanged"       // room: new current player
	EventInvalidMove       GameEventType = "invalidMove"       // private: rejection reason
)

// Rejection reasons carried by EventInvalidMove.
const (
	ReasonNotStarted   = "Game has not started"
	ReasonNotSeated    = "You are not in this room"
	ReasonNotYourTurn  = "Not your turn"
	ReasonCardNotFound = "Card not in your hand"
	ReasonNoMatch      = "Card does not match the top card"
	ReasonNoCardsLeft  = "No cards left"
)

// GameEvent is the single envelope for every outbound notification. Only the
// fields relevant to Type are set.
type GameEvent struct {
	Type            GameEventType          `json:"type"`
	RoomID          string                 `json:"roomId,omitempty"`
	PlayerID        string                 `json:"playerId,omitempty"`
	Name            string                 `json:"name,omitempty"`
	CurrentPlayerID string                 `json:"currentPlayerId,omitempty"`
	Card            *models.Card           `json:"card,omitempty"`
	Hand            []*models.Card         `json:"hand,omitempty"`
	Players         []models.PlayerSummary `json:"players,omitempty"`
	Count           *int                   `json:"count,omitempty"` // pointer so a zero count is still sent
	Reason          string                 `json:"reason,omitempty"`
}

// MarshalJSON always writes "hand" on deal events and "players" on roster
// events, as empty arrays when there is nothing to list.
func (ev GameEvent) MarshalJSON() ([]byte, error) {
	type plain GameEvent
	switch ev.Type {
	case EventDeal:
		hand := ev.Hand
		if hand == nil {
			hand = []*models.Card{}
		}
		return json.Marshal(struct {
			plain
			Hand []*models.Card `json:"hand"`
		}{plain(ev), hand})
	case EventPlayerList, EventGameStarted:
		players := ev.Players
		if players == nil {
			players = []models.PlayerSummary{}
		}
		return json.Marshal(struct {
			plain
			Players []models.PlayerSummary `json:"players"`
		}{plain(ev), players})
	}
	return json.Marshal(plain(ev))
}

func intPtr(n int) *int { return &n }

// cardCopy snapshots a card for an event so later mutation (activeColor)
// can't race with marshalling on another goroutine.
func cardCopy(c *models.Card) *models.Card {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func handCopy(hand []*models.Card) []*models.Card {
	out := make([]*models.Card, len(hand))
	for i, c := range hand {
		out[i] = cardCopy(c)
	}
	return out
}
