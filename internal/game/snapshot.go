// internal/game/snapshot.go
package game

import "github.com/jason-s-yu/uno/internal/models"

// PlayerState is one seat as seen from outside the room. Hands are reduced to a count.
type PlayerState struct {
	PlayerID      string `json:"playerId"`
	Name          string `json:"name"`
	HandSize      int    `json:"handSize"`
	IsCurrentTurn bool   `json:"isCurrentTurn"`
}

// RoomState is a point-in-time, hand-free view of a room.
type RoomState struct {
	RoomID             string        `json:"roomId"`
	Started            bool          `json:"started"`
	AwaitingStartColor bool          `json:"awaitingStartColor"`
	Direction          int           `json:"direction"`
	CurrentPlayerID    string        `json:"currentPlayerId,omitempty"`
	DrawPileCount      int           `json:"drawPileCount"`
	DiscardCount       int           `json:"discardCount"`
	TopCard            *models.Card  `json:"topCard,omitempty"`
	Players            []PlayerState `json:"players"`
}

// Snapshot returns the public state of the room.
func (r *Room) Snapshot() RoomState {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	st := RoomState{
		RoomID:             r.ID,
		Started:            r.Started,
		AwaitingStartColor: r.AwaitingStartColor,
		Direction:          r.Direction,
		DrawPileCount:      len(r.Deck),
		DiscardCount:       len(r.DiscardPile),
		TopCard:            cardCopy(r.topCard()),
		Players:            make([]PlayerState, 0, len(r.Players)),
	}

	inPlay := (r.Started || r.AwaitingStartColor) && len(r.Players) > 0
	if inPlay {
		st.CurrentPlayerID = r.Players[r.TurnIndex].PlayerID
	}
	for i, p := range r.Players {
		st.Players = append(st.Players, PlayerState{
			PlayerID:      p.PlayerID,
			Name:          p.Name,
			HandSize:      len(p.Hand),
			IsCurrentTurn: inPlay && i == r.TurnIndex,
		})
	}
	return st
}

// CardCount is the number of cards currently in the room: draw pile, discard
// pile and every hand.
func (r *Room) CardCount() int {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	n := len(r.Deck) + len(r.DiscardPile)
	for _, p := range r.Players {
		n += len(p.Hand)
	}
	return n
}
