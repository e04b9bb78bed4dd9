// internal/models/card.go
package models

// Card is a single card of a room's deck. Everything except ActiveColor is
// fixed when the deck is built.
type Card struct {
	ID    string `json:"id"`
	Color string `json:"color"`
	Value string `json:"value"`
	Img   string `json:"img"`

	// ActiveColor is assigned when the card reaches the table and cleared when
	// the discard pile is reshuffled into the draw pile.
	// For wild cards it is the color chosen by the player.
	ActiveColor string `json:"activeColor,omitempty"`
}
