// internal/models/player.go
package models

// Player is a seat in a room. PlayerID currently mirrors ConnectionID.
type Player struct {
	ConnectionID string  `json:"-"`
	PlayerID     string  `json:"id"`
	Name         string  `json:"name"`
	Hand         []*Card `json:"-"`
}

// PlayerSummary is the public view of a player broadcast to a room; hands are never included.
type PlayerSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Summary returns the id+name pair for roster broadcasts.
func (p *Player) Summary() PlayerSummary {
	return PlayerSummary{ID: p.PlayerID, Name: p.Name}
}
