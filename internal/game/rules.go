// internal/game/rules.go
package game

import "github.com/jason-s-yu/uno/internal/models"

// DefaultHandSize is dealt when a start request carries no hand size.
const DefaultHandSize = 7

// Direction values for Room.Direction.
const (
	Forward  = 1
	Backward = -1
)

// mod is a non-negative modulo; Go's % keeps the dividend's sign.
func mod(a, n int) int {
	return ((a % n) + n) % n
}

// effectiveColor is the color a table card is matched against.
func effectiveColor(top *models.Card) string {
	if top.ActiveColor != "" {
		return top.ActiveColor
	}
	return top.Color
}

// CanPlayOn reports whether card may be played on top. A nil top (empty
// table) accepts anything.
func CanPlayOn(card, top *models.Card) bool {
	if top == nil || IsWild(card) {
		return true
	}
	return card.Color == effectiveColor(top) || card.Value == top.Value
}

// turnOutcome is the effect of a legal play on turn order.
type turnOutcome struct {
	next      int // seat that holds the turn afterwards
	direction int
	victim    int // seat forced to draw, -1 for none
	penalty   int // cards the victim draws
}

// resolveTurn computes the next turn after the seat at current plays card
// into a room of n players moving in direction.
func resolveTurn(card *models.Card, current, direction, n int) turnOutcome {
	out := turnOutcome{direction: direction, victim: -1}

	switch card.Value {
	case ValueSkip:
		out.next = mod(current+2*direction, n)
	case ValueReverse:
		out.direction = -direction
		if n == 2 {
			// two seats: reversing hands the turn straight back
			out.next = current
		} else {
			out.next = mod(current+out.direction, n)
		}
	case ValueDrawTwo, ValueWildDrawFour:
		out.victim = mod(current+direction, n)
		out.penalty = 2
		if card.Value == ValueWildDrawFour {
			out.penalty = 4
		}
		out.next = mod(current+2*direction, n)
	default:
		out.next = mod(current+direction, n)
	}
	return out
}
