// internal/game/deck.go
package game

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/jason-s-yu/uno/internal/models"
)

// Card colors. BaseColors order matters: the first entry is the fallback for
// an invalid wild color choice.
const (
	ColorBlue   = "blue"
	ColorRed    = "red"
	ColorGreen  = "green"
	ColorYellow = "yellow"
	ColorWild   = "wild"
)

// Card values other than the numeric ranks.
const (
	ValueSkip         = "Skip"
	ValueReverse      = "Reverse"
	ValueDrawTwo      = "Draw Two"
	ValueWild         = "Wild"
	ValueWildDrawFour = "Wild Draw Four"
)

// BaseColors are the four suits a card can be played as.
var BaseColors = []string{ColorBlue, ColorRed, ColorGreen, ColorYellow}

var actionValues = []string{ValueSkip, ValueReverse, ValueDrawTwo}

// DeckOptions controls the deck composition.
type DeckOptions struct {
	// IncludeWilds adds four Wild and four Wild Draw Four cards (108 cards instead of 100).
	IncludeWilds bool `json:"includeWilds"`
}

// DeckSize returns the number of cards NewDeck builds for the options.
func (o DeckOptions) DeckSize() int {
	n := len(BaseColors) * (1 + 9*2 + len(actionValues)*2)
	if o.IncludeWilds {
		n += 8
	}
	return n
}

// NewDeck builds an unshuffled deck. Per color: one 0, two of each 1-9 and
// two of each action card.
func NewDeck(opts DeckOptions) []*models.Card {
	deck := make([]*models.Card, 0, opts.DeckSize())
	idx := 0 // unique across the whole deck, duplicates differ only by it

	for _, color := range BaseColors {
		deck = append(deck, makeCard(color, "0", idx))
		idx++

		for n := 1; n <= 9; n++ {
			for range 2 {
				deck = append(deck, makeCard(color, fmt.Sprint(n), idx))
				idx++
			}
		}

		for _, action := range actionValues {
			for range 2 {
				deck = append(deck, makeCard(color, action, idx))
				idx++
			}
		}
	}

	if opts.IncludeWilds {
		for _, value := range []string{ValueWild, ValueWildDrawFour} {
			for range 4 {
				deck = append(deck, makeCard(ColorWild, value, idx))
				idx++
			}
		}
	}
	return deck
}

func makeCard(color, value string, uniqueIndex int) *models.Card {
	safeValue := strings.Join(strings.Fields(value), "_")
	return &models.Card{
		ID:    fmt.Sprintf("%s_%s_%d", color, safeValue, uniqueIndex),
		Color: color,
		Value: value,
		Img:   fmt.Sprintf("/img/cards/%s_%s.png", color, safeValue),
	}
}

// Shuffle permutes cards in place (Fisher-Yates) and returns the same slice.
// It draws from the package-level source, which is safe across rooms.
func Shuffle(cards []*models.Card) []*models.Card {
	return fisherYates(cards, rand.Intn)
}

// ShuffleWith is Shuffle with an explicit random source, for reproducible tests.
func ShuffleWith(cards []*models.Card, r *rand.Rand) []*models.Card {
	return fisherYates(cards, r.Intn)
}

func fisherYates(cards []*models.Card, intn func(n int) int) []*models.Card {
	for i := len(cards) - 1; i > 0; i-- {
		j := intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	return cards
}

// IsWild reports whether the card may be played on anything.
func IsWild(c *models.Card) bool {
	return c != nil && c.Color == ColorWild
}

// NormalizeColor lowercases a requested color and falls back to the first
// base color when it isn't one of the four suits.
func NormalizeColor(color string) string {
	color = strings.ToLower(strings.TrimSpace(color))
	for _, c := range BaseColors {
		if c == color {
			return c
		}
	}
	return BaseColors[0]
}
