// internal/game/room.go
package game

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jason-s-yu/uno/internal/models"
)

// ActionLogger receives a record for every applied room action. Implementations
// must not block; they are called with the room lock held.
type ActionLogger interface {
	LogAction(rec models.RoomAction)
}

// Room is the authoritative state of one game session. Every exported method
// takes Mu for its whole duration, so actions on one room never interleave.
type Room struct {
	ID string

	Players     []*models.Player // seat order is turn order and join order
	Deck        []*models.Card   // draw pile; the last element is drawn first
	DiscardPile []*models.Card   // the last element is the table card

	TurnIndex          int
	Direction          int
	Started            bool
	AwaitingStartColor bool // initial table card is a wild that still needs a color

	Mu sync.Mutex

	// BroadcastFn sends an event to every connection subscribed to the room.
	// It is called with Mu held and must not call back into the room.
	BroadcastFn func(ev GameEvent)

	// BroadcastToPlayerFn sends an event to one connection. Same locking rules as BroadcastFn.
	BroadcastToPlayerFn func(connectionID string, ev GameEvent)

	// ActionLog is optional; nil disables action records.
	ActionLog ActionLogger

	actionIndex int
	log         *log.Entry
}

// NewRoom builds an empty room with a freshly shuffled deck.
func NewRoom(id string, opts DeckOptions) *Room {
	r := &Room{
		ID:          id,
		Players:     []*models.Player{},
		Deck:        Shuffle(NewDeck(opts)),
		DiscardPile: []*models.Card{},
		TurnIndex:   0,
		Direction:   Forward,
		log:         log.WithField("room", id),
	}
	r.log.Debugf("Initialized room with %d cards.", len(r.Deck))
	return r
}

// Join seats a new player owned by connectionID. A connection that is already
// seated keeps its seat and only updates its name.
func (r *Room) Join(connectionID, name string) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if idx := r.playerIndex(connectionID); idx >= 0 {
		r.Players[idx].Name = name
		r.log.Infof("Player %s renamed to %q.", connectionID, name)
	} else {
		r.Players = append(r.Players, &models.Player{
			ConnectionID: connectionID,
			PlayerID:     connectionID,
			Name:         name,
			Hand:         []*models.Card{},
		})
		r.log.Infof("Player %s (%q) joined; %d seated.", connectionID, name, len(r.Players))
	}
	r.logAction(connectionID, "join", map[string]interface{}{"name": name})

	r.fireEventToPlayer(connectionID, GameEvent{Type: EventJoined, PlayerID: connectionID, RoomID: r.ID})
	r.fireEvent(GameEvent{Type: EventPlayerList, Players: r.roster()})

	// late joiners get the table so they can render it; their hand stays empty
	if top := r.topCard(); top != nil {
		r.fireEventToPlayer(connectionID, GameEvent{Type: EventCardPlacedOnTable, Card: cardCopy(top)})
		if r.Started {
			r.fireEventToPlayer(connectionID, GameEvent{Type: EventTurnChanged, CurrentPlayerID: r.Players[r.TurnIndex].PlayerID})
			r.fireEventToPlayer(connectionID, GameEvent{Type: EventDrawPileCount, Count: intPtr(len(r.Deck))})
		}
	}
}

// Start deals handSize cards to every seated player and turns over the first
// table card. It is a no-op when the room is already running, waiting on a
// start color, or empty.
func (r *Room) Start(requesterID string, handSize int) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Started || r.AwaitingStartColor || len(r.Players) == 0 {
		r.log.Debugf("Start from %s ignored (Started:%v, AwaitingStartColor:%v, Players:%d).", requesterID, r.Started, r.AwaitingStartColor, len(r.Players))
		return
	}

	// keep at least one card back for the table
	available := len(r.Deck)
	if len(r.DiscardPile) > 1 {
		available += len(r.DiscardPile) - 1
	}
	maxHand := (available - 1) / len(r.Players)
	if maxHand < 1 {
		r.log.Warnf("Start from %s ignored: %d card(s) available for %d player(s).", requesterID, available, len(r.Players))
		return
	}
	if handSize > maxHand {
		r.log.Infof("Hand size %d clamped to %d for %d player(s).", handSize, maxHand, len(r.Players))
		handSize = maxHand
	}

	Shuffle(r.Deck)
	for _, p := range r.Players {
		p.Hand = append(p.Hand, r.drawFromDeck(handSize)...)
		r.fireEventToPlayer(p.ConnectionID, GameEvent{Type: EventDeal, Hand: handCopy(p.Hand)})
	}

	top := r.drawFromDeck(1)[0]
	r.DiscardPile = append(r.DiscardPile, top)
	r.TurnIndex = 0
	r.Direction = Forward
	r.logAction(requesterID, "start", map[string]interface{}{"handSize": handSize, "players": len(r.Players), "topCard": top.ID})

	if IsWild(top) {
		r.AwaitingStartColor = true
		r.fireEvent(GameEvent{Type: EventCardPlacedOnTable, Card: cardCopy(top)})
		first := r.Players[r.TurnIndex]
		r.log.Infof("Initial table card %s is wild; asking %s for a color.", top.ID, first.PlayerID)
		r.fireEventToPlayer(first.ConnectionID, GameEvent{Type: EventRequestStartColor, PlayerID: first.PlayerID})
		return
	}

	top.ActiveColor = top.Color
	r.Started = true
	r.log.Infof("Game started with %d player(s), hand size %d, table card %s.", len(r.Players), handSize, top.ID)
	r.fireEvent(GameEvent{Type: EventCardPlacedOnTable, Card: cardCopy(top)})
	r.fireEvent(GameEvent{
		Type:            EventGameStarted,
		CurrentPlayerID: r.Players[r.TurnIndex].PlayerID,
		Players:         r.roster(),
	})
	r.broadcastDrawPileCount()
}

// ChooseStartColor colors a wild initial table card. Requests that don't come
// from the current player, or arrive when no color is pending, are ignored.
func (r *Room) ChooseStartColor(connectionID, color string) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	top := r.topCard()
	if !r.AwaitingStartColor || top == nil || !IsWild(top) || top.ActiveColor != "" {
		r.log.Debugf("Start color from %s ignored: no color pending.", connectionID)
		return
	}
	if idx := r.playerIndex(connectionID); idx < 0 || idx != r.TurnIndex {
		r.log.Debugf("Start color from %s ignored: not the current player.", connectionID)
		return
	}

	top.ActiveColor = NormalizeColor(color)
	r.AwaitingStartColor = false
	r.Started = true
	current := r.Players[r.TurnIndex]
	r.log.Infof("Player %s chose start color %s.", connectionID, top.ActiveColor)
	r.logAction(connectionID, "choose_start_color", map[string]interface{}{"color": top.ActiveColor})

	r.fireEvent(GameEvent{Type: EventCardPlacedOnTable, Card: cardCopy(top)})
	r.fireEvent(GameEvent{Type: EventTurnChanged, CurrentPlayerID: current.PlayerID})
}

// PlayCard plays cardID from the hand of the player owning connectionID.
// chosenColor only matters for wild cards.
func (r *Room) PlayCard(connectionID, cardID, chosenColor string) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	idx, ok := r.checkTurn(connectionID)
	if !ok {
		return
	}
	player := r.Players[idx]

	pos := -1
	for i, c := range player.Hand {
		if c.ID == cardID {
			pos = i
			break
		}
	}
	if pos < 0 {
		r.reject(connectionID, ReasonCardNotFound)
		return
	}
	card := player.Hand[pos]
	if !CanPlayOn(card, r.topCard()) {
		r.reject(connectionID, ReasonNoMatch)
		return
	}

	player.Hand = append(player.Hand[:pos], player.Hand[pos+1:]...)
	if IsWild(card) {
		card.ActiveColor = NormalizeColor(chosenColor)
	} else {
		card.ActiveColor = card.Color
	}
	r.DiscardPile = append(r.DiscardPile, card)
	r.logAction(connectionID, "play", map[string]interface{}{"cardId": card.ID, "activeColor": card.ActiveColor})

	r.fireEvent(GameEvent{Type: EventCardPlayed, PlayerID: player.PlayerID, Name: player.Name, Card: cardCopy(card)})
	r.fireEventToPlayer(connectionID, GameEvent{Type: EventDeal, Hand: handCopy(player.Hand)})

	out := resolveTurn(card, idx, r.Direction, len(r.Players))
	r.Direction = out.direction
	if out.victim >= 0 {
		r.forceDraw(r.Players[out.victim], out.penalty)
	}
	r.TurnIndex = out.next

	r.broadcastTurn()
	r.broadcastDrawPileCount()
}

// Draw gives the current player one card and passes the turn.
func (r *Room) Draw(connectionID string) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	idx, ok := r.checkTurn(connectionID)
	if !ok {
		return
	}
	player := r.Players[idx]

	drawn := r.drawFromDeck(1)
	if len(drawn) == 0 {
		r.reject(connectionID, ReasonNoCardsLeft)
		return
	}
	player.Hand = append(player.Hand, drawn...)
	r.logAction(connectionID, "draw", map[string]interface{}{"cardId": drawn[0].ID})

	r.fireEventToPlayer(connectionID, GameEvent{Type: EventDeal, Hand: handCopy(player.Hand)})
	r.fireEvent(GameEvent{Type: EventPlayerDrew, PlayerID: player.PlayerID, Count: intPtr(len(drawn))})
	r.broadcastDrawPileCount()

	r.TurnIndex = mod(idx+r.Direction, len(r.Players))
	r.broadcastTurn()
}

// Leave removes the player owned by connectionID. It reports whether the
// connection was seated here. The player's hand leaves the room with them.
func (r *Room) Leave(connectionID string) bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	idx := r.playerIndex(connectionID)
	if idx < 0 {
		return false
	}
	gone := r.Players[idx]
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	r.log.Infof("Player %s left with %d card(s); %d seated.", connectionID, len(gone.Hand), len(r.Players))
	r.logAction(connectionID, "leave", map[string]interface{}{"droppedCards": len(gone.Hand)})

	r.fireEvent(GameEvent{Type: EventPlayerList, Players: r.roster()})

	if len(r.Players) == 0 {
		r.Started = false
		r.AwaitingStartColor = false
		return true
	}

	// the modulo clamp can move the turn to a different seat than the logical next one
	switch {
	case r.Started:
		r.TurnIndex = mod(r.TurnIndex, len(r.Players))
		r.broadcastTurn()
	case r.AwaitingStartColor:
		r.TurnIndex = mod(r.TurnIndex, len(r.Players))
		next := r.Players[r.TurnIndex]
		r.fireEventToPlayer(next.ConnectionID, GameEvent{Type: EventRequestStartColor, PlayerID: next.PlayerID})
	}
	return true
}

// HasConnection reports whether connectionID is seated in the room.
func (r *Room) HasConnection(connectionID string) bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.playerIndex(connectionID) >= 0
}

// checkTurn runs the shared play/draw preconditions and sends the rejection
// itself. Assumes lock is held.
func (r *Room) checkTurn(connectionID string) (int, bool) {
	if !r.Started {
		r.reject(connectionID, ReasonNotStarted)
		return -1, false
	}
	idx := r.playerIndex(connectionID)
	if idx < 0 {
		r.reject(connectionID, ReasonNotSeated)
		return -1, false
	}
	if idx != r.TurnIndex {
		r.reject(connectionID, ReasonNotYourTurn)
		return -1, false
	}
	return idx, true
}

// forceDraw makes victim draw count cards (Draw Two / Wild Draw Four).
// Assumes lock is held.
func (r *Room) forceDraw(victim *models.Player, count int) {
	drawn := r.drawFromDeck(count)
	victim.Hand = append(victim.Hand, drawn...)
	r.logAction(victim.PlayerID, "forced_draw", map[string]interface{}{"requested": count, "drawn": len(drawn)})

	r.fireEventToPlayer(victim.ConnectionID, GameEvent{Type: EventDeal, Hand: handCopy(victim.Hand)})
	r.fireEvent(GameEvent{Type: EventPlayerDrewCards, PlayerID: victim.PlayerID, Count: intPtr(len(drawn))})
}

// drawFromDeck pops up to count cards from the draw pile, reshuffling all but
// the table card back into it whenever it runs dry. It returns fewer cards
// when nothing is left to reshuffle. Assumes lock is held.
func (r *Room) drawFromDeck(count int) []*models.Card {
	drawn := make([]*models.Card, 0, count)
	for range count {
		if len(r.Deck) == 0 {
			if len(r.DiscardPile) <= 1 {
				r.log.Infof("Draw pile and discard pile exhausted after %d of %d card(s).", len(drawn), count)
				break
			}
			last := len(r.DiscardPile) - 1
			top := r.DiscardPile[last]
			refill := make([]*models.Card, last)
			copy(refill, r.DiscardPile[:last])
			for _, c := range refill {
				c.ActiveColor = "" // wilds get a fresh color next time they're played
			}
			r.Deck = Shuffle(refill)
			r.DiscardPile = []*models.Card{top}
			r.log.Infof("Reshuffled %d card(s) from the discard pile into the draw pile.", len(r.Deck))
			r.logAction("", "reshuffle", map[string]interface{}{"newSize": len(r.Deck)})
		}
		last := len(r.Deck) - 1
		drawn = append(drawn, r.Deck[last])
		r.Deck = r.Deck[:last]
	}
	return drawn
}

// topCard returns the table card or nil. Assumes lock is held.
func (r *Room) topCard() *models.Card {
	if len(r.DiscardPile) == 0 {
		return nil
	}
	return r.DiscardPile[len(r.DiscardPile)-1]
}

// playerIndex returns the seat of connectionID or -1. Assumes lock is held.
func (r *Room) playerIndex(connectionID string) int {
	for i, p := range r.Players {
		if p.ConnectionID == connectionID {
			return i
		}
	}
	return -1
}

// roster returns id+name pairs in seat order. Assumes lock is held.
func (r *Room) roster() []models.PlayerSummary {
	out := make([]models.PlayerSummary, len(r.Players))
	for i, p := range r.Players {
		out[i] = p.Summary()
	}
	return out
}

// Assumes lock is held.
func (r *Room) broadcastTurn() {
	r.fireEvent(GameEvent{Type: EventTurnChanged, CurrentPlayerID: r.Players[r.TurnIndex].PlayerID})
}

// Assumes lock is held.
func (r *Room) broadcastDrawPileCount() {
	r.fireEvent(GameEvent{Type: EventDrawPileCount, Count: intPtr(len(r.Deck))})
}

// reject tells only the acting connection why its action was refused.
// Assumes lock is held.
func (r *Room) reject(connectionID, reason string) {
	r.log.WithField("player", connectionID).Debugf("Rejected move: %s", reason)
	r.fireEventToPlayer(connectionID, GameEvent{Type: EventInvalidMove, Reason: reason})
}

// fireEvent broadcasts an event to the room. Assumes lock is held.
func (r *Room) fireEvent(ev GameEvent) {
	if r.BroadcastFn == nil {
		r.log.Warnf("BroadcastFn is nil, cannot broadcast event type %s.", ev.Type)
		return
	}
	ev.RoomID = r.ID
	r.BroadcastFn(ev)
}

// fireEventToPlayer sends an event to one connection. Assumes lock is held.
func (r *Room) fireEventToPlayer(connectionID string, ev GameEvent) {
	if r.BroadcastToPlayerFn == nil {
		r.log.Warnf("BroadcastToPlayerFn is nil, cannot send event type %s to %s.", ev.Type, connectionID)
		return
	}
	ev.RoomID = r.ID
	r.BroadcastToPlayerFn(connectionID, ev)
}

// logAction hands a record to the action log, if any. Assumes lock is held.
func (r *Room) logAction(actorID, actionType string, payload map[string]interface{}) {
	r.actionIndex++
	if r.ActionLog == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	r.ActionLog.LogAction(models.RoomAction{
		RoomID:        r.ID,
		ActionIndex:   r.actionIndex,
		ActorID:       actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	})
}
