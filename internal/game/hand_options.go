package game

import (
	"math/rand/v2"

	"github.com/lox/holdem-engine/poker"
)

// HandOption configures a HandState during creation.
type HandOption func(*handConfig)

type handConfig struct {
	deck       *poker.Deck
	id         string
	number     int
	runItTwice bool
}

// WithDeck deals from the given deck instead of shuffling a new one. Tests use
// it with poker.NewStackedDeck to script hands.
func WithDeck(deck *poker.Deck) HandOption {
	return func(c *handConfig) {
		c.deck = deck
	}
}

// WithHandID sets the hand identifier.
func WithHandID(id string) HandOption {
	return func(c *handConfig) {
		c.id = id
	}
}

// WithHandNumber sets the table's sequence number for the hand.
func WithHandNumber(n int) HandOption {
	return func(c *handConfig) {
		c.number = n
	}
}

// WithRunItTwice lets the contenders vote to run the board twice once no
// further betting is possible.
func WithRunItTwice(enabled bool) HandOption {
	return func(c *handConfig) {
		c.runItTwice = enabled
	}
}

// NewHand deals a new hand and posts the blinds. players is indexed by seat;
// nil entries and players without chips sit the hand out. The returned hand
// has already advanced as far as it can without a decision, so a hand where
// the blinds put everyone all-in may already be over.
//
// The RNG shuffles the deck unless WithDeck is given; one of the two is
// required.
//
//	rng := rand.New(rand.NewPCG(42, 0))
//	h, err := NewHand(rng, players, 0, 5, 10)
func NewHand(rng *rand.Rand, players []*Player, dealer int, smallBlind, bigBlind int, opts ...HandOption) (*HandState, error) {
	cfg := &handConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if rng == nil && cfg.deck == nil {
		panic("rng or deck is required for hand creation")
	}
	if len(players) > MaxSeats {
		panic("too many seats")
	}
	if smallBlind <= 0 || bigBlind < smallBlind {
		panic("invalid blinds")
	}

	seats := make([]*Player, len(players))
	funded := 0
	for i, p := range players {
		if p == nil || p.Stack <= 0 {
			continue
		}
		p.resetForHand(i)
		seats[i] = p
		funded++
	}
	if funded < 2 {
		return nil, reject(ErrNotEnoughPlayers, "need two players with chips, have %d", funded)
	}
	if limit := SeatLimit(cfg.runItTwice); funded > limit {
		return nil, reject(ErrIllegalAction, "one deck deals at most %d players, have %d", limit, funded)
	}
	if dealer < 0 || dealer >= len(seats) || seats[dealer] == nil {
		return nil, reject(ErrIllegalAction, "dealer seat %d is not dealt in", dealer)
	}

	deck := cfg.deck
	if deck == nil {
		deck = poker.NewDeck(rng)
	}

	h := &HandState{
		ID:            cfg.id,
		Number:        cfg.number,
		Players:       seats,
		Deck:          deck,
		Phase:         Waiting,
		CurrentActor:  -1,
		Dealer:        dealer,
		SmallBlind:    smallBlind,
		BigBlind:      bigBlind,
		LastAggressor: -1,
		ActionClosing: -1,
		RunItTwice:    cfg.runItTwice,
		Winnings:      make(map[int]int),
	}
	h.startingTotal = h.TotalChips()

	if err := h.start(); err != nil {
		return nil, err
	}
	return h, nil
}
