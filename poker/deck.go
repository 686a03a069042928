package poker

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrDeckExhausted is returned when more cards are requested than remain.
var ErrDeckExhausted = errors.New("poker: deck exhausted")

// DeckSize is the number of cards in a standard deck.
const DeckSize = 52

// Deck represents a standard 52-card deck
type Deck struct {
	cards [DeckSize]Card // Fixed size array
	size  int
	next  int
	rng   *rand.Rand // Random source for deterministic shuffling
}

// NewDeck creates a new shuffled deck with explicit RNG
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng, size: DeckSize}

	i := 0
	for suit := range uint8(4) {
		for rank := range uint8(13) {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}

	d.Shuffle()
	return d
}

// NewStackedDeck creates an unshuffled deck that deals the given cards in order.
// Tests use it to script boards and hole cards.
func NewStackedDeck(cards ...Card) *Deck {
	if len(cards) > DeckSize {
		panic("stacked deck larger than 52 cards")
	}
	d := &Deck{size: len(cards)}
	copy(d.cards[:], cards)
	return d
}

// Shuffle shuffles the deck using Fisher-Yates and rewinds it.
func (d *Deck) Shuffle() {
	d.next = 0
	if d.rng == nil {
		return
	}
	for i := d.size - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal deals n cards from the deck, or nil when not enough remain.
func (d *Deck) Deal(n int) []Card {
	cards, err := d.Draw(n)
	if err != nil {
		return nil
	}
	return cards
}

// Draw deals n cards, reporting underflow as ErrDeckExhausted.
func (d *Deck) Draw(n int) ([]Card, error) {
	if n < 0 || d.next+n > d.size {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrDeckExhausted, n, d.CardsRemaining())
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:d.next+n])
	d.next += n
	return cards, nil
}

// Burn discards the top card.
func (d *Deck) Burn() error {
	_, err := d.Draw(1)
	return err
}

// Reset rewinds and reshuffles the deck
func (d *Deck) Reset() {
	d.Shuffle()
}

// CardsRemaining returns the number of cards left in the deck
func (d *Deck) CardsRemaining() int {
	return d.size - d.next
}

// Remaining returns a copy of the undealt cards, top first.
func (d *Deck) Remaining() []Card {
	out := make([]Card, d.CardsRemaining())
	copy(out, d.cards[d.next:d.size])
	return out
}

// Clone returns an independent copy sharing the RNG.
func (d *Deck) Clone() *Deck {
	c := *d
	return &c
}
