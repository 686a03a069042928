package poker

import (
	"fmt"
	"math/bits"
	"strings"
)

// Card is a single card encoded as one bit: bit index = suit*13 + rank.
type Card uint64

// Hand is a set of cards stored as a bitset.
type Hand uint64

// Ranks, deuce through ace.
const (
	Two uint8 = iota
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// Suits.
const (
	Clubs uint8 = iota
	Diamonds
	Hearts
	Spades
)

const (
	rankChars = "23456789TJQKA"
	suitChars = "cdhs"
)

// NewCard creates a card from a rank (0-12) and suit (0-3).
func NewCard(rank, suit uint8) Card {
	return Card(1) << (uint(suit)*13 + uint(rank))
}

// index returns the bit position of the card.
func (c Card) index() int {
	return bits.TrailingZeros64(uint64(c))
}

// Rank returns the rank (0=deuce, 12=ace).
func (c Card) Rank() uint8 {
	return uint8(c.index() % 13)
}

// Suit returns the suit (0=clubs, 3=spades).
func (c Card) Suit() uint8 {
	return uint8(c.index() / 13)
}

// String returns the two character form, e.g. "As".
func (c Card) String() string {
	if c == 0 || bits.OnesCount64(uint64(c)) != 1 || c.index() >= 52 {
		return "??"
	}
	return string([]byte{rankChars[c.Rank()], suitChars[c.Suit()]})
}

// MarshalText encodes the card as "As".
func (c Card) MarshalText() ([]byte, error) {
	if c == 0 {
		return nil, fmt.Errorf("poker: cannot marshal empty card")
	}
	return []byte(c.String()), nil
}

// UnmarshalText parses "As" style cards.
func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard parses a card like "As", "Td" or "2c".
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("invalid card %q", s)
	}
	rank := strings.IndexByte(rankChars, s[0])
	if rank < 0 {
		return 0, fmt.Errorf("invalid rank in card %q", s)
	}
	suit := strings.IndexByte(suitChars, strings.ToLower(s[1:])[0])
	if suit < 0 {
		return 0, fmt.Errorf("invalid suit in card %q", s)
	}
	return NewCard(uint8(rank), uint8(suit)), nil
}

// ParseCards parses a space or comma separated card list ("As Kd", "AsKd" also accepted).
func ParseCards(s string) ([]Card, error) {
	s = strings.NewReplacer(",", "", " ", "").Replace(s)
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("invalid card list %q", s)
	}
	cards := make([]Card, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		c, err := ParseCard(s[i : i+2])
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// MustParseCards is ParseCards for tests and fixtures.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

// FormatCards renders cards as strings.
func FormatCards(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

// NewHand builds a hand from cards.
func NewHand(cards ...Card) Hand {
	var h Hand
	for _, c := range cards {
		h |= Hand(c)
	}
	return h
}

// AddCard adds a card to the hand.
func (h *Hand) AddCard(c Card) {
	*h |= Hand(c)
}

// HasCard reports whether the card is in the hand.
func (h Hand) HasCard(c Card) bool {
	return h&Hand(c) != 0
}

// CountCards returns the number of cards in the hand.
func (h Hand) CountCards() int {
	return bits.OnesCount64(uint64(h))
}

// GetSuitMask returns the 13-bit rank mask for one suit.
func (h Hand) GetSuitMask(suit uint8) uint16 {
	return uint16((uint64(h) >> (uint(suit) * 13)) & 0x1FFF)
}

// Cards lists the cards in the hand in bit order.
func (h Hand) Cards() []Card {
	out := make([]Card, 0, h.CountCards())
	for v := uint64(h); v != 0; v &= v - 1 {
		out = append(out, Card(v&-v))
	}
	return out
}
