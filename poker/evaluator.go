package poker

import (
	"fmt"
	"math/bits"
)

// Category enumerates the categories of poker hands ordered from weakest to strongest.
type Category uint8

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

var categoryNames = [...]string{
	"High Card", "Pair", "Two Pair", "Three of a Kind", "Straight",
	"Flush", "Full House", "Four of a Kind", "Straight Flush",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "Unknown"
}

// HandRank is the value of a player's best five cards. Two ranks are compared by
// category first and then by the tiebreak ranks, most significant first.
type HandRank struct {
	Category Category `json:"category"`
	Tiebreak [5]uint8 `json:"tiebreak"`
}

// Compare returns 1 if r beats o, -1 if o beats r and 0 for a tie.
func (r HandRank) Compare(o HandRank) int {
	if r.Category != o.Category {
		if r.Category > o.Category {
			return 1
		}
		return -1
	}
	for i := range r.Tiebreak {
		switch {
		case r.Tiebreak[i] > o.Tiebreak[i]:
			return 1
		case r.Tiebreak[i] < o.Tiebreak[i]:
			return -1
		}
	}
	return 0
}

// Beats reports whether r is strictly stronger than o.
func (r HandRank) Beats(o HandRank) bool { return r.Compare(o) > 0 }

// String returns a human-readable description such as "Full House, Kings full of Tens".
func (r HandRank) String() string {
	t := r.Tiebreak
	switch r.Category {
	case HighCard:
		return fmt.Sprintf("High Card, %s", rankName(t[0]))
	case Pair:
		return fmt.Sprintf("Pair of %s", rankPlural(t[0]))
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s and %s", rankPlural(t[0]), rankPlural(t[1]))
	case ThreeOfAKind:
		return fmt.Sprintf("Three of a Kind, %s", rankPlural(t[0]))
	case Straight:
		return fmt.Sprintf("Straight, %s high", rankName(t[0]))
	case Flush:
		return fmt.Sprintf("Flush, %s high", rankName(t[0]))
	case FullHouse:
		return fmt.Sprintf("Full House, %s full of %s", rankPlural(t[0]), rankPlural(t[1]))
	case FourOfAKind:
		return fmt.Sprintf("Four of a Kind, %s", rankPlural(t[0]))
	case StraightFlush:
		if t[0] == Ace {
			return "Royal Flush"
		}
		return fmt.Sprintf("Straight Flush, %s high", rankName(t[0]))
	}
	return r.Category.String()
}

var rankNames = [...]string{"Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine", "Ten", "Jack", "Queen", "King", "Ace"}

func rankName(r uint8) string {
	if int(r) < len(rankNames) {
		return rankNames[r]
	}
	return "?"
}

func rankPlural(r uint8) string {
	if r == Six {
		return "Sixes"
	}
	return rankName(r) + "s"
}

// Evaluate returns the rank of the best five-card hand that can be made from cards.
// It accepts five to seven cards; fewer cards are ranked on what is present.
func Evaluate(cards []Card) HandRank {
	return EvaluateHand(NewHand(cards...))
}

// EvaluateHand ranks a hand bitset.
func EvaluateHand(hand Hand) HandRank {
	var suitMasks [4]uint16
	var rankMask uint16
	for suit := uint8(0); suit < 4; suit++ {
		mask := hand.GetSuitMask(suit)
		suitMasks[suit] = mask
		rankMask |= mask
	}

	flushMask := uint16(0)
	for _, suitMask := range suitMasks {
		if bits.OnesCount16(suitMask) < 5 {
			continue
		}
		if high, ok := straightHigh(suitMask); ok {
			return HandRank{Category: StraightFlush, Tiebreak: [5]uint8{high}}
		}
		if flushMask == 0 || topRanksKey(suitMask) > topRanksKey(flushMask) {
			flushMask = suitMask
		}
	}

	s0, s1, s2, s3 := suitMasks[0], suitMasks[1], suitMasks[2], suitMasks[3]
	quadsMask := s0 & s1 & s2 & s3
	tripCandidates := (s0 & s1 & s2) | (s0 & s1 & s3) | (s0 & s2 & s3) | (s1 & s2 & s3)
	tripsMask := tripCandidates &^ quadsMask
	pairsMask := ((s0 & s1) | (s0 & s2) | (s0 & s3) | (s1 & s2) | (s1 & s3) | (s2 & s3)) &^ tripCandidates

	if quad := highestRank(quadsMask); quad >= 0 {
		q := uint8(quad)
		kick := topRanks(rankMask&^(1<<q), 1)
		return HandRank{Category: FourOfAKind, Tiebreak: [5]uint8{q, kick[0]}}
	}

	if trip := highestRank(tripsMask); trip >= 0 {
		t := uint8(trip)
		if pair := highestRank(pairsMask | (tripsMask &^ (1 << t))); pair >= 0 {
			return HandRank{Category: FullHouse, Tiebreak: [5]uint8{t, uint8(pair)}}
		}
	}

	if flushMask != 0 {
		var tb [5]uint8
		copy(tb[:], topRanks(flushMask, 5))
		return HandRank{Category: Flush, Tiebreak: tb}
	}

	if high, ok := straightHigh(rankMask); ok {
		return HandRank{Category: Straight, Tiebreak: [5]uint8{high}}
	}

	if trip := highestRank(tripsMask); trip >= 0 {
		t := uint8(trip)
		k := topRanks(rankMask&^(1<<t), 2)
		return HandRank{Category: ThreeOfAKind, Tiebreak: [5]uint8{t, k[0], k[1]}}
	}

	if p1 := highestRank(pairsMask); p1 >= 0 {
		high := uint8(p1)
		if p2 := highestRank(pairsMask &^ (1 << high)); p2 >= 0 {
			low := uint8(p2)
			k := topRanks(rankMask&^(1<<high|1<<low), 1)
			return HandRank{Category: TwoPair, Tiebreak: [5]uint8{high, low, k[0]}}
		}
		k := topRanks(rankMask&^(1<<high), 3)
		return HandRank{Category: Pair, Tiebreak: [5]uint8{high, k[0], k[1], k[2]}}
	}

	var tb [5]uint8
	copy(tb[:], topRanks(rankMask, 5))
	return HandRank{Category: HighCard, Tiebreak: tb}
}

// highestRank returns the highest rank present in the bitmask (or -1 when empty).
func highestRank(mask uint16) int {
	if mask == 0 {
		return -1
	}
	return bits.Len16(mask) - 1
}

// topRanks returns the n highest ranks in descending order, padding with zero.
func topRanks(mask uint16, n int) []uint8 {
	out := make([]uint8, n)
	for i := 0; i < n && mask != 0; i++ {
		top := uint8(bits.Len16(mask) - 1)
		out[i] = top
		mask &^= 1 << top
	}
	return out
}

// topRanksKey orders two flush masks by their best five cards.
func topRanksKey(mask uint16) uint32 {
	var key uint32
	for _, r := range topRanks(mask, 5) {
		key = key<<4 | uint32(r)
	}
	return key
}

// straightHigh returns the high-card rank of the best straight in the mask.
func straightHigh(mask uint16) (uint8, bool) {
	const wheelMask = 0x100F // Ace + 2-3-4-5
	mask &= 0x1FFF

	// Bitwise cascade identifies five consecutive ranks in one pass.
	if seq := mask & (mask >> 1) & (mask >> 2) & (mask >> 3) & (mask >> 4); seq != 0 {
		return uint8(bits.Len16(seq)-1) + 4, true
	}
	if mask&wheelMask == wheelMask {
		return Five, true
	}
	return 0, false
}
