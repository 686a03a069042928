package game

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/lox/holdem-engine/poker"
)

// newPlayers builds players p0..pN with the given stacks; a negative stack
// leaves the seat empty.
func newPlayers(stacks ...int) []*Player {
	players := make([]*Player, len(stacks))
	for i, s := range stacks {
		if s < 0 {
			continue
		}
		players[i] = NewPlayer(fmt.Sprintf("p%d", i), fmt.Sprintf("Player %d", i), s)
	}
	return players
}

// newStackedHand deals from cards in order. Hole cards go one at a time
// starting left of the dealer, then burn+flop, burn+turn, burn+river.
func newStackedHand(t *testing.T, dealer int, cards string, stacks []int, opts ...HandOption) *HandState {
	t.Helper()
	deck := poker.NewStackedDeck(poker.MustParseCards(cards)...)
	opts = append([]HandOption{WithDeck(deck), WithHandID("stacked")}, opts...)
	h, err := NewHand(nil, newPlayers(stacks...), dealer, 5, 10, opts...)
	if err != nil {
		t.Fatalf("NewHand: %v", err)
	}
	checkInvariants(t, h)
	return h
}

func newSeededHand(t *testing.T, seed uint64, dealer int, stacks ...int) *HandState {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed^0x5eed))
	h, err := NewHand(rng, newPlayers(stacks...), dealer, 5, 10, WithHandID("seeded"))
	if err != nil {
		t.Fatalf("NewHand: %v", err)
	}
	checkInvariants(t, h)
	return h
}

func mustAct(t *testing.T, h *HandState, id string, kind ActionKind, amount int) {
	t.Helper()
	if err := h.Act(id, kind, amount); err != nil {
		t.Fatalf("%s %s %d: %v\n%s", id, kind, amount, err, h)
	}
	checkInvariants(t, h)
}

func checkInvariants(t *testing.T, h *HandState) {
	t.Helper()
	if err := h.CheckInvariants(); err != nil {
		t.Fatalf("%v\n%s", err, h)
	}
}

func stacksOf(h *HandState) []int {
	out := make([]int, len(h.Players))
	for i, p := range h.Players {
		if p != nil {
			out[i] = p.Stack
		}
	}
	return out
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
