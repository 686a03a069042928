package game

import (
	"encoding/json"
	"fmt"
	"math/bits"
)

// MaxSeats is the largest table a SeatSet can describe.
const MaxSeats = 32

// SeatSet is a set of seat indexes. It marshals to a sorted JSON array.
type SeatSet uint32

// NewSeatSet returns a set holding the given seats.
func NewSeatSet(seats ...int) SeatSet {
	var s SeatSet
	for _, seat := range seats {
		s = s.Add(seat)
	}
	return s
}

// Add returns s with seat included.
func (s SeatSet) Add(seat int) SeatSet {
	if seat < 0 || seat >= MaxSeats {
		return s
	}
	return s | 1<<uint(seat)
}

// Remove returns s without seat.
func (s SeatSet) Remove(seat int) SeatSet {
	if seat < 0 || seat >= MaxSeats {
		return s
	}
	return s &^ (1 << uint(seat))
}

// Has reports whether seat is a member.
func (s SeatSet) Has(seat int) bool {
	return seat >= 0 && seat < MaxSeats && s&(1<<uint(seat)) != 0
}

// Len returns the number of members.
func (s SeatSet) Len() int {
	return bits.OnesCount32(uint32(s))
}

// Intersect returns the members common to s and o.
func (s SeatSet) Intersect(o SeatSet) SeatSet {
	return s & o
}

// Seats lists members in ascending order.
func (s SeatSet) Seats() []int {
	out := make([]int, 0, s.Len())
	for v := uint32(s); v != 0; v &= v - 1 {
		out = append(out, bits.TrailingZeros32(v))
	}
	return out
}

func (s SeatSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Seats())
}

func (s *SeatSet) UnmarshalJSON(data []byte) error {
	var seats []int
	if err := json.Unmarshal(data, &seats); err != nil {
		return fmt.Errorf("seat set must be an array of seat numbers: %w", err)
	}
	var out SeatSet
	for _, seat := range seats {
		if seat < 0 || seat >= MaxSeats {
			return fmt.Errorf("seat %d out of range [0,%d)", seat, MaxSeats)
		}
		out = out.Add(seat)
	}
	*s = out
	return nil
}

// Pot is one layer of the pot: the chips in it and the seats that paid in up
// to its threshold.
type Pot struct {
	Amount   int     `json:"amount"`
	Eligible SeatSet `json:"eligible"`
}

// BuildPots layers the hand contributions into a main pot followed by side
// pots. Each layer takes the smallest remaining positive contribution from
// every seat still contributing, so equal all-ins share one layer. Folded
// seats count as contributors; the showdown filters them out.
func BuildPots(players []*Player) []Pot {
	remaining := make([]int, len(players))
	for i, p := range players {
		if p != nil {
			remaining[i] = p.Contributed
		}
	}

	var pots []Pot
	for {
		level := 0
		for _, r := range remaining {
			if r > 0 && (level == 0 || r < level) {
				level = r
			}
		}
		if level == 0 {
			return pots
		}

		var pot Pot
		for i, r := range remaining {
			if r <= 0 {
				continue
			}
			pot.Amount += level
			pot.Eligible = pot.Eligible.Add(i)
			remaining[i] -= level
		}
		pots = append(pots, pot)
	}
}

// potTotal sums pot amounts.
func potTotal(pots []Pot) int {
	total := 0
	for _, p := range pots {
		total += p.Amount
	}
	return total
}
