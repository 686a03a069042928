package game

import (
	"github.com/lox/holdem-engine/poker"
)

// Player is a seat's participation in the current hand.
type Player struct {
	ID          string
	Name        string
	Seat        int
	Position    string
	Stack       int
	Bet         int // Chips committed on the current street
	Contributed int // Chips committed over the whole hand
	StartStack  int
	HoleCards   []poker.Card
	Folded      bool
	AllIn       bool
	Acted       bool
	RaiseLocked bool // A short all-in did not reopen raising for this seat
}

// NewPlayer creates a player ready to be dealt in.
func NewPlayer(id, name string, stack int) *Player {
	return &Player{ID: id, Name: name, Stack: stack}
}

// CanAct reports whether the player still has decisions to make this hand.
func (p *Player) CanAct() bool {
	return p != nil && !p.Folded && !p.AllIn
}

// InContention reports whether the player can still win chips.
func (p *Player) InContention() bool {
	return p != nil && !p.Folded
}

// pay moves chips from the stack into the current bet.
func (p *Player) pay(amount int) {
	p.Stack -= amount
	p.Bet += amount
	p.Contributed += amount
	if p.Stack == 0 {
		p.AllIn = true
	}
}

func (p *Player) resetForHand(seat int) {
	p.Seat = seat
	p.Position = ""
	p.Bet = 0
	p.Contributed = 0
	p.StartStack = p.Stack
	p.HoleCards = nil
	p.Folded = false
	p.AllIn = false
	p.Acted = false
	p.RaiseLocked = false
}

func (p *Player) clone() *Player {
	if p == nil {
		return nil
	}
	c := *p
	c.HoleCards = append([]poker.Card(nil), p.HoleCards...)
	return &c
}
