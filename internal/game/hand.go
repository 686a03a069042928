package game

import (
	"fmt"
	"maps"
	"strings"

	"github.com/lox/holdem-engine/poker"
)

// HandState is the authoritative state of one hand. It is not safe for
// concurrent use; Table serializes access.
type HandState struct {
	ID      string
	Number  int
	Players []*Player // Indexed by seat, nil for empty seats
	Deck    *poker.Deck
	Board   []poker.Card
	Phase   Phase

	CurrentActor   int // -1 when no one is to act
	Turn           int // Increments every time a seat is put on the clock
	Dealer         int
	SmallBlindSeat int
	BigBlindSeat   int
	SmallBlind     int
	BigBlind       int

	HighestBet    int
	MinRaise      int
	LastAggressor int
	ActionClosing int

	Pots       []Pot
	Winnings   map[int]int
	Results    []PotResult
	Winners    []Winner
	Showdown   SeatSet // Seats whose cards were compared
	RunItTwice bool
	Vote       *Vote
	Runs       [][]poker.Card
	Actions    []ActionRecord

	events        []ActionEvent
	startingTotal int
}

// Vote is the run-it-twice ballot. Voters are the contenders when it opened.
type Vote struct {
	Voters  SeatSet      `json:"voters"`
	Ballots map[int]bool `json:"ballots"`
}

// Pending returns the voters that have not answered.
func (v *Vote) Pending() SeatSet {
	pending := v.Voters
	for seat := range v.Ballots {
		pending = pending.Remove(seat)
	}
	return pending
}

// IsComplete reports whether the hand has been settled.
func (h *HandState) IsComplete() bool {
	return h.Phase == HandOver
}

// Player returns the seat and player with the given id.
func (h *HandState) Player(id string) (int, *Player) {
	for i, p := range h.Players {
		if p != nil && p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

// ActivePlayer returns the player to act, or nil.
func (h *HandState) ActivePlayer() *Player {
	if h.CurrentActor < 0 || h.CurrentActor >= len(h.Players) {
		return nil
	}
	return h.Players[h.CurrentActor]
}

// PotTotal is the chips already collected into pots.
func (h *HandState) PotTotal() int {
	return potTotal(h.Pots)
}

// TotalChips is stacks plus street bets plus pots. It does not change while
// the hand runs.
func (h *HandState) TotalChips() int {
	total := h.PotTotal()
	for _, p := range h.Players {
		if p != nil {
			total += p.Stack + p.Bet
		}
	}
	return total
}

// CheckInvariants verifies chip conservation and turn validity.
func (h *HandState) CheckInvariants() error {
	if got := h.TotalChips(); got != h.startingTotal {
		return fmt.Errorf("%w: chip total %d, expected %d", ErrInvariantViolation, got, h.startingTotal)
	}
	if h.CurrentActor >= 0 {
		if h.CurrentActor >= len(h.Players) || !h.Players[h.CurrentActor].CanAct() {
			return fmt.Errorf("%w: seat %d cannot act", ErrInvariantViolation, h.CurrentActor)
		}
	}
	return nil
}

// repair fills in collections that must never be nil and reports what it
// fixed.
func (h *HandState) repair() []string {
	var fixed []string
	if h.Winnings == nil {
		h.Winnings = make(map[int]int)
		fixed = append(fixed, "winnings")
	}
	if h.Vote != nil && h.Vote.Ballots == nil {
		h.Vote.Ballots = make(map[int]bool)
		fixed = append(fixed, "vote ballots")
	}
	if h.Pots == nil && h.Phase > Preflop && h.Phase < HandOver {
		// open street bets stay with the players until the street ends
		h.Pots = buildPotsExcludingBets(h.Players)
		fixed = append(fixed, "pots")
	}
	return fixed
}

func buildPotsExcludingBets(players []*Player) []Pot {
	collected := make([]*Player, len(players))
	for i, p := range players {
		if p == nil {
			continue
		}
		c := *p
		c.Contributed -= p.Bet
		collected[i] = &c
	}
	return BuildPots(collected)
}

// Clone returns a deep copy that can be mutated independently.
func (h *HandState) Clone() *HandState {
	c := *h
	c.Players = make([]*Player, len(h.Players))
	for i, p := range h.Players {
		c.Players[i] = p.clone()
	}
	if h.Deck != nil {
		c.Deck = h.Deck.Clone()
	}
	c.Board = append([]poker.Card(nil), h.Board...)
	c.Pots = append([]Pot(nil), h.Pots...)
	if h.Winnings != nil {
		c.Winnings = maps.Clone(h.Winnings)
	}
	c.Results = append([]PotResult(nil), h.Results...)
	c.Winners = append([]Winner(nil), h.Winners...)
	if h.Vote != nil {
		v := *h.Vote
		v.Ballots = maps.Clone(h.Vote.Ballots)
		c.Vote = &v
	}
	c.Runs = make([][]poker.Card, len(h.Runs))
	for i, run := range h.Runs {
		c.Runs[i] = append([]poker.Card(nil), run...)
	}
	c.Actions = append([]ActionRecord(nil), h.Actions...)
	c.events = append([]ActionEvent(nil), h.events...)
	return &c
}

// drainEvents returns and clears the pending stats events.
func (h *HandState) drainEvents() []ActionEvent {
	events := h.events
	h.events = nil
	return events
}

// Summary condenses the finished hand for the stats collaborator.
func (h *HandState) Summary(tableID string) HandSummary {
	summary := HandSummary{TableID: tableID, HandID: h.ID, BigBlind: h.BigBlind}
	won := make(map[int]bool)
	for _, w := range h.Winners {
		won[w.Seat] = true
	}

	for seat, p := range h.Players {
		if p == nil {
			continue
		}
		ps := PlayerSummary{
			PlayerID:  p.ID,
			Seat:      seat,
			Position:  p.Position,
			HoleCards: strings.Join(poker.FormatCards(p.HoleCards), ""),
			Net:       p.Stack - p.StartStack,
			Won:       won[seat],
		}
		foldedPreflop := false
		for _, a := range h.Actions {
			if a.Seat != seat {
				continue
			}
			switch a.Type {
			case ActionCall:
				ps.Calls++
				if a.Phase == Preflop {
					ps.VPIP = true
				}
			case ActionBet, ActionRaise:
				ps.Aggressive++
				if a.Phase == Preflop {
					ps.VPIP = true
					ps.PFR = true
				}
			case ActionFold:
				if a.Phase == Preflop {
					foldedPreflop = true
				}
			}
		}
		ps.SawFlop = len(h.Board) >= 3 && !foldedPreflop
		ps.WentShowdown = h.Showdown.Has(seat)
		ps.WonAtShowdown = ps.WentShowdown && ps.Won
		summary.Players = append(summary.Players, ps)
	}
	return summary
}

// Record returns the hand history. tableID, start and end are supplied by the
// table, which owns the clock.
func (h *HandState) Record(tableID string) HandRecord {
	rec := HandRecord{
		TableID:    tableID,
		HandID:     h.ID,
		Number:     h.Number,
		SmallBlind: h.SmallBlind,
		BigBlind:   h.BigBlind,
		Dealer:     h.Dealer,
		Board:      append([]poker.Card(nil), h.Board...),
		Actions:    append([]ActionRecord(nil), h.Actions...),
		Pots:       append([]PotResult(nil), h.Results...),
		Winners:    append([]Winner(nil), h.Winners...),
	}
	for _, run := range h.Runs {
		rec.Runs = append(rec.Runs, append([]poker.Card(nil), run...))
	}
	for seat, p := range h.Players {
		if p == nil {
			continue
		}
		rec.Seats = append(rec.Seats, SeatRecord{
			Seat:       seat,
			PlayerID:   p.ID,
			Name:       p.Name,
			Position:   p.Position,
			StartStack: p.StartStack,
			EndStack:   p.Stack,
			HoleCards:  append([]poker.Card(nil), p.HoleCards...),
			Folded:     p.Folded,
			Showdown:   h.Showdown.Has(seat),
		})
	}
	return rec
}

func (h *HandState) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "hand %s %s board=%v pot=%d", h.ID, h.Phase, poker.FormatCards(h.Board), h.PotTotal())
	for seat, p := range h.Players {
		if p == nil {
			continue
		}
		fmt.Fprintf(&b, "\n  %d %s stack=%d bet=%d", seat, p.ID, p.Stack, p.Bet)
		if p.Folded {
			b.WriteString(" folded")
		}
		if p.AllIn {
			b.WriteString(" all-in")
		}
		if seat == h.CurrentActor {
			b.WriteString(" *")
		}
	}
	return b.String()
}
