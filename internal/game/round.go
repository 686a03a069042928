package game

import (
	"fmt"

	"github.com/lox/holdem-engine/poker"
)

// start labels positions, deals hole cards, posts blinds and puts the first
// player on the clock.
func (h *HandState) start() error {
	h.assignPositions()
	if err := h.dealHoleCards(); err != nil {
		return err
	}

	if h.countOccupied() == 2 {
		// Heads-up: the dealer posts the small blind and acts first preflop.
		h.SmallBlindSeat = h.Dealer
		h.BigBlindSeat = h.nextOccupied(h.Dealer)
	} else {
		h.SmallBlindSeat = h.nextOccupied(h.Dealer)
		h.BigBlindSeat = h.nextOccupied(h.SmallBlindSeat)
	}
	h.post(h.SmallBlindSeat, h.SmallBlind, ActionSmallBlind)
	h.post(h.BigBlindSeat, h.BigBlind, ActionBigBlind)

	h.Phase = Preflop
	h.HighestBet = h.BigBlind
	h.MinRaise = h.BigBlind
	h.LastAggressor = h.BigBlindSeat

	first := h.nextActionable(h.BigBlindSeat)
	if h.countOccupied() == 2 && h.Players[h.SmallBlindSeat].CanAct() {
		first = h.SmallBlindSeat
	}
	h.ActionClosing = h.BigBlindSeat
	if !h.Players[h.BigBlindSeat].CanAct() {
		h.ActionClosing = h.prevActionable(first)
	}
	h.setActor(first)

	return h.progress()
}

func (h *HandState) post(seat, amount int, kind ActionType) {
	p := h.Players[seat]
	paid := min(amount, p.Stack)
	p.pay(paid)
	h.Actions = append(h.Actions, ActionRecord{
		Seat:     seat,
		PlayerID: p.ID,
		Phase:    Preflop,
		Type:     kind,
		Amount:   p.Bet,
		Paid:     paid,
		AllIn:    p.AllIn,
	})
}

// dealHoleCards deals one card at a time starting left of the dealer.
func (h *HandState) dealHoleCards() error {
	for range 2 {
		seat := h.Dealer
		for range h.countOccupied() {
			seat = h.nextOccupied(seat)
			cards, err := h.Deck.Draw(1)
			if err != nil {
				return fmt.Errorf("%w: dealing hole cards: %w", ErrInvariantViolation, err)
			}
			h.Players[seat].HoleCards = append(h.Players[seat].HoleCards, cards[0])
		}
	}
	return nil
}

func (h *HandState) countOccupied() int {
	n := 0
	for _, p := range h.Players {
		if p != nil {
			n++
		}
	}
	return n
}

var latePositions = []string{"LJ", "HJ", "CO"}

// assignPositions labels seats clockwise from the button.
func (h *HandState) assignPositions() {
	order := []int{h.Dealer}
	for seat := h.nextOccupied(h.Dealer); seat != h.Dealer; seat = h.nextOccupied(seat) {
		order = append(order, seat)
	}
	for i, label := range positionLabels(len(order)) {
		h.Players[order[i]].Position = label
	}
}

// positionLabels names n seats starting with the button.
func positionLabels(n int) []string {
	if n == 2 {
		return []string{"BTN/SB", "BB"}
	}
	labels := []string{"BTN", "SB", "BB"}
	if n <= 3 {
		return labels[:n]
	}
	labels = append(labels, "UTG")
	middle := n - 4
	if middle <= len(latePositions) {
		return append(labels, latePositions[len(latePositions)-middle:]...)
	}
	for i := 1; i <= middle-len(latePositions); i++ {
		labels = append(labels, fmt.Sprintf("UTG+%d", i))
	}
	return append(labels, latePositions...)
}

// Act applies an action by the current actor and moves the hand forward.
func (h *HandState) Act(playerID string, kind ActionKind, amount int) error {
	return h.act(playerID, kind, amount, false)
}

func (h *HandState) act(playerID string, kind ActionKind, amount int, forced bool) error {
	if err := h.apply(playerID, kind, amount, forced); err != nil {
		return err
	}
	h.advance()
	return h.progress()
}

// ForceFold folds a player out of turn, as when they leave the table. Players
// who are all-in stay in the hand.
func (h *HandState) ForceFold(playerID string) error {
	seat, p := h.Player(playerID)
	if p == nil {
		return reject(ErrUnknownPlayer, "player %s is not in the hand", playerID)
	}
	if !h.Phase.IsBetting() || !p.CanAct() {
		return nil
	}

	p.Folded = true
	p.Acted = true
	h.Actions = append(h.Actions, ActionRecord{
		Seat:     seat,
		PlayerID: p.ID,
		Phase:    h.Phase,
		Type:     ActionFold,
		Amount:   p.Bet,
		Forced:   true,
	})
	h.events = append(h.events, ActionEvent{
		HandID:   h.ID,
		PlayerID: p.ID,
		Seat:     seat,
		Phase:    h.Phase,
		Kind:     Fold,
		Amount:   p.Bet,
		Pot:      h.PotTotal(),
		Forced:   true,
	})

	if h.Vote != nil {
		h.Vote.Voters = h.Vote.Voters.Remove(seat)
		delete(h.Vote.Ballots, seat)
		return h.tallyVote(false)
	}
	if seat == h.CurrentActor {
		h.advance()
	}
	return h.progress()
}

// progress runs the hand forward until a player must act, a vote is open or
// the hand is settled. Streets dealt without betting are handled in a loop.
func (h *HandState) progress() error {
	for {
		if h.countInContention() <= 1 {
			h.collectBets()
			return h.settle([][]poker.Card{h.Board})
		}
		if !h.IsStreetComplete() {
			if !h.ActivePlayer().CanAct() {
				h.advance()
			}
			return nil
		}

		h.collectBets()
		if h.Phase == River {
			return h.settle([][]poker.Card{h.Board})
		}
		if n := h.countActionable(); n < 2 {
			// Only a table of all-in contenders may run it twice.
			if h.RunItTwice && n == 0 && len(h.Board) < 5 {
				h.openVote()
				return nil
			}
			return h.runOut(1)
		}
		if err := h.dealStreet(); err != nil {
			return err
		}
	}
}

// collectBets moves street bets into the pots.
func (h *HandState) collectBets() {
	for _, p := range h.Players {
		if p != nil {
			p.Bet = 0
		}
	}
	h.Pots = BuildPots(h.Players)
}

// dealStreet burns and deals the next street and opens its betting.
func (h *HandState) dealStreet() error {
	n := 1
	if h.Phase == Preflop {
		n = 3
	}
	if err := h.Deck.Burn(); err != nil {
		return fmt.Errorf("%w: burn before %s: %w", ErrInvariantViolation, h.Phase+1, err)
	}
	cards, err := h.Deck.Draw(n)
	if err != nil {
		return fmt.Errorf("%w: dealing %s: %w", ErrInvariantViolation, h.Phase+1, err)
	}
	h.Board = append(h.Board, cards...)
	h.Phase++

	h.HighestBet = 0
	h.MinRaise = h.BigBlind
	h.LastAggressor = -1
	for _, p := range h.Players {
		if p != nil {
			p.Acted = false
			p.RaiseLocked = false
		}
	}

	first := h.nextActionable(h.Dealer)
	closing := h.prevActionable(h.Dealer + 1)
	if closing == first && h.countActionable() > 1 {
		closing = h.prevActionable(first)
	}
	h.ActionClosing = closing
	h.setActor(first)
	return nil
}

// runOut deals the rest of the board once per run and settles. Every run
// burns before each street; the second run is dealt after the first.
func (h *HandState) runOut(runs int) error {
	h.CurrentActor = -1
	base := h.Board
	boards := make([][]poker.Card, runs)
	for r := range runs {
		board := append([]poker.Card(nil), base...)
		for len(board) < 5 {
			n := 1
			if len(board) == 0 {
				n = 3
			}
			if err := h.Deck.Burn(); err != nil {
				return fmt.Errorf("%w: run-out burn: %w", ErrInvariantViolation, err)
			}
			cards, err := h.Deck.Draw(n)
			if err != nil {
				return fmt.Errorf("%w: run-out deal: %w", ErrInvariantViolation, err)
			}
			board = append(board, cards...)
		}
		boards[r] = board
	}
	h.Board = boards[0]
	if runs > 1 {
		h.Runs = boards
	}
	return h.settle(boards)
}

func (h *HandState) openVote() {
	var voters SeatSet
	for seat, p := range h.Players {
		if p.InContention() {
			voters = voters.Add(seat)
		}
	}
	h.CurrentActor = -1
	h.Vote = &Vote{Voters: voters, Ballots: make(map[int]bool)}
	h.Turn++
}

// CastVote records a contender's answer to running the board twice. A single
// "no" settles the board once; the board runs twice once everyone agrees.
func (h *HandState) CastVote(playerID string, agree bool) error {
	if h.Vote == nil {
		return reject(ErrIllegalAction, "no vote in progress")
	}
	seat, p := h.Player(playerID)
	if p == nil || !h.Vote.Voters.Has(seat) {
		return reject(ErrUnknownPlayer, "player %s is not voting", playerID)
	}
	if _, voted := h.Vote.Ballots[seat]; voted {
		return reject(ErrIllegalAction, "player %s already voted", playerID)
	}
	h.Vote.Ballots[seat] = agree
	return h.tallyVote(false)
}

// CloseVote ends the vote, counting missing ballots as "no".
func (h *HandState) CloseVote() error {
	if h.Vote == nil {
		return reject(ErrIllegalAction, "no vote in progress")
	}
	return h.tallyVote(true)
}

func (h *HandState) tallyVote(closing bool) error {
	v := h.Vote
	if h.countInContention() <= 1 {
		h.Vote = nil
		return h.progress()
	}
	for _, agree := range v.Ballots {
		if !agree {
			h.Vote = nil
			return h.runOut(1)
		}
	}
	if v.Pending().Len() == 0 {
		h.Vote = nil
		return h.runOut(2)
	}
	if closing {
		h.Vote = nil
		return h.runOut(1)
	}
	return nil
}
