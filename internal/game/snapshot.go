package game

import (
	"github.com/lox/holdem-engine/poker"
)

// SeatView is one seat in a Snapshot.
type SeatView struct {
	Seat        int          `json:"seat"`
	PlayerID    string       `json:"player_id"`
	Name        string       `json:"name"`
	Stack       int          `json:"stack"`
	Bet         int          `json:"bet"`
	Contributed int          `json:"contributed"`
	Position    string       `json:"position,omitempty"`
	InHand      bool         `json:"in_hand"`
	Folded      bool         `json:"folded"`
	AllIn       bool         `json:"all_in"`
	HoleCards   []poker.Card `json:"hole_cards,omitempty"`
}

// VoteView is the public state of a run-it-twice vote.
type VoteView struct {
	Voters  SeatSet `json:"voters"`
	Pending SeatSet `json:"pending"`
}

// Snapshot is a read-only projection of a table for one viewer. Hole cards
// are only included for the viewer's own seat and for hands shown down.
type Snapshot struct {
	TableID      string         `json:"table_id"`
	HandID       string         `json:"hand_id,omitempty"`
	HandNumber   int            `json:"hand_number"`
	Phase        Phase          `json:"phase"`
	Board        []poker.Card   `json:"board"`
	Runs         [][]poker.Card `json:"runs,omitempty"`
	Dealer       int            `json:"dealer"`
	CurrentActor int            `json:"current_actor"`
	Turn         int            `json:"turn"`
	SmallBlind   int            `json:"small_blind"`
	BigBlind     int            `json:"big_blind"`
	HighestBet   int            `json:"highest_bet"`
	MinRaise     int            `json:"min_raise"`
	Pots         []Pot          `json:"pots"`
	Seats        []SeatView     `json:"seats"`
	Winners      []Winner       `json:"winners,omitempty"`
	Vote         *VoteView      `json:"vote,omitempty"`
	Spectators   []string       `json:"spectators,omitempty"`
}

// Snapshot projects the hand for viewerID. An empty viewer sees no hole
// cards until showdown.
func (h *HandState) Snapshot(viewerID string) Snapshot {
	s := Snapshot{
		HandID:       h.ID,
		HandNumber:   h.Number,
		Phase:        h.Phase,
		Board:        append([]poker.Card{}, h.Board...),
		Dealer:       h.Dealer,
		CurrentActor: h.CurrentActor,
		Turn:         h.Turn,
		SmallBlind:   h.SmallBlind,
		BigBlind:     h.BigBlind,
		HighestBet:   h.HighestBet,
		MinRaise:     h.MinRaise,
		Pots:         append([]Pot{}, h.Pots...),
		Winners:      append([]Winner(nil), h.Winners...),
	}
	for _, run := range h.Runs {
		s.Runs = append(s.Runs, append([]poker.Card(nil), run...))
	}
	if h.Vote != nil {
		s.Vote = &VoteView{Voters: h.Vote.Voters, Pending: h.Vote.Pending()}
	}
	for seat, p := range h.Players {
		if p == nil {
			continue
		}
		view := SeatView{
			Seat:        seat,
			PlayerID:    p.ID,
			Name:        p.Name,
			Stack:       p.Stack,
			Bet:         p.Bet,
			Contributed: p.Contributed,
			Position:    p.Position,
			InHand:      true,
			Folded:      p.Folded,
			AllIn:       p.AllIn,
		}
		if p.ID == viewerID || (h.Showdown.Has(seat) && h.Phase >= Showdown) {
			view.HoleCards = append([]poker.Card(nil), p.HoleCards...)
		}
		s.Seats = append(s.Seats, view)
	}
	return s
}
