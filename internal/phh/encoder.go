// Package phh converts finished hands to the Poker Hand History format
// (https://phh.readthedocs.io) and reads PHH session files back.
package phh

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/lox/holdem-engine/internal/game"
	"github.com/lox/holdem-engine/poker"
)

// VariantNoLimitHoldem is the PHH code for no-limit Texas hold'em.
const VariantNoLimitHoldem = "NT"

// Encode writes the hand history to w as PHH TOML.
func Encode(w io.Writer, hand *HandHistory) error {
	if hand == nil {
		return fmt.Errorf("phh: hand history is nil")
	}
	populateTimeFields(hand)
	enc := toml.NewEncoder(w)
	enc.Indent = "\t"
	return enc.Encode(hand)
}

// EncodeSection writes one numbered hand of a .phhs session file.
func EncodeSection(w io.Writer, section int, hand *HandHistory) error {
	if hand == nil {
		return fmt.Errorf("phh: hand history is nil")
	}
	populateTimeFields(hand)
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	if err := enc.Encode(map[string]*HandHistory{strconv.Itoa(section): hand}); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// DecodeSession reads a .phhs session file. Hands are returned in section
// order.
func DecodeSession(r io.Reader) ([]*HandHistory, error) {
	var sections map[string]*HandHistory
	if _, err := toml.NewDecoder(r).Decode(&sections); err != nil {
		return nil, fmt.Errorf("phh: decode session: %w", err)
	}
	keys := make([]int, 0, len(sections))
	for k := range sections {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("phh: section %q is not numbered", k)
		}
		keys = append(keys, n)
	}
	sort.Ints(keys)
	hands := make([]*HandHistory, 0, len(keys))
	for _, k := range keys {
		hands = append(hands, sections[strconv.Itoa(k)])
	}
	return hands, nil
}

// FromRecord converts a hand record. Players are ordered from the seat left of
// the button round to the button, as PHH expects. Hole cards of players who did
// not show down are masked unless includeHoleCards is set.
func FromRecord(rec game.HandRecord, includeHoleCards bool) *HandHistory {
	order := seatOrder(rec)
	index := make(map[int]int, len(order))
	for i, s := range order {
		index[s.Seat] = i
	}

	n := len(order)
	h := &HandHistory{
		Variant:           VariantNoLimitHoldem,
		Table:             rec.TableID,
		SeatCount:         n,
		Antes:             make([]int, n),
		BlindsOrStraddles: make([]int, n),
		MinBet:            rec.BigBlind,
		StartingStacks:    make([]int, n),
		FinishingStacks:   make([]int, n),
		Winnings:          make([]int, n),
		HandID:            rec.HandID,
		Timestamp:         rec.StartedAt,
		Metadata: map[string]any{
			"hand_number": rec.Number,
		},
	}
	for i, s := range order {
		h.Seats = append(h.Seats, s.Seat+1)
		h.Players = append(h.Players, s.PlayerID)
		h.StartingStacks[i] = s.StartStack
		h.FinishingStacks[i] = s.EndStack
	}
	for _, w := range rec.Winners {
		if i, ok := index[w.Seat]; ok {
			h.Winnings[i] = w.Amount
		}
	}

	for i, s := range order {
		cards := "????"
		if includeHoleCards || s.Showdown {
			cards = joinCards(s.HoleCards)
		}
		h.Actions = append(h.Actions, fmt.Sprintf("d dh p%d %s", i+1, cards))
	}

	dealt := 0
	dealBoard := func(upTo game.Phase) {
		for want := boardSize(upTo); dealt < want && dealt < len(rec.Board); {
			next := boardSize(streetAfter(dealt))
			h.Actions = append(h.Actions, "d db "+joinCards(rec.Board[dealt:min(next, len(rec.Board))]))
			dealt = min(next, len(rec.Board))
		}
	}
	for _, a := range rec.Actions {
		i, ok := index[a.Seat]
		if !ok {
			continue
		}
		switch a.Type {
		case game.ActionSmallBlind, game.ActionBigBlind:
			h.BlindsOrStraddles[i] = a.Paid
			continue
		}
		dealBoard(a.Phase)
		if action, ok := FormatAction(i, a); ok {
			h.Actions = append(h.Actions, action)
		}
	}
	dealBoard(game.River)

	if len(rec.Runs) > 1 {
		h.Metadata["runs"] = len(rec.Runs)
		for r, board := range rec.Runs[1:] {
			shared := commonPrefix(rec.Runs[0], board)
			if shared < len(board) {
				h.Actions = append(h.Actions, fmt.Sprintf("d db %s # run %d", joinCards(board[shared:]), r+2))
			}
		}
	}

	for i, s := range order {
		if s.Showdown {
			h.Actions = append(h.Actions, fmt.Sprintf("p%d sm %s", i+1, joinCards(s.HoleCards)))
		}
	}
	return h
}

// FormatAction converts a betting action to PHH notation. Blind posts are
// carried by blinds_or_straddles and report false.
func FormatAction(player int, a game.ActionRecord) (string, bool) {
	p := fmt.Sprintf("p%d", player+1)
	var action string
	switch a.Type {
	case game.ActionFold:
		action = p + " f"
	case game.ActionCheck, game.ActionCall:
		action = p + " cc"
	case game.ActionBet, game.ActionRaise:
		action = fmt.Sprintf("%s cbr %d", p, a.Amount)
	default:
		return "", false
	}
	if a.Forced {
		action += " # timeout"
	}
	return action, true
}

func seatOrder(rec game.HandRecord) []game.SeatRecord {
	seats := slices.Clone(rec.Seats)
	slices.SortFunc(seats, func(a, b game.SeatRecord) int {
		return distance(rec.Dealer, a.Seat) - distance(rec.Dealer, b.Seat)
	})
	return seats
}

// distance counts seats clockwise from the seat after the button, so the
// button itself sorts last.
func distance(dealer, seat int) int {
	d := seat - dealer - 1
	if d < 0 {
		d += game.MaxSeats
	}
	return d
}

func boardSize(p game.Phase) int {
	switch p {
	case game.Flop:
		return 3
	case game.Turn:
		return 4
	case game.River, game.Showdown, game.HandOver:
		return 5
	}
	return 0
}

func streetAfter(dealt int) game.Phase {
	switch {
	case dealt < 3:
		return game.Flop
	case dealt < 4:
		return game.Turn
	}
	return game.River
}

func commonPrefix(a, b []poker.Card) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func joinCards(cards []poker.Card) string {
	return strings.Join(poker.FormatCards(cards), "")
}

func populateTimeFields(hist *HandHistory) {
	t := hist.Timestamp
	if t.IsZero() {
		return
	}
	utc := t.UTC()
	hist.Time = utc.Format("15:04:05")
	hist.TimeZone = "UTC"
	hist.Day = utc.Day()
	hist.Month = int(utc.Month())
	hist.Year = utc.Year()
}
