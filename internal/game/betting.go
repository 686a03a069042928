package game

import (
	"fmt"
	"strings"
)

// Phase is the lifecycle stage of a hand.
type Phase int

const (
	Waiting Phase = iota
	Preflop
	Flop
	Turn
	River
	Showdown
	HandOver
)

var phaseNames = [...]string{"WAITING", "PREFLOP", "FLOP", "TURN", "RIVER", "SHOWDOWN", "HAND_OVER"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "UNKNOWN"
	}
	return phaseNames[p]
}

// IsBetting reports whether players act in this phase.
func (p Phase) IsBetting() bool {
	return p >= Preflop && p <= River
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if strings.EqualFold(name, string(text)) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// ActionKind is one of the four betting actions. Bet carries an absolute
// target amount and covers both opening bets and raises.
type ActionKind int

const (
	Fold ActionKind = iota
	Check
	Call
	Bet
)

func (a ActionKind) String() string {
	switch a {
	case Fold:
		return "fold"
	case Check:
		return "check"
	case Call:
		return "call"
	case Bet:
		return "bet"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

func (a ActionKind) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *ActionKind) UnmarshalText(text []byte) error {
	kind, err := ParseActionKind(string(text))
	if err != nil {
		return err
	}
	*a = kind
	return nil
}

// ParseActionKind parses the wire name of an action. "raise" is accepted as
// an alias of "bet".
func ParseActionKind(s string) (ActionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fold":
		return Fold, nil
	case "check":
		return Check, nil
	case "call":
		return Call, nil
	case "bet", "raise":
		return Bet, nil
	}
	return 0, reject(ErrIllegalAction, "unknown action %q", s)
}

// Apply validates and applies an action by the current actor. On error the
// hand is left untouched. Apply does not move the turn; see Act.
func (h *HandState) Apply(playerID string, kind ActionKind, amount int) error {
	return h.apply(playerID, kind, amount, false)
}

func (h *HandState) apply(playerID string, kind ActionKind, amount int, forced bool) error {
	if h.Vote != nil {
		return reject(ErrIllegalAction, "waiting for the run-it-twice vote")
	}
	if !h.Phase.IsBetting() || h.CurrentActor < 0 {
		return reject(ErrNoHandInProgress, "no action is pending")
	}
	seat := h.CurrentActor
	p := h.Players[seat]
	if p == nil || p.ID != playerID {
		return reject(ErrNotYourTurn, "waiting for seat %d", seat)
	}

	toCall := h.HighestBet - p.Bet
	if kind == Bet && amount > 0 && amount == h.HighestBet {
		// betting exactly the current level is a call (or a check)
		kind = Call
		if toCall <= 0 {
			kind = Check
		}
	}

	record := ActionRecord{Seat: seat, PlayerID: p.ID, Phase: h.Phase, Forced: forced}
	event := ActionEvent{
		HandID:   h.ID,
		PlayerID: p.ID,
		Seat:     seat,
		Phase:    h.Phase,
		Kind:     kind,
		ToCall:   max(toCall, 0),
		Pot:      h.PotTotal(),
		Forced:   forced,
	}

	switch kind {
	case Fold:
		p.Folded = true
		record.Type = ActionFold

	case Check:
		if toCall > 0 {
			return reject(ErrIllegalAction, "cannot check facing a bet of %d", h.HighestBet)
		}
		record.Type = ActionCheck

	case Call:
		if toCall <= 0 {
			return reject(ErrIllegalAction, "nothing to call")
		}
		paid := min(toCall, p.Stack)
		p.pay(paid)
		record.Type = ActionCall
		record.Paid = paid

	case Bet:
		if amount <= 0 {
			return reject(ErrAmountOutOfRange, "bet amount must be positive")
		}
		added := amount - p.Bet
		if added > p.Stack {
			return reject(ErrInsufficientChips, "bet to %d needs %d chips, have %d", amount, added, p.Stack)
		}
		if amount < h.HighestBet {
			return reject(ErrAmountOutOfRange, "bet to %d is below the current bet of %d", amount, h.HighestBet)
		}
		if p.RaiseLocked {
			return reject(ErrIllegalAction, "action was not reopened; call or fold")
		}
		raiseSize := amount - h.HighestBet
		allIn := added == p.Stack
		if raiseSize < h.MinRaise && !allIn {
			return reject(ErrBelowMinRaise, "minimum bet is to %d", h.HighestBet+h.MinRaise)
		}

		record.Type = ActionBet
		if h.HighestBet > 0 {
			record.Type = ActionRaise
		}
		event.Aggressive = true
		p.pay(added)
		record.Paid = added

		previous := h.HighestBet
		h.HighestBet = amount
		if raiseSize >= h.MinRaise {
			h.MinRaise = raiseSize
			h.LastAggressor = seat
			h.ActionClosing = h.prevActionable(seat)
			for i, o := range h.Players {
				if i == seat || !o.CanAct() {
					continue
				}
				o.Acted = false
				o.RaiseLocked = false
			}
		} else {
			// Short all-in: everyone must respond, but seats that already
			// matched the previous bet may only call or fold.
			for i, o := range h.Players {
				if i == seat || !o.CanAct() {
					continue
				}
				if o.Acted && o.Bet == previous {
					o.RaiseLocked = true
				}
				o.Acted = false
			}
		}
	}

	p.Acted = true
	record.Amount = p.Bet
	record.AllIn = p.AllIn
	event.Amount = p.Bet
	event.Paid = record.Paid
	event.AllIn = p.AllIn
	h.Actions = append(h.Actions, record)
	h.events = append(h.events, event)
	return nil
}

// ActionOptions describes what the current actor may do.
type ActionOptions struct {
	Seat     int          `json:"seat"`
	PlayerID string       `json:"player_id"`
	Actions  []ActionKind `json:"actions"`
	ToCall   int          `json:"to_call"`
	MinBet   int          `json:"min_bet,omitempty"` // Smallest legal bet-to amount
	MaxBet   int          `json:"max_bet,omitempty"` // All-in bet-to amount
}

// ValidActions returns the legal actions for the current actor. ok is false
// when no one is to act.
func (h *HandState) ValidActions() (ActionOptions, bool) {
	if !h.Phase.IsBetting() || h.CurrentActor < 0 || h.Vote != nil {
		return ActionOptions{}, false
	}
	p := h.Players[h.CurrentActor]
	if !p.CanAct() {
		return ActionOptions{}, false
	}

	opts := ActionOptions{Seat: h.CurrentActor, PlayerID: p.ID}
	toCall := max(h.HighestBet-p.Bet, 0)
	opts.ToCall = min(toCall, p.Stack)
	opts.Actions = append(opts.Actions, Fold)
	if toCall == 0 {
		opts.Actions = append(opts.Actions, Check)
	} else {
		opts.Actions = append(opts.Actions, Call)
	}
	if p.Stack > toCall && !p.RaiseLocked {
		opts.Actions = append(opts.Actions, Bet)
		opts.MaxBet = p.Bet + p.Stack
		opts.MinBet = min(h.HighestBet+h.MinRaise, opts.MaxBet)
	}
	return opts, true
}
