package game

import (
	"errors"
	"fmt"
)

// Rejection reasons. Every rejected action wraps exactly one of these.
var (
	ErrNotYourTurn       = errors.New("not your turn")
	ErrIllegalAction     = errors.New("illegal action")
	ErrAmountOutOfRange  = errors.New("amount out of range")
	ErrBelowMinRaise     = errors.New("raise below minimum")
	ErrInsufficientChips = errors.New("insufficient chips")
	ErrNoHandInProgress  = errors.New("no hand in progress")
	ErrUnknownPlayer     = errors.New("unknown player")
)

// Table-level failures.
var (
	ErrInvariantViolation = errors.New("invariant violation")
	ErrTableHalted        = errors.New("table halted")
	ErrHandInProgress     = errors.New("hand in progress")
	ErrSeatTaken          = errors.New("seat taken")
	ErrTableFull          = errors.New("table full")
	ErrNotEnoughPlayers   = errors.New("not enough players")
	ErrAlreadySeated      = errors.New("already seated")
)

var errorCodes = map[error]string{
	ErrNotYourTurn:        "not_your_turn",
	ErrIllegalAction:      "illegal_action",
	ErrAmountOutOfRange:   "amount_out_of_range",
	ErrBelowMinRaise:      "below_min_raise",
	ErrInsufficientChips:  "insufficient_chips",
	ErrNoHandInProgress:   "no_hand_in_progress",
	ErrUnknownPlayer:      "unknown_player",
	ErrInvariantViolation: "invariant_violation",
	ErrTableHalted:        "table_halted",
	ErrHandInProgress:     "hand_in_progress",
	ErrSeatTaken:          "seat_taken",
	ErrTableFull:          "table_full",
	ErrNotEnoughPlayers:   "not_enough_players",
	ErrAlreadySeated:      "already_seated",
}

// ActionError is returned for every rejected request. Code is the stable
// machine-readable reason sent to clients.
type ActionError struct {
	Code    string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return e.Message
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func reject(reason error, format string, args ...any) *ActionError {
	return &ActionError{
		Code:    errorCodes[reason],
		Message: fmt.Sprintf(format, args...),
		Err:     reason,
	}
}

// ErrorCode extracts the wire code from err, falling back to "internal_error".
func ErrorCode(err error) string {
	var ae *ActionError
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	for sentinel, code := range errorCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return "internal_error"
}
