package game

import (
	"time"

	"github.com/lox/holdem-engine/poker"
)

// ActionType labels entries in a hand's action log.
type ActionType string

const (
	ActionSmallBlind ActionType = "small_blind"
	ActionBigBlind   ActionType = "big_blind"
	ActionFold       ActionType = "fold"
	ActionCheck      ActionType = "check"
	ActionCall       ActionType = "call"
	ActionBet        ActionType = "bet"
	ActionRaise      ActionType = "raise"
)

// ActionRecord is one entry of the action log. Amount is the seat's street
// bet after the action; Paid is what the action moved from the stack.
type ActionRecord struct {
	Seat     int        `json:"seat"`
	PlayerID string     `json:"player_id"`
	Phase    Phase      `json:"phase"`
	Type     ActionType `json:"type"`
	Amount   int        `json:"amount"`
	Paid     int        `json:"paid"`
	AllIn    bool       `json:"all_in,omitempty"`
	Forced   bool       `json:"forced,omitempty"`
}

// ActionEvent is delivered to the stats collaborator for every accepted action.
type ActionEvent struct {
	TableID    string     `json:"table_id"`
	HandID     string     `json:"hand_id"`
	PlayerID   string     `json:"player_id"`
	Seat       int        `json:"seat"`
	Phase      Phase      `json:"phase"`
	Kind       ActionKind `json:"kind"`
	Amount     int        `json:"amount"`
	Paid       int        `json:"paid"`
	ToCall     int        `json:"to_call"`
	Pot        int        `json:"pot"`
	Aggressive bool       `json:"aggressive,omitempty"`
	AllIn      bool       `json:"all_in,omitempty"`
	Forced     bool       `json:"forced,omitempty"`
}

// PotResult records how one pot layer was settled on one board.
type PotResult struct {
	Run      int     `json:"run"`
	Layer    int     `json:"layer"`
	Amount   int     `json:"amount"`
	Eligible SeatSet `json:"eligible"`
	Winners  []int   `json:"winners"`
	Shares   []int   `json:"shares"`
	Hand     string  `json:"hand,omitempty"`
	Uncalled bool    `json:"uncalled,omitempty"` // Returned to its contributors
}

// Winner aggregates a player's winnings across pot layers and runs.
type Winner struct {
	Seat     int    `json:"seat"`
	PlayerID string `json:"player_id"`
	Amount   int    `json:"amount"`
	Hand     string `json:"hand,omitempty"`
}

// SeatRecord is a seat's view of a finished hand.
type SeatRecord struct {
	Seat       int          `json:"seat"`
	PlayerID   string       `json:"player_id"`
	Name       string       `json:"name"`
	Position   string       `json:"position"`
	StartStack int          `json:"start_stack"`
	EndStack   int          `json:"end_stack"`
	HoleCards  []poker.Card `json:"hole_cards"`
	Folded     bool         `json:"folded"`
	Showdown   bool         `json:"showdown"`
}

// HandRecord is the complete history of one hand.
type HandRecord struct {
	TableID    string         `json:"table_id"`
	HandID     string         `json:"hand_id"`
	Number     int            `json:"number"`
	StartedAt  time.Time      `json:"started_at"`
	EndedAt    time.Time      `json:"ended_at"`
	SmallBlind int            `json:"small_blind"`
	BigBlind   int            `json:"big_blind"`
	Dealer     int            `json:"dealer"`
	Seats      []SeatRecord   `json:"seats"`
	Board      []poker.Card   `json:"board"`
	Runs       [][]poker.Card `json:"runs,omitempty"`
	Actions    []ActionRecord `json:"actions"`
	Pots       []PotResult    `json:"pots"`
	Winners    []Winner       `json:"winners"`
}

// PlayerSummary is one player's outcome in a HandSummary.
type PlayerSummary struct {
	PlayerID      string `json:"player_id"`
	Seat          int    `json:"seat"`
	Position      string `json:"position"`
	HoleCards     string `json:"hole_cards"`
	Net           int    `json:"net"`
	VPIP          bool   `json:"vpip"`
	PFR           bool   `json:"pfr"`
	Aggressive    int    `json:"aggressive"` // bets and raises
	Calls         int    `json:"calls"`
	SawFlop       bool   `json:"saw_flop"`
	WentShowdown  bool   `json:"went_showdown"`
	WonAtShowdown bool   `json:"won_at_showdown"`
	Won           bool   `json:"won"`
}

// HandSummary is delivered to the stats collaborator when a hand ends.
type HandSummary struct {
	TableID  string          `json:"table_id"`
	HandID   string          `json:"hand_id"`
	BigBlind int             `json:"big_blind"`
	Players  []PlayerSummary `json:"players"`
}

// StatsSink receives action and hand events. Implementations must not block;
// errors are logged by the table and never affect play.
type StatsSink interface {
	RecordAction(ActionEvent) error
	RecordHand(HandSummary) error
}

// HistorySink receives every finished hand.
type HistorySink interface {
	RecordHand(HandRecord) error
}
