package server

import (
	"encoding/json"
	"time"

	"github.com/lox/holdem-engine/internal/game"
	"github.com/lox/holdem-engine/poker"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type AuthData struct {
	PlayerName string `json:"playerName"`
}

type JoinTableData struct {
	TableID    string `json:"tableId"`
	SeatNumber *int   `json:"seatNumber,omitempty"`
	BuyIn      int    `json:"buyIn"`
}

type LeaveTableData struct {
	TableID string `json:"tableId"`
}

type SpectateData struct {
	TableID string `json:"tableId"`
}

type PlayerActionData struct {
	TableID string `json:"tableId"`
	Action  string `json:"action"`
	Amount  int    `json:"amount,omitempty"`
}

type VoteData struct {
	TableID string `json:"tableId"`
	Agree   bool   `json:"agree"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TableInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	Stakes      string `json:"stakes"`
	Status      string `json:"status"`
	HandCount   int    `json:"handCount"`
}

type TableListData struct {
	Tables []TableInfo `json:"tables"`
}

type TableJoinedData struct {
	TableID    string `json:"tableId"`
	SeatNumber int    `json:"seatNumber"`
	Spectator  bool   `json:"spectator,omitempty"`
}

type TableLeftData struct {
	TableID string `json:"tableId"`
}

type TableStateData struct {
	TableID string        `json:"tableId"`
	State   game.Snapshot `json:"state"`
}

type ActionRequiredData struct {
	TableID        string   `json:"tableId"`
	HandID         string   `json:"handId"`
	Turn           int      `json:"turn"`
	ValidActions   []string `json:"validActions"`
	ToCall         int      `json:"toCall"`
	MinBet         int      `json:"minBet"`
	MaxBet         int      `json:"maxBet"`
	TimeoutSeconds int      `json:"timeoutSeconds"`
}

type VoteRequiredData struct {
	TableID        string `json:"tableId"`
	HandID         string `json:"handId"`
	Turn           int    `json:"turn"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

type ActionAcceptedData struct {
	TableID string `json:"tableId"`
	Action  string `json:"action"`
	Amount  int    `json:"amount,omitempty"`
}

type ActionRejectedData struct {
	TableID string `json:"tableId"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HandResultData struct {
	TableID string         `json:"tableId"`
	HandID  string         `json:"handId"`
	Board   []poker.Card   `json:"board"`
	Runs    [][]poker.Card `json:"runs,omitempty"`
	Winners []game.Winner  `json:"winners"`
}

// ActionRequiredFromOptions converts the engine's legal action set.
func ActionRequiredFromOptions(tableID string, ts game.TurnState, opts game.ActionOptions, timeout time.Duration) ActionRequiredData {
	actions := make([]string, len(opts.Actions))
	for i, a := range opts.Actions {
		actions[i] = a.String()
	}
	return ActionRequiredData{
		TableID:        tableID,
		HandID:         ts.HandID,
		Turn:           ts.Turn,
		ValidActions:   actions,
		ToCall:         opts.ToCall,
		MinBet:         opts.MinBet,
		MaxBet:         opts.MaxBet,
		TimeoutSeconds: int(timeout / time.Second),
	}
}
