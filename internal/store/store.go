// Package store defines the persistent hand history contract shared by the
// SQL backends and adapts it to the table's history collaborator.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/lox/holdem-engine/internal/game"
)

// ErrNotFound is returned when a hand does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicate is returned when a hand id was already saved.
var ErrDuplicate = errors.New("store: duplicate hand")

// HandRow is a stored hand without its full action log.
type HandRow struct {
	HandID    string    `json:"hand_id"`
	TableID   string    `json:"table_id"`
	Number    int       `json:"number"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	BigBlind  int       `json:"big_blind"`
	Pot       int       `json:"pot"`
}

// PlayerTotal is a player's lifetime result across stored hands.
type PlayerTotal struct {
	PlayerID string `json:"player_id"`
	Hands    int    `json:"hands"`
	Net      int    `json:"net"`
}

// HandStore persists finished hands.
type HandStore interface {
	SaveHand(ctx context.Context, rec game.HandRecord) error
	Hand(ctx context.Context, handID string) (game.HandRecord, error)
	RecentHands(ctx context.Context, tableID string, limit int) ([]HandRow, error)
	PlayerTotals(ctx context.Context) ([]PlayerTotal, error)
	Close() error
}

// Sinks fans a hand out to several collaborators, reporting every failure.
type Sinks []game.HistorySink

// RecordHand implements game.HistorySink.
func (s Sinks) RecordHand(rec game.HandRecord) error {
	var errs []error
	for _, sink := range s {
		if err := sink.RecordHand(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Pot returns the chips awarded in a record.
func Pot(rec game.HandRecord) int {
	pot := 0
	for _, p := range rec.Pots {
		pot += p.Amount
	}
	return pot
}
