// Package sqlite stores hand histories in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/lox/holdem-engine/internal/game"
	"github.com/lox/holdem-engine/internal/store"
)

//go:embed schema.sql
var schema string

// Store persists hands in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ store.HandStore = (*Store)(nil)

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveHand inserts a finished hand and its seats in one transaction.
func (s *Store) SaveHand(ctx context.Context, rec game.HandRecord) error {
	if rec.HandID == "" {
		return fmt.Errorf("hand id is required")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode hand %s: %w", rec.HandID, err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO hands (hand_id, table_id, number, started_at, ended_at, big_blind, pot, record)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.HandID, rec.TableID, rec.Number, toMillis(rec.StartedAt), toMillis(rec.EndedAt),
		rec.BigBlind, store.Pot(rec), string(data),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("hand %s: %w", rec.HandID, store.ErrDuplicate)
		}
		return fmt.Errorf("insert hand %s: %w", rec.HandID, err)
	}
	for _, seat := range rec.Seats {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO hand_players (hand_id, seat, player_id, start_stack, end_stack) VALUES (?, ?, ?, ?, ?)`,
			rec.HandID, seat.Seat, seat.PlayerID, seat.StartStack, seat.EndStack,
		)
		if err != nil {
			return fmt.Errorf("insert seat %d of hand %s: %w", seat.Seat, rec.HandID, err)
		}
	}
	return tx.Commit()
}

// Hand loads a full hand record.
func (s *Store) Hand(ctx context.Context, handID string) (game.HandRecord, error) {
	var data string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT record FROM hands WHERE hand_id = ?`, handID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return game.HandRecord{}, fmt.Errorf("hand %s: %w", handID, store.ErrNotFound)
	}
	if err != nil {
		return game.HandRecord{}, fmt.Errorf("get hand %s: %w", handID, err)
	}
	var rec game.HandRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return game.HandRecord{}, fmt.Errorf("decode hand %s: %w", handID, err)
	}
	return rec, nil
}

// RecentHands lists a table's latest hands, newest first.
func (s *Store) RecentHands(ctx context.Context, tableID string, limit int) ([]store.HandRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT hand_id, table_id, number, started_at, ended_at, big_blind, pot
		   FROM hands WHERE table_id = ?
		  ORDER BY started_at DESC, number DESC LIMIT ?`,
		tableID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list hands: %w", err)
	}
	defer rows.Close()

	var out []store.HandRow
	for rows.Next() {
		var row store.HandRow
		var started, ended int64
		if err := rows.Scan(&row.HandID, &row.TableID, &row.Number, &started, &ended, &row.BigBlind, &row.Pot); err != nil {
			return nil, fmt.Errorf("scan hand: %w", err)
		}
		row.StartedAt = fromMillis(started)
		row.EndedAt = fromMillis(ended)
		out = append(out, row)
	}
	return out, rows.Err()
}

// PlayerTotals sums every player's result, biggest winner first.
func (s *Store) PlayerTotals(ctx context.Context) ([]store.PlayerTotal, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT player_id, COUNT(*), SUM(end_stack - start_stack)
		   FROM hand_players GROUP BY player_id
		  ORDER BY SUM(end_stack - start_stack) DESC, player_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("player totals: %w", err)
	}
	defer rows.Close()

	var out []store.PlayerTotal
	for rows.Next() {
		var p store.PlayerTotal
		if err := rows.Scan(&p.PlayerID, &p.Hands, &p.Net); err != nil {
			return nil, fmt.Errorf("scan player total: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
