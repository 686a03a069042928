// Package postgres stores hand histories in PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lox/holdem-engine/internal/game"
	"github.com/lox/holdem-engine/internal/store"
)

//go:embed schema.sql
var schema embed.FS

// DB is a pooled PostgreSQL hand store.
type DB struct{ *pgxpool.Pool }

var _ store.HandStore = (*DB)(nil)

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*DB, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db := &DB{p}
	if err := db.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		p.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the embedded schema. It is idempotent.
func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (db *DB) Close() error {
	db.Pool.Close()
	return nil
}

// SaveHand inserts a finished hand and its seats in one transaction.
func (db *DB) SaveHand(ctx context.Context, rec game.HandRecord) error {
	if rec.HandID == "" {
		return fmt.Errorf("hand id is required")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode hand %s: %w", rec.HandID, err)
	}

	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO hands (hand_id, table_id, number, started_at, ended_at, big_blind, pot, record)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (hand_id) DO NOTHING
		`, rec.HandID, rec.TableID, rec.Number, rec.StartedAt.UTC(), rec.EndedAt.UTC(), rec.BigBlind, store.Pot(rec), data)
		if err != nil {
			return fmt.Errorf("insert hand %s: %w", rec.HandID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("hand %s: %w", rec.HandID, store.ErrDuplicate)
		}

		batch := &pgx.Batch{}
		for _, seat := range rec.Seats {
			batch.Queue(`
				INSERT INTO hand_players (hand_id, seat, player_id, start_stack, end_stack)
				VALUES ($1, $2, $3, $4, $5)
			`, rec.HandID, seat.Seat, seat.PlayerID, seat.StartStack, seat.EndStack)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert seats of hand %s: %w", rec.HandID, err)
		}
		return nil
	})
}

// Hand loads a full hand record.
func (db *DB) Hand(ctx context.Context, handID string) (game.HandRecord, error) {
	var data []byte
	err := db.QueryRow(ctx, `SELECT record FROM hands WHERE hand_id = $1`, handID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return game.HandRecord{}, fmt.Errorf("hand %s: %w", handID, store.ErrNotFound)
	}
	if err != nil {
		return game.HandRecord{}, fmt.Errorf("get hand %s: %w", handID, err)
	}
	var rec game.HandRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return game.HandRecord{}, fmt.Errorf("decode hand %s: %w", handID, err)
	}
	return rec, nil
}

// RecentHands lists a table's latest hands, newest first.
func (db *DB) RecentHands(ctx context.Context, tableID string, limit int) ([]store.HandRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(ctx, `
		SELECT hand_id, table_id, number, started_at, ended_at, big_blind, pot
		  FROM hands WHERE table_id = $1
		 ORDER BY started_at DESC, number DESC LIMIT $2
	`, tableID, limit)
	if err != nil {
		return nil, fmt.Errorf("list hands: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.HandRow, error) {
		var h store.HandRow
		err := row.Scan(&h.HandID, &h.TableID, &h.Number, &h.StartedAt, &h.EndedAt, &h.BigBlind, &h.Pot)
		h.StartedAt = h.StartedAt.UTC()
		h.EndedAt = h.EndedAt.UTC()
		return h, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan hands: %w", err)
	}
	return out, nil
}

// PlayerTotals sums every player's result, biggest winner first.
func (db *DB) PlayerTotals(ctx context.Context) ([]store.PlayerTotal, error) {
	rows, err := db.Query(ctx, `
		SELECT player_id, COUNT(*)::int, COALESCE(SUM(end_stack - start_stack), 0)::int AS net
		  FROM hand_players GROUP BY player_id
		 ORDER BY net DESC, player_id
	`)
	if err != nil {
		return nil, fmt.Errorf("player totals: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.PlayerTotal, error) {
		var p store.PlayerTotal
		err := row.Scan(&p.PlayerID, &p.Hands, &p.Net)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan player totals: %w", err)
	}
	return out, nil
}
