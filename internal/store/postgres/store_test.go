package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-engine/internal/game"
	"github.com/lox/holdem-engine/internal/store"
)

// Set HOLDEM_POSTGRES_DSN to run against a live database.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("HOLDEM_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HOLDEM_POSTGRES_DSN not set")
	}
	db, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveAndLoadHand(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	table := "pg-" + uuid.NewString()
	started := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	rec := game.HandRecord{
		TableID:   table,
		HandID:    uuid.NewString(),
		Number:    1,
		StartedAt: started,
		EndedAt:   started.Add(time.Minute),
		BigBlind:  2,
		Seats: []game.SeatRecord{
			{Seat: 0, PlayerID: table + "-a", StartStack: 100, EndStack: 104},
			{Seat: 1, PlayerID: table + "-b", StartStack: 100, EndStack: 96},
		},
		Pots: []game.PotResult{{Amount: 8, Eligible: game.NewSeatSet(0, 1), Winners: []int{0}, Shares: []int{8}}},
	}
	require.NoError(t, db.SaveHand(ctx, rec))
	assert.ErrorIs(t, db.SaveHand(ctx, rec), store.ErrDuplicate)

	got, err := db.Hand(ctx, rec.HandID)
	require.NoError(t, err)
	assert.Equal(t, rec.Seats, got.Seats)

	rows, err := db.RecentHands(ctx, table, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 8, rows[0].Pot)
	assert.True(t, started.Equal(rows[0].StartedAt))

	_, err = db.Hand(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOpenBadDSN(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), "postgres://%zz")
	require.Error(t, err)
}
