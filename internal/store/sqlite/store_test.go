package sqlite

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-engine/internal/game"
	"github.com/lox/holdem-engine/internal/store"
	"github.com/lox/holdem-engine/poker"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "hands.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func handRecord(id string, number int, started time.Time, net int) game.HandRecord {
	return game.HandRecord{
		TableID:   "main",
		HandID:    id,
		Number:    number,
		StartedAt: started,
		EndedAt:   started.Add(time.Minute),
		BigBlind:  2,
		Board:     poker.MustParseCards("As Kd 7c"),
		Seats: []game.SeatRecord{
			{Seat: 0, PlayerID: "alice", StartStack: 100, EndStack: 100 + net},
			{Seat: 3, PlayerID: "bob", StartStack: 100, EndStack: 100 - net},
		},
		Pots:    []game.PotResult{{Amount: 2 * net, Eligible: game.NewSeatSet(0, 3), Winners: []int{0}, Shares: []int{2 * net}}},
		Winners: []game.Winner{{Seat: 0, PlayerID: "alice", Amount: 2 * net}},
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()
	_, err := Open(" ")
	require.Error(t, err)
}

func TestSaveAndLoadHand(t *testing.T) {
	t.Parallel()
	s := openTempStore(t)
	ctx := context.Background()
	started := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)

	rec := handRecord("h1", 1, started, 10)
	require.NoError(t, s.SaveHand(ctx, rec))

	got, err := s.Hand(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, rec.HandID, got.HandID)
	assert.Equal(t, rec.Board, got.Board)
	assert.Equal(t, rec.Pots[0].Eligible, got.Pots[0].Eligible)
	assert.True(t, rec.StartedAt.Equal(got.StartedAt))

	err = s.SaveHand(ctx, rec)
	assert.ErrorIs(t, err, store.ErrDuplicate)

	_, err = s.Hand(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecentHandsAndTotals(t *testing.T) {
	t.Parallel()
	s := openTempStore(t)
	ctx := context.Background()
	start := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	for i, net := range []int{10, -4, 6} {
		require.NoError(t, s.SaveHand(ctx, handRecord(string(rune('a'+i)), i+1, start.Add(time.Duration(i)*time.Minute), net)))
	}

	rows, err := s.RecentHands(ctx, "main", 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "c", rows[0].HandID)
	assert.Equal(t, 12, rows[0].Pot)
	assert.Equal(t, "b", rows[1].HandID)

	totals, err := s.PlayerTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []store.PlayerTotal{
		{PlayerID: "alice", Hands: 3, Net: 12},
		{PlayerID: "bob", Hands: 3, Net: -12},
	}, totals)
}

func TestWriterSavesHands(t *testing.T) {
	t.Parallel()
	s := openTempStore(t)
	w := store.NewWriter(s, store.WriterConfig{}, log.New(io.Discard))
	require.NoError(t, w.RecordHand(handRecord("h1", 1, time.Now(), 2)))
	require.NoError(t, w.Close())
	_, err := s.Hand(context.Background(), "h1")
	require.NoError(t, err)
}
