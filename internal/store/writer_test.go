package store

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-engine/internal/game"
)

// gatedStore blocks SaveHand until release is closed.
type gatedStore struct {
	release chan struct{}
	err     error

	mu    sync.Mutex
	saved []string
}

func newGatedStore() *gatedStore {
	return &gatedStore{release: make(chan struct{})}
}

func (s *gatedStore) SaveHand(ctx context.Context, rec game.HandRecord) error {
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, rec.HandID)
	return nil
}

func (s *gatedStore) Hand(context.Context, string) (game.HandRecord, error) {
	return game.HandRecord{}, ErrNotFound
}

func (s *gatedStore) RecentHands(context.Context, string, int) ([]HandRow, error) {
	return nil, nil
}

func (s *gatedStore) PlayerTotals(context.Context) ([]PlayerTotal, error) { return nil, nil }

func (s *gatedStore) Close() error { return nil }

func (s *gatedStore) savedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.saved...)
}

func TestWriterDoesNotWaitForStore(t *testing.T) {
	t.Parallel()
	hs := newGatedStore()
	w := NewWriter(hs, WriterConfig{Buffer: 4}, log.New(io.Discard))

	start := time.Now()
	for _, id := range []string{"h1", "h2", "h3"} {
		require.NoError(t, w.RecordHand(game.HandRecord{HandID: id, TableID: "main"}))
	}
	assert.Less(t, time.Since(start), time.Second, "RecordHand blocked on the store")
	assert.Empty(t, hs.savedIDs())

	close(hs.release)
	require.NoError(t, w.Close())
	assert.Equal(t, []string{"h1", "h2", "h3"}, hs.savedIDs())

	saved, failed, dropped := w.Stats()
	assert.EqualValues(t, 3, saved)
	assert.Zero(t, failed)
	assert.Zero(t, dropped)
}

func TestWriterDropsWhenQueueFull(t *testing.T) {
	t.Parallel()
	hs := newGatedStore()
	w := NewWriter(hs, WriterConfig{Buffer: 1}, log.New(io.Discard))

	// One hand is held by the store, one waits in the queue.
	require.NoError(t, w.RecordHand(game.HandRecord{HandID: "h1"}))
	require.Eventually(t, func() bool { return len(w.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, w.RecordHand(game.HandRecord{HandID: "h2"}))

	err := w.RecordHand(game.HandRecord{HandID: "h3"})
	require.ErrorIs(t, err, ErrQueueFull)

	close(hs.release)
	require.NoError(t, w.Close())
	assert.Equal(t, []string{"h1", "h2"}, hs.savedIDs())
	_, _, dropped := w.Stats()
	assert.EqualValues(t, 1, dropped)
}

func TestWriterCountsFailuresAndRefusesAfterClose(t *testing.T) {
	t.Parallel()
	hs := newGatedStore()
	hs.err = errors.New("db down")
	close(hs.release)
	w := NewWriter(hs, WriterConfig{}, log.New(io.Discard))

	require.NoError(t, w.RecordHand(game.HandRecord{HandID: "h1"}))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, failed, _ := w.Stats()
	assert.EqualValues(t, 1, failed)
	assert.ErrorIs(t, w.RecordHand(game.HandRecord{HandID: "h2"}), ErrWriterClosed)
}
