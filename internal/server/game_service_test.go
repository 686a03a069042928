package server

import (
	"context"
	"encoding/json"
	"io"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-engine/internal/game"
)

// recordingNotifier stores every message per player.
type recordingNotifier struct {
	mu      sync.Mutex
	viewers map[string][]string
	msgs    map[string][]*Message
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{viewers: make(map[string][]string), msgs: make(map[string][]*Message)}
}

func (n *recordingNotifier) watch(tableID string, players ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.viewers[tableID] = append(n.viewers[tableID], players...)
}

func (n *recordingNotifier) SendToPlayer(playerID string, msg *Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs[playerID] = append(n.msgs[playerID], msg)
	return nil
}

func (n *recordingNotifier) TableViewers(tableID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.viewers[tableID]...)
}

func (n *recordingNotifier) count(playerID string, typ MessageType) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.msgs[playerID] {
		if m.Type == typ {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) last(t *testing.T, playerID string, typ MessageType, v any) {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	msgs := n.msgs[playerID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == typ {
			require.NoError(t, json.Unmarshal(msgs[i].Data, v))
			return
		}
	}
	t.Fatalf("no %s message for %s", typ, playerID)
}

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func testTable(runItTwice bool) TableConfig {
	return TableConfig{
		Name:          "main",
		Seats:         6,
		SmallBlind:    1,
		BigBlind:      2,
		BuyInMin:      100,
		BuyInMax:      200,
		RunItTwice:    runItTwice,
		ActionTimeout: "30s",
		VoteTimeout:   "10s",
		NextHandDelay: "2s",
	}
}

// newTestService seats alice and bob at "main" and runs the first hand's
// start delay.
func newTestService(t *testing.T, runItTwice bool) (*GameService, *recordingNotifier, *quartz.Mock, *game.Table) {
	t.Helper()
	mock := quartz.NewMock(t)
	n := newRecordingNotifier()
	gs := NewGameService(testLogger(),
		WithServiceClock(mock),
		WithNotifier(n),
		WithTableOptions(game.WithRNG(rand.New(rand.NewPCG(7, 11)))),
	)
	require.NoError(t, gs.AddTable(testTable(runItTwice)))
	n.watch("main", "alice", "bob")

	_, err := gs.JoinTable("main", "alice", 0, 100)
	require.NoError(t, err)
	_, err = gs.JoinTable("main", "bob", 1, 100)
	require.NoError(t, err)

	table, ok := gs.Table("main")
	require.True(t, ok)
	assert.False(t, table.HandInProgress(), "hand waits for the start delay")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mock.Advance(2 * time.Second).MustWait(ctx)
	require.True(t, table.HandInProgress())
	return gs, n, mock, table
}

func TestServiceStartsHandAndPromptsActor(t *testing.T) {
	t.Parallel()
	_, n, _, table := newTestService(t, false)

	ts, ok := table.Waiting()
	require.True(t, ok)
	require.NotEmpty(t, ts.PlayerID)

	var req ActionRequiredData
	n.last(t, ts.PlayerID, MessageTypeActionRequired, &req)
	assert.Equal(t, "main", req.TableID)
	assert.Equal(t, ts.Turn, req.Turn)
	assert.Equal(t, 30, req.TimeoutSeconds)
	assert.Contains(t, req.ValidActions, "fold")
	assert.Equal(t, 1, req.ToCall)

	var state TableStateData
	n.last(t, "alice", MessageTypeTableState, &state)
	assert.Equal(t, game.Preflop, state.State.Phase)
	for _, seat := range state.State.Seats {
		if seat.PlayerID == "alice" {
			assert.Len(t, seat.HoleCards, 2)
		} else {
			assert.Empty(t, seat.HoleCards, "opponent cards are hidden")
		}
	}
}

func TestServiceTimeoutFoldsAndStartsNextHand(t *testing.T) {
	t.Parallel()
	_, n, mock, table := newTestService(t, false)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ts, _ := table.Waiting()
	mock.Advance(30 * time.Second).MustWait(ctx)

	assert.False(t, table.HandInProgress(), "small blind owes chips, so the timeout folds")
	assert.Equal(t, 1, table.HandCount())
	var result HandResultData
	n.last(t, "alice", MessageTypeHandResult, &result)
	assert.Equal(t, ts.HandID, result.HandID)
	require.Len(t, result.Winners, 1)
	assert.NotEqual(t, ts.PlayerID, result.Winners[0].PlayerID)
	assert.Equal(t, 1, n.count("bob", MessageTypeHandResult))

	mock.Advance(2 * time.Second).MustWait(ctx)
	assert.True(t, table.HandInProgress())
	assert.Equal(t, 2, table.HandCount())
}

func TestServiceTimeoutChecksWhenFree(t *testing.T) {
	t.Parallel()
	gs, _, mock, table := newTestService(t, false)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, _ := table.Waiting()
	require.NoError(t, gs.SubmitAction("main", first.PlayerID, "call", 0))

	second, ok := table.Waiting()
	require.True(t, ok)
	require.NotEqual(t, first.PlayerID, second.PlayerID)

	mock.Advance(30 * time.Second).MustWait(ctx)
	snap := table.Snapshot("")
	assert.Equal(t, game.Flop, snap.Phase, "big blind checked its option")
	assert.True(t, table.HandInProgress())
}

func TestServiceRejections(t *testing.T) {
	t.Parallel()
	gs, _, _, table := newTestService(t, false)
	ts, _ := table.Waiting()
	other := "alice"
	if ts.PlayerID == "alice" {
		other = "bob"
	}

	err := gs.SubmitAction("main", ts.PlayerID, "dance", 0)
	require.Error(t, err)
	assert.Equal(t, "illegal_action", errorCode(err))

	err = gs.SubmitAction("main", other, "fold", 0)
	assert.Equal(t, "not_your_turn", errorCode(err))

	err = gs.SubmitAction("nowhere", ts.PlayerID, "fold", 0)
	assert.ErrorIs(t, err, ErrTableNotFound)
	assert.Equal(t, "table_not_found", errorCode(err))

	_, err = gs.JoinTable("main", "carol", 2, 5)
	assert.Equal(t, "amount_out_of_range", errorCode(err))

	after, _ := table.Waiting()
	assert.Equal(t, ts, after, "rejections leave the hand untouched")
}

func TestServiceVoteTimeoutRunsOnce(t *testing.T) {
	t.Parallel()
	gs, n, mock, table := newTestService(t, true)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, _ := table.Waiting()
	require.NoError(t, gs.SubmitAction("main", first.PlayerID, "bet", 100))
	second, _ := table.Waiting()
	require.NoError(t, gs.SubmitAction("main", second.PlayerID, "call", 0))

	vote, ok := table.Waiting()
	require.True(t, ok)
	assert.Empty(t, vote.PlayerID)
	assert.ElementsMatch(t, []string{"alice", "bob"}, vote.Voters)
	assert.Equal(t, 1, n.count("alice", MessageTypeVoteRequired))
	assert.Equal(t, 1, n.count("bob", MessageTypeVoteRequired))

	require.NoError(t, gs.Vote("main", "alice", true))
	assert.Equal(t, 1, n.count("bob", MessageTypeVoteRequired), "vote prompt is sent once")

	mock.Advance(10 * time.Second).MustWait(ctx)
	assert.False(t, table.HandInProgress())
	snap := table.Snapshot("")
	assert.Empty(t, snap.Runs, "missing ballot counts as no")
	assert.Len(t, snap.Board, 5)
	assert.Equal(t, 1, n.count("alice", MessageTypeHandResult))
}

func TestServiceLeaveCancelsNextHand(t *testing.T) {
	t.Parallel()
	mock := quartz.NewMock(t)
	gs := NewGameService(testLogger(), WithServiceClock(mock))
	require.NoError(t, gs.AddTable(testTable(false)))
	require.Error(t, gs.AddTable(testTable(false)), "duplicate table")

	_, err := gs.JoinTable("main", "alice", -1, 100)
	require.NoError(t, err)
	_, err = gs.JoinTable("main", "bob", -1, 100)
	require.NoError(t, err)
	require.NoError(t, gs.LeaveTable("main", "bob"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mock.Advance(2 * time.Second).MustWait(ctx)

	table, _ := gs.Table("main")
	assert.False(t, table.HandInProgress())
	assert.Equal(t, 0, table.HandCount())

	tables := gs.ListTables()
	require.Len(t, tables, 1)
	assert.Equal(t, TableInfo{ID: "main", Name: "main", PlayerCount: 1, MaxPlayers: 6, Stakes: "1/2", Status: "waiting"}, tables[0])
	require.NoError(t, gs.Close())
}
