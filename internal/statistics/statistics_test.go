package statistics

import (
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-engine/internal/game"
	"github.com/lox/holdem-engine/poker"
)

func summary(bigBlind int, players ...game.PlayerSummary) game.HandSummary {
	return game.HandSummary{TableID: "t1", HandID: "h", BigBlind: bigBlind, Players: players}
}

func TestEmptyAggregator(t *testing.T) {
	a := New()
	assert.Equal(t, 0, a.Hands())
	assert.Equal(t, "No hands played", a.Summary())
	_, ok := a.Player("nobody")
	assert.False(t, ok)

	var p PlayerStats
	assert.Zero(t, p.BB100())
	assert.Zero(t, p.StdDev())
	assert.Zero(t, p.VPIP())
	lo, hi := p.ConfidenceInterval95()
	assert.Zero(t, lo)
	assert.Zero(t, hi)
}

func TestRecordHand(t *testing.T) {
	a := New()
	require.NoError(t, a.RecordHand(summary(10,
		game.PlayerSummary{PlayerID: "alice", HoleCards: "AsAh", Net: 50, VPIP: true, PFR: true, Aggressive: 2, SawFlop: true, WentShowdown: true, WonAtShowdown: true, Won: true},
		game.PlayerSummary{PlayerID: "bob", HoleCards: "7c2d", Net: -50, VPIP: true, Calls: 2, SawFlop: true, WentShowdown: true},
	)))
	require.NoError(t, a.RecordHand(summary(10,
		game.PlayerSummary{PlayerID: "alice", HoleCards: "9s3s", Net: -10},
		game.PlayerSummary{PlayerID: "bob", HoleCards: "KdKc", Net: 10, Aggressive: 1, VPIP: true, PFR: true, Won: true},
	)))

	assert.Equal(t, 2, a.Hands())

	alice, ok := a.Player("alice")
	require.True(t, ok)
	assert.Equal(t, 2, alice.Hands)
	assert.Equal(t, 40, alice.Net)
	assert.InDelta(t, 0.5, alice.VPIP(), 1e-9)
	assert.InDelta(t, 0.5, alice.PFR(), 1e-9)
	assert.InDelta(t, 1.0, alice.ShowdownWinRate(), 1e-9)
	assert.InDelta(t, 200.0, alice.BB100(), 1e-9) // (5 - 1) / 2 hands
	// sample stddev of {5, -1}
	assert.InDelta(t, math.Sqrt(18), alice.StdDev(), 1e-9)
	assert.Equal(t, CategoryStat{Hands: 1, NetBB: 5, Wins: 1}, alice.Category(poker.CategoryPremium))
	assert.Equal(t, CategoryStat{Hands: 1, NetBB: -1}, alice.Category(poker.CategoryTrash))

	bob, ok := a.Player("bob")
	require.True(t, ok)
	assert.InDelta(t, 0.5, bob.AggressionFactor(), 1e-9)
	assert.InDelta(t, 0.0, bob.ShowdownWinRate(), 1e-9)
	assert.InDelta(t, 1.0, bob.VPIP(), 1e-9)

	players := a.Players()
	require.Len(t, players, 2)
	assert.Equal(t, "alice", players[0].PlayerID, "biggest winner first")

	report := a.Report()
	assert.Equal(t, 2, report.Hands)
	require.Len(t, report.Players, 2)
	assert.Equal(t, 1, report.Players[0].Categories[poker.CategoryPremium].Hands)
	assert.Contains(t, a.Summary(), "alice")
}

func TestRecordAction(t *testing.T) {
	a := New()
	require.NoError(t, a.RecordAction(game.ActionEvent{PlayerID: "alice", Phase: game.Preflop, Kind: game.Bet}))
	require.NoError(t, a.RecordAction(game.ActionEvent{PlayerID: "bob", Phase: game.Preflop, Kind: game.Fold, Forced: true}))
	require.Error(t, a.RecordAction(game.ActionEvent{}))

	actions := a.Actions()
	assert.Equal(t, 1, actions["PREFLOP/bet"])
	assert.Equal(t, 1, actions["PREFLOP/fold"])
	assert.Equal(t, 1, a.Report().Forced)

	bob, ok := a.Player("bob")
	require.True(t, ok)
	assert.Equal(t, 1, bob.Timeouts)
}

func TestRecordHandRejectsEmpty(t *testing.T) {
	a := New()
	require.Error(t, a.RecordHand(game.HandSummary{HandID: "x"}))
	assert.Equal(t, 0, a.Hands())
}

func TestPlayerCopiesAreIndependent(t *testing.T) {
	a := New()
	require.NoError(t, a.RecordHand(summary(2, game.PlayerSummary{PlayerID: "p", HoleCards: "AsAh", Net: 4})))
	p, _ := a.Player("p")
	p.categories[poker.CategoryPremium].Hands = 99

	again, _ := a.Player("p")
	assert.Equal(t, 1, again.Category(poker.CategoryPremium).Hands)
}

// Tables report from their own goroutines.
func TestConcurrentRecording(t *testing.T) {
	a := New()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(i), 1))
			for range 100 {
				net := rng.IntN(21) - 10
				_ = a.RecordAction(game.ActionEvent{PlayerID: "a", Kind: game.Call})
				_ = a.RecordHand(summary(2,
					game.PlayerSummary{PlayerID: "a", Net: net},
					game.PlayerSummary{PlayerID: "b", Net: -net},
				))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, a.Hands())
	pa, _ := a.Player("a")
	pb, _ := a.Player("b")
	assert.Equal(t, 0, pa.Net+pb.Net)
	assert.Equal(t, 800, a.Actions()["WAITING/call"])
}
