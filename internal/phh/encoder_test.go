package phh_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-engine/internal/game"
	"github.com/lox/holdem-engine/internal/phh"
	"github.com/lox/holdem-engine/poker"
)

// playedHand plays a heads-up hand: the button raises, the big blind calls,
// then folds to a flop bet.
func playedHand(t *testing.T) game.HandRecord {
	t.Helper()
	deck := poker.NewStackedDeck(poker.MustParseCards("Kd As Kc Ah 2c 7h 8c 3s 4c 9d 5c 2h")...)
	players := []*game.Player{game.NewPlayer("alice", "Alice", 100), game.NewPlayer("bob", "Bob", 100)}
	h, err := game.NewHand(nil, players, 0, 1, 2, game.WithDeck(deck), game.WithHandID("hand-1"), game.WithHandNumber(7))
	require.NoError(t, err)

	require.NoError(t, h.Act("alice", game.Bet, 6))
	require.NoError(t, h.Act("bob", game.Call, 0))
	require.NoError(t, h.Act("bob", game.Check, 0))
	require.NoError(t, h.Act("alice", game.Bet, 10))
	require.NoError(t, h.Act("bob", game.Fold, 0))
	require.True(t, h.IsComplete())

	rec := h.Record("main")
	rec.StartedAt = time.Date(2025, time.November, 14, 15, 22, 0, 0, time.UTC)
	return rec
}

func TestFromRecord(t *testing.T) {
	hand := phh.FromRecord(playedHand(t), false)

	assert.Equal(t, "NT", hand.Variant)
	assert.Equal(t, []string{"bob", "alice"}, hand.Players, "button acts last")
	assert.Equal(t, []int{2, 1}, hand.Seats)
	assert.Equal(t, []int{2, 1}, hand.BlindsOrStraddles)
	assert.Equal(t, []int{100, 100}, hand.StartingStacks)
	assert.Equal(t, []int{94, 106}, hand.FinishingStacks)
	assert.Equal(t, 2, hand.MinBet)
	assert.Equal(t, []string{
		"d dh p1 ????",
		"d dh p2 ????",
		"p2 cbr 6",
		"p1 cc",
		"d db 7h8c3s",
		"p1 cc",
		"p2 cbr 10",
		"p1 f",
	}, hand.Actions)
}

func TestFromRecordRevealsHoleCards(t *testing.T) {
	hand := phh.FromRecord(playedHand(t), true)
	assert.Equal(t, "d dh p1 KdKc", hand.Actions[0])
	assert.Equal(t, "d dh p2 AsAh", hand.Actions[1])
}

func TestFormatAction(t *testing.T) {
	tests := []struct {
		rec  game.ActionRecord
		want string
		ok   bool
	}{
		{game.ActionRecord{Type: game.ActionFold}, "p1 f", true},
		{game.ActionRecord{Type: game.ActionFold, Forced: true}, "p1 f # timeout", true},
		{game.ActionRecord{Type: game.ActionCheck}, "p1 cc", true},
		{game.ActionRecord{Type: game.ActionCall, Amount: 50}, "p1 cc", true},
		{game.ActionRecord{Type: game.ActionRaise, Amount: 120}, "p1 cbr 120", true},
		{game.ActionRecord{Type: game.ActionBigBlind, Amount: 2}, "", false},
	}
	for _, tc := range tests {
		got, ok := phh.FormatAction(0, tc.rec)
		assert.Equal(t, tc.ok, ok, tc.rec.Type)
		assert.Equal(t, tc.want, got, tc.rec.Type)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	first := phh.FromRecord(playedHand(t), false)
	second := phh.FromRecord(playedHand(t), true)
	second.HandID = "hand-2"

	var buf bytes.Buffer
	require.NoError(t, phh.EncodeSection(&buf, 1, first))
	require.NoError(t, phh.EncodeSection(&buf, 2, second))
	assert.Contains(t, buf.String(), "[1]\n")
	assert.Contains(t, buf.String(), "[1.metadata]")
	assert.Contains(t, buf.String(), `time = "15:22:00"`)

	hands, err := phh.DecodeSession(&buf)
	require.NoError(t, err)
	require.Len(t, hands, 2)
	assert.Equal(t, "hand-1", hands[0].HandID)
	assert.Equal(t, "hand-2", hands[1].HandID)
	assert.Equal(t, first.Actions, hands[0].Actions)
	assert.Equal(t, 2025, hands[0].Year)
}

func TestDecodeSessionRejectsUnnumberedSections(t *testing.T) {
	_, err := phh.DecodeSession(strings.NewReader("[intro]\nvariant = \"NT\"\n"))
	require.Error(t, err)
}

func TestEncodeNil(t *testing.T) {
	require.Error(t, phh.Encode(&bytes.Buffer{}, nil))
}
