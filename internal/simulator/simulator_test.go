package simulator

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/lox/holdem-engine/internal/game"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestRunConservesChips(t *testing.T) {
	t.Parallel()
	res, err := New(Config{
		Tables: 3,
		Hands:  200,
		Seed:   42,
		Logger: quietLogger(),
	}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Hands != 600 {
		t.Errorf("hands = %d, want 600", res.Hands)
	}
	if len(res.Players) != 6 {
		t.Fatalf("players = %d, want 6", len(res.Players))
	}
	net := 0
	for _, p := range res.Players {
		net += p.Net
		if p.Hands != 600 {
			t.Errorf("%s played %d hands", p.PlayerID, p.Hands)
		}
	}
	if net != 0 {
		t.Errorf("net across players = %d, want 0", net)
	}
	for i := 1; i < len(res.Players); i++ {
		if res.Players[i].Net > res.Players[i-1].Net {
			t.Errorf("players not sorted by net at %d", i)
		}
	}
}

func TestRunIsDeterministic(t *testing.T) {
	t.Parallel()
	cfg := Config{Tables: 2, Hands: 100, Seed: 7, RunItTwice: true, Logger: quietLogger(),
		Strategies: []string{"aggro", "call", "rand"}}
	first, err := New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	for i := range first.Players {
		a, b := first.Players[i], second.Players[i]
		if a.PlayerID != b.PlayerID || a.Net != b.Net || a.Invested != b.Invested {
			t.Errorf("run differs at %d: %+v vs %+v", i, a, b)
		}
	}
	if first.Rebuys != second.Rebuys {
		t.Errorf("rebuys %d vs %d", first.Rebuys, second.Rebuys)
	}
}

type countingSink struct {
	actions, hands int
}

func (c *countingSink) RecordAction(game.ActionEvent) error { c.actions++; return nil }
func (c *countingSink) RecordHand(game.HandSummary) error   { c.hands++; return nil }

func TestRunFeedsSinks(t *testing.T) {
	t.Parallel()
	sink := &countingSink{}
	_, err := New(Config{Hands: 25, Seed: 1, Logger: quietLogger(), Stats: sink,
		Strategies: []string{"call", "fold"}}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sink.hands != 25 {
		t.Errorf("hands recorded = %d, want 25", sink.hands)
	}
	if sink.actions < 25 {
		t.Errorf("actions recorded = %d", sink.actions)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Strategies: []string{"call"}, Logger: quietLogger()}).Run(context.Background()); err == nil {
		t.Error("expected error for a single player")
	}
	if _, err := New(Config{Hands: 1, Strategies: []string{"call", "shark"}, Logger: quietLogger()}).Run(context.Background()); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(Config{Hands: 10, Logger: quietLogger()}).Run(ctx); err == nil {
		t.Error("expected context error")
	}
}
