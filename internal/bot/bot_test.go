package bot

import (
	"io"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/lox/holdem-engine/internal/game"
)

func TestStrategiesStayLegal(t *testing.T) {
	t.Parallel()
	logger := log.New(io.Discard)
	options := []game.ActionOptions{
		{PlayerID: "p", Actions: []game.ActionKind{game.Fold, game.Call, game.Bet}, ToCall: 10, MinBet: 20, MaxBet: 100},
		{PlayerID: "p", Actions: []game.ActionKind{game.Check, game.Bet}, MinBet: 10, MaxBet: 10},
		{PlayerID: "p", Actions: []game.ActionKind{game.Fold, game.Call}, ToCall: 50},
	}
	for _, name := range Strategies {
		s, err := New(name, rand.New(rand.NewPCG(1, 2)), logger)
		if err != nil {
			t.Fatalf("New(%s): %v", name, err)
		}
		for range 50 {
			for _, opts := range options {
				d := s.Decide(opts)
				if !slices.Contains(opts.Actions, d.Kind) {
					t.Fatalf("%s chose %s from %v", name, d.Kind, opts.Actions)
				}
				if d.Kind == game.Bet && (d.Amount < opts.MinBet || d.Amount > opts.MaxBet) {
					t.Fatalf("%s bet %d outside [%d, %d]", name, d.Amount, opts.MinBet, opts.MaxBet)
				}
			}
		}
	}
}

func TestFixedStrategies(t *testing.T) {
	t.Parallel()
	facing := game.ActionOptions{Actions: []game.ActionKind{game.Fold, game.Call, game.Bet}, MinBet: 20, MaxBet: 100}
	if d := (CallBot{}).Decide(facing); d.Kind != game.Call {
		t.Errorf("call bot chose %s", d.Kind)
	}
	if d := (FoldBot{}).Decide(facing); d.Kind != game.Fold {
		t.Errorf("fold bot chose %s", d.Kind)
	}
	free := game.ActionOptions{Actions: []game.ActionKind{game.Check, game.Bet}}
	if d := (FoldBot{}).Decide(free); d.Kind != game.Check {
		t.Errorf("fold bot should check for free, chose %s", d.Kind)
	}
}

func TestUnknownStrategy(t *testing.T) {
	t.Parallel()
	if _, err := New("chart", rand.New(rand.NewPCG(1, 1)), log.New(io.Discard)); err == nil {
		t.Error("expected error")
	}
}
