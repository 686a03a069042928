// Package bot provides simple action sources that drive tables in
// simulations and load tests. None of them tries to play well.
package bot

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/lox/holdem-engine/internal/game"
)

// Decision is a bot's chosen action.
type Decision struct {
	Kind   game.ActionKind
	Amount int
}

// Strategy picks an action from the legal options.
type Strategy interface {
	Decide(opts game.ActionOptions) Decision
	// Vote answers a run-it-twice offer.
	Vote() bool
}

// Strategies lists the names accepted by New.
var Strategies = []string{"rand", "call", "fold", "aggro"}

// New returns the named strategy.
func New(name string, rng *rand.Rand, logger *log.Logger) (Strategy, error) {
	logger = logger.WithPrefix("bot").With("strategy", name)
	switch name {
	case "rand":
		return &RandBot{rng: rng, logger: logger}, nil
	case "call":
		return CallBot{}, nil
	case "fold":
		return FoldBot{}, nil
	case "aggro":
		return &AggroBot{rng: rng}, nil
	}
	return nil, fmt.Errorf("unknown bot strategy %q", name)
}

// RandBot picks uniformly among legal actions and bet sizes.
type RandBot struct {
	rng    *rand.Rand
	logger *log.Logger
}

func (r *RandBot) Decide(opts game.ActionOptions) Decision {
	if len(opts.Actions) == 0 {
		return Decision{Kind: game.Fold}
	}
	d := Decision{Kind: opts.Actions[r.rng.IntN(len(opts.Actions))]}
	if d.Kind == game.Bet {
		d.Amount = opts.MinBet
		if opts.MaxBet > opts.MinBet {
			d.Amount += r.rng.IntN(opts.MaxBet - opts.MinBet + 1)
		}
	}
	r.logger.Debug("decided", "player", opts.PlayerID, "action", d.Kind, "amount", d.Amount)
	return d
}

func (r *RandBot) Vote() bool { return r.rng.IntN(2) == 0 }

// CallBot checks or calls everything.
type CallBot struct{}

func (CallBot) Decide(opts game.ActionOptions) Decision {
	switch {
	case slices.Contains(opts.Actions, game.Check):
		return Decision{Kind: game.Check}
	case slices.Contains(opts.Actions, game.Call):
		return Decision{Kind: game.Call}
	}
	return Decision{Kind: game.Fold}
}

func (CallBot) Vote() bool { return true }

// FoldBot checks when free and folds otherwise.
type FoldBot struct{}

func (FoldBot) Decide(opts game.ActionOptions) Decision {
	if slices.Contains(opts.Actions, game.Check) {
		return Decision{Kind: game.Check}
	}
	return Decision{Kind: game.Fold}
}

func (FoldBot) Vote() bool { return false }

// AggroBot min-raises when it can and moves all-in one time in four.
type AggroBot struct {
	rng *rand.Rand
}

func (a *AggroBot) Decide(opts game.ActionOptions) Decision {
	if slices.Contains(opts.Actions, game.Bet) {
		if a.rng.IntN(4) == 0 {
			return Decision{Kind: game.Bet, Amount: opts.MaxBet}
		}
		return Decision{Kind: game.Bet, Amount: opts.MinBet}
	}
	return CallBot{}.Decide(opts)
}

func (a *AggroBot) Vote() bool { return true }
