// Package simulator plays bot-driven hands on in-process tables. It checks
// chip conservation after every hand and is the engine's soak test.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdem-engine/internal/bot"
	"github.com/lox/holdem-engine/internal/game"
	"github.com/lox/holdem-engine/internal/randutil"
)

// maxStepsPerHand bounds the decisions in one hand; more means the engine
// stopped making progress.
const maxStepsPerHand = 1000

// Config holds configuration for running simulations
type Config struct {
	Tables     int
	Hands      int // per table
	Strategies []string
	Seed       int64
	SmallBlind int
	BigBlind   int
	BuyIn      int
	RunItTwice bool
	Logger     *log.Logger
	Stats      game.StatsSink
	History    game.HistorySink
}

// PlayerResult is one bot's result across all tables.
type PlayerResult struct {
	PlayerID string
	Strategy string
	Hands    int
	Invested int
	Final    int
	Net      int
}

// Result summarizes a run.
type Result struct {
	Tables   int
	Hands    int
	Rebuys   int
	Forced   int
	Duration time.Duration
	Players  []PlayerResult
}

// Simulator runs poker hand simulations
type Simulator struct {
	config Config
}

// New creates a new simulator with the given configuration
func New(config Config) *Simulator {
	if config.Tables <= 0 {
		config.Tables = 1
	}
	if len(config.Strategies) == 0 {
		config.Strategies = []string{"rand", "rand", "call", "aggro", "fold", "rand"}
	}
	if config.SmallBlind <= 0 {
		config.SmallBlind = 1
	}
	if config.BigBlind <= 0 {
		config.BigBlind = 2 * config.SmallBlind
	}
	if config.BuyIn <= 0 {
		config.BuyIn = 100 * config.BigBlind
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	return &Simulator{config: config}
}

// Run plays every table concurrently. Each table draws from its own stream
// of the seed, so a run replays identically.
func (s *Simulator) Run(ctx context.Context) (Result, error) {
	if len(s.config.Strategies) < 2 {
		return Result{}, fmt.Errorf("need at least two strategies, got %d", len(s.config.Strategies))
	}
	if limit := game.SeatLimit(s.config.RunItTwice); len(s.config.Strategies) > limit {
		return Result{}, fmt.Errorf("at most %d players per table", limit)
	}

	start := time.Now()
	results := make([]tableResult, s.config.Tables)
	g, ctx := errgroup.WithContext(ctx)
	for i := range s.config.Tables {
		g.Go(func() error {
			r, err := s.runTable(ctx, i)
			if err != nil {
				return fmt.Errorf("table %d: %w", i+1, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Tables: s.config.Tables, Duration: time.Since(start)}
	players := make(map[string]*PlayerResult)
	for _, tr := range results {
		res.Hands += tr.hands
		res.Rebuys += tr.rebuys
		res.Forced += tr.forced
		for _, p := range tr.players {
			agg := players[p.PlayerID]
			if agg == nil {
				agg = &PlayerResult{PlayerID: p.PlayerID, Strategy: p.Strategy}
				players[p.PlayerID] = agg
			}
			agg.Hands += p.Hands
			agg.Invested += p.Invested
			agg.Final += p.Final
			agg.Net += p.Net
		}
	}
	for _, p := range players {
		res.Players = append(res.Players, *p)
	}
	slices.SortFunc(res.Players, func(a, b PlayerResult) int {
		if a.Net != b.Net {
			return b.Net - a.Net
		}
		if a.PlayerID < b.PlayerID {
			return -1
		}
		return 1
	})
	return res, nil
}

type tableResult struct {
	hands   int
	rebuys  int
	forced  int
	players []PlayerResult
}

type seatedBot struct {
	id       string
	seat     int
	strategy bot.Strategy
	result   PlayerResult
}

func (s *Simulator) runTable(ctx context.Context, index int) (tableResult, error) {
	cfg := s.config
	tableID := fmt.Sprintf("sim-%d", index+1)
	logger := cfg.Logger.With("table", tableID)
	rng := randutil.Stream(cfg.Seed, index)

	opts := []game.TableOption{game.WithLogger(logger), game.WithRNG(rng)}
	if cfg.Stats != nil {
		opts = append(opts, game.WithStatsSink(cfg.Stats))
	}
	if cfg.History != nil {
		opts = append(opts, game.WithHistorySink(cfg.History))
	}
	table, err := game.NewTable(game.TableConfig{
		ID:         tableID,
		Name:       tableID,
		Seats:      len(cfg.Strategies),
		SmallBlind: cfg.SmallBlind,
		BigBlind:   cfg.BigBlind,
		MinBuyIn:   cfg.BuyIn,
		MaxBuyIn:   cfg.BuyIn,
		RunItTwice: cfg.RunItTwice,
	}, opts...)
	if err != nil {
		return tableResult{}, err
	}

	bots := make(map[string]*seatedBot, len(cfg.Strategies))
	for seat, name := range cfg.Strategies {
		strategy, err := bot.New(name, randutil.Stream(cfg.Seed+int64(seat)+1, index), logger)
		if err != nil {
			return tableResult{}, err
		}
		id := fmt.Sprintf("%s-%d", name, seat+1)
		if _, err := table.Sit(id, id, seat, cfg.BuyIn); err != nil {
			return tableResult{}, err
		}
		bots[id] = &seatedBot{id: id, seat: seat, strategy: strategy,
			result: PlayerResult{PlayerID: id, Strategy: name, Invested: cfg.BuyIn}}
	}

	var tr tableResult
	for range cfg.Hands {
		if err := ctx.Err(); err != nil {
			return tableResult{}, err
		}
		if err := table.StartHand(); err != nil {
			return tableResult{}, err
		}
		forced, err := s.playHand(table, bots)
		if err != nil {
			return tableResult{}, err
		}
		tr.forced += forced
		tr.hands++

		invested := 0
		chips := 0
		seats := table.Seats()
		for _, b := range bots {
			b.result.Hands++
			if seats[b.seat] == nil {
				if _, err := table.Sit(b.id, b.id, b.seat, cfg.BuyIn); err != nil {
					return tableResult{}, fmt.Errorf("rebuy %s: %w", b.id, err)
				}
				b.result.Invested += cfg.BuyIn
				tr.rebuys++
				chips += cfg.BuyIn
			} else {
				chips += seats[b.seat].Stack
			}
			invested += b.result.Invested
		}
		if chips != invested {
			return tableResult{}, fmt.Errorf("%w: after hand %d the table holds %d chips, %d were bought in",
				game.ErrInvariantViolation, table.HandCount(), chips, invested)
		}
	}

	seats := table.Seats()
	for _, b := range bots {
		if seats[b.seat] != nil {
			b.result.Final = seats[b.seat].Stack
		}
		b.result.Net = b.result.Final - b.result.Invested
		tr.players = append(tr.players, b.result)
	}
	logger.Debug("table finished", "hands", tr.hands, "rebuys", tr.rebuys)
	return tr, nil
}

// playHand drives the current hand to completion and returns how many
// actions had to be forced.
func (s *Simulator) playHand(table *game.Table, bots map[string]*seatedBot) (int, error) {
	forced := 0
	for range maxStepsPerHand {
		ts, ok := table.Waiting()
		if !ok {
			return forced, table.Halted()
		}

		if ts.PlayerID == "" {
			for _, id := range ts.Voters {
				if err := table.Vote(id, bots[id].strategy.Vote()); err != nil {
					return forced, err
				}
			}
			if len(ts.Voters) == 0 {
				if err := table.CloseVote(ts.Turn); err != nil {
					return forced, err
				}
			}
			continue
		}

		opts, err := table.ValidActions(ts.PlayerID)
		if err != nil {
			return forced, err
		}
		d := bots[ts.PlayerID].strategy.Decide(opts)
		err = table.SubmitAction(ts.PlayerID, d.Kind, d.Amount)
		var ae *game.ActionError
		if errors.As(err, &ae) && !errors.Is(err, game.ErrInvariantViolation) {
			s.config.Logger.Warn("bot action rejected, forcing", "player", ts.PlayerID, "action", d.Kind, "amount", d.Amount, "code", ae.Code)
			if _, err := table.ForceAction(ts.PlayerID, ts.Turn); err != nil {
				return forced, err
			}
			forced++
			continue
		}
		if err != nil {
			return forced, err
		}
	}
	return forced, fmt.Errorf("%w: hand %d did not finish after %d steps",
		game.ErrInvariantViolation, table.HandCount(), maxStepsPerHand)
}
