package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/holdem-engine/internal/game"
	"github.com/lox/holdem-engine/internal/handhistory"
	"github.com/lox/holdem-engine/internal/randutil"
	"github.com/lox/holdem-engine/internal/simulator"
	"github.com/lox/holdem-engine/internal/statistics"
	"github.com/lox/holdem-engine/internal/store"
	"github.com/lox/holdem-engine/internal/store/sqlite"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	winStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// SimulateCmd plays bots against each other without a network.
type SimulateCmd struct {
	LogFlags `embed:""`

	Tables     int      `default:"4" help:"Tables to run in parallel"`
	Hands      int      `default:"1000" help:"Hands per table"`
	Players    []string `default:"rand,rand,call,aggro,fold,rand" help:"Bot strategy per seat (${strategies})"`
	Seed       *int64   `help:"Deterministic seed"`
	SmallBlind int      `default:"1" help:"Small blind"`
	BigBlind   int      `default:"2" help:"Big blind"`
	BuyIn      int      `default:"200" help:"Buy-in and rebuy amount"`
	RunItTwice bool     `help:"Offer run it twice when all-in before the river"`
	HistoryDir string   `help:"Write PHH session files here"`
	SQLite     string   `name:"sqlite" help:"Store hands in this SQLite database"`
}

func (c *SimulateCmd) Run() error {
	logger := c.logger(log.WarnLevel)
	ctx, cancel := signalContext(logger)
	defer cancel()

	seed := randutil.Seed()
	if c.Seed != nil {
		seed = *c.Seed
	}

	var sinks store.Sinks
	if c.HistoryDir != "" {
		history, err := handhistory.NewManager(handhistory.Config{Dir: c.HistoryDir, IncludeHoleCards: true}, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := history.Close(); err != nil {
				logger.Error("Failed to flush hand histories", "error", err)
			}
		}()
		sinks = append(sinks, history)
	}
	if c.SQLite != "" {
		db, err := sqlite.Open(c.SQLite)
		if err != nil {
			return err
		}
		defer db.Close()
		w := store.NewWriter(db, store.WriterConfig{Buffer: 4096}, logger)
		defer w.Close()
		sinks = append(sinks, w)
	}

	stats := statistics.New()
	cfg := simulator.Config{
		Tables:     c.Tables,
		Hands:      c.Hands,
		Strategies: c.Players,
		Seed:       seed,
		SmallBlind: c.SmallBlind,
		BigBlind:   c.BigBlind,
		BuyIn:      c.BuyIn,
		RunItTwice: c.RunItTwice,
		Logger:     logger,
		Stats:      stats,
	}
	if len(sinks) > 0 {
		cfg.History = sinks
	}

	res, err := simulator.New(cfg).Run(ctx)
	if err != nil {
		return err
	}
	printSummary(os.Stdout, seed, res, stats)
	return nil
}

func printSummary(w io.Writer, seed int64, res simulator.Result, stats *statistics.Aggregator) {
	fmt.Fprintln(w, titleStyle.Render(" ♠ ♥ Simulation ♦ ♣ "))
	fmt.Fprintf(w, "%s\n\n", dimStyle.Render(fmt.Sprintf(
		"seed %d · %d tables · %d hands · %d rebuys · %d forced · %s",
		seed, res.Tables, res.Hands, res.Rebuys, res.Forced, res.Duration.Round(1e6))))

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-12s %-6s %9s %9s %10s %6s %6s",
		"player", "bot", "net", "bb/100", "±95%", "VPIP", "PFR")))
	for _, p := range res.Players {
		ps, _ := stats.Player(p.PlayerID)
		lo, hi := ps.ConfidenceInterval95()
		line := fmt.Sprintf("%-12s %-6s %+9d %+9.1f %10.1f %5.1f%% %5.1f%%",
			p.PlayerID, p.Strategy, p.Net, ps.BB100(), (hi-lo)/2, ps.VPIP()*100, ps.PFR()*100)
		style := winStyle
		if p.Net < 0 {
			style = lossStyle
		}
		fmt.Fprintln(w, style.Render(line))
	}

	actions := stats.Actions()
	var parts []string
	for _, phase := range []game.Phase{game.Preflop, game.Flop, game.Turn, game.River} {
		n := 0
		for _, kind := range []game.ActionKind{game.Fold, game.Check, game.Call, game.Bet} {
			n += actions[phase.String()+"/"+kind.String()]
		}
		parts = append(parts, fmt.Sprintf("%s %d", strings.ToLower(phase.String()), n))
	}
	fmt.Fprintf(w, "\n%s\n", dimStyle.Render("actions: "+strings.Join(parts, " · ")))
}
