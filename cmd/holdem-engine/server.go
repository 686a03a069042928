package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/lox/holdem-engine/internal/game"
	"github.com/lox/holdem-engine/internal/handhistory"
	"github.com/lox/holdem-engine/internal/randutil"
	"github.com/lox/holdem-engine/internal/server"
	"github.com/lox/holdem-engine/internal/statistics"
	"github.com/lox/holdem-engine/internal/store"
	"github.com/lox/holdem-engine/internal/store/postgres"
	"github.com/lox/holdem-engine/internal/store/sqlite"
)

// ServerCmd runs the WebSocket server.
type ServerCmd struct {
	LogFlags `embed:""`

	Config      string `short:"c" default:"holdem.hcl" help:"HCL config file (defaults apply when missing)"`
	Addr        string `help:"Override the listen address (host:port)"`
	Seed        *int64 `help:"Deterministic shuffle seed"`
	SQLite      string `name:"sqlite" env:"HOLDEM_SQLITE_PATH" help:"Store hands in this SQLite database"`
	PostgresDSN string `name:"postgres-dsn" env:"HOLDEM_POSTGRES_DSN" help:"Store hands in PostgreSQL"`
	HoleCards   bool   `help:"Write every player's hole cards to hand history files"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if c.SQLite != "" {
		cfg.Server.SQLitePath = c.SQLite
	}
	if c.PostgresDSN != "" {
		cfg.Server.PostgresDSN = c.PostgresDSN
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", c.Config, err)
	}
	level, _ := cfg.LogLevel()
	logger := c.logger(level)

	ctx, cancel := signalContext(logger)
	defer cancel()

	stats := statistics.New()
	interval, _ := cfg.FlushInterval()
	history, err := handhistory.NewManager(handhistory.Config{
		Dir:              cfg.Server.HandHistoryDir,
		FlushInterval:    interval,
		IncludeHoleCards: c.HoleCards,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := history.Close(); err != nil {
			logger.Error("Failed to flush hand histories", "error", err)
		}
	}()

	sinks := store.Sinks{history}
	hands, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	for _, hs := range hands {
		defer hs.Close()
		w := store.NewWriter(hs, store.WriterConfig{}, logger)
		// Deferred after the store's Close so the queue drains first.
		defer w.Close()
		sinks = append(sinks, w)
	}

	gs := server.NewGameService(logger, server.WithTableOptions(
		game.WithStatsSink(stats),
		game.WithHistorySink(sinks),
	))
	seed := randutil.Seed()
	if c.Seed != nil {
		seed = *c.Seed
	}
	logger.Info("Shuffle seed", "seed", seed)
	for i, table := range cfg.Tables {
		if err := gs.AddTable(table, game.WithRNG(randutil.Stream(seed, i))); err != nil {
			return err
		}
	}

	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}
	opts := []server.Option{server.WithStatistics(stats)}
	if len(hands) > 0 {
		opts = append(opts, server.WithHandStore(hands[0]))
	}
	srv := server.NewServer(addr, gs, logger, opts...)

	err = srv.Start(ctx)
	if cerr := gs.Close(); cerr != nil {
		logger.Warn("Tables closed mid-hand", "error", cerr)
	}
	logger.Info("Server stopped", "hands", stats.Hands())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// openStores opens the configured SQL stores, PostgreSQL first.
func openStores(ctx context.Context, cfg *server.ServerConfig, logger *log.Logger) ([]store.HandStore, error) {
	var stores []store.HandStore
	if dsn := cfg.Server.PostgresDSN; dsn != "" {
		db, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		logger.Info("Storing hands in PostgreSQL")
		stores = append(stores, db)
	}
	if path := cfg.Server.SQLitePath; path != "" {
		db, err := sqlite.Open(path)
		if err != nil {
			for _, s := range stores {
				_ = s.Close()
			}
			return nil, err
		}
		logger.Info("Storing hands in SQLite", "path", path)
		stores = append(stores, db)
	}
	return stores, nil
}
