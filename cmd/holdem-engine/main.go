package main

import (
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/lox/holdem-engine/internal/bot"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version     kong.VersionFlag `short:"v" help:"Show version"`
	Server      ServerCmd        `cmd:"" help:"Run the hold'em table server"`
	Simulate    SimulateCmd      `cmd:"" help:"Play bot hands on in-process tables and check chip conservation"`
	HandHistory HandHistoryCmd   `cmd:"hand-history" help:"Work with PHH hand history files"`
}

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("holdem-engine"),
		kong.Description("Authoritative no-limit hold'em tables"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version":    version,
			"strategies": strings.Join(bot.Strategies, ", "),
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
