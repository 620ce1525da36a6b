package main

import (
	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/lox/holdembot/cmd/holdembot/shared"
	"github.com/lox/holdembot/internal/config"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command.
type Globals struct {
	Config    string `short:"c" default:"holdembot.hcl" type:"path" help:"HCL configuration file (defaults apply when missing)"`
	Debug     bool   `help:"Enable debug logging"`
	LogFormat string `default:"console" enum:"console,json" help:"Log output format (console, json)"`
	DB        string `help:"SQLite ledger path (overrides config)"`
}

func (g *Globals) load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if g.DB != "" {
		cfg.Ledger.Path = g.DB
	}
	logger := shared.SetupLogger(g.LogFormat, shared.ParseLevel(g.Debug, cfg.Server.LogLevel))
	return cfg, logger, nil
}

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`
	Serve   ServeCmd         `cmd:"" help:"Run the chat server"`
	Eval    EvalCmd          `cmd:"" help:"Evaluate hole cards or a 5 to 7 card hand"`
	Ledger  LedgerCmd        `cmd:"" help:"Inspect and adjust chip balances"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("holdembot"),
		kong.Description("Texas Hold'em tables for chat rooms"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
