// Package config loads the bot's HCL configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"

	"github.com/lox/holdembot/internal/table"
)

// Config represents the complete bot configuration
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Ledger LedgerSettings `hcl:"ledger,block"`
	Table  TableSettings  `hcl:"table,block"`
}

// ServerSettings contains the chat surface configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// LedgerSettings configures chip storage
type LedgerSettings struct {
	Path         string `hcl:"path,optional"`
	InitialChips int    `hcl:"initial_chips,optional"`
}

// TableSettings holds the rules applied to every table. Durations are
// strings such as "15s" or "10m".
type TableSettings struct {
	MaxPlayers     int    `hcl:"max_players,optional"`
	Ante           int    `hcl:"ante,optional"`
	BuyIn          int    `hcl:"buy_in,optional"`
	TurnTimeout    string `hcl:"turn_timeout,optional"`
	IdleTimeout    string `hcl:"idle_timeout,optional"`
	Tick           string `hcl:"tick,optional"`
	OwnerOnlyStart *bool  `hcl:"owner_only_start,optional"`
	BotStrategy    string `hcl:"bot_strategy,optional"`
}

// rawConfig lets every block be omitted from the file.
type rawConfig struct {
	Server *ServerSettings `hcl:"server,block"`
	Ledger *LedgerSettings `hcl:"ledger,block"`
	Table  *TableSettings  `hcl:"table,block"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from an HCL file. A missing file yields defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var raw rawConfig
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	var c Config
	if raw.Server != nil {
		c.Server = *raw.Server
	}
	if raw.Ledger != nil {
		c.Ledger = *raw.Ledger
	}
	if raw.Table != nil {
		c.Table = *raw.Table
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	def := table.DefaultConfig()

	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = "holdem.db"
	}
	if c.Ledger.InitialChips == 0 {
		c.Ledger.InitialChips = def.InitialChips
	}
	if c.Table.MaxPlayers == 0 {
		c.Table.MaxPlayers = def.MaxPlayers
	}
	if c.Table.Ante == 0 {
		c.Table.Ante = def.Ante
	}
	if c.Table.BuyIn == 0 {
		c.Table.BuyIn = def.BuyIn
	}
	if c.Table.TurnTimeout == "" {
		c.Table.TurnTimeout = def.TurnTimeout.String()
	}
	if c.Table.IdleTimeout == "" {
		c.Table.IdleTimeout = def.IdleTimeout.String()
	}
	if c.Table.Tick == "" {
		c.Table.Tick = def.Tick.String()
	}
	if c.Table.BotStrategy == "" {
		c.Table.BotStrategy = "calling"
	}
	if c.Table.OwnerOnlyStart == nil {
		v := def.OwnerOnlyStart
		c.Table.OwnerOnlyStart = &v
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.Server.LogLevel)
	}
	if c.Ledger.InitialChips < 0 {
		return fmt.Errorf("ledger: initial chips must not be negative")
	}
	if c.Table.MaxPlayers < 2 || c.Table.MaxPlayers > 23 {
		return fmt.Errorf("table: max players must be between 2 and 23")
	}
	if c.Table.Ante < 2 {
		return fmt.Errorf("table: ante must be at least 2")
	}
	if c.Table.BuyIn <= 0 {
		return fmt.Errorf("table: buy-in must be positive")
	}
	if _, err := table.StrategyByName(c.Table.BotStrategy); err != nil {
		return fmt.Errorf("table: %w", err)
	}
	for name, v := range map[string]string{
		"turn_timeout": c.Table.TurnTimeout,
		"idle_timeout": c.Table.IdleTimeout,
		"tick":         c.Table.Tick,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("table: %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("table: %s must be positive", name)
		}
	}
	return nil
}

// TableConfig converts the table block into table rules. Call Validate first;
// unparseable durations fall back to defaults.
func (c *Config) TableConfig() table.Config {
	def := table.DefaultConfig()
	cfg := table.Config{
		MaxPlayers:   c.Table.MaxPlayers,
		Ante:         c.Table.Ante,
		BuyIn:        c.Table.BuyIn,
		InitialChips: c.Ledger.InitialChips,
		TurnTimeout:  parseDuration(c.Table.TurnTimeout, def.TurnTimeout),
		IdleTimeout:  parseDuration(c.Table.IdleTimeout, def.IdleTimeout),
		Tick:         parseDuration(c.Table.Tick, def.Tick),
	}
	cfg.OwnerOnlyStart = def.OwnerOnlyStart
	if c.Table.OwnerOnlyStart != nil {
		cfg.OwnerOnlyStart = *c.Table.OwnerOnlyStart
	}
	return cfg
}

// BotStrategy returns the configured bot strategy.
func (c *Config) BotStrategy() (table.Strategy, error) {
	return table.StrategyByName(c.Table.BotStrategy)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
