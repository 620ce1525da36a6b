package table

import "time"

// Config holds the rules shared by every table of a registry.
type Config struct {
	MaxPlayers     int
	Ante           int // big blind; the small blind is half
	BuyIn          int // chips moved from the ledger on join
	InitialChips   int // bankroll for accounts created on first join
	TurnTimeout    time.Duration
	IdleTimeout    time.Duration
	Tick           time.Duration
	OwnerOnlyStart bool
}

// DefaultConfig returns the stock table rules.
func DefaultConfig() Config {
	return Config{
		MaxPlayers:     9,
		Ante:           20,
		BuyIn:          500,
		InitialChips:   500,
		TurnTimeout:    15 * time.Second,
		IdleTimeout:    10 * time.Minute,
		Tick:           time.Second,
		OwnerOnlyStart: true,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxPlayers < 2 {
		c.MaxPlayers = d.MaxPlayers
	}
	if c.Ante <= 0 {
		c.Ante = d.Ante
	}
	if c.BuyIn <= 0 {
		c.BuyIn = d.BuyIn
	}
	if c.InitialChips < 0 {
		c.InitialChips = d.InitialChips
	}
	if c.Tick <= 0 {
		c.Tick = d.Tick
	}
	if c.TurnTimeout < c.Tick {
		c.TurnTimeout = d.TurnTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	return c
}

// turnTicks is the countdown length in ticks.
func (c Config) turnTicks() int {
	return max(1, int(c.TurnTimeout/c.Tick))
}
