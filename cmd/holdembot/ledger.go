package main

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/lox/holdembot/internal/ledger"
)

// LedgerCmd groups chip ledger commands
type LedgerCmd struct {
	Balance LedgerBalanceCmd `cmd:"" help:"Show a user's bankroll and chips at tables"`
	Grant   LedgerGrantCmd   `cmd:"" help:"Add (or with a negative delta remove) chips from a bankroll"`
}

type LedgerBalanceCmd struct {
	User string `arg:"" help:"User ID"`
}

type LedgerGrantCmd struct {
	User  string `arg:"" help:"User ID"`
	Delta int    `arg:"" help:"Chips to add, negative to remove"`
}

func openLedger(g *Globals) (*ledger.SQLStore, error) {
	cfg, logger, err := g.load()
	if err != nil {
		return nil, err
	}
	return ledger.Open(cfg.Ledger.Path, logger)
}

func (c *LedgerBalanceCmd) Run(g *Globals) error {
	store, err := openLedger(g)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	balance, found, err := store.FetchBalance(ctx, c.User)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s: %w", c.User, ledger.ErrUnknownAccount)
	}
	stakes, err := store.Stakes(ctx, c.User)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d chips\n", c.User, balance)
	for _, id := range slices.Sorted(maps.Keys(stakes)) {
		fmt.Printf("  at table %s: %d\n", id, stakes[id])
	}
	return nil
}

func (c *LedgerGrantCmd) Run(g *Globals) error {
	store, err := openLedger(g)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := ledger.EnsureAccount(ctx, store, c.User, 0); err != nil {
		return err
	}
	if err := store.AdjustBalance(ctx, c.User, c.Delta); err != nil {
		return err
	}
	balance, _, err := store.FetchBalance(ctx, c.User)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d chips\n", c.User, balance)
	return nil
}
