package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/holdembot/cmd/holdembot/shared"
	"github.com/lox/holdembot/internal/chat"
	"github.com/lox/holdembot/internal/ledger"
	"github.com/lox/holdembot/internal/randutil"
	"github.com/lox/holdembot/internal/table"
)

// ServeCmd runs the WebSocket chat surface
type ServeCmd struct {
	Addr string `help:"Listen address (overrides config)"`
	Seed int64  `help:"Deterministic RNG seed for dealing (0 draws one)"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}

	store, err := ledger.Open(cfg.Ledger.Path, logger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close ledger")
		}
	}()

	strategy, err := cfg.BotStrategy()
	if err != nil {
		return err
	}
	_, seed := randutil.Seeded(c.Seed)
	tableCfg := cfg.TableConfig()

	hub := chat.NewHub(logger)
	registry := table.NewRegistry(tableCfg, store, hub, logger,
		table.WithSeed(seed),
		table.WithBotStrategy(strategy),
	)
	server := chat.NewServer(cfg.Server.Address, hub, chat.NewRouter(registry, logger), logger)

	logger.Info().
		Str("address", cfg.Server.Address).
		Str("ledger", cfg.Ledger.Path).
		Int64("seed", seed).
		Int("ante", tableCfg.Ante).
		Int("buy_in", tableCfg.BuyIn).
		Int("max_players", tableCfg.MaxPlayers).
		Dur("turn_timeout", tableCfg.TurnTimeout).
		Dur("idle_timeout", tableCfg.IdleTimeout).
		Str("bot_strategy", strategy.Name()).
		Msg("Starting holdembot")

	ctx := shared.SetupSignalHandler(logger)
	grp, ctx := errgroup.WithContext(ctx)

	grp.Go(server.ListenAndServe)
	grp.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		registry.CloseAll(shutdownCtx)
		return err
	})

	return grp.Wait()
}
