package table

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdembot/internal/game"
	"github.com/lox/holdembot/internal/ledger"
	"github.com/lox/holdembot/internal/randutil"
)

// Summary holds lightweight table metadata for listings.
type Summary struct {
	ID          string `json:"id"`
	Channel     string `json:"channel"`
	Owner       string `json:"owner"`
	Players     int    `json:"players"`
	MaxPlayers  int    `json:"max_players"`
	Running     bool   `json:"running"`
	HandsPlayed int    `json:"hands_played"`
}

// Registry owns every open table. It is the only place tables are looked up
// by ID.
type Registry struct {
	logger    zerolog.Logger
	cfg       Config
	store     ledger.ChipStore
	messenger Messenger
	clock     quartz.Clock
	gameOpts  []game.Option
	seed      int64
	strategy  Strategy

	mu     sync.RWMutex
	tables map[string]*Table
	opened int64
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryClock sets the clock handed to every table.
func WithRegistryClock(clock quartz.Clock) RegistryOption {
	return func(r *Registry) { r.clock = clock }
}

// WithTableGameOptions sets game options for every table.
func WithTableGameOptions(opts ...game.Option) RegistryOption {
	return func(r *Registry) { r.gameOpts = append(r.gameOpts, opts...) }
}

// WithSeed gives every table its own generator derived from seed, so a run
// can be replayed. Zero keeps the global source.
func WithSeed(seed int64) RegistryOption {
	return func(r *Registry) { r.seed = seed }
}

// WithBotStrategy sets the strategy bot seats play at every table.
func WithBotStrategy(s Strategy) RegistryOption {
	return func(r *Registry) { r.strategy = s }
}

// NewRegistry constructs an empty registry.
func NewRegistry(cfg Config, store ledger.ChipStore, messenger Messenger, logger zerolog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:    logger,
		cfg:       cfg.withDefaults(),
		store:     store,
		messenger: messenger,
		clock:     quartz.NewReal(),
		tables:    make(map[string]*Table),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the rules applied to new tables.
func (r *Registry) Config() Config { return r.cfg }

// Open creates a table reporting to channel and owned by owner.
func (r *Registry) Open(channel, owner string) *Table {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened++

	gameOpts := r.gameOpts
	if r.seed != 0 {
		gameOpts = append([]game.Option{game.WithRNG(randutil.New(r.seed + r.opened))}, gameOpts...)
	}
	opts := []Option{WithClock(r.clock), WithLogger(r.logger), WithGameOptions(gameOpts...)}
	if r.strategy != nil {
		opts = append(opts, WithStrategy(r.strategy))
	}
	t := New(id, channel, owner, r.cfg, r.store, r.messenger, opts...)
	r.tables[id] = t

	r.logger.Info().Str("table_id", id).Str("owner", owner).Str("channel", channel).Msg("Table opened")
	return t
}

// Get retrieves a table by ID.
func (r *Registry) Get(id string) (*Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[id]
	if !ok {
		return nil, ErrTableNotFound
	}
	return t, nil
}

// Find returns the table userID is seated at, if any.
func (r *Registry) Find(userID string) (*Table, bool) {
	r.mu.RLock()
	tables := make([]*Table, 0, len(r.tables))
	for _, t := range r.tables {
		tables = append(tables, t)
	}
	r.mu.RUnlock()

	for _, t := range tables {
		t.mu.Lock()
		seated := t.seat(userID) >= 0
		t.mu.Unlock()
		if seated {
			return t, true
		}
	}
	return nil, false
}

// List returns a snapshot of open tables ordered by ID.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	tables := make([]*Table, 0, len(r.tables))
	for _, t := range r.tables {
		tables = append(tables, t)
	}
	r.mu.RUnlock()

	summaries := make([]Summary, 0, len(tables))
	for _, t := range tables {
		info := t.Info()
		summaries = append(summaries, Summary{
			ID:          t.id,
			Channel:     t.channel,
			Owner:       t.owner,
			Players:     len(info.Players),
			MaxPlayers:  r.cfg.MaxPlayers,
			Running:     info.Running,
			HandsPlayed: info.HandsPlayed,
		})
	}
	slices.SortFunc(summaries, func(a, b Summary) int { return strings.Compare(a.ID, b.ID) })
	return summaries
}

// Close force-closes a table and removes it. A table whose chips could not
// all be returned to the ledger stays registered so Close can be retried.
func (r *Registry) Close(ctx context.Context, id string) error {
	t, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := t.Close(ctx); err != nil && !errors.Is(err, ErrTableClosed) {
		return err
	}
	r.mu.Lock()
	delete(r.tables, id)
	r.mu.Unlock()
	return nil
}

// CloseAll closes every table, returning all seated chips to the ledger.
// Tables that could not be fully closed remain registered.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	tables := r.tables
	r.tables = make(map[string]*Table)
	r.mu.Unlock()

	var g errgroup.Group
	for id, t := range tables {
		g.Go(func() error {
			if err := t.Close(ctx); err != nil && !errors.Is(err, ErrTableClosed) {
				r.logger.Warn().Err(err).Str("table_id", id).Msg("Failed to close table")
				r.mu.Lock()
				r.tables[id] = t
				r.mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
}
