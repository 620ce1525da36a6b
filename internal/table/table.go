// Package table runs poker tables: seating, the per-table turn clock, bot
// seats and the hand-off of chips to and from the ledger.
package table

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/holdembot/internal/game"
	"github.com/lox/holdembot/internal/ledger"
)

// Option configures a Table.
type Option func(*Table)

// WithClock sets the clock driving turn timeouts and idle teardown.
func WithClock(clock quartz.Clock) Option {
	return func(t *Table) { t.clock = clock }
}

// WithLogger sets the table logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(t *Table) { t.logger = logger }
}

// WithStrategy sets the strategy used by bot seats.
func WithStrategy(s Strategy) Option {
	return func(t *Table) { t.strategy = s }
}

// WithGameOptions passes options to the table's game.
func WithGameOptions(opts ...game.Option) Option {
	return func(t *Table) { t.gameOpts = append(t.gameOpts, opts...) }
}

// Table seats players across consecutive hands of one game. All state is
// guarded by a single mutex shared by the command path and the turn clock.
type Table struct {
	id      string
	channel string
	owner   string
	cfg     Config

	store     ledger.ChipStore
	messenger Messenger
	clock     quartz.Clock
	logger    zerolog.Logger
	strategy  Strategy
	gameOpts  []game.Option

	mu          sync.Mutex
	game        *game.Game
	players     []*game.Player // roster in seat order
	btn         int
	handOpen    bool // a hand was started and has not been closed out
	handsPlayed int
	closed      bool

	cancel     context.CancelFunc
	done       chan struct{}
	countdown  int
	lastPos    int
	lastStreet game.Street
	status     Handle
	idle       *quartz.Timer
	idleGen    int
}

// JoinResult describes a successful join.
type JoinResult struct {
	ID      string
	Name    string
	Seat    int
	Chips   int // chips brought to the table
	Balance int // bankroll left in the ledger
}

// New creates a table and arms its idle timer.
func New(id, channel, owner string, cfg Config, store ledger.ChipStore, messenger Messenger, opts ...Option) *Table {
	t := &Table{
		id:        id,
		channel:   channel,
		owner:     owner,
		cfg:       cfg.withDefaults(),
		store:     store,
		messenger: messenger,
		clock:     quartz.NewReal(),
		logger:    zerolog.Nop(),
		strategy:  callingStation{},
		lastPos:   -1,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.messenger == nil {
		t.messenger = NopMessenger{}
	}
	t.logger = t.logger.With().Str("component", "table").Str("table_id", id).Logger()
	t.game = game.New(t.gameOpts...)

	t.mu.Lock()
	t.armIdle()
	t.mu.Unlock()
	return t
}

func (t *Table) ID() string      { return t.id }
func (t *Table) Channel() string { return t.channel }
func (t *Table) Owner() string   { return t.owner }

// Join seats a player, funding them from the ledger. The player sits out
// until the next hand starts.
func (t *Table) Join(ctx context.Context, userID, name string, bot bool) (JoinResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return JoinResult{}, ErrTableClosed
	}
	// A leaving player keeps the seat until the hand boundary.
	if slices.ContainsFunc(t.players, func(p *game.Player) bool { return p.ID == userID }) {
		return JoinResult{}, ErrAlreadySeated
	}
	if len(t.players) >= t.cfg.MaxPlayers {
		return JoinResult{}, ErrTableFull
	}

	if _, err := ledger.EnsureAccount(ctx, t.store, userID, t.cfg.InitialChips); err != nil {
		return JoinResult{}, fmt.Errorf("fetch bankroll: %w", err)
	}
	chips, err := t.store.TransferToTable(ctx, userID, t.cfg.BuyIn, t.id)
	if err != nil {
		return JoinResult{}, err
	}
	balance, _, err := t.store.FetchBalance(ctx, userID)
	if err != nil {
		t.logger.Warn().Err(err).Str("user", userID).Msg("Failed to read balance after buy-in")
	}

	p := game.NewPlayer(userID, name, chips, bot)
	t.players = append(t.players, p)
	seat := len(t.players) - 1

	t.logger.Info().Str("user", userID).Bool("bot", bot).Int("chips", chips).Msg("Player joined")
	t.postText(ctx, fmt.Sprintf("%s joined the table with %d chips", name, chips))
	return JoinResult{ID: userID, Name: name, Seat: seat, Chips: chips, Balance: balance}, nil
}

// Leave marks a player as leaving and returns their uncommitted chips to the
// ledger at once. During a hand the seat is freed at the hand boundary and
// chips already in the pot are settled with the hand.
func (t *Table) Leave(ctx context.Context, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTableClosed
	}
	i := t.seat(userID)
	if i < 0 {
		return ErrNotSeated
	}
	p := t.players[i]

	refund := p.Chips
	if _, inHand := t.game.Seat(userID); t.handOpen && inHand {
		refund = p.Remaining()
	}
	if err := t.returnChips(ctx, p, refund); err != nil {
		return err
	}
	p.Chips -= refund
	p.Mode = game.ModeLeaving
	if !t.handOpen {
		t.purge(ctx)
	}

	t.logger.Info().Str("user", userID).Int("refund", refund).Msg("Player leaving")
	t.postText(ctx, fmt.Sprintf("%s left the table", p.Name))
	return nil
}

// Start deals the first hand.
func (t *Table) Start(ctx context.Context, userID string) error {
	return t.begin(ctx, userID, false)
}

// Continue rotates the button and deals the next hand.
func (t *Table) Continue(ctx context.Context, userID string) error {
	return t.begin(ctx, userID, true)
}

func (t *Table) begin(ctx context.Context, userID string, rotate bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTableClosed
	}
	if t.cfg.OwnerOnlyStart && userID != t.owner {
		return ErrNotOwner
	}
	if t.handOpen {
		return ErrHandRunning
	}
	if rotate {
		t.btn++
	}
	return t.startHand(ctx)
}

// AddBot seats a new bot player. Bots get their own ledger account and are
// funded like any other player.
func (t *Table) AddBot(ctx context.Context) (JoinResult, error) {
	id := "bot-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return t.Join(ctx, id, "Bot "+id[4:8], true)
}

// Close tears the table down: the clock stops, any hand is abandoned and
// every player's chips go back to the ledger. Nothing more is posted. Players
// whose chips the ledger refused stay seated and calling Close again retries
// them.
func (t *Table) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		defer t.mu.Unlock()
		if len(t.players) == 0 {
			return ErrTableClosed
		}
		return t.returnAll(ctx)
	}
	t.closed = true
	t.messenger = NopMessenger{}
	t.game.Abort()
	t.handOpen = false
	t.stopIdle()
	done := t.stopLoop()
	err := t.returnAll(ctx)
	t.mu.Unlock()

	if done != nil {
		<-done
	}
	if err != nil {
		return err
	}
	t.logger.Info().Msg("Table closed")
	return nil
}

// Closed reports whether Close has been called.
func (t *Table) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// seat returns the roster index of a player who has not asked to leave.
func (t *Table) seat(userID string) int {
	return slices.IndexFunc(t.players, func(p *game.Player) bool {
		return p.ID == userID && p.Mode != game.ModeLeaving
	})
}

// returnChips credits chips to the player's bankroll. The caller adjusts the
// stack only once this succeeds.
func (t *Table) returnChips(ctx context.Context, p *game.Player, chips int) error {
	if chips <= 0 {
		return nil
	}
	if err := t.store.ReturnFromTable(ctx, p.ID, t.id, chips); err != nil {
		t.logger.Error().Err(err).Str("user", p.ID).Int("chips", chips).Msg("Failed to return chips to ledger")
		return fmt.Errorf("return %d chips to ledger: %w", chips, err)
	}
	return nil
}

// returnAll empties the roster, crediting every stack back to the ledger.
// Players whose chips could not be returned keep their seat and stack.
func (t *Table) returnAll(ctx context.Context) error {
	var errs []error
	kept := t.players[:0]
	for _, p := range t.players {
		if err := t.returnChips(ctx, p, p.Chips); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.ID, err))
			kept = append(kept, p)
			continue
		}
		p.Chips = 0
	}
	clear(t.players[len(kept):])
	t.players = kept
	t.btn = 0
	return errors.Join(errs...)
}

// purge removes leaving and broke players at a hand boundary. A leaving
// player the ledger refused stays on the roster, sitting out, until their
// chips are returned.
func (t *Table) purge(ctx context.Context) {
	kept := t.players[:0]
	for _, p := range t.players {
		if p.Mode == game.ModeNormal && p.Chips <= 0 {
			p.Mode = game.ModeLeaving
			t.postText(ctx, fmt.Sprintf("%s is out of chips", p.Name))
		}
		if p.Mode == game.ModeLeaving {
			if err := t.returnChips(ctx, p, p.Chips); err != nil {
				// Retried at the next hand boundary.
				kept = append(kept, p)
				continue
			}
			p.Chips = 0
			continue
		}
		kept = append(kept, p)
	}
	clear(t.players[len(kept):])
	t.players = kept
}

func (t *Table) armIdle() {
	t.stopIdle()
	t.idleGen++
	gen := t.idleGen
	t.idle = t.clock.AfterFunc(t.cfg.IdleTimeout, func() { t.idleReset(gen) }, "table", "idle")
}

func (t *Table) stopIdle() {
	if t.idle != nil {
		t.idle.Stop()
		t.idle = nil
	}
	t.idleGen++
}

// idleReset returns every seat's chips and empties the table when no hand
// was started within the idle window.
func (t *Table) idleReset(gen int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.handOpen || gen != t.idleGen {
		return
	}
	if err := t.returnAll(context.Background()); err != nil {
		t.logger.Warn().Err(err).Msg("Some players kept their seat after idle reset")
	}
	t.game = game.New(t.gameOpts...)
	t.handsPlayed = 0
	t.logger.Info().Msg("Table idle, reset")
	t.armIdle()
}

func (t *Table) postText(ctx context.Context, text string) Handle {
	h, err := t.messenger.Post(ctx, t.channel, Message{Text: text})
	if err != nil && !errors.Is(err, context.Canceled) {
		t.logger.Warn().Err(err).Msg("Failed to post message")
	}
	return h
}

func (t *Table) postPrivate(ctx context.Context, userID, text string) {
	if err := t.messenger.PostPrivate(ctx, t.channel, userID, Message{Text: text}); err != nil {
		t.logger.Warn().Err(err).Str("user", userID).Msg("Failed to post private message")
	}
}
