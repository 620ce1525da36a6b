package table

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdembot/internal/game"
	"github.com/lox/holdembot/internal/ledger"
	"github.com/lox/holdembot/poker"
)

type recorder struct {
	mu      sync.Mutex
	seq     int
	posts   []string
	private map[string][]string
	updates int
	deletes int
}

func newRecorder() *recorder {
	return &recorder{private: make(map[string][]string)}
}

func (r *recorder) Post(_ context.Context, _ string, msg Message) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.posts = append(r.posts, msg.Text)
	return Handle(fmt.Sprintf("m%d", r.seq)), nil
}

func (r *recorder) Update(context.Context, Handle, Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	return nil
}

func (r *recorder) Delete(context.Context, Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	return nil
}

func (r *recorder) PostPrivate(_ context.Context, _, userID string, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.private[userID] = append(r.private[userID], msg.Text)
	return nil
}

func (r *recorder) count(substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.posts {
		if strings.Contains(p, substr) {
			n++
		}
	}
	return n
}

func (r *recorder) privateFor(user string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.private[user]...)
}

func testConfig() Config {
	return Config{
		MaxPlayers:     9,
		Ante:           20,
		BuyIn:          500,
		InitialChips:   500,
		TurnTimeout:    3 * time.Second,
		IdleTimeout:    10 * time.Minute,
		Tick:           time.Second,
		OwnerOnlyStart: true,
	}
}

type fixture struct {
	table *Table
	store *ledger.MemoryStore
	msgs  *recorder
	clock *quartz.Mock
}

func newFixture(t *testing.T, cfg Config, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store: ledger.NewMemoryStore(),
		msgs:  newRecorder(),
		clock: quartz.NewMock(t),
	}
	opts = append([]Option{WithClock(f.clock), WithLogger(zerolog.Nop())}, opts...)
	f.table = New("t1", "general", "u1", cfg, f.store, f.msgs, opts...)
	t.Cleanup(func() { _ = f.table.Close(context.Background()) })
	return f
}

func (f *fixture) join(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := f.table.Join(context.Background(), id, "name-"+id, false)
		require.NoError(t, err)
	}
}

func (f *fixture) balance(t *testing.T, id string) int {
	t.Helper()
	b, found, err := f.store.FetchBalance(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)
	return b
}

func rigged(cards string) Option {
	return WithGameOptions(game.WithDecks(poker.NewOrderedDeck(poker.MustParseCards(cards)...)))
}

func TestJoinFundsFromLedger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, testConfig())

	res, err := f.table.Join(ctx, "u1", "alice", false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Seat)
	assert.Equal(t, 500, res.Chips)
	assert.Equal(t, 0, res.Balance)
	assert.Equal(t, 1, f.msgs.count("alice joined"))

	_, err = f.table.Join(ctx, "u1", "alice", false)
	assert.ErrorIs(t, err, ErrAlreadySeated)

	require.NoError(t, f.table.Leave(ctx, "u1"))
	assert.Equal(t, 500, f.balance(t, "u1"))
	assert.ErrorIs(t, f.table.Leave(ctx, "u1"), ErrNotSeated)
	assert.Empty(t, f.table.Info().Players)

	res, err = f.table.Join(ctx, "u1", "alice", false)
	require.NoError(t, err)
	assert.Equal(t, 500, res.Chips)
}

func TestJoinWithoutFunds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, testConfig())
	require.NoError(t, f.store.CreateAccount(ctx, "broke", 0))

	_, err := f.table.Join(ctx, "broke", "broke", false)
	assert.ErrorIs(t, err, ErrNoFunds)
	assert.Empty(t, f.table.Info().Players)
}

func TestJoinFullTable(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MaxPlayers = 2
	f := newFixture(t, cfg)
	f.join(t, "u1", "u2")

	_, err := f.table.Join(context.Background(), "u3", "carol", false)
	assert.ErrorIs(t, err, ErrTableFull)
}

func TestStartRules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, testConfig())
	f.join(t, "u1")

	assert.ErrorIs(t, f.table.Start(ctx, "u1"), game.ErrNotEnoughPlayers)
	f.join(t, "u2")
	assert.ErrorIs(t, f.table.Start(ctx, "u2"), ErrNotOwner)
	require.NoError(t, f.table.Start(ctx, "u1"))
	assert.ErrorIs(t, f.table.Start(ctx, "u1"), ErrHandRunning)
	assert.ErrorIs(t, f.table.Continue(ctx, "u1"), ErrHandRunning)

	info := f.table.Info()
	assert.True(t, info.Running)
	assert.Equal(t, "preflop", info.Street)
	assert.Equal(t, "u1", info.Acting)
	for _, p := range info.Players {
		assert.Equal(t, "normal", p.Mode)
	}

	for _, id := range []string{"u1", "u2"} {
		cards := f.msgs.privateFor(id)
		require.NotEmpty(t, cards)
		assert.True(t, strings.HasPrefix(cards[0], "Your cards: "))
	}
	assert.Contains(t, f.msgs.privateFor("u1"), "Your turn. To call: 10, chips behind: 490")
}

func TestHandSettlesThroughLedger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, testConfig())
	f.join(t, "u1", "u2", "u3")

	require.NoError(t, f.table.Start(ctx, "u1"))
	// Button 0, small blind u2, big blind u3, u1 to act.
	assert.ErrorIs(t, f.table.Call(ctx, "u2"), game.ErrNotYourTurn)
	assert.ErrorIs(t, f.table.Call(ctx, "nobody"), ErrNotSeated)

	require.NoError(t, f.table.Fold(ctx, "u1"))
	require.NoError(t, f.table.Fold(ctx, "u2"))

	info := f.table.Info()
	assert.False(t, info.Running)
	assert.Equal(t, 1, info.HandsPlayed)
	assert.Equal(t, 1, f.msgs.count("Game Over!"))
	assert.Equal(t, 1, f.msgs.count("name-u3 +10"))

	chips := map[string]int{}
	for _, p := range info.Players {
		chips[p.ID] = p.Chips
	}
	assert.Equal(t, map[string]int{"u1": 500, "u2": 490, "u3": 510}, chips)

	require.NoError(t, f.table.Leave(ctx, "u2"))
	assert.Equal(t, 490, f.balance(t, "u2"))
	assert.ErrorIs(t, f.table.Call(ctx, "u1"), game.ErrNotRunning)
}

func TestContinueRotatesButton(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, testConfig())
	f.join(t, "u1", "u2", "u3")

	require.NoError(t, f.table.Start(ctx, "u1"))
	assert.Equal(t, 0, f.table.Info().Button)
	require.NoError(t, f.table.Fold(ctx, "u1"))
	require.NoError(t, f.table.Fold(ctx, "u2"))

	require.NoError(t, f.table.Continue(ctx, "u1"))
	info := f.table.Info()
	assert.Equal(t, 1, info.Button)
	assert.Equal(t, "u2", info.Acting)
}

func TestTimeoutFoldsOncePerWindow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, testConfig())
	f.join(t, "u1", "u2", "u3")
	require.NoError(t, f.table.Start(ctx, "u1"))

	// Three ticks drain the countdown, the fourth folds.
	for range 3 {
		require.True(t, f.table.tick(ctx))
	}
	assert.Zero(t, f.msgs.count("ran out of time"))
	require.True(t, f.table.tick(ctx))
	assert.Equal(t, 1, f.msgs.count("name-u1 ran out of time"))

	info := f.table.Info()
	assert.Equal(t, "u2", info.Acting)
	assert.Equal(t, 3, info.Countdown)

	for range 3 {
		require.True(t, f.table.tick(ctx))
	}
	assert.Equal(t, 1, f.msgs.count("ran out of time"))
	require.False(t, f.table.tick(ctx), "second timeout ends the hand")
	assert.Equal(t, 1, f.msgs.count("name-u2 ran out of time"))
	assert.False(t, f.table.Info().Running)
	assert.Positive(t, f.msgs.updates)
}

func TestClockDrivesTimeouts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, testConfig())
	f.join(t, "u1", "u2")
	require.NoError(t, f.table.Start(ctx, "u1"))

	require.Eventually(t, func() bool {
		f.clock.Advance(time.Second).MustWait(ctx)
		return f.table.Info().HandsPlayed == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, f.msgs.count("ran out of time"))
	assert.Equal(t, 1, f.msgs.count("Game Over!"))
}

func TestBotChecksCallsAndFolds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, testConfig())
	f.join(t, "u1")
	bot, err := f.table.AddBot(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(bot.ID, "bot-"))
	assert.Equal(t, 500, f.balance(t, bot.ID)+bot.Chips)

	require.NoError(t, f.table.Start(ctx, "u1"))
	// Heads-up: the human has the button and acts first.
	require.NoError(t, f.table.Call(ctx, "u1"))
	require.True(t, f.table.tick(ctx))

	info := f.table.Info()
	require.Equal(t, "flop", info.Street)
	assert.Equal(t, bot.ID, info.Acting)
	require.True(t, f.table.tick(ctx))
	assert.Equal(t, "u1", f.table.Info().Acting, "bot checked")

	require.NoError(t, f.table.Bet(ctx, "u1", 100))
	require.True(t, f.table.tick(ctx))
	info = f.table.Info()
	assert.Equal(t, "turn", info.Street)
	assert.Equal(t, 120, info.HighestBet, "bot called the bet")

	require.True(t, f.table.tick(ctx))
	assert.Equal(t, "u1", f.table.Info().Acting)
	require.NoError(t, f.table.Check(ctx, "u1"))
	assert.Equal(t, "river", f.table.Info().Street)
}

func TestBotFoldsWhenItCannotCall(t *testing.T) {
	t.Parallel()
	g := game.New()
	players := []*game.Player{
		game.NewPlayer("u1", "alice", 500, false),
		game.NewPlayer("b1", "bot", 100, true),
	}
	for _, p := range players {
		p.Mode = game.ModeNormal
	}
	require.NoError(t, g.Start(players, 20, 0))
	require.NoError(t, g.Raise(0, 300))

	s := callingStation{}
	action, _ := s.Decide(g, 1)
	assert.Equal(t, game.Fold, action)
}

func TestLeaveMidHandForceFolds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, testConfig())
	f.join(t, "u1", "u2", "u3")
	require.NoError(t, f.table.Start(ctx, "u1"))

	require.NoError(t, f.table.Call(ctx, "u1"))
	require.NoError(t, f.table.Call(ctx, "u2"))
	require.Equal(t, "u3", f.table.Info().Acting)

	// u3 posted the big blind; only the uncommitted chips come back now.
	require.NoError(t, f.table.Leave(ctx, "u3"))
	assert.Equal(t, 480, f.balance(t, "u3"))
	assert.ErrorIs(t, f.table.Fold(ctx, "u3"), ErrNotSeated)

	require.True(t, f.table.tick(ctx))
	assert.Equal(t, 1, f.msgs.count("name-u3 folds"))

	info := f.table.Info()
	require.Equal(t, "flop", info.Street)
	require.NoError(t, f.table.Fold(ctx, info.Acting))

	info = f.table.Info()
	assert.False(t, info.Running)
	assert.Len(t, info.Players, 2)
	assert.Equal(t, 480, f.balance(t, "u3"))
}

func TestCloseReturnsChips(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, testConfig())
	f.join(t, "u1", "u2")
	require.NoError(t, f.table.Start(ctx, "u1"))
	require.NoError(t, f.table.Bet(ctx, "u1", 200))
	posted := f.msgs.count("")

	require.NoError(t, f.table.Close(ctx))
	assert.True(t, f.table.Closed())
	assert.Equal(t, 500, f.balance(t, "u1"))
	assert.Equal(t, 500, f.balance(t, "u2"))
	assert.Equal(t, posted, f.msgs.count(""), "nothing posted after close")

	assert.ErrorIs(t, f.table.Close(ctx), ErrTableClosed)
	_, err := f.table.Join(ctx, "u3", "carol", false)
	assert.ErrorIs(t, err, ErrTableClosed)
	assert.ErrorIs(t, f.table.Start(ctx, "u1"), ErrTableClosed)
	assert.False(t, f.table.tick(ctx))
}

func TestIdleTableResets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, testConfig())
	f.join(t, "u1", "u2")

	f.clock.Advance(10 * time.Minute).MustWait(ctx)
	require.Eventually(t, func() bool {
		return len(f.table.Info().Players) == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 500, f.balance(t, "u1"))
	assert.Equal(t, 500, f.balance(t, "u2"))
	assert.False(t, f.table.Closed())
}

func TestShowdownPostsHands(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, testConfig(), rigged("As Ah Ks Kh 2c 7d 9c Js 4h"))
	f.join(t, "u1", "u2")
	require.NoError(t, f.table.Start(ctx, "u1"))

	require.NoError(t, f.table.AllIn(ctx, "u1"))
	require.NoError(t, f.table.Call(ctx, "u2"))

	assert.Equal(t, 1, f.msgs.count("Showdown on 2c 7d 9c Js 4h"))
	assert.Equal(t, 1, f.msgs.count("name-u2 is out of chips"))
	info := f.table.Info()
	require.Len(t, info.Players, 1)
	assert.Equal(t, 1000, info.Players[0].Chips)

	require.NoError(t, f.table.Leave(ctx, "u1"))
	assert.Equal(t, 1000, f.balance(t, "u1"))
	assert.Equal(t, 0, f.balance(t, "u2"))
}

var errLedgerDown = errors.New("ledger unavailable")

// flakyStore fails ReturnFromTable while down is set.
type flakyStore struct {
	*ledger.MemoryStore
	down atomic.Bool
}

func (s *flakyStore) ReturnFromTable(ctx context.Context, user, tableID string, chips int) error {
	if s.down.Load() {
		return errLedgerDown
	}
	return s.MemoryStore.ReturnFromTable(ctx, user, tableID, chips)
}

func newFlakyTable(t *testing.T) (*Table, *flakyStore) {
	t.Helper()
	store := &flakyStore{MemoryStore: ledger.NewMemoryStore()}
	tbl := New("t1", "general", "u1", testConfig(), store, newRecorder(),
		WithClock(quartz.NewMock(t)), WithLogger(zerolog.Nop()))
	t.Cleanup(func() {
		store.down.Store(false)
		_ = tbl.Close(context.Background())
	})
	return tbl, store
}

func TestLeaveKeepsChipsWhenLedgerFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tbl, store := newFlakyTable(t)
	_, err := tbl.Join(ctx, "u1", "alice", false)
	require.NoError(t, err)

	store.down.Store(true)
	require.ErrorIs(t, tbl.Leave(ctx, "u1"), errLedgerDown)
	info := tbl.Info()
	require.Len(t, info.Players, 1)
	assert.Equal(t, 500, info.Players[0].Chips)
	assert.NotEqual(t, game.ModeLeaving.String(), info.Players[0].Mode)
	balance, _, _ := store.FetchBalance(ctx, "u1")
	assert.Zero(t, balance)

	store.down.Store(false)
	require.NoError(t, tbl.Leave(ctx, "u1"))
	assert.Empty(t, tbl.Info().Players)
	balance, _, _ = store.FetchBalance(ctx, "u1")
	assert.Equal(t, 500, balance)
}

func TestCloseRetriesRefusedReturns(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tbl, store := newFlakyTable(t)
	for _, id := range []string{"u1", "u2"} {
		_, err := tbl.Join(ctx, id, "name-"+id, false)
		require.NoError(t, err)
	}

	store.down.Store(true)
	require.ErrorIs(t, tbl.Close(ctx), errLedgerDown)
	assert.True(t, tbl.Closed())
	assert.Len(t, tbl.Info().Players, 2, "stacks stay on the table")

	store.down.Store(false)
	require.NoError(t, tbl.Close(ctx))
	assert.Empty(t, tbl.Info().Players)
	for _, id := range []string{"u1", "u2"} {
		balance, _, _ := store.FetchBalance(ctx, id)
		assert.Equal(t, 500, balance)
	}
	assert.ErrorIs(t, tbl.Close(ctx), ErrTableClosed)
}

func TestRegistryKeepsTableUntilChipsReturned(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &flakyStore{MemoryStore: ledger.NewMemoryStore()}
	reg := NewRegistry(testConfig(), store, NopMessenger{}, zerolog.Nop(), WithRegistryClock(quartz.NewMock(t)))
	tbl := reg.Open("general", "u1")
	_, err := tbl.Join(ctx, "u1", "alice", false)
	require.NoError(t, err)

	store.down.Store(true)
	require.ErrorIs(t, reg.Close(ctx, tbl.ID()), errLedgerDown)
	_, err = reg.Get(tbl.ID())
	require.NoError(t, err)

	store.down.Store(false)
	require.NoError(t, reg.Close(ctx, tbl.ID()))
	_, err = reg.Get(tbl.ID())
	assert.ErrorIs(t, err, ErrTableNotFound)
	balance, _, _ := store.FetchBalance(ctx, "u1")
	assert.Equal(t, 500, balance)
}

func TestStoppedLoopTickIsIgnored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, testConfig())
	f.join(t, "u1", "u2", "u3")
	require.NoError(t, f.table.Start(ctx, "u1"))
	before := f.table.Info()

	stale, cancel := context.WithCancel(ctx)
	cancel()
	for range 5 {
		assert.False(t, f.table.tick(stale))
	}

	after := f.table.Info()
	assert.Equal(t, before.Acting, after.Acting)
	assert.Equal(t, before.Countdown, after.Countdown)
	assert.Zero(t, f.msgs.count("ran out of time"))
}
