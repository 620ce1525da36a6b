package game

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/lox/holdembot/poker"
)

// Game is the betting state machine for one hand at a time.
type Game struct {
	rng   *rand.Rand
	decks []*poker.Deck

	players []*Player
	state   State
	street  Street
	ante    int

	btn, sb, bb int
	exePos      int
	nextRound   int

	highestBet   int // table high commitment, cumulative over the hand
	miniRaise    int // minimum street commitment for a legal raise
	lastRoundBet int // highestBet when the current street opened

	deck    *poker.Deck
	board   []poker.Card
	actions map[string]ActionRecord
	result  *Result
	events  []Event
}

// New creates an idle Game.
func New(opts ...Option) *Game {
	g := &Game{
		street:  End,
		actions: make(map[string]ActionRecord),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// QueueDeck makes the next Start deal from d.
func (g *Game) QueueDeck(d *poker.Deck) {
	g.decks = append(g.decks, d)
}

// Start deals a new hand to players, which must all be in ModeNormal with
// chips and distinct IDs. Seating order is the slice order and btn is taken
// modulo the number of players.
func (g *Game) Start(players []*Player, ante, btn int) error {
	if g.state == Running {
		return ErrAlreadyRunning
	}
	if len(players) < 2 {
		return ErrNotEnoughPlayers
	}
	if ante <= 0 {
		return fmt.Errorf("%w: ante %d", ErrInvalidAmount, ante)
	}
	seen := make(map[string]bool, len(players))
	for _, p := range players {
		if p == nil || p.Mode != ModeNormal || p.Chips <= 0 || seen[p.ID] {
			return ErrInvalidPlayer
		}
		seen[p.ID] = true
	}

	n := len(players)
	g.players = append(g.players[:0:0], players...)
	g.ante = ante
	g.btn = ((btn % n) + n) % n
	g.result = nil
	g.board = nil
	g.events = nil
	clear(g.actions)

	g.deck = g.nextDeck()
	for _, p := range g.players {
		p.reset()
		copy(p.Cards[:], g.deck.Deal(2))
	}

	if n == 2 {
		g.sb = g.btn
	} else {
		g.sb = (g.btn + 1) % n
	}
	g.bb = (g.sb + 1) % n

	g.state = Running
	g.street = Preflop
	g.lastRoundBet = 0
	g.emit(Event{Kind: EventHandStarted, Seat: g.btn, Street: Preflop})

	g.post(g.sb, ante/2, SmallBlind)
	g.post(g.bb, ante, BigBlind)
	g.highestBet = ante
	g.miniRaise = 2 * ante

	g.nextRound = (g.bb + 1) % n
	return g.openStreet()
}

func (g *Game) nextDeck() *poker.Deck {
	if len(g.decks) > 0 {
		d := g.decks[0]
		g.decks = g.decks[1:]
		return d
	}
	return poker.NewDeck(g.rng)
}

// post forces a blind, capped at the player's stack.
func (g *Game) post(pos, amount int, kind Action) {
	p := g.players[pos]
	amount = min(amount, p.Remaining())
	p.commit(amount)
	g.record(pos, kind, amount)
}

func (g *Game) record(pos int, kind Action, amount int) {
	p := g.players[pos]
	g.actions[p.ID] = ActionRecord{Action: kind, Amount: amount}
	g.emit(Event{Kind: EventAction, Seat: pos, PlayerID: p.ID, Action: kind, Amount: amount, Street: g.street})
}

func (g *Game) guard(pos int) (*Player, error) {
	if g.state != Running {
		return nil, ErrNotRunning
	}
	if pos != g.exePos || pos < 0 || pos >= len(g.players) {
		return nil, ErrNotYourTurn
	}
	return g.players[pos], nil
}

// Call matches the highest bet. With nothing to call it acts as a check.
func (g *Game) Call(pos int) error {
	p, err := g.guard(pos)
	if err != nil {
		return err
	}
	toCall := g.highestBet - p.ChipBet
	if toCall <= 0 {
		g.record(pos, Check, 0)
		return g.advance()
	}
	if toCall > p.Remaining() {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientChips, toCall, p.Remaining())
	}
	p.commit(toCall)
	if p.Status == StatusAllIn {
		g.record(pos, AllIn, toCall)
	} else {
		g.record(pos, Call, toCall)
	}
	return g.advance()
}

// Check passes the action when there is no outstanding bet.
func (g *Game) Check(pos int) error {
	p, err := g.guard(pos)
	if err != nil {
		return err
	}
	if p.ChipBet < g.highestBet {
		return fmt.Errorf("%w: must call %d", ErrCannotCheck, g.highestBet-p.ChipBet)
	}
	g.record(pos, Check, 0)
	return g.advance()
}

// Fold gives up the hand.
func (g *Game) Fold(pos int) error {
	p, err := g.guard(pos)
	if err != nil {
		return err
	}
	p.Status = StatusFolded
	g.record(pos, Fold, 0)
	return g.advance()
}

// Raise commits num more chips. The player's commitment on this street after
// the raise must reach the minimum raise.
func (g *Game) Raise(pos, num int) error {
	p, err := g.guard(pos)
	if err != nil {
		return err
	}
	if num <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, num)
	}
	if num > p.Remaining() {
		return fmt.Errorf("%w: raise %d, have %d", ErrInsufficientChips, num, p.Remaining())
	}
	newBet := p.ChipBet + num
	if newBet-g.lastRoundBet < g.miniRaise || newBet <= g.highestBet {
		return fmt.Errorf("%w: minimum is %d", ErrRaiseTooSmall, g.miniRaise-(p.ChipBet-g.lastRoundBet))
	}
	p.commit(num)
	g.raiseTo(pos, p.ChipBet)
	if p.Status == StatusAllIn {
		g.record(pos, AllIn, num)
	} else {
		g.record(pos, Raise, num)
	}
	return g.advance()
}

// AllIn commits the player's whole remaining stack. Going over the highest
// bet reopens the action like a raise.
func (g *Game) AllIn(pos int) error {
	p, err := g.guard(pos)
	if err != nil {
		return err
	}
	num := p.Remaining()
	p.commit(num)
	if p.ChipBet > g.highestBet {
		g.raiseTo(pos, p.ChipBet)
	}
	g.record(pos, AllIn, num)
	return g.advance()
}

func (g *Game) raiseTo(pos, total int) {
	g.miniRaise += total - g.highestBet
	g.highestBet = total
	g.nextRound = pos
}

// advance moves the action after a successful action by exePos.
func (g *Game) advance() error {
	if g.liveCount() <= 1 {
		return g.settle()
	}
	n := len(g.players)
	for i := 1; i <= n; i++ {
		pos := (g.exePos + i) % n
		if pos == g.nextRound {
			return g.nextStreet()
		}
		p := g.players[pos]
		if !p.CanAct() {
			continue
		}
		if g.actableCount() == 1 && p.ChipBet >= g.highestBet {
			// Nobody left to bet against.
			return g.nextStreet()
		}
		g.setTurn(pos)
		return nil
	}
	return g.nextStreet()
}

func (g *Game) nextStreet() error {
	switch g.street {
	case Preflop:
		g.board = append(g.board, g.deck.Deal(3)...)
	case Flop, Turn:
		g.board = append(g.board, g.deck.DealOne())
	default:
		return g.settle()
	}
	g.street++
	g.lastRoundBet = g.highestBet
	g.miniRaise = g.ante
	clear(g.actions)
	g.emit(Event{Kind: EventStreet, Street: g.street, Board: g.Board()})

	g.nextRound = (g.btn + 1) % len(g.players)
	return g.openStreet()
}

// openStreet hands the action to the first actable seat at or after
// nextRound, or runs the board out when no betting is possible.
func (g *Game) openStreet() error {
	actable := g.actableCount()
	if actable == 0 {
		return g.runout()
	}
	n := len(g.players)
	for i := range n {
		pos := (g.nextRound + i) % n
		p := g.players[pos]
		if !p.CanAct() {
			continue
		}
		if actable == 1 && p.ChipBet >= g.highestBet {
			return g.runout()
		}
		g.setTurn(pos)
		return nil
	}
	return g.runout()
}

func (g *Game) runout() error {
	if len(g.board) < 5 {
		g.board = append(g.board, g.deck.Deal(5-len(g.board))...)
		g.street = River
		g.emit(Event{Kind: EventStreet, Street: River, Board: g.Board()})
	}
	return g.settle()
}

func (g *Game) setTurn(pos int) {
	g.exePos = pos
	g.emit(Event{Kind: EventTurn, Seat: pos, PlayerID: g.players[pos].ID, Street: g.street})
}

func (g *Game) liveCount() int {
	n := 0
	for _, p := range g.players {
		if p.Live() {
			n++
		}
	}
	return n
}

func (g *Game) actableCount() int {
	n := 0
	for _, p := range g.players {
		if p.CanAct() {
			n++
		}
	}
	return n
}

// Abort abandons the hand in progress. Commitments are cleared so every
// player keeps their stack.
func (g *Game) Abort() {
	if g.state != Running {
		return
	}
	for _, p := range g.players {
		p.ChipBet = 0
		if p.Status == StatusAllIn {
			p.Status = StatusPlaying
		}
	}
	g.state = Waiting
	g.street = End
	g.result = nil
}

// State returns whether a hand is running.
func (g *Game) State() State { return g.state }

// Street returns the current street, End between hands.
func (g *Game) Street() Street { return g.street }

// ExePos returns the seat whose action is required.
func (g *Game) ExePos() int { return g.exePos }

// Button returns the dealer seat of the current or last hand.
func (g *Game) Button() int { return g.btn }

// Blinds returns the small and big blind seats.
func (g *Game) Blinds() (sb, bb int) { return g.sb, g.bb }

func (g *Game) HighestBet() int   { return g.highestBet }
func (g *Game) MiniRaise() int    { return g.miniRaise }
func (g *Game) LastRoundBet() int { return g.lastRoundBet }
func (g *Game) Ante() int         { return g.ante }

// Board returns a copy of the community cards.
func (g *Game) Board() []poker.Card {
	return append([]poker.Card(nil), g.board...)
}

// TotalPot returns the sum of all commitments this hand.
func (g *Game) TotalPot() int {
	total := 0
	for _, p := range g.players {
		total += p.ChipBet
	}
	return total
}

// Players returns the seating of the current or last hand.
func (g *Game) Players() []*Player {
	return g.players
}

// Result returns the settlement of the last finished hand, or nil.
func (g *Game) Result() *Result { return g.result }

// Actions returns a copy of this street's last action per player ID.
func (g *Game) Actions() map[string]ActionRecord {
	out := make(map[string]ActionRecord, len(g.actions))
	for k, v := range g.actions {
		out[k] = v
	}
	return out
}

// ToCall returns the chips pos must add to match the highest bet.
func (g *Game) ToCall(pos int) int {
	if pos < 0 || pos >= len(g.players) {
		return 0
	}
	return max(0, g.highestBet-g.players[pos].ChipBet)
}

// CanCheck reports whether pos could check right now.
func (g *Game) CanCheck(pos int) bool {
	return g.state == Running && pos == g.exePos && g.ToCall(pos) == 0
}

// Seat returns the seat of the player with id in the current hand.
func (g *Game) Seat(id string) (int, bool) {
	for i, p := range g.players {
		if p.ID == id {
			return i, true
		}
	}
	return -1, false
}
