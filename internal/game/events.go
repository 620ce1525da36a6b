package game

import (
	"github.com/lox/holdembot/poker"
)

// EventKind identifies what changed in a Game.
type EventKind int

const (
	EventHandStarted EventKind = iota
	EventAction
	EventStreet
	EventTurn
	EventHandEnded
)

func (k EventKind) String() string {
	return [...]string{"hand_started", "action", "street", "turn", "hand_ended"}[k]
}

// Event is queued by the Game on every state change. Fields not relevant to
// the Kind are left zero.
type Event struct {
	Kind     EventKind
	Seat     int
	PlayerID string
	Action   Action
	Amount   int
	Street   Street
	Board    []poker.Card
	Result   *Result
}

func (g *Game) emit(e Event) {
	g.events = append(g.events, e)
}

// DrainEvents returns and clears the queued events.
func (g *Game) DrainEvents() []Event {
	events := g.events
	g.events = nil
	return events
}
