package table

import (
	"fmt"

	"github.com/lox/holdembot/internal/game"
	"github.com/lox/holdembot/poker"
)

// Strategy decides the action of a bot seat.
type Strategy interface {
	Name() string
	Decide(g *game.Game, pos int) (game.Action, int)
}

// StrategyByName returns one of the built-in strategies: "calling" or
// "chart".
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case "", "calling":
		return callingStation{}, nil
	case "chart":
		return chart{}, nil
	default:
		return nil, fmt.Errorf("unknown bot strategy %q", name)
	}
}

// callingStation checks when it can, calls when it can afford to and folds
// otherwise. It never raises.
type callingStation struct{}

func (callingStation) Name() string { return "calling" }

func (callingStation) Decide(g *game.Game, pos int) (game.Action, int) {
	if g.CanCheck(pos) {
		return game.Check, 0
	}
	p := g.Players()[pos]
	if g.ToCall(pos) <= p.Remaining() {
		return game.Call, 0
	}
	return game.Fold, 0
}

// chart plays a preflop chart: it min-raises premium hands, folds weak ones
// to anything above the big blind and otherwise plays like a calling
// station.
type chart struct{}

func (chart) Name() string { return "chart" }

func (chart) Decide(g *game.Game, pos int) (game.Action, int) {
	if g.Street() != game.Preflop {
		return callingStation{}.Decide(g, pos)
	}
	p := g.Players()[pos]
	switch poker.CategorizeStartingHand(p.Cards[0], p.Cards[1]) {
	case poker.Premium:
		target := max(g.LastRoundBet()+g.MiniRaise(), g.HighestBet()+1)
		num := target - p.ChipBet
		if num >= p.Remaining() {
			return game.AllIn, 0
		}
		return game.Raise, num
	case poker.Trash, poker.Weak:
		if g.HighestBet() > g.Ante() && !g.CanCheck(pos) {
			return game.Fold, 0
		}
	}
	return callingStation{}.Decide(g, pos)
}
