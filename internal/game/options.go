package game

import (
	rand "math/rand/v2"

	"github.com/lox/holdembot/poker"
)

// Option configures a Game.
type Option func(*Game)

// WithRNG shuffles every hand's deck with rng.
func WithRNG(rng *rand.Rand) Option {
	return func(g *Game) {
		g.rng = rng
	}
}

// WithDecks queues prepared decks. Each Start consumes the next one before
// falling back to a freshly shuffled deck.
func WithDecks(decks ...*poker.Deck) Option {
	return func(g *Game) {
		g.decks = append(g.decks, decks...)
	}
}
