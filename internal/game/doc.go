// Package game implements the Texas Hold'em hand state machine used by a
// table.
//
// A Game holds the state of one hand at a time. Start deals a new hand to a
// snapshot of seated players, the action methods (Call, Check, Fold, Raise,
// AllIn) advance it, and once betting concludes the Game computes a Result
// holding the per-player chip deltas. Deltas are only applied to the players
// when the caller invokes Result.Execute, so results can be displayed before
// bankrolls change.
//
// # Basic Usage
//
//	g := game.New(game.WithRNG(randutil.New(42)))
//	players := []*game.Player{
//	    game.NewPlayer("u1", "Alice", 500, false),
//	    game.NewPlayer("u2", "Bob", 500, false),
//	}
//	for _, p := range players {
//	    p.Mode = game.ModeNormal
//	}
//	if err := g.Start(players, 20, 0); err != nil {
//	    return err
//	}
//	_ = g.Call(g.ExePos())
//
// # Events
//
// The Game never calls out. Every state change queues an Event which the
// owner collects with DrainEvents after each call.
//
// # Concurrency
//
// A Game is not safe for concurrent use. The owning table serialises every
// call behind its own lock.
package game
