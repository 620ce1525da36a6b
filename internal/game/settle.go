package game

import (
	"fmt"
	"slices"

	"github.com/lox/holdembot/poker"
)

// ResultKind describes how a hand was decided.
type ResultKind int

const (
	// ResultAllFold means every opponent folded and no cards were compared.
	ResultAllFold ResultKind = iota
	// ResultAllIn means every contesting player was all-in at showdown.
	ResultAllIn
	ResultCompare
)

func (k ResultKind) String() string {
	return [...]string{"all_fold", "all_in", "compare"}[k]
}

// Hand is one player's showdown entry.
type Hand struct {
	Seat     int
	PlayerID string
	Name     string
	Cards    [2]poker.Card
	Best     []poker.Card
	Rank     poker.HandRank
}

// Result is the settlement of a hand. ChipChanges is keyed by player ID and
// always sums to zero.
type Result struct {
	Kind        ResultKind
	ChipChanges map[string]int
	Showdown    []Hand // strongest first, empty for ResultAllFold
	Board       []poker.Card
	Pot         int

	players  []*Player
	executed bool
}

// Execute applies the chip deltas to the players' bankrolls. Calling it more
// than once has no further effect.
func (r *Result) Execute() {
	if r.executed {
		return
	}
	r.executed = true
	for _, p := range r.players {
		p.Chips += r.ChipChanges[p.ID]
		p.ChipBet = 0
	}
}

// Executed reports whether Execute has run.
func (r *Result) Executed() bool { return r.executed }

// Winners returns the IDs of players with a positive delta.
func (r *Result) Winners() []string {
	var ids []string
	for _, p := range r.players {
		if r.ChipChanges[p.ID] > 0 {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func (g *Game) settle() error {
	var active []int
	for i, p := range g.players {
		if p.Live() {
			active = append(active, i)
		}
	}
	if len(active) == 0 {
		g.Abort()
		return ErrNoActivePlayers
	}

	res := &Result{
		ChipChanges: make(map[string]int, len(g.players)),
		Board:       g.Board(),
		Pot:         g.TotalPot(),
		players:     g.players,
	}
	for _, p := range g.players {
		res.ChipChanges[p.ID] = 0
	}

	if len(active) == 1 {
		res.Kind = ResultAllFold
		winner := g.players[active[0]]
		for _, p := range g.players {
			if p != winner {
				res.ChipChanges[p.ID] -= p.ChipBet
				res.ChipChanges[winner.ID] += p.ChipBet
			}
		}
		return g.finish(res)
	}

	res.Kind = ResultAllIn
	for _, i := range active {
		p := g.players[i]
		if p.Status != StatusAllIn {
			res.Kind = ResultCompare
		}
		cards := append([]poker.Card{p.Cards[0], p.Cards[1]}, g.board...)
		best, rank, err := poker.Evaluate(cards)
		if err != nil {
			g.Abort()
			return fmt.Errorf("evaluate %s: %w", p.ID, err)
		}
		p.Best, p.Rank = best, rank
		res.Showdown = append(res.Showdown, Hand{
			Seat:     i,
			PlayerID: p.ID,
			Name:     p.Name,
			Cards:    p.Cards,
			Best:     best,
			Rank:     rank,
		})
	}
	slices.SortStableFunc(res.Showdown, func(a, b Hand) int {
		return poker.CompareHands(b.Rank, a.Rank)
	})

	g.distribute(res)
	return g.finish(res)
}

// distribute pays tie groups from strongest to weakest. For each group the
// distinct commitments of its members form pot levels. At each level every
// player's unclaimed commitment up to that level is split evenly between the
// members who reached it. Division rounds down and the odd chips stay with
// the contributor.
func (g *Game) distribute(res *Result) {
	taken := make([]int, len(g.players))

	for start := 0; start < len(res.Showdown); {
		end := start + 1
		for end < len(res.Showdown) && res.Showdown[end].Rank == res.Showdown[start].Rank {
			end++
		}
		group := res.Showdown[start:end]
		start = end

		var levels []int
		for _, h := range group {
			levels = append(levels, g.players[h.Seat].ChipBet)
		}
		slices.Sort(levels)
		levels = slices.Compact(levels)

		for _, level := range levels {
			var eligible []int
			for _, h := range group {
				if g.players[h.Seat].ChipBet >= level {
					eligible = append(eligible, h.Seat)
				}
			}
			k := len(eligible)
			for c, p := range g.players {
				take := min(p.ChipBet, level) - taken[c]
				if take <= 0 {
					continue
				}
				taken[c] += take
				share := take / k
				for _, w := range eligible {
					if w == c {
						continue
					}
					res.ChipChanges[g.players[w].ID] += share
					res.ChipChanges[p.ID] -= share
				}
			}
		}
	}
}

func (g *Game) finish(res *Result) error {
	g.result = res
	g.street = End
	g.state = Waiting
	g.emit(Event{Kind: EventHandEnded, Street: End, Board: g.Board(), Result: res})
	return nil
}
