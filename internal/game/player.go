package game

import (
	"github.com/lox/holdembot/poker"
)

// Mode controls a player's membership lifecycle at a table.
type Mode int

const (
	// ModeEntering players joined mid-session and sit out until the next hand.
	ModeEntering Mode = iota
	ModeNormal
	// ModeLeaving players are removed at the next hand boundary.
	ModeLeaving
)

func (m Mode) String() string {
	return [...]string{"entering", "normal", "leaving"}[m]
}

// Status is a player's standing within the current hand.
type Status int

const (
	StatusPlaying Status = iota
	StatusFolded
	StatusAllIn
)

func (s Status) String() string {
	return [...]string{"playing", "fold", "allin"}[s]
}

// Player is a seated player. Identity and bankroll persist across hands, the
// remaining fields are reset by Game.Start.
type Player struct {
	ID    string
	Name  string
	Bot   bool
	Chips int // total chips owned at the table, committed chips included
	Mode  Mode

	Cards   [2]poker.Card
	ChipBet int // cumulative commitment this hand
	Status  Status
	Rank    poker.HandRank // set at showdown only
	Best    []poker.Card
}

// NewPlayer creates a player in ModeEntering.
func NewPlayer(id, name string, chips int, bot bool) *Player {
	return &Player{
		ID:    id,
		Name:  name,
		Bot:   bot,
		Chips: chips,
		Mode:  ModeEntering,
	}
}

// Remaining returns the chips not yet committed this hand.
func (p *Player) Remaining() int {
	return p.Chips - p.ChipBet
}

// CanAct reports whether the player may still be asked for an action.
func (p *Player) CanAct() bool {
	return p.Mode == ModeNormal && p.Status == StatusPlaying
}

// Live reports whether the player still contests the pot.
func (p *Player) Live() bool {
	return p.Mode == ModeNormal && p.Status != StatusFolded
}

func (p *Player) reset() {
	p.Cards = [2]poker.Card{}
	p.ChipBet = 0
	p.Status = StatusPlaying
	p.Rank = 0
	p.Best = nil
}

// commit moves n more chips into the pot. Reaching the whole stack marks the
// player all-in.
func (p *Player) commit(n int) {
	p.ChipBet += n
	if p.ChipBet >= p.Chips {
		p.ChipBet = p.Chips
		p.Status = StatusAllIn
	}
}
