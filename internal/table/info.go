package table

import (
	"fmt"
	"strings"

	"github.com/lox/holdembot/internal/game"
	"github.com/lox/holdembot/poker"
)

// Info is a point-in-time snapshot of a table.
type Info struct {
	TableID     string       `json:"table_id"`
	Owner       string       `json:"owner"`
	Running     bool         `json:"running"`
	Street      string       `json:"street,omitempty"`
	Board       string       `json:"board,omitempty"`
	Pot         int          `json:"pot"`
	HighestBet  int          `json:"highest_bet"`
	Button      int          `json:"button"`
	Acting      string       `json:"acting,omitempty"`
	Countdown   int          `json:"countdown"`
	HandsPlayed int          `json:"hands_played"`
	Players     []PlayerInfo `json:"players"`
}

// PlayerInfo describes one seat.
type PlayerInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Bot    bool   `json:"bot,omitempty"`
	Chips  int    `json:"chips"`
	Bet    int    `json:"bet"`
	Mode   string `json:"mode"`
	Status string `json:"status,omitempty"`
	Action string `json:"action,omitempty"`
}

// Info returns a snapshot of the table.
func (t *Table) Info() Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.info()
}

func (t *Table) info() Info {
	info := Info{
		TableID:     t.id,
		Owner:       t.owner,
		Running:     t.game.State() == game.Running,
		HandsPlayed: t.handsPlayed,
	}
	var actions map[string]game.ActionRecord
	if info.Running {
		info.Street = t.game.Street().String()
		info.Board = poker.FormatCards(t.game.Board())
		info.Pot = t.game.TotalPot()
		info.HighestBet = t.game.HighestBet()
		info.Button = t.game.Button()
		info.Acting = t.game.Players()[t.game.ExePos()].ID
		info.Countdown = max(0, int(t.cfg.Tick.Seconds()*float64(t.countdown)))
		actions = t.game.Actions()
	}
	for _, p := range t.players {
		pi := PlayerInfo{
			ID:    p.ID,
			Name:  p.Name,
			Bot:   p.Bot,
			Chips: p.Chips,
			Mode:  p.Mode.String(),
		}
		if _, inHand := t.game.Seat(p.ID); info.Running && inHand {
			pi.Bet = p.ChipBet
			pi.Status = p.Status.String()
			if a, ok := actions[p.ID]; ok {
				pi.Action = a.Action.String()
			}
		}
		info.Players = append(info.Players, pi)
	}
	return info
}

// String renders the snapshot as plain chat text.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table %s", i.TableID)
	if !i.Running {
		fmt.Fprintf(&b, " (waiting, %d hands played)\n", i.HandsPlayed)
	} else {
		fmt.Fprintf(&b, " %s, pot %d", i.Street, i.Pot)
		if i.Board != "" {
			fmt.Fprintf(&b, ", board %s", i.Board)
		}
		b.WriteString("\n")
	}
	for _, p := range i.Players {
		marker := "  "
		if i.Running && p.ID == i.Acting {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%s: %d chips", marker, p.Name, p.Chips)
		if p.Bet > 0 {
			fmt.Fprintf(&b, ", bet %d", p.Bet)
		}
		if p.Status != "" && p.Status != game.StatusPlaying.String() {
			fmt.Fprintf(&b, " [%s]", p.Status)
		} else if p.Mode != game.ModeNormal.String() {
			fmt.Fprintf(&b, " [%s]", p.Mode)
		}
		if p.Action != "" {
			fmt.Fprintf(&b, " (%s)", p.Action)
		}
		if marker == "> " {
			fmt.Fprintf(&b, " %ds left", i.Countdown)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
