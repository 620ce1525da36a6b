package table

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coder/quartz"

	"github.com/lox/holdembot/internal/game"
	"github.com/lox/holdembot/poker"
)

// startHand deals a hand to every funded player and starts the turn clock.
// The caller holds t.mu.
func (t *Table) startHand(ctx context.Context) error {
	t.purge(ctx)
	var seated []*game.Player
	for _, p := range t.players {
		if p.Mode == game.ModeEntering {
			p.Mode = game.ModeNormal
		}
		if p.Mode == game.ModeNormal && p.Chips > 0 {
			seated = append(seated, p)
		}
	}
	if len(seated) < 2 {
		return game.ErrNotEnoughPlayers
	}

	if err := t.game.Start(seated, t.cfg.Ante, t.btn); err != nil {
		return err
	}
	t.btn = t.game.Button()
	t.handOpen = true
	t.stopIdle()

	t.logger.Info().Int("hand", t.handsPlayed+1).Int("players", len(seated)).Msg("Hand started")
	for _, p := range seated {
		if !p.Bot {
			t.postPrivate(ctx, p.ID, "Your cards: "+poker.FormatCards(p.Cards[:]))
		}
	}
	t.flushEvents(ctx)

	t.countdown = t.cfg.turnTicks()
	t.lastPos = -1
	t.status = ""
	t.startLoop()
	t.sync(ctx)
	return nil
}

func (t *Table) startLoop() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ticker := t.clock.NewTicker(t.cfg.Tick, "table", "tick")
	t.cancel, t.done = cancel, done
	go t.loop(ctx, ticker, done)
}

// stopLoop cancels the clock loop and returns a channel closed once it has
// exited. The caller holds t.mu and must not wait on the channel while
// holding it.
func (t *Table) stopLoop() chan struct{} {
	if t.cancel == nil {
		return nil
	}
	t.cancel()
	done := t.done
	t.cancel, t.done = nil, nil
	return done
}

func (t *Table) loop(ctx context.Context, ticker *quartz.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !t.tick(ctx) {
				return
			}
		}
	}
}

// tick advances the turn clock by one step. It reports whether the loop
// should keep running. A tick from a loop that was stopped while it waited
// for the lock does nothing, even if a new hand has started since.
func (t *Table) tick(ctx context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ctx.Err() != nil || t.closed || !t.handOpen {
		return false
	}
	if t.game.State() == game.Running {
		pos := t.game.ExePos()
		p := t.game.Players()[pos]
		switch {
		case p.Mode != game.ModeNormal:
			t.force(ctx, pos, game.Fold, 0)
		case p.Bot:
			action, amount := t.strategy.Decide(t.game, pos)
			if err := t.apply(pos, action, amount); err != nil {
				t.logger.Debug().Err(err).Str("bot", p.ID).Msg("Bot action rejected, folding")
				t.force(ctx, pos, game.Fold, 0)
			}
		case t.countdown <= 0:
			t.force(ctx, pos, game.Fold, 0)
			t.postText(ctx, fmt.Sprintf("%s ran out of time and folded", p.Name))
			t.countdown = t.cfg.turnTicks()
		}
	}

	running, changed := t.sync(ctx)
	if running && !changed {
		t.countdown--
		t.updateStatus(ctx)
	}
	return running
}

// force applies an action the table decides on a player's behalf.
func (t *Table) force(ctx context.Context, pos int, action game.Action, amount int) {
	if err := t.apply(pos, action, amount); err != nil {
		t.logger.Error().Err(err).Int("seat", pos).Msg("Forced action failed, aborting hand")
		t.game.Abort()
	}
}

// sync publishes queued game events, closes out a finished hand and
// announces a new turn. It reports whether the hand is still running and
// whether the acting seat or street changed.
func (t *Table) sync(ctx context.Context) (running, changed bool) {
	t.flushEvents(ctx)
	if t.game.State() != game.Running {
		if t.handOpen {
			t.finishHand(ctx)
		}
		return false, false
	}
	pos, street := t.game.ExePos(), t.game.Street()
	if pos == t.lastPos && street == t.lastStreet {
		return true, false
	}
	t.lastPos, t.lastStreet = pos, street
	t.countdown = t.cfg.turnTicks()
	t.postStatus(ctx)

	p := t.game.Players()[pos]
	if !p.Bot {
		prompt := fmt.Sprintf("Your turn. To call: %d, chips behind: %d", t.game.ToCall(pos), p.Remaining())
		if t.game.CanCheck(pos) {
			prompt = fmt.Sprintf("Your turn. You can check, chips behind: %d", p.Remaining())
		}
		t.postPrivate(ctx, p.ID, prompt)
	}
	return true, true
}

func (t *Table) apply(pos int, action game.Action, amount int) error {
	switch action {
	case game.Check:
		return t.game.Check(pos)
	case game.Call:
		return t.game.Call(pos)
	case game.Fold:
		return t.game.Fold(pos)
	case game.Raise:
		return t.game.Raise(pos, amount)
	case game.AllIn:
		return t.game.AllIn(pos)
	default:
		return fmt.Errorf("unsupported action %s", action)
	}
}

// Act performs a player's action. amount is only used by game.Raise.
func (t *Table) Act(ctx context.Context, userID string, action game.Action, amount int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTableClosed
	}
	if t.game.State() != game.Running {
		return game.ErrNotRunning
	}
	pos, ok := t.game.Seat(userID)
	if !ok || t.game.Players()[pos].Mode != game.ModeNormal {
		return ErrNotSeated
	}
	if err := t.apply(pos, action, amount); err != nil {
		if errors.Is(err, game.ErrNoActivePlayers) {
			t.logger.Error().Err(err).Msg("Hand aborted")
		} else {
			return err
		}
	}
	t.sync(ctx)
	return nil
}

func (t *Table) Check(ctx context.Context, userID string) error {
	return t.Act(ctx, userID, game.Check, 0)
}

func (t *Table) Call(ctx context.Context, userID string) error {
	return t.Act(ctx, userID, game.Call, 0)
}

func (t *Table) Fold(ctx context.Context, userID string) error {
	return t.Act(ctx, userID, game.Fold, 0)
}

func (t *Table) AllIn(ctx context.Context, userID string) error {
	return t.Act(ctx, userID, game.AllIn, 0)
}

// Bet raises by amount chips on top of the player's current commitment.
func (t *Table) Bet(ctx context.Context, userID string, amount int) error {
	return t.Act(ctx, userID, game.Raise, amount)
}

// finishHand posts and applies the result, then stops the clock and arms
// the idle timer.
func (t *Table) finishHand(ctx context.Context) {
	t.handOpen = false
	t.handsPlayed++

	if res := t.game.Result(); res != nil {
		t.postText(ctx, formatResult(res, t.game.Players()))
		res.Execute()
		t.logger.Info().
			Int("hand", t.handsPlayed).
			Str("kind", res.Kind.String()).
			Int("pot", res.Pot).
			Strs("winners", res.Winners()).
			Msg("Hand finished")
	} else {
		t.logger.Error().Int("hand", t.handsPlayed).Msg("Hand ended without a result")
		t.postText(ctx, "Hand aborted, bets returned")
	}
	t.postText(ctx, "Game Over!")

	t.purge(ctx)
	t.stopLoop()
	t.armIdle()
}

func (t *Table) flushEvents(ctx context.Context) {
	players := t.game.Players()
	for _, e := range t.game.DrainEvents() {
		switch e.Kind {
		case game.EventHandStarted:
			sb, bb := t.game.Blinds()
			t.postText(ctx, fmt.Sprintf("New hand. Button: %s, small blind: %s, big blind: %s",
				players[e.Seat].Name, players[sb].Name, players[bb].Name))
		case game.EventAction:
			t.postText(ctx, formatAction(players[e.Seat].Name, e.Action, e.Amount))
		case game.EventStreet:
			t.postText(ctx, fmt.Sprintf("%s: %s", strings.ToUpper(e.Street.String()[:1])+e.Street.String()[1:], poker.FormatCards(e.Board)))
		}
	}
}

func (t *Table) postStatus(ctx context.Context) {
	if t.status != "" {
		if err := t.messenger.Delete(ctx, t.status); err != nil {
			t.logger.Warn().Err(err).Msg("Failed to delete status message")
		}
	}
	info := t.info()
	h, err := t.messenger.Post(ctx, t.channel, Message{Text: info.String(), Info: &info})
	if err != nil {
		t.logger.Warn().Err(err).Msg("Failed to post status message")
	}
	t.status = h
}

func (t *Table) updateStatus(ctx context.Context) {
	if t.status == "" {
		return
	}
	info := t.info()
	if err := t.messenger.Update(ctx, t.status, Message{Text: info.String(), Info: &info}); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to update status message")
	}
}

func formatAction(name string, action game.Action, amount int) string {
	switch action {
	case game.Check, game.Fold:
		return fmt.Sprintf("%s %ss", name, action)
	case game.AllIn:
		return fmt.Sprintf("%s goes all in with %d", name, amount)
	case game.SmallBlind, game.BigBlind:
		return fmt.Sprintf("%s posts the %s of %d", name, action, amount)
	default:
		return fmt.Sprintf("%s %ss %d", name, action, amount)
	}
}

func formatResult(res *game.Result, players []*game.Player) string {
	var b strings.Builder
	switch res.Kind {
	case game.ResultAllFold:
		b.WriteString("Everyone else folded.\n")
	default:
		fmt.Fprintf(&b, "Showdown on %s\n", poker.FormatCards(res.Board))
		for _, h := range res.Showdown {
			fmt.Fprintf(&b, "%s: %s, %s (%s)\n", h.Name, poker.FormatCards(h.Cards[:]), h.Rank, poker.FormatCards(h.Best))
		}
	}
	for _, p := range players {
		if d := res.ChipChanges[p.ID]; d != 0 {
			fmt.Fprintf(&b, "%s %+d\n", p.Name, d)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
