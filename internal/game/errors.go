package game

import "errors"

var (
	ErrNotRunning        = errors.New("no hand in progress")
	ErrAlreadyRunning    = errors.New("hand already in progress")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrCannotCheck       = errors.New("cannot check, there is a bet to call")
	ErrInsufficientChips = errors.New("insufficient chips")
	ErrRaiseTooSmall     = errors.New("raise too small")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrNotEnoughPlayers  = errors.New("at least 2 players required")
	ErrInvalidPlayer     = errors.New("invalid player")

	// ErrNoActivePlayers means settlement was reached with every player
	// folded or gone. It indicates a state machine bug and aborts the hand.
	ErrNoActivePlayers = errors.New("settlement with no active players")
)
