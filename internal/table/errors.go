package table

import (
	"errors"

	"github.com/lox/holdembot/internal/ledger"
)

var (
	ErrAlreadySeated = errors.New("already seated at this table")
	ErrNotSeated     = errors.New("not seated at this table")
	ErrTableFull     = errors.New("table is full")
	ErrNotOwner      = errors.New("only the player who opened the table can do that")
	ErrHandRunning   = errors.New("a hand is already running")
	ErrTableClosed   = errors.New("table is closed")
	ErrTableNotFound = errors.New("table not found")
	ErrNoFunds       = ledger.ErrNoFunds
)
