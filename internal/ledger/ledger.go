// Package ledger stores player bankrolls across table sessions and moves
// chips between a bankroll and the tables it plays at.
package ledger

import (
	"context"
	"errors"
)

var (
	ErrUnknownAccount = errors.New("unknown account")
	ErrAccountExists  = errors.New("account already exists")
	// ErrInsufficientStake is returned when an adjustment would leave a
	// negative balance.
	ErrInsufficientStake = errors.New("insufficient balance")
	ErrNoFunds           = errors.New("no funds")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// ChipStore is the persistent chip ledger. Every method is atomic and chips
// are conserved across TransferToTable and ReturnFromTable pairs, including
// under concurrent use from several tables.
type ChipStore interface {
	// FetchBalance returns the bankroll of user and whether the account exists.
	FetchBalance(ctx context.Context, user string) (int, bool, error)
	CreateAccount(ctx context.Context, user string, initial int) error
	// TransferToTable moves up to limit chips from the bankroll to tableID and
	// returns the amount moved. It fails with ErrNoFunds if nothing could be
	// moved.
	TransferToTable(ctx context.Context, user string, limit int, tableID string) (int, error)
	// ReturnFromTable credits chips from tableID back to the bankroll.
	ReturnFromTable(ctx context.Context, user, tableID string, chips int) error
	AdjustBalance(ctx context.Context, user string, delta int) error
}

// Stake is the amount a user has moved onto a table and not yet returned.
type Stake struct {
	UserID  string `gorm:"primaryKey;size:64"`
	TableID string `gorm:"primaryKey;size:64"`
	Chips   int    `gorm:"not null;default:0"`
}

// Account is a user's bankroll.
type Account struct {
	UserID string `gorm:"primaryKey;size:64"`
	Chips  int    `gorm:"not null;default:0"`
}

// EnsureAccount fetches the balance of user, creating the account with
// initial chips if it does not exist yet.
func EnsureAccount(ctx context.Context, store ChipStore, user string, initial int) (int, error) {
	balance, found, err := store.FetchBalance(ctx, user)
	if err != nil {
		return 0, err
	}
	if found {
		return balance, nil
	}
	if err := store.CreateAccount(ctx, user, initial); err != nil && !errors.Is(err, ErrAccountExists) {
		return 0, err
	}
	balance, _, err = store.FetchBalance(ctx, user)
	return balance, err
}
