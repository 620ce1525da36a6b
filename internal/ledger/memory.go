package ledger

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process ChipStore.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[string]int
	stakes   map[[2]string]int
}

var _ ChipStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances: make(map[string]int),
		stakes:   make(map[[2]string]int),
	}
}

func (m *MemoryStore) FetchBalance(_ context.Context, user string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[user]
	return b, ok, nil
}

func (m *MemoryStore) CreateAccount(_ context.Context, user string, initial int) error {
	if initial < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, initial)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[user]; ok {
		return ErrAccountExists
	}
	m.balances[user] = initial
	return nil
}

func (m *MemoryStore) TransferToTable(_ context.Context, user string, limit int, tableID string) (int, error) {
	if limit <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAmount, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[user]
	if !ok {
		return 0, ErrUnknownAccount
	}
	amount := min(b, limit)
	if amount <= 0 {
		return 0, ErrNoFunds
	}
	m.balances[user] = b - amount
	m.stakes[[2]string{user, tableID}] += amount
	return amount, nil
}

func (m *MemoryStore) ReturnFromTable(_ context.Context, user, tableID string, chips int) error {
	if chips < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, chips)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[user]; !ok {
		return ErrUnknownAccount
	}
	m.balances[user] += chips
	key := [2]string{user, tableID}
	if left := m.stakes[key] - chips; left > 0 {
		m.stakes[key] = left
	} else {
		delete(m.stakes, key)
	}
	return nil
}

func (m *MemoryStore) AdjustBalance(_ context.Context, user string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[user]
	if !ok {
		return ErrUnknownAccount
	}
	if b+delta < 0 {
		return ErrInsufficientStake
	}
	m.balances[user] = b + delta
	return nil
}

// Stakes returns the chips user has outstanding per table.
func (m *MemoryStore) Stakes(_ context.Context, user string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int)
	for k, v := range m.stakes {
		if k[0] == user {
			out[k[1]] = v
		}
	}
	return out, nil
}
