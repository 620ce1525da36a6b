package table

import (
	"context"
	"testing"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdembot/internal/ledger"
)

func TestRegistryLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	reg := NewRegistry(testConfig(), store, NopMessenger{}, zerolog.Nop(), WithRegistryClock(quartz.NewMock(t)))

	a := reg.Open("general", "u1")
	b := reg.Open("random", "u2")
	require.NotEqual(t, a.ID(), b.ID())
	assert.Len(t, a.ID(), 8)

	got, err := reg.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)
	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, ErrTableNotFound)

	_, err = a.Join(ctx, "u1", "alice", false)
	require.NoError(t, err)
	found, ok := reg.Find("u1")
	require.True(t, ok)
	assert.Same(t, a, found)
	_, ok = reg.Find("u2")
	assert.False(t, ok)

	list := reg.List()
	require.Len(t, list, 2)
	assert.Less(t, list[0].ID, list[1].ID)
	for _, s := range list {
		if s.ID == a.ID() {
			assert.Equal(t, 1, s.Players)
			assert.Equal(t, "u1", s.Owner)
		}
	}

	require.NoError(t, reg.Close(ctx, a.ID()))
	assert.True(t, a.Closed())
	assert.ErrorIs(t, reg.Close(ctx, a.ID()), ErrTableNotFound)
	balance, _, _ := store.FetchBalance(ctx, "u1")
	assert.Equal(t, 500, balance)

	reg.CloseAll(ctx)
	assert.True(t, b.Closed())
	assert.Empty(t, reg.List())
}
