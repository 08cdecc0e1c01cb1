package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/progress"
)

var _ core.ProgressStore = (*Store)(nil)

func setupTestRedis(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := New(context.Background(), func(o *Options) {
		o.Addr = mr.Addr()
		o.KeyPrefix = "test:"
		o.TTL = ttl
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return mr, store
}

func TestStore_AppendAndList(t *testing.T) {
	_, store := setupTestRedis(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, core.ProgressRecord{UserID: "u1", AgentRole: "reader", Report: "one"}))
	require.NoError(t, store.Append(ctx, core.ProgressRecord{UserID: "u1", AgentRole: "reader", Report: "two"}))
	require.NoError(t, store.Append(ctx, core.ProgressRecord{UserID: "u2", AgentRole: "listening"}))

	got, err := store.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Report)
	assert.Equal(t, "two", got[1].Report)

	other, err := store.List(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "listener", other[0].AgentRole)
}

func TestStore_TTL(t *testing.T) {
	mr, store := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, core.ProgressRecord{UserID: "u1", AgentRole: "reader"}))
	assert.Equal(t, time.Minute, mr.TTL("test:progress:u1"))

	mr.FastForward(2 * time.Minute)
	got, err := store.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_InvalidRecord(t *testing.T) {
	_, store := setupTestRedis(t, 0)
	err := store.Append(context.Background(), core.ProgressRecord{UserID: "u1", AgentRole: "narrator"})
	assert.ErrorIs(t, err, progress.ErrInvalidRecord)
}

func TestNew_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = New(context.Background(), func(o *Options) { o.Addr = addr })
	assert.Error(t, err)
}
