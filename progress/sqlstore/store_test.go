package sqlstore

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/progress"
)

var _ core.ProgressStore = (*Store)(nil)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	store, err := New(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_AppendAndList(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for _, fb := range []string{"first", "second", "third"} {
		require.NoError(t, store.Append(ctx, core.ProgressRecord{
			UserID: "u1", Chapter: "1", Topic: "Moien", AgentRole: "conversational", Feedback: fb,
		}))
	}
	require.NoError(t, store.Append(ctx, core.ProgressRecord{UserID: "u2", AgentRole: "reader"}))

	got, err := store.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Feedback)
	assert.Equal(t, "third", got[2].Feedback)
	assert.Equal(t, "Moien", got[1].Topic)
	assert.NotEmpty(t, got[0].ID)
}

func TestStore_SameRoleTwiceAppends(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rec := core.ProgressRecord{UserID: "u1", AgentRole: "reader", Report: "done"}
	require.NoError(t, store.Append(ctx, rec))
	require.NoError(t, store.Append(ctx, rec))

	got, err := store.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStore_InvalidRecord(t *testing.T) {
	store := setupStore(t)
	err := store.Append(context.Background(), core.ProgressRecord{AgentRole: "reader"})
	assert.ErrorIs(t, err, progress.ErrInvalidRecord)
}
