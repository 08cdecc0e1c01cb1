package progress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Titouaaaan/tutormesh/core"
)

var _ core.ProgressStore = (*InMemoryStore)(nil)

func TestInMemoryStore_AppendNeverOverwrites(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	rec := core.ProgressRecord{UserID: "u1", Chapter: "1", Topic: "Moien", AgentRole: "reader", Feedback: "first"}
	require.NoError(t, store.Append(ctx, rec))
	rec.Feedback = "second"
	require.NoError(t, store.Append(ctx, rec))

	got, err := store.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Feedback)
	assert.Equal(t, "second", got[1].Feedback)
	assert.NotEqual(t, got[0].ID, got[1].ID)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestInMemoryStore_RejectsInvalid(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	err := store.Append(ctx, core.ProgressRecord{AgentRole: "reader"})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	err = store.Append(ctx, core.ProgressRecord{UserID: "u1", AgentRole: "narrator"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.ErrorIs(t, err, core.ErrUnknownRole)
}

func TestInMemoryStore_ListUnknownUser(t *testing.T) {
	got, err := NewInMemoryStore().List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}
