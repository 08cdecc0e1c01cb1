package workqueue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Titouaaaan/tutormesh/core"
)

func TestQueue_TakeNextIsPaired(t *testing.T) {
	q := New()
	require.NoError(t, q.Replace(
		[]core.Role{core.RoleReader, core.RoleConversational},
		[]string{"text1", "text2"},
	))

	r, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, core.RoleReader, r)
	assert.Equal(t, 2, q.Len(), "peek never mutates")

	item, err := q.TakeNext()
	require.NoError(t, err)
	assert.Equal(t, core.WorkItem{Role: core.RoleReader, Chunk: "text1"}, item)

	item, err = q.TakeNext()
	require.NoError(t, err)
	assert.Equal(t, core.WorkItem{Role: core.RoleConversational, Chunk: "text2"}, item)

	_, err = q.TakeNext()
	assert.ErrorIs(t, err, ErrQueueEmpty)

	_, ok = q.Peek()
	assert.False(t, ok)
}

func TestQueue_ReplaceRejectsInvalidInput(t *testing.T) {
	q := New()
	require.NoError(t, q.Replace([]core.Role{core.RoleListener}, []string{"keep"}))

	err := q.Replace([]core.Role{core.RoleReader, core.RoleReader}, []string{"a"})
	var ie *IntegrityError
	require.True(t, errors.As(err, &ie))

	err = q.Replace([]core.Role{"singer"}, []string{"a"})
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "singer", ie.Tag)

	roles, chunks := q.Snapshot()
	assert.Equal(t, []core.Role{core.RoleListener}, roles)
	assert.Equal(t, []string{"keep"}, chunks)
}

func TestQueue_ReplaceCopiesInput(t *testing.T) {
	q := New()
	roles := []core.Role{core.RoleReader}
	chunks := []string{"a"}
	require.NoError(t, q.Replace(roles, chunks))

	roles[0] = core.RoleListener
	chunks[0] = "b"

	item, err := q.TakeNext()
	require.NoError(t, err)
	assert.Equal(t, core.WorkItem{Role: core.RoleReader, Chunk: "a"}, item)
}
