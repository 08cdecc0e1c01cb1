package workqueue

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Titouaaaan/tutormesh/core"
)

func drawPairs(rt *rapid.T) ([]core.Role, []string) {
	n := rapid.IntRange(1, 12).Draw(rt, "n")
	roles := make([]core.Role, n)
	chunks := make([]string, n)
	for i := range n {
		roles[i] = rapid.SampledFrom(core.Roles()).Draw(rt, fmt.Sprintf("role_%d", i))
		chunks[i] = rapid.StringMatching(`[A-Za-zäëé ]{1,20}[a-z]`).Draw(rt, fmt.Sprintf("chunk_%d", i))
	}
	return roles, chunks
}

// Every successful parse yields equal-length sequences drawn from the closed role set.
func TestProperty_ParsePreservesPairing(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		roles, chunks := drawPairs(rt)

		tags := make([]string, len(roles))
		quoted := make([]string, len(chunks))
		for i := range roles {
			tags[i] = string(roles[i])
			quoted[i] = "'" + chunks[i] + "'"
		}
		out := "[" + strings.Join(tags, ", ") + "]\n[" + strings.Join(quoted, ", ") + "]"

		gotRoles, gotChunks, err := ParsePartition(out)
		require.NoError(rt, err)
		assert.Equal(rt, len(gotRoles), len(gotChunks))
		for _, r := range gotRoles {
			assert.True(rt, r.Valid())
		}
		assert.Equal(rt, roles, gotRoles)
		for i := range chunks {
			assert.Equal(rt, strings.TrimSpace(chunks[i]), gotChunks[i])
		}
	})
}

// TakeNext shrinks both sequences by one and the new head was previously at index 1.
func TestProperty_TakeNextAtomic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		roles, chunks := drawPairs(rt)
		q := New()
		require.NoError(rt, q.Replace(roles, chunks))

		for q.Len() > 0 {
			beforeRoles, beforeChunks := q.Snapshot()

			item, err := q.TakeNext()
			require.NoError(rt, err)
			assert.Equal(rt, beforeRoles[0], item.Role)
			assert.Equal(rt, beforeChunks[0], item.Chunk)

			afterRoles, afterChunks := q.Snapshot()
			assert.Len(rt, afterRoles, len(beforeRoles)-1)
			assert.Len(rt, afterChunks, len(beforeChunks)-1)
			if len(afterRoles) > 0 {
				assert.Equal(rt, beforeRoles[1], afterRoles[0])
				assert.Equal(rt, beforeChunks[1], afterChunks[0])
			}
		}
	})
}

// A cardinality mismatch never changes the previous queue state.
func TestProperty_MalformedLeavesQueue(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		roles, chunks := drawPairs(rt)
		q := New()
		require.NoError(rt, q.Replace(roles, chunks))

		extra := rapid.IntRange(1, 3).Draw(rt, "extra")
		tags := make([]string, len(roles)+extra)
		for i := range tags {
			tags[i] = string(core.RoleReader)
		}
		out := "[" + strings.Join(tags, ",") + "]\n['only one']"

		p := NewPartitioner(staticClassifier(out, nil), nil)
		_, err := p.Partition(context.Background(), q, "q", "c")
		var pe *ParseError
		require.ErrorAs(rt, err, &pe)

		gotRoles, gotChunks := q.Snapshot()
		assert.Equal(rt, roles, gotRoles)
		assert.Equal(rt, chunks, gotChunks)
	})
}
