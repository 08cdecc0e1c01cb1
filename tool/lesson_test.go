package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Titouaaaan/tutormesh/content"
	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/progress"
	"github.com/Titouaaaan/tutormesh/workqueue"
)

func lessonDocs() *content.InMemoryStore {
	return content.NewInMemoryStore(map[string]string{
		core.ProfileKey("u1"):  `{"name":"Lea","level":"A1"}`,
		core.ContentCurriculum: "Kapitel 1: Begréissung",
		core.ContentLesson:     "Moien! Wéi geet et?",
	})
}

func staticPartitioner(out string, err error) *workqueue.Partitioner {
	return workqueue.NewPartitioner(workqueue.ClassifierFunc(
		func(context.Context, string, string) (string, error) { return out, err },
	), nil)
}

func TestGetFiles(t *testing.T) {
	store := progress.NewInMemoryStore()
	require.NoError(t, store.Append(context.Background(), core.ProgressRecord{UserID: "u1", AgentRole: "reader", Topic: "Moien"}))

	tc := testToolContext(t, "supervisor", core.RunParams{ContentStore: lessonDocs(), ProgressStore: store})
	out, err := NewGetFilesTool().Call(tc, map[string]any{})
	require.NoError(t, err)

	text := out.(string)
	assert.Contains(t, text, `"level":"A1"`)
	assert.Contains(t, text, "Moien")
	assert.Contains(t, text, "Curriculum: Kapitel 1")
}

func TestGetFiles_UnknownUser(t *testing.T) {
	tc := testToolContext(t, "supervisor", core.RunParams{ContentStore: lessonDocs()})
	out, err := NewGetFilesTool().Call(tc, map[string]any{"user_id": "ghost"})
	require.NoError(t, err)
	assert.Contains(t, out, "User profile not existant for user ghost")
}

func TestSelectLesson_StagesState(t *testing.T) {
	tc := testToolContext(t, "supervisor", core.RunParams{})
	_, err := NewSelectLessonTool().Call(tc, map[string]any{"chapter": "1", "topic": "Begréissung"})
	require.NoError(t, err)

	assert.Equal(t, "1", tc.GetStateString(StateChapter))
	assert.Equal(t, "Kapitel: 1\nThema: Begréissung", tc.GetStateString(StateQuery))
	assert.Equal(t, "Begréissung", tc.Actions().StateDelta[StateTopic])

	_, err = NewSelectLessonTool().Call(tc, map[string]any{"chapter": " ", "topic": "x"})
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func TestGetChunks_FillsQueue(t *testing.T) {
	q := workqueue.New()
	tc := testToolContext(t, "supervisor", core.RunParams{Queue: q, ContentStore: lessonDocs()})
	tc.SetState(StateQuery, LessonQuery("1", "Moien"))

	p := staticPartitioner("[reader, conversational]\n['text1', 'text2']", nil)
	out, err := NewGetChunksTool(p).Call(tc, map[string]any{})
	require.NoError(t, err)

	res := out.(map[string]any)
	assert.Equal(t, "ready", res["status"])
	assert.Equal(t, 2, res["items"])
	assert.Equal(t, "reader", res["next"])
	assert.Equal(t, 2, q.Len())
}

func TestGetChunks_ErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		out  string
		err  error
		code string
	}{
		{"parse", "[reader, listener]\n['a']", nil, CodeClassificationParse},
		{"integrity", "[dancer]\n['a']", nil, CodeQueueIntegrity},
		{"classifier", "", errors.New("model down"), CodeClassificationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := workqueue.New()
			require.NoError(t, q.Replace([]core.Role{core.RoleListener}, []string{"old"}))
			tc := testToolContext(t, "supervisor", core.RunParams{Queue: q, ContentStore: lessonDocs()})

			_, err := NewGetChunksTool(staticPartitioner(tt.out, tt.err)).Call(tc, map[string]any{"query": "q"})
			assert.Equal(t, tt.code, CodeOf(err))

			roles, chunks := q.Snapshot()
			assert.Equal(t, []core.Role{core.RoleListener}, roles)
			assert.Equal(t, []string{"old"}, chunks)
		})
	}
}

func TestGetChunks_MissingMaterial(t *testing.T) {
	tc := testToolContext(t, "supervisor", core.RunParams{
		Queue:        workqueue.New(),
		ContentStore: content.NewInMemoryStore(nil),
	})
	_, err := NewGetChunksTool(staticPartitioner("", nil)).Call(tc, map[string]any{"query": "q"})
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestGetLearningContent(t *testing.T) {
	q := workqueue.New()
	require.NoError(t, q.Replace([]core.Role{core.RoleReader, core.RoleConversational}, []string{"text1", "text2"}))

	t.Run("mismatched caller does not mutate", func(t *testing.T) {
		tc := testToolContext(t, string(core.RoleConversational), core.RunParams{Queue: q})
		_, err := NewGetLearningContentTool().Call(tc, map[string]any{})
		assert.Equal(t, CodeRoleMismatch, CodeOf(err))
		assert.Equal(t, 2, q.Len())
	})

	t.Run("head owner takes its chunk", func(t *testing.T) {
		tc := testToolContext(t, string(core.RoleReader), core.RunParams{Queue: q})
		out, err := NewGetLearningContentTool().Call(tc, map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "reader lesson: text1", out)
		assert.Equal(t, "text1", tc.GetStateString(WorkerChunkKey(core.RoleReader)))
		head, _ := q.Peek()
		assert.Equal(t, core.RoleConversational, head)
	})

	t.Run("non worker caller", func(t *testing.T) {
		tc := testToolContext(t, "supervisor", core.RunParams{Queue: q})
		_, err := NewGetLearningContentTool().Call(tc, map[string]any{})
		assert.Equal(t, CodeRoleMismatch, CodeOf(err))
	})

	t.Run("empty queue", func(t *testing.T) {
		empty := workqueue.New()
		tc := testToolContext(t, string(core.RoleReader), core.RunParams{Queue: empty})
		_, err := NewGetLearningContentTool().Call(tc, map[string]any{})
		assert.Equal(t, CodeQueueEmpty, CodeOf(err))
	})
}

func TestCreateProgressReport_AppendsTwice(t *testing.T) {
	store := progress.NewInMemoryStore()
	tc := testToolContext(t, string(core.RoleReader), core.RunParams{ProgressStore: store})
	tc.SetState(StateChapter, "1")
	tc.SetState(StateTopic, "Moien")

	reportTool := NewCreateProgressReportTool()
	for range 2 {
		out, err := reportTool.Call(tc, map[string]any{"report": "read the text", "feedback": "good"})
		require.NoError(t, err)
		assert.Contains(t, out, "reader FINAL REPORT")
	}

	recs, err := store.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.NotEqual(t, recs[0].ID, recs[1].ID)
	assert.Equal(t, "reader", recs[0].AgentRole)
	assert.Equal(t, "Moien", recs[0].Topic)
	assert.Equal(t, true, tc.Actions().StateDelta[WorkerReportedKey(core.RoleReader)])
}

func TestCreateProgressReport_AgentName(t *testing.T) {
	store := progress.NewInMemoryStore()
	tc := testToolContext(t, "supervisor", core.RunParams{ProgressStore: store})

	_, err := NewCreateProgressReportTool().Call(tc, map[string]any{})
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, err = NewCreateProgressReportTool().Call(tc, map[string]any{"agent_name": "dancer"})
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, err = NewCreateProgressReportTool().Call(tc, map[string]any{"agent_name": "grammarSummary"})
	require.NoError(t, err)
	recs, _ := store.List(context.Background(), "u1")
	require.Len(t, recs, 1)
	assert.Equal(t, "grammarSummary", recs[0].AgentRole)
}

func TestToolSets(t *testing.T) {
	assert.Equal(t, []string{GetFilesName, SelectLessonName, GetChunksName}, SupervisorTools(staticPartitioner("", nil)).Names())
	assert.Equal(t, []string{GetLearningContentName, CreateProgressReportName}, WorkerTools().Names())
}
