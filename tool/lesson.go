package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/workqueue"
)

// Tool names.
const (
	GetFilesName             = "get_files"
	SelectLessonName         = "select_lesson"
	GetChunksName            = "get_chunks"
	GetLearningContentName   = "get_learning_content"
	CreateProgressReportName = "create_progress_report"
)

// Session state keys written by the tutor tools.
const (
	StateChapter = "lesson.chapter"
	StateTopic   = "lesson.topic"
	StateQuery   = "lesson.query"
)

// WorkerChunkKey is the state key holding the chunk a worker retrieved.
func WorkerChunkKey(r core.Role) string { return "worker." + string(r) + ".chunk" }

// WorkerReportedKey is the state key set once a worker filed its report.
func WorkerReportedKey(r core.Role) string { return "worker." + string(r) + ".reported" }

// LessonQuery formats the partition scope for a chapter and topic.
func LessonQuery(chapter, topic string) string {
	return fmt.Sprintf("Kapitel: %s\nThema: %s", chapter, topic)
}

type getFilesArgs struct {
	UserID string `json:"user_id,omitempty" description:"learner id; defaults to the session learner"`
}

// NewGetFilesTool returns the tool that gathers learner context: profile,
// recorded progress and curriculum. Missing documents are reported in the
// result text so the model can react, not as tool failures.
func NewGetFilesTool() *FunctionTool {
	return NewFunctionToolFromStruct(
		GetFilesName,
		"Read the learner profile, the learner progress and the curriculum.",
		getFilesArgs{},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			userID := stringArg(args, "user_id")
			if userID == "" {
				userID = toolCtx.UserID()
			}
			if toolCtx.Content() == nil {
				return nil, NewToolError(GetFilesName, "no content store configured", CodeNotFound)
			}
			ctx := toolCtx.Context()

			profile, err := toolCtx.Content().Get(ctx, core.ProfileKey(userID))
			if errors.Is(err, core.ErrContentNotFound) {
				return fmt.Sprintf("User profile not existant for user %s. Please double check user ID", userID), nil
			}
			if err != nil {
				return nil, err
			}

			var progress []core.ProgressRecord
			if toolCtx.Progress() != nil {
				if progress, err = toolCtx.Progress().List(ctx, userID); err != nil {
					return nil, err
				}
			}
			progressText := "no lessons recorded yet"
			if len(progress) > 0 {
				raw, err := json.Marshal(progress)
				if err != nil {
					return nil, err
				}
				progressText = string(raw)
			}

			curriculum, err := toolCtx.Content().Get(ctx, core.ContentCurriculum)
			if err != nil && !errors.Is(err, core.ErrContentNotFound) {
				return nil, err
			}
			if len(strings.TrimSpace(string(curriculum))) == 0 {
				return "Could not retrieve any text from the curriculum, please double check its contents", nil
			}

			return fmt.Sprintf("User profile %s \nUser progress: %s \nCurriculum: %s",
				strings.TrimSpace(string(profile)), progressText, curriculum), nil
		},
	)
}

type selectLessonArgs struct {
	Chapter string `json:"chapter" minLength:"1" description:"chapter (Kapitel) the learner agreed to study"`
	Topic   string `json:"topic" minLength:"1" description:"topic (Thema) within the chapter"`
}

// NewSelectLessonTool returns the tool the supervisor calls once the learner
// agreed on a lesson. It stages the lesson scope in session state.
func NewSelectLessonTool() *FunctionTool {
	return NewFunctionToolFromStruct(
		SelectLessonName,
		"Confirm the lesson the learner wants to study. Call it only after the learner agreed.",
		selectLessonArgs{},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			chapter := strings.TrimSpace(stringArg(args, "chapter"))
			topic := strings.TrimSpace(stringArg(args, "topic"))
			query := LessonQuery(chapter, topic)
			toolCtx.SetState(StateChapter, chapter)
			toolCtx.SetState(StateTopic, topic)
			toolCtx.SetState(StateQuery, query)
			return map[string]any{"status": "selected", "query": query}, nil
		},
	)
}

type getChunksArgs struct {
	Query string `json:"query,omitempty" description:"scope of the lesson; defaults to the selected lesson"`
}

// NewGetChunksTool returns the tool that partitions the lesson material into
// the session Work Queue. A failed partition never changes the queue.
func NewGetChunksTool(p *workqueue.Partitioner) *FunctionTool {
	return NewFunctionToolFromStruct(
		GetChunksName,
		"Split the lesson material into chunks and assign each chunk to a tutor.",
		getChunksArgs{},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			query := stringArg(args, "query")
			if query == "" {
				query = toolCtx.GetStateString(StateQuery)
			}
			if query == "" {
				return nil, NewToolError(GetChunksName, "no lesson selected", CodeValidation)
			}
			if toolCtx.Queue() == nil {
				return nil, NewToolError(GetChunksName, "no work queue bound to the session", CodeNotPermitted)
			}
			if toolCtx.Content() == nil {
				return nil, NewToolError(GetChunksName, "no content store configured", CodeNotFound)
			}

			candidate, err := toolCtx.Content().Get(toolCtx.Context(), core.ContentLesson)
			if errors.Is(err, core.ErrContentNotFound) {
				return nil, NewToolError(GetChunksName, "lesson material not found", CodeNotFound)
			}
			if err != nil {
				return nil, err
			}

			n, err := p.Partition(toolCtx.Context(), toolCtx.Queue(), query, string(candidate))
			if err != nil {
				return nil, partitionError(err)
			}
			if n > 0 && toolCtx.GetStateString(StateQuery) == "" {
				toolCtx.SetState(StateQuery, query)
			}

			next, _ := toolCtx.Queue().Peek()
			return map[string]any{"status": "ready", "items": n, "next": string(next)}, nil
		},
	)
}

func partitionError(err error) *ToolError {
	var (
		pe *workqueue.ParseError
		ie *workqueue.IntegrityError
		ce *workqueue.ClassificationError
	)
	switch {
	case errors.As(err, &pe):
		return NewToolError(GetChunksName, pe.Error(), CodeClassificationParse)
	case errors.As(err, &ie):
		return NewToolError(GetChunksName, ie.Error(), CodeQueueIntegrity)
	case errors.As(err, &ce):
		return NewToolError(GetChunksName, ce.Error(), CodeClassificationFailed)
	default:
		return NewToolError(GetChunksName, err.Error(), CodeExecution)
	}
}

// NewGetLearningContentTool returns the chunk-retrieval tool. It pops the
// queue head only when the head belongs to the calling worker.
func NewGetLearningContentTool() *FunctionTool {
	return NewFunctionTool(
		GetLearningContentName,
		"Retrieve the lesson chunk you must teach. Call it before saying anything to the learner.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(toolCtx *core.ToolContext, _ map[string]any) (any, error) {
			caller, ok := toolCtx.CallerRole()
			if !ok {
				return nil, NewToolError(GetLearningContentName,
					fmt.Sprintf("caller %q is not a tutor", toolCtx.Caller()), CodeRoleMismatch)
			}
			if toolCtx.GetStateString(WorkerChunkKey(caller)) != "" {
				return nil, NewToolError(GetLearningContentName, "chunk already retrieved for this lesson", CodeNotPermitted)
			}
			q := toolCtx.Queue()
			if q == nil {
				return nil, NewToolError(GetLearningContentName, "no work queue bound to the session", CodeNotPermitted)
			}

			head, ok := q.Peek()
			if !ok {
				return nil, NewToolError(GetLearningContentName, workqueue.ErrQueueEmpty.Error(), CodeQueueEmpty)
			}
			if head != caller {
				return nil, NewToolError(GetLearningContentName,
					fmt.Sprintf("next chunk belongs to %s, not %s", head, caller), CodeRoleMismatch)
			}

			item, err := q.TakeNext()
			if errors.Is(err, workqueue.ErrQueueEmpty) {
				return nil, NewToolError(GetLearningContentName, err.Error(), CodeQueueEmpty)
			}
			if err != nil {
				return nil, err
			}

			toolCtx.SetState(WorkerChunkKey(item.Role), item.Chunk)
			toolCtx.Logger().Info("tool.learning_content.taken", "role", string(item.Role), "remaining", q.Len())
			return string(item.Role) + " lesson: " + item.Chunk, nil
		},
	)
}

type progressReportArgs struct {
	AgentName string `json:"agent_name,omitempty" enum:"conversational|reader|listener|questionAnswering|grammarSummary" description:"tutor role filing the report; defaults to the caller"`
	Report    string `json:"report,omitempty" description:"what was taught and how the learner did"`
	Goals     string `json:"goals,omitempty" description:"learning goals of the lesson"`
	Feedback  string `json:"feedback,omitempty" description:"feedback for the learner"`
}

// NewCreateProgressReportTool returns the tool workers call when their lesson
// is over. Every call appends a new record.
func NewCreateProgressReportTool() *FunctionTool {
	return NewFunctionToolFromStruct(
		CreateProgressReportName,
		"File the progress report for the lesson you just taught.",
		progressReportArgs{},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			role, ok := toolCtx.CallerRole()
			if name := stringArg(args, "agent_name"); name != "" {
				parsed, err := core.ParseRole(name)
				if err != nil {
					return nil, NewToolError(CreateProgressReportName, err.Error(), CodeValidation)
				}
				role, ok = parsed, true
			}
			if !ok {
				return nil, NewToolError(CreateProgressReportName, "agent_name is required outside a tutor", CodeValidation)
			}
			if toolCtx.Progress() == nil {
				return nil, NewToolError(CreateProgressReportName, "no progress store configured", CodeNotPermitted)
			}

			rec := core.ProgressRecord{
				ID:        core.NewID(),
				UserID:    toolCtx.UserID(),
				Chapter:   toolCtx.GetStateString(StateChapter),
				Topic:     toolCtx.GetStateString(StateTopic),
				AgentRole: string(role),
				Goals:     stringArg(args, "goals"),
				Feedback:  stringArg(args, "feedback"),
				Report:    stringArg(args, "report"),
				CreatedAt: time.Now(),
			}
			if err := toolCtx.Progress().Append(toolCtx.Context(), rec); err != nil {
				return nil, err
			}

			toolCtx.SetState(WorkerReportedKey(role), true)
			return fmt.Sprintf("%s FINAL REPORT recorded (%s)", role, rec.ID), nil
		},
	)
}

// SupervisorTools returns the registry of the supervisor node.
func SupervisorTools(p *workqueue.Partitioner) *Registry {
	return NewRegistry(NewGetFilesTool(), NewSelectLessonTool(), NewGetChunksTool(p))
}

// WorkerTools returns the registry shared by every worker node.
func WorkerTools() *Registry {
	return NewRegistry(NewGetLearningContentTool(), NewCreateProgressReportTool())
}
