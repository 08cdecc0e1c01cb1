package flow

import (
	"fmt"
	"time"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/model"
	"github.com/Titouaaaan/tutormesh/tool"
)

// Turn is one model round-trip on behalf of a node: build the request with
// the processors, count it against the session's model budget, and collect
// the final content.
type Turn struct {
	// Owner is the node whose history feeds the request.
	Owner string

	// From skips transcript positions before it.
	From int

	Model model.Model

	// Instructions is a text/template rendered against session state and Data.
	Instructions string
	Data         map[string]any

	// Kickoff opens the conversation as the first user message.
	Kickoff string

	Tools      *tool.Registry
	Processors []RequestProcessor
}

// Generate runs the turn.
//
// Logging Fields:
//
//	node: owner node
//	tool_calls: number of tool calls in the reply
//	duration_ms: model latency
func (t *Turn) Generate(rc *core.RunContext) (core.Content, error) {
	req := new(model.Request)

	processors := t.Processors
	if processors == nil {
		processors = DefaultProcessors()
	}
	for _, p := range processors {
		if err := p.ProcessRequest(rc, req, t); err != nil {
			return core.Content{}, fmt.Errorf("request processor %s failed: %w", p.Name(), err)
		}
	}

	if rc.Limiter != nil {
		if err := rc.Limiter.Increment(); err != nil {
			return core.Content{}, err
		}
	}

	start := time.Now()
	content, err := model.Collect(rc.Context, t.Model, *req)
	if err != nil {
		rc.LogError("flow.turn.error", "node", t.Owner, "error", err.Error())
		return core.Content{}, err
	}

	calls := 0
	for _, p := range content.Parts {
		if _, ok := p.(core.ToolCallPart); ok {
			calls++
		}
	}
	rc.LogDebug("flow.turn.done", "node", t.Owner, "tool_calls", calls, "duration_ms", time.Since(start).Milliseconds())
	return content, nil
}

// SplitContent separates the text and the tool calls of a model reply.
func SplitContent(c core.Content) (string, []core.ToolCall) {
	var (
		text  string
		calls []core.ToolCall
	)
	for _, p := range c.Parts {
		switch part := p.(type) {
		case core.TextPart:
			text += part.Text
		case core.ToolCallPart:
			calls = append(calls, part.ToolCall)
		}
	}
	return text, calls
}
