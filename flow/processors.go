package flow

import (
	"fmt"
	"maps"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/internal/util"
	"github.com/Titouaaaan/tutormesh/model"
)

// RequestProcessor shapes the model request before a Turn sends it.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest modifies the request in place.
	ProcessRequest(rc *core.RunContext, req *model.Request, t *Turn) error
}

// DefaultProcessors returns the processors every Turn runs unless overridden:
// instructions, contents, tools.
func DefaultProcessors() []RequestProcessor {
	return []RequestProcessor{InstructionsProcessor{}, ContentsProcessor{}, ToolsProcessor{}}
}

// InstructionsProcessor renders the node instructions with text/template.
// The data is the session state overlaid with Turn.Data; state keys contain
// dots, so templates read them with {{index . "lesson.topic"}}.
type InstructionsProcessor struct{}

// Name returns the processor's identifier.
func (InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest sets req.Instructions.
func (InstructionsProcessor) ProcessRequest(rc *core.RunContext, req *model.Request, t *Turn) error {
	data := map[string]any{}
	if rc.Session != nil {
		maps.Copy(data, rc.Session.Clone().State)
	}
	maps.Copy(data, rc.StateDelta)
	maps.Copy(data, t.Data)

	instructions, err := util.RenderTemplate(t.Instructions, data)
	if err != nil {
		return fmt.Errorf("failed to render instructions: %w", err)
	}
	req.Instructions = instructions
	rc.LogDebug("flow.instructions.resolved", "node", t.Owner, "length", len(instructions))
	return nil
}

// ContentsProcessor adds the kickoff message and the node's own history.
// History never starts with a tool result whose call was cut off by the
// history bound.
type ContentsProcessor struct{}

// Name returns the processor's identifier.
func (ContentsProcessor) Name() string { return "contents" }

// ProcessRequest sets req.Contents.
func (ContentsProcessor) ProcessRequest(rc *core.RunContext, req *model.Request, t *Turn) error {
	history := rc.HistoryFrom(t.Owner, t.From)
	for len(history) > 0 && len(history[0].ToolResults()) > 0 {
		history = history[1:]
	}

	contents := make([]core.Content, 0, len(history)+1)
	if t.Kickoff != "" {
		contents = append(contents, core.Content{Role: "user", Parts: []core.Part{core.TextPart{Text: t.Kickoff}}})
	}
	for _, m := range history {
		if m.Content != nil && len(m.Content.Parts) > 0 {
			contents = append(contents, *m.Content)
		}
	}
	req.Contents = contents
	return nil
}

// ToolsProcessor declares the node's tools.
type ToolsProcessor struct{}

// Name returns the processor's identifier.
func (ToolsProcessor) Name() string { return "tools" }

// ProcessRequest sets req.Tools.
func (ToolsProcessor) ProcessRequest(_ *core.RunContext, req *model.Request, t *Turn) error {
	req.Tools = t.Tools.Definitions()
	return nil
}
