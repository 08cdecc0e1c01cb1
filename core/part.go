package core

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string `json:"text"`
}

func (TextPart) isPart() {}

// DataPart is a structured data segment (e.g. a learner profile map).
type DataPart struct {
	Data map[string]any `json:"data"`
}

func (DataPart) isPart() {}

// ToolCall describes a tool invocation request produced by a node.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"` // JSON object
}

// ToolCallPart wraps a ToolCall as a content part.
type ToolCallPart struct {
	ToolCall ToolCall `json:"tool_call"`
}

func (ToolCallPart) isPart() {}

// ToolResult describes the outcome of a tool call. Code carries the
// tool.ToolError code when Error is set.
type ToolResult struct {
	ID       string `json:"id,omitempty"` // matches the originating ToolCall ID
	Name     string `json:"name"`
	Response any    `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
	Code     string `json:"code,omitempty"`
}

// Failed reports whether the tool surfaced an error.
func (r ToolResult) Failed() bool { return r.Error != "" }

// ToolResultPart wraps a ToolResult as a content part.
type ToolResultPart struct {
	ToolResult ToolResult `json:"tool_result"`
}

func (ToolResultPart) isPart() {}

// Content holds role + ordered parts.
type Content struct {
	Role  string `json:"role,omitempty"` // user, assistant, tool, system
	Parts []Part `json:"parts"`
}
