package core

import (
	"strings"
	"time"
)

// Speaker identifies who produced a transcript message.
type Speaker string

const (
	SpeakerSupervisor Speaker = "supervisor"
	SpeakerDispatcher Speaker = "dispatcher"
	SpeakerTool       Speaker = "tool"
	SpeakerUser       Speaker = "user"
)

// WorkerSpeaker returns the speaker tag for a worker role.
func WorkerSpeaker(r Role) Speaker { return Speaker(r) }

// MessageActions carries side effects attached to a message. The runner
// applies StateDelta to the persisted session when the message is committed.
type MessageActions struct {
	StateDelta map[string]any `json:"state_delta,omitempty"`
}

// Message is one immutable, append-only transcript record.
//
// Owner names the graph node whose exchange the message belongs to: a worker's
// utterance, the user's reply to it and the tool results of its calls all
// share the worker's node name. A worker utterance and the user reply that
// answers it share a TurnIndex.
type Message struct {
	ID           string         `json:"id"`
	SessionID    string         `json:"session_id"`
	RunID        string         `json:"run_id,omitempty"`
	Speaker      Speaker        `json:"speaker"`
	Owner        string         `json:"owner,omitempty"`
	Content      *Content       `json:"content,omitempty"`
	TurnIndex    int            `json:"turn_index,omitempty"`
	Decision     *Decision      `json:"decision,omitempty"`
	Actions      MessageActions `json:"actions"`
	Timestamp    time.Time      `json:"timestamp"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

func newMessage(speaker Speaker, owner, role string, parts ...Part) Message {
	return Message{
		ID:        NewID(),
		Speaker:   speaker,
		Owner:     owner,
		Content:   &Content{Role: role, Parts: parts},
		Timestamp: time.Now(),
	}
}

// NewTextMessage builds an assistant-side text message.
func NewTextMessage(speaker Speaker, owner, text string) Message {
	return newMessage(speaker, owner, "assistant", TextPart{Text: text})
}

// NewUserReply builds the learner's reply to the utterance with turn index turn.
func NewUserReply(owner, text string, turn int) Message {
	m := newMessage(SpeakerUser, owner, "user", TextPart{Text: text})
	m.TurnIndex = turn
	return m
}

// NewToolCallMessage builds a message requesting the given tool calls. Calls
// without an ID get a fresh one.
func NewToolCallMessage(speaker Speaker, owner, text string, calls ...ToolCall) Message {
	parts := make([]Part, 0, len(calls)+1)
	if text != "" {
		parts = append(parts, TextPart{Text: text})
	}
	for _, c := range calls {
		if c.ID == "" {
			c.ID = NewID()
		}
		parts = append(parts, ToolCallPart{ToolCall: c})
	}
	return newMessage(speaker, owner, "assistant", parts...)
}

// NewToolResultMessage builds the result message for one tool call.
func NewToolResultMessage(owner string, res ToolResult) Message {
	m := newMessage(SpeakerTool, owner, "tool", ToolResultPart{ToolResult: res})
	if res.Error != "" {
		m.ErrorMessage = res.Error
	}
	return m
}

// Text concatenates all text parts.
func (m Message) Text() string {
	if m.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range m.Content.Parts {
		if tp, ok := p.(TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// ToolCalls returns the tool calls in the order they were requested.
func (m Message) ToolCalls() []ToolCall {
	if m.Content == nil {
		return nil
	}
	var calls []ToolCall
	for _, p := range m.Content.Parts {
		if cp, ok := p.(ToolCallPart); ok {
			calls = append(calls, cp.ToolCall)
		}
	}
	return calls
}

// HasToolCalls reports whether the message requests any tool.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls()) > 0 }

// ToolResults returns the tool results carried by the message.
func (m Message) ToolResults() []ToolResult {
	if m.Content == nil {
		return nil
	}
	var res []ToolResult
	for _, p := range m.Content.Parts {
		if rp, ok := p.(ToolResultPart); ok {
			res = append(res, rp.ToolResult)
		}
	}
	return res
}

// WithDecision returns a copy of m annotated with d.
func (m Message) WithDecision(d Decision) Message {
	m.Decision = &d
	return m
}
