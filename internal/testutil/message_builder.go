package testutil

import (
	"encoding/json"

	"github.com/Titouaaaan/tutormesh/core"
)

// MessageBuilder provides a fluent helper for constructing transcript
// messages in tests. Example:
//
//	m := NewMessageBuilder().Worker(core.RoleReader).Text("Moien!").Turn(1).Build()
//
// Chain only the parts you need. The speaker defaults to the supervisor and
// the owner to the speaker.
type MessageBuilder struct {
	speaker  core.Speaker
	owner    string
	role     string
	parts    []core.Part
	turn     int
	decision *core.Decision
	delta    map[string]any
	errMsg   string
}

// NewMessageBuilder creates a builder for a supervisor message.
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{speaker: core.SpeakerSupervisor}
}

// Speaker sets the speaker (chainable).
func (b *MessageBuilder) Speaker(s core.Speaker) *MessageBuilder { b.speaker = s; return b }

// Worker sets speaker and owner to the worker of role r (chainable).
func (b *MessageBuilder) Worker(r core.Role) *MessageBuilder {
	b.speaker, b.owner = core.WorkerSpeaker(r), string(r)
	return b
}

// Owner sets the node whose exchange the message belongs to (chainable).
func (b *MessageBuilder) Owner(o string) *MessageBuilder { b.owner = o; return b }

// Text appends an assistant text part (chainable).
func (b *MessageBuilder) Text(t string) *MessageBuilder {
	b.parts = append(b.parts, core.TextPart{Text: t})
	return b
}

// UserReply turns the message into the learner's reply (chainable). The
// owner is kept.
func (b *MessageBuilder) UserReply(t string) *MessageBuilder {
	if b.owner == "" {
		b.owner = string(b.speaker)
	}
	b.speaker, b.role = core.SpeakerUser, "user"
	b.parts = append(b.parts, core.TextPart{Text: t})
	return b
}

// ToolCall appends a tool call with args marshalled to JSON (chainable).
func (b *MessageBuilder) ToolCall(name string, args any) *MessageBuilder {
	raw, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	b.parts = append(b.parts, core.ToolCallPart{ToolCall: core.ToolCall{ID: core.NewID(), Name: name, Arguments: string(raw)}})
	return b
}

// ToolResult appends a tool result and marks the message as a tool
// message (chainable).
func (b *MessageBuilder) ToolResult(res core.ToolResult) *MessageBuilder {
	if b.owner == "" {
		b.owner = string(b.speaker)
	}
	b.speaker, b.role = core.SpeakerTool, "tool"
	b.parts = append(b.parts, core.ToolResultPart{ToolResult: res})
	if res.Error != "" {
		b.errMsg = res.Error
	}
	return b
}

// Turn sets the turn index (chainable).
func (b *MessageBuilder) Turn(i int) *MessageBuilder { b.turn = i; return b }

// Decision annotates the message with a routing decision (chainable).
func (b *MessageBuilder) Decision(kind core.DecisionKind, payload string) *MessageBuilder {
	d := core.NewDecision(kind, payload)
	b.decision = &d
	return b
}

// StateDelta stages a state change carried by the message (chainable).
func (b *MessageBuilder) StateDelta(key string, val any) *MessageBuilder {
	if b.delta == nil {
		b.delta = map[string]any{}
	}
	b.delta[key] = val
	return b
}

// Build constructs the core.Message value.
func (b *MessageBuilder) Build() core.Message {
	owner := b.owner
	if owner == "" {
		owner = string(b.speaker)
	}
	role := b.role
	if role == "" {
		role = "assistant"
	}

	var m core.Message
	if len(b.parts) > 0 {
		m = core.NewToolCallMessage(b.speaker, owner, "")
		m.Content = &core.Content{Role: role, Parts: append([]core.Part(nil), b.parts...)}
	} else {
		m = core.NewTextMessage(b.speaker, owner, "")
		m.Content = nil
	}
	m.TurnIndex = b.turn
	m.Decision = b.decision
	m.ErrorMessage = b.errMsg
	if len(b.delta) > 0 {
		m.Actions.StateDelta = b.delta
	}
	return m
}
