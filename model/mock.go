package model

import (
	"context"
	"errors"
	"sync"

	"github.com/Titouaaaan/tutormesh/core"
)

// ErrScriptExhausted is returned by MockModel once every scripted reply was consumed.
var ErrScriptExhausted = errors.New("mock model script exhausted")

type scripted struct {
	content core.Content
	err     error
}

// MockModel is a deterministic in-memory Model for tests and offline demos.
// Each Generate call consumes the next scripted reply in FIFO order and the
// received requests are recorded for assertions.
type MockModel struct {
	info Info

	mu       sync.Mutex
	script   []scripted
	calls    []Request
	fallback *core.Content
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{info: Info{Name: name, Provider: "mock", SupportsTools: true}}
}

// EnqueueText scripts a plain text reply.
func (m *MockModel) EnqueueText(text string) *MockModel {
	return m.enqueue(scripted{content: core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: text}}}})
}

// EnqueueToolCall scripts a reply requesting a single tool call.
func (m *MockModel) EnqueueToolCall(name, args string) *MockModel {
	call := core.ToolCall{ID: core.NewID(), Name: name, Arguments: args}
	return m.enqueue(scripted{content: core.Content{Role: "assistant", Parts: []core.Part{core.ToolCallPart{ToolCall: call}}}})
}

// EnqueueContent scripts an arbitrary reply.
func (m *MockModel) EnqueueContent(c core.Content) *MockModel {
	return m.enqueue(scripted{content: c})
}

// EnqueueError scripts a failing call.
func (m *MockModel) EnqueueError(err error) *MockModel {
	return m.enqueue(scripted{err: err})
}

// SetFallbackText makes the model answer text once the script is exhausted
// instead of failing.
func (m *MockModel) SetFallbackText(text string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: text}}}
	return m
}

func (m *MockModel) enqueue(s scripted) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, s)
	return m
}

// Calls returns the requests received so far.
func (m *MockModel) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Pending returns the number of scripted replies not yet consumed.
func (m *MockModel) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.script)
}

func (m *MockModel) next(req Request) scripted {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if len(m.script) == 0 {
		if m.fallback != nil {
			return scripted{content: *m.fallback}
		}
		return scripted{err: ErrScriptExhausted}
	}
	s := m.script[0]
	m.script = m.script[1:]
	return s
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	s := m.next(req)

	go func() {
		defer close(respCh)
		defer close(errCh)
		if err := ctx.Err(); err != nil {
			errCh <- err
			return
		}
		if s.err != nil {
			errCh <- s.err
			return
		}
		reason := "stop"
		for _, p := range s.content.Parts {
			if _, ok := p.(core.ToolCallPart); ok {
				reason = "tool_calls"
				break
			}
		}
		respCh <- Response{ID: core.NewID(), Content: s.content, FinishReason: reason}
	}()
	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
