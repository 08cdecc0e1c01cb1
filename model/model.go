package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Titouaaaan/tutormesh/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the nodes.
type Request struct {
	Instructions string           `json:"instructions"`
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", ...
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by nodes to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrNoResponse is returned by Collect when a model closes without a final response.
var ErrNoResponse = errors.New("model returned no final response")

// Collect drains a Generate call and returns the final (non-partial) content.
func Collect(ctx context.Context, m Model, req Request) (core.Content, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		final core.Content
		found bool
	)
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return core.Content{}, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if !r.Partial {
				final, found = r.Content, true
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return core.Content{}, fmt.Errorf("%s: %w", m.Info().Name, err)
			}
		}
	}
	if !found {
		return core.Content{}, ErrNoResponse
	}
	return final, nil
}

// ResultText renders a tool result for providers that expect plain text.
// Errors keep their code so the model can react to it.
func ResultText(r core.ToolResult) string {
	if r.Error != "" {
		b, _ := json.Marshal(map[string]string{"error": r.Error, "code": r.Code})
		return string(b)
	}
	switch v := r.Response.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
