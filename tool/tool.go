// Package tool implements the tool calling subsystem: schema validated
// arguments, consistent error codes, per-node registries and the tutor tools
// the supervisor and workers call.
package tool

import (
	"errors"
	"fmt"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/internal/util"
	"github.com/Titouaaaan/tutormesh/model"
)

// Tool defines the interface for capabilities a node can invoke through the
// Tool-Call node.
type Tool interface {
	// Name returns the unique identifier (snake_case) used in tool calls.
	Name() string

	// Description is shown to the model to explain when to call the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with validated arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes carried by ToolError and surfaced in tool result messages.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeExecution            = "EXECUTION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeQueueEmpty           = "QUEUE_EMPTY"
	CodeQueueIntegrity       = "QUEUE_INTEGRITY"
	CodeClassificationParse  = "CLASSIFICATION_PARSE"
	CodeClassificationFailed = "CLASSIFICATION_FAILED"
	CodeRoleMismatch         = "ROLE_MISMATCH"
	CodeNotPermitted         = "NOT_PERMITTED"
	CodePanic                = "PANIC"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// CodeOf extracts the ToolError code of err, or CodeExecution.
func CodeOf(err error) string {
	var te *ToolError
	if errors.As(err, &te) && te.Code != "" {
		return te.Code
	}
	return CodeExecution
}

// Definition converts a Tool into the model-facing declaration.
func Definition(t Tool) model.ToolDefinition {
	return model.ToolDefinition{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}

// Registry is an ordered set of tools available to one node.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry builds a registry. Later tools with a duplicate name replace earlier ones.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: map[string]Tool{}}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Definitions returns the model declarations in registration order.
func (r *Registry) Definitions() []model.ToolDefinition {
	if r == nil {
		return nil
	}
	defs := make([]model.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, Definition(r.tools[name]))
	}
	return defs
}
