package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/Titouaaaan/tutormesh/core"
)

// CallbackType defines the lifecycle points where callbacks run.
type CallbackType string

const (
	// CallbackBeforeNode runs before a node is activated. An error stops the run.
	CallbackBeforeNode CallbackType = "before_node"

	// CallbackAfterNode runs after a node returned its decision.
	CallbackAfterNode CallbackType = "after_node"

	// CallbackOnError runs when a node fails. Its own errors are only logged.
	CallbackOnError CallbackType = "on_error"
)

// CallbackContext provides the execution context of one callback.
type CallbackContext struct {
	RunContext *core.RunContext

	// Node is the node being activated.
	Node string

	// Decision is the incoming decision before the node runs and the
	// node's decision afterwards.
	Decision core.Decision

	// Err is set for CallbackOnError.
	Err error
}

// Callback defines the interface for execution lifecycle hooks.
//
// Callbacks run synchronously on the session goroutine and should be fast.
type Callback interface {
	Type() CallbackType
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	audit := NewFunctionCallback(CallbackAfterNode, func(ctx context.Context, cc *CallbackContext) error {
//	    log.Printf("%s -> %s", cc.Node, cc.Decision)
//	    return nil
//	})
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{callbackType: callbackType, fn: fn}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType { return c.callbackType }

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager holds callbacks per type and runs them in registration
// order. The first error stops the remaining callbacks of that type.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{callbacks: make(map[CallbackType][]Callback)}
}

// RegisterCallback adds a callback for its type.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks[callback.Type()] = append(cm.callbacks[callback.Type()], callback)
}

// ExecuteCallbacks runs every callback registered for callbackType.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	cm.mu.RLock()
	callbacks := cm.callbacks[callbackType]
	cm.mu.RUnlock()

	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return err
		}
	}
	return nil
}

// LoggingCallback forwards a one-line description of every callback to a
// logging function.
type LoggingCallback struct {
	callbackType CallbackType
	logger       func(message string)
}

// NewLoggingCallback creates a new logging callback.
func NewLoggingCallback(callbackType CallbackType, logger func(message string)) *LoggingCallback {
	return &LoggingCallback{callbackType: callbackType, logger: logger}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType { return c.callbackType }

// Execute logs the node and decision.
func (c *LoggingCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	if c.logger != nil {
		c.logger(fmt.Sprintf("[%s] node: %s, decision: %s", c.callbackType, callbackCtx.Node, callbackCtx.Decision))
	}
	return nil
}

// QueueGuardCallback refuses to activate a worker that is not at the head
// of the Work Queue. It enforces at runtime what the dispatcher guarantees.
type QueueGuardCallback struct{}

// Type returns CallbackBeforeNode.
func (QueueGuardCallback) Type() CallbackType { return CallbackBeforeNode }

// Execute checks Dispatch decisions against the queue head.
func (QueueGuardCallback) Execute(_ context.Context, cc *CallbackContext) error {
	if cc.Decision.Kind != core.DecisionDispatch || cc.RunContext.Queue == nil {
		return nil
	}
	head, ok := cc.RunContext.Queue.Peek()
	if !ok || string(head) != cc.Node {
		return fmt.Errorf("dispatch to %s but queue head is %q", cc.Node, head)
	}
	return nil
}
