package core

import (
	"errors"
	"fmt"
	"sync"
)

// ErrModelBudgetExhausted is returned once a session used up its model calls.
var ErrModelBudgetExhausted = errors.New("model call budget exhausted")

// ModelLimiter caps the number of model calls one session may make.
type ModelLimiter struct {
	mu    sync.Mutex
	max   int
	count int
}

// NewModelLimiter creates a limiter. max <= 0 means unlimited.
func NewModelLimiter(max int) *ModelLimiter {
	return &ModelLimiter{max: max}
}

// Increment counts one model call and fails when the budget is exceeded.
func (ml *ModelLimiter) Increment() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	ml.count++
	if ml.max > 0 && ml.count > ml.max {
		return fmt.Errorf("%w: %d calls", ErrModelBudgetExhausted, ml.max)
	}
	return nil
}

// Count returns the number of calls made so far.
func (ml *ModelLimiter) Count() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return ml.count
}

// Remaining returns the calls left, or -1 when unlimited.
func (ml *ModelLimiter) Remaining() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	if ml.max <= 0 {
		return -1
	}
	return max(ml.max-ml.count, 0)
}
