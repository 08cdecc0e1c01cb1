package workqueue

import (
	"errors"
	"fmt"
)

// ErrQueueEmpty is returned by TakeNext when no pair is left.
var ErrQueueEmpty = errors.New("work queue is empty")

// IntegrityError reports a queue that would violate the pairing or closed
// role set. It is fatal to the session.
type IntegrityError struct {
	Reason string
	Tag    string
}

func (e *IntegrityError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("queue integrity: %s: %q", e.Reason, e.Tag)
	}
	return "queue integrity: " + e.Reason
}

// ParseError reports classifier output that does not hold two usable lists.
// The queue is never touched when it is returned.
type ParseError struct {
	Reason string
	Output string
}

func (e *ParseError) Error() string { return "classification parse: " + e.Reason }

// ClassificationError wraps a failed classifier call.
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string { return "classification failed: " + e.Err.Error() }

func (e *ClassificationError) Unwrap() error { return e.Err }
