package handoff

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrClosed is returned once the session owning the channel has ended.
	ErrClosed = errors.New("handoff channel closed")
	// ErrStalled matches every *StallError.
	ErrStalled = errors.New("handoff stalled")
	// ErrInputPending is returned when input is supplied before the previous one was consumed.
	ErrInputPending = errors.New("user input already pending")
	// ErrNothingToAcknowledge is returned by Acknowledge without an outstanding payload.
	ErrNothingToAcknowledge = errors.New("no outbound payload to acknowledge")
	// ErrSendPending is returned by Send while a previous payload is unacknowledged.
	ErrSendPending = errors.New("previous payload not yet acknowledged")
)

// Phase names the wait a stall happened in.
type Phase string

const (
	PhaseAcknowledge Phase = "acknowledge"
	PhaseInput       Phase = "input"
)

// StallError reports a wait that exceeded the stall timeout.
type StallError struct {
	Phase Phase
	After time.Duration
}

func (e *StallError) Error() string {
	return fmt.Sprintf("handoff stalled waiting for %s after %s", e.Phase, e.After)
}

// Is makes errors.Is(err, ErrStalled) succeed.
func (e *StallError) Is(target error) bool { return target == ErrStalled }
