package core

import "time"

// Observer receives execution signals from the engine, tools and handoff.
// Implementations must be safe for concurrent use.
type Observer interface {
	NodeCompleted(node string, d Decision, dur time.Duration)
	ToolCompleted(tool, code string, dur time.Duration)
	ProtocolViolation(role Role)
	HandoffWaited(phase string, dur time.Duration, err error)
	SessionEnded(status string)
}

// NoOpObserver discards every signal.
type NoOpObserver struct{}

func (NoOpObserver) NodeCompleted(string, Decision, time.Duration) {}
func (NoOpObserver) ToolCompleted(string, string, time.Duration) {}
func (NoOpObserver) ProtocolViolation(Role) {}
func (NoOpObserver) HandoffWaited(string, time.Duration, error) {}
func (NoOpObserver) SessionEnded(string) {}
