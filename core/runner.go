package core

import "context"

// StartRequest opens a tutoring session for one learner. Query optionally
// names the lesson scope; without it the supervisor negotiates one.
type StartRequest struct {
	UserID string `json:"userID"`
	Query  string `json:"query,omitempty"`
}

// Runner defines the orchestration contract for driving the lesson graph
// within a tutoring session.
//
// Semantics & Guarantees:
//   - Message Ordering: messages are delivered in the order nodes emit them.
//   - Persistence: a message is stored before the emitting node resumes.
//   - Channel Lifecycle: the messages channel is closed when the session ends.
//     The error channel carries at most one terminal error then closes.
//   - Cancellation: context cancellation or Cancel(runID) stops the graph and
//     closes the Handoff Channel with a terminal status.
type Runner interface {
	// Start launches a session asynchronously and returns its run id, the
	// ordered message stream and the terminal error channel.
	Start(ctx context.Context, req StartRequest) (string, <-chan Message, <-chan error, error)

	// Cancel requests cooperative termination of an in-flight run.
	Cancel(runID string) error
}
