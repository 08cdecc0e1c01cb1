package core

import (
	"context"
	"errors"
	"time"
)

// WorkItem is one (role, chunk) pair taken from the Work Queue.
type WorkItem struct {
	Role  Role   `json:"role"`
	Chunk string `json:"chunk"`
}

// WorkQueue is the paired, ordered sequence of lesson chunks and the roles
// that must teach them. Implementations keep both sequences the same length
// after every operation.
type WorkQueue interface {
	// Replace swaps both sequences at once. Invalid input leaves the queue untouched.
	Replace(roles []Role, chunks []string) error
	// Peek returns the head role without mutating the queue.
	Peek() (Role, bool)
	// TakeNext pops the head pair from both sequences.
	TakeNext() (WorkItem, error)
	Len() int
}

// Handoff is the engine side of the turn-taking channel to the remote client.
type Handoff interface {
	// Send publishes text and blocks until the client acknowledges it.
	Send(ctx context.Context, speaker Speaker, text string) error
	// AwaitUserInput blocks until the client supplies the next user input.
	AwaitUserInput(ctx context.Context) (string, error)
}

// SessionStore persists sessions and their evolving state / message history.
type SessionStore interface {
	Create(id string) (*Session, error)
	Get(id string) (*Session, error)
	AppendMessage(sessionID string, msg Message) error
	ApplyDelta(sessionID string, delta map[string]any) error
}

// ProgressRecord is one append-only entry of a learner's progress history.
type ProgressRecord struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index"`
	Chapter   string    `json:"chapter"`
	Topic     string    `json:"topic"`
	AgentRole string    `json:"agent_role"`
	Goals     string    `json:"goals,omitempty"`
	Feedback  string    `json:"feedback,omitempty"`
	Report    string    `json:"report,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ProgressStore records progress reports. Append never overwrites a prior
// record, even for the same user and role.
type ProgressStore interface {
	Append(ctx context.Context, rec ProgressRecord) error
	List(ctx context.Context, userID string) ([]ProgressRecord, error)
}

// ErrContentNotFound is returned by ContentStore.Get for unknown keys.
var ErrContentNotFound = errors.New("content not found")

// ContentStore serves lesson material, curriculum and learner profiles by key.
type ContentStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// Well-known content keys.
const (
	ContentCurriculum = "curriculum.txt"
	ContentLesson     = "relevant_content.txt"
)

// ProfileKey returns the content key of a learner profile.
func ProfileKey(userID string) string { return "profiles/" + userID + ".json" }
