package workqueue

import (
	"sync"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/logging"
)

// Options configures a Queue.
type Options struct {
	Logger logging.Logger
}

// Queue is the in-memory core.WorkQueue. Safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	roles  []core.Role
	chunks []string
	logger logging.Logger
}

var _ core.WorkQueue = (*Queue)(nil)

// New returns an empty queue.
func New(optFns ...func(o *Options)) *Queue {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Queue{logger: opts.Logger}
}

// Replace validates both sequences and swaps them in atomically. On error
// the previous contents are kept.
func (q *Queue) Replace(roles []core.Role, chunks []string) error {
	if err := validate(roles, chunks); err != nil {
		q.logger.Warn("workqueue.replace.rejected", "error", err.Error())
		return err
	}

	r := make([]core.Role, len(roles))
	copy(r, roles)
	c := make([]string, len(chunks))
	copy(c, chunks)

	q.mu.Lock()
	q.roles, q.chunks = r, c
	q.mu.Unlock()

	q.logger.Info("workqueue.replace", "items", len(r))
	return nil
}

func validate(roles []core.Role, chunks []string) error {
	if len(roles) != len(chunks) {
		return &IntegrityError{Reason: "role and chunk sequences differ in length"}
	}
	for _, r := range roles {
		if !r.Valid() {
			return &IntegrityError{Reason: "unknown role", Tag: string(r)}
		}
	}
	return nil
}

// Peek returns the head role without mutating the queue.
func (q *Queue) Peek() (core.Role, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.roles) == 0 || len(q.chunks) == 0 {
		return "", false
	}
	return q.roles[0], true
}

// TakeNext pops index 0 from both sequences.
func (q *Queue) TakeNext() (core.WorkItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.roles) == 0 || len(q.chunks) == 0 {
		return core.WorkItem{}, ErrQueueEmpty
	}

	item := core.WorkItem{Role: q.roles[0], Chunk: q.chunks[0]}
	q.roles = q.roles[1:]
	q.chunks = q.chunks[1:]

	q.logger.Debug("workqueue.take", "role", item.Role, "remaining", len(q.roles))
	return item, nil
}

// Len returns the number of pairs left.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.roles)
}

// Snapshot returns copies of both sequences.
func (q *Queue) Snapshot() ([]core.Role, []string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r := make([]core.Role, len(q.roles))
	copy(r, q.roles)
	c := make([]string, len(q.chunks))
	copy(c, q.chunks)
	return r, c
}
