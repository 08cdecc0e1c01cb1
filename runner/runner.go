package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/engine"
	"github.com/Titouaaaan/tutormesh/handoff"
	"github.com/Titouaaaan/tutormesh/logging"
	"github.com/Titouaaaan/tutormesh/progress"
	"github.com/Titouaaaan/tutormesh/session"
	"github.com/Titouaaaan/tutormesh/tool"
	"github.com/Titouaaaan/tutormesh/workqueue"
)

var (
	// ErrSessionActive is returned by Start while a session is running.
	ErrSessionActive = errors.New("a tutoring session is already active")
	// ErrNoSession is returned when no session is running.
	ErrNoSession = errors.New("no active tutoring session")
	// ErrInvalidRequest is returned by Start for requests without a learner.
	ErrInvalidRequest = errors.New("invalid start request")
)

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// MessageBufferSize sets the buffering of the message stream.
	MessageBufferSize int
	// MaxModelCalls limits the number of model calls per session.
	MaxModelCalls int
	// MaxHistoryMessages bounds the history each model call sees.
	MaxHistoryMessages int
	// CompletionMarker overrides the workers' sentinel line.
	CompletionMarker string
	// StallTimeout bounds every Handoff Channel wait; 0 waits indefinitely.
	StallTimeout time.Duration

	SessionStore  core.SessionStore
	ProgressStore core.ProgressStore
	ContentStore  core.ContentStore
	Observer      core.Observer
	Logger        logging.Logger
}

// Status reports the state of the most recent session.
type Status struct {
	SessionID string `json:"session_id,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Active    bool   `json:"active"`
	// Result is set once the session ended.
	Result string `json:"result,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// sessionStarter is implemented by observers that track active sessions.
type sessionStarter interface {
	SessionStarted()
}

type activeRun struct {
	status  Status
	cancel  context.CancelFunc
	handoff *handoff.Channel
	queue   *workqueue.Queue
	done    chan struct{}
}

// Runner drives one tutoring session at a time: it creates the session
// scoped Work Queue and Handoff Channel, runs the lesson graph, persists
// every message before the emitting node resumes and closes the Handoff
// Channel with the terminal status. Public methods are safe for concurrent use.
type Runner struct {
	engine *engine.Engine
	opts   Options

	mu      sync.RWMutex
	current *activeRun
}

var _ core.Runner = (*Runner)(nil)

// New constructs a Runner with optional overrides.
func New(e *engine.Engine, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MessageBufferSize: 100,
		MaxModelCalls:     200,
		StallTimeout:      handoff.DefaultStallTimeout,
		SessionStore:      session.NewInMemoryStore(),
		ProgressStore:     progress.NewInMemoryStore(),
		Observer:          core.NoOpObserver{},
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Runner{engine: e, opts: opts}
}

// Start launches a session asynchronously.
//
// Logging Fields:
//
//	session_id: new session identifier
//	run_id: run identifier
//	user_id: learner
//	status: terminal status
func (r *Runner) Start(ctx context.Context, req core.StartRequest) (string, <-chan core.Message, <-chan error, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return "", nil, nil, fmt.Errorf("%w: userID is required", ErrInvalidRequest)
	}

	r.mu.Lock()
	if r.current != nil && r.current.status.Active {
		r.mu.Unlock()
		return "", nil, nil, ErrSessionActive
	}

	sessionID, runID := core.NewID(), core.NewID()
	sess := core.NewSession(sessionID)
	sess.UserID = req.UserID
	if q := strings.TrimSpace(req.Query); q != "" {
		sess.SetState(tool.StateQuery, q)
	}

	if _, err := r.opts.SessionStore.Create(sessionID); err != nil {
		r.mu.Unlock()
		return "", nil, nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := r.opts.SessionStore.ApplyDelta(sessionID, sess.Clone().State); err != nil {
		r.mu.Unlock()
		return "", nil, nil, fmt.Errorf("failed to seed session state: %w", err)
	}

	ch := handoff.New(func(o *handoff.Options) {
		o.StallTimeout = r.opts.StallTimeout
		o.Logger = r.opts.Logger
		o.OnWait = func(phase handoff.Phase, d time.Duration, err error) {
			r.opts.Observer.HandoffWaited(string(phase), d, err)
		}
	})
	queue := workqueue.New(func(o *workqueue.Options) { o.Logger = r.opts.Logger })

	runCtx, cancel := context.WithCancel(ctx)
	run := &activeRun{
		status:  Status{SessionID: sessionID, RunID: runID, UserID: req.UserID, Active: true},
		cancel:  cancel,
		handoff: ch,
		queue:   queue,
		done:    make(chan struct{}),
	}
	r.current = run
	r.mu.Unlock()

	messagesCh := make(chan core.Message, r.opts.MessageBufferSize)
	errorsCh := make(chan error, 1)
	emit := make(chan core.Message, r.opts.MessageBufferSize)
	resumeCh := make(chan struct{}, 1)

	rc := core.NewRunContext(runCtx, core.RunParams{
		SessionID:         sessionID,
		RunID:             runID,
		UserID:            req.UserID,
		Session:           sess,
		Queue:             queue,
		Handoff:           ch,
		ProgressStore:     r.opts.ProgressStore,
		ContentStore:      r.opts.ContentStore,
		Observer:          r.opts.Observer,
		MaxModelCalls:     r.opts.MaxModelCalls,
		CompletionMarker:  r.opts.CompletionMarker,
		MaxHistoryEntries: r.opts.MaxHistoryMessages,
		Emit:              emit,
		Resume:            resumeCh,
		Logger:            r.opts.Logger,
	})

	if s, ok := r.opts.Observer.(sessionStarter); ok {
		s.SessionStarted()
	}
	r.opts.Logger.Info("runner.session.start", "session_id", sessionID, "run_id", runID, "user_id", req.UserID)

	runErr := make(chan error, 1)
	go func() {
		defer close(emit)
		res, err := r.engine.Run(rc)
		status, detail := res.Status, res.Last.Payload
		if err != nil {
			detail = err.Error()
			if status == "" {
				status = engine.StatusFailed
			}
		}
		r.finish(run, status, detail)
		r.opts.Logger.Info("runner.session.end", "session_id", sessionID, "status", status, "steps", res.Steps)
		runErr <- err
	}()

	go func() {
		defer func() {
			// the engine goroutine always reports once emit is closed
			if err := <-runErr; err != nil {
				errorsCh <- fmt.Errorf("session %s failed: %w", sessionID, err)
			}
			close(messagesCh)
			close(errorsCh)
			cancel()
			close(run.done)
		}()
		r.processMessages(runCtx, sessionID, emit, resumeCh, messagesCh)
	}()

	return runID, messagesCh, errorsCh, nil
}

// processMessages persists each emitted message, forwards it and releases
// the emitting node.
func (r *Runner) processMessages(
	ctx context.Context,
	sessionID string,
	emit <-chan core.Message,
	resumeCh chan<- struct{},
	messagesCh chan<- core.Message,
) {
	for m := range emit {
		if err := r.persist(sessionID, m); err != nil {
			r.opts.Logger.Error("runner.persist.error", "session_id", sessionID, "error", err.Error())
			r.cancelRun()
			continue
		}

		select {
		case messagesCh <- m:
		case <-ctx.Done():
		}

		select {
		case resumeCh <- struct{}{}:
		default:
		}
	}
}

func (r *Runner) persist(sessionID string, m core.Message) error {
	if len(m.Actions.StateDelta) > 0 {
		if err := r.opts.SessionStore.ApplyDelta(sessionID, m.Actions.StateDelta); err != nil {
			return fmt.Errorf("failed to apply state delta: %w", err)
		}
	}
	if err := r.opts.SessionStore.AppendMessage(sessionID, m); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (r *Runner) finish(run *activeRun, status, detail string) {
	r.mu.Lock()
	run.status.Active = false
	run.status.Result = status
	run.status.Detail = detail
	r.mu.Unlock()

	r.opts.Observer.SessionEnded(status)
	run.handoff.Close(status, detail)
}

func (r *Runner) cancelRun() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current != nil {
		r.current.cancel()
	}
}

// Cancel cancels the running session by run id.
func (r *Runner) Cancel(runID string) error {
	r.mu.RLock()
	run := r.current
	var status Status
	if run != nil {
		status = run.status
	}
	r.mu.RUnlock()

	if run == nil || !status.Active || status.RunID != runID {
		return fmt.Errorf("%w: run %s", ErrNoSession, runID)
	}
	run.cancel()
	return nil
}

// Handoff returns the Handoff Channel of the current session. The channel
// of an ended session stays available so clients can read its terminal
// payload.
func (r *Runner) Handoff() (*handoff.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return nil, ErrNoSession
	}
	return r.current.handoff, nil
}

// Status returns the state of the current or most recent session.
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return Status{}
	}
	return r.current.status
}

// Wait blocks until the current session ended and its message stream closed.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.RLock()
	run := r.current
	r.mu.RUnlock()
	if run == nil {
		return ErrNoSession
	}
	select {
	case <-run.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels the current session and waits for it to end.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	run := r.current
	r.mu.RUnlock()
	if run == nil {
		return nil
	}
	run.cancel()
	select {
	case <-run.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
