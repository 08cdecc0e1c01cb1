package handoff

import (
	"context"
	"sync"
	"time"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/logging"
)

// DefaultStallTimeout bounds each wait unless overridden.
const DefaultStallTimeout = 30 * time.Minute

// Payload is one outbound delivery. A terminal payload carries the final
// session status instead of an utterance.
type Payload struct {
	Seq      uint64       `json:"seq"`
	Speaker  core.Speaker `json:"agent_name"`
	Text     string       `json:"content"`
	Terminal bool         `json:"terminal,omitempty"`
	Status   string       `json:"status,omitempty"`
	Detail   string       `json:"detail,omitempty"`
}

// State exposes the three readiness flags of the channel.
type State struct {
	OutboundReady bool `json:"outbound_ready"`
	InputReady    bool `json:"input_ready"`
	Acknowledged  bool `json:"acknowledged"`
	// AwaitingInput is set while the engine blocks in AwaitUserInput.
	AwaitingInput bool `json:"awaiting_input"`
	Closed        bool `json:"closed"`
}

// Options configures a Channel.
type Options struct {
	// StallTimeout bounds every engine-side wait; 0 waits indefinitely.
	StallTimeout time.Duration
	Logger       logging.Logger
	// OnWait is called after every engine-side wait with its outcome.
	OnWait func(phase Phase, d time.Duration, err error)
}

// Channel is the Handoff Channel of one session. Safe for concurrent use.
type Channel struct {
	opts Options

	mu        sync.Mutex
	changed   chan struct{} // closed and replaced on every transition
	seq       uint64
	outbound  Payload
	pending   bool // an outbound payload awaits acknowledgement
	delivered bool // the pending payload was handed to the client
	acked     bool
	input     string
	inputSet  bool
	awaiting  bool
	closed    bool
	terminal  Payload
}

var _ core.Handoff = (*Channel)(nil)

// New returns an open channel.
func New(optFns ...func(o *Options)) *Channel {
	opts := Options{
		StallTimeout: DefaultStallTimeout,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Channel{opts: opts, changed: make(chan struct{})}
}

// broadcast wakes every waiter; caller holds mu.
func (c *Channel) broadcast() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// Send publishes text and blocks until the client acknowledges it.
func (c *Channel) Send(ctx context.Context, speaker core.Speaker, text string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.pending {
		c.mu.Unlock()
		return ErrSendPending
	}
	c.seq++
	c.outbound = Payload{Seq: c.seq, Speaker: speaker, Text: text}
	c.pending, c.delivered, c.acked = true, false, false
	seq := c.seq
	c.broadcast()
	c.mu.Unlock()

	c.opts.Logger.Debug("handoff.send.start", "speaker", speaker, "seq", seq)

	err := c.wait(ctx, PhaseAcknowledge, func() (bool, error) {
		if c.acked && c.outbound.Seq == seq {
			return true, nil
		}
		if c.closed {
			return true, ErrClosed
		}
		return false, nil
	})
	if err != nil {
		c.mu.Lock()
		if c.outbound.Seq == seq {
			c.pending = false
		}
		c.mu.Unlock()
		c.opts.Logger.Warn("handoff.send.failed", "seq", seq, "error", err.Error())
		return err
	}

	c.opts.Logger.Debug("handoff.send.acknowledged", "seq", seq)
	return nil
}

// AwaitUserInput blocks until the client supplies input and consumes it.
func (c *Channel) AwaitUserInput(ctx context.Context) (string, error) {
	c.setAwaiting(true)
	defer c.setAwaiting(false)

	var text string
	err := c.wait(ctx, PhaseInput, func() (bool, error) {
		if c.inputSet {
			text, c.input, c.inputSet = c.input, "", false
			c.broadcast()
			return true, nil
		}
		if c.closed {
			return true, ErrClosed
		}
		return false, nil
	})
	if err != nil {
		return "", err
	}
	c.opts.Logger.Debug("handoff.input.received", "length", len(text))
	return text, nil
}

// wait blocks until cond reports done. cond runs with mu held.
func (c *Channel) wait(ctx context.Context, phase Phase, cond func() (bool, error)) (err error) {
	start := time.Now()
	defer func() {
		if c.opts.OnWait != nil {
			c.opts.OnWait(phase, time.Since(start), err)
		}
	}()

	var stall <-chan time.Time
	if c.opts.StallTimeout > 0 {
		t := time.NewTimer(c.opts.StallTimeout)
		defer t.Stop()
		stall = t.C
	}

	for {
		c.mu.Lock()
		done, cerr := cond()
		changed := c.changed
		c.mu.Unlock()
		if done {
			return cerr
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		case <-stall:
			return &StallError{Phase: phase, After: c.opts.StallTimeout}
		}
	}
}

func (c *Channel) setAwaiting(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.awaiting = v
	c.broadcast()
}

// Next returns the next undelivered outbound payload, blocking until one is
// published. Once the channel is closed it returns the terminal payload.
func (c *Channel) Next(ctx context.Context) (Payload, error) {
	for {
		c.mu.Lock()
		if c.pending && !c.delivered {
			c.delivered = true
			p := c.outbound
			c.mu.Unlock()
			return p, nil
		}
		if c.closed {
			p := c.terminal
			c.mu.Unlock()
			return p, nil
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return Payload{}, ctx.Err()
		}
	}
}

// Current returns the payload awaiting acknowledgement, if any, without
// marking it delivered. Useful when a client lost a delivery.
func (c *Channel) Current() (Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed && !c.pending {
		return c.terminal, true
	}
	return c.outbound, c.pending
}

// Acknowledge confirms receipt of the outstanding payload.
func (c *Channel) Acknowledge() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending {
		if c.closed {
			return ErrClosed
		}
		return ErrNothingToAcknowledge
	}
	c.acked, c.pending, c.delivered = true, false, true
	c.broadcast()
	return nil
}

// SupplyUserInput hands the learner's reply to the engine.
func (c *Channel) SupplyUserInput(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.inputSet {
		return ErrInputPending
	}
	c.input, c.inputSet = text, true
	c.broadcast()
	return nil
}

// State returns a snapshot of the readiness flags.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		OutboundReady: c.pending,
		InputReady:    c.inputSet,
		Acknowledged:  c.acked,
		AwaitingInput: c.awaiting,
		Closed:        c.closed,
	}
}

// Close ends the channel with a terminal status. Every waiter returns
// ErrClosed and Next yields the terminal payload. Later calls are no-ops.
func (c *Channel) Close(status, detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.seq++
	c.terminal = Payload{Seq: c.seq, Speaker: core.SpeakerSupervisor, Terminal: true, Status: status, Detail: detail}
	c.broadcast()
	c.opts.Logger.Info("handoff.closed", "status", status)
}

// Changed returns a channel closed on the next state transition. Clients
// use it together with State to wait for the engine.
func (c *Channel) Changed() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

// Closed reports whether Close was called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
