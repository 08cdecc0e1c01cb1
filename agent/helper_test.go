package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Titouaaaan/tutormesh/content"
	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/flow"
	"github.com/Titouaaaan/tutormesh/handoff"
	"github.com/Titouaaaan/tutormesh/progress"
	"github.com/Titouaaaan/tutormesh/tool"
	"github.com/Titouaaaan/tutormesh/workqueue"
)

type violationObserver struct {
	core.NoOpObserver
	mu    sync.Mutex
	roles []core.Role
}

func (o *violationObserver) ProtocolViolation(r core.Role) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.roles = append(o.roles, r)
}

func newTestRunContext(t *testing.T, h core.Handoff) *core.RunContext {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return core.NewRunContext(ctx, core.RunParams{
		SessionID: "s1",
		RunID:     "r1",
		UserID:    "u1",
		Queue:     workqueue.New(),
		Handoff:   h,
		ContentStore: content.NewInMemoryStore(map[string]string{
			core.ProfileKey("u1"):  `{"name":"Anna","level":"A1"}`,
			core.ContentCurriculum: "Kapitel 1: Begréissung",
			core.ContentLesson:     "Moien! Wéi geet et?",
		}),
		ProgressStore: progress.NewInMemoryStore(),
	})
}

// learner consumes the handoff channel: it acknowledges every payload and
// answers with the next reply until replies run out.
type learner struct {
	ch    *handoff.Channel
	mu    sync.Mutex
	heard []handoff.Payload
	done  chan struct{}
}

func startLearner(t *testing.T, ch *handoff.Channel, replies ...string) *learner {
	t.Helper()
	l := &learner{ch: ch, done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		ch.Close("completed", "")
		cancel()
		<-l.done
	})
	go func() {
		defer close(l.done)
		for {
			p, err := ch.Next(ctx)
			if err != nil || p.Terminal {
				return
			}
			l.mu.Lock()
			l.heard = append(l.heard, p)
			l.mu.Unlock()
			if err := ch.Acknowledge(); err != nil {
				return
			}
			if len(replies) > 0 {
				if err := ch.SupplyUserInput(replies[0]); err != nil {
					return
				}
				replies = replies[1:]
			}
		}
	}()
	return l
}

func (l *learner) texts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.heard))
	for i, p := range l.heard {
		out[i] = p.Text
	}
	return out
}

type registered interface {
	core.Node
	Tools() *tool.Registry
}

// drive runs nodes along the lesson graph edges until a terminal decision,
// the stop node or the step bound. It returns the last decision and the
// visited node names.
func drive(t *testing.T, rc *core.RunContext, start string, in core.Decision, stop string, nodes ...registered) (core.Decision, []string) {
	t.Helper()
	byName := map[string]core.Node{}
	regs := map[string]*tool.Registry{}
	for _, n := range nodes {
		byName[n.Name()] = n
		regs[n.Name()] = n.Tools()
	}
	byName[flow.NodeToolCall] = flow.NewToolCallNode(regs)
	byName[flow.NodeDispatcher] = NewDispatcher()

	var visited []string
	current := start
	for range 50 {
		n, ok := byName[current]
		require.True(t, ok, "unknown node %s", current)
		visited = append(visited, current)

		out, err := n.Run(rc, in)
		require.NoError(t, err, "node %s", current)
		if out.Terminal() {
			return out, visited
		}
		next, err := flow.Route(current, out)
		require.NoError(t, err)
		if next == stop {
			return out, visited
		}
		current, in = next, out
	}
	t.Fatal("step bound reached")
	return core.Decision{}, visited
}

func decisionsOf(rc *core.RunContext) []core.Decision {
	var out []core.Decision
	for _, m := range rc.Session.GetMessages() {
		if m.Decision != nil {
			out = append(out, *m.Decision)
		}
	}
	return out
}

func staticClassifier(output string) *workqueue.Partitioner {
	return workqueue.NewPartitioner(workqueue.ClassifierFunc(func(context.Context, string, string) (string, error) {
		return output, nil
	}), nil)
}
