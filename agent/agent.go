package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/flow"
	"github.com/Titouaaaan/tutormesh/handoff"
)

// ErrProtocolViolation is returned once a worker kept failing to retrieve
// its chunk after every corrective retry.
var ErrProtocolViolation = errors.New("protocol violation")

// ErrNoHandoff is returned when a node must talk to the learner but the
// session has no Handoff Channel.
var ErrNoHandoff = errors.New("no handoff channel bound to the session")

// Abort reasons.
const (
	AbortTimedOut         = "timed_out"
	AbortQueueIntegrity   = "queue_integrity"
	AbortPartitionFailed  = "partition_failed"
	AbortNoLessonSelected = "no_lesson_selected"
)

func unexpected(node string, in core.Decision) error {
	return fmt.Errorf("%w: %s activated with %s", flow.ErrNoRoute, node, in)
}

// synthesizeCall builds a tool call the node issues on the model's behalf.
func synthesizeCall(name string, args map[string]any) core.ToolCall {
	raw, err := json.Marshal(args)
	if err != nil || len(args) == 0 {
		raw = []byte("{}")
	}
	return core.ToolCall{ID: core.NewID(), Name: name, Arguments: string(raw)}
}

// lastResults returns the tool results emitted after owner's most recent
// tool-call message, in call order.
func lastResults(rc *core.RunContext, owner string) []core.ToolResult {
	history := rc.Session.OwnerHistory(owner)
	var out []core.ToolResult
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].HasToolCalls() {
			break
		}
		out = append(history[i].ToolResults(), out...)
	}
	return out
}

// intState reads an integer state value. Values that went through JSON come
// back as float64.
func intState(rc *core.RunContext, key string) int {
	v, _ := rc.GetState(key)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func boolState(rc *core.RunContext, key string) bool {
	v, _ := rc.GetState(key)
	b, _ := v.(bool)
	return b
}

// exchange delivers text to the learner and waits for the reply. The
// utterance and the reply share one turn index.
//
// Logging Fields:
//
//	node: owner node
//	turn: turn index
func exchange(rc *core.RunContext, speaker core.Speaker, owner, text string) error {
	if rc.Handoff == nil {
		return ErrNoHandoff
	}
	turn := rc.NextTurn()

	msg := core.NewTextMessage(speaker, owner, text)
	msg.TurnIndex = turn
	if err := rc.EmitMessage(msg); err != nil {
		return err
	}

	if err := rc.Handoff.Send(rc.Context, speaker, text); err != nil {
		return err
	}
	reply, err := rc.Handoff.AwaitUserInput(rc.Context)
	if err != nil {
		return err
	}
	rc.LogDebug("agent.exchange.reply", "node", owner, "turn", turn)

	return rc.EmitMessage(core.NewUserReply(owner, reply, turn))
}

// stallPhase reports the handoff phase that stalled, if err is a stall.
func stallPhase(err error) (string, bool) {
	if !errors.Is(err, handoff.ErrStalled) {
		return "", false
	}
	var se *handoff.StallError
	if errors.As(err, &se) {
		return string(se.Phase), true
	}
	return "unknown", true
}

// splitSentinel looks for a line consisting of the sentinel. It returns the
// text before that line.
func splitSentinel(text, sentinel string) (string, bool) {
	if sentinel == "" {
		return text, false
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*_`.")) == sentinel {
			return strings.TrimSpace(strings.Join(lines[:i], "\n")), true
		}
	}
	return text, false
}
