package handoff

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Titouaaaan/tutormesh/core"
)

func returnsWithin(t *testing.T, ch <-chan error, d time.Duration) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(d):
		t.Fatal("call did not return in time")
		return nil
	}
}

func staysBlocked(t *testing.T, ch <-chan error) {
	t.Helper()
	select {
	case err := <-ch:
		t.Fatalf("call returned early: %v", err)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestChannel_RoundTrip(t *testing.T) {
	c := New()
	ctx := context.Background()

	sendDone := make(chan error, 1)
	go func() { sendDone <- c.Send(ctx, core.WorkerSpeaker(core.RoleReader), "Moien!") }()

	p, err := c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Speaker("reader"), p.Speaker)
	assert.Equal(t, "Moien!", p.Text)
	assert.True(t, c.State().OutboundReady)

	staysBlocked(t, sendDone)

	require.NoError(t, c.Acknowledge())
	require.NoError(t, returnsWithin(t, sendDone, time.Second))
	assert.True(t, c.State().Acknowledged)

	inputDone := make(chan error, 1)
	var got string
	go func() {
		var err error
		got, err = c.AwaitUserInput(ctx)
		inputDone <- err
	}()

	staysBlocked(t, inputDone)

	require.NoError(t, c.SupplyUserInput("Salut"))
	require.NoError(t, returnsWithin(t, inputDone, time.Second))
	assert.Equal(t, "Salut", got)
	assert.False(t, c.State().InputReady)
}

func TestChannel_InputSuppliedBeforeAwait(t *testing.T) {
	c := New()
	require.NoError(t, c.SupplyUserInput("early"))
	assert.ErrorIs(t, c.SupplyUserInput("again"), ErrInputPending)

	got, err := c.AwaitUserInput(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "early", got)
}

func TestChannel_AcknowledgeWithoutPayload(t *testing.T) {
	c := New()
	assert.ErrorIs(t, c.Acknowledge(), ErrNothingToAcknowledge)
}

func TestChannel_StallTimeout(t *testing.T) {
	var (
		mu     sync.Mutex
		phases []Phase
	)
	c := New(func(o *Options) {
		o.StallTimeout = 20 * time.Millisecond
		o.OnWait = func(p Phase, _ time.Duration, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				phases = append(phases, p)
			}
		}
	})

	err := c.Send(context.Background(), core.SpeakerSupervisor, "hello?")
	var se *StallError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, PhaseAcknowledge, se.Phase)
	assert.ErrorIs(t, err, ErrStalled)
	assert.False(t, c.State().OutboundReady, "stalled payload is withdrawn")

	_, err = c.AwaitUserInput(context.Background())
	assert.ErrorIs(t, err, ErrStalled)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Phase{PhaseAcknowledge, PhaseInput}, phases)
}

func TestChannel_CloseReleasesWaiters(t *testing.T) {
	c := New(func(o *Options) { o.StallTimeout = 0 })
	ctx := context.Background()

	sendDone := make(chan error, 1)
	go func() { sendDone <- c.Send(ctx, core.SpeakerSupervisor, "x") }()
	inputDone := make(chan error, 1)
	go func() {
		_, err := c.AwaitUserInput(ctx)
		inputDone <- err
	}()

	staysBlocked(t, sendDone)
	c.Close("aborted", "queue integrity")

	assert.ErrorIs(t, returnsWithin(t, sendDone, time.Second), ErrClosed)
	assert.ErrorIs(t, returnsWithin(t, inputDone, time.Second), ErrClosed)

	// pending utterance is still delivered, then the terminal status
	p, err := c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "x", p.Text)

	p, err = c.Next(ctx)
	require.NoError(t, err)
	assert.True(t, p.Terminal)
	assert.Equal(t, "aborted", p.Status)
	assert.Equal(t, "queue integrity", p.Detail)

	assert.ErrorIs(t, c.Send(ctx, core.SpeakerSupervisor, "late"), ErrClosed)
	assert.ErrorIs(t, c.SupplyUserInput("late"), ErrClosed)
	assert.True(t, c.State().Closed)
}

func TestChannel_ContextCancel(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.AwaitUserInput(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = c.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChannel_NextDeliversOnce(t *testing.T) {
	c := New()
	ctx := context.Background()
	go func() { _ = c.Send(ctx, core.SpeakerSupervisor, "once") }()

	p, err := c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "once", p.Text)

	cur, ok := c.Current()
	assert.True(t, ok)
	assert.Equal(t, p.Seq, cur.Seq)

	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = c.Next(shortCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, c.Acknowledge())
}

func TestChannel_AwaitingInputFlag(t *testing.T) {
	c := New()
	assert.False(t, c.State().AwaitingInput)

	changed := c.Changed()
	got := make(chan string, 1)
	go func() {
		text, _ := c.AwaitUserInput(context.Background())
		got <- text
	}()

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("no transition observed")
	}
	require.Eventually(t, func() bool { return c.State().AwaitingInput }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.SupplyUserInput("Moien"))
	assert.Equal(t, "Moien", <-got)
	assert.False(t, c.State().AwaitingInput)
}
