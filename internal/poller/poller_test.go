package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/me/nada/pkg/model"
)

type fakeLauncher struct {
	mu    sync.Mutex
	ids   map[string]string // question -> execution id
	err   error
	gate  chan struct{}     // when set, Launch blocks until closed
	calls int
}

func (f *fakeLauncher) Launch(ctx context.Context, question string) (string, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return "", f.err
	}
	return f.ids[question], nil
}

func (f *fakeLauncher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// scriptedResolver replays outcomes per execution id; the last entry repeats.
type scriptedResolver struct {
	mu     sync.Mutex
	script map[string][]model.Outcome
	err    error
	calls  map[string]int
	onCall func(id string)
}

func (r *scriptedResolver) Resolve(ctx context.Context, id string) (model.Outcome, error) {
	r.mu.Lock()
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	n := r.calls[id]
	r.calls[id]++
	onCall := r.onCall
	r.mu.Unlock()

	if onCall != nil {
		onCall(id)
	}
	if r.err != nil {
		return model.Outcome{}, r.err
	}
	outs := r.script[id]
	if len(outs) == 0 {
		return model.Pending(), nil
	}
	if n >= len(outs) {
		n = len(outs) - 1
	}
	return outs[n], nil
}

func (r *scriptedResolver) Calls(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[id]
}

func fastConfig() Config {
	return Config{Interval: time.Millisecond}
}

func waitTerminal(t *testing.T, c *Controller) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := c.Wait(ctx)
	require.NoError(t, err)
	return snap
}

func TestController_SucceedsWithAnswer(t *testing.T) {
	l := &fakeLauncher{ids: map[string]string{"What is the scrap potential?": "exec-1"}}
	r := &scriptedResolver{script: map[string][]model.Outcome{
		"exec-1": {model.Pending(), model.Succeeded("42 tons")},
	}}

	var mu sync.Mutex
	var events []Event
	c := New(l, r, fastConfig(), nil, WithEventHandler(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}))

	require.True(t, c.Submit(context.Background(), "What is the scrap potential?"))
	snap := waitTerminal(t, c)

	assert.Equal(t, model.JobStateSucceeded, snap.State)
	assert.Equal(t, "exec-1", snap.ExecutionID)
	assert.Equal(t, "42 tons", snap.Answer)
	assert.Equal(t, 2, snap.Attempts)
	assert.NoError(t, snap.Err)
	assert.NotEmpty(t, snap.SessionID)
	assert.Contains(t, snap.Progress, "Job started! ID: exec-1")
	assert.Equal(t, msgComplete, snap.Progress[len(snap.Progress)-1])

	mu.Lock()
	defer mu.Unlock()
	var states []model.JobState
	for _, ev := range events {
		if ev.Kind == EventState {
			states = append(states, ev.State)
		}
	}
	assert.Equal(t, []model.JobState{model.JobStateLaunching, model.JobStatePolling, model.JobStateSucceeded}, states)
}

func TestController_SucceededUnparsed(t *testing.T) {
	l := &fakeLauncher{ids: map[string]string{"q": "exec-1"}}
	r := &scriptedResolver{script: map[string][]model.Outcome{"exec-1": {model.SucceededUnparsed()}}}
	c := New(l, r, fastConfig(), nil)

	require.True(t, c.Submit(context.Background(), "q"))
	snap := waitTerminal(t, c)

	assert.Equal(t, model.JobStateSucceeded, snap.State)
	assert.Equal(t, model.UnparsedAnswer, snap.Answer)
	assert.Equal(t, model.OutcomeSucceededUnparsed, snap.Outcome.Kind)
}

func TestController_FailedStopsPolling(t *testing.T) {
	l := &fakeLauncher{ids: map[string]string{"q": "exec-1"}}
	r := &scriptedResolver{script: map[string][]model.Outcome{"exec-1": {model.Failed()}}}
	c := New(l, r, fastConfig(), nil)

	require.True(t, c.Submit(context.Background(), "q"))
	snap := waitTerminal(t, c)
	assert.Equal(t, model.JobStateFailed, snap.State)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, r.Calls("exec-1"), "no polls after a terminal outcome")
}

func TestController_BlankQuestionIsNoop(t *testing.T) {
	l := &fakeLauncher{}
	c := New(l, &scriptedResolver{}, fastConfig(), nil)

	assert.False(t, c.Submit(context.Background(), "   "))
	snap := waitTerminal(t, c)
	assert.Equal(t, model.JobStateIdle, snap.State)
	assert.NoError(t, snap.Err)
	assert.Zero(t, l.Calls())
}

func TestController_LaunchError(t *testing.T) {
	l := &fakeLauncher{err: errors.New("engine down")}
	r := &scriptedResolver{}
	c := New(l, r, fastConfig(), nil)

	require.True(t, c.Submit(context.Background(), "q"))
	snap := waitTerminal(t, c)
	assert.Equal(t, model.JobStateError, snap.State)
	assert.EqualError(t, snap.Err, "engine down")
	assert.Empty(t, snap.ExecutionID)
	assert.Equal(t, "Error: engine down", snap.Progress[len(snap.Progress)-1])
}

func TestController_ResolveError(t *testing.T) {
	l := &fakeLauncher{ids: map[string]string{"q": "exec-1"}}
	cause := &model.ExtractionFailedError{ExecutionID: "exec-1", Err: errors.New("EOF")}
	c := New(l, &scriptedResolver{err: cause}, fastConfig(), nil)

	require.True(t, c.Submit(context.Background(), "q"))
	snap := waitTerminal(t, c)
	assert.Equal(t, model.JobStateError, snap.State)
	assert.ErrorAs(t, snap.Err, new(*model.ExtractionFailedError))
}

func TestController_MaxAttempts(t *testing.T) {
	l := &fakeLauncher{ids: map[string]string{"q": "exec-1"}}
	r := &scriptedResolver{}
	cfg := fastConfig()
	cfg.MaxAttempts = 3
	c := New(l, r, cfg, nil)

	require.True(t, c.Submit(context.Background(), "q"))
	snap := waitTerminal(t, c)
	assert.Equal(t, model.JobStateTimedOut, snap.State)
	assert.ErrorIs(t, snap.Err, ErrTimedOut)
	assert.Equal(t, 3, snap.Attempts)
	assert.Equal(t, 3, r.Calls("exec-1"))
}

func TestController_Timeout(t *testing.T) {
	l := &fakeLauncher{ids: map[string]string{"q": "exec-1"}}
	cfg := Config{Interval: 5 * time.Millisecond, Timeout: 30 * time.Millisecond}
	c := New(l, &scriptedResolver{}, cfg, nil)

	require.True(t, c.Submit(context.Background(), "q"))
	snap := waitTerminal(t, c)
	assert.Equal(t, model.JobStateTimedOut, snap.State)
	assert.ErrorIs(t, snap.Err, ErrTimedOut)
}

func TestController_DuplicateSubmitWhileLaunching(t *testing.T) {
	gate := make(chan struct{})
	l := &fakeLauncher{ids: map[string]string{"q": "exec-1"}, gate: gate}
	r := &scriptedResolver{script: map[string][]model.Outcome{"exec-1": {model.Succeeded("ok")}}}
	c := New(l, r, fastConfig(), nil)

	require.True(t, c.Submit(context.Background(), "q"))
	assert.False(t, c.Submit(context.Background(), "q"), "second submit during launch must be ignored")
	close(gate)

	snap := waitTerminal(t, c)
	assert.Equal(t, model.JobStateSucceeded, snap.State)
	assert.Equal(t, 1, l.Calls())
}

func TestController_StaleExecutionIsDiscarded(t *testing.T) {
	l := &fakeLauncher{ids: map[string]string{"first": "exec-1", "second": "exec-2"}}

	polled := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	r := &scriptedResolver{script: map[string][]model.Outcome{
		"exec-1": {model.Succeeded("stale answer")},
		"exec-2": {model.Pending(), model.Succeeded("fresh answer")},
	}}
	r.onCall = func(id string) {
		if id == "exec-1" {
			// Simulate a slow response that ignores cancellation.
			once.Do(func() { close(polled) })
			<-release
		}
	}

	var mu sync.Mutex
	var events []Event
	c := New(l, r, fastConfig(), nil, WithEventHandler(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}))

	require.True(t, c.Submit(context.Background(), "first"))
	<-polled
	require.True(t, c.Submit(context.Background(), "second"))
	close(release)

	snap := waitTerminal(t, c)
	assert.Equal(t, model.JobStateSucceeded, snap.State)
	assert.Equal(t, "exec-2", snap.ExecutionID)
	assert.Equal(t, "fresh answer", snap.Answer)

	// Let the abandoned goroutine deliver its late result.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "fresh answer", c.Snapshot().Answer)

	mu.Lock()
	defer mu.Unlock()
	for _, ev := range events {
		if ev.ExecutionID == "exec-1" {
			assert.NotEqual(t, model.JobStateSucceeded, ev.State, "stale execution reached a terminal state")
		}
	}
}

func TestController_NoEventsAfterTerminal(t *testing.T) {
	l := &fakeLauncher{ids: map[string]string{"q": "exec-1"}}
	r := &scriptedResolver{script: map[string][]model.Outcome{"exec-1": {model.Pending(), model.Failed()}}}

	var mu sync.Mutex
	var events []Event
	c := New(l, r, fastConfig(), nil, WithEventHandler(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}))
	require.True(t, c.Submit(context.Background(), "q"))
	waitTerminal(t, c)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	terminalSeen := false
	for _, ev := range events {
		if terminalSeen {
			assert.True(t, ev.State.IsTerminal(), "non-terminal event %v after terminal", ev)
		}
		if ev.Kind == EventState && ev.State.IsTerminal() {
			terminalSeen = true
		}
	}
	assert.True(t, terminalSeen)
}

func TestController_ResubmitAfterTerminal(t *testing.T) {
	l := &fakeLauncher{ids: map[string]string{"a": "exec-1", "b": "exec-2"}}
	r := &scriptedResolver{script: map[string][]model.Outcome{
		"exec-1": {model.Failed()},
		"exec-2": {model.Succeeded("second try")},
	}}
	c := New(l, r, fastConfig(), nil)

	require.True(t, c.Submit(context.Background(), "a"))
	first := waitTerminal(t, c)
	assert.Equal(t, model.JobStateFailed, first.State)

	require.True(t, c.Submit(context.Background(), "b"))
	second := waitTerminal(t, c)
	assert.Equal(t, model.JobStateSucceeded, second.State)
	assert.Equal(t, "exec-2", second.ExecutionID)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, 1, second.Attempts)
}

func TestController_Stop(t *testing.T) {
	l := &fakeLauncher{ids: map[string]string{"q": "exec-1"}}
	c := New(l, &scriptedResolver{}, Config{Interval: 10 * time.Millisecond}, nil)

	require.True(t, c.Submit(context.Background(), "q"))
	c.Stop()

	snap := c.Snapshot()
	assert.Equal(t, model.JobStateError, snap.State)
	assert.ErrorIs(t, snap.Err, context.Canceled)
}
