// Package poller drives a question submission from launch to a terminal
// state by polling the execution's status on a fixed interval.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/me/nada/internal/logging"
	"github.com/me/nada/pkg/model"
)

// Launcher starts an execution for a question.
type Launcher interface {
	Launch(ctx context.Context, question string) (string, error)
}

// Resolver reports the current outcome of an execution.
type Resolver interface {
	Resolve(ctx context.Context, executionID string) (model.Outcome, error)
}

// Config holds polling configuration.
type Config struct {
	Interval    time.Duration // delay between polls
	MaxAttempts int           // 0 means no attempt limit
	Timeout     time.Duration // overall polling budget; 0 means none
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 2 * time.Second,
		Timeout:  10 * time.Minute,
	}
}

// ErrTimedOut is recorded on a submission that hit MaxAttempts or Timeout.
var ErrTimedOut = errors.New("polling budget exhausted")

// Progress messages shown to the user.
const (
	msgSending  = "Sending request to Kestra Agent..."
	msgStarted  = "Job started! ID: %s"
	msgWaiting  = "Waiting for analysis (this may take 15-30s)..."
	msgComplete = "Analysis complete!"
	msgFailed   = "Job failed. Check Kestra logs."
	msgError    = "Error: %v"
	msgTimedOut = "Gave up waiting after %d polls."
)

// EventKind distinguishes progress lines from state changes.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventState    EventKind = "state"
)

// Event is delivered to the event handler for every progress line and
// state change of the current submission.
type Event struct {
	Kind        EventKind      `json:"kind"`
	SessionID   string         `json:"session_id"`
	ExecutionID string         `json:"execution_id,omitempty"`
	State       model.JobState `json:"state"`
	Message     string         `json:"message,omitempty"`
	Answer      string         `json:"answer,omitempty"`
	Error       string         `json:"error,omitempty"`
	Time        time.Time      `json:"time"`
}

// Snapshot is a copy of the controller's state record.
type Snapshot struct {
	SessionID   string         `json:"session_id,omitempty"`
	ExecutionID string         `json:"execution_id,omitempty"`
	State       model.JobState `json:"state"`
	Answer      string         `json:"answer,omitempty"`
	Outcome     model.Outcome  `json:"outcome"`
	Err         error          `json:"-"`
	Attempts    int            `json:"attempts"`
	Progress    []string       `json:"progress,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
}

// Controller owns the state of one question submission at a time. A new
// submission abandons the previous one: its scheduled and in-flight polls
// are cancelled and any late result is discarded.
type Controller struct {
	launcher Launcher
	resolver Resolver
	config   Config
	logger   *slog.Logger
	onEvent  func(Event)

	mu     sync.Mutex
	gen    uint64
	snap   Snapshot
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures optional Controller behaviour.
type Option func(*Controller)

// WithEventHandler sets the function receiving events. The handler runs
// with the controller locked and must not call back into it.
func WithEventHandler(fn func(Event)) Option {
	return func(c *Controller) {
		c.onEvent = fn
	}
}

// New creates an idle Controller.
func New(l Launcher, r Resolver, cfg Config, logger *slog.Logger, opts ...Option) *Controller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if logger == nil {
		logger = logging.Discard()
	}
	c := &Controller{
		launcher: l,
		resolver: r,
		config:   cfg,
		logger:   logger.With("component", "poller"),
		snap:     Snapshot{State: model.JobStateIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit starts a new submission for question and returns true. It is a
// no-op returning false when the question is blank or a launch is already
// in flight. ctx bounds the whole submission.
func (c *Controller) Submit(ctx context.Context, question string) bool {
	if strings.TrimSpace(question) == "" {
		return false
	}

	c.mu.Lock()
	if c.snap.State == model.JobStateLaunching {
		c.mu.Unlock()
		return false
	}
	if c.cancel != nil {
		c.cancel()
		c.logger.Info("abandoning previous submission", "session_id", c.snap.SessionID, "execution_id", c.snap.ExecutionID)
	}

	c.gen++
	gen := c.gen
	sctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.snap = Snapshot{
		SessionID: uuid.NewString(),
		State:     model.JobStateLaunching,
		StartedAt: time.Now(),
	}
	c.logger.Info("submission started", "session_id", c.snap.SessionID)
	c.emitLocked(c.stateEvent())
	c.emitLocked(c.progressLocked(msgSending))

	go c.run(sctx, gen, question, done)
	return true
}

// Snapshot returns a copy of the current state record.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

// Wait blocks until the submission current at call time stops, then
// returns the snapshot. It returns immediately when nothing was submitted.
func (c *Controller) Wait(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
	return c.Snapshot(), nil
}

// Stop cancels the current submission, if any, and waits for it to end.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (c *Controller) run(ctx context.Context, gen uint64, question string, done chan struct{}) {
	defer close(done)

	id, err := c.launcher.Launch(ctx, question)
	if err != nil {
		c.finish(gen, model.JobStateError, model.Outcome{}, err)
		return
	}
	if !c.transition(gen, model.JobStatePolling, func(s *Snapshot) { s.ExecutionID = id }) {
		return
	}
	c.progress(gen, fmt.Sprintf(msgStarted, id))
	c.progress(gen, msgWaiting)

	var deadline <-chan time.Time
	if c.config.Timeout > 0 {
		t := time.NewTimer(c.config.Timeout)
		defer t.Stop()
		deadline = t.C
	}

	// Polls are serialized: the next one is scheduled after the previous
	// one has returned.
	wait := time.NewTimer(c.config.Interval)
	defer wait.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			c.finish(gen, model.JobStateError, model.Outcome{}, ctx.Err())
			return
		case <-deadline:
			c.finish(gen, model.JobStateTimedOut, model.Outcome{}, ErrTimedOut)
			return
		case <-wait.C:
		}

		outcome, err := c.resolver.Resolve(ctx, id)
		if ctx.Err() != nil {
			c.finish(gen, model.JobStateError, model.Outcome{}, ctx.Err())
			return
		}
		if !c.record(gen, attempt) {
			return
		}
		if err != nil {
			c.finish(gen, model.JobStateError, model.Outcome{}, err)
			return
		}

		switch outcome.Kind {
		case model.OutcomeSucceeded, model.OutcomeSucceededUnparsed:
			c.finish(gen, model.JobStateSucceeded, outcome, nil)
			return
		case model.OutcomeFailed:
			c.finish(gen, model.JobStateFailed, outcome, nil)
			return
		}

		if c.config.MaxAttempts > 0 && attempt >= c.config.MaxAttempts {
			c.finish(gen, model.JobStateTimedOut, model.Outcome{}, ErrTimedOut)
			return
		}
		c.logger.Debug("still running", "execution_id", id, "attempt", attempt)
		wait.Reset(c.config.Interval)
	}
}

// transition moves the current submission to next and announces it. It
// returns false when gen is stale or the move is not allowed.
func (c *Controller) transition(gen uint64, next model.JobState, mutate func(*Snapshot)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.transitionLocked(gen, next) {
		return false
	}
	if mutate != nil {
		mutate(&c.snap)
	}
	c.emitLocked(c.stateEvent())
	return true
}

func (c *Controller) transitionLocked(gen uint64, next model.JobState) bool {
	if gen != c.gen {
		c.logger.Debug("discarding stale result", "state", next)
		return false
	}
	if !c.snap.State.CanTransitionTo(next) {
		c.logger.Warn("rejected transition", "error", &model.InvalidTransitionError{
			Entity: "Job", ID: c.snap.ExecutionID, From: c.snap.State.String(), To: next.String(),
		})
		return false
	}
	c.snap.State = next
	return true
}

// finish moves the current submission to a terminal state.
func (c *Controller) finish(gen uint64, next model.JobState, outcome model.Outcome, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.transitionLocked(gen, next) {
		return
	}
	c.snap.Outcome = outcome
	c.snap.Answer = outcome.DisplayAnswer()
	c.snap.Err = err

	var msg string
	switch next {
	case model.JobStateSucceeded:
		msg = msgComplete
	case model.JobStateFailed:
		msg = msgFailed
	case model.JobStateTimedOut:
		msg = fmt.Sprintf(msgTimedOut, c.snap.Attempts)
	default:
		msg = fmt.Sprintf(msgError, err)
	}

	logger := c.logger.With("session_id", c.snap.SessionID, "execution_id", c.snap.ExecutionID, "state", next)
	if err != nil {
		logger.Warn("submission ended", "error", err)
	} else {
		logger.Info("submission ended", "attempts", c.snap.Attempts)
	}
	c.emitLocked(c.stateEvent())
	c.emitLocked(c.progressLocked(msg))
}

func (c *Controller) record(gen uint64, attempt int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.snap.State.IsTerminal() {
		return false
	}
	c.snap.Attempts = attempt
	return true
}

func (c *Controller) progress(gen uint64, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.emitLocked(c.progressLocked(msg))
}

func (c *Controller) progressLocked(msg string) Event {
	c.snap.Progress = append(c.snap.Progress, msg)
	return Event{
		Kind:        EventProgress,
		SessionID:   c.snap.SessionID,
		ExecutionID: c.snap.ExecutionID,
		State:       c.snap.State,
		Message:     msg,
		Time:        time.Now(),
	}
}

func (c *Controller) stateEvent() Event {
	ev := Event{
		Kind:        EventState,
		SessionID:   c.snap.SessionID,
		ExecutionID: c.snap.ExecutionID,
		State:       c.snap.State,
		Answer:      c.snap.Answer,
		Time:        time.Now(),
	}
	if c.snap.Err != nil {
		ev.Error = c.snap.Err.Error()
	}
	return ev
}

// emitLocked hands ev to the handler. Caller holds mu, which keeps events
// in transition order and keeps stale sessions from emitting.
func (c *Controller) emitLocked(ev Event) {
	if c.onEvent != nil {
		c.onEvent(ev)
	}
}

func (c *Controller) copyLocked() Snapshot {
	s := c.snap
	s.Progress = append([]string(nil), c.snap.Progress...)
	return s
}
