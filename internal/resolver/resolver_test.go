package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/me/nada/internal/answer"
	"github.com/me/nada/pkg/kestra"
	"github.com/me/nada/pkg/model"
)

type fakeEngine struct {
	state    kestra.State
	stateErr error
	logs     []kestra.LogRecord
	logsErr  error

	logCalls int
}

func (f *fakeEngine) GetExecutionState(ctx context.Context, id string) (kestra.State, error) {
	return f.state, f.stateErr
}

func (f *fakeEngine) GetExecutionLogs(ctx context.Context, id string) ([]kestra.LogRecord, error) {
	f.logCalls++
	return f.logs, f.logsErr
}

func TestResolve_States(t *testing.T) {
	tests := []struct {
		state kestra.State
		want  model.OutcomeKind
	}{
		{kestra.StateCreated, model.OutcomePending},
		{kestra.StateRunning, model.OutcomePending},
		{kestra.StateQueued, model.OutcomePending},
		{kestra.StatePaused, model.OutcomePending},
		{kestra.StateRetrying, model.OutcomePending},
		{kestra.StateFailed, model.OutcomeFailed},
		{kestra.StateKilled, model.OutcomeFailed},
		{kestra.StateWarning, model.OutcomeFailed},
		{kestra.StateCancelled, model.OutcomeFailed},
		{kestra.State("SOMETHING_NEW"), model.OutcomePending},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			eng := &fakeEngine{state: tt.state}
			got, err := New(eng, Config{}, nil).Resolve(context.Background(), "exec-1")
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got.Kind != tt.want {
				t.Errorf("Kind = %s, want %s", got.Kind, tt.want)
			}
			if eng.logCalls != 0 {
				t.Errorf("logs fetched for non-success state %s", tt.state)
			}
		})
	}
}

func TestResolve_UnknownStateFailedPolicy(t *testing.T) {
	eng := &fakeEngine{state: kestra.State("SOMETHING_NEW")}
	got, err := New(eng, Config{UnknownState: UnknownAsFailed}, nil).Resolve(context.Background(), "exec-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != model.Failed() {
		t.Errorf("got %v, want Failed", got)
	}
}

func TestResolve_SuccessWithAnswer(t *testing.T) {
	eng := &fakeEngine{
		state: kestra.StateSuccess,
		logs: []kestra.LogRecord{
			{TaskID: "final_gemini_analysis", Message: "intro\n--- Gemini's Final Answer ---\n42 tons"},
		},
	}
	got, err := New(eng, Config{}, nil).Resolve(context.Background(), "exec-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != model.Succeeded("42 tons") {
		t.Errorf("got %v, want Succeeded(42 tons)", got)
	}
}

func TestResolve_SuccessUnparsed(t *testing.T) {
	eng := &fakeEngine{
		state: kestra.StateSuccess,
		logs:  []kestra.LogRecord{{TaskID: "download", Message: "--- Gemini's Final Answer ---\nwrong task"}},
	}
	got, err := New(eng, Config{}, nil).Resolve(context.Background(), "exec-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != model.SucceededUnparsed() {
		t.Errorf("got %v, want SucceededUnparsed", got)
	}
	if got.DisplayAnswer() != model.UnparsedAnswer {
		t.Errorf("DisplayAnswer = %q", got.DisplayAnswer())
	}
}

func TestResolve_CustomExtractor(t *testing.T) {
	eng := &fakeEngine{
		state: kestra.StateSuccess,
		logs:  []kestra.LogRecord{{TaskID: "summarize", Message: "ANSWER: yes"}},
	}
	cfg := Config{Extractor: answer.Extractor{TaskID: "summarize", Marker: "ANSWER:"}}
	got, _ := New(eng, cfg, nil).Resolve(context.Background(), "exec-1")
	if got != model.Succeeded("yes") {
		t.Errorf("got %v, want Succeeded(yes)", got)
	}
}

func TestResolve_StatusErrorFallsBackToPending(t *testing.T) {
	for _, err := range []error{
		&kestra.TransportError{Op: "get execution state", Err: errors.New("connection refused")},
		&kestra.EngineRejectedError{Op: "get execution state", StatusCode: 502, Status: "Bad Gateway"},
	} {
		eng := &fakeEngine{stateErr: err}
		got, rerr := New(eng, Config{}, nil).Resolve(context.Background(), "exec-1")
		if rerr != nil {
			t.Fatalf("Resolve(%v) returned error %v, want fallback", err, rerr)
		}
		if got != model.Pending() {
			t.Errorf("Resolve(%v) = %v, want Pending", err, got)
		}
	}
}

func TestResolve_StatusErrorPolicyOverride(t *testing.T) {
	var seen error
	cfg := Config{OnStatusError: func(id string, err error) model.Outcome {
		seen = err
		return model.Failed()
	}}
	eng := &fakeEngine{stateErr: errors.New("boom")}
	got, _ := New(eng, cfg, nil).Resolve(context.Background(), "exec-1")
	if got != model.Failed() {
		t.Errorf("got %v, want Failed", got)
	}
	if seen == nil {
		t.Error("policy was not consulted")
	}
}

func TestResolve_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	eng := &fakeEngine{stateErr: &kestra.TransportError{Op: "get execution state", Err: context.Canceled}}
	_, err := New(eng, Config{}, nil).Resolve(ctx, "exec-1")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestResolve_LogFetchFailure(t *testing.T) {
	cause := &kestra.TransportError{Op: "get execution logs", Err: errors.New("EOF")}
	eng := &fakeEngine{state: kestra.StateSuccess, logsErr: cause}

	_, err := New(eng, Config{}, nil).Resolve(context.Background(), "exec-1")
	var ef *model.ExtractionFailedError
	if !errors.As(err, &ef) {
		t.Fatalf("err = %v, want ExtractionFailedError", err)
	}
	if ef.ExecutionID != "exec-1" {
		t.Errorf("ExecutionID = %q", ef.ExecutionID)
	}
	if !kestra.IsTransport(err) {
		t.Error("transport cause not preserved")
	}
}
