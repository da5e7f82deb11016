// Package resolver maps an execution's engine state, and on success its
// logs, to a client-visible poll outcome.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/me/nada/internal/answer"
	"github.com/me/nada/internal/logging"
	"github.com/me/nada/pkg/kestra"
	"github.com/me/nada/pkg/model"
)

// Engine is the subset of the Kestra client the resolver needs.
type Engine interface {
	GetExecutionState(ctx context.Context, executionID string) (kestra.State, error)
	GetExecutionLogs(ctx context.Context, executionID string) ([]kestra.LogRecord, error)
}

// StatusErrorPolicy decides the outcome reported when the status query
// itself fails (transport error or engine rejection).
type StatusErrorPolicy func(executionID string, err error) model.Outcome

// PendingOnStatusError reports Pending so the poll loop keeps going
// through transient engine or network trouble.
func PendingOnStatusError(string, error) model.Outcome {
	return model.Pending()
}

// UnknownStatePolicy names the outcome used for engine states outside the
// known vocabulary.
type UnknownStatePolicy string

const (
	UnknownAsPending UnknownStatePolicy = "pending"
	UnknownAsFailed  UnknownStatePolicy = "failed"
)

// Config holds resolver configuration.
type Config struct {
	Extractor     answer.Extractor
	UnknownState  UnknownStatePolicy
	OnStatusError StatusErrorPolicy
}

// DefaultConfig returns the configuration matching the reference flow.
func DefaultConfig() Config {
	return Config{
		Extractor:     answer.Default(),
		UnknownState:  UnknownAsPending,
		OnStatusError: PendingOnStatusError,
	}
}

// Resolver turns an execution id into a model.Outcome.
type Resolver struct {
	engine Engine
	config Config
	logger *slog.Logger
}

// New creates a Resolver. Zero-valued config fields take their defaults.
func New(engine Engine, cfg Config, logger *slog.Logger) *Resolver {
	def := DefaultConfig()
	if cfg.Extractor.TaskID == "" {
		cfg.Extractor.TaskID = def.Extractor.TaskID
	}
	if cfg.Extractor.Marker == "" {
		cfg.Extractor.Marker = def.Extractor.Marker
	}
	if cfg.UnknownState == "" {
		cfg.UnknownState = def.UnknownState
	}
	if cfg.OnStatusError == nil {
		cfg.OnStatusError = def.OnStatusError
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{
		engine: engine,
		config: cfg,
		logger: logger.With("component", "resolver"),
	}
}

// Resolve queries the engine once and classifies the execution.
//
// A failing status query is handed to the StatusErrorPolicy. A failing log
// fetch after a confirmed SUCCESS is returned as *model.ExtractionFailedError.
// Only context cancellation is returned as-is.
func (r *Resolver) Resolve(ctx context.Context, executionID string) (model.Outcome, error) {
	logger := r.logger.With("execution_id", executionID)

	state, err := r.engine.GetExecutionState(ctx, executionID)
	if err != nil {
		if ctx.Err() != nil {
			return model.Outcome{}, ctx.Err()
		}
		logger.Warn("status query failed, applying fallback", "error", err)
		return r.config.OnStatusError(executionID, err), nil
	}

	switch classify(state) {
	case classRunning:
		logger.Debug("execution in progress", "state", state)
		return model.Pending(), nil
	case classFailed:
		logger.Info("execution failed", "state", state)
		return model.Failed(), nil
	case classSuccess:
		return r.extract(ctx, logger, executionID)
	}

	if r.config.UnknownState == UnknownAsFailed {
		logger.Warn("unknown engine state, treating as failed", "state", state)
		return model.Failed(), nil
	}
	logger.Warn("unknown engine state, treating as running", "state", state)
	return model.Pending(), nil
}

func (r *Resolver) extract(ctx context.Context, logger *slog.Logger, executionID string) (model.Outcome, error) {
	logs, err := r.engine.GetExecutionLogs(ctx, executionID)
	if err != nil {
		logger.Error("log fetch failed after success", "error", err)
		return model.Outcome{}, &model.ExtractionFailedError{
			ExecutionID: executionID,
			Err:         fmt.Errorf("fetch logs: %w", err),
		}
	}

	res := r.config.Extractor.Extract(logs)
	if !res.Found {
		logger.Warn("answer marker not found", "task_id", r.config.Extractor.TaskID, "records", len(logs))
		return model.SucceededUnparsed(), nil
	}
	logger.Info("answer extracted", "chars", len(res.Text))
	return model.Succeeded(res.Text), nil
}

type stateClass int

const (
	classUnknown stateClass = iota
	classRunning
	classSuccess
	classFailed
)

func classify(s kestra.State) stateClass {
	switch s {
	case kestra.StateSuccess:
		return classSuccess
	case kestra.StateFailed, kestra.StateKilled, kestra.StateWarning, kestra.StateCancelled:
		return classFailed
	case kestra.StateCreated, kestra.StateQueued, kestra.StateRunning, kestra.StatePaused,
		kestra.StateRestarted, kestra.StateKilling, kestra.StateRetrying:
		return classRunning
	}
	return classUnknown
}
