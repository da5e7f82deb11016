// Package launcher starts a flow execution for a user question.
package launcher

import (
	"context"
	"log/slog"
	"strings"

	"github.com/me/nada/internal/logging"
	"github.com/me/nada/pkg/model"
)

// Starter starts an execution and returns its id.
type Starter interface {
	StartExecution(ctx context.Context, question string) (string, error)
}

// Launcher validates questions and hands them to the engine.
type Launcher struct {
	starter Starter
	logger  *slog.Logger
}

// New creates a Launcher.
func New(starter Starter, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Launcher{starter: starter, logger: logger.With("component", "launcher")}
}

// Launch starts an execution for question and returns its id. A blank
// question fails with model.ErrInvalidInput before any engine call;
// engine errors are returned unchanged.
func (l *Launcher) Launch(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", model.ErrInvalidInput
	}

	id, err := l.starter.StartExecution(ctx, question)
	if err != nil {
		l.logger.Error("launch failed", "error", err)
		return "", err
	}
	l.logger.Info("launched", "execution_id", id, "question_chars", len(question))
	return id, nil
}
