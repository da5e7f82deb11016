package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/me/nada/pkg/model"
)

// launchFailedMessage is returned to the shell for any engine-side failure;
// the cause is logged.
const launchFailedMessage = "Failed to start AI Agent"

// handleTrigger starts an execution for the posted question.
// POST /trigger {question} -> {executionId} | {error}
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req model.TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.TriggerResponse{Error: "Invalid JSON body"})
		return
	}

	id, err := s.launcher.Launch(r.Context(), req.Question)
	if errors.Is(err, model.ErrInvalidInput) {
		writeJSON(w, http.StatusBadRequest, model.TriggerResponse{Error: "Question is required"})
		return
	}
	if err != nil {
		s.logger.Error("trigger failed", "code", errorCode(err), "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeJSON(w, http.StatusInternalServerError, model.TriggerResponse{Error: launchFailedMessage})
		return
	}

	writeJSON(w, http.StatusOK, model.TriggerResponse{ExecutionID: id})
}
