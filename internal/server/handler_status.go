package server

import (
	"net/http"

	"github.com/me/nada/pkg/model"
)

// handleStatus resolves one execution and reports it to the shell.
// GET /status?id=<id> -> {status, answer?} | {error}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, model.StatusResponse{Error: "No ID provided"})
		return
	}

	outcome, err := s.resolver.Resolve(r.Context(), id)
	if err != nil {
		s.logger.Error("status check failed", "execution_id", id, "code", errorCode(err), "error", err)
		writeJSON(w, http.StatusInternalServerError, model.StatusResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, model.NewStatusResponse(outcome))
}
