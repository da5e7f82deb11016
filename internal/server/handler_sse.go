package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/me/nada/internal/poller"
	"github.com/me/nada/pkg/model"
)

// handleAsk runs a polling controller for the posted question and streams
// its events via Server-Sent Events. The stream ends with a "complete"
// event carrying the final snapshot.
// POST /api/v1/ask {question}
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req model.TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Invalid JSON: "+err.Error()))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Invalid request",
			model.FieldError{Field: "question", Message: "required"}))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError("SSE not supported"))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	events := make(chan poller.Event, 16)
	c := poller.New(s.launcher, s.resolver, s.config.Poller(), s.logger,
		poller.WithEventHandler(func(ev poller.Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}))
	defer func() {
		cancel()
		c.Stop()
	}()

	// Set headers for SSE.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	c.Submit(ctx, req.Question)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if err := sendSSEEvent(w, flusher, string(ev.Kind), ev); err != nil {
				s.logger.Debug("sse client disconnected", "session_id", ev.SessionID, "error", err)
				return
			}
			// The terminal progress line is the last event of a submission.
			if ev.Kind == poller.EventProgress && ev.State.IsTerminal() {
				sendSSEEvent(w, flusher, "complete", newCompletion(c.Snapshot()))
				return
			}
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

// completion is the payload of the final "complete" event.
type completion struct {
	poller.Snapshot
	ErrorCode model.ErrorCode `json:"error_code,omitempty"`
}

func newCompletion(snap poller.Snapshot) completion {
	c := completion{Snapshot: snap}
	if snap.Err != nil {
		c.ErrorCode = errorCode(snap.Err)
	}
	return c
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
	if err != nil {
		return err
	}

	flusher.Flush()
	return nil
}
