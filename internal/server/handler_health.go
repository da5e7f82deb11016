package server

import (
	"net/http"
	"runtime"
	"time"
)

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Namespace string `json:"namespace"`
	FlowID    string `json:"flow_id"`
	Engine    string `json:"engine"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	engine := "configured"
	if s.config.Engine.BaseURL == "" {
		engine = "unconfigured"
	}
	respondOK(w, reqID, healthResponse{
		Status:    "healthy",
		Version:   "0.1.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Namespace: s.config.Engine.Namespace,
		FlowID:    s.config.Engine.FlowID,
		Engine:    engine,
	})
}
