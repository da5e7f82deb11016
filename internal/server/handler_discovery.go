package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "nada API",
		Version:     "v1",
		Description: "Ask questions answered by a Kestra flow and poll for the result",
		Endpoints: []endpointInfo{
			{"/trigger", []string{"POST"}, "Start an execution for {question}; returns {executionId}"},
			{"/status", []string{"GET"}, "Poll ?id=<executionId>; returns {status, answer}"},
			{"/api/v1/ask", []string{"POST"}, "Start and follow a question as Server-Sent Events"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
		},
	})
}
