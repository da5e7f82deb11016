package model

import "time"

// Response is the standard envelope used by the /api/v1 endpoints.
type Response struct {
	Status    string    `json:"status"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Error     *APIError `json:"error"`
}

// Status values reported by GET /status.
const (
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// TriggerRequest is the body of POST /trigger.
type TriggerRequest struct {
	Question string `json:"question"`
}

// TriggerResponse is the reply of POST /trigger; exactly one field is set.
type TriggerResponse struct {
	ExecutionID string `json:"executionId,omitempty"`
	Error       string `json:"error,omitempty"`
}

// StatusResponse is the reply of GET /status.
type StatusResponse struct {
	Status string `json:"status,omitempty"`
	Answer string `json:"answer,omitempty"`
	Parsed *bool  `json:"parsed,omitempty"` // false when Answer is UnparsedAnswer
	Error  string `json:"error,omitempty"`
}

// NewStatusResponse converts a poll outcome to its wire form.
func NewStatusResponse(o Outcome) StatusResponse {
	switch o.Kind {
	case OutcomeSucceeded:
		return StatusResponse{Status: StatusSuccess, Answer: o.Answer}
	case OutcomeSucceededUnparsed:
		parsed := false
		return StatusResponse{Status: StatusSuccess, Answer: UnparsedAnswer, Parsed: &parsed}
	case OutcomeFailed:
		return StatusResponse{Status: StatusFailed}
	default:
		return StatusResponse{Status: StatusRunning}
	}
}

// Outcome converts a wire status back to a poll outcome. Unknown status
// values are treated as running.
func (r StatusResponse) Outcome() Outcome {
	switch r.Status {
	case StatusSuccess:
		if r.Parsed != nil && !*r.Parsed {
			return SucceededUnparsed()
		}
		return Succeeded(r.Answer)
	case StatusFailed:
		return Failed()
	default:
		return Pending()
	}
}
