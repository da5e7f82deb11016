package kestra

import "time"

// Default flow coordinates of the question-answering pipeline.
const (
	DefaultNamespace = "hackathon.agent"
	DefaultFlowID    = "nada-agentic-pipeline"
	DefaultTimeout   = 30 * time.Second
)

// QuestionInput is the flow input that carries the user's question.
const QuestionInput = "user_question"

// Config holds configuration for the Kestra API client.
type Config struct {
	// BaseURL is the engine root, e.g. http://localhost:8080. Required.
	BaseURL string

	// Authorization is forwarded verbatim as the Authorization header.
	// Empty means requests are sent unauthenticated.
	Authorization string

	Namespace string
	FlowID    string

	// Timeout bounds each HTTP round trip.
	Timeout time.Duration
}

// DefaultConfig returns a Config targeting the default flow with no base URL.
func DefaultConfig() Config {
	return Config{
		Namespace: DefaultNamespace,
		FlowID:    DefaultFlowID,
		Timeout:   DefaultTimeout,
	}
}
