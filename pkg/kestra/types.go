package kestra

// State is the engine-reported state of an execution. The vocabulary is
// owned by Kestra; values not listed here may appear.
type State string

const (
	StateCreated   State = "CREATED"
	StateQueued    State = "QUEUED"
	StateRunning   State = "RUNNING"
	StatePaused    State = "PAUSED"
	StateRestarted State = "RESTARTED"
	StateKilling   State = "KILLING"
	StateRetrying  State = "RETRYING"
	StateSuccess   State = "SUCCESS"
	StateWarning   State = "WARNING"
	StateFailed    State = "FAILED"
	StateKilled    State = "KILLED"
	StateCancelled State = "CANCELLED"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsKnown reports whether s is part of the vocabulary above.
func (s State) IsKnown() bool {
	switch s {
	case StateCreated, StateQueued, StateRunning, StatePaused, StateRestarted,
		StateKilling, StateRetrying, StateSuccess, StateWarning, StateFailed,
		StateKilled, StateCancelled:
		return true
	}
	return false
}

// LogRecord is a single log line emitted by a task of an execution.
type LogRecord struct {
	TaskID  string `json:"taskId"`
	Message string `json:"message"`
	Level   string `json:"level,omitempty"`
}

// execution is the subset of the execution resource the client reads.
type execution struct {
	ID    string `json:"id"`
	State struct {
		Current State `json:"current"`
	} `json:"state"`
}
