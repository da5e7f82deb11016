package model

// JobState is the client-visible state of a question submission.
type JobState string

const (
	JobStateIdle      JobState = "IDLE"
	JobStateLaunching JobState = "LAUNCHING"
	JobStatePolling   JobState = "POLLING"
	JobStateSucceeded JobState = "SUCCEEDED"
	JobStateFailed    JobState = "FAILED"
	JobStateError     JobState = "ERROR"
	JobStateTimedOut  JobState = "TIMED_OUT"
)

// String returns the string representation of the job state.
func (s JobState) String() string {
	return string(s)
}

// IsTerminal returns true if no further polling happens in this state.
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateSucceeded, JobStateFailed, JobStateError, JobStateTimedOut:
		return true
	}
	return false
}

// ValidJobTransitions defines the allowed state transitions for a submission.
// Re-entering LAUNCHING from POLLING or a terminal state starts a new
// submission; the previous execution is abandoned.
var ValidJobTransitions = map[JobState][]JobState{
	JobStateIdle:      {JobStateLaunching},
	JobStateLaunching: {JobStatePolling, JobStateError},
	JobStatePolling:   {JobStateSucceeded, JobStateFailed, JobStateError, JobStateTimedOut, JobStateLaunching},
	JobStateSucceeded: {JobStateLaunching},
	JobStateFailed:    {JobStateLaunching},
	JobStateError:     {JobStateLaunching},
	JobStateTimedOut:  {JobStateLaunching},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s JobState) CanTransitionTo(next JobState) bool {
	for _, allowed := range ValidJobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
