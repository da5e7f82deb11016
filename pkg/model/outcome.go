package model

// UnparsedAnswer is shown in place of an answer when the execution
// succeeded but no answer marker was found in its logs.
const UnparsedAnswer = "Job finished, but couldn't find the answer in the logs. Check Kestra UI."

// OutcomeKind classifies the result of a single status poll.
type OutcomeKind string

const (
	OutcomePending           OutcomeKind = "PENDING"
	OutcomeSucceeded         OutcomeKind = "SUCCEEDED"
	OutcomeSucceededUnparsed OutcomeKind = "SUCCEEDED_UNPARSED"
	OutcomeFailed            OutcomeKind = "FAILED"
)

// Outcome is the normalized result of resolving an execution's status.
// Answer is set only for OutcomeSucceeded.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Answer string      `json:"answer,omitempty"`
}

// Pending returns an outcome for an execution that is still in progress.
func Pending() Outcome { return Outcome{Kind: OutcomePending} }

// Succeeded returns an outcome carrying the extracted answer.
func Succeeded(answer string) Outcome { return Outcome{Kind: OutcomeSucceeded, Answer: answer} }

// SucceededUnparsed returns an outcome for a success without a parseable answer.
func SucceededUnparsed() Outcome { return Outcome{Kind: OutcomeSucceededUnparsed} }

// Failed returns an outcome for an execution the engine reports as failed.
func Failed() Outcome { return Outcome{Kind: OutcomeFailed} }

// IsTerminal returns true for every outcome except Pending.
func (o Outcome) IsTerminal() bool {
	return o.Kind != OutcomePending
}

// DisplayAnswer returns the text to show the user for a successful outcome.
func (o Outcome) DisplayAnswer() string {
	switch o.Kind {
	case OutcomeSucceeded:
		return o.Answer
	case OutcomeSucceededUnparsed:
		return UnparsedAnswer
	}
	return ""
}
