// Package answer recovers the final answer that the analysis task writes
// into its log output after a fixed marker line.
package answer

import (
	"strings"

	"github.com/me/nada/pkg/kestra"
)

// Defaults used by the question-answering flow.
const (
	DefaultTaskID = "final_gemini_analysis"
	DefaultMarker = "--- Gemini's Final Answer ---"
)

// Result is the outcome of an extraction. Text is meaningful only when Found.
type Result struct {
	Found bool
	Text  string
}

// Extract joins, in order, the messages of the records emitted by taskID and
// returns the trimmed text following the first occurrence of marker.
// Later occurrences of marker are part of the answer.
func Extract(logs []kestra.LogRecord, taskID, marker string) Result {
	var messages []string
	for _, rec := range logs {
		if rec.TaskID == taskID {
			messages = append(messages, rec.Message)
		}
	}

	_, after, found := strings.Cut(strings.Join(messages, "\n"), marker)
	if !found {
		return Result{}
	}
	return Result{Found: true, Text: strings.TrimSpace(after)}
}

// Extractor binds Extract to a task id and marker.
type Extractor struct {
	TaskID string
	Marker string
}

// Default returns an Extractor for the default task and marker.
func Default() Extractor {
	return Extractor{TaskID: DefaultTaskID, Marker: DefaultMarker}
}

// Extract runs Extract with the bound task id and marker.
func (e Extractor) Extract(logs []kestra.LogRecord) Result {
	return Extract(logs, e.TaskID, e.Marker)
}
