package entity

import (
	"time"
)

// StepFailure records a pipeline step that degraded to an empty result
type StepFailure struct {
	Step  string `json:"step"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// PipelineRun is the outcome of one end-to-end run
type PipelineRun struct {
	ID         string         `json:"id"`
	StartDate  time.Time      `json:"start_date"`
	EndDate    time.Time      `json:"end_date"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Rates      []RateRecord   `json:"rates"`
	Items      []CatalogItem  `json:"items"`
	Merged     []MergedRecord `json:"merged"`
	Failures   []StepFailure  `json:"failures,omitempty"`
}

// Succeeded reports whether every step completed without degrading
func (r *PipelineRun) Succeeded() bool {
	return len(r.Failures) == 0
}

// Failed returns the failure recorded for a step, if any
func (r *PipelineRun) Failed(step string) (StepFailure, bool) {
	for _, f := range r.Failures {
		if f.Step == step {
			return f, true
		}
	}
	return StepFailure{}, false
}
