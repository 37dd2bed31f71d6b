package engine

import (
	"time"
)

// Run represents one invocation of a mutating command.
type Run struct {
	// ID is the unique identifier for this run.
	ID string `json:"id"`

	// Command is the operation that started the run.
	Command OperationType `json:"command"`

	// Resource is the resource the command targeted, if any.
	Resource string `json:"resource,omitempty"`

	// Status is the current status of the run.
	Status RunStatus `json:"status"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the run completed.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Duration is the total run duration.
	Duration time.Duration `json:"duration"`

	// Error is the message of the error that ended the run.
	Error string `json:"error,omitempty"`

	// Summary provides statistics about the run.
	Summary RunSummary `json:"summary"`
}

// Complete records the outcome of the run.
func (r *Run) Complete(err error) {
	now := time.Now()
	r.CompletedAt = &now
	r.Duration = now.Sub(r.StartedAt)
	r.Status = StatusFor(err, r.Summary)
	if err != nil {
		r.Error = err.Error()
	}
}

// RunSummary provides statistics about a run.
type RunSummary struct {
	// Resources is the number of resources executed.
	Resources int `json:"resources"`

	// Objects is the number of objects reconciled.
	Objects int `json:"objects"`

	// Created is the number of objects stored for the first time.
	Created int `json:"created"`

	// Updated is the number of objects merged into.
	Updated int `json:"updated"`

	// Overwritten is the number of objects replaced.
	Overwritten int `json:"overwritten"`

	// Imported is the number of objects imported into the external state.
	Imported int `json:"imported"`
}

// Record counts action in the summary.
func (s *RunSummary) Record(action Action) {
	switch action {
	case ActionCreated:
		s.Created++
	case ActionUpdated:
		s.Updated++
	case ActionOverwritten:
		s.Overwritten++
	case ActionImported:
		s.Imported++
		return
	}
	s.Objects++
}

// Change records what happened to one stored object during a run.
type Change struct {
	// ID is the unique identifier for this change.
	ID string `json:"id"`

	// RunID is the run the change belongs to.
	RunID string `json:"run_id"`

	// Resource is the resource name.
	Resource string `json:"resource"`

	// Source is the storage document the object lives in.
	Source string `json:"source"`

	// Address is the location of the object within Source.
	Address string `json:"address"`

	// Action is what was done to the object.
	Action Action `json:"action"`

	// Timestamp is when the change was recorded.
	Timestamp time.Time `json:"timestamp"`
}
