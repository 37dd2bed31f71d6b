package engine

import (
	"context"
)

// Journal persists the history of runs and the changes they made.
type Journal interface {
	// SaveRun creates or updates a run.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// ListRuns lists the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// RecordChange appends a change to its run.
	RecordChange(ctx context.Context, change *Change) error

	// ListChanges retrieves the changes of a run in recording order.
	ListChanges(ctx context.Context, runID string) ([]*Change, error)

	// Close releases the journal.
	Close() error
}

// Recorder receives the actions taken on stored objects.
type Recorder interface {
	Record(ctx context.Context, resource, source, address string, action Action) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, resource, source, address string, action Action) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, resource, source, address string, action Action) error {
	return f(ctx, resource, source, address, action)
}
