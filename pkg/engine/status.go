package engine

import (
	"encoding/json"
	"fmt"
	"sort"
)

// RunStatus represents the overall status of a run.
type RunStatus string

const (
	// RunStatusRunning indicates the run is currently executing.
	RunStatusRunning RunStatus = "running"

	// RunStatusSucceeded indicates the run completed successfully.
	RunStatusSucceeded RunStatus = "succeeded"

	// RunStatusFailed indicates the run failed with errors.
	RunStatusFailed RunStatus = "failed"

	// RunStatusCancelled indicates the run was cancelled by the user.
	RunStatusCancelled RunStatus = "cancelled"

	// RunStatusPartial indicates some resources failed.
	RunStatusPartial RunStatus = "partial"
)

// IsTerminal returns true if the run status represents a final state.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed ||
		s == RunStatusCancelled || s == RunStatusPartial
}

// Validate checks if the run status is valid.
func (s RunStatus) Validate() error {
	switch s {
	case RunStatusRunning, RunStatusSucceeded, RunStatusFailed,
		RunStatusCancelled, RunStatusPartial:
		return nil
	default:
		return fmt.Errorf("invalid run status: %s", s)
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (s RunStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (s *RunStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = RunStatus(str)
	return s.Validate()
}

// StatusFor derives the final status of a run from its outcome.
func StatusFor(err error, summary RunSummary) RunStatus {
	switch {
	case err == nil:
		return RunStatusSucceeded
	case IsCancelled(err):
		return RunStatusCancelled
	case summary.Objects > 0:
		return RunStatusPartial
	default:
		return RunStatusFailed
	}
}

// OperationType is a command a resource can execute.
type OperationType string

const (
	// OperationCreate stores a new object, failing if it exists.
	OperationCreate OperationType = "create"

	// OperationUpdate merges arguments into a stored object.
	OperationUpdate OperationType = "update"

	// OperationSync reconciles remote objects into storage.
	OperationSync OperationType = "sync"

	// OperationImport imports an object into the external tool state.
	OperationImport OperationType = "import"

	// OperationInit initializes the external tool state.
	OperationInit OperationType = "init"

	// OperationShow reads the addresses tracked in the external tool state.
	OperationShow OperationType = "show"
)

var operations = map[string]OperationType{
	string(OperationCreate): OperationCreate,
	string(OperationUpdate): OperationUpdate,
	string(OperationSync):   OperationSync,
	string(OperationImport): OperationImport,
	string(OperationInit):   OperationInit,
	string(OperationShow):   OperationShow,
}

// ParseOperation returns the operation named name. Unknown names are
// configuration errors.
func ParseOperation(name string) (OperationType, error) {
	op, ok := operations[name]
	if !ok {
		return "", NewConfigurationError("", fmt.Sprintf("no command named %q", name)).
			WithDetail("known", Operations())
	}
	return op, nil
}

// Operations lists the operation names.
func Operations() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsMutating returns true if the operation writes storage documents.
func (o OperationType) IsMutating() bool {
	return o == OperationCreate || o == OperationUpdate || o == OperationSync
}

// Validate checks if the operation type is valid.
func (o OperationType) Validate() error {
	if _, ok := operations[string(o)]; !ok {
		return fmt.Errorf("invalid operation type: %s", o)
	}
	return nil
}

// Action is what reconciliation did to one stored object.
type Action string

const (
	// ActionCreated indicates a new object was stored.
	ActionCreated Action = "created"

	// ActionUpdated indicates an existing object was merged.
	ActionUpdated Action = "updated"

	// ActionOverwritten indicates an existing object was replaced.
	ActionOverwritten Action = "overwritten"

	// ActionImported indicates the object was imported into the external state.
	ActionImported Action = "imported"
)

// Validate checks if the action is valid.
func (a Action) Validate() error {
	switch a {
	case ActionCreated, ActionUpdated, ActionOverwritten, ActionImported:
		return nil
	default:
		return fmt.Errorf("invalid action: %s", a)
	}
}

// Event names a resource lifecycle event handlers can subscribe to.
type Event string

const (
	EventInit   Event = "init"
	EventChange Event = "change"
	EventCreate Event = "create"
	EventUpdate Event = "update"
	EventImport Event = "import"
)

// Key returns the resource document key holding the handlers of e.
func (e Event) Key() string {
	return "on" + string(e)
}
