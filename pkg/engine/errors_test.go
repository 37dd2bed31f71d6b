package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestEngineErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			"missing property",
			NewMissingPropertyError("properties/name/{zone}", errors.New("missing key zone")).WithResource("vm"),
			"[missing_property] properties/name/{zone}: missing configuration property (resource=vm): missing key zone",
		},
		{
			"configuration with operation",
			NewConfigurationError("", "no command named \"x\"").WithResource("vm").WithOperation("sync"),
			"[configuration] no command named \"x\" (resource=vm, operation=sync)",
		},
		{
			"already exists",
			NewAlreadyExistsError("vms/web"),
			"[already_exists] object already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEngineErrorPredicates(t *testing.T) {
	wrapped := fmt.Errorf("sync failed: %w", NewRequiredArgumentError([]string{"project"}))

	if !IsRequiredArgument(wrapped) {
		t.Error("Expected wrapped error to be a required argument error")
	}
	if IsNotFound(wrapped) {
		t.Error("Expected wrapped error not to be a not found error")
	}
	if !errors.Is(wrapped, &EngineError{Kind: KindRequiredArgument}) {
		t.Error("Expected errors.Is to match on kind")
	}
	if kind, ok := KindOf(wrapped); !ok || kind != KindRequiredArgument {
		t.Errorf("Expected required_argument kind, got %s", kind)
	}

	if !IsCancelled(fmt.Errorf("run: %w", context.Canceled)) {
		t.Error("Expected context cancellation to count as cancelled")
	}
	if !IsFatal(errors.Join(errors.New("x"), NewConfigurationError("a/depends_on", "cycle"))) {
		t.Error("Expected joined configuration error to be fatal")
	}
	if IsFatal(NewExternalProcessError("terraform show", errors.New("exit status 1"))) {
		t.Error("Expected external process errors not to be fatal")
	}
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation("sync")
	if err != nil || op != OperationSync {
		t.Errorf("Expected sync, got %s, %v", op, err)
	}

	_, err = ParseOperation("destroy")
	if !IsConfiguration(err) {
		t.Fatalf("Expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "destroy") {
		t.Errorf("Expected error to name the command, got %v", err)
	}
}

func TestRunSummary(t *testing.T) {
	run := &Run{ID: "r1", Command: OperationSync}
	for _, action := range []Action{ActionCreated, ActionUpdated, ActionImported} {
		run.Summary.Record(action)
	}
	run.Complete(errors.New("later failure"))

	if run.Summary.Objects != 2 || run.Summary.Imported != 1 {
		t.Errorf("Unexpected summary %+v", run.Summary)
	}
	if run.Status != RunStatusPartial {
		t.Errorf("Expected partial status, got %s", run.Status)
	}
	if run.CompletedAt == nil {
		t.Error("Expected completion time")
	}
}
