package engine

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies an error for reporting and exit-code selection.
type ErrorKind string

const (
	// KindMissingProperty indicates a property needed for formatting or
	// materialization had no value.
	KindMissingProperty ErrorKind = "missing_property"

	// KindRequiredArgument indicates primary-key components that could not be
	// resolved, even through the parent resource.
	KindRequiredArgument ErrorKind = "required_argument"

	// KindConfiguration indicates an invalid resource definition: dependency
	// cycles, unknown commands, missing parents or event targets.
	KindConfiguration ErrorKind = "configuration"

	// KindNotFound indicates a missing resource definition or project.
	KindNotFound ErrorKind = "not_found"

	// KindExternalProcess indicates a failed or unparsable external command.
	KindExternalProcess ErrorKind = "external_process"

	// KindValidation indicates a required property absent at serialization.
	KindValidation ErrorKind = "validation"

	// KindAlreadyExists indicates a create over an existing object.
	KindAlreadyExists ErrorKind = "already_exists"

	// KindCancelled indicates the run was interrupted.
	KindCancelled ErrorKind = "cancelled"
)

// EngineError represents a classified error with context.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Resource is the resource name that caused the error, if applicable.
	Resource string `json:"resource,omitempty"`

	// Operation is the operation being performed when the error occurred.
	Operation string `json:"operation,omitempty"`

	// Path locates the failure inside the resource definition, e.g.
	// "properties/network/cidr/{zone}".
	Path string `json:"path,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}

	switch {
	case e.Resource != "" && e.Operation != "":
		msg = fmt.Sprintf("%s (resource=%s, operation=%s)", msg, e.Resource, e.Operation)
	case e.Resource != "":
		msg = fmt.Sprintf("%s (resource=%s)", msg, e.Resource)
	}

	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, msg, e.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind ErrorKind, message string, err error) *EngineError {
	return &EngineError{Kind: kind, Message: message, Err: err}
}

// NewMissingPropertyError creates an error for an unresolved property. path
// is the location of the property within the resource definition.
func NewMissingPropertyError(path string, err error) *EngineError {
	e := newError(KindMissingProperty, "missing configuration property", err)
	e.Path = path
	return e
}

// NewRequiredArgumentError creates an error naming the unresolved keys.
func NewRequiredArgumentError(keys []string) *EngineError {
	return newError(KindRequiredArgument, fmt.Sprintf("missing required arguments %v", keys), nil).
		WithDetail("keys", keys)
}

// NewConfigurationError creates an error for an invalid resource definition.
func NewConfigurationError(path, message string) *EngineError {
	e := newError(KindConfiguration, message, nil)
	e.Path = path
	return e
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string, err error) *EngineError {
	return newError(KindNotFound, message, err)
}

// NewExternalProcessError creates an error for a failed external command.
func NewExternalProcessError(command string, err error) *EngineError {
	return newError(KindExternalProcess, "command failed", err).WithDetail("command", command)
}

// NewValidationError creates a validation error.
func NewValidationError(message string, err error) *EngineError {
	return newError(KindValidation, message, err)
}

// NewAlreadyExistsError creates an error for an object stored at address.
func NewAlreadyExistsError(address string) *EngineError {
	return newError(KindAlreadyExists, "object already exists", nil).WithDetail("address", address)
}

// NewCancelledError creates a cancellation error.
func NewCancelledError(err error) *EngineError {
	return newError(KindCancelled, "operation cancelled", err)
}

// WithResource adds resource context to an error.
func (e *EngineError) WithResource(resource string) *EngineError {
	e.Resource = resource
	return e
}

// WithOperation adds operation context to an error.
func (e *EngineError) WithOperation(operation string) *EngineError {
	e.Operation = operation
	return e
}

// WithDetail adds a detail field to the error context.
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// KindOf returns the kind of the first EngineError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func isKind(err error, kind ErrorKind) bool {
	return errors.Is(err, &EngineError{Kind: kind})
}

// IsMissingProperty returns true if the error is a missing property error.
func IsMissingProperty(err error) bool {
	return isKind(err, KindMissingProperty)
}

// IsRequiredArgument returns true if the error is a required argument error.
func IsRequiredArgument(err error) bool {
	return isKind(err, KindRequiredArgument)
}

// IsConfiguration returns true if the error is a configuration error.
func IsConfiguration(err error) bool {
	return isKind(err, KindConfiguration)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return isKind(err, KindNotFound)
}

// IsExternalProcess returns true if the error is an external process error.
func IsExternalProcess(err error) bool {
	return isKind(err, KindExternalProcess)
}

// IsValidation returns true if the error is a validation error.
func IsValidation(err error) bool {
	return isKind(err, KindValidation)
}

// IsAlreadyExists returns true if the error is an already exists error.
func IsAlreadyExists(err error) bool {
	return isKind(err, KindAlreadyExists)
}

// IsCancelled returns true if the error is a cancellation, including a
// cancelled context.
func IsCancelled(err error) bool {
	return isKind(err, KindCancelled) || errors.Is(err, context.Canceled)
}

// IsFatal returns true for errors that abort a whole run instead of a
// single resource.
func IsFatal(err error) bool {
	return IsConfiguration(err) || IsCancelled(err)
}
