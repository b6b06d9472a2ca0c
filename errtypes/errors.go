// Package errtypes defines the error taxonomy shared by the compile and deploy pipelines. Every error returned across
// a pipeline boundary carries a Kind, so the command layer can decide on exit codes and tests can assert on the
// category of a failure without matching message text.
package errtypes

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// stackTracer is implemented by errors created or wrapped through github.com/pkg/errors.
type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// Kind identifies the category of a pipeline error.
type Kind string

const (
	// UsageError indicates bad or missing command-line arguments.
	UsageError Kind = "UsageError"
	// ConfigError indicates required configuration values are missing or invalid.
	ConfigError Kind = "ConfigError"
	// ReadError indicates a source file could not be read from disk.
	ReadError Kind = "ReadError"
	// ArtifactError indicates a compiled artifact could not be read, parsed, or validated.
	ArtifactError Kind = "ArtifactError"
	// CompilationError indicates the external compiler failed or reported a fatal diagnostic.
	CompilationError Kind = "CompilationError"
	// DeploymentFailed indicates the contract creation did not reach a confirmed state.
	DeploymentFailed Kind = "DeploymentFailed"
	// VerificationError indicates the explorer verification request could not be completed.
	VerificationError Kind = "VerificationError"
)

// Error is a categorized error with a contextual message and an optional underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind which wraps err with a formatted contextual message. A cause which does not
// carry a stack trace yet is annotated with one at the point of wrapping.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	if _, ok := err.(stackTracer); err != nil && !ok {
		err = pkgerrors.WithStack(err)
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Error returns the error message string, implementing the `error` interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// StackTrace returns the stack trace of the first cause in the chain which carries one, so structured logs can report
// where a categorized error originated. It returns nil when no cause has a stack trace.
func (e *Error) StackTrace() pkgerrors.StackTrace {
	var tracer stackTracer
	if errors.As(e.Err, &tracer) {
		return tracer.StackTrace()
	}
	return nil
}

// KindOf returns the kind of the first Error found in err's chain, or the empty Kind if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
