// Package submission defines the data that flows through the execution
// pipeline: the inbound code submission, the outbound result, and the
// closed error taxonomy that bridges the two.
package submission

import (
	"encoding/json"
	"fmt"
)

// Submission is a single code-execution request. It is created once by the
// HTTP layer, consumed exactly once by the pipeline, and never mutated.
type Submission struct {
	Code string `json:"code"`
	Lang string `json:"lang"`
}

// Output is the terminal result of a pipeline run: either captured stdout
// and stderr, or a compile error. Exactly one of the two is populated;
// MarshalJSON writes only that branch on the wire.
type Output struct {
	Stdout       string `json:"-"`
	Stderr       string `json:"-"`
	CompileError string `json:"-"`
	isCompileErr bool
}

// NewExecutionOutput builds a successful run result.
func NewExecutionOutput(stdout, stderr string) Output {
	return Output{Stdout: stdout, Stderr: stderr}
}

// NewCompileErrorOutput builds a compile-error result.
func NewCompileErrorOutput(text string) Output {
	return Output{CompileError: text, isCompileErr: true}
}

// IsCompileError reports whether this Output carries a compile error rather
// than captured process output.
func (o Output) IsCompileError() bool {
	return o.isCompileErr
}

// MarshalJSON renders the tagged union shape on the wire:
// {"output": {...}} or {"compile_error": {...}}.
func (o Output) MarshalJSON() ([]byte, error) {
	if o.isCompileErr {
		return json.Marshal(struct {
			CompileError struct {
				Error string `json:"error"`
			} `json:"compile_error"`
		}{CompileError: struct {
			Error string `json:"error"`
		}{Error: o.CompileError}})
	}
	return json.Marshal(struct {
		Output struct {
			Stdout string `json:"stdout"`
			Stderr string `json:"stderr"`
		} `json:"output"`
	}{Output: struct {
		Stdout string `json:"stdout"`
		Stderr string `json:"stderr"`
	}{Stdout: o.Stdout, Stderr: o.Stderr}})
}

// ErrorKind is the closed set of pipeline-level failures. CompileError never
// reaches this type — it short-circuits into a successful Output before the
// pipeline returns.
type ErrorKind int

const (
	// ErrBadRequest means the inbound JSON did not decode into a Submission.
	ErrBadRequest ErrorKind = iota
	// ErrBadConfig means the build-context packer failed (missing recipe,
	// tar-writing error).
	ErrBadConfig
	// ErrEngine means the container engine transport or the engine itself
	// failed.
	ErrEngine
	// ErrUnknown is the catch-all for unreachable branches and malformed
	// engine responses.
	ErrUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case ErrBadRequest:
		return "bad_request"
	case ErrBadConfig:
		return "bad_config"
	case ErrEngine:
		return "engine_error"
	default:
		return "unknown"
	}
}

// Error wraps an ErrorKind with the stage-specific cause.
type Error struct {
	Kind  ErrorKind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Wrap builds an *Error of the given kind, preserving cause for %w chains.
func Wrap(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}
