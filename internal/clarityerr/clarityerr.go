// Package clarityerr defines the flat error taxonomy used across every
// layer of the CLARITY pipeline. There is no recovery or retry inside
// the core; every layer fails upward with a typed error carrying the
// offending path, axis, value, or cell coordinates as appropriate. The
// HTTP mapping described in spec §7 happens only at the transport
// boundary, which is out of this module's scope.
package clarityerr

import "fmt"

// Code identifies the kind of failure, not a specific error type. It
// mirrors the taxonomy in spec §7.
type Code string

const (
	// CodeInvalidInput covers malformed JSON, missing required fields,
	// and values out of domain (e.g. grid_size < 1).
	CodeInvalidInput Code = "invalid_input"
	// CodeNonFinite covers NaN or infinity where a finite value is
	// required.
	CodeNonFinite Code = "non_finite"
	// CodeArtifactAbsent covers an expected file from a lower layer
	// that is missing.
	CodeArtifactAbsent Code = "artifact_absent"
	// CodeRunnerFailure covers nonzero exit, missing artifact after
	// exit 0, or an OS spawn error.
	CodeRunnerFailure Code = "runner_failure"
	// CodeRunnerTimeout covers the runner's wall-clock budget being
	// exceeded.
	CodeRunnerTimeout Code = "runner_timeout"
	// CodeCacheBusy covers a cache key whose lock another process
	// holds past the configured timeout.
	CodeCacheBusy Code = "cache_busy"
	// CodeOutputCollision covers a sweep or per-run output directory
	// that already exists.
	CodeOutputCollision Code = "output_collision"
)

// Cell identifies the sweep cell — one (axis_values, seed) combination
// — an error occurred on, per spec §4.5/§9's "Cell" glossary entry.
type Cell struct {
	AxisValues map[string]any
	Seed       int
}

// Error is the single error type used throughout the core. Fields are
// populated as available; zero values are omitted by Error().
type Error struct {
	Code      Code
	Message   string
	Path      string
	Axis      string
	Value     string
	Cell      *Cell
	Cause     error
	Retryable bool
}

func (e *Error) Error() string {
	s := fmt.Sprintf("clarity: %s: %s", e.Code, e.Message)
	if e.Path != "" {
		s += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Axis != "" {
		s += fmt.Sprintf(" (axis=%s)", e.Axis)
	}
	if e.Value != "" {
		s += fmt.Sprintf(" (value=%s)", e.Value)
	}
	if e.Cell != nil {
		s += fmt.Sprintf(" (axis_values=%v, seed=%d)", e.Cell.AxisValues, e.Cell.Seed)
	}
	if e.Retryable {
		s += " (retryable)"
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error with no extra context.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error carrying cause as its underlying error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithPath returns a copy of e with Path set.
func (e *Error) WithPath(path string) *Error {
	c := *e
	c.Path = path
	return &c
}

// WithAxis returns a copy of e with Axis set.
func (e *Error) WithAxis(axis string) *Error {
	c := *e
	c.Axis = axis
	return &c
}

// WithValue returns a copy of e with Value set.
func (e *Error) WithValue(value string) *Error {
	c := *e
	c.Value = value
	return &c
}

// WithCell returns a copy of e with Cell set to the given axis values
// and seed, so a failed sweep cell can be recovered from the error
// alone per spec §4.5.
func (e *Error) WithCell(axisValues map[string]any, seed int) *Error {
	c := *e
	c.Cell = &Cell{AxisValues: axisValues, Seed: seed}
	return &c
}

// WithRetryable returns a copy of e with Retryable set.
func (e *Error) WithRetryable(retryable bool) *Error {
	c := *e
	c.Retryable = retryable
	return &c
}

// Is reports whether err carries the given code, for use with
// errors.Is-style comparisons against a sentinel code.
func Is(err error, code Code) bool {
	var e *Error
	for err != nil {
		if ce, ok := err.(*Error); ok {
			e = ce
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return e != nil && e.Code == code
}
