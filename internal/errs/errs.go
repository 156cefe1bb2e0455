// Package errs provides structured error types shared across the repricing
// pipeline.
package errs

import (
	"sort"
	"strconv"
	"strings"
)

// Code categorizes a failure so the orchestrator can map it to an outcome
// (ok/skip/retry) without inspecting error strings.
type Code string

const (
	// CodeNotFound indicates a missing listing, strategy, or key.
	CodeNotFound Code = "not_found"
	// CodeInvalid indicates malformed input that cannot be salvaged.
	CodeInvalid Code = "invalid"
	// CodeTransient indicates a connection, timeout, or other retryable
	// infrastructure failure.
	CodeTransient Code = "transient"
	// CodeConflict indicates a concurrent mutation conflict in the store.
	CodeConflict Code = "conflict"
	// CodeUnavailable indicates the store is unreachable (circuit open).
	CodeUnavailable Code = "unavailable"
	// CodeUnexpected indicates a programmer error surfaced as an error
	// value instead of a panic.
	CodeUnexpected Code = "unexpected"
)

// E is the structured error envelope produced across the repricing stack.
type E struct {
	Component string
	Code      Code
	Message   string
	Fields    map[string]string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the given component and code.
func New(component string, code Code, opts ...Option) *E {
	e := &E{
		Component: strings.TrimSpace(component),
		Code:      code,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) { e.Message = trimmed }
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) { e.cause = err }
}

// WithField attaches a single diagnostic key/value pair.
func WithField(key, value string) Option {
	return func(e *E) {
		key = strings.TrimSpace(key)
		if key == "" {
			return
		}
		if e.Fields == nil {
			e.Fields = make(map[string]string, 1)
		}
		e.Fields[key] = value
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	component := strings.TrimSpace(e.Component)
	if component == "" {
		component = "unknown"
	}
	parts = append(parts, "component="+component)
	parts = append(parts, "code="+string(e.Code))

	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+strconv.Quote(e.Fields[k]))
		}
		parts = append(parts, "fields="+strings.Join(pairs, ","))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// CodeOf extracts the Code from err, defaulting to CodeUnexpected for
// errors that did not originate from this package.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if e, ok := err.(*E); ok {
		return e.Code
	}
	return CodeUnexpected
}

// IsRetryable reports whether the error's code should translate to a
// orchestrator retry outcome rather than a skip.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeTransient, CodeUnavailable, CodeConflict:
		return true
	default:
		return false
	}
}
