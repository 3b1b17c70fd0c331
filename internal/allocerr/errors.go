// Package allocerr provides the structured error type used across the
// allocation pipeline: one typed error struct, kind-specific factory
// functions, and an Unwrap chain, trimmed to what a batch solve
// actually needs — no HTTP status, no alerting hook, no metrics side
// effects. Those concerns live at the httpapi edge, not in the core.
package allocerr

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind categorizes an allocation error for callers that need to branch
// on it (HTTP status mapping, retry decisions, CLI exit codes).
type Kind string

const (
	// ConfigError covers missing columns, malformed round labels, and
	// non-numeric configuration overrides.
	ConfigError Kind = "CONFIG_ERROR"
	// ModelError covers inconsistent fixed cells and other structural
	// problems discovered while building the MILP.
	ModelError Kind = "MODEL_ERROR"
	// InfeasibleError is returned when the solver proves infeasibility.
	InfeasibleError Kind = "INFEASIBLE_ERROR"
	// SolverError covers solver-reported Error or Unbounded statuses.
	SolverError Kind = "SOLVER_ERROR"
)

// Error is the structured error type returned by every package in this
// module. It is never constructed directly; use the New* factories.
type Error struct {
	ID        string
	Kind      Kind
	Code      string
	Message   string
	Operation string
	Timestamp time.Time
	Cause     error
	Metadata  map[string]interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithMetadata attaches a key/value pair and returns the same error for
// chaining at the call site.
func (e *Error) WithMetadata(key string, value interface{}) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(kind Kind, code, operation, message string, cause error) *Error {
	return &Error{
		ID:        uuid.New().String(),
		Kind:      kind,
		Code:      code,
		Message:   message,
		Operation: operation,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// NewConfigError reports a missing or malformed input: a missing
// required column, an unrecognized round label, a non-numeric override.
func NewConfigError(operation, message string) *Error {
	return newError(ConfigError, "CONFIG_ERROR", operation, message, nil)
}

// NewModelError reports a structural inconsistency discovered while
// constructing decision variables, e.g. fixed cells that overshoot demand.
func NewModelError(operation, message string) *Error {
	return newError(ModelError, "MODEL_ERROR", operation, message, nil)
}

// NewInfeasibleError reports solver-proved infeasibility. enabledFamilies
// lists the constraint families that were active, so the caller knows
// what to relax.
func NewInfeasibleError(operation string, enabledFamilies []string) *Error {
	err := newError(InfeasibleError, "INFEASIBLE", operation, "solver proved the model infeasible", nil)
	return err.WithMetadata("enabled_families", enabledFamilies)
}

// NewSolverError wraps a solver-level failure (Error or Unbounded status).
func NewSolverError(operation, message string, cause error) *Error {
	err := newError(SolverError, "SOLVER_ERROR", operation, message, cause)
	err.Cause = cause
	return err
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	ae, ok := err.(*Error)
	return ok && ae.Kind == kind
}
