// Package forecasterr gives the error taxonomy of the forecasting
// pipeline concrete Go types, so callers can branch with errors.As
// instead of matching on strings.
package forecasterr

import "fmt"

// ReferenceError means the EventReference could not be parsed.
type ReferenceError struct {
	Input string
	Cause error
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("reference unparseable %q: %v", e.Input, e.Cause)
}

func (e *ReferenceError) Unwrap() error { return e.Cause }

// ResolutionError means every MarketSource variant failed.
type ResolutionError struct {
	Reference string
	Attempts  []string // source names tried, in order
	Cause     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("market resolution failed for %q after sources %v: %v", e.Reference, e.Attempts, e.Cause)
}

func (e *ResolutionError) Unwrap() error { return e.Cause }

// ModelError is a per-model failure. Never fatal: captured in the
// response slot by the orchestrator, never propagated up.
type ModelError struct {
	ModelID string
	Stage   string
	Cause   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s failed at %s: %v", e.ModelID, e.Stage, e.Cause)
}

func (e *ModelError) Unwrap() error { return e.Cause }

// BatchError means every model failed for one outcome; fusion still
// proceeds with market-only blending.
type BatchError struct {
	OutcomeName string
	Cause       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("all models failed for outcome %q: %v", e.OutcomeName, e.Cause)
}

func (e *BatchError) Unwrap() error { return e.Cause }

// TimeoutError means a per-call or per-batch deadline was exceeded.
type TimeoutError struct {
	Component string
	Budget    string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s exceeded its %s deadline", e.Component, e.Budget)
}

// ConfigError means configuration was invalid at startup. Fatal.
type ConfigError struct {
	Field string
	Cause error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error on %s: %v", e.Field, e.Cause)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// InvariantViolation means a probability outside [0,100] or a
// non-positive weight reached a place that assumes it cannot happen.
// This indicates a bug, not an environmental failure; fatal.
type InvariantViolation struct {
	Component string
	Detail    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated in %s: %s", e.Component, e.Detail)
}
