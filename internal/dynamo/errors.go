package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for solver operations.
var (
	// ErrConfiguration indicates a malformed body or constraint set: bad
	// topology, mismatched dimensions or a non-invertible mass matrix.
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrSingularSystem indicates the reduced constraint matrix could not be
	// factorized, usually because constraints are redundant or conflicting.
	ErrSingularSystem = errors.New("dynamo: singular constraint system")
)

// ConfigurationError wraps ErrConfiguration with the offending component.
type ConfigurationError struct {
	Component string
	Index     int
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%v: %s: %s", ErrConfiguration, e.Component, e.Reason)
	}
	return fmt.Sprintf("%v: %s %d: %s", ErrConfiguration, e.Component, e.Index, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

func configError(component string, index int, format string, args ...any) error {
	return &ConfigurationError{Component: component, Index: index, Reason: fmt.Sprintf(format, args...)}
}

// SingularSystemError wraps ErrSingularSystem with the step it aborted.
type SingularSystemError struct {
	Step int
	Time float64
	Cond float64
}

func (e *SingularSystemError) Error() string {
	return fmt.Sprintf("%v at step %d (t=%.4f, cond=%.3g)", ErrSingularSystem, e.Step, e.Time, e.Cond)
}

func (e *SingularSystemError) Unwrap() error {
	return ErrSingularSystem
}

// DriftWarning reports a constraint whose error stayed above the configured
// threshold. It is informational: stabilization keeps correcting it.
type DriftWarning struct {
	Constraint int
	Step       int
	Time       float64
	Position   float64
	Velocity   float64
}

func (w DriftWarning) String() string {
	return fmt.Sprintf("constraint %d drift at step %d (t=%.4f): position %.3g, velocity %.3g",
		w.Constraint, w.Step, w.Time, w.Position, w.Velocity)
}
