package dynamo

import (
	"io"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultSubsteps is the number of integration sub-steps per solver step.
const DefaultSubsteps = 8

// Integrator advances all bodies by dt using the accelerations the solver
// stored in each body's Acceleration field.
type Integrator interface {
	Advance(bodies []*RigidBody, dt float64)
}

// Evaluator re-solves the constrained accelerations at the bodies' current
// pose and velocity and stores them in each body's Acceleration field.
type Evaluator func() error

// StagedIntegrator is an Integrator whose scheme needs accelerations at
// intermediate states. When the solver's integrator implements it, Step calls
// AdvanceStaged instead of Advance; the start-of-step accelerations are
// already set on entry. An error from eval aborts the step and the solver
// restores the start-of-step state.
type StagedIntegrator interface {
	Integrator
	AdvanceStaged(bodies []*RigidBody, dt float64, eval Evaluator) error
}

// View is a read-only collaborator refreshed by UpdateViews after a step,
// typically a renderer or a recorder.
type View interface {
	OnStep(bodies []*RigidBody, t float64)
}

// ViewFunc adapts a function to the View interface.
type ViewFunc func(bodies []*RigidBody, t float64)

func (f ViewFunc) OnStep(bodies []*RigidBody, t float64) { f(bodies, t) }

type Options struct {
	// Gravity is the uniform field applied to every body.
	Gravity mgl64.Vec3
	// DriftThreshold is the constraint error norm above which a DriftWarning
	// is recorded. Zero disables the check.
	DriftThreshold float64
	// MaxCond is the largest condition number accepted for the reduced
	// constraint matrix.
	MaxCond float64
	Logger  *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Gravity:        mgl64.Vec3{0, 0, -9.8},
		DriftThreshold: 0,
		MaxCond:        1e12,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
