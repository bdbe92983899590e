package integrators

import (
	"github.com/san-kum/mbsim/internal/dynamo"
)

// SemiImplicitEuler integrates velocity first and then the pose with the
// updated velocity, over Substeps equal sub-steps. Damping removes
// damping·v·dt from the velocity at each sub-step.
type SemiImplicitEuler struct {
	Substeps int
	Damping  float64
}

func NewSemiImplicitEuler(substeps int, damping float64) *SemiImplicitEuler {
	if substeps < 1 {
		substeps = dynamo.DefaultSubsteps
	}
	return &SemiImplicitEuler{Substeps: substeps, Damping: damping}
}

func (e *SemiImplicitEuler) Advance(bodies []*dynamo.RigidBody, dt float64) {
	n := max(1, e.Substeps)
	h := dt / float64(n)
	for range n {
		for _, b := range bodies {
			b.Integrate(b.Acceleration, h, e.Damping)
		}
	}
}

// ExplicitEuler advances the pose with the velocity from the start of each
// sub-step, then updates the velocity. It drifts more than SemiImplicitEuler
// and is kept for comparison runs.
type ExplicitEuler struct {
	Substeps int
	Damping  float64
}

func NewExplicitEuler(substeps int, damping float64) *ExplicitEuler {
	if substeps < 1 {
		substeps = dynamo.DefaultSubsteps
	}
	return &ExplicitEuler{Substeps: substeps, Damping: damping}
}

func (e *ExplicitEuler) Advance(bodies []*dynamo.RigidBody, dt float64) {
	n := max(1, e.Substeps)
	h := dt / float64(n)
	for range n {
		for _, b := range bodies {
			v := b.Velocity
			b.Pose = b.Pose.Integrate(v, h)
			b.Velocity = v.Add(b.Acceleration.Scale(h)).Sub(v.Scale(e.Damping * h))
		}
	}
}
