package integrators

import (
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/spatial"
)

// Leapfrog is the kick-drift-kick scheme: half a velocity kick, a full pose
// drift, a re-solve at the drifted pose, then the second half kick. It needs
// one extra solve per sub-step.
type Leapfrog struct {
	Substeps int
	Damping  float64
}

func NewLeapfrog(substeps int, damping float64) *Leapfrog {
	if substeps < 1 {
		substeps = dynamo.DefaultSubsteps
	}
	return &Leapfrog{Substeps: substeps, Damping: damping}
}

// Advance integrates with the accelerations frozen at their current values.
func (l *Leapfrog) Advance(bodies []*dynamo.RigidBody, dt float64) {
	_ = l.AdvanceStaged(bodies, dt, nil)
}

func (l *Leapfrog) AdvanceStaged(bodies []*dynamo.RigidBody, dt float64, eval dynamo.Evaluator) error {
	n := max(1, l.Substeps)
	h := dt / float64(n)
	for range n {
		for _, b := range bodies {
			b.Velocity = kick(b, 0.5*h, l.Damping)
			b.Pose = b.Pose.Integrate(b.Velocity, h)
		}
		if err := evaluate(eval); err != nil {
			return err
		}
		for _, b := range bodies {
			b.Velocity = kick(b, 0.5*h, l.Damping)
		}
	}
	return nil
}

func kick(b *dynamo.RigidBody, h, damping float64) spatial.Screw {
	return b.Velocity.Add(derivative(b, damping).Scale(h))
}

// derivative is the damped acceleration of b.
func derivative(b *dynamo.RigidBody, damping float64) spatial.Screw {
	return b.Acceleration.Sub(b.Velocity.Scale(damping))
}

func evaluate(eval dynamo.Evaluator) error {
	if eval == nil {
		return nil
	}
	return eval()
}
