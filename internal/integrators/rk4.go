package integrators

import (
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/spatial"
)

var (
	rk4Nodes   = [3]float64{0.5, 0.5, 1}
	rk4Weights = [3]float64{2, 2, 1}
)

// RK4 is the classical fourth-order Runge-Kutta scheme over (pose, velocity).
// Stage poses are reached by integrating the start pose along the previous
// stage's velocity, so every stage stays on the rotation manifold. Every
// sub-step solves at its three later stages, and at its start after the first.
type RK4 struct {
	Substeps int
	Damping  float64

	scratch []rk4Body
}

type rk4Body struct {
	pose       spatial.Pose
	vel        spatial.Screw
	kv, ka     spatial.Screw
	sumV, sumA spatial.Screw
}

func NewRK4(substeps int, damping float64) *RK4 {
	if substeps < 1 {
		substeps = dynamo.DefaultSubsteps
	}
	return &RK4{Substeps: substeps, Damping: damping}
}

// Advance integrates with the accelerations frozen at their current values.
func (r *RK4) Advance(bodies []*dynamo.RigidBody, dt float64) {
	_ = r.AdvanceStaged(bodies, dt, nil)
}

func (r *RK4) AdvanceStaged(bodies []*dynamo.RigidBody, dt float64, eval dynamo.Evaluator) error {
	n := max(1, r.Substeps)
	h := dt / float64(n)
	if cap(r.scratch) < len(bodies) {
		r.scratch = make([]rk4Body, len(bodies))
	}
	st := r.scratch[:len(bodies)]

	for i := range n {
		if i > 0 {
			if err := evaluate(eval); err != nil {
				return err
			}
		}
		for k, b := range bodies {
			kv, ka := b.Velocity, derivative(b, r.Damping)
			st[k] = rk4Body{pose: b.Pose, vel: b.Velocity, kv: kv, ka: ka, sumV: kv, sumA: ka}
		}

		for stage, c := range rk4Nodes {
			for k, b := range bodies {
				s := &st[k]
				b.Pose = s.pose.Integrate(s.kv, c*h)
				b.Velocity = s.vel.Add(s.ka.Scale(c * h))
			}
			if err := evaluate(eval); err != nil {
				return err
			}
			w := rk4Weights[stage]
			for k, b := range bodies {
				s := &st[k]
				s.kv, s.ka = b.Velocity, derivative(b, r.Damping)
				s.sumV = s.sumV.Add(s.kv.Scale(w))
				s.sumA = s.sumA.Add(s.ka.Scale(w))
			}
		}

		for k, b := range bodies {
			s := &st[k]
			b.Pose = s.pose.Integrate(s.sumV.Scale(1.0/6), h)
			b.Velocity = s.vel.Add(s.sumA.Scale(h / 6))
		}
	}
	return nil
}
