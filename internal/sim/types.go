package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/spatial"
)

// BodyStateDim is the number of values recorded per body: position (3),
// rotation quaternion W, X, Y, Z (4), linear velocity (3), angular velocity (3).
const BodyStateDim = 13

// State is a flattened snapshot of all bodies, BodyStateDim values per body in
// solver order.
type State []float64

// Snapshot records the current state of bodies.
func Snapshot(bodies []*dynamo.RigidBody) State {
	s := make(State, BodyStateDim*len(bodies))
	s.CopyFrom(bodies)
	return s
}

// CopyFrom overwrites s with the state of bodies. s must hold exactly
// BodyStateDim values per body.
func (s State) CopyFrom(bodies []*dynamo.RigidBody) {
	for i, b := range bodies {
		o := s[BodyStateDim*i : BodyStateDim*(i+1)]
		p, q := b.Pose.Position, b.Pose.Rotation
		v, w := b.Velocity.Linear, b.Velocity.Angular
		copy(o, []float64{
			p[0], p[1], p[2],
			q.W, q.V[0], q.V[1], q.V[2],
			v[0], v[1], v[2],
			w[0], w[1], w[2],
		})
	}
}

func (s State) NumBodies() int { return len(s) / BodyStateDim }

// Body decodes the pose and velocity of body i.
func (s State) Body(i int) (spatial.Pose, spatial.Screw) {
	o := s[BodyStateDim*i : BodyStateDim*(i+1)]
	pose := spatial.Pose{
		Position: mgl64.Vec3{o[0], o[1], o[2]},
		Rotation: mgl64.Quat{W: o[3], V: mgl64.Vec3{o[4], o[5], o[6]}},
	}
	return pose, spatial.ScrewFromSlice(o[7:13])
}

// Restore writes the state back into bodies, the inverse of CopyFrom.
func (s State) Restore(bodies []*dynamo.RigidBody) {
	for i, b := range bodies {
		b.Pose, b.Velocity = s.Body(i)
	}
}

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Metric accumulates a scalar over a run. Observe is called after every
// successful step.
type Metric interface {
	Name() string
	Observe(s *dynamo.Solver)
	Value() float64
	Reset()
}

type Config struct {
	Dt            float64
	Duration      float64
	Seed          int64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      10.0,
		ValidateState: true,
	}
}

type Result struct {
	States      []State
	Times       []float64
	Metrics     map[string]float64
	Warnings    []dynamo.DriftWarning
	EnergyDrift float64
	StepsTaken  int
}

// ErrInvalidState is reported when a step produces NaN or Inf values.
var ErrInvalidState = errors.New("sim: invalid state (NaN/Inf)")

// SimulationError is a failed step of a run.
type SimulationError struct {
	Step int
	Time float64
	Err  error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Err)
}

func (e *SimulationError) Unwrap() error { return e.Err }
