package dynamo

import (
	"github.com/san-kum/mbsim/internal/spatial"
	"gonum.org/v1/gonum/mat"
)

// Assembly holds the global system of one step: block-diagonal mass matrix
// M, constraint Jacobian G, bias h, external forces S and inertial forces K.
// G and H are nil when there are no constraints.
type Assembly struct {
	M *mat.Dense
	G *mat.Dense
	H *mat.VecDense
	S *mat.VecDense
	K *mat.VecDense
}

func (a Assembly) clone() Assembly {
	c := Assembly{
		M: mat.DenseCopyOf(a.M),
		S: mat.VecDenseCopyOf(a.S),
		K: mat.VecDenseCopyOf(a.K),
	}
	if a.G != nil {
		c.G = mat.DenseCopyOf(a.G)
		c.H = mat.VecDenseCopyOf(a.H)
	}
	return c
}

// Assemble rebuilds the global system from the current state without
// stepping and returns a copy of it.
func (s *Solver) Assemble() Assembly {
	s.assemble()
	return s.asm.clone()
}

// LastAssembly returns a copy of the most recently assembled system.
func (s *Solver) LastAssembly() Assembly {
	return s.asm.clone()
}

// Lambda returns a copy of the last solved multiplier vector, or nil before
// the first successful step or when there are no constraints.
func (s *Solver) Lambda() []float64 {
	if !s.solved || s.nc == 0 {
		return nil
	}
	out := make([]float64, s.nc)
	copy(out, s.lambda.RawVector().Data)
	return out
}

// ConstraintLambda returns the multipliers of constraint j, or nil when j is
// out of range or nothing has been solved yet.
func (s *Solver) ConstraintLambda(j int) []float64 {
	if j < 0 || j >= len(s.constraints) {
		return nil
	}
	l := s.Lambda()
	if l == nil {
		return nil
	}
	off := s.rowOffset[j]
	return l[off : off+s.constraints[j].Rank()]
}

// ReactionForces returns, per connection of constraint j, the generalized
// force Jᵀ·λ the constraint applied to that body in the last step. The screws
// are world-frame and referred to each body's centre of mass. It returns nil
// when ConstraintLambda does.
func (s *Solver) ReactionForces(j int) []spatial.Screw {
	l := s.ConstraintLambda(j)
	if l == nil {
		return nil
	}
	c := s.constraints[j]
	lv := mat.NewVecDense(len(l), l)
	out := make([]spatial.Screw, len(c.Connections))
	for i, conn := range c.Connections {
		var f mat.VecDense
		f.MulVec(conn.jacobian.T(), lv)
		out[i] = spatial.ScrewFromVector(&f, 0)
	}
	return out
}

// Warnings returns the drift warnings raised by the last step.
func (s *Solver) Warnings() []DriftWarning {
	out := make([]DriftWarning, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// ConstraintError returns the position and velocity error norms of
// constraint j as of the last assembly. Both are zero when j is out of range.
func (s *Solver) ConstraintError(j int) (pos, vel float64) {
	if j < 0 || j >= len(s.constraints) {
		return 0, 0
	}
	return s.constraints[j].errorNorms()
}

func (s *Solver) Bodies() []*RigidBody { return s.bodies }

func (s *Solver) Body(i int) *RigidBody { return s.bodies[i] }

func (s *Solver) Constraints() []*Constraint { return s.constraints }

// NumRows is the total constraint rank.
func (s *Solver) NumRows() int { return s.nc }

func (s *Solver) Steps() int { return s.step }

func (s *Solver) Time() float64 { return s.time }

func (s *Solver) Options() Options { return s.opts }
