package metrics

import (
	"math"

	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/sim"
	"gonum.org/v1/gonum/floats"
)

// ConstraintDrift is the largest constraint position error norm seen. The
// error is the one measured at the start of each step.
type ConstraintDrift struct {
	name string
	max  float64
}

func NewConstraintDrift() *ConstraintDrift {
	return &ConstraintDrift{name: "constraint_drift"}
}

func (c *ConstraintDrift) Name() string { return c.name }

func (c *ConstraintDrift) Observe(s *dynamo.Solver) {
	for j := range s.Constraints() {
		pos, _ := s.ConstraintError(j)
		c.max = math.Max(c.max, pos)
	}
}

func (c *ConstraintDrift) Value() float64 { return c.max }

func (c *ConstraintDrift) Reset() { c.max = 0 }

// ReactionLoad is the largest Euclidean norm of the multiplier vector seen.
type ReactionLoad struct {
	name string
	max  float64
}

func NewReactionLoad() *ReactionLoad {
	return &ReactionLoad{name: "reaction_load"}
}

func (r *ReactionLoad) Name() string { return r.name }

func (r *ReactionLoad) Observe(s *dynamo.Solver) {
	if l := s.Lambda(); l != nil {
		r.max = math.Max(r.max, floats.Norm(l, 2))
	}
}

func (r *ReactionLoad) Value() float64 { return r.max }

func (r *ReactionLoad) Reset() { r.max = 0 }

// Default returns one of each metric.
func Default() []sim.Metric {
	return []sim.Metric{
		NewKineticEnergy(),
		NewPotentialEnergy(),
		NewEnergyDrift(),
		NewConstraintDrift(),
		NewReactionLoad(),
		NewStability(),
	}
}
