package metrics

import (
	"github.com/san-kum/mbsim/internal/dynamo"
)

// Stability is the fraction of observed steps that raised no drift warning.
type Stability struct {
	name       string
	violations int
	samples    int
}

func NewStability() *Stability {
	return &Stability{name: "stability"}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(solver *dynamo.Solver) {
	s.samples++
	if len(solver.Warnings()) > 0 {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
