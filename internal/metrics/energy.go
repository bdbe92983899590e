package metrics

import (
	"math"

	"github.com/san-kum/mbsim/internal/dynamo"
)

// KineticEnergy is the mean total kinetic energy of all bodies.
type KineticEnergy struct {
	name    string
	sum     float64
	samples int
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(s *dynamo.Solver) {
	k.sum += kinetic(s.Bodies())
	k.samples++
}

func (k *KineticEnergy) Value() float64 {
	if k.samples == 0 {
		return 0
	}
	return k.sum / float64(k.samples)
}

func (k *KineticEnergy) Reset() {
	k.sum = 0
	k.samples = 0
}

// PotentialEnergy is the mean gravitational potential energy, zero at the
// world origin.
type PotentialEnergy struct {
	name    string
	sum     float64
	samples int
}

func NewPotentialEnergy() *PotentialEnergy {
	return &PotentialEnergy{name: "potential_energy"}
}

func (p *PotentialEnergy) Name() string { return p.name }

func (p *PotentialEnergy) Observe(s *dynamo.Solver) {
	p.sum += potential(s)
	p.samples++
}

func (p *PotentialEnergy) Value() float64 {
	if p.samples == 0 {
		return 0
	}
	return p.sum / float64(p.samples)
}

func (p *PotentialEnergy) Reset() {
	p.sum = 0
	p.samples = 0
}

// EnergyDrift is the largest relative deviation of total energy from its first
// observed value. It stays zero when that value is zero.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s *dynamo.Solver) {
	energy := kinetic(s.Bodies()) + potential(s)

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

func kinetic(bodies []*dynamo.RigidBody) float64 {
	sum := 0.0
	for _, b := range bodies {
		sum += b.KineticEnergy()
	}
	return sum
}

func potential(s *dynamo.Solver) float64 {
	g := s.Options().Gravity
	sum := 0.0
	for _, b := range s.Bodies() {
		sum -= b.Mass() * g.Dot(b.Pose.Position)
	}
	return sum
}
