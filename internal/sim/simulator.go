package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/mbsim/internal/dynamo"
)

// Simulator drives a solver for a fixed duration and records the run.
type Simulator struct {
	solver  *dynamo.Solver
	metrics []Metric
	logger  *slog.Logger
}

func New(solver *dynamo.Solver) *Simulator {
	logger := solver.Options().Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Simulator{
		solver:  solver,
		metrics: make([]Metric, 0),
		logger:  logger,
	}
}

func (s *Simulator) Solver() *dynamo.Solver { return s.solver }

func (s *Simulator) AddMetric(m Metric) { s.metrics = append(s.metrics, m) }

// AddObserver registers v with the solver; it is refreshed after every step.
func (s *Simulator) AddObserver(v dynamo.View) { s.solver.AddView(v) }

// Run steps the solver until cfg.Duration. A failed step stops the run and
// returns the partial result together with a *SimulationError.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := stepCount(cfg)
	result := &Result{
		States:  make([]State, 0, steps+1),
		Times:   make([]float64, 0, steps+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	bodies := s.solver.Bodies()
	result.States = append(result.States, Snapshot(bodies))
	result.Times = append(result.Times, s.solver.Time())

	initialEnergy := TotalEnergy(bodies, s.solver.Options().Gravity)
	s.logger.Info("run started", "solver", s.solver.String(), "dt", cfg.Dt, "steps", steps)

	var runErr error
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if err := s.solver.Step(cfg.Dt); err != nil {
			runErr = &SimulationError{Step: i, Time: s.solver.Time(), Err: err}
			break
		}
		result.Warnings = append(result.Warnings, s.solver.Warnings()...)

		x := Snapshot(bodies)
		if cfg.ValidateState && !x.IsValid() {
			runErr = &SimulationError{Step: i, Time: s.solver.Time(), Err: ErrInvalidState}
			break
		}

		for _, m := range s.metrics {
			m.Observe(s.solver)
		}
		s.solver.UpdateViews()

		result.StepsTaken++
		result.States = append(result.States, x)
		result.Times = append(result.Times, s.solver.Time())
	}

	finalEnergy := TotalEnergy(bodies, s.solver.Options().Gravity)
	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	if runErr != nil {
		s.logger.Error("run aborted", "err", runErr)
		return result, runErr
	}
	s.logger.Info("run finished", "steps", result.StepsTaken, "warnings", len(result.Warnings), "energy_drift", result.EnergyDrift)
	return result, nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if !(cfg.Duration > 0) {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	return nil
}

func stepCount(cfg Config) int {
	return int(cfg.Duration/cfg.Dt + 1e-9)
}

// TotalEnergy is the kinetic energy of bodies plus their potential energy in
// the uniform field g, taking the world origin as zero.
func TotalEnergy(bodies []*dynamo.RigidBody, g mgl64.Vec3) float64 {
	e := 0.0
	for _, b := range bodies {
		e += b.KineticEnergy() - b.Mass()*g.Dot(b.Pose.Position)
	}
	return e
}

// RunWithCallback steps the solver until cfg.Duration or until callback
// returns false. The state passed to callback is reused between calls.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(State, float64) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}

	bodies := s.solver.Bodies()
	pool := NewStatePool(len(bodies))
	x := pool.Get()
	defer pool.Put(x)

	for i := 0; i < stepCount(cfg); i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		x.CopyFrom(bodies)
		if !callback(x, s.solver.Time()) {
			return nil
		}

		if err := s.solver.Step(cfg.Dt); err != nil {
			return &SimulationError{Step: i, Time: s.solver.Time(), Err: err}
		}
		s.solver.UpdateViews()

		if cfg.ValidateState {
			x.CopyFrom(bodies)
			if !x.IsValid() {
				return &SimulationError{Step: i, Time: s.solver.Time(), Err: ErrInvalidState}
			}
		}
	}

	return nil
}
