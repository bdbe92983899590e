package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/mbsim/internal/config"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/sim"
)

// Experiment builds a solver from a scene config and runs it.
type Experiment struct {
	cfg        *config.Config
	registry   *Registry
	logger     *slog.Logger
	jitter     float64
	simulator  *sim.Simulator
	randSource *rand.Rand
}

type Option func(*Experiment)

func WithLogger(l *slog.Logger) Option {
	return func(e *Experiment) { e.logger = l }
}

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) { e.registry = r }
}

// WithJitter perturbs every initial body velocity by a uniform amount in
// [-a, a] per component, drawn from the config seed.
func WithJitter(a float64) Option {
	return func(e *Experiment) { e.jitter = a }
}

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{
		cfg:        cfg,
		randSource: rand.New(rand.NewSource(cfg.Seed)),
	}
	for _, o := range opts {
		o(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	return e
}

// Setup validates the config and builds the solver and simulator. metrics
// defaults to the registry's set when nil.
func (e *Experiment) Setup(metrics []sim.Metric) error {
	bodies, cons, err := e.cfg.Descriptors()
	if err != nil {
		return err
	}
	e.perturb(bodies)

	integ, err := e.registry.GetIntegrator(e.cfg.Integrator, e.cfg.Substeps, e.cfg.Damping)
	if err != nil {
		return err
	}

	opts := e.cfg.Options()
	opts.Logger = e.logger
	solver, err := dynamo.NewSolver(bodies, cons, integ, opts)
	if err != nil {
		return fmt.Errorf("scene %s: %w", e.cfg.Scene, err)
	}

	if metrics == nil {
		metrics = e.registry.DefaultMetrics()
	}
	e.simulator = sim.New(solver)
	for _, m := range metrics {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) perturb(bodies []dynamo.BodyDescriptor) {
	if e.jitter <= 0 {
		return
	}
	noise := func() mgl64.Vec3 {
		return mgl64.Vec3{
			e.jitter * (2*e.randSource.Float64() - 1),
			e.jitter * (2*e.randSource.Float64() - 1),
			e.jitter * (2*e.randSource.Float64() - 1),
		}
	}
	for i := range bodies {
		v := &bodies[i].Velocity
		v.Linear = v.Linear.Add(noise())
		v.Angular = v.Angular.Add(noise())
	}
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	simCfg := sim.Config{
		Dt:            e.cfg.Dt,
		Duration:      e.cfg.Duration,
		Seed:          e.cfg.Seed,
		ValidateState: true,
	}

	return e.simulator.Run(ctx, simCfg)
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Factory returns a sim.Factory that builds a fresh experiment from a copy of
// cfg for each call.
func Factory(cfg *config.Config, opts ...Option) sim.Factory {
	return func() (*sim.Simulator, error) {
		e := New(cfg.Clone(), opts...)
		if err := e.Setup(nil); err != nil {
			return nil, err
		}
		return e.GetSimulator(), nil
	}
}
