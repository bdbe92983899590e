package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/mbsim/internal/config"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/integrators"
	"github.com/san-kum/mbsim/internal/metrics"
	"github.com/san-kum/mbsim/internal/sim"
)

// IntegratorFactory builds an integrator from sub-step count and damping.
type IntegratorFactory func(substeps int, damping float64) dynamo.Integrator

type Registry struct {
	integrators map[string]IntegratorFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]IntegratorFactory),
	}

	r.integrators["semi-implicit"] = func(n int, d float64) dynamo.Integrator { return integrators.NewSemiImplicitEuler(n, d) }
	r.integrators["explicit"] = func(n int, d float64) dynamo.Integrator { return integrators.NewExplicitEuler(n, d) }
	r.integrators["leapfrog"] = func(n int, d float64) dynamo.Integrator { return integrators.NewLeapfrog(n, d) }
	r.integrators["rk4"] = func(n int, d float64) dynamo.Integrator { return integrators.NewRK4(n, d) }

	return r
}

// Register adds or replaces an integrator.
func (r *Registry) Register(name string, f IntegratorFactory) {
	r.integrators[name] = f
}

func (r *Registry) GetIntegrator(name string, substeps int, damping float64) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(substeps, damping), nil
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetScene returns a fresh preset config.
func (r *Registry) GetScene(scene, variant string) (*config.Config, error) {
	cfg := config.GetPreset(scene, variant)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s/%s", scene, variant)
	}
	return cfg, nil
}

func (r *Registry) ListScenes() []string { return config.ListScenes() }

func (r *Registry) DefaultMetrics() []sim.Metric {
	return metrics.Default()
}
