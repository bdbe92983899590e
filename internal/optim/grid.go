package optim

import (
	"context"
	"math"

	"github.com/san-kum/mbsim/internal/config"
	"github.com/san-kum/mbsim/internal/experiment"
	"github.com/san-kum/mbsim/internal/sim"
	"golang.org/x/sync/errgroup"
)

// Gains is a stabilization setting applied to every constraint of a scene.
type Gains struct {
	T, Zeta float64
}

// Candidate is one scored point of a search. Value is +Inf when the run
// failed.
type Candidate struct {
	Gains
	Value float64
	Err   error
}

// GridSearch scores every (T, Zeta) pair on a scene by one result metric and
// keeps the lowest.
type GridSearch struct {
	Ts, Zetas []float64
	Metric    string
	// Limit bounds concurrent runs; zero means no bound.
	Limit int
}

func NewGridSearch(ts, zetas []float64, metric string) *GridSearch {
	return &GridSearch{Ts: ts, Zetas: zetas, Metric: metric}
}

// Candidates lists the grid in row-major order of (T, Zeta).
func (g *GridSearch) Candidates() []Gains {
	out := make([]Gains, 0, len(g.Ts)*len(g.Zetas))
	for _, t := range g.Ts {
		for _, z := range g.Zetas {
			out = append(out, Gains{T: t, Zeta: z})
		}
	}
	return out
}

// Search runs cfg once per candidate. Failed runs are kept with Value +Inf;
// only context cancellation aborts the search.
func (g *GridSearch) Search(ctx context.Context, cfg *config.Config) (Candidate, []Candidate, error) {
	grid := g.Candidates()
	scored := make([]Candidate, len(grid))

	eg, ctx := errgroup.WithContext(ctx)
	if g.Limit > 0 {
		eg.SetLimit(g.Limit)
	}
	for i, gains := range grid {
		eg.Go(func() error {
			c := cfg.Clone()
			for j := range c.Constraints {
				c.Constraints[j].T = gains.T
				c.Constraints[j].Zeta = gains.Zeta
			}
			res, err := run(ctx, c)
			scored[i] = Candidate{Gains: gains, Value: math.Inf(1), Err: err}
			if err == nil {
				scored[i].Value = res.Metrics[g.Metric]
			}
			return ctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return Candidate{}, nil, err
	}

	best := Candidate{Value: math.Inf(1)}
	for _, c := range scored {
		if c.Err == nil && c.Value < best.Value {
			best = c
		}
	}
	return best, scored, nil
}

func run(ctx context.Context, cfg *config.Config, opts ...experiment.Option) (*sim.Result, error) {
	exp := experiment.New(cfg, opts...)
	if err := exp.Setup(nil); err != nil {
		return nil, err
	}
	return exp.Run(ctx)
}
