package sim

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Factory builds an independent simulator. Each ensemble member gets its own
// solver and bodies.
type Factory func() (*Simulator, error)

// Ensemble runs independent simulations concurrently.
type Ensemble struct {
	factories []Factory
	limit     int
}

// NewEnsemble returns an ensemble of the given members. limit bounds the
// number of concurrent runs; zero or less means no bound.
func NewEnsemble(limit int, factories ...Factory) *Ensemble {
	return &Ensemble{factories: factories, limit: limit}
}

func (e *Ensemble) Len() int { return len(e.factories) }

// Run runs every member with cfg. Results are in member order. The first
// failure cancels the remaining runs.
func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, len(e.factories))

	g, ctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for i, f := range e.factories {
		g.Go(func() error {
			s, err := f()
			if err != nil {
				return err
			}
			res, err := s.Run(ctx, cfg)
			results[i] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
