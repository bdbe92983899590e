package optim

import (
	"context"

	"github.com/san-kum/mbsim/internal/config"
	"github.com/san-kum/mbsim/internal/experiment"
	"golang.org/x/sync/errgroup"
)

// MonteCarlo runs a scene repeatedly with jittered initial velocities.
// Trial i uses seed cfg.Seed+i.
type MonteCarlo struct {
	Trials int
	Jitter float64
	// DriftLimit marks a trial unstable when its constraint drift exceeds
	// it. Zero disables the check.
	DriftLimit float64
	Limit      int
}

type Trial struct {
	ID              int
	Seed            int64
	Steps           int
	EnergyDrift     float64
	ConstraintDrift float64
	Stable          bool
	Err             error
}

// Run executes every trial. A trial is stable when it finished without error
// and within DriftLimit.
func (m *MonteCarlo) Run(ctx context.Context, cfg *config.Config) ([]Trial, error) {
	trials := make([]Trial, m.Trials)

	eg, ctx := errgroup.WithContext(ctx)
	if m.Limit > 0 {
		eg.SetLimit(m.Limit)
	}
	for i := range trials {
		eg.Go(func() error {
			c := cfg.Clone()
			c.Seed = cfg.Seed + int64(i)
			tr := Trial{ID: i, Seed: c.Seed}

			res, err := run(ctx, c, experiment.WithJitter(m.Jitter))
			tr.Err = err
			if res != nil {
				tr.Steps = res.StepsTaken
				tr.EnergyDrift = res.EnergyDrift
				tr.ConstraintDrift = res.Metrics["constraint_drift"]
			}
			tr.Stable = err == nil && (m.DriftLimit <= 0 || tr.ConstraintDrift <= m.DriftLimit)
			trials[i] = tr
			return ctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return trials, nil
}

// Stats counts stable and unstable trials.
func Stats(trials []Trial) (stable, unstable int) {
	for _, t := range trials {
		if t.Stable {
			stable++
		} else {
			unstable++
		}
	}
	return stable, unstable
}
