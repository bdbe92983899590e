package analysis

import (
	"context"
	"math"

	"github.com/san-kum/mbsim/internal/config"
	"github.com/san-kum/mbsim/internal/experiment"
	"github.com/san-kum/mbsim/internal/sim"
	"gonum.org/v1/gonum/stat"
)

// Separation returns the distance between matching states of two runs, up
// to the shorter of the two.
func Separation(a, b []sim.State) []float64 {
	n := min(len(a), len(b))
	sep := make([]float64, n)
	for i := range sep {
		sep[i] = a[i].Sub(b[i]).Norm()
	}
	return sep
}

// LyapunovExponent fits a line to log(separation) against time and returns
// its slope. Zero separations and samples at or above saturate are left out,
// since the separation stops growing once the runs are unrelated. It returns
// 0 when fewer than two samples remain.
func LyapunovExponent(sep, times []float64, saturate float64) float64 {
	var xs, ys []float64
	for i, d := range sep {
		if d <= 0 || (saturate > 0 && d >= saturate) {
			continue
		}
		xs = append(xs, times[i])
		ys = append(ys, math.Log(d))
	}
	if len(xs) < 2 {
		return 0
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return slope
}

// EstimateLyapunov runs cfg and a copy whose initial velocities are jittered
// by eps, concurrently, and fits the growth of their separation.
func EstimateLyapunov(ctx context.Context, cfg *config.Config, eps float64) (float64, error) {
	ens := sim.NewEnsemble(2,
		experiment.Factory(cfg),
		experiment.Factory(cfg, experiment.WithJitter(eps)),
	)
	simCfg := sim.Config{Dt: cfg.Dt, Duration: cfg.Duration, Seed: cfg.Seed, ValidateState: true}
	results, err := ens.Run(ctx, simCfg)
	if err != nil {
		return 0, err
	}
	base, pert := results[0], results[1]
	return LyapunovExponent(Separation(base.States, pert.States), base.Times, 1), nil
}
