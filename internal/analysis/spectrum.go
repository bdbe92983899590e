package analysis

import (
	"math/cmplx"

	"github.com/san-kum/mbsim/internal/sim"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Column extracts one value per state: offset col of body b.
func Column(states []sim.State, b, col int) []float64 {
	out := make([]float64, len(states))
	for i, s := range states {
		out[i] = s[b*sim.BodyStateDim+col]
	}
	return out
}

// Spectrum returns the one-sided amplitude spectrum of samples taken every
// dt seconds, with the mean removed, and the frequency of each bin in Hz.
func Spectrum(samples []float64, dt float64) (freqs, amps []float64) {
	n := len(samples)
	if n < 2 || dt <= 0 {
		return nil, nil
	}
	centered := make([]float64, n)
	copy(centered, samples)
	floats.AddConst(-stat.Mean(samples, nil), centered)

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, centered)
	freqs = make([]float64, len(coeff))
	amps = make([]float64, len(coeff))
	for i, c := range coeff {
		freqs[i] = fft.Freq(i) / dt
		amps[i] = cmplx.Abs(c) / float64(n)
	}
	return freqs, amps
}

// DominantPeriod returns the period in seconds of the strongest non-zero
// frequency, or 0 when the signal is constant or too short.
func DominantPeriod(samples []float64, dt float64) float64 {
	freqs, amps := Spectrum(samples, dt)
	if len(amps) < 2 {
		return 0
	}
	i := floats.MaxIdx(amps[1:]) + 1
	if amps[i] == 0 {
		return 0
	}
	return 1 / freqs[i]
}
