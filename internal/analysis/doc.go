// Package analysis characterizes recorded runs.
//
//   - [Spectrum] and [DominantPeriod]: frequency content of one state column
//   - [Separation] and [LyapunovExponent]: divergence of two nearby runs
//   - [EstimateLyapunov]: runs a scene and a perturbed copy side by side
//
// A positive Lyapunov exponent indicates chaotic motion, as in the
// double_pendulum chaos preset.
package analysis
