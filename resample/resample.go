// Package resample monitors ensemble degeneracy and regenerates the particle
// set when the effective sample size drops too low.
package resample

import (
	"fmt"

	"github.com/milosgajdos/go-track/particle"
	"github.com/milosgajdos/go-track/rand"
)

// Neff returns the effective sample size 1 / sum(w_i^2) of the normalized
// weights w. It measures ensemble diversity: Neff close to len(w) means the
// weights are spread evenly, Neff close to 1 means the probability mass has
// collapsed onto a single particle.
func Neff(w []float64) float64 {
	s2 := 0.0
	for _, wi := range w {
		s2 += wi * wi
	}
	if s2 <= 0 {
		return 0
	}

	return 1.0 / s2
}

// Degenerate reports whether the ensemble weights w have degenerated enough
// to warrant resampling: Neff below a quarter of the ensemble size.
func Degenerate(w []float64) bool {
	return Neff(w) < float64(len(w))/4.0
}

// Systematic replaces the ensemble content with deep clones of particles
// drawn by systematic resampling proportional to their weights and resets
// every weight to the baseline. If the weights have numerically collapsed the
// ensemble is left untouched and every weight is reset to the baseline, which
// amounts to uniform resampling of the previous ensemble.
func Systematic(e *particle.Ensemble) error {
	idx, err := rand.SystematicDrawN(e.Weights(), len(e.S))
	if err != nil {
		// collapsed weights: fall back to the uniform ensemble
		for _, p := range e.S {
			p.W = e.W0
		}
		return nil
	}

	if len(idx) != len(e.S) {
		return fmt.Errorf("resampled %d indices for ensemble of %d", len(idx), len(e.S))
	}

	e.Replace(idx)

	return nil
}
