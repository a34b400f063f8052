// Package sim simulates direction-of-arrival scenarios for the tracker:
// sources moving along great circles on the unit sphere observed through
// angular measurement noise.
package sim

import (
	"fmt"
	"math"

	"github.com/milosgajdos/go-track"
	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"

	trnd "github.com/milosgajdos/go-track/rand"
)

// Source is a simulated sound source moving on the unit sphere: its direction
// rotates around Axis by RateDeg degrees per time step starting from Start.
type Source struct {
	// Start is the initial unit direction of the source
	Start mat.Vector
	// Axis is the unit rotation axis
	Axis mat.Vector
	// RateDeg is the angular rate in degrees per step
	RateDeg float64
}

// Scenario generates per frame observations of a set of simulated sources.
type Scenario struct {
	sources []Source
	mn      tracker.Noise
}

// NewScenario creates a new scenario of the given sources observed through
// the measurement noise mn. A nil mn yields noiseless observations.
// It returns error if a source direction or axis is not a 3D vector.
func NewScenario(sources []Source, mn tracker.Noise) (*Scenario, error) {
	for i, s := range sources {
		if s.Start == nil || s.Start.Len() != 3 || s.Axis == nil || s.Axis.Len() != 3 {
			return nil, fmt.Errorf("invalid source %d: directions must be 3D vectors", i)
		}
	}

	return &Scenario{
		sources: sources,
		mn:      mn,
	}, nil
}

// Truth returns the true unit directions of all sources at time step t.
func (s *Scenario) Truth(t int) []mat.Vector {
	out := make([]mat.Vector, len(s.sources))
	for i, src := range s.sources {
		theta := float64(t) * src.RateDeg * math.Pi / 180.0
		out[i] = rotate(src.Start, src.Axis, theta)
	}

	return out
}

// Observe returns one noisy unit direction observation per source at time
// step t.
func (s *Scenario) Observe(t int) []mat.Vector {
	truth := s.Truth(t)

	out := make([]mat.Vector, len(truth))
	for i, v := range truth {
		z := mat.NewVecDense(3, nil)
		z.CopyVec(v)
		if s.mn != nil {
			z.AddVec(z, s.mn.Sample())
		}
		unit(z)
		out[i] = z
	}

	return out
}

// Scatter draws n unit directions scattered around the unit direction center
// with the Gaussian covariance cov.
// It returns error if the covariance fails to be factorized.
func Scatter(center mat.Vector, cov mat.Symmetric, n int) ([]mat.Vector, error) {
	if center == nil || center.Len() != 3 {
		return nil, fmt.Errorf("invalid center: must be a 3D vector")
	}

	samples, err := trnd.WithCovN(cov, n)
	if err != nil {
		return nil, fmt.Errorf("failed to draw scatter samples: %v", err)
	}

	out := make([]mat.Vector, n)
	for i := 0; i < n; i++ {
		z := mat.NewVecDense(3, nil)
		z.AddVec(center, samples.ColView(i))
		unit(z)
		out[i] = z
	}

	return out, nil
}

// ObsCov returns the empirical covariance of the observations obs around
// their mean. It is handy for checking the calibration of simulated
// measurement noise against the tracker's measurement model.
// It returns error if fewer than two observations are supplied.
func ObsCov(obs []mat.Vector) (mat.Symmetric, error) {
	if len(obs) < 2 {
		return nil, fmt.Errorf("need at least 2 observations: got %d", len(obs))
	}

	m := mat.NewDense(3, len(obs), nil)
	for i, z := range obs {
		for r := 0; r < 3; r++ {
			m.Set(r, i, z.AtVec(r))
		}
	}

	cov, err := matrix.Cov(m, "cols")
	if err != nil {
		return nil, fmt.Errorf("failed to compute observation covariance: %v", err)
	}

	return cov, nil
}

// AzEl returns the azimuth and elevation of the direction v in degrees.
func AzEl(v mat.Vector) (az, el float64) {
	az = math.Atan2(v.AtVec(1), v.AtVec(0)) * 180.0 / math.Pi
	r := math.Sqrt(v.AtVec(0)*v.AtVec(0) + v.AtVec(1)*v.AtVec(1))
	el = math.Atan2(v.AtVec(2), r) * 180.0 / math.Pi

	return az, el
}

// rotate rotates v around the unit axis k by the angle theta using the
// Rodrigues formula.
func rotate(v, k mat.Vector, theta float64) *mat.VecDense {
	sin, cos := math.Sin(theta), math.Cos(theta)

	kv := cross(k, v)
	dot := mat.Dot(k, v)

	out := mat.NewVecDense(3, nil)
	for i := 0; i < 3; i++ {
		out.SetVec(i, v.AtVec(i)*cos+kv.AtVec(i)*sin+k.AtVec(i)*dot*(1.0-cos))
	}

	return out
}

// cross returns the cross product of two 3D vectors.
func cross(a, b mat.Vector) *mat.VecDense {
	return mat.NewVecDense(3, []float64{
		a.AtVec(1)*b.AtVec(2) - a.AtVec(2)*b.AtVec(1),
		a.AtVec(2)*b.AtVec(0) - a.AtVec(0)*b.AtVec(2),
		a.AtVec(0)*b.AtVec(1) - a.AtVec(1)*b.AtVec(0),
	})
}

// unit rescales v to unit length in place. Zero vectors are left alone.
func unit(v *mat.VecDense) {
	n := mat.Norm(v, 2)
	if n == 0 {
		return
	}
	v.ScaleVec(1.0/n, v)
}
