// Package rand provides the random sampling primitives of the tracker:
// stratified and roulette draws over discrete weight vectors and Gaussian
// sampling with a given covariance.
package rand

import (
	"fmt"
	"math"
	rnd "math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// SystematicDrawN draws n indices with replacement from the discrete
// distribution defined by the weights in p using systematic (stratified)
// resampling: a single uniform offset is drawn and the unit interval is
// covered with n equally spaced strata, which minimizes resampling variance
// compared to n independent draws.
// It returns error if p is empty or its weights do not sum to a positive
// finite value.
func SystematicDrawN(p []float64, n int) ([]int, error) {
	if len(p) == 0 || n <= 0 {
		return nil, fmt.Errorf("invalid draw request: %d samples from %d weights", n, len(p))
	}

	cdf := make([]float64, len(p))
	floats.CumSum(cdf, p)

	total := cdf[len(cdf)-1]
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, fmt.Errorf("invalid probability weights: sum %v", total)
	}

	// one random offset shared by all strata
	u0 := distuv.UnitUniform.Rand() / float64(n)

	indices := make([]int, n)
	j := 0
	for i := range indices {
		u := (u0 + float64(i)/float64(n)) * total
		for j < len(cdf)-1 && cdf[j] <= u {
			j++
		}
		indices[i] = j
	}

	return indices, nil
}

// RouletteDrawN draws n indices randomly from the probability mass function
// defined by the weights in p a.k.a. Fitness Proportionate Selection:
// - https://en.wikipedia.org/wiki/Fitness_proportionate_selection
// Each draw is independent; zero weight entries are never selected.
// It returns error if p is empty or nil.
func RouletteDrawN(p []float64, n int) ([]int, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("invalid probability weights: %v", p)
	}

	// the discrete CDF is sorted in ascending order by construction
	cdf := make([]float64, len(p))
	floats.CumSum(cdf, p)

	indices := make([]int, n)
	for i := range indices {
		// scale the uniform sample by the largest CDF value instead of normalizing p
		val := distuv.UnitUniform.Rand() * cdf[len(cdf)-1]
		indices[i] = sort.Search(len(cdf), func(j int) bool { return cdf[j] > val })
	}

	return indices, nil
}

// WithCovN draws n random samples from a zero mean Gaussian distribution with
// covariance cov and returns them stored in the columns of the result matrix.
// SVD is used instead of Cholesky so (almost) singular covariances do not
// break the factorization.
// It returns error if n is not positive or the SVD factorization fails.
func WithCovN(cov mat.Symmetric, n int) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid number of samples requested: %d", n)
	}

	var svd mat.SVD
	if ok := svd.Factorize(cov, mat.SVDFull); !ok {
		return nil, fmt.Errorf("SVD factorization failed")
	}

	u := new(mat.Dense)
	svd.UTo(u)

	vals := svd.Values(nil)
	for i := range vals {
		vals[i] = math.Sqrt(vals[i])
	}
	u.Mul(u, mat.NewDiagDense(len(vals), vals))

	rows, _ := cov.Dims()
	data := make([]float64, rows*n)
	for i := range data {
		data[i] = rnd.NormFloat64()
	}
	samples := mat.NewDense(rows, n, data)
	samples.Mul(u, samples)

	return samples, nil
}
