// Package estimate provides the Gaussian state estimate exchanged between the
// tracker, the smoother and the simulator.
package estimate

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Base is a Gaussian estimate: a value together with its covariance.
type Base struct {
	val *mat.VecDense
	cov *mat.SymDense
}

// New returns a new estimate of val with covariance cov. Both are copied.
// It returns error if the value and covariance dimensions disagree.
func New(val mat.Vector, cov mat.Symmetric) (*Base, error) {
	if val.Len() != cov.SymmetricDim() {
		return nil, fmt.Errorf("mismatched dimensions: val %d, cov %d x %d", val.Len(), cov.SymmetricDim(), cov.SymmetricDim())
	}

	v := &mat.VecDense{}
	v.CloneFromVec(val)

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	return &Base{
		val: v,
		cov: c,
	}, nil
}

// Val returns a copy of the estimated value.
func (b *Base) Val() mat.Vector {
	v := &mat.VecDense{}
	v.CloneFromVec(b.val)

	return v
}

// Cov returns a copy of the estimate covariance.
func (b *Base) Cov() mat.Symmetric {
	cov := mat.NewSymDense(b.cov.SymmetricDim(), nil)
	cov.CopySym(b.cov)

	return cov
}
