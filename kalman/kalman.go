// Package kalman implements the linear-Gaussian filter used to track a single
// target. Every particle in the ensemble runs one predict/update cycle per
// target it holds, so the filter operates in place on the target mean and
// covariance instead of allocating new estimates.
package kalman

import (
	"errors"
	"fmt"
	"math"

	"github.com/milosgajdos/go-track/model"
	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned when the innovation covariance can not be factorized.
// The caller is expected to treat the offending observation as clutter rather
// than propagate a faulty state.
var ErrSingular = errors.New("singular innovation covariance")

// log2Pi is ln(2*pi)
var log2Pi = math.Log(2.0 * math.Pi)

// Filter is a linear-Gaussian (Kalman) predictor and updater for a single
// target state. It is stateless across targets: the same Filter serves every
// target of every particle.
type Filter struct {
	a  *mat.Dense
	q  *mat.SymDense
	h  *mat.Dense
	r  *mat.SymDense
	nx int
	ny int
}

// Innovation carries the results of scoring an observation against a predicted
// target state: the residual, the factorized innovation covariance and the
// Gaussian log-likelihood of the observation. It is consumed by Apply to
// finish the Kalman update without refactorizing.
type Innovation struct {
	// LogLik is the log-likelihood of the observation under the
	// predicted observation density N(Hx, HPH'+R)
	LogLik float64

	y    *mat.VecDense
	chol mat.Cholesky
}

// New creates a new single target filter from the constant velocity model m.
func New(m *model.CV) *Filter {
	nx, ny := m.Dims()

	return &Filter{
		a:  m.A,
		q:  m.Q,
		h:  m.H,
		r:  m.R,
		nx: nx,
		ny: ny,
	}
}

// Predict propagates the target mean x and covariance p to the next time step
// in place: x = A*x, P = A*P*A' + Q.
func (f *Filter) Predict(x *mat.VecDense, p *mat.SymDense) {
	xNext := mat.NewVecDense(f.nx, nil)
	xNext.MulVec(f.a, x)
	x.CopyVec(xNext)

	ap := &mat.Dense{}
	ap.Mul(f.a, p)
	apa := &mat.Dense{}
	apa.Mul(ap, f.a.T())

	for i := 0; i < f.nx; i++ {
		for j := i; j < f.nx; j++ {
			p.SetSym(i, j, 0.5*(apa.At(i, j)+apa.At(j, i))+f.q.At(i, j))
		}
	}
}

// Innovation scores the observation z against the predicted target state
// (x, p) without modifying it. It returns the innovation together with the
// log-likelihood of z under the predicted observation density.
// It returns ErrSingular if the innovation covariance is numerically singular.
func (f *Filter) Innovation(x *mat.VecDense, p *mat.SymDense, z mat.Vector) (*Innovation, error) {
	if z.Len() != f.ny {
		return nil, fmt.Errorf("invalid observation size: %d", z.Len())
	}

	// innovation y = z - H*x
	y := mat.NewVecDense(f.ny, nil)
	y.MulVec(f.h, x)
	y.SubVec(z, y)

	// innovation covariance S = H*P*H' + R
	ph := &mat.Dense{}
	ph.Mul(f.h, p)
	hph := &mat.Dense{}
	hph.Mul(ph, f.h.T())

	s := mat.NewSymDense(f.ny, nil)
	for i := 0; i < f.ny; i++ {
		for j := i; j < f.ny; j++ {
			s.SetSym(i, j, 0.5*(hph.At(i, j)+hph.At(j, i))+f.r.At(i, j))
		}
	}

	inn := &Innovation{y: y}
	if ok := inn.chol.Factorize(s); !ok {
		return nil, fmt.Errorf("failed to factorize S: %w", ErrSingular)
	}

	// Gaussian log-likelihood: -0.5*(ny*ln(2pi) + ln|S| + y'*inv(S)*y)
	sy := mat.NewVecDense(f.ny, nil)
	if err := inn.chol.SolveVecTo(sy, y); err != nil {
		return nil, fmt.Errorf("failed to solve S*a = y: %w", ErrSingular)
	}
	inn.LogLik = -0.5 * (float64(f.ny)*log2Pi + inn.chol.LogDet() + mat.Dot(y, sy))

	return inn, nil
}

// Apply finishes the Kalman update of the target state (x, p) in place using
// a previously computed innovation: x = x + K*y, P = (I - K*H)*P with
// K = P*H'*inv(S).
func (f *Filter) Apply(x *mat.VecDense, p *mat.SymDense, inn *Innovation) error {
	// K' = inv(S)*H*P, so K = P*H'*inv(S) with symmetric S and P
	hp := &mat.Dense{}
	hp.Mul(f.h, p)

	kt := &mat.Dense{}
	if err := inn.chol.SolveTo(kt, hp); err != nil {
		return fmt.Errorf("failed to compute gain: %w", ErrSingular)
	}

	// x = x + K*y
	corr := mat.NewVecDense(f.nx, nil)
	corr.MulVec(kt.T(), inn.y)
	x.AddVec(x, corr)

	// P = (I - K*H)*P
	kh := &mat.Dense{}
	kh.Mul(kt.T(), f.h)
	ikh := mat.NewDense(f.nx, f.nx, nil)
	for i := 0; i < f.nx; i++ {
		ikh.Set(i, i, 1.0)
	}
	ikh.Sub(ikh, kh)

	pNext := &mat.Dense{}
	pNext.Mul(ikh, p)

	for i := 0; i < f.nx; i++ {
		for j := i; j < f.nx; j++ {
			p.SetSym(i, j, 0.5*(pNext.At(i, j)+pNext.At(j, i)))
		}
	}

	return nil
}

// Dims returns the state and observation dimensions of the filter.
func (f *Filter) Dims() (in, out int) {
	return f.nx, f.ny
}
