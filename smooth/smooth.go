// Package smooth implements offline Rauch-Tung-Striebel smoothing of a
// recorded single target track. The tracker itself is causal; smoothing
// refines a finished track backwards against the same constant velocity
// model.
package smooth

import (
	"fmt"

	"github.com/milosgajdos/go-track"
	"github.com/milosgajdos/go-track/estimate"
	"github.com/milosgajdos/go-track/model"
	"gonum.org/v1/gonum/mat"
)

// RTS is a Rauch-Tung-Striebel smoother.
type RTS struct {
	a  *mat.Dense
	q  *mat.SymDense
	nx int
}

// NewRTS creates a new RTS smoother for the constant velocity model m.
func NewRTS(m *model.CV) *RTS {
	nx, _ := m.Dims()

	return &RTS{
		a:  m.A,
		q:  m.Q,
		nx: nx,
	}
}

// Smooth runs the backward smoothing recursion over the filtered track
// estimates est, ordered oldest first, and returns the smoothed estimates:
//
//	C_k  = P_k * A' * inv(P_k+1|k)
//	xs_k = x_k + C_k * (xs_k+1 - A*x_k)
//	Ps_k = P_k + C_k * (Ps_k+1 - P_k+1|k) * C_k'
//
// It returns error if est is empty, an estimate has unexpected dimensions or
// a predicted covariance fails to be inverted.
func (s *RTS) Smooth(est []tracker.Estimate) ([]tracker.Estimate, error) {
	if len(est) == 0 {
		return nil, fmt.Errorf("no estimates to smooth")
	}

	for i, e := range est {
		if e.Val().Len() != s.nx {
			return nil, fmt.Errorf("invalid estimate %d: dimension %d, want %d", i, e.Val().Len(), s.nx)
		}
	}

	out := make([]tracker.Estimate, len(est))

	// the last smoothed estimate equals the last filtered estimate
	last, err := estimate.New(est[len(est)-1].Val(), est[len(est)-1].Cov())
	if err != nil {
		return nil, err
	}
	out[len(est)-1] = last

	for i := len(est) - 2; i >= 0; i-- {
		x := est[i].Val()
		p := est[i].Cov()

		// predicted mean and covariance at k+1
		xp := mat.NewVecDense(s.nx, nil)
		xp.MulVec(s.a, x)

		pp := &mat.Dense{}
		pp.Mul(s.a, p)
		pp.Mul(pp, s.a.T())
		pp.Add(pp, s.q)

		ppInv := &mat.Dense{}
		if err := ppInv.Inverse(pp); err != nil {
			return nil, fmt.Errorf("failed to invert predicted covariance at %d: %v", i, err)
		}

		// smoothing gain C = P*A'*inv(Pp)
		c := &mat.Dense{}
		c.Mul(p, s.a.T())
		c.Mul(c, ppInv)

		// xs = x + C*(xs_next - xp)
		dx := mat.NewVecDense(s.nx, nil)
		dx.SubVec(out[i+1].Val(), xp)
		corr := mat.NewVecDense(s.nx, nil)
		corr.MulVec(c, dx)
		xs := mat.NewVecDense(s.nx, nil)
		xs.AddVec(x, corr)

		// Ps = P + C*(Ps_next - Pp)*C'
		dp := &mat.Dense{}
		dp.Sub(out[i+1].Cov(), pp)
		cp := &mat.Dense{}
		cp.Mul(c, dp)
		cp.Mul(cp, c.T())

		ps := mat.NewSymDense(s.nx, nil)
		for r := 0; r < s.nx; r++ {
			for q := r; q < s.nx; q++ {
				ps.SetSym(r, q, p.At(r, q)+0.5*(cp.At(r, q)+cp.At(q, r)))
			}
		}

		e, err := estimate.New(xs, ps)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}

	return out, nil
}
