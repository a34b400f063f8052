package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// nx is the target state dimension: 3D position and 3D velocity.
	nx = 6
	// ny is the observation dimension: a 3D direction vector.
	ny = 3
)

// CV is a discrete-time constant velocity model of a single tracked target.
// The target state is a 6D vector [x y z vx vy vz]; observations are 3D
// direction vectors treated as points in the Euclidean embedding of the unit
// sphere. Angular noise magnitudes are mapped to chord distances (1 - cos)
// which approximates the spherical metric for small angles.
type CV struct {
	// A is state transition matrix
	A *mat.Dense
	// Q is process noise covariance
	Q *mat.SymDense
	// H is observation matrix: it selects the position components of the state
	H *mat.Dense
	// R is measurement noise covariance
	R *mat.SymDense
	// Dt is the discretization interval
	Dt float64
}

// NewConstantVelocity builds a constant velocity model discretized over the
// interval dt. Process noise enters on the velocity components only, with
// spectral density Chord(noiseSpecDenDeg); the measurement noise standard
// deviation per axis is Chord(measNoiseSDDeg). The continuous time model is
// discretized exactly with the Van Loan matrix exponential method.
// It returns error if dt is not positive or either noise parameter is negative.
func NewConstantVelocity(dt, noiseSpecDenDeg, measNoiseSDDeg float64) (*CV, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("invalid time step: %v", dt)
	}

	if noiseSpecDenDeg < 0 {
		return nil, fmt.Errorf("invalid process noise spectral density: %v", noiseSpecDenDeg)
	}

	if measNoiseSDDeg < 0 {
		return nil, fmt.Errorf("invalid measurement noise deviation: %v", measNoiseSDDeg)
	}

	// continuous time dynamics: velocity couples into position
	f := mat.NewDense(nx, nx, nil)
	for i := 0; i < ny; i++ {
		f.Set(i, ny+i, 1.0)
	}

	// process noise enters on the velocity components only
	q := Chord(noiseSpecDenDeg)
	qc := mat.NewDense(nx, nx, nil)
	for i := ny; i < nx; i++ {
		qc.Set(i, i, q)
	}

	a, qd, err := ltiDisc(f, qc, dt)
	if err != nil {
		return nil, fmt.Errorf("failed to discretize the model: %v", err)
	}

	h := mat.NewDense(ny, nx, nil)
	for i := 0; i < ny; i++ {
		h.Set(i, i, 1.0)
	}

	sd := Chord(measNoiseSDDeg)
	r := mat.NewSymDense(ny, nil)
	for i := 0; i < ny; i++ {
		r.SetSym(i, i, sd*sd)
	}

	return &CV{
		A:  a,
		Q:  qd,
		H:  h,
		R:  r,
		Dt: dt,
	}, nil
}

// Dims returns the state and observation dimensions of the model.
func (m *CV) Dims() (in, out int) {
	return nx, ny
}

// Clone returns a deep copy of the model sharing no state with m.
func (m *CV) Clone() *CV {
	q := mat.NewSymDense(m.Q.SymmetricDim(), nil)
	q.CopySym(m.Q)

	r := mat.NewSymDense(m.R.SymmetricDim(), nil)
	r.CopySym(m.R)

	return &CV{
		A:  mat.DenseCopyOf(m.A),
		Q:  q,
		H:  mat.DenseCopyOf(m.H),
		R:  r,
		Dt: m.Dt,
	}
}

// Chord maps an angular extent in degrees to the chord distance 1 - cos(deg)
// on the unit sphere.
func Chord(deg float64) float64 {
	return 1.0 - math.Cos(deg*math.Pi/180.0)
}

// ltiDisc discretizes the continuous time LTI system defined by the dynamics
// matrix f and the process noise spectral density qc over the interval dt.
// It returns the discrete transition matrix A = expm(f*dt) and the discrete
// process noise covariance Q obtained with the Van Loan method:
//
//	expm([f, qc; 0, -f']*dt) = [M11, M12; 0, M22],  Q = M12 * inv(M22)
//
// It returns error if the matrix exponential blocks fail to be inverted.
func ltiDisc(f, qc *mat.Dense, dt float64) (*mat.Dense, *mat.SymDense, error) {
	n, _ := f.Dims()

	fdt := mat.NewDense(n, n, nil)
	fdt.Scale(dt, f)

	a := &mat.Dense{}
	a.Exp(fdt)

	// assemble the Van Loan block matrix [f, qc; 0, -f'] scaled by dt
	phi := mat.NewDense(2*n, 2*n, nil)
	phi.Slice(0, n, 0, n).(*mat.Dense).Copy(f)
	phi.Slice(0, n, n, 2*n).(*mat.Dense).Copy(qc)
	phi.Slice(n, 2*n, n, 2*n).(*mat.Dense).Scale(-1.0, f.T())
	phi.Scale(dt, phi)

	ephi := &mat.Dense{}
	ephi.Exp(phi)

	m12 := ephi.Slice(0, n, n, 2*n)
	m22 := ephi.Slice(n, 2*n, n, 2*n)

	m22Inv := &mat.Dense{}
	if err := m22Inv.Inverse(m22); err != nil {
		return nil, nil, fmt.Errorf("failed to invert the Van Loan block: %v", err)
	}

	qd := &mat.Dense{}
	qd.Mul(m12, m22Inv)

	// enforce symmetry lost to floating point roundoff
	q := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			q.SetSym(i, j, 0.5*(qd.At(i, j)+qd.At(j, i)))
		}
	}

	return a, q, nil
}
