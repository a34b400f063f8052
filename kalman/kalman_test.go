package kalman

import (
	"os"
	"testing"

	"github.com/milosgajdos/go-track/model"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

var (
	cv *model.CV
	z  *mat.VecDense
)

func setup() {
	cv, _ = model.NewConstantVelocity(0.02, 10.0, 5.0)
	z = mat.NewVecDense(3, []float64{1.0, 0.0, 0.0})
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

func target(pos []float64) (*mat.VecDense, *mat.SymDense) {
	x := mat.NewVecDense(6, nil)
	for i := 0; i < 3; i++ {
		x.SetVec(i, pos[i])
	}

	p := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		p.SetSym(i, i, 1.0)
	}

	return x, p
}

func TestPredict(t *testing.T) {
	assert := assert.New(t)

	f := New(cv)

	x, p := target([]float64{1.0, 0.0, 0.0})
	x.SetVec(3, 0.5)

	f.Predict(x, p)

	// position moves by velocity * dt
	assert.InDelta(1.0+0.5*cv.Dt, x.AtVec(0), 1e-12)
	assert.InDelta(0.5, x.AtVec(3), 1e-12)
}

func TestPredictNoProcessNoise(t *testing.T) {
	assert := assert.New(t)

	// with zero process noise prediction is deterministic: P' = A*P*A'
	m, err := model.NewConstantVelocity(0.02, 0.0, 5.0)
	assert.NoError(err)
	f := New(m)

	x, p := target([]float64{1.0, 0.0, 0.0})

	want := &mat.Dense{}
	want.Mul(m.A, p)
	want.Mul(want, m.A.T())

	f.Predict(x, p)

	assert.True(mat.EqualApprox(want, p, 1e-12))
}

func TestInnovation(t *testing.T) {
	assert := assert.New(t)

	f := New(cv)

	x, p := target([]float64{1.0, 0.0, 0.0})

	// scoring must not modify the state
	xw := mat.VecDenseCopyOf(x)
	inn, err := f.Innovation(x, p, z)
	assert.NotNil(inn)
	assert.NoError(err)
	assert.True(mat.Equal(xw, x))

	// an observation at the predicted position is more likely than a distant one
	far := mat.NewVecDense(3, []float64{0.0, 1.0, 0.0})
	innFar, err := f.Innovation(x, p, far)
	assert.NoError(err)
	assert.True(inn.LogLik > innFar.LogLik)

	// invalid observation size
	inn, err = f.Innovation(x, p, mat.NewVecDense(2, nil))
	assert.Nil(inn)
	assert.Error(err)
}

func TestInnovationSingular(t *testing.T) {
	assert := assert.New(t)

	// zero measurement noise and zero state covariance make S singular
	m, err := model.NewConstantVelocity(0.02, 10.0, 0.0)
	assert.NoError(err)
	f := New(m)

	x := mat.NewVecDense(6, nil)
	p := mat.NewSymDense(6, nil)

	inn, err := f.Innovation(x, p, z)
	assert.Nil(inn)
	assert.ErrorIs(err, ErrSingular)
}

func TestApply(t *testing.T) {
	assert := assert.New(t)

	f := New(cv)

	x, p := target([]float64{0.9, 0.1, 0.0})
	trace0 := mat.Trace(p)

	inn, err := f.Innovation(x, p, z)
	assert.NoError(err)
	assert.NoError(f.Apply(x, p, inn))

	// the update pulls the state towards the observation
	assert.InDelta(z.AtVec(0), x.AtVec(0), 0.01)
	assert.InDelta(z.AtVec(1), x.AtVec(1), 0.01)

	// and shrinks its uncertainty
	assert.True(mat.Trace(p) < trace0)

	// the covariance stays symmetric positive definite
	var chol mat.Cholesky
	assert.True(chol.Factorize(p))
}
