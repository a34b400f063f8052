package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNew(t *testing.T) {
	assert := assert.New(t)

	val := mat.NewVecDense(2, []float64{1.0, 2.0})
	cov := mat.NewSymDense(2, []float64{
		1.0, 0.1,
		0.1, 1.0,
	})

	e, err := New(val, cov)
	assert.NotNil(e)
	assert.NoError(err)

	assert.True(mat.Equal(val, e.Val()))
	assert.True(mat.Equal(cov, e.Cov()))

	// mismatched dimensions
	e, err = New(val, mat.NewSymDense(3, nil))
	assert.Nil(e)
	assert.Error(err)
}

func TestCopies(t *testing.T) {
	assert := assert.New(t)

	val := mat.NewVecDense(2, []float64{1.0, 2.0})
	cov := mat.NewSymDense(2, nil)
	cov.SetSym(0, 0, 1.0)
	cov.SetSym(1, 1, 1.0)

	e, err := New(val, cov)
	assert.NoError(err)

	// the estimate owns its own copies of the inputs
	val.SetVec(0, 42.0)
	cov.SetSym(0, 0, 42.0)
	assert.Equal(1.0, e.Val().AtVec(0))
	assert.Equal(1.0, e.Cov().At(0, 0))

	// and hands out copies, not views
	e.Val().(*mat.VecDense).SetVec(1, 42.0)
	assert.Equal(2.0, e.Val().AtVec(1))
}
