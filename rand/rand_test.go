package rand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestSystematicDrawN(t *testing.T) {
	assert := assert.New(t)

	// equal weights: the strata select every index exactly once, in order
	p := []float64{0.25, 0.25, 0.25, 0.25}
	indices, err := SystematicDrawN(p, 4)
	assert.NoError(err)
	assert.Equal([]int{0, 1, 2, 3}, indices)

	// zero weight entries are never selected
	p = []float64{0.0, 1.0, 0.0}
	indices, err = SystematicDrawN(p, 10)
	assert.NoError(err)
	for _, idx := range indices {
		assert.Equal(1, idx)
	}

	// unnormalized weights are fine
	p = []float64{2.0, 2.0}
	indices, err = SystematicDrawN(p, 2)
	assert.NoError(err)
	assert.Equal([]int{0, 1}, indices)

	// invalid requests
	indices, err = SystematicDrawN(nil, 4)
	assert.Nil(indices)
	assert.Error(err)

	indices, err = SystematicDrawN([]float64{0.5}, 0)
	assert.Nil(indices)
	assert.Error(err)

	// collapsed weights
	indices, err = SystematicDrawN([]float64{0.0, 0.0}, 2)
	assert.Nil(indices)
	assert.Error(err)
}

func TestRouletteDrawN(t *testing.T) {
	assert := assert.New(t)

	// zero weight entries are never selected
	p := []float64{0.0, 1.0, 0.0}
	indices, err := RouletteDrawN(p, 20)
	assert.NoError(err)
	assert.Equal(20, len(indices))
	for _, idx := range indices {
		assert.Equal(1, idx)
	}

	// invalid weights
	indices, err = RouletteDrawN(nil, 5)
	assert.Nil(indices)
	assert.Error(err)
}

func TestWithCovN(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(3, []float64{
		0.5, 0.0, 0.0,
		0.0, 0.5, 0.0,
		0.0, 0.0, 0.5,
	})

	samples, err := WithCovN(cov, 10)
	assert.NoError(err)

	rows, cols := samples.Dims()
	assert.Equal(3, rows)
	assert.Equal(10, cols)

	// invalid sample count
	samples, err = WithCovN(cov, 0)
	assert.Nil(samples)
	assert.Error(err)
}
