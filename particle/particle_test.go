package particle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func newTestTarget(p *Particle, pos float64, t int) *Target {
	m := mat.NewVecDense(6, nil)
	m.SetVec(0, pos)

	cov := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		cov.SetSym(i, i, 1.0)
	}

	return p.NewTarget(m, cov, t)
}

func TestNewEnsemble(t *testing.T) {
	assert := assert.New(t)

	e, err := NewEnsemble(10, 16)
	assert.NotNil(e)
	assert.NoError(err)
	assert.Equal(10, len(e.S))
	assert.InDelta(0.1, e.W0, 1e-12)

	for _, p := range e.S {
		assert.InDelta(e.W0, p.W, 1e-12)
		assert.Empty(p.Targets)
	}

	// invalid particle count
	e, err = NewEnsemble(0, 16)
	assert.Nil(e)
	assert.Error(err)

	e, err = NewEnsemble(-10, 16)
	assert.Nil(e)
	assert.Error(err)
}

func TestTargetIDs(t *testing.T) {
	assert := assert.New(t)

	p := New(0.1, 16)

	a := newTestTarget(p, 1.0, 1)
	b := newTestTarget(p, 2.0, 1)
	assert.Equal(0, a.ID)
	assert.Equal(1, b.ID)

	// identities are never reused within a particle
	p.RemoveTarget(0)
	c := newTestTarget(p, 3.0, 2)
	assert.Equal(2, c.ID)
	assert.Equal(2, len(p.Targets))
	assert.Equal(1, p.Targets[0].ID)
}

func TestParticleClone(t *testing.T) {
	assert := assert.New(t)

	p := New(0.1, 16)
	tgt := newTestTarget(p, 1.0, 1)
	p.Record(Event{Time: 1, Kind: Birth, TargetID: tgt.ID})

	c := p.Clone()
	assert.Equal(p.W, c.W)
	assert.Equal(len(p.Targets), len(c.Targets))
	assert.Equal(len(p.Events()), len(c.Events()))

	// mutating the clone must not be visible through the source
	c.Targets[0].M.SetVec(0, 42.0)
	c.Targets[0].P.SetSym(0, 0, 42.0)
	c.Targets[0].Misses = 42
	c.W = 0.5
	c.Record(Event{Time: 2, Kind: Clutter, TargetID: -1})

	assert.InDelta(1.0, p.Targets[0].M.AtVec(0), 1e-12)
	assert.InDelta(1.0, p.Targets[0].P.At(0, 0), 1e-12)
	assert.Equal(0, p.Targets[0].Misses)
	assert.InDelta(0.1, p.W, 1e-12)
	assert.Equal(1, len(p.Events()))

	// identities continue independently after cloning
	ct := newTestTarget(c, 2.0, 2)
	assert.Equal(1, ct.ID)
	assert.Equal(1, len(p.Targets))
}

func TestNormalize(t *testing.T) {
	assert := assert.New(t)

	e, err := NewEnsemble(4, 16)
	assert.NoError(err)

	for i, p := range e.S {
		p.W = float64(i + 1)
	}

	collapsed := e.Normalize()
	assert.False(collapsed)

	sum := 0.0
	for _, w := range e.Weights() {
		sum += w
	}
	assert.InDelta(1.0, sum, 1e-12)
	assert.InDelta(0.4, e.S[3].W, 1e-12)

	// collapsed weights reset to the baseline
	for _, p := range e.S {
		p.W = 0.0
	}
	collapsed = e.Normalize()
	assert.True(collapsed)
	for _, p := range e.S {
		assert.InDelta(e.W0, p.W, 1e-12)
	}

	// negative weights are a programming defect
	e.S[0].W = -0.1
	assert.Panics(func() { e.Normalize() })
}

func TestMAP(t *testing.T) {
	assert := assert.New(t)

	e, err := NewEnsemble(4, 16)
	assert.NoError(err)

	e.S[2].W = 0.9
	assert.Equal(e.S[2], e.MAP())

	// ties resolve to the lowest index
	e.S[1].W = 0.9
	assert.Equal(e.S[1], e.MAP())
}

func TestReplace(t *testing.T) {
	assert := assert.New(t)

	e, err := NewEnsemble(3, 16)
	assert.NoError(err)

	for i, p := range e.S {
		newTestTarget(p, float64(i), 1)
		p.W = 0.1
	}

	// all slots resample the same source particle
	e.Replace([]int{1, 1, 1})
	assert.Equal(3, len(e.S))
	for _, p := range e.S {
		assert.InDelta(e.W0, p.W, 1e-12)
		assert.InDelta(1.0, p.Targets[0].M.AtVec(0), 1e-12)
	}

	// repeated indices must not alias: mutating one resampled particle's
	// targets is invisible to every other particle
	e.S[0].Targets[0].M.SetVec(0, 42.0)
	assert.InDelta(1.0, e.S[1].Targets[0].M.AtVec(0), 1e-12)
	assert.InDelta(1.0, e.S[2].Targets[0].M.AtVec(0), 1e-12)

	// the ensemble size is invariant
	assert.Panics(func() { e.Replace([]int{0, 1}) })
}
