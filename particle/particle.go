// Package particle implements the weighted hypothesis ensemble of the
// tracker. Each particle owns an independent set of targets together with an
// importance weight; particles never share target state, which makes deep
// cloning the only way state moves between them.
package particle

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Target is a single tracked source hypothesis. Targets are owned exclusively
// by the particle holding them.
type Target struct {
	// ID is the target identity, assigned monotonically within a particle
	ID int
	// M is the target mean state: 3D position followed by 3D velocity
	M *mat.VecDense
	// P is the target state covariance
	P *mat.SymDense
	// Born is the time step at which the birth hypothesis was accepted
	Born int
	// Misses counts consecutive frames the target stayed below the death threshold
	Misses int
	// Lik is the best association likelihood observed in the current frame
	Lik float64
}

// Clone returns a deep copy of the target sharing no state with t.
func (t *Target) Clone() *Target {
	m := mat.NewVecDense(t.M.Len(), nil)
	m.CopyVec(t.M)

	p := mat.NewSymDense(t.P.SymmetricDim(), nil)
	p.CopySym(t.P)

	return &Target{
		ID:     t.ID,
		M:      m,
		P:      p,
		Born:   t.Born,
		Misses: t.Misses,
		Lik:    t.Lik,
	}
}

// Particle is one weighted hypothesis of the world state: a full candidate
// target set together with an importance weight.
type Particle struct {
	// W is the particle importance weight
	W float64
	// W0 is the baseline weight the particle resets to after resampling
	W0 float64
	// Targets is the list of targets owned by the particle
	Targets []*Target

	nextID int
	log    *EventLog
}

// New creates a new particle with weight w0 and an empty target list.
// histLen bounds the particle association event log.
func New(w0 float64, histLen int) *Particle {
	return &Particle{
		W:       w0,
		W0:      w0,
		Targets: nil,
		log:     NewEventLog(histLen),
	}
}

// Clone returns a deep copy of the particle: the weight, the event log and
// every target are copied so no mutation of the clone is visible through p.
func (p *Particle) Clone() *Particle {
	targets := make([]*Target, len(p.Targets))
	for i, t := range p.Targets {
		targets[i] = t.Clone()
	}

	return &Particle{
		W:       p.W,
		W0:      p.W0,
		Targets: targets,
		nextID:  p.nextID,
		log:     p.log.Clone(),
	}
}

// NewTarget creates a new target with mean m, covariance cov and birth time t,
// assigns it the next identity in the particle and appends it to the particle
// target list. It returns the created target.
func (p *Particle) NewTarget(m *mat.VecDense, cov *mat.SymDense, t int) *Target {
	tgt := &Target{
		ID:   p.nextID,
		M:    m,
		P:    cov,
		Born: t,
	}
	p.nextID++
	p.Targets = append(p.Targets, tgt)

	return tgt
}

// RemoveTarget removes the target at index i from the particle target list.
func (p *Particle) RemoveTarget(i int) {
	p.Targets = append(p.Targets[:i], p.Targets[i+1:]...)
}

// Record appends an association event to the particle event log.
func (p *Particle) Record(e Event) {
	p.log.Append(e)
}

// Events returns the recorded association events, oldest first.
func (p *Particle) Events() []Event {
	return p.log.Events()
}

// Ensemble is the fixed size set of particles owned by the tracker. Its size
// is invariant for the tracker lifetime: resampling replaces particle content,
// never the particle count.
type Ensemble struct {
	// S is the particle set
	S []*Particle
	// W0 is the baseline particle weight 1/len(S)
	W0 float64
}

// NewEnsemble allocates np particles with empty target lists and uniform
// weights W0 = 1/np. It returns error if np is not positive.
func NewEnsemble(np, histLen int) (*Ensemble, error) {
	if np <= 0 {
		return nil, fmt.Errorf("invalid particle count: %d", np)
	}

	w0 := 1.0 / float64(np)
	s := make([]*Particle, np)
	for i := range s {
		s[i] = New(w0, histLen)
	}

	return &Ensemble{
		S:  s,
		W0: w0,
	}, nil
}

// Weights returns a slice with the current particle weights.
func (e *Ensemble) Weights() []float64 {
	w := make([]float64, len(e.S))
	for i, p := range e.S {
		w[i] = p.W
	}

	return w
}

// Normalize rescales the particle weights so they sum up to 1. If the weights
// have numerically collapsed (zero, NaN or infinite sum) every weight is reset
// to the baseline W0 instead, which is equivalent to uniformly resampling the
// previous ensemble; Normalize reports whether the collapse fallback fired.
// It panics if a negative weight is found: weights are products of
// likelihoods and priors and can never go negative.
func (e *Ensemble) Normalize() bool {
	sum := 0.0
	for i, p := range e.S {
		if p.W < 0 {
			panic(fmt.Sprintf("particle: invariant violation: negative weight %v at index %d", p.W, i))
		}
		sum += p.W
	}

	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		for _, p := range e.S {
			p.W = e.W0
		}
		return true
	}

	for _, p := range e.S {
		p.W /= sum
	}

	return false
}

// MAP returns the maximum a-posteriori particle: the one with the largest
// weight. Ties resolve to the lowest index.
func (e *Ensemble) MAP() *Particle {
	best := e.S[0]
	for _, p := range e.S[1:] {
		if p.W > best.W {
			best = p
		}
	}

	return best
}

// Replace substitutes the ensemble content with deep clones of the particles
// selected by idx and resets every weight to the baseline W0. The previous
// particles are cloned before any slot is overwritten so repeated indices can
// never alias one another. It panics if len(idx) differs from the ensemble
// size: the ensemble size is invariant.
func (e *Ensemble) Replace(idx []int) {
	if len(idx) != len(e.S) {
		panic(fmt.Sprintf("particle: invariant violation: resampling %d indices into ensemble of %d", len(idx), len(e.S)))
	}

	next := make([]*Particle, len(idx))
	for i, j := range idx {
		next[i] = e.S[j].Clone()
		next[i].W = e.W0
	}
	e.S = next
}
