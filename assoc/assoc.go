// Package assoc implements the Rao-Blackwellized data association step of the
// tracker. For every observation and particle it scores the competing
// explanations of the observation - assignment to one of the existing
// targets, birth of a new target, or clutter - samples one of them
// proportional to its posterior probability and reweights the particle by the
// marginal likelihood of the observation.
package assoc

import (
	"errors"
	"fmt"
	"math"

	"github.com/milosgajdos/go-track/kalman"
	"github.com/milosgajdos/go-track/particle"
	"github.com/milosgajdos/go-track/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Params are the association priors. All of them must be calibrated together:
// the clutter and birth densities compete directly with the Gaussian target
// likelihoods returned by the Kalman filter.
type Params struct {
	// ClutterProb is the prior probability that an observation is clutter
	ClutterProb float64
	// InitBirth is the prior probability that an unassociated observation
	// births a new target
	InitBirth float64
	// Cd is the clutter (and birth location) spatial density; the default
	// is uniform over the unit sphere: 1/(4*pi)
	Cd float64
	// PosVar is the birth covariance of each position component
	PosVar float64
	// VelVar is the birth covariance of each velocity component
	VelVar float64
	// MaxTargets caps the number of targets a particle may hold; zero or
	// negative means no cap
	MaxTargets int
	// DeathLik is the likelihood below which a frame counts as a miss
	DeathLik float64
	// DeathFrames is the number of consecutive missed frames after which a
	// target is pruned; zero or negative disables pruning
	DeathFrames int
	// ForceKillDist removes the younger of two targets closer than this
	// distance; zero or negative disables it
	ForceKillDist float64
}

// Engine evaluates and samples association hypotheses for single
// observations against single particles.
type Engine struct {
	kf  *kalman.Filter
	prm Params
}

// NewEngine creates a new association engine using the target filter kf and
// the priors prm.
func NewEngine(kf *kalman.Filter, prm Params) *Engine {
	return &Engine{
		kf:  kf,
		prm: prm,
	}
}

// Associate explains the observation z for the particle p at time step t.
// The hypothesis posteriors are, up to normalization:
//
//	clutter:  ClutterProb * Cd
//	birth:    (1-ClutterProb) * InitBirth * Cd
//	target j: (1-ClutterProb) * (1-InitBirth) * N(z; H*x_j, S_j) / k
//
// One hypothesis is sampled proportional to its posterior; the corresponding
// Kalman update (or target birth, or nothing for clutter) is applied and the
// particle weight is multiplied by the marginal likelihood of z, i.e. the sum
// of the unnormalized posteriors. Targets with singular innovation covariance
// contribute zero likelihood and can never be selected.
func (e *Engine) Associate(p *particle.Particle, z mat.Vector, t int) error {
	k := len(p.Targets)
	assocPrior := (1.0 - e.prm.ClutterProb) * (1.0 - e.prm.InitBirth)

	post := make([]float64, 0, k+2)
	inns := make([]*kalman.Innovation, k)
	for j, tgt := range p.Targets {
		lik := 0.0
		inn, err := e.kf.Innovation(tgt.M, tgt.P, z)
		switch {
		case err == nil:
			lik = math.Exp(inn.LogLik)
			inns[j] = inn
		case errors.Is(err, kalman.ErrSingular):
			// absorbed into the model: this (target, observation)
			// pair behaves as clutter
		default:
			return fmt.Errorf("failed to score target %d: %v", tgt.ID, err)
		}
		if lik > tgt.Lik {
			tgt.Lik = lik
		}
		post = append(post, assocPrior*lik/float64(k))
	}

	birthOK := e.prm.MaxTargets <= 0 || k < e.prm.MaxTargets
	if birthOK {
		post = append(post, (1.0-e.prm.ClutterProb)*e.prm.InitBirth*e.prm.Cd)
	}
	post = append(post, e.prm.ClutterProb*e.prm.Cd)

	marginal := floats.Sum(post)
	if marginal <= 0 || math.IsNaN(marginal) || math.IsInf(marginal, 0) {
		// nothing explains z; discard it without touching the weight
		p.Record(particle.Event{Time: t, Kind: particle.Clutter, TargetID: -1})
		return nil
	}

	choice, err := rand.RouletteDrawN(post, 1)
	if err != nil {
		return fmt.Errorf("failed to sample association hypothesis: %v", err)
	}

	switch c := choice[0]; {
	case c < k:
		tgt := p.Targets[c]
		if err := e.kf.Apply(tgt.M, tgt.P, inns[c]); err != nil {
			return fmt.Errorf("failed to update target %d: %v", tgt.ID, err)
		}
		p.Record(particle.Event{Time: t, Kind: particle.Assoc, TargetID: tgt.ID})
	case c == k && birthOK:
		tgt := p.NewTarget(e.birthState(z), e.birthCov(), t)
		p.Record(particle.Event{Time: t, Kind: particle.Birth, TargetID: tgt.ID})
	default:
		p.Record(particle.Event{Time: t, Kind: particle.Clutter, TargetID: -1})
	}

	p.W *= marginal

	return nil
}

// Prune applies the death hypothesis to the particle p at the end of the
// frame at time step t: a target whose best likelihood stayed below DeathLik
// for DeathFrames consecutive frames is removed. Targets born in the current
// frame are exempt. When ForceKillDist is set, the younger of any two targets
// closer than the distance is removed as well: two targets that close explain
// the same source.
func (e *Engine) Prune(p *particle.Particle, t int) {
	for i := len(p.Targets) - 1; i >= 0; i-- {
		tgt := p.Targets[i]
		if tgt.Born == t {
			tgt.Lik = 0
			continue
		}

		if tgt.Lik < e.prm.DeathLik {
			tgt.Misses++
		} else {
			tgt.Misses = 0
		}
		tgt.Lik = 0

		if e.prm.DeathFrames > 0 && tgt.Misses >= e.prm.DeathFrames {
			p.Record(particle.Event{Time: t, Kind: particle.Death, TargetID: tgt.ID})
			p.RemoveTarget(i)
		}
	}

	if e.prm.ForceKillDist > 0 {
		e.forceKill(p, t)
	}
}

// forceKill removes the younger target of every pair closer than
// ForceKillDist. Age ties resolve to the higher identity.
func (e *Engine) forceKill(p *particle.Particle, t int) {
	for i := 0; i < len(p.Targets); i++ {
		for j := len(p.Targets) - 1; j > i; j-- {
			a, b := p.Targets[i], p.Targets[j]
			if dist(a, b) >= e.prm.ForceKillDist {
				continue
			}
			// j is removed unless it is strictly older than i
			rm := j
			if b.Born < a.Born {
				rm = i
			}
			p.Record(particle.Event{Time: t, Kind: particle.Death, TargetID: p.Targets[rm].ID})
			p.RemoveTarget(rm)
			if rm == i {
				i--
				break
			}
		}
	}
}

// birthState builds the mean state of a newborn target: position at the
// observation, zero velocity.
func (e *Engine) birthState(z mat.Vector) *mat.VecDense {
	nx, ny := e.kf.Dims()
	m := mat.NewVecDense(nx, nil)
	for i := 0; i < ny; i++ {
		m.SetVec(i, z.AtVec(i))
	}

	return m
}

// birthCov builds the covariance of a newborn target.
func (e *Engine) birthCov() *mat.SymDense {
	nx, ny := e.kf.Dims()
	p := mat.NewSymDense(nx, nil)
	for i := 0; i < nx; i++ {
		if i < ny {
			p.SetSym(i, i, e.prm.PosVar)
			continue
		}
		p.SetSym(i, i, e.prm.VelVar)
	}

	return p
}

// dist is the Euclidean distance between the position components of two
// targets.
func dist(a, b *particle.Target) float64 {
	d := 0.0
	for i := 0; i < 3; i++ {
		v := a.M.AtVec(i) - b.M.AtVec(i)
		d += v * v
	}

	return math.Sqrt(d)
}
