// Package tracker implements a sequential Monte Carlo multi-target tracker
// for streams of noisy 3D direction observations, based on Rao-Blackwellized
// Monte Carlo data association (RBMCDA): the discrete measurement-to-target
// association is sampled per particle while each target state is marginalized
// analytically with a Kalman filter.
//
// Observations are unit direction vectors treated as points in the Euclidean
// embedding of the unit sphere; chord distances stand in for angular
// distances, which is a modeling simplification valid for the small angular
// errors the tracker is calibrated for.
//
// For the underlying method see S. Särkkä, A. Vehtari, J. Lampinen:
// "Rao-Blackwellized particle filter for multiple target tracking".
package tracker

import (
	"fmt"
	"sync"

	"github.com/milosgajdos/go-track/assoc"
	"github.com/milosgajdos/go-track/kalman"
	"github.com/milosgajdos/go-track/model"
	"github.com/milosgajdos/go-track/particle"
	"github.com/milosgajdos/go-track/resample"
	"gonum.org/v1/gonum/mat"
)

// Estimate is a Gaussian state estimate.
type Estimate interface {
	// Val returns the estimated value
	Val() mat.Vector
	// Cov returns the estimate covariance
	Cov() mat.Symmetric
}

// Noise is a source of random system noise.
type Noise interface {
	// Mean returns the noise mean
	Mean() []float64
	// Cov returns the noise covariance
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise source
	Reset()
}

// Track is one published target of the frame: the MAP particle's estimate of
// a tracked source.
type Track struct {
	// ID is the persistent target identity
	ID int
	// Pos is the estimated 3D position
	Pos mat.Vector
	// Vel is the estimated 3D velocity
	Vel mat.Vector
	// Cov is the full 6x6 state covariance
	Cov mat.Symmetric
}

// Tracker converts a stream of per frame 3D direction observations into a
// stable set of tracked target positions with persistent identities.
// A Tracker is safe for sequential use only: Step and Close serialize on an
// internal mutex, so a concurrent caller blocks until the call in flight
// completes.
type Tracker struct {
	mu  sync.Mutex
	cfg Config
	cv  *model.CV
	kf  *kalman.Filter
	eng *assoc.Engine
	ens *particle.Ensemble
	// pending counts elapsed time ticks awaiting prediction
	pending int
	// now is the current discrete time step
	now    int
	closed bool
}

// New creates a new Tracker from the configuration c and returns it.
// A nil configuration selects DefaultConfig. It returns a ConfigError if the
// particle count exceeds MaxParticles, the frame interval is not positive,
// a noise parameter is negative or MultiActive is requested.
func New(c *Config) (*Tracker, error) {
	if c == nil {
		c = DefaultConfig()
	}
	cfg := *c
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cv, err := model.NewConstantVelocity(cfg.Dt, cfg.NoiseSpecDen, cfg.MeasNoiseSD)
	if err != nil {
		return nil, &ConfigError{Field: "Dt/NoiseSpecDen/MeasNoiseSD", Reason: err.Error()}
	}

	ens, err := particle.NewEnsemble(cfg.Np, cfg.HistLen)
	if err != nil {
		return nil, &ConfigError{Field: "Np", Reason: err.Error()}
	}

	kf := kalman.New(cv)
	eng := assoc.NewEngine(kf, assoc.Params{
		ClutterProb:   cfg.ClutterProb,
		InitBirth:     cfg.InitBirth,
		Cd:            cfg.Cd,
		PosVar:        cfg.PosVar,
		VelVar:        cfg.VelVar,
		MaxTargets:    cfg.MaxTargets,
		DeathLik:      cfg.DeathLik,
		DeathFrames:   cfg.DeathFrames,
		ForceKillDist: cfg.ForceKillDist,
	})

	return &Tracker{
		cfg: cfg,
		cv:  cv,
		kf:  kf,
		eng: eng,
		ens: ens,
	}, nil
}

// Step processes one frame of observations and returns the frame's published
// target list: the targets of the maximum a-posteriori particle. Observations
// are 3D unit direction vectors, one per detected source. For each
// observation in order, Step predicts every target of every particle once per
// elapsed time tick, runs the data association update across all particles
// and resamples the ensemble if its effective sample size degenerated. An
// empty batch performs prediction only. The returned slice is empty when the
// MAP particle holds no targets.
// It returns error if the tracker is closed or an observation is not 3D; a
// rejected frame leaves the tracker state untouched.
func (t *Tracker) Step(obs []mat.Vector) ([]Track, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, fmt.Errorf("tracker is closed")
	}

	// validate the whole batch before any state changes: a rejected frame
	// must leave the tracker exactly as it was
	for i, z := range obs {
		if z == nil || z.Len() != 3 {
			return nil, fmt.Errorf("invalid observation %d: expected a 3D vector", i)
		}
	}

	t.now++
	t.pending++

	if len(obs) == 0 {
		t.predict()
		return t.tracks(), nil
	}

	for _, z := range obs {
		t.predict()

		for _, p := range t.ens.S {
			if err := t.eng.Associate(p, z, t.now); err != nil {
				return nil, fmt.Errorf("association failed: %v", err)
			}
		}
		t.ens.Normalize()

		if w := t.ens.Weights(); resample.Degenerate(w) {
			if err := resample.Systematic(t.ens); err != nil {
				return nil, fmt.Errorf("resampling failed: %v", err)
			}
		}
	}

	for _, p := range t.ens.S {
		t.eng.Prune(p, t.now)
	}

	if len(t.ens.S) != t.cfg.Np {
		panic(fmt.Sprintf("tracker: invariant violation: ensemble size %d, want %d", len(t.ens.S), t.cfg.Np))
	}

	return t.tracks(), nil
}

// predict propagates every target of every particle once per pending time
// tick. Prediction catches up after frames without observations.
func (t *Tracker) predict() {
	for k := 0; k < t.pending; k++ {
		for _, p := range t.ens.S {
			for _, tgt := range p.Targets {
				t.kf.Predict(tgt.M, tgt.P)
			}
		}
	}
	t.pending = 0
}

// tracks builds the published target list from the MAP particle.
func (t *Tracker) tracks() []Track {
	s := t.ens.MAP()

	out := make([]Track, 0, len(s.Targets))
	for _, tgt := range s.Targets {
		pos := mat.NewVecDense(3, nil)
		vel := mat.NewVecDense(3, nil)
		for i := 0; i < 3; i++ {
			pos.SetVec(i, tgt.M.AtVec(i))
			vel.SetVec(i, tgt.M.AtVec(3+i))
		}

		cov := mat.NewSymDense(tgt.P.SymmetricDim(), nil)
		cov.CopySym(tgt.P)

		out = append(out, Track{
			ID:  tgt.ID,
			Pos: pos,
			Vel: vel,
			Cov: cov,
		})
	}

	return out
}

// Neff returns the effective sample size of the ensemble.
func (t *Tracker) Neff() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return resample.Neff(t.ens.Weights())
}

// Weights returns a vector with the current particle weights.
func (t *Tracker) Weights() mat.Vector {
	t.mu.Lock()
	defer t.mu.Unlock()

	w := t.ens.Weights()

	return mat.NewVecDense(len(w), w)
}

// Events returns the association event history of the MAP particle, oldest
// first.
func (t *Tracker) Events() []particle.Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.ens.MAP().Events()
}

// Model returns a copy of the dynamic and measurement model of the tracker.
// Mutating the copy does not affect the tracker.
func (t *Tracker) Model() *model.CV {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cv.Clone()
}

// Close releases the tracker. It blocks until a Step call in flight
// completes; any Step after Close returns an error. Close is idempotent.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true

	return nil
}
