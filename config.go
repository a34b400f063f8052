package tracker

import (
	"fmt"
	"math"
)

const (
	// MaxParticles is the hard upper bound on the ensemble size.
	MaxParticles = 100
	// DefaultNp is the ensemble size used when Config.Np is left zero.
	DefaultNp = 20
)

// ConfigError reports an invalid tracker configuration. The tracker is not
// created when construction returns it.
type ConfigError struct {
	// Field is the offending configuration field
	Field string
	// Reason describes why the field is invalid
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// Config configures the tracker. It is immutable after construction: New
// copies it. The zero value of every field except Np, MeasNoiseSD,
// NoiseSpecDen and Dt selects a documented default.
type Config struct {
	// Np is the number of particles in the ensemble; must not exceed
	// MaxParticles. Zero selects DefaultNp.
	Np int
	// MeasNoiseSD is the measurement angular noise standard deviation in degrees
	MeasNoiseSD float64
	// NoiseSpecDen is the process noise spectral density in degrees
	NoiseSpecDen float64
	// Dt is the frame interval in seconds
	Dt float64
	// MultiActive requests association of multiple simultaneously active
	// sources per target. Not implemented: construction rejects it.
	MultiActive bool

	// ClutterProb is the prior probability that an observation is clutter.
	// Zero selects 0.2.
	ClutterProb float64
	// InitBirth is the prior probability that an unassociated observation
	// births a new target. Zero selects 0.5.
	InitBirth float64
	// Cd is the clutter spatial density. Zero selects the uniform density
	// over the unit sphere, 1/(4*pi).
	Cd float64
	// PosVar is the birth variance of each position component. Zero selects 1.
	PosVar float64
	// VelVar is the birth variance of each velocity component. Zero selects 1.
	VelVar float64
	// MaxTargets caps the number of targets a particle may hold. Zero selects 8.
	MaxTargets int
	// DeathLik is the likelihood below which a frame counts as a miss for a
	// target. Zero selects Cd.
	DeathLik float64
	// DeathFrames is the number of consecutive missed frames after which a
	// target is pruned. Zero selects 20.
	DeathFrames int
	// ForceKillDist removes the younger of two targets closer than this
	// distance. Zero disables it.
	ForceKillDist float64
	// HistLen bounds the per particle association event log. Zero selects 64.
	HistLen int
}

// DefaultConfig returns the tracker configuration used by the examples: a 20
// particle ensemble at 50 frames per second with 5 degree measurement noise
// and 10 degree process noise.
func DefaultConfig() *Config {
	c := &Config{
		Np:            DefaultNp,
		MeasNoiseSD:   5.0,
		NoiseSpecDen:  10.0,
		Dt:            0.02,
		ForceKillDist: 0.25,
	}
	c.setDefaults()

	return c
}

// setDefaults fills the zero valued prior fields with their defaults.
func (c *Config) setDefaults() {
	if c.Np == 0 {
		c.Np = DefaultNp
	}
	if c.ClutterProb == 0 {
		c.ClutterProb = 0.2
	}
	if c.InitBirth == 0 {
		c.InitBirth = 0.5
	}
	if c.Cd == 0 {
		c.Cd = 1.0 / (4.0 * math.Pi)
	}
	if c.PosVar == 0 {
		c.PosVar = 1.0
	}
	if c.VelVar == 0 {
		c.VelVar = 1.0
	}
	if c.MaxTargets == 0 {
		c.MaxTargets = 8
	}
	if c.DeathLik == 0 {
		c.DeathLik = c.Cd
	}
	if c.DeathFrames == 0 {
		c.DeathFrames = 20
	}
	if c.HistLen == 0 {
		c.HistLen = 64
	}
}

// validate checks the configuration after defaults have been applied.
func (c *Config) validate() error {
	if c.Np <= 0 {
		return &ConfigError{Field: "Np", Reason: fmt.Sprintf("must be positive: %d", c.Np)}
	}
	if c.Np > MaxParticles {
		return &ConfigError{Field: "Np", Reason: fmt.Sprintf("%d exceeds the maximum of %d", c.Np, MaxParticles)}
	}
	if c.MultiActive {
		return &ConfigError{Field: "MultiActive", Reason: "multiple simultaneously active sources are not implemented"}
	}
	if c.Dt <= 0 {
		return &ConfigError{Field: "Dt", Reason: fmt.Sprintf("must be positive: %v", c.Dt)}
	}
	if c.MeasNoiseSD < 0 {
		return &ConfigError{Field: "MeasNoiseSD", Reason: fmt.Sprintf("must not be negative: %v", c.MeasNoiseSD)}
	}
	if c.NoiseSpecDen < 0 {
		return &ConfigError{Field: "NoiseSpecDen", Reason: fmt.Sprintf("must not be negative: %v", c.NoiseSpecDen)}
	}
	if c.ClutterProb < 0 || c.ClutterProb >= 1 {
		return &ConfigError{Field: "ClutterProb", Reason: fmt.Sprintf("must be in [0, 1): %v", c.ClutterProb)}
	}
	if c.InitBirth < 0 || c.InitBirth > 1 {
		return &ConfigError{Field: "InitBirth", Reason: fmt.Sprintf("must be in [0, 1]: %v", c.InitBirth)}
	}
	if c.Cd <= 0 {
		return &ConfigError{Field: "Cd", Reason: fmt.Sprintf("must be positive: %v", c.Cd)}
	}
	if c.PosVar < 0 || c.VelVar < 0 {
		return &ConfigError{Field: "PosVar/VelVar", Reason: "birth variances must not be negative"}
	}

	return nil
}
