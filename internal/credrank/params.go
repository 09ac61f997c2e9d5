package credrank

import (
	"math"

	"github.com/roach88/grainrank/internal/errs"
)

// Default engine parameters.
const (
	DefaultConvergenceThreshold = 1e-7
	DefaultMaxIterations        = 255
	DefaultTotalMass            = 1000
)

// Params controls the graph walk.
type Params struct {
	// ConvergenceThreshold is the L1 distance between successive
	// distributions below which a period is considered converged.
	ConvergenceThreshold float64 `yaml:"convergenceThreshold" json:"convergenceThreshold"`

	// MaxIterations caps power iteration per period. Reaching it is a soft
	// stop, not a failure.
	MaxIterations int `yaml:"maxIterations" json:"maxIterations"`

	// TotalMass scales each period's stationary distribution.
	TotalMass float64 `yaml:"totalMass" json:"totalMass"`
}

// DefaultParams returns the default parameters.
func DefaultParams() Params {
	return Params{
		ConvergenceThreshold: DefaultConvergenceThreshold,
		MaxIterations:        DefaultMaxIterations,
		TotalMass:            DefaultTotalMass,
	}
}

// WithDefaults fills zero fields from DefaultParams.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.ConvergenceThreshold == 0 {
		p.ConvergenceThreshold = d.ConvergenceThreshold
	}
	if p.MaxIterations == 0 {
		p.MaxIterations = d.MaxIterations
	}
	if p.TotalMass == 0 {
		p.TotalMass = d.TotalMass
	}
	return p
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if math.IsNaN(p.ConvergenceThreshold) || math.IsInf(p.ConvergenceThreshold, 0) || p.ConvergenceThreshold <= 0 {
		return errs.InvalidConfiguration("convergenceThreshold must be positive and finite, got %v", p.ConvergenceThreshold)
	}
	if p.MaxIterations < 1 {
		return errs.InvalidConfiguration("maxIterations must be at least 1, got %d", p.MaxIterations)
	}
	if math.IsNaN(p.TotalMass) || math.IsInf(p.TotalMass, 0) || p.TotalMass <= 0 {
		return errs.InvalidConfiguration("totalMass must be positive and finite, got %v", p.TotalMass)
	}
	return nil
}
