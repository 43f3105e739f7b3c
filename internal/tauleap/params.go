package tauleap

import (
	"fmt"
	"math"
)

// ExactBurst is the number of consecutive exact steps taken when a leap
// would be unproductive, keyed by the mode of the previous step.
type ExactBurst struct {
	AfterExact    int `yaml:"after_exact" json:"after_exact"`
	AfterExplicit int `yaml:"after_explicit" json:"after_explicit"`
	AfterImplicit int `yaml:"after_implicit" json:"after_implicit"`
}

func (b ExactBurst) For(prev StepMode) int {
	switch prev {
	case Explicit:
		return b.AfterExplicit
	case Implicit:
		return b.AfterImplicit
	}
	return b.AfterExact
}

type Params struct {
	// Epsilon bounds the relative change of any variable in one leap.
	Epsilon float64 `yaml:"epsilon" json:"epsilon"`
	// Delta is the relative tolerance for quasi-equilibrium of balanced pairs.
	Delta float64 `yaml:"delta" json:"delta"`
	// CriticalThreshold is the number of remaining firings below which a
	// transition is critical.
	CriticalThreshold int `yaml:"critical_threshold" json:"critical_threshold"`
	// Stiffness is the ratio of implicit to explicit tau required to go implicit.
	Stiffness float64 `yaml:"stiffness" json:"stiffness"`
	// ExactThreshold: leap only when tau exceeds ExactThreshold / total rate.
	ExactThreshold float64    `yaml:"exact_threshold" json:"exact_threshold"`
	MaxTau         float64    `yaml:"max_tau" json:"-"`
	ExactBurst     ExactBurst `yaml:"exact_burst" json:"exact_burst"`
	// NewtonTolerance is the squared relative norm at which Newton stops.
	NewtonTolerance float64 `yaml:"newton_tolerance" json:"newton_tolerance"`
	// MaxSteps caps controller iterations; 0 means unbounded.
	MaxSteps    int  `yaml:"max_steps" json:"max_steps"`
	ExtraChecks bool `yaml:"extra_checks" json:"extra_checks"`
	Verbosity   int  `yaml:"verbosity" json:"verbosity"`
	// CheckInterval is the number of iterations between cancellation checks.
	CheckInterval int `yaml:"check_interval" json:"check_interval"`
}

func DefaultParams() Params {
	return Params{
		Epsilon:           0.05,
		Delta:             0.05,
		CriticalThreshold: 10,
		Stiffness:         100,
		ExactThreshold:    10,
		MaxTau:            math.Inf(1),
		ExactBurst: ExactBurst{
			AfterExact:    100,
			AfterExplicit: 100,
			AfterImplicit: 10,
		},
		NewtonTolerance: 0.01,
		MaxSteps:        0,
		ExtraChecks:     true,
		Verbosity:       0,
		CheckInterval:   10,
	}
}

func (p Params) Validate() error {
	if !(p.Epsilon > 0) {
		return fmt.Errorf("%w: epsilon must be positive, got %g", ErrInvalidParams, p.Epsilon)
	}
	if p.Delta < 0 {
		return fmt.Errorf("%w: delta must be nonnegative, got %g", ErrInvalidParams, p.Delta)
	}
	if p.CriticalThreshold < 0 {
		return fmt.Errorf("%w: critical threshold must be nonnegative, got %d", ErrInvalidParams, p.CriticalThreshold)
	}
	if !(p.Stiffness > 0) {
		return fmt.Errorf("%w: stiffness ratio must be positive, got %g", ErrInvalidParams, p.Stiffness)
	}
	if p.ExactThreshold < 0 {
		return fmt.Errorf("%w: exact threshold must be nonnegative, got %g", ErrInvalidParams, p.ExactThreshold)
	}
	if !(p.MaxTau > 0) {
		return fmt.Errorf("%w: max tau must be positive, got %g", ErrInvalidParams, p.MaxTau)
	}
	if p.ExactBurst.AfterExact < 1 || p.ExactBurst.AfterExplicit < 1 || p.ExactBurst.AfterImplicit < 1 {
		return fmt.Errorf("%w: exact burst counts must be at least 1", ErrInvalidParams)
	}
	if !(p.NewtonTolerance > 0) {
		return fmt.Errorf("%w: newton tolerance must be positive, got %g", ErrInvalidParams, p.NewtonTolerance)
	}
	if p.MaxSteps < 0 {
		return fmt.Errorf("%w: max steps must be nonnegative, got %d", ErrInvalidParams, p.MaxSteps)
	}
	if p.CheckInterval < 1 {
		return fmt.Errorf("%w: check interval must be at least 1, got %d", ErrInvalidParams, p.CheckInterval)
	}
	return nil
}
