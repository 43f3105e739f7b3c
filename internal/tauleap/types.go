package tauleap

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// NoTransition marks the absence of a fired transition.
const NoTransition = -1

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// firstNegative returns the index of the first negative entry, or -1.
func (s State) firstNegative() int {
	for i, v := range s {
		if v < 0 {
			return i
		}
	}
	return -1
}

func (s State) sqNorm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return sum
}

// Change is one entry of a transition's stoichiometry: firing the transition
// adds Mag to state variable State (0-based).
type Change struct {
	State int
	Mag   int
}

// Category tags a transition for the current controller iteration.
type Category int

const (
	Normal Category = iota
	Critical
	Deterministic
	Halting
)

func (c Category) String() string {
	switch c {
	case Normal:
		return "normal"
	case Critical:
		return "critical"
	case Deterministic:
		return "deterministic"
	case Halting:
		return "halting"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// StepMode is the kind of step the controller took.
type StepMode int

const (
	Exact StepMode = iota
	Explicit
	Implicit
)

func (m StepMode) String() string {
	switch m {
	case Exact:
		return "exact"
	case Explicit:
		return "explicit"
	case Implicit:
		return "implicit"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// StepStatus is returned by the leap steppers. TooBig means the step would
// have driven a variable negative and the state was restored.
type StepStatus int

const (
	Committed StepStatus = iota
	TooBig
)

// Pair is a forward/reverse pair of transitions with exactly negated
// stoichiometry.
type Pair struct {
	First, Second int
}

// Parameters are handed untouched to every callback.
type Parameters map[string]float64

// RateFunc returns one nonnegative rate per transition.
type RateFunc func(x State, p Parameters, t float64) ([]float64, error)

// JacobianFunc returns the states × transitions matrix of ∂rate_j/∂x_i.
type JacobianFunc func(x State, p Parameters, t float64) (mat.Matrix, error)

// MaxTauFunc returns an upper bound on the leap size for the current state.
type MaxTauFunc func(x State, p Parameters, t float64) (float64, error)

type Point struct {
	Time  float64
	State State
}

// Observer is notified of every point appended to the time series.
type Observer interface {
	OnPoint(p Point)
}

// Metric summarizes a run from the recorded points.
type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

// Stats counts what the controller did during one run.
type Stats struct {
	Iterations       int `json:"iterations"`
	ExactSteps       int `json:"exact_steps"`
	ExplicitSteps    int `json:"explicit_steps"`
	ImplicitSteps    int `json:"implicit_steps"`
	RejectedLeaps    int `json:"rejected_leaps"`
	CriticalFirings  int `json:"critical_firings"`
	NewtonIterations int `json:"newton_iterations"`
	Warnings         int `json:"warnings"`
}

type Result struct {
	Names  []string
	Points []Point

	// HasHalting reports whether the model declared halting transitions.
	HasHalting bool
	// HaltingTransition is the halting transition that ended the run, or
	// NoTransition.
	HaltingTransition int

	// Diagnostic is set when the run was truncated by an early exit.
	Diagnostic string

	Stats   Stats
	Metrics map[string]float64
}

// Final returns the last recorded point.
func (r *Result) Final() Point {
	return r.Points[len(r.Points)-1]
}

// Times returns the time column of the series.
func (r *Result) Times() []float64 {
	ts := make([]float64, len(r.Points))
	for i, p := range r.Points {
		ts[i] = p.Time
	}
	return ts
}

// Column returns the trajectory of variable i.
func (r *Result) Column(i int) []float64 {
	col := make([]float64, len(r.Points))
	for k, p := range r.Points {
		col[k] = p.State[i]
	}
	return col
}

// HaltingLabel returns the name used in reports for the halting transition.
func (r *Result) HaltingLabel(transitionNames []string) string {
	if r.HaltingTransition == NoTransition {
		return "none"
	}
	if r.HaltingTransition < len(transitionNames) && transitionNames[r.HaltingTransition] != "" {
		return transitionNames[r.HaltingTransition]
	}
	return fmt.Sprintf("%d", r.HaltingTransition+1)
}
