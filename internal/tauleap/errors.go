package tauleap

import (
	"errors"
	"fmt"
)

// Model and setup errors.
var (
	// ErrBadStoichiometry indicates a change that references a nonexistent variable.
	ErrBadStoichiometry = errors.New("tauleap: transition references non-existent state variable")

	// ErrBadFlag indicates a deterministic/halting flag for a nonexistent transition.
	ErrBadFlag = errors.New("tauleap: flag references non-existent transition")

	// ErrAllDeterministic indicates that no transition is stochastic.
	ErrAllDeterministic = errors.New("tauleap: at least one transition must be stochastic")

	// ErrInitialState indicates a negative or non-integral initial value.
	ErrInitialState = errors.New("tauleap: invalid initial state")

	// ErrChangeBound indicates a rate change bound of the wrong length or sign.
	ErrChangeBound = errors.New("tauleap: invalid rate change bound")

	// ErrInvalidParams indicates a tuning parameter outside its valid range.
	ErrInvalidParams = errors.New("tauleap: invalid parameters")

	// ErrNoRateFunc indicates a model without a rate callback.
	ErrNoRateFunc = errors.New("tauleap: rate function is required")
)

// Errors raised while running.
var (
	// ErrRateLength indicates the rate callback returned the wrong number of rates.
	ErrRateLength = errors.New("tauleap: rate function returned wrong number of rates")

	// ErrInvalidRate indicates a NaN or negative rate.
	ErrInvalidRate = errors.New("tauleap: invalid rate")

	// ErrInvalidState indicates a negative or NaN variable at a committed point.
	ErrInvalidState = errors.New("tauleap: invalid state")

	// ErrNegativeTau indicates the tau selection produced a negative step.
	ErrNegativeTau = errors.New("tauleap: tried to select tau < 0; most likely a rate is negative")

	// ErrJacobian indicates a Jacobian of the wrong shape or a missing Jacobian.
	ErrJacobian = errors.New("tauleap: invalid Jacobian")

	// ErrMaxTau indicates the max tau callback returned an unusable bound.
	ErrMaxTau = errors.New("tauleap: invalid max tau")

	// ErrCriticalNegative indicates a critical firing drove a variable negative.
	ErrCriticalNegative = errors.New("tauleap: variable went negative after a critical transition")

	// ErrInternal indicates a broken invariant in the engine itself.
	ErrInternal = errors.New("tauleap: internal logic error")

	// ErrEarlyExit indicates a gracefully truncated run.
	ErrEarlyExit = errors.New("tauleap: early exit")
)

// ModelError wraps a setup error with the offending transition or variable.
type ModelError struct {
	Transition int
	Variable   int
	Message    string
	Wrapped    error
}

func (e *ModelError) Error() string {
	s := e.Wrapped.Error()
	if e.Transition >= 0 {
		s += fmt.Sprintf(" (transition %d)", e.Transition+1)
	}
	if e.Variable >= 0 {
		s += fmt.Sprintf(" (variable %d)", e.Variable+1)
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	return s
}

func (e *ModelError) Unwrap() error {
	return e.Wrapped
}

// SimulationError wraps a fatal error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// EarlyExitError reports a run that stopped before its end time. The
// accompanying Result holds every point recorded up to that moment.
type EarlyExitError struct {
	Time   float64
	Steps  int
	Reason string
}

func (e *EarlyExitError) Error() string {
	return fmt.Sprintf("%s at time %g after %d steps; results returned only up until this point", e.Reason, e.Time, e.Steps)
}

func (e *EarlyExitError) Unwrap() error {
	return ErrEarlyExit
}
