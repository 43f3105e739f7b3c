package tauleap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

type Simulator struct {
	model     Model
	params    Params
	net       *network
	logger    *slog.Logger
	rng       *Source
	solver    LinearSolver
	inst      *Instruments
	interrupt func() bool
	observers []Observer
	metrics   []Metric
	// wait draws the time to the next critical firing; nil means
	// exponential from rng.
	wait func(rate float64) float64

	// run state, exclusively owned by the running simulation
	x     State
	t     float64
	rates []float64
	part  Partition
	prev  StepMode
	last  int
	stats Stats
	pts   []Point

	// scratch buffers for rollback and the implicit solve
	saved      State
	savedRates []float64
	alpha      []float64
	firings    []float64
}

type Option func(*Simulator)

func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

func WithSource(src *Source) Option {
	return func(s *Simulator) { s.rng = src }
}

func WithSeed(seed uint64) Option {
	return func(s *Simulator) { s.rng = NewSource(seed) }
}

func WithSolver(ls LinearSolver) Option {
	return func(s *Simulator) { s.solver = ls }
}

func WithInstruments(in *Instruments) Option {
	return func(s *Simulator) { s.inst = in }
}

// WithInterrupt installs a predicate polled every CheckInterval iterations;
// returning true ends the run early with the points gathered so far.
func WithInterrupt(fn func() bool) Option {
	return func(s *Simulator) { s.interrupt = fn }
}

func New(m Model, p Params, opts ...Option) (*Simulator, error) {
	if m.Rates == nil {
		return nil, ErrNoRateFunc
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	net, err := compile(m)
	if err != nil {
		return nil, err
	}

	n, nt := net.numStates, len(net.changes)
	s := &Simulator{
		model:      m,
		params:     p,
		net:        net,
		x:          make(State, n),
		rates:      make([]float64, nt),
		saved:      make(State, n),
		savedRates: make([]float64, nt),
		alpha:      make([]float64, n),
		firings:    make([]float64, nt),
		last:       NoTransition,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.rng == nil {
		s.rng = NewSource(uint64(time.Now().UnixNano()))
	}
	if s.solver == nil {
		s.solver = NewLUSolver()
	}
	return s, nil
}

func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }
func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }

// Names returns the state variable labels.
func (s *Simulator) Names() []string { return s.net.names }

// RealValued reports which variables may take non-integer values.
func (s *Simulator) RealValued() []bool { return s.net.realValued }

// BalancedPairs returns the forward/reverse pairs found at construction.
func (s *Simulator) BalancedPairs() []Pair { return s.net.pairs }

// Run simulates from the initial state until time tf with adaptive
// tau-leaping. A fatal error returns a nil Result. An early exit returns
// the truncated Result together with an *EarlyExitError.
func (s *Simulator) Run(ctx context.Context, tf float64) (*Result, error) {
	return s.run(ctx, tf, s.stepAdaptive)
}

// RunExact simulates with exact steps only.
func (s *Simulator) RunExact(ctx context.Context, tf float64) (*Result, error) {
	return s.run(ctx, tf, s.stepExact)
}

func (s *Simulator) run(ctx context.Context, tf float64, step func(tf float64) error) (*Result, error) {
	if math.IsNaN(tf) || tf < 0 {
		return nil, fmt.Errorf("%w: end time must be nonnegative, got %g", ErrInvalidParams, tf)
	}
	s.reset()

	c := 0
	for s.t < tf && (s.params.MaxSteps == 0 || c < s.params.MaxSteps) && !s.halted() {
		err := s.updateRates()
		if err == nil {
			err = step(tf)
		}
		if err != nil {
			var early *EarlyExitError
			if errors.As(err, &early) {
				return s.truncate(early)
			}
			return nil, &SimulationError{Step: c, Time: s.t, State: s.x.Clone(), Wrapped: err}
		}
		c++
		s.stats.Iterations = c
		if c%s.params.CheckInterval == 0 && s.interrupted(ctx) {
			return s.truncate(s.earlyExit("simulation interrupted"))
		}
	}
	return s.result(), nil
}

func (s *Simulator) reset() {
	copy(s.x, s.model.Initial)
	s.t = 0
	s.prev = Exact
	s.last = NoTransition
	s.stats = Stats{}
	s.pts = make([]Point, 0, 64)
	for _, m := range s.metrics {
		m.Reset()
	}
	s.record()
}

// stepAdaptive is one controller iteration. Rates must be current.
func (s *Simulator) stepAdaptive(tf float64) error {
	s.last = NoTransition
	ClassifyDynamic(s.x, s.net.changes, s.net.static, s.params.CriticalThreshold, &s.part)

	criticalRate, noncritRate := 0.0, 0.0
	for _, j := range s.net.byStatic[Deterministic] {
		noncritRate += s.rates[j]
	}
	for _, j := range s.part.Critical {
		criticalRate += s.rates[j]
	}
	for _, j := range s.part.Normal {
		noncritRate += s.rates[j]
	}
	total := criticalRate + noncritRate
	if total == 0 {
		// nothing can ever happen again
		s.t = tf
		s.record()
		return nil
	}
	if math.IsInf(total, 0) || math.IsNaN(total) {
		return s.earlyExit("infinite transition rate")
	}

	tauEx, err := ExplicitBound(s.x, s.rates, s.part.Normal, s.net.changes, s.net.bound, s.params.Epsilon)
	if err != nil {
		return err
	}
	tauIm := 0.0
	if s.model.Jacobian != nil {
		tauIm = ImplicitBound(s.x, s.rates, s.part.Normal, s.net.changes, s.net.pairs, s.net.bound,
			s.params.Delta, s.params.Epsilon)
	}
	mode, tau := ChooseMode(tauEx, tauIm, s.params.Stiffness)
	if tau, err = s.capTau(tau, tf); err != nil {
		return err
	}

	for {
		if !(tau > 0) {
			return fmt.Errorf("%w: selected tau %g is not positive", ErrInternal, tau)
		}
		if tau < s.params.ExactThreshold/total {
			s.trace(1, "taking exact steps", "time", s.t, "tau", tau)
			burst := s.params.ExactBurst.For(s.prev)
			s.prev = Exact
			return s.exactBurst(burst, tf)
		}

		tauCrit := s.criticalWait(criticalRate)
		var status StepStatus
		if mode == Explicit || (tauCrit < tau && tauCrit < tauEx) {
			status = s.stepExplicit(math.Min(tau, tauCrit))
		} else {
			if status, err = s.stepImplicit(tau); err != nil {
				return err
			}
		}
		if status == TooBig {
			s.stats.RejectedLeaps++
			s.inst.rejectedLeap()
			s.trace(1, "tau too big; cutting in half", "time", s.t, "tau", tau)
			tau /= 2
			continue
		}

		if firesCritical(tau, tauCrit) {
			j, err := s.pickCritical(criticalRate)
			if err != nil {
				return err
			}
			if err := s.fireCritical(j); err != nil {
				return err
			}
		}
		s.record()
		break
	}
	s.prev = mode
	return nil
}

// criticalWait is +Inf when no critical transition can fire.
func (s *Simulator) criticalWait(rate float64) float64 {
	if !(rate > 0) {
		return math.Inf(1)
	}
	if s.wait != nil {
		return s.wait(rate)
	}
	return s.rng.Exponential(rate)
}

// firesCritical reports whether a leap of length tau reaches the critical
// wait. A leap exactly as long as the wait fires nothing.
func firesCritical(tau, tauCrit float64) bool { return tau > tauCrit }

func (s *Simulator) exactBurst(n int, tf float64) error {
	for i := 0; i < n && s.t < tf; i++ {
		if i > 0 {
			if err := s.updateRates(); err != nil {
				return err
			}
		}
		if err := s.stepExact(tf); err != nil {
			return err
		}
		if s.halted() {
			return nil
		}
	}
	return nil
}

// capTau limits tau by the time left, the global maximum and the
// caller's max tau callback.
func (s *Simulator) capTau(tau, tf float64) (float64, error) {
	if rem := tf - s.t; tau > rem {
		tau = rem
	}
	if tau > s.params.MaxTau {
		tau = s.params.MaxTau
	}
	if s.model.MaxTau != nil {
		var bound float64
		var err error
		s.rng.Guard(func() { bound, err = s.model.MaxTau(s.x, s.model.Params, s.t) })
		if err != nil {
			return 0, fmt.Errorf("max tau function: %w", err)
		}
		if !(bound > 0) {
			return 0, fmt.Errorf("%w: callback returned %g", ErrMaxTau, bound)
		}
		if bound < tau {
			tau = bound
		}
	}
	return tau, nil
}

// updateRates evaluates the rate callback at the current state.
func (s *Simulator) updateRates() error {
	if s.params.ExtraChecks {
		for i, v := range s.x {
			if v < 0 || math.IsNaN(v) {
				return &ModelError{Transition: -1, Variable: i, Wrapped: ErrInvalidState,
					Message: fmt.Sprintf("%s is %g (check rate function and/or transition matrix)", s.net.names[i], v)}
			}
		}
	}

	var rates []float64
	var err error
	s.rng.Guard(func() { rates, err = s.model.Rates(s.x, s.model.Params, s.t) })
	if err != nil {
		return fmt.Errorf("rate function: %w", err)
	}
	if len(rates) != len(s.rates) {
		return fmt.Errorf("%w: got %d, transition matrix has %d", ErrRateLength, len(rates), len(s.rates))
	}
	if s.params.ExtraChecks {
		for j, r := range rates {
			if math.IsNaN(r) {
				return &ModelError{Transition: j, Variable: -1, Wrapped: ErrInvalidRate,
					Message: "rate is not a number (check for division by zero or similar)"}
			}
			if r < 0 {
				return &ModelError{Transition: j, Variable: -1, Wrapped: ErrInvalidRate,
					Message: fmt.Sprintf("rate is negative (%g)", r)}
			}
		}
	}
	copy(s.rates, rates)
	return nil
}

func (s *Simulator) callJacobian() (mat.Matrix, error) {
	var jac mat.Matrix
	var err error
	s.rng.Guard(func() { jac, err = s.model.Jacobian(s.x, s.model.Params, s.t) })
	if err != nil {
		return nil, fmt.Errorf("jacobian function: %w", err)
	}
	if jac == nil {
		return nil, fmt.Errorf("%w: callback returned no matrix", ErrJacobian)
	}
	if r, c := jac.Dims(); r != s.net.numStates || c != len(s.net.changes) {
		return nil, fmt.Errorf("%w: returned a %d by %d matrix instead of the expected %d by %d (variables by transitions)",
			ErrJacobian, r, c, s.net.numStates, len(s.net.changes))
	}
	return jac, nil
}

func (s *Simulator) halted() bool {
	return s.last != NoTransition && s.net.static[s.last] == Halting
}

func (s *Simulator) interrupted(ctx context.Context) bool {
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	return s.interrupt != nil && s.interrupt()
}

// record appends the current state to the time series.
func (s *Simulator) record() {
	p := Point{Time: s.t, State: s.x.Clone()}
	s.pts = append(s.pts, p)
	for _, m := range s.metrics {
		m.Observe(p.State, p.Time)
	}
	for _, o := range s.observers {
		o.OnPoint(p)
	}
	s.trace(2, "state", "time", s.t, "x", []float64(p.State))
}

func (s *Simulator) earlyExit(reason string) *EarlyExitError {
	return &EarlyExitError{Time: s.t, Steps: s.stats.Iterations, Reason: reason}
}

func (s *Simulator) truncate(e *EarlyExitError) (*Result, error) {
	s.logger.Warn("run truncated", "reason", e.Reason, "time", e.Time, "steps", e.Steps)
	s.inst.earlyExit(e.Reason)
	res := s.result()
	res.Diagnostic = e.Error()
	return res, e
}

func (s *Simulator) result() *Result {
	res := &Result{
		Names:             s.net.names,
		Points:            s.pts,
		HasHalting:        len(s.net.byStatic[Halting]) > 0,
		HaltingTransition: NoTransition,
		Stats:             s.stats,
		Metrics:           make(map[string]float64, len(s.metrics)),
	}
	if s.halted() {
		res.HaltingTransition = s.last
	}
	for _, m := range s.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	return res
}

func (s *Simulator) trace(level int, msg string, args ...any) {
	if s.params.Verbosity < level {
		return
	}
	if level >= 2 {
		s.logger.Debug(msg, args...)
		return
	}
	s.logger.Info(msg, args...)
}

func (s *Simulator) warn(msg string, args ...any) {
	s.stats.Warnings++
	s.logger.Warn(msg, args...)
}
