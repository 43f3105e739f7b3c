package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/tauleap/internal/integrators"
	"github.com/san-kum/tauleap/internal/reaction"
	"github.com/san-kum/tauleap/internal/tauleap"
)

type Config struct {
	Time float64
	// Seed 0 picks a seed from the clock.
	Seed      uint64
	Exact     bool
	Overrides map[string]float64
	Params    tauleap.Params
	// Metrics are "kind:species" specs; empty means the defaults.
	Metrics []string
}

// Experiment binds a compiled network to run settings. Runs in an ensemble
// use consecutive seeds starting at Seed().
type Experiment struct {
	cfg     Config
	network *reaction.Network
	system  *reaction.System
	reg     *Registry
	seed    uint64

	logger    *slog.Logger
	inst      *tauleap.Instruments
	interrupt func() bool
}

type Option func(*Experiment)

func WithLogger(l *slog.Logger) Option {
	return func(e *Experiment) { e.logger = l }
}

func WithInstruments(in *tauleap.Instruments) Option {
	return func(e *Experiment) { e.inst = in }
}

func WithInterrupt(fn func() bool) Option {
	return func(e *Experiment) { e.interrupt = fn }
}

func New(n *reaction.Network, cfg Config, opts ...Option) (*Experiment, error) {
	if cfg.Time < 0 {
		return nil, fmt.Errorf("end time must be nonnegative, got %g", cfg.Time)
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	sys, err := n.Compile(cfg.Overrides)
	if err != nil {
		return nil, err
	}
	e := &Experiment{
		cfg:     cfg,
		network: n,
		system:  sys,
		reg:     NewRegistry(),
		seed:    cfg.Seed,
		logger:  slog.New(slog.DiscardHandler),
	}
	if e.seed == 0 {
		e.seed = uint64(time.Now().UnixNano())
	}
	for _, opt := range opts {
		opt(e)
	}
	if _, err := e.reg.Metrics(sys.Names(), cfg.Metrics); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Experiment) Seed() uint64               { return e.seed }
func (e *Experiment) Network() *reaction.Network { return e.network }
func (e *Experiment) System() *reaction.System   { return e.system }
func (e *Experiment) Config() Config             { return e.cfg }

// Run simulates one trajectory with Seed(), reporting every point to obs. An
// early exit returns the truncated result together with the error.
func (e *Experiment) Run(ctx context.Context, obs ...tauleap.Observer) (*tauleap.Result, error) {
	return e.runSeed(ctx, e.seed, obs)
}

// Ensemble simulates runs trajectories one after another. A run that exits
// early keeps its truncated result; a fatal error stops the ensemble.
func (e *Experiment) Ensemble(ctx context.Context, runs int) ([]*tauleap.Result, error) {
	if runs < 1 {
		return nil, fmt.Errorf("runs must be at least 1, got %d", runs)
	}
	results := make([]*tauleap.Result, 0, runs)
	for i := 0; i < runs; i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		seed := e.seed + uint64(i)
		res, err := e.runSeed(ctx, seed, nil)
		var early *tauleap.EarlyExitError
		switch {
		case errors.As(err, &early):
			e.logger.Warn("ensemble run truncated", "run", i, "seed", seed, "reason", early.Reason)
		case err != nil:
			return results, fmt.Errorf("run %d (seed %d): %w", i, seed, err)
		}
		results = append(results, res)
		e.logger.Debug("ensemble run done", "run", i, "seed", seed, "points", len(res.Points))
	}
	return results, nil
}

// Deterministic integrates the mean-field rate equations of the network on a
// grid of step dt.
func (e *Experiment) Deterministic(ctx context.Context, integrator string, dt float64) ([]tauleap.Point, error) {
	integ, err := e.reg.GetIntegrator(integrator)
	if err != nil {
		return nil, err
	}
	return integrators.Solve(ctx, e.system, integ, e.system.Model().Initial, e.cfg.Time, dt)
}

func (e *Experiment) runSeed(ctx context.Context, seed uint64, observers []tauleap.Observer) (*tauleap.Result, error) {
	opts := []tauleap.Option{
		tauleap.WithSeed(seed),
		tauleap.WithLogger(e.logger.With("seed", seed)),
		tauleap.WithInstruments(e.inst),
	}
	if e.interrupt != nil {
		opts = append(opts, tauleap.WithInterrupt(e.interrupt))
	}
	s, err := tauleap.New(e.system.Model(), e.cfg.Params, opts...)
	if err != nil {
		return nil, err
	}
	ms, err := e.reg.Metrics(s.Names(), e.cfg.Metrics)
	if err != nil {
		return nil, err
	}
	for _, m := range ms {
		s.AddMetric(m)
	}
	for _, o := range observers {
		s.AddObserver(o)
	}

	start := time.Now()
	run := s.Run
	if e.cfg.Exact {
		run = s.RunExact
	}
	res, err := run(ctx, e.cfg.Time)
	if res != nil {
		e.logger.Info("run finished",
			"seed", seed,
			"points", len(res.Points),
			"iterations", res.Stats.Iterations,
			"elapsed", time.Since(start))
	}
	return res, err
}
