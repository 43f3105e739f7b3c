package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/tauleap/internal/analysis"
	"github.com/san-kum/tauleap/internal/automation"
	"github.com/san-kum/tauleap/internal/config"
	"github.com/san-kum/tauleap/internal/experiment"
	"github.com/san-kum/tauleap/internal/export"
	"github.com/san-kum/tauleap/internal/optim"
	"github.com/san-kum/tauleap/internal/storage"
	"github.com/san-kum/tauleap/internal/tauleap"
	"github.com/san-kum/tauleap/internal/viz"
)

func runSimulation(exact bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd, args, exact)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		fmt.Printf("running %s (seed %d)...\n", s.model, s.exp.Seed())
		result, runErr := s.exp.Run(ctx)
		var early *tauleap.EarlyExitError
		if runErr != nil && !errors.As(runErr, &early) {
			return runErr
		}
		return s.report(result)
	}
}

func (s *session) report(result *tauleap.Result) error {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	sys := s.exp.System()
	runID, err := st.Save(storage.Run{
		Model:         s.model,
		Seed:          s.exp.Seed(),
		EndTime:       s.cfg.Time,
		Exact:         s.cfg.Exact,
		Params:        s.exp.Config().Params,
		Overrides:     s.exp.Config().Overrides,
		ReactionNames: sys.ReactionNames(),
	}, result)
	if err != nil {
		return err
	}

	fmt.Println(viz.Summary(s.model, result, sys.ReactionNames()))
	fmt.Printf("run id: %s\n", runID)
	return s.finish()
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args, false)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %d runs of %s from seed %d...\n", s.cfg.Runs, s.model, s.exp.Seed())
	results, err := s.exp.Ensemble(ctx, s.cfg.Runs)
	if err != nil {
		return err
	}
	grid := analysis.Grid(s.cfg.Time, s.cfg.Grid)
	sum, err := analysis.Summarize(results, grid)
	if err != nil {
		return err
	}

	fmt.Println(viz.PlotSummary(sum, 12))

	var ode []float64
	if sol, err := s.exp.Deterministic(ctx, s.cfg.Integrator, grid[1]-grid[0]); err != nil {
		s.logger.Warn("skipping deterministic comparison", "err", err)
	} else if ode, err = analysis.CompareODE(sum, sol); err != nil {
		s.logger.Warn("skipping deterministic comparison", "err", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VARIABLE\tFINAL MEAN\tSTD\tP(EXTINCT)\tODE RMS")
	for i, name := range sum.Names {
		mean, std := sum.Final(i)
		rms := "-"
		if ode != nil {
			rms = fmt.Sprintf("%.4g", ode[i])
		}
		fmt.Fprintf(w, "%s\t%.4g\t%.4g\t%.3f\t%s\n", name, mean, std, analysis.ExtinctionProbability(results, i), rms)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if results[0].HasHalting {
		fmt.Println("\nhalting transitions:")
		for label, f := range analysis.HaltingFrequency(results, s.exp.System().ReactionNames()) {
			fmt.Printf("  %s: %.3f\n", label, f)
		}
	}

	if outFile != "" {
		p, err := export.Ensemble(sum, s.model)
		if err != nil {
			return err
		}
		if err := export.Save(p, outFile, export.DefaultWidth, export.DefaultHeight); err != nil {
			return err
		}
		fmt.Printf("\nwrote %s\n", outFile)
	}
	return s.finish()
}

func runODE(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args, false)
	if err != nil {
		return err
	}
	pts, err := s.exp.Deterministic(cmd.Context(), s.cfg.Integrator, dt)
	if err != nil {
		return err
	}
	res := &tauleap.Result{
		Names:             s.exp.System().Names(),
		Points:            pts,
		HaltingTransition: tauleap.NoTransition,
	}
	chart, err := viz.PlotRun(res, nil, 70, 12)
	if err != nil {
		return err
	}
	fmt.Println(chart)
	final := res.Final()
	for i, name := range res.Names {
		fmt.Printf("  %s: %.6g\n", name, final.State[i])
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args, false)
	if err != nil {
		return err
	}
	title := fmt.Sprintf("%s (seed %d)", s.model, s.exp.Seed())
	result, err := viz.Watch(context.Background(), title, s.exp.System().Names(), s.cfg.Time,
		func(ctx context.Context, obs tauleap.Observer) (*tauleap.Result, error) {
			return s.exp.Run(ctx, obs)
		})
	var early *tauleap.EarlyExitError
	if err != nil && !errors.As(err, &early) {
		return err
	}
	if result == nil {
		return nil
	}
	return s.report(result)
}

func runSweep(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args, false)
	if err != nil {
		return err
	}
	names, ranges, err := parseSweep(sweepGrid)
	if err != nil {
		return err
	}
	search, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	network := s.exp.Network()
	base := s.exp.Config()
	build := func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base
		cfg.Seed = s.exp.Seed()
		cfg.Overrides = make(map[string]float64, len(base.Overrides)+len(params))
		for k, v := range base.Overrides {
			cfg.Overrides[k] = v
		}
		for k, v := range params {
			cfg.Overrides[k] = v
		}
		return experiment.New(network, cfg, experiment.WithLogger(s.logger))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	all, best, err := search.Search(ctx, build, sweepMetric, s.cfg.Runs)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tMEAN %s\tSTD\n", strings.ToUpper(strings.Join(names, "\t")), sweepMetric)
	for _, p := range all {
		for _, n := range names {
			fmt.Fprintf(w, "%g\t", p.Params[n])
		}
		fmt.Fprintf(w, "%.6g\t%.4g\n", p.Mean, p.Std)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nminimum %s = %.6g at %v\n", sweepMetric, best.Mean, best.Params)
	return s.finish()
}

// parseSweep reads name=a,b,c or name=lo:hi:n specs.
func parseSweep(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, values, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("--values %q: want name=values", spec)
		}
		var vs []float64
		if parts := strings.Split(values, ":"); len(parts) == 3 {
			lo, err1 := strconv.ParseFloat(parts[0], 64)
			hi, err2 := strconv.ParseFloat(parts[1], 64)
			n, err3 := strconv.Atoi(parts[2])
			if err := errors.Join(err1, err2, err3); err != nil {
				return nil, nil, fmt.Errorf("--values %s: %w", name, err)
			}
			vs = optim.Linspace(lo, hi, n)
		} else {
			for _, field := range strings.Split(values, ",") {
				v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
				if err != nil {
					return nil, nil, fmt.Errorf("--values %s: %w", name, err)
				}
				vs = append(vs, v)
			}
		}
		names = append(names, name)
		ranges = append(ranges, vs)
	}
	return names, ranges, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	cfg := config.DefaultConfig()
	if configFile != "" {
		if cfg, err = config.Load(configFile); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	params, err := cfg.EngineParams(logger)
	if err != nil {
		return err
	}
	params.Verbosity = max(params.Verbosity, verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	steps, err := automation.RunScenario(ctx, scenario, experiment.NewRegistry(), params, logger)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	for i, step := range steps {
		spec := scenario.Steps[i]
		title := fmt.Sprintf("step %d: %s", step.Step, step.Model)
		for r, res := range step.Results {
			if len(step.Results) > 1 {
				title = fmt.Sprintf("step %d: %s run %d", step.Step, step.Model, r+1)
			}
			fmt.Println(viz.Summary(title, res, step.ReactionNames))
			if !spec.Save {
				continue
			}
			runID, err := st.Save(storage.Run{
				Model:         step.Model,
				Seed:          step.Seed + uint64(r),
				EndTime:       spec.Time,
				Exact:         spec.Exact,
				Params:        params,
				Overrides:     spec.Parameters,
				ReactionNames: step.ReactionNames,
			}, res)
			if err != nil {
				return err
			}
			fmt.Printf("run id: %s\n\n", runID)
		}
	}
	return nil
}
