package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/san-kum/tauleap/internal/config"
	"github.com/san-kum/tauleap/internal/experiment"
	"github.com/san-kum/tauleap/internal/tauleap"
)

var (
	dataDir     string
	configFile  string
	endTime     float64
	seed        uint64
	runs        int
	epsilon     float64
	maxSteps    int
	metricsFile string
	verbose     int
	paramFlags  []string
	metricSpecs []string
	integrator  string
	dt          float64
	outFile     string
	varNames    []string
	xAxis       string
	yAxis       string
	sweepGrid   []string
	sweepMetric string
	gridPoints  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "tauleap",
		Short:         "adaptive tau-leaping simulator for reaction networks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".tauleap", "data directory")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "log step decisions (-v) and states (-vv)")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "simulate one trajectory with adaptive tau-leaping",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation(false),
	}
	exactCmd := &cobra.Command{
		Use:   "exact [model]",
		Short: "simulate one trajectory with exact steps only",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation(true),
	}
	ensembleCmd := &cobra.Command{
		Use:   "ensemble [model]",
		Short: "simulate many trajectories and summarize them",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	odeCmd := &cobra.Command{
		Use:   "ode [model]",
		Short: "integrate the deterministic rate equations",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runODE,
	}
	watchCmd := &cobra.Command{
		Use:   "watch [model]",
		Short: "simulate one trajectory with a live view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWatch,
	}
	sweepCmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "grid search over network parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	for _, c := range []*cobra.Command{runCmd, exactCmd, ensembleCmd, odeCmd, watchCmd, sweepCmd} {
		addSimulationFlags(c)
	}
	ensembleCmd.Flags().IntVar(&runs, "runs", config.DefaultRuns, "number of runs")
	ensembleCmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator for the deterministic comparison")
	ensembleCmd.Flags().StringVarP(&outFile, "out", "o", "", "render the ensemble mean to an image (png, svg, pdf)")
	ensembleCmd.Flags().IntVar(&gridPoints, "grid", config.DefaultGrid, "time grid points")
	odeCmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator (euler, rk4, rk45)")
	odeCmd.Flags().Float64Var(&dt, "dt", 0.01, "step")
	sweepCmd.Flags().IntVar(&runs, "runs", config.DefaultRuns, "runs per grid point")
	sweepCmd.Flags().StringArrayVar(&sweepGrid, "values", nil, "parameter values: name=a,b,c or name=lo:hi:n")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "", "metric to minimize, e.g. final_X")
	_ = sweepCmd.MarkFlagRequired("values")
	_ = sweepCmd.MarkFlagRequired("metric")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the experiments listed in a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().StringVar(&configFile, "config", "", "run file whose params block applies to every step")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}
	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "chart a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&varNames, "var", nil, "variables to chart (default all)")
	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase portrait of two variables of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().StringVar(&xAxis, "x", "", "variable on the x axis (default first)")
	phaseCmd.Flags().StringVar(&yAxis, "y", "", "variable on the y axis (default second)")
	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "oscillation periods of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&gridPoints, "grid", 512, "time grid points")
	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "render a stored run to an image",
		Args:  cobra.ExactArgs(1),
		RunE:  renderRun,
	}
	renderCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default <run_id>.png)")
	renderCmd.Flags().StringSliceVar(&varNames, "var", nil, "variables to draw (default all)")
	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list built-in models, or print one as a model file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}

	rootCmd.AddCommand(runCmd, exactCmd, ensembleCmd, odeCmd, watchCmd, sweepCmd, scenarioCmd,
		listCmd, plotCmd, phaseCmd, analyzeCmd, renderCmd, exportCSVCmd, exportJSONCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSimulationFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&configFile, "config", "", "run file (yaml)")
	f.Float64Var(&endTime, "time", config.DefaultTime, "end time")
	f.Uint64Var(&seed, "seed", 0, "random seed (0 picks one from the clock)")
	f.Float64Var(&epsilon, "epsilon", 0, "leap error control (default from params)")
	f.IntVar(&maxSteps, "max-steps", 0, "cap on controller iterations (0 means none)")
	f.StringVar(&metricsFile, "metrics-file", "", "write engine counters in prometheus text format")
	f.StringArrayVarP(&paramFlags, "param", "p", nil, "override a network parameter: name=value")
	f.StringArrayVar(&metricSpecs, "metric-of", nil, "per-run metric: kind:species (mean, peak, extinction, final)")
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbose >= 2:
		level = slog.LevelDebug
	case verbose == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// session is everything a simulation command needs.
type session struct {
	model    string
	cfg      *config.Config
	exp      *experiment.Experiment
	registry *prometheus.Registry
	logger   *slog.Logger
}

// newSession merges the run file, flags and model into an experiment. Flags
// override the run file only when set.
func newSession(cmd *cobra.Command, args []string, exact bool) (*session, error) {
	logger := newLogger()
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	flags := cmd.Flags()
	if len(args) > 0 {
		cfg.Model = args[0]
	}
	if flags.Changed("time") {
		cfg.Time = endTime
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	cfg.Exact = cfg.Exact || exact
	if flags.Changed("runs") {
		cfg.Runs = runs
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("grid") {
		cfg.Grid = gridPoints
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	params, err := cfg.EngineParams(logger)
	if err != nil {
		return nil, err
	}
	if flags.Changed("epsilon") {
		params.Epsilon = epsilon
	}
	if flags.Changed("max-steps") {
		params.MaxSteps = maxSteps
	}
	params.Verbosity = max(params.Verbosity, verbose)

	overrides := make(map[string]float64, len(cfg.Parameters)+len(paramFlags))
	for k, v := range cfg.Parameters {
		overrides[k] = v
	}
	for _, kv := range paramFlags {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--param %q: want name=value", kv)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("--param %s: %w", name, err)
		}
		overrides[name] = v
	}

	network, err := experiment.NewRegistry().Resolve(cfg.Model)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	exp, err := experiment.New(network, experiment.Config{
		Time:      cfg.Time,
		Seed:      cfg.Seed,
		Exact:     cfg.Exact,
		Overrides: overrides,
		Params:    params,
		Metrics:   metricSpecs,
	},
		experiment.WithLogger(logger),
		experiment.WithInstruments(tauleap.NewInstruments(reg)),
	)
	if err != nil {
		return nil, err
	}
	return &session{model: network.Name, cfg: cfg, exp: exp, registry: reg, logger: logger}, nil
}

// finish writes the engine counters when --metrics-file is set.
func (s *session) finish() error {
	if metricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(metricsFile, s.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
