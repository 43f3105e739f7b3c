package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/tauleap/internal/analysis"
	"github.com/san-kum/tauleap/internal/config"
	"github.com/san-kum/tauleap/internal/export"
	"github.com/san-kum/tauleap/internal/storage"
	"github.com/san-kum/tauleap/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tSEED\tEND TIME\tITERATIONS\tHALTED BY\tTIMESTAMP")
	for _, r := range runs {
		halted := r.Halting
		if halted == "" {
			halted = "-"
		}
		end := fmt.Sprintf("%g", r.EndTime)
		if r.Diagnostic != "" {
			end += " (truncated)"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\t%s\n",
			r.ID, r.Model, r.Seed, end, r.Stats.Iterations, halted,
			r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

// selectVars maps variable names to indices; none selects all.
func selectVars(names, selected []string) ([]int, error) {
	idx := make([]int, 0, len(selected))
	for _, s := range selected {
		i := slices.Index(names, s)
		if i < 0 {
			return nil, fmt.Errorf("unknown variable %q (have %s)", s, strings.Join(names, ", "))
		}
		idx = append(idx, i)
	}
	return idx, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, res, err := storage.New(dataDir).LoadResult(args[0])
	if err != nil {
		return err
	}
	vars, err := selectVars(res.Names, varNames)
	if err != nil {
		return err
	}
	chart, err := viz.PlotRun(res, vars, 70, 15)
	if err != nil {
		return err
	}
	fmt.Printf("%s (seed %d)\n\n%s\n", meta.Model, meta.Seed, chart)
	if meta.Halting != "" {
		fmt.Printf("haltingTransition: %s\n", meta.Halting)
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	_, res, err := storage.New(dataDir).LoadResult(args[0])
	if err != nil {
		return err
	}
	if len(res.Names) < 2 {
		return fmt.Errorf("phase portrait needs two variables, run has %d", len(res.Names))
	}
	sel, err := selectVars(res.Names, []string{orDefault(xAxis, res.Names[0]), orDefault(yAxis, res.Names[1])})
	if err != nil {
		return err
	}
	x, y := sel[0], sel[1]
	portrait, err := analysis.NewPhasePortrait(res, x, y)
	if err != nil {
		return err
	}
	fmt.Print(portrait.ASCII(60, 20))
	return nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	_, res, err := storage.New(dataDir).LoadResult(args[0])
	if err != nil {
		return err
	}
	tf := res.Final().Time
	if tf <= 0 || gridPoints < 4 {
		return fmt.Errorf("run too short to analyze")
	}
	grid := analysis.Grid(tf, gridPoints)
	step := grid[1] - grid[0]
	sampled := analysis.Resample(res.Points, grid)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VARIABLE\tDOMINANT PERIOD\tPEAK POWER")
	for i, name := range res.Names {
		series := make([]float64, len(grid))
		for k := range grid {
			series[k] = sampled[k][i]
		}
		period := analysis.DominantPeriod(series, step)
		ps := analysis.PowerSpectrum(series)
		if period == 0 {
			fmt.Fprintf(w, "%s\t-\t0\n", name)
			continue
		}
		fmt.Fprintf(w, "%s\t%.4g\t%.4g\n", name, period, slices.Max(ps[1:]))
	}
	return w.Flush()
}

func renderRun(cmd *cobra.Command, args []string) error {
	meta, res, err := storage.New(dataDir).LoadResult(args[0])
	if err != nil {
		return err
	}
	vars, err := selectVars(res.Names, varNames)
	if err != nil {
		return err
	}
	p, err := export.Trajectory(res, fmt.Sprintf("%s (seed %d)", meta.Model, meta.Seed), vars)
	if err != nil {
		return err
	}
	path := outFile
	if path == "" {
		path = args[0] + ".png"
	}
	if err := export.Save(p, path, export.DefaultWidth, export.DefaultHeight); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

// output returns stdout or the --out file.
func output() (io.WriteCloser, error) {
	if outFile == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(outFile)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportCSV(cmd *cobra.Command, args []string) error {
	names, pts, err := storage.New(dataDir).LoadStates(args[0])
	if err != nil {
		return err
	}
	w, err := output()
	if err != nil {
		return err
	}
	if err := storage.WriteCSV(w, names, pts); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	w, err := output()
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).ExportJSON(w, args[0]); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		n := config.GetPreset(args[0])
		if n == nil {
			return fmt.Errorf("unknown preset: %s (available: %s)", args[0], strings.Join(config.ListPresets(), ", "))
		}
		data, err := n.Marshal()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range config.ListPresets() {
		n := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\n", name, n.Description)
	}
	return w.Flush()
}
