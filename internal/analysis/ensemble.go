package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/tauleap/internal/tauleap"
)

var ErrNoRuns = errors.New("analysis: no runs")

// Grid returns n evenly spaced times from 0 to tf inclusive.
func Grid(tf float64, n int) []float64 {
	if n < 2 {
		return []float64{0}
	}
	g := make([]float64, n)
	for i := range g {
		g[i] = tf * float64(i) / float64(n-1)
	}
	g[n-1] = tf
	return g
}

// Resample evaluates a piecewise-constant trajectory at the grid times: the
// value at g is the state of the last point recorded at or before g. Times
// past the end of a truncated run hold its last state.
func Resample(pts []tauleap.Point, grid []float64) []tauleap.State {
	out := make([]tauleap.State, len(grid))
	if len(pts) == 0 {
		return out
	}
	k := 0
	for i, g := range grid {
		for k+1 < len(pts) && pts[k+1].Time <= g {
			k++
		}
		out[i] = pts[k].State
	}
	return out
}

// Summary holds per-variable ensemble statistics on a grid. Mean[i][k] is
// variable i at grid point k.
type Summary struct {
	Names []string
	Grid  []float64
	Runs  int
	Mean  [][]float64
	Std   [][]float64
}

func Summarize(results []*tauleap.Result, grid []float64) (*Summary, error) {
	if len(results) == 0 {
		return nil, ErrNoRuns
	}
	dim := len(results[0].Names)
	sampled := make([][]tauleap.State, len(results))
	for r, res := range results {
		if len(res.Names) != dim {
			return nil, fmt.Errorf("run %d has %d variables, want %d", r, len(res.Names), dim)
		}
		sampled[r] = Resample(res.Points, grid)
	}

	s := &Summary{
		Names: results[0].Names,
		Grid:  grid,
		Runs:  len(results),
		Mean:  make([][]float64, dim),
		Std:   make([][]float64, dim),
	}
	column := make([]float64, len(results))
	for i := 0; i < dim; i++ {
		s.Mean[i] = make([]float64, len(grid))
		s.Std[i] = make([]float64, len(grid))
		for k := range grid {
			for r := range sampled {
				column[r] = sampled[r][k][i]
			}
			if len(column) == 1 {
				s.Mean[i][k] = column[0]
				continue
			}
			s.Mean[i][k], s.Std[i][k] = stat.MeanStdDev(column, nil)
		}
	}
	return s, nil
}

// Final returns the ensemble mean and standard deviation at the last grid
// point.
func (s *Summary) Final(i int) (mean, std float64) {
	k := len(s.Grid) - 1
	return s.Mean[i][k], s.Std[i][k]
}

// ExtinctionProbability is the fraction of runs that end with variable i at
// zero.
func ExtinctionProbability(results []*tauleap.Result, i int) float64 {
	if len(results) == 0 {
		return 0
	}
	n := 0
	for _, res := range results {
		if res.Final().State[i] == 0 {
			n++
		}
	}
	return float64(n) / float64(len(results))
}

// HaltingFrequency counts, per halting transition label, the fraction of
// runs it ended. Runs that were not halted count under "none".
func HaltingFrequency(results []*tauleap.Result, transitionNames []string) map[string]float64 {
	freq := make(map[string]float64)
	if len(results) == 0 {
		return freq
	}
	w := 1 / float64(len(results))
	for _, res := range results {
		freq[res.HaltingLabel(transitionNames)] += w
	}
	return freq
}

// CompareODE returns, per variable, the root mean square distance between
// the ensemble mean and the deterministic solution interpolated onto the
// summary grid.
func CompareODE(s *Summary, ode []tauleap.Point) ([]float64, error) {
	if len(ode) == 0 {
		return nil, errors.New("analysis: empty deterministic solution")
	}
	if len(ode[0].State) != len(s.Mean) {
		return nil, fmt.Errorf("deterministic solution has %d variables, want %d", len(ode[0].State), len(s.Mean))
	}
	ref := interpolate(ode, s.Grid)
	rms := make([]float64, len(s.Mean))
	for i := range s.Mean {
		sum := 0.0
		for k := range s.Grid {
			d := s.Mean[i][k] - ref[k][i]
			sum += d * d
		}
		rms[i] = math.Sqrt(sum / float64(len(s.Grid)))
	}
	return rms, nil
}

// interpolate evaluates a continuous solution at the grid times linearly,
// holding the end values outside its range.
func interpolate(pts []tauleap.Point, grid []float64) []tauleap.State {
	out := make([]tauleap.State, len(grid))
	k := 0
	for i, g := range grid {
		for k+1 < len(pts) && pts[k+1].Time <= g {
			k++
		}
		if k+1 >= len(pts) || g <= pts[k].Time {
			out[i] = pts[k].State
			continue
		}
		a, b := pts[k], pts[k+1]
		w := (g - a.Time) / (b.Time - a.Time)
		x := make(tauleap.State, len(a.State))
		for j := range x {
			x[j] = a.State[j] + w*(b.State[j]-a.State[j])
		}
		out[i] = x
	}
	return out
}
