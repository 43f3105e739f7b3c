package optim

import (
	"context"
	"fmt"
	"maps"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/tauleap/internal/experiment"
)

// Point is one grid cell of a sweep: the parameter overrides used and the
// ensemble mean and standard deviation of the objective metric.
type Point struct {
	Params map[string]float64
	Mean   float64
	Std    float64
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("%d parameters but %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("parameter %s has no values", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	vs := make([]float64, n)
	for i := range vs {
		vs[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return vs
}

// Search runs an ensemble of runs at every grid cell and returns all cells in
// grid order together with the cell that minimizes the mean of metricName.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
	runs int,
) ([]Point, Point, error) {
	var all []Point
	best := Point{Mean: math.Inf(1)}
	err := g.searchRecursive(ctx, 0, make(map[string]float64), func(current map[string]float64) error {
		exp, err := buildExperiment(current)
		if err != nil {
			return err
		}
		results, err := exp.Ensemble(ctx, runs)
		if err != nil {
			return err
		}
		vals := make([]float64, len(results))
		for i, res := range results {
			v, ok := res.Metrics[metricName]
			if !ok {
				return fmt.Errorf("run did not report metric %q", metricName)
			}
			vals[i] = v
		}
		p := Point{Params: maps.Clone(current)}
		if len(vals) > 1 {
			p.Mean, p.Std = stat.MeanStdDev(vals, nil)
		} else {
			p.Mean = vals[0]
		}
		all = append(all, p)
		if p.Mean < best.Mean {
			best = p
		}
		return nil
	})
	if err != nil {
		return all, best, err
	}
	return all, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	visit func(map[string]float64) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		return visit(current)
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := maps.Clone(current)
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, visit); err != nil {
			return err
		}
	}
	return nil
}
