package viz

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/tauleap/internal/analysis"
	"github.com/san-kum/tauleap/internal/tauleap"
)

// PlotRun charts the selected variables of a run, resampled onto width grid
// points. An empty selection charts all of them.
func PlotRun(res *tauleap.Result, vars []int, width, height int) (string, error) {
	if len(res.Points) < 2 {
		return "", fmt.Errorf("need at least 2 points to plot, have %d", len(res.Points))
	}
	if len(vars) == 0 {
		vars = make([]int, len(res.Names))
		for i := range vars {
			vars[i] = i
		}
	}
	grid := analysis.Grid(res.Final().Time, width)
	sampled := analysis.Resample(res.Points, grid)

	series := make([][]float64, len(vars))
	labels := make([]string, len(vars))
	for n, i := range vars {
		if i < 0 || i >= len(res.Names) {
			return "", fmt.Errorf("variable %d out of range", i)
		}
		series[n] = make([]float64, len(grid))
		for k := range grid {
			series[n][k] = sampled[k][i]
		}
		labels[n] = res.Names[i]
	}
	return chart(series, labels, height, res.Final().Time), nil
}

// PlotSummary charts the ensemble mean of every variable.
func PlotSummary(s *analysis.Summary, height int) string {
	return chart(s.Mean, s.Names, height, s.Grid[len(s.Grid)-1])
}

func chart(series [][]float64, labels []string, height int, tf float64) string {
	colors := []asciigraph.AnsiColor{
		asciigraph.Green, asciigraph.Yellow, asciigraph.Blue,
		asciigraph.Red, asciigraph.Cyan, asciigraph.Magenta,
	}
	used := make([]asciigraph.AnsiColor, len(series))
	legend := make([]string, len(series))
	for i := range series {
		used[i] = colors[i%len(colors)]
		legend[i] = used[i].String() + labels[i] + asciigraph.Default.String()
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.SeriesColors(used...),
		asciigraph.Caption(fmt.Sprintf("t = 0 .. %g   %s", tf, strings.Join(legend, "  "))))
}

// Summary reports the outcome of one run.
func Summary(title string, res *tauleap.Result, reactionNames []string) string {
	var b strings.Builder
	b.WriteString(Title.Render(title))
	b.WriteString("\n")
	b.WriteString(Separator(40))
	b.WriteString("\n")

	row := func(label string, value any) {
		fmt.Fprintf(&b, "%s %s\n", MetricLabel.Render(label), MetricValue.Render(fmt.Sprint(value)))
	}
	final := res.Final()
	row("end time", fmt.Sprintf("%.6g", final.Time))
	row("points", len(res.Points))
	for i, name := range res.Names {
		row(name, final.State[i])
	}
	if res.HasHalting {
		fmt.Fprintf(&b, "haltingTransition: %s\n", res.HaltingLabel(reactionNames))
	}

	st := res.Stats
	b.WriteString(Separator(40))
	b.WriteString("\n")
	row("iterations", st.Iterations)
	row("exact steps", st.ExactSteps)
	row("explicit leaps", st.ExplicitSteps)
	row("implicit leaps", st.ImplicitSteps)
	row("rejected leaps", st.RejectedLeaps)
	row("critical firings", st.CriticalFirings)
	if st.Warnings > 0 {
		row("warnings", st.Warnings)
	}

	if len(res.Metrics) > 0 {
		b.WriteString(Separator(40))
		b.WriteString("\n")
		for _, name := range slices.Sorted(maps.Keys(res.Metrics)) {
			row(name, fmt.Sprintf("%.6g", res.Metrics[name]))
		}
	}
	if res.Diagnostic != "" {
		b.WriteString(StatusFailed.Render(res.Diagnostic))
		b.WriteString("\n")
	}
	return b.String()
}
