package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/tauleap/internal/analysis"
	"github.com/san-kum/tauleap/internal/tauleap"
)

const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 5 * vg.Inch
)

// Trajectory plots the selected variables of a run as step functions. An
// empty selection plots all of them.
func Trajectory(res *tauleap.Result, title string, vars []int) (*plot.Plot, error) {
	if len(res.Points) == 0 {
		return nil, fmt.Errorf("no points to plot")
	}
	if len(vars) == 0 {
		vars = make([]int, len(res.Names))
		for i := range vars {
			vars[i] = i
		}
	}

	p := newPlot(title, "amount")
	for n, i := range vars {
		if i < 0 || i >= len(res.Names) {
			return nil, fmt.Errorf("variable %d out of range", i)
		}
		xys := make(plotter.XYs, len(res.Points))
		for k, pt := range res.Points {
			xys[k].X = pt.Time
			xys[k].Y = pt.State[i]
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", res.Names[i], err)
		}
		l.StepStyle = plotter.PostStep
		l.Color = plotutil.Color(n)
		p.Add(l)
		p.Legend.Add(res.Names[i], l)
	}
	return p, nil
}

// Ensemble plots the ensemble mean of every variable with dashed lines one
// standard deviation above and below.
func Ensemble(s *analysis.Summary, title string) (*plot.Plot, error) {
	p := newPlot(fmt.Sprintf("%s (%d runs)", title, s.Runs), "mean amount")
	for i, name := range s.Names {
		mean := make(plotter.XYs, len(s.Grid))
		lo := make(plotter.XYs, len(s.Grid))
		hi := make(plotter.XYs, len(s.Grid))
		for k, t := range s.Grid {
			m, sd := s.Mean[i][k], s.Std[i][k]
			mean[k] = plotter.XY{X: t, Y: m}
			lo[k] = plotter.XY{X: t, Y: max(m-sd, 0)}
			hi[k] = plotter.XY{X: t, Y: m + sd}
		}
		l, err := plotter.NewLine(mean)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		l.Color = plotutil.Color(i)
		p.Add(l)
		p.Legend.Add(name, l)

		for _, band := range []plotter.XYs{lo, hi} {
			b, err := plotter.NewLine(band)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			b.Color = plotutil.Color(i)
			b.Dashes = plotutil.Dashes(1)
			b.Width = vg.Points(0.5)
			p.Add(b)
		}
	}
	return p, nil
}

func newPlot(title, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time"
	p.Y.Label.Text = ylabel
	p.Y.Min = 0
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p
}

// Save writes the plot to path; the extension picks the format.
func Save(p *plot.Plot, path string, width, height vg.Length) error {
	if _, err := formatOf(path); err != nil {
		return err
	}
	return p.Save(width, height, path)
}

// Write encodes the plot in format (png, svg or pdf) to w.
func Write(p *plot.Plot, w io.Writer, format string, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

func formatOf(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "png", "svg", "pdf":
		return ext, nil
	}
	return "", fmt.Errorf("unsupported image format %q (want png, svg or pdf)", filepath.Ext(path))
}
