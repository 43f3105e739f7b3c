package metrics

import (
	"fmt"

	"github.com/san-kum/tauleap/internal/tauleap"
)

// TimeMean is the time-weighted mean of one species over a piecewise
// constant trajectory.
type TimeMean struct {
	name    string
	index   int
	area    float64
	start   float64
	lastT   float64
	lastX   float64
	samples int
}

func NewTimeMean(index int, species string) *TimeMean {
	return &TimeMean{name: "mean_" + species, index: index}
}

func (m *TimeMean) Name() string { return m.name }

func (m *TimeMean) Observe(x tauleap.State, t float64) {
	if m.index >= len(x) {
		return
	}
	if m.samples == 0 {
		m.start = t
	} else {
		m.area += m.lastX * (t - m.lastT)
	}
	m.lastT, m.lastX = t, x[m.index]
	m.samples++
}

func (m *TimeMean) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	if span := m.lastT - m.start; span > 0 {
		return m.area / span
	}
	return m.lastX
}

func (m *TimeMean) Reset() {
	m.area, m.start, m.lastT, m.lastX = 0, 0, 0, 0
	m.samples = 0
}

type Peak struct {
	name  string
	index int
	peak  float64
	seen  bool
}

func NewPeak(index int, species string) *Peak {
	return &Peak{name: "peak_" + species, index: index}
}

func (p *Peak) Name() string { return p.name }

func (p *Peak) Observe(x tauleap.State, t float64) {
	if p.index >= len(x) {
		return
	}
	if !p.seen || x[p.index] > p.peak {
		p.peak = x[p.index]
		p.seen = true
	}
}

func (p *Peak) Value() float64 { return p.peak }

func (p *Peak) Reset() {
	p.peak = 0
	p.seen = false
}

// Extinction records the first time a species reaches zero, or -1 if it
// never does.
type Extinction struct {
	name  string
	index int
	at    float64
}

func NewExtinction(index int, species string) *Extinction {
	return &Extinction{name: "extinction_" + species, index: index, at: -1}
}

func (e *Extinction) Name() string { return e.name }

func (e *Extinction) Observe(x tauleap.State, t float64) {
	if e.at < 0 && e.index < len(x) && x[e.index] == 0 {
		e.at = t
	}
}

func (e *Extinction) Value() float64 { return e.at }

func (e *Extinction) Reset() { e.at = -1 }

type Final struct {
	name  string
	index int
	value float64
}

func NewFinal(index int, species string) *Final {
	return &Final{name: "final_" + species, index: index}
}

func (f *Final) Name() string { return f.name }

func (f *Final) Observe(x tauleap.State, t float64) {
	if f.index < len(x) {
		f.value = x[f.index]
	}
}

func (f *Final) Value() float64 { return f.value }

func (f *Final) Reset() { f.value = 0 }

// New builds the metric registered under kind for the named species.
func New(kind string, names []string, species string) (tauleap.Metric, error) {
	index := -1
	for i, n := range names {
		if n == species {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, fmt.Errorf("unknown species: %s", species)
	}
	switch kind {
	case "mean":
		return NewTimeMean(index, species), nil
	case "peak":
		return NewPeak(index, species), nil
	case "extinction":
		return NewExtinction(index, species), nil
	case "final":
		return NewFinal(index, species), nil
	}
	return nil, fmt.Errorf("unknown metric: %s", kind)
}

// Defaults returns the final value and time-weighted mean of every species.
func Defaults(names []string) []tauleap.Metric {
	ms := make([]tauleap.Metric, 0, 2*len(names))
	for i, n := range names {
		ms = append(ms, NewFinal(i, n), NewTimeMean(i, n))
	}
	return ms
}
