package tauleap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Instruments exports engine counters to a prometheus registry. A nil
// *Instruments is valid and records nothing.
type Instruments struct {
	steps            *prometheus.CounterVec
	rejectedLeaps    prometheus.Counter
	criticalFirings  prometheus.Counter
	earlyExits       *prometheus.CounterVec
	newtonIterations prometheus.Histogram
}

func NewInstruments(reg prometheus.Registerer) *Instruments {
	f := promauto.With(reg)
	return &Instruments{
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tauleap_steps_total",
			Help: "Committed simulation steps by mode",
		}, []string{"mode"}),
		rejectedLeaps: f.NewCounter(prometheus.CounterOpts{
			Name: "tauleap_rejected_leaps_total",
			Help: "Leaps rolled back because tau was too big",
		}),
		criticalFirings: f.NewCounter(prometheus.CounterOpts{
			Name: "tauleap_critical_firings_total",
			Help: "Single critical transitions fired after a leap",
		}),
		earlyExits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tauleap_early_exits_total",
			Help: "Runs truncated before their end time",
		}, []string{"reason"}),
		newtonIterations: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tauleap_newton_iterations",
			Help:    "Newton iterations per implicit leap",
			Buckets: []float64{1, 2, 3, 5, 10, 20},
		}),
	}
}

func (in *Instruments) step(m StepMode) {
	if in == nil {
		return
	}
	in.steps.WithLabelValues(m.String()).Inc()
}

func (in *Instruments) rejectedLeap() {
	if in == nil {
		return
	}
	in.rejectedLeaps.Inc()
}

func (in *Instruments) criticalFiring() {
	if in == nil {
		return
	}
	in.criticalFirings.Inc()
}

func (in *Instruments) earlyExit(reason string) {
	if in == nil {
		return
	}
	in.earlyExits.WithLabelValues(reason).Inc()
}

func (in *Instruments) newton(iter int) {
	if in == nil {
		return
	}
	in.newtonIterations.Observe(float64(iter))
}
