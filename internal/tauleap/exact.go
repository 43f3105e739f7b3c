package tauleap

import (
	"fmt"
	"math"
)

// stepExact performs one Gillespie step using the current rates and appends
// the resulting point. Deterministic transitions advance over the waiting
// time, clamped at zero since no smaller step than an exact one exists.
func (s *Simulator) stepExact(tf float64) error {
	s.last = NoTransition
	stochRate, detRate := 0.0, 0.0
	for j, c := range s.net.static {
		if c == Deterministic {
			detRate += s.rates[j]
		} else {
			stochRate += s.rates[j]
		}
	}
	if total := stochRate + detRate; math.IsInf(total, 0) || math.IsNaN(total) {
		return s.earlyExit("infinite transition rate")
	}

	remaining := tf - s.t
	var tau float64
	switch {
	case stochRate > 0:
		tau = s.rng.Exponential(stochRate)
	case detRate > 0:
		tau = 1 / detRate
	default:
		tau = remaining
	}

	if stochRate == 0 || tau > remaining {
		tau = remaining
	} else {
		j, err := s.pickExact(stochRate)
		if err != nil {
			return err
		}
		s.trace(1, "taking transition", "time", s.t, "transition", j+1)
		s.net.apply(s.x, j, 1)
		s.last = j
	}

	s.advanceDeterministic(s.rates, tau, true)
	s.t += tau
	s.stats.ExactSteps++
	s.inst.step(Exact)
	s.record()
	return nil
}

func (s *Simulator) pickExact(stochRate float64) (int, error) {
	r := s.rng.Uniform()
	d := 0.0
	lastPositive := NoTransition
	for j, c := range s.net.static {
		if c == Deterministic {
			continue
		}
		d += s.rates[j] / stochRate
		if d > r {
			return j, nil
		}
		if s.rates[j] > 0 {
			lastPositive = j
		}
	}
	if lastPositive != NoTransition && d > 1-1e-9 {
		return lastPositive, nil
	}
	return NoTransition, fmt.Errorf("%w: exact selection exhausted transitions (cumulative %g, draw %g)", ErrInternal, d, r)
}

// advanceDeterministic applies the expected change of every deterministic
// transition over dt at the given rates.
func (s *Simulator) advanceDeterministic(rates []float64, dt float64, clamp bool) {
	for _, j := range s.net.byStatic[Deterministic] {
		for _, c := range s.net.changes[j] {
			s.x[c.State] += float64(c.Mag) * rates[j] * dt
			if clamp && s.x[c.State] < 0 {
				s.x[c.State] = 0
			}
		}
	}
}
