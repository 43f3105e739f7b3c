package tauleap

import "fmt"

// pickCritical selects one critical transition with probability
// proportional to its rate.
func (s *Simulator) pickCritical(criticalRate float64) (int, error) {
	r := s.rng.Uniform()
	d := 0.0
	lastPositive := NoTransition
	for _, j := range s.part.Critical {
		d += s.rates[j] / criticalRate
		if d > r {
			return j, nil
		}
		if s.rates[j] > 0 {
			lastPositive = j
		}
	}
	// Rounding can leave the cumulative sum a hair below one.
	if lastPositive != NoTransition && d > 1-1e-9 {
		return lastPositive, nil
	}
	return NoTransition, fmt.Errorf("%w: critical selection exhausted %d transitions (cumulative %g, draw %g)",
		ErrInternal, len(s.part.Critical), d, r)
}

// fireCritical applies one firing of transition j. A negative result is a
// modeling error, not a recoverable leap error.
func (s *Simulator) fireCritical(j int) error {
	s.trace(1, "executing critical transition", "transition", j+1)
	s.net.apply(s.x, j, 1)
	if i := s.x.firstNegative(); i >= 0 {
		return &ModelError{Transition: j, Variable: i, Wrapped: ErrCriticalNegative,
			Message: "most likely either the rate function or the transition matrix is flawed"}
	}
	s.last = j
	s.stats.CriticalFirings++
	s.inst.criticalFiring()
	return nil
}
