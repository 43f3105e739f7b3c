package tauleap

// stepExplicit leaps over tau, firing every normal transition a sampled
// number of times. The state is restored bit for bit and TooBig returned
// when any variable would go negative.
func (s *Simulator) stepExplicit(tau float64) StepStatus {
	s.trace(1, "taking explicit step", "time", s.t, "tau", tau)
	copy(s.saved, s.x)

	for _, j := range s.part.Normal {
		k := s.rng.Firings(s.rates[j] * tau)
		if k > 0 {
			s.trace(2, "firing", "transition", j+1, "count", k)
			s.net.apply(s.x, j, k)
		}
	}
	s.advanceDeterministic(s.rates, tau, false)

	if s.x.firstNegative() >= 0 {
		copy(s.x, s.saved)
		return TooBig
	}
	s.t += tau
	s.stats.ExplicitSteps++
	s.inst.step(Explicit)
	return Committed
}
