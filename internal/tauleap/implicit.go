package tauleap

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const maxNewtonIterations = 20

// stepImplicit takes the implicit (trapezoidal) leap of Cao et al. (2007),
// eq. 7. With Y = x(t+tau) it solves
//
//	Y = alpha + ν·(tau/2)·R(Y),  alpha = x + ν·(P − (tau/2)·R(x))
//
// for Y by Newton's method, where P are the sampled firing counts. Returns
// TooBig, with the state restored, if an iterate or the rounded result has a
// negative entry.
func (s *Simulator) stepImplicit(tau float64) (StepStatus, error) {
	s.trace(1, "taking implicit step", "time", s.t, "tau", tau)
	if s.model.Jacobian == nil {
		return TooBig, fmt.Errorf("%w: implicit step without a Jacobian", ErrInternal)
	}
	n := s.net.numStates
	copy(s.saved, s.x)
	copy(s.savedRates, s.rates)

	for _, j := range s.part.Normal {
		s.firings[j] = s.rng.Firings(s.rates[j] * tau)
	}

	// alpha, and the expectation as the initial guess for Y.
	half := tau / 2
	copy(s.alpha, s.x)
	for _, j := range s.part.Normal {
		for _, c := range s.net.changes[j] {
			mag := float64(c.Mag)
			s.alpha[c.State] += mag * (s.firings[j] - half*s.rates[j])
			s.x[c.State] += mag * half * s.rates[j]
		}
	}
	for i := range s.x {
		if s.x[i] < 0 {
			s.x[i] = 0
		}
	}

	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)
	converged := false
	iter := 0
	for iter < maxNewtonIterations && !converged {
		iter++
		if s.x.firstNegative() >= 0 {
			s.rollbackImplicit()
			return TooBig, nil
		}

		jac, err := s.callJacobian()
		if err != nil {
			return TooBig, err
		}
		a.Zero()
		for _, j := range s.part.Normal {
			for _, c := range s.net.changes[j] {
				mag := float64(c.Mag)
				for i := 0; i < n; i++ {
					a.Set(c.State, i, a.At(c.State, i)+mag*jac.At(i, j))
				}
			}
		}
		a.Scale(-half, a)
		for i := 0; i < n; i++ {
			a.Set(i, i, a.At(i, i)+1)
		}

		if err := s.updateRates(); err != nil {
			return TooBig, err
		}
		for i := 0; i < n; i++ {
			b.SetVec(i, s.alpha[i]-s.x[i])
		}
		for _, j := range s.part.Normal {
			for _, c := range s.net.changes[j] {
				b.SetVec(c.State, b.AtVec(c.State)+float64(c.Mag)*half*s.rates[j])
			}
		}

		dy, err := s.solver.Solve(a, b)
		if err != nil {
			s.warn("linear solver ran into trouble solving implicit equation", "error", err)
			break
		}
		normDelta := 0.0
		for i := 0; i < n; i++ {
			d := dy.AtVec(i)
			s.x[i] += d
			normDelta += d * d
		}
		converged = normDelta < s.x.sqNorm()*s.params.NewtonTolerance
	}
	s.stats.NewtonIterations = iter
	s.inst.newton(iter)
	if !converged {
		s.warn("implicit step did not converge", "iterations", iter, "tau", tau)
	}

	copy(s.rates, s.savedRates)
	s.advanceDeterministic(s.rates, tau, false)
	for i := range s.x {
		if !s.net.realValued[i] {
			s.x[i] = math.Floor(s.x[i] + 0.5)
		}
	}
	if s.x.firstNegative() >= 0 {
		s.rollbackImplicit()
		return TooBig, nil
	}

	s.t += tau
	s.stats.ImplicitSteps++
	s.inst.step(Implicit)
	return Committed, nil
}

func (s *Simulator) rollbackImplicit() {
	copy(s.x, s.saved)
	copy(s.rates, s.savedRates)
}
