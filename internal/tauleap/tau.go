package tauleap

import (
	"math"
)

// ExplicitBound returns the largest leap over which no variable is expected
// to change by more than epsilon·x/bound (or by one unit, whichever is
// larger), in both mean and variance, under the normal transitions.
func ExplicitBound(x State, rates []float64, normal []int, changes [][]Change, bound []float64, epsilon float64) (float64, error) {
	tau := leapBound(x, rates, normal, changes, bound, epsilon, nil)
	if tau < 0 {
		return 0, ErrNegativeTau
	}
	return tau, nil
}

// ImplicitBound is ExplicitBound with every balanced pair in
// quasi-equilibrium (rates within relative tolerance delta) left out.
// Callers without a Jacobian cannot step implicitly and should treat the
// bound as 0.
func ImplicitBound(x State, rates []float64, normal []int, changes [][]Change, pairs []Pair, bound []float64, delta, epsilon float64) float64 {
	var equil map[int]bool
	for _, p := range pairs {
		r1, r2 := rates[p.First], rates[p.Second]
		if math.Abs(r1-r2) <= delta*math.Min(r1, r2) {
			if equil == nil {
				equil = make(map[int]bool)
			}
			equil[p.First] = true
			equil[p.Second] = true
		}
	}
	return leapBound(x, rates, normal, changes, bound, epsilon, equil)
}

func leapBound(x State, rates []float64, normal []int, changes [][]Change, bound []float64, epsilon float64, skip map[int]bool) float64 {
	mu := make([]float64, len(x))
	sigma := make([]float64, len(x))
	for _, j := range normal {
		if skip[j] {
			continue
		}
		for _, c := range changes[j] {
			mag := float64(c.Mag)
			mu[c.State] += mag * rates[j]
			sigma[c.State] += mag * mag * rates[j]
		}
	}

	tau := math.Inf(1)
	for i := range x {
		allowed := math.Max(epsilon*x[i]/bound[i], 1)
		if v := allowed / math.Abs(mu[i]); v < tau {
			tau = v
		}
		if v := allowed * allowed / sigma[i]; v < tau {
			tau = v
		}
	}
	return tau
}

// ChooseMode picks the implicit leap only when it allows a step more than
// stiffness times longer than the explicit one.
func ChooseMode(tauEx, tauIm, stiffness float64) (StepMode, float64) {
	if tauEx*stiffness < tauIm {
		return Implicit, tauIm
	}
	return Explicit, tauEx
}
