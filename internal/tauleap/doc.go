// Package tauleap simulates continuous-time Markov jump processes with the
// adaptive tau-leaping algorithm of Cao, Gillespie and Petzold (2007).
//
// A model is a vector of nonnegative state variables together with a table
// of transitions. Each transition changes the state by a fixed integer
// stoichiometry and fires at a state-dependent rate computed by a
// caller-supplied [RateFunc]. The [Simulator] advances the state by
// switching between three steppers:
//
//   - exact: one transition at a time (Gillespie's direct method)
//   - explicit leap: Poisson-sampled firings of every normal transition over tau
//   - implicit leap: trapezoidal leap solved by Newton's method, used when the
//     system is stiff and a [JacobianFunc] is available
//
// Transitions close to exhausting a reactant are treated as critical and
// fired one at a time. Transitions flagged deterministic are advanced
// continuously at their expected rate; transitions flagged halting end the
// run when they fire.
//
// # Example
//
//	model := tauleap.Model{
//		Initial:     tauleap.State{100},
//		Transitions: tauleap.DenseTransitions([][]int{{-1}}),
//		Rates: func(x tauleap.State, _ tauleap.Parameters, _ float64) ([]float64, error) {
//			return []float64{0.5 * x[0]}, nil
//		},
//	}
//	sim, _ := tauleap.New(model, tauleap.DefaultParams(), tauleap.WithSeed(1))
//	result, err := sim.Run(ctx, 10)
//
// # Thread Safety
//
// A Simulator owns its state, rate buffers and random source and is NOT
// safe for concurrent use. Independent simulators may run concurrently.
package tauleap
