// Package analysis summarizes stochastic trajectories.
//
// Trajectories of a jump process are piecewise constant and recorded at
// irregular times, so most tools first put them on a common grid:
//
//   - [Grid] and [Resample]: regular time grid and step-wise resampling
//   - [Summarize]: ensemble mean and standard deviation per variable
//   - [ExtinctionProbability], [HaltingFrequency]: end-of-run statistics
//   - [CompareODE]: distance of the ensemble mean from the rate equations
//   - [PowerSpectrum], [DominantPeriod]: oscillations of a resampled series
//   - [NewPhasePortrait]: one variable against another, as ASCII
//
// # Example
//
//	grid := analysis.Grid(tf, 200)
//	sum, err := analysis.Summarize(results, grid)
//	period := analysis.DominantPeriod(sum.Mean[0], grid[1]-grid[0])
package analysis
