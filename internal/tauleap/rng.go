package tauleap

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// normalApproxMean is the Poisson mean above which a rounded normal draw
// replaces the Poisson sampler.
const normalApproxMean = 1e8

// Source is the random stream of one simulation. Callbacks invoked by the
// simulator run under Guard, so a callback that draws from the same stream
// cannot perturb the trajectory.
type Source struct {
	pcg *rand.PCG
	rnd *rand.Rand
}

func NewSource(seed uint64) *Source {
	pcg := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Source{pcg: pcg, rnd: rand.New(pcg)}
}

// Uniform draws from [0, 1).
func (s *Source) Uniform() float64 {
	return s.rnd.Float64()
}

// Exponential draws a waiting time with the given rate.
func (s *Source) Exponential(rate float64) float64 {
	return distuv.Exponential{Rate: rate, Src: s.pcg}.Rand()
}

// Poisson draws a count with the given mean.
func (s *Source) Poisson(mean float64) float64 {
	if mean <= 0 {
		return 0
	}
	return distuv.Poisson{Lambda: mean, Src: s.pcg}.Rand()
}

func (s *Source) Normal(mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: s.pcg}.Rand()
}

// Firings draws the number of firings of a transition with the given
// expected count, switching to a normal approximation for huge means.
func (s *Source) Firings(mean float64) float64 {
	if mean > normalApproxMean {
		return math.Max(0, math.Floor(s.Normal(mean, math.Sqrt(mean))))
	}
	return s.Poisson(mean)
}

// Guard runs fn and restores the generator to the state it had before.
func (s *Source) Guard(fn func()) {
	saved := *s.pcg
	defer func() { *s.pcg = saved }()
	fn()
}
