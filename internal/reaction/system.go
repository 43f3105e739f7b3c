package reaction

import (
	"fmt"
	"maps"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/tauleap/internal/tauleap"
)

// System is a compiled network with resolved species references. It
// supplies the rate and Jacobian callbacks of the simulator and the
// mean-field vector field of the deterministic integrators.
type System struct {
	net       *Network
	names     []string
	rxNames   []string
	changes   [][]tauleap.Change
	reactants [][]tauleap.Change // Mag is the reaction order in the species
	consts    []float64
	param     []string
	params    tauleap.Parameters
}

// Compile resolves the network. Overrides replace network parameters of the
// same name.
func (n *Network) Compile(overrides map[string]float64) (*System, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	names := make([]string, len(n.Species))
	for i, s := range n.Species {
		names[i] = s.Name
	}

	reactants := make([][]tauleap.KeyedChange, len(n.Reactions))
	products := make([][]tauleap.KeyedChange, len(n.Reactions))
	for j, r := range n.Reactions {
		reactants[j] = keyed(r.Reactants)
		products[j] = keyed(r.Products)
	}
	in, err := tauleap.ResolveSparse(names, len(names), reactants)
	if err != nil {
		return nil, fmt.Errorf("reactants: %w", err)
	}
	out, err := tauleap.ResolveSparse(names, len(names), products)
	if err != nil {
		return nil, fmt.Errorf("products: %w", err)
	}

	params := make(tauleap.Parameters, len(n.Parameters)+len(overrides))
	maps.Copy(params, n.Parameters)
	maps.Copy(params, overrides)

	s := &System{
		net:       n,
		names:     names,
		rxNames:   make([]string, len(n.Reactions)),
		changes:   make([][]tauleap.Change, len(n.Reactions)),
		reactants: in,
		consts:    make([]float64, len(n.Reactions)),
		param:     make([]string, len(n.Reactions)),
		params:    params,
	}
	for j, r := range n.Reactions {
		s.rxNames[j] = r.Name
		if s.rxNames[j] == "" {
			s.rxNames[j] = fmt.Sprintf("R%d", j+1)
		}
		s.consts[j] = r.Rate
		if r.Param != "" {
			if _, ok := params[r.Param]; !ok {
				return nil, fmt.Errorf("%w: reaction %s uses undefined parameter %q", ErrInvalidNetwork, s.rxNames[j], r.Param)
			}
			s.param[j] = r.Param
		}
		s.changes[j] = netChange(in[j], out[j])
	}
	return s, nil
}

func keyed(counts map[string]int) []tauleap.KeyedChange {
	out := make([]tauleap.KeyedChange, 0, len(counts))
	for _, k := range slices.Sorted(maps.Keys(counts)) {
		out = append(out, tauleap.KeyedChange{Key: k, Mag: counts[k]})
	}
	return out
}

// netChange is products minus reactants, sorted by species, zeros dropped.
func netChange(in, out []tauleap.Change) []tauleap.Change {
	delta := make(map[int]int)
	for _, c := range in {
		delta[c.State] -= c.Mag
	}
	for _, c := range out {
		delta[c.State] += c.Mag
	}
	changes := make([]tauleap.Change, 0, len(delta))
	for _, i := range slices.Sorted(maps.Keys(delta)) {
		if delta[i] != 0 {
			changes = append(changes, tauleap.Change{State: i, Mag: delta[i]})
		}
	}
	return changes
}

func (s *System) Names() []string { return s.names }

func (s *System) ReactionNames() []string { return s.rxNames }

func (s *System) Parameters() tauleap.Parameters { return s.params }

func (s *System) Dim() int { return len(s.names) }

// Stoichiometry returns the net change of every reaction.
func (s *System) Stoichiometry() [][]tauleap.Change { return s.changes }

// Model builds the simulator input for the network.
func (s *System) Model() tauleap.Model {
	n := len(s.names)
	initial := make(tauleap.State, n)
	bound := make([]float64, n)
	for i, sp := range s.net.Species {
		initial[i] = sp.Initial
		bound[i] = sp.Bound
		if bound[i] == 0 {
			bound[i] = 1
		}
	}
	det := make([]bool, len(s.changes))
	halt := make([]bool, len(s.changes))
	for j, r := range s.net.Reactions {
		det[j] = r.Deterministic
		halt[j] = r.Halting
	}
	return tauleap.Model{
		Initial:       initial,
		Names:         s.names,
		Transitions:   s.changes,
		Deterministic: tauleap.MaskIndices(det),
		Halting:       tauleap.MaskIndices(halt),
		ChangeBound:   bound,
		Rates:         s.Rates,
		Jacobian:      s.Jacobian,
		Params:        s.params,
	}
}

func (s *System) rateConstant(j int, p tauleap.Parameters) float64 {
	if name := s.param[j]; name != "" {
		if v, ok := p[name]; ok {
			return v
		}
	}
	return s.consts[j]
}

// Rates evaluates the mass-action propensities
// k·Π x(x-1)…(x-n+1)/n! over the reactants of each reaction.
func (s *System) Rates(x tauleap.State, p tauleap.Parameters, _ float64) ([]float64, error) {
	rates := make([]float64, len(s.changes))
	for j := range rates {
		rates[j] = max(s.propensity(j, x, p), 0)
	}
	return rates, nil
}

// propensity is the unclamped mass-action rate of reaction j. It goes
// negative for fractional amounts below the reaction order.
func (s *System) propensity(j int, x tauleap.State, p tauleap.Parameters) float64 {
	a := s.rateConstant(j, p)
	for _, r := range s.reactants[j] {
		a *= falling(x[r.State], r.Mag)
	}
	return a
}

// Jacobian returns ∂rate_j/∂x_i as a species × reactions matrix. Columns of
// reactions whose rate Rates clamps to zero are zero.
func (s *System) Jacobian(x tauleap.State, p tauleap.Parameters, _ float64) (mat.Matrix, error) {
	jac := mat.NewDense(len(s.names), len(s.changes), nil)
	for j := range s.changes {
		if s.propensity(j, x, p) < 0 {
			continue
		}
		k := s.rateConstant(j, p)
		for a, r := range s.reactants[j] {
			d := k * fallingDeriv(x[r.State], r.Mag)
			for b, other := range s.reactants[j] {
				if a != b {
					d *= falling(x[other.State], other.Mag)
				}
			}
			jac.Set(r.State, j, d)
		}
	}
	return jac, nil
}

// Derive is the mean-field rate equation dx/dt = Σ_j ν_j·a_j(x).
func (s *System) Derive(x tauleap.State, t float64) tauleap.State {
	rates, _ := s.Rates(x, s.params, t)
	dx := make(tauleap.State, len(x))
	for j, list := range s.changes {
		for _, c := range list {
			dx[c.State] += float64(c.Mag) * rates[j]
		}
	}
	return dx
}

// falling returns the number of ways to choose n molecules out of x,
// x(x-1)…(x-n+1)/n!.
func falling(x float64, n int) float64 {
	v := 1.0
	for m := 0; m < n; m++ {
		v *= (x - float64(m)) / float64(m+1)
	}
	return v
}

func fallingDeriv(x float64, n int) float64 {
	d := 0.0
	for m := 0; m < n; m++ {
		term := 1.0
		for l := 0; l < n; l++ {
			if l != m {
				term *= x - float64(l)
			}
		}
		d += term
	}
	for m := 2; m <= n; m++ {
		d /= float64(m)
	}
	return d
}
