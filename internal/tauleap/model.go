package tauleap

import (
	"fmt"
	"math"
	"strconv"
)

// integralTolerance is how far an integer variable may sit above its
// truncation in the initial state.
const integralTolerance = 1e-5

// Model is the caller's description of a process.
type Model struct {
	Initial State
	// Names optionally labels state variables; used for sparse keys and output.
	Names []string
	// Transitions holds the stoichiometry of each transition.
	Transitions [][]Change
	// Deterministic and Halting list 0-based transition indices.
	Deterministic []int
	Halting       []int
	// ChangeBound is the per-variable rate change bound; nil means all ones.
	ChangeBound []float64

	Rates    RateFunc
	Jacobian JacobianFunc
	MaxTau   MaxTauFunc
	Params   Parameters
}

// DenseTransitions converts a states × transitions matrix into sparse
// per-transition change lists. Zero entries are dropped.
func DenseTransitions(m [][]int) [][]Change {
	if len(m) == 0 {
		return nil
	}
	out := make([][]Change, len(m[0]))
	for i, row := range m {
		for j, mag := range row {
			if mag != 0 {
				out[j] = append(out[j], Change{State: i, Mag: mag})
			}
		}
	}
	return out
}

// KeyedChange references a state variable by name or by 1-based index.
type KeyedChange struct {
	Key string
	Mag int
}

// ResolveSparse resolves keyed change lists against the variable names.
// A key matching a name wins; otherwise it must parse as a 1-based index.
func ResolveSparse(names []string, numStates int, lists [][]KeyedChange) ([][]Change, error) {
	byName := make(map[string]int, len(names))
	for i, n := range names {
		byName[n] = i
	}
	out := make([][]Change, len(lists))
	for j, list := range lists {
		out[j] = make([]Change, 0, len(list))
		for _, kc := range list {
			if kc.Key == "" {
				return nil, &ModelError{Transition: j, Variable: -1, Wrapped: ErrBadStoichiometry,
					Message: "change without a corresponding state variable"}
			}
			idx, ok := byName[kc.Key]
			if !ok {
				n, err := strconv.Atoi(kc.Key)
				if err != nil || n < 1 || n > numStates {
					return nil, &ModelError{Transition: j, Variable: -1, Wrapped: ErrBadStoichiometry,
						Message: fmt.Sprintf("unknown state variable %q", kc.Key)}
				}
				idx = n - 1
			}
			out[j] = append(out[j], Change{State: idx, Mag: kc.Mag})
		}
	}
	return out, nil
}

// MaskIndices converts a boolean transition mask into an index list.
func MaskIndices(mask []bool) []int {
	var idx []int
	for i, set := range mask {
		if set {
			idx = append(idx, i)
		}
	}
	return idx
}

// network is the compiled, immutable shape of a model.
type network struct {
	numStates  int
	changes    [][]Change
	static     []Category
	byStatic   [4][]int
	pairs      []Pair
	realValued []bool
	bound      []float64
	names      []string
}

func compile(m Model) (*network, error) {
	n := len(m.Initial)
	for j, list := range m.Transitions {
		for _, c := range list {
			if c.State < 0 || c.State >= n {
				return nil, &ModelError{Transition: j, Variable: c.State, Wrapped: ErrBadStoichiometry}
			}
		}
	}

	static, err := ClassifyStatic(m.Transitions, m.Deterministic, m.Halting)
	if err != nil {
		return nil, err
	}

	bound := m.ChangeBound
	if bound == nil {
		bound = make([]float64, n)
		for i := range bound {
			bound[i] = 1
		}
	}
	if len(bound) != n {
		return nil, fmt.Errorf("%w: length %d, want %d", ErrChangeBound, len(bound), n)
	}
	for i, b := range bound {
		if !(b > 0) {
			return nil, &ModelError{Transition: -1, Variable: i, Wrapped: ErrChangeBound,
				Message: fmt.Sprintf("bound must be positive, got %g", b)}
		}
	}

	net := &network{
		numStates:  n,
		changes:    m.Transitions,
		static:     static,
		pairs:      DetectBalancedPairs(m.Transitions, static),
		realValued: InferRealValued(n, m.Transitions, static),
		bound:      bound,
		names:      variableNames(m.Names, n),
	}
	for j, c := range static {
		net.byStatic[c] = append(net.byStatic[c], j)
	}

	for i, v := range m.Initial {
		if v < 0 || math.IsNaN(v) {
			return nil, &ModelError{Transition: -1, Variable: i, Wrapped: ErrInitialState,
				Message: fmt.Sprintf("%s must be nonnegative (currently %g)", net.names[i], v)}
		}
		if !net.realValued[i] && v-math.Trunc(v) > integralTolerance {
			return nil, &ModelError{Transition: -1, Variable: i, Wrapped: ErrInitialState,
				Message: fmt.Sprintf("%s must be an integer (currently %g)", net.names[i], v)}
		}
	}
	return net, nil
}

func variableNames(names []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		if i < len(names) && names[i] != "" {
			out[i] = names[i]
		} else {
			out[i] = "x" + strconv.Itoa(i+1)
		}
	}
	return out
}

// apply adds k firings of transition j to x.
func (n *network) apply(x State, j int, k float64) {
	for _, c := range n.changes[j] {
		x[c.State] += k * float64(c.Mag)
	}
}
