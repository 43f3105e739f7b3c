package tauleap

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// decayModel is X -> 0 at rate k·X.
func decayModel(x0, k float64) Model {
	return Model{
		Initial:     State{x0},
		Transitions: DenseTransitions([][]int{{-1}}),
		Rates: func(x State, _ Parameters, _ float64) ([]float64, error) {
			return []float64{k * x[0]}, nil
		},
		Jacobian: func(x State, _ Parameters, _ float64) (mat.Matrix, error) {
			return mat.NewDense(1, 1, []float64{k}), nil
		},
	}
}

// stiffModel is a fast reversible isomerization A <-> B with a slow drain
// B -> C.
func stiffModel(fast, slow float64) Model {
	return Model{
		Initial: State{5000, 5000, 5000},
		Names:   []string{"A", "B", "C"},
		Transitions: [][]Change{
			{{State: 0, Mag: -1}, {State: 1, Mag: 1}},
			{{State: 0, Mag: 1}, {State: 1, Mag: -1}},
			{{State: 1, Mag: -1}, {State: 2, Mag: 1}},
		},
		Rates: func(x State, _ Parameters, _ float64) ([]float64, error) {
			return []float64{fast * x[0], fast * x[1], slow * x[1]}, nil
		},
		Jacobian: func(x State, _ Parameters, _ float64) (mat.Matrix, error) {
			j := mat.NewDense(3, 3, nil)
			j.Set(0, 0, fast)
			j.Set(1, 1, fast)
			j.Set(1, 2, slow)
			return j, nil
		},
	}
}

// sirModel is a susceptible-infected-recovered epidemic.
func sirModel(beta, gamma float64) Model {
	return Model{
		Initial: State{990, 10, 0},
		Names:   []string{"S", "I", "R"},
		Transitions: [][]Change{
			{{State: 0, Mag: -1}, {State: 1, Mag: 1}},
			{{State: 1, Mag: -1}, {State: 2, Mag: 1}},
		},
		Rates: func(x State, _ Parameters, _ float64) ([]float64, error) {
			return []float64{beta * x[0] * x[1], gamma * x[1]}, nil
		},
	}
}

func newTestSim(t *testing.T, m Model, p Params, opts ...Option) *Simulator {
	t.Helper()
	s, err := New(m, p, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// prime puts s in the state the controller leaves it in before stepping.
func prime(t *testing.T, s *Simulator) {
	t.Helper()
	s.reset()
	if err := s.updateRates(); err != nil {
		t.Fatalf("updateRates: %v", err)
	}
	ClassifyDynamic(s.x, s.net.changes, s.net.static, s.params.CriticalThreshold, &s.part)
}

func posInf() float64 { return math.Inf(1) }
