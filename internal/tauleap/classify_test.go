package tauleap

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestClassifyStatic(t *testing.T) {
	changes := DenseTransitions([][]int{
		{-1, 1, 0},
		{1, -1, 1},
	})

	tests := []struct {
		name    string
		det     []int
		halt    []int
		want    []Category
		wantErr error
	}{
		{"all normal", nil, nil, []Category{Normal, Normal, Normal}, nil},
		{"mixed", []int{2}, []int{0}, []Category{Halting, Normal, Deterministic}, nil},
		{"all deterministic", []int{0, 1, 2}, nil, nil, ErrAllDeterministic},
		{"flag out of range", []int{3}, nil, nil, ErrBadFlag},
		{"negative flag", nil, []int{-1}, nil, ErrBadFlag},
		{"both flags", []int{1}, []int{1}, nil, ErrBadFlag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClassifyStatic(changes, tt.det, tt.halt)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("categories = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectBalancedPairs(t *testing.T) {
	tests := []struct {
		name    string
		changes [][]Change
		cats    []Category
		want    []Pair
	}{
		{
			name: "forward and reverse",
			changes: [][]Change{
				{{0, -1}, {1, 1}},
				{{0, 1}, {1, -1}},
			},
			want: []Pair{{0, 1}},
		},
		{
			name: "different magnitude",
			changes: [][]Change{
				{{0, -2}, {1, 1}},
				{{0, 1}, {1, -1}},
			},
		},
		{
			name: "different support",
			changes: [][]Change{
				{{0, -1}, {1, 1}},
				{{0, 1}, {2, -1}},
			},
		},
		{
			name: "different order is not a pair",
			changes: [][]Change{
				{{0, -1}, {1, 1}},
				{{1, -1}, {0, 1}},
			},
		},
		{
			name: "pair among others",
			changes: [][]Change{
				{{0, 1}},
				{{1, -1}, {2, 1}},
				{{0, -1}},
				{{1, 1}, {2, -1}},
			},
			want: []Pair{{0, 2}, {1, 3}},
		},
		{
			name: "deterministic reverse is not a pair",
			changes: [][]Change{
				{{0, -1}, {1, 1}},
				{{0, 1}, {1, -1}},
			},
			cats: []Category{Normal, Deterministic},
		},
		{
			name: "halting reverse is not a pair",
			changes: [][]Change{
				{{0, -1}, {1, 1}},
				{{0, 1}, {1, -1}},
			},
			cats: []Category{Halting, Normal},
		},
		{
			name: "stochastic pair beside a deterministic twin",
			changes: [][]Change{
				{{0, -1}, {1, 1}},
				{{0, 1}, {1, -1}},
				{{0, 1}, {1, -1}},
			},
			cats: []Category{Normal, Deterministic, Normal},
			want: []Pair{{0, 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectBalancedPairs(tt.changes, tt.cats)
			if len(got) != len(tt.want) {
				t.Fatalf("pairs = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("pair %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestInferRealValued(t *testing.T) {
	changes := [][]Change{
		{{0, -1}, {1, 1}},
		{{2, 1}},
	}
	cats := []Category{Normal, Deterministic}

	got := InferRealValued(3, changes, cats)
	want := []bool{false, false, true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("real valued = %v, want %v", got, want)
	}
}

func TestClassifyDynamic(t *testing.T) {
	changes := [][]Change{
		{{0, -1}},          // consumes the scarce variable
		{{1, -1}},          // plenty left
		{{1, -20}},         // floor(100/20) = 5 firings left
		{{0, 1}},           // production only
		{{1, 1}},           // halting
		{{0, -1}, {1, -1}}, // limited by variable 0
	}
	cats := []Category{Normal, Normal, Normal, Normal, Halting, Normal}
	x := State{5, 100}

	var p Partition
	ClassifyDynamic(x, changes, cats, 10, &p)

	wantCritical := []int{4, 0, 2, 5}
	wantNormal := []int{1, 3}
	if !reflect.DeepEqual(p.Critical, wantCritical) {
		t.Errorf("critical = %v, want %v", p.Critical, wantCritical)
	}
	if !reflect.DeepEqual(p.Normal, wantNormal) {
		t.Errorf("normal = %v, want %v", p.Normal, wantNormal)
	}

	// reuse of the same partition must not leak the previous iteration
	ClassifyDynamic(State{50, 500}, changes, cats, 10, &p)
	if !reflect.DeepEqual(p.Critical, []int{4}) {
		t.Errorf("critical after refill = %v, want [4]", p.Critical)
	}
	if len(p.Normal) != 5 {
		t.Errorf("expected 5 normal transitions, got %v", p.Normal)
	}
}

func TestClassifyDynamic_ExactThresholdBoundary(t *testing.T) {
	changes := [][]Change{{{0, -1}}}
	cats := []Category{Normal}

	var p Partition
	ClassifyDynamic(State{10}, changes, cats, 10, &p)
	if len(p.Normal) != 1 {
		t.Errorf("10 remaining firings with threshold 10 should be normal, got critical %v", p.Critical)
	}
	ClassifyDynamic(State{9}, changes, cats, 10, &p)
	if len(p.Critical) != 1 {
		t.Errorf("9 remaining firings with threshold 10 should be critical, got normal %v", p.Normal)
	}
}

func TestNew_DeterministicReverseNotPaired(t *testing.T) {
	m := Model{
		Initial: State{1000, 1000},
		Transitions: [][]Change{
			{{0, -1}, {1, 1}},
			{{0, 1}, {1, -1}},
		},
		Deterministic: []int{1},
		Rates: func(x State, _ Parameters, _ float64) ([]float64, error) {
			return []float64{x[0], x[1]}, nil
		},
	}
	s := newTestSim(t, m, DefaultParams(), WithSeed(1))
	if pairs := s.BalancedPairs(); len(pairs) != 0 {
		t.Fatalf("pairs = %v, want none", pairs)
	}

	prime(t, s)
	im := ImplicitBound(s.x, s.rates, s.part.Normal, s.net.changes, s.net.pairs, s.net.bound,
		s.params.Delta, s.params.Epsilon)
	if math.IsInf(im, 1) {
		t.Error("implicit bound ignored the only normal transition")
	}
}
