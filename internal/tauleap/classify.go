package tauleap

import (
	"fmt"
	"math"
)

// ClassifyStatic tags transitions as Normal, Deterministic or Halting.
// Critical is never assigned here; it is decided per iteration.
func ClassifyStatic(changes [][]Change, deterministic, halting []int) ([]Category, error) {
	cats := make([]Category, len(changes))
	set := func(idx []int, c Category) error {
		for _, j := range idx {
			if j < 0 || j >= len(cats) {
				return &ModelError{Transition: j, Variable: -1, Wrapped: ErrBadFlag,
					Message: fmt.Sprintf("last transition is %d", len(cats))}
			}
			if cats[j] != Normal && cats[j] != c {
				return &ModelError{Transition: j, Variable: -1, Wrapped: ErrBadFlag,
					Message: "transition cannot be both deterministic and halting"}
			}
			cats[j] = c
		}
		return nil
	}
	if err := set(deterministic, Deterministic); err != nil {
		return nil, err
	}
	if err := set(halting, Halting); err != nil {
		return nil, err
	}

	stochastic := 0
	for _, c := range cats {
		if c != Deterministic {
			stochastic++
		}
	}
	if stochastic == 0 {
		return nil, ErrAllDeterministic
	}
	return cats, nil
}

// DetectBalancedPairs finds transitions whose change lists touch the same
// variables in the same order with exactly negated magnitudes. Only
// statically normal transitions take part; a nil cats treats every
// transition as normal.
func DetectBalancedPairs(changes [][]Change, cats []Category) []Pair {
	eligible := func(j int) bool { return cats == nil || cats[j] == Normal }
	var pairs []Pair
	for j1 := 0; j1 < len(changes); j1++ {
		if !eligible(j1) {
			continue
		}
		for j2 := j1 + 1; j2 < len(changes); j2++ {
			if !eligible(j2) {
				continue
			}
			a, b := changes[j1], changes[j2]
			if len(a) != len(b) {
				continue
			}
			match := true
			for i := range a {
				if a[i].State != b[i].State || a[i].Mag != -b[i].Mag {
					match = false
					break
				}
			}
			if match {
				pairs = append(pairs, Pair{First: j1, Second: j2})
			}
		}
	}
	return pairs
}

// InferRealValued flags every variable touched by a deterministic transition.
func InferRealValued(numStates int, changes [][]Change, cats []Category) []bool {
	flags := make([]bool, numStates)
	for j, c := range cats {
		if c != Deterministic {
			continue
		}
		for _, ch := range changes[j] {
			flags[ch.State] = true
		}
	}
	return flags
}

// Partition is the per-iteration split of stochastic transitions. Halting
// transitions always lead the Critical list.
type Partition struct {
	Critical []int
	Normal   []int
}

// ClassifyDynamic recomputes p in place: a statically normal transition is
// critical when it could fire fewer than threshold more times before
// exhausting one of its reactants.
func ClassifyDynamic(x State, changes [][]Change, cats []Category, threshold int, p *Partition) {
	p.Critical = p.Critical[:0]
	p.Normal = p.Normal[:0]
	for j, c := range cats {
		if c == Halting {
			p.Critical = append(p.Critical, j)
		}
	}
	limit := float64(threshold)
	for j, c := range cats {
		if c != Normal {
			continue
		}
		minTimes := math.Inf(1)
		for _, ch := range changes[j] {
			if ch.Mag >= 0 {
				continue
			}
			times := math.Floor(x[ch.State] / float64(-ch.Mag))
			if times < minTimes {
				minTimes = times
			}
		}
		if minTimes < limit {
			p.Critical = append(p.Critical, j)
		} else {
			p.Normal = append(p.Normal, j)
		}
	}
}
