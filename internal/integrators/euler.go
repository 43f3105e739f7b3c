package integrators

import "github.com/san-kum/tauleap/internal/tauleap"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys System, x tauleap.State, t, dt float64) tauleap.State {
	dx := sys.Derive(x, t)
	next := make(tauleap.State, len(x))
	for i := range x {
		next[i] = x[i] + dt*dx[i]
	}
	return next
}
