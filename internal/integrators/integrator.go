package integrators

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/tauleap/internal/tauleap"
)

// System is a deterministic vector field dx/dt = f(x, t).
type System interface {
	Derive(x tauleap.State, t float64) tauleap.State
	Dim() int
}

type Integrator interface {
	Step(sys System, x tauleap.State, t, dt float64) tauleap.State
}

type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, x tauleap.State, t, dt, tol float64) (tauleap.State, float64, error)
}

// New returns the integrator registered under name.
func New(name string) (Integrator, error) {
	switch name {
	case "euler":
		return NewEuler(), nil
	case "rk4", "":
		return NewRK4(), nil
	case "rk45":
		return NewRK45(), nil
	}
	return nil, fmt.Errorf("unknown integrator: %s", name)
}

// Solve integrates sys from x0 to tf with step dt and records a point every
// step. Amounts are clamped at zero since the rate equations of a reaction
// network never leave the nonnegative orthant except through truncation
// error. Adaptive integrators choose their own step, bounded by dt.
func Solve(ctx context.Context, sys System, integ Integrator, x0 tauleap.State, tf, dt float64) ([]tauleap.Point, error) {
	if !(dt > 0) {
		return nil, fmt.Errorf("step must be positive, got %g", dt)
	}
	x := x0.Clone()
	t := 0.0
	pts := make([]tauleap.Point, 0, int(math.Min(tf/dt, 1e6))+2)
	pts = append(pts, tauleap.Point{Time: t, State: x.Clone()})

	adaptive, _ := integ.(AdaptiveIntegrator)
	h := dt
	for i := 0; t < tf; i++ {
		if i%256 == 0 && ctx.Err() != nil {
			return pts, ctx.Err()
		}
		step := math.Min(h, tf-t)
		var next tauleap.State
		if adaptive != nil {
			var err error
			next, h, err = adaptive.StepAdaptive(sys, x, t, step, 1e-6)
			if err != nil {
				return pts, err
			}
			h = math.Min(h, dt)
		} else {
			next = integ.Step(sys, x, t, step)
		}
		if !next.IsValid() {
			return pts, fmt.Errorf("integration diverged at t=%g", t)
		}
		for k := range next {
			next[k] = math.Max(next[k], 0)
		}
		x = next
		t += step
		pts = append(pts, tauleap.Point{Time: t, State: x.Clone()})
	}
	return pts, nil
}
