package integrators

import (
	"math"

	"github.com/san-kum/tauleap/internal/tauleap"
)

// Dormand-Prince tableau.
var (
	dpC = [7]float64{0, 1.0 / 5.0, 3.0 / 10.0, 4.0 / 5.0, 8.0 / 9.0, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5.0},
		{3.0 / 40.0, 9.0 / 40.0},
		{44.0 / 45.0, -56.0 / 15.0, 32.0 / 9.0},
		{19372.0 / 6561.0, -25360.0 / 2187.0, 64448.0 / 6561.0, -212.0 / 729.0},
		{9017.0 / 3168.0, -355.0 / 33.0, 46732.0 / 5247.0, 49.0 / 176.0, -5103.0 / 18656.0},
		{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0},
	}
	// fifth-order weights are the last row of dpA; these are the fourth-order ones
	dpB4 = [7]float64{5179.0 / 57600.0, 0, 7571.0 / 16695.0, 393.0 / 640.0, -92097.0 / 339200.0, 187.0 / 2100.0, 1.0 / 40.0}
)

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) Step(sys System, x tauleap.State, t, dt float64) tauleap.State {
	next, _, _ := r.StepAdaptive(sys, x, t, dt, 1e-6)
	return next
}

// StepAdaptive takes one step of size dt and returns the suggested size of
// the next one from the embedded error estimate.
func (r *RK45) StepAdaptive(sys System, x tauleap.State, t, dt, tol float64) (tauleap.State, float64, error) {
	n := len(x)
	var k [7]tauleap.State
	k[0] = sys.Derive(x, t)

	stage := make(tauleap.State, n)
	for s := 1; s < 7; s++ {
		for i := 0; i < n; i++ {
			sum := 0.0
			for m := 0; m < s; m++ {
				sum += dpA[s][m] * k[m][i]
			}
			stage[i] = x[i] + dt*sum
		}
		k[s] = sys.Derive(stage, t+dpC[s]*dt)
	}
	// the last stage was evaluated at the fifth-order solution
	next := stage.Clone()

	errMax := 0.0
	for i := 0; i < n; i++ {
		diff := 0.0
		for s := 0; s < 7; s++ {
			w5 := 0.0
			if s < 6 {
				w5 = dpA[6][s]
			}
			diff += (w5 - dpB4[s]) * k[s][i]
		}
		scale := math.Abs(x[i]) + math.Abs(dt*k[0][i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(dt*diff)/scale)
	}

	ratio := errMax / tol
	var dtNew float64
	switch {
	case ratio > 1:
		dtNew = dt * math.Max(r.minScale, r.safety*math.Pow(ratio, -0.25))
	case ratio > 0:
		dtNew = dt * math.Min(r.maxScale, r.safety*math.Pow(ratio, -0.2))
	default:
		dtNew = dt * r.maxScale
	}
	return next, dtNew, nil
}
