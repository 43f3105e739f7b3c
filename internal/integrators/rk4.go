package integrators

import "github.com/san-kum/tauleap/internal/tauleap"

// RK4 is the classical fourth-order Runge-Kutta method. Its stage buffers
// are reused between steps, so an RK4 must not be shared between goroutines.
type RK4 struct {
	k       [4]tauleap.State
	scratch tauleap.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.scratch) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(tauleap.State, n)
	}
	r.scratch = make(tauleap.State, n)
}

func (r *RK4) Step(sys System, x tauleap.State, t, dt float64) tauleap.State {
	n := len(x)
	r.ensureScratch(n)

	// stage s evaluates at t + c[s]·dt from x + c[s]·dt·k[s-1]
	c := [4]float64{0, 0.5, 0.5, 1}
	copy(r.k[0], sys.Derive(x, t))
	for s := 1; s < 4; s++ {
		for i := 0; i < n; i++ {
			r.scratch[i] = x[i] + c[s]*dt*r.k[s-1][i]
		}
		copy(r.k[s], sys.Derive(r.scratch, t+c[s]*dt))
	}

	next := make(tauleap.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		next[i] = x[i] + dt6*(r.k[0][i]+2*r.k[1][i]+2*r.k[2][i]+r.k[3][i])
	}
	return next
}
