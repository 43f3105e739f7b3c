package tauleap

import (
	"gonum.org/v1/gonum/mat"
)

// LinearSolver solves the dense system a·x = b arising in each Newton
// iteration of the implicit leap.
type LinearSolver interface {
	Solve(a *mat.Dense, b *mat.VecDense) (*mat.VecDense, error)
}

// LUSolver solves with a partial-pivoting LU factorization.
type LUSolver struct {
	lu mat.LU
}

func NewLUSolver() *LUSolver {
	return &LUSolver{}
}

func (s *LUSolver) Solve(a *mat.Dense, b *mat.VecDense) (*mat.VecDense, error) {
	s.lu.Factorize(a)
	var x mat.VecDense
	if err := s.lu.SolveVecTo(&x, false, b); err != nil {
		return nil, err
	}
	return &x, nil
}
