package topmass

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	newtonIterations = 20
	newtonTolerance  = 1e-9
)

// newtonMinimum minimises mW^2(s, pz) on the curve mt^2(s, pz) = MTop2 by
// Newton iteration on the Lagrange conditions
//
//	grad mW^2 - lambda grad mt^2 = 0,  mt^2 - MTop2 = 0
//
// starting midway between the merging pair. Second derivatives come from
// central differences of the solver's constraint Jacobian.
func (w *wMassIntegrator) newtonMinimum(in *LeptonicInput, a, b *LeptonicSolution) (float64, bool) {
	s := (a.S + b.S) / 2
	pz := (a.NuPz + b.NuPz) / 2

	_, _, jac := w.solver.Constraints(in, s, pz)
	gT2 := jac[1][0]*jac[1][0] + jac[1][1]*jac[1][1]
	if gT2 == 0 {
		return 0, false
	}
	lambda := (jac[0][0]*jac[1][0] + jac[0][1]*jac[1][1]) / gT2

	j := mat.NewDense(3, 3, nil)
	f := mat.NewVecDense(3, nil)
	var dx mat.VecDense
	for it := 0; it < newtonIterations; it++ {
		_, mt2, g := w.solver.Constraints(in, s, pz)
		hs := 1e-5 * math.Max(1, math.Abs(s))
		hp := 1e-5 * math.Max(1, math.Abs(pz))
		_, _, gs1 := w.solver.Constraints(in, s+hs, pz)
		_, _, gs0 := w.solver.Constraints(in, s-hs, pz)
		_, _, gp1 := w.solver.Constraints(in, s, pz+hp)
		_, _, gp0 := w.solver.Constraints(in, s, pz-hp)

		var hss, hsp, hpp [2]float64 // second derivatives of (mW^2, mt^2)
		for r := 0; r < 2; r++ {
			hss[r] = (gs1[r][0] - gs0[r][0]) / (2 * hs)
			hsp[r] = (gp1[r][0] - gp0[r][0]) / (2 * hp)
			hpp[r] = (gp1[r][1] - gp0[r][1]) / (2 * hp)
		}

		j.Set(0, 0, hss[0]-lambda*hss[1])
		j.Set(0, 1, hsp[0]-lambda*hsp[1])
		j.Set(0, 2, -g[1][0])
		j.Set(1, 0, hsp[0]-lambda*hsp[1])
		j.Set(1, 1, hpp[0]-lambda*hpp[1])
		j.Set(1, 2, -g[1][1])
		j.Set(2, 0, g[1][0])
		j.Set(2, 1, g[1][1])
		j.Set(2, 2, 0)

		f.SetVec(0, -(g[0][0] - lambda*g[1][0]))
		f.SetVec(1, -(g[0][1] - lambda*g[1][1]))
		f.SetVec(2, -(mt2 - in.MTop2))

		if err := dx.SolveVec(j, f); err != nil {
			w.limiter.Logf("wmass-singular", "topmass: singular newton system at s=%g pz=%g: %v", s, pz, err)
			return 0, false
		}
		s += dx.AtVec(0)
		pz += dx.AtVec(1)
		lambda += dx.AtVec(2)
		if math.IsNaN(s) || math.IsNaN(pz) || math.IsInf(s, 0) || math.IsInf(pz, 0) {
			return 0, false
		}
		if math.Abs(dx.AtVec(0)) <= newtonTolerance*(1+math.Abs(s)) &&
			math.Abs(dx.AtVec(1)) <= newtonTolerance*(1+math.Abs(pz)) {
			if s <= 0 {
				return 0, false
			}
			mw2, _, _ := w.solver.Constraints(in, s, pz)
			return mw2, true
		}
	}
	return 0, false
}
