package physics

import (
	"math"

	"go-hep.org/x/hep/fmom"

	"github.com/banshee-data/topmass/internal/kinematics"
	"github.com/banshee-data/topmass/internal/topmass"
)

const (
	bracketDoublings  = 64
	bisectionSteps    = 200
	bisectionRelative = 1e-13
)

// WSolver resolves the hadronic W by scaling both light-quark momenta
// along their jet directions. The quark momentum is aux times the
// antiquark momentum, so the pair mass is a single non-decreasing
// function of the antiquark momentum x and the solution is unique.
type WSolver struct{}

var _ topmass.HadronicWSolver = WSolver{}

func (WSolver) SolveW(q, qbar kinematics.Jet, mq, mqbar, mw2, aux float64) (topmass.HadronicWSolution, bool) {
	thr := mq + mqbar
	if !(mw2 > thr*thr) || !(aux > 0) || math.IsInf(mw2, 0) {
		return topmass.HadronicWSolution{}, false
	}
	dq, dqbar := q.Dir(), qbar.Dir()
	cos := dq[0]*dqbar[0] + dq[1]*dqbar[1] + dq[2]*dqbar[2]

	pair := func(x float64) (m2, eq, eqbar float64) {
		pq, pqbar := aux*x, x
		eq = math.Sqrt(pq*pq + mq*mq)
		eqbar = math.Sqrt(pqbar*pqbar + mqbar*mqbar)
		return mq*mq + mqbar*mqbar + 2*(eq*eqbar-pq*pqbar*cos), eq, eqbar
	}

	hi := 1.0
	if cos < 1 {
		hi = math.Max(hi, math.Sqrt(mw2/(2*aux*(1-cos))))
	}
	ok := false
	for i := 0; i < bracketDoublings; i++ {
		if m2, _, _ := pair(hi); m2 >= mw2 {
			ok = true
			break
		}
		hi *= 2
	}
	if !ok {
		return topmass.HadronicWSolution{}, false
	}
	lo := 0.0
	for i := 0; i < bisectionSteps && hi-lo > bisectionRelative*hi; i++ {
		mid := lo + (hi-lo)/2
		if m2, _, _ := pair(mid); m2 < mw2 {
			lo = mid
		} else {
			hi = mid
		}
	}

	x := lo + (hi-lo)/2
	_, eq, eqbar := pair(x)
	pq, pqbar := aux*x, x
	dm2 := 2 * (aux*pq*eqbar/eq + pqbar*eq/eqbar - 2*aux*x*cos)
	if !(dm2 > 0) {
		return topmass.HadronicWSolution{}, false
	}
	return topmass.HadronicWSolution{
		Q:        kinematics.FromDirection(dq, pq, mq),
		Qbar:     kinematics.FromDirection(dqbar, pqbar, mqbar),
		Jacobian: aux * pq * pq * pqbar * pqbar / (eq * eqbar * dm2),
	}, true
}

// TopSolver resolves the hadronic b momentum s along the b jet direction
// n from
//
//	E_W sqrt(s^2 + mb^2) = A + s (p_W . n),  A = (mt^2 - mW^2 - mb^2)/2
//
// which squares to a quadratic in s.
type TopSolver struct{}

var _ topmass.HadronicTopSolver = TopSolver{}

func (TopSolver) SolveTop(w fmom.PxPyPzE, b kinematics.Jet, mb, mt2 float64, out *[2]topmass.HadronicTopSolution) int {
	n := b.Dir()
	ew := w.E()
	k := w.Px()*n[0] + w.Py()*n[1] + w.Pz()*n[2]
	a := (mt2 - kinematics.Mass2(w) - mb*mb) / 2

	roots, nr := solveQuadratic(ew*ew-k*k, -2*a*k, ew*ew*mb*mb-a*a)
	cnt := 0
	for _, s := range roots[:nr] {
		if !(s > 0) || a+s*k < 0 {
			continue
		}
		eb := math.Sqrt(s*s + mb*mb)
		deriv := 2 * (ew*s/eb - k)
		if deriv == 0 {
			continue
		}
		out[cnt] = topmass.HadronicTopSolution{
			B:        kinematics.FromDirection(n, s, mb),
			Jacobian: s * s / (eb * math.Abs(deriv)),
		}
		cnt++
	}
	return cnt
}
