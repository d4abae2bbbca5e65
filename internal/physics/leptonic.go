package physics

import (
	"math"

	"go-hep.org/x/hep/fmom"

	"github.com/banshee-data/topmass/internal/kinematics"
	"github.com/banshee-data/topmass/internal/topmass"
)

// LeptonicSolver solves the leptonic side in the unknowns s, the b quark
// momentum along the b jet direction, and the neutrino pz. The neutrino
// pT follows from the leptonic top pT. For fixed s the W-mass constraint
// is a quadratic in pz with two branches; along each branch the top-mass
// constraint is scanned on a logarithmic grid in s and every sign change
// is refined by bisection.
type LeptonicSolver struct {
	// SMin and SMax bound the scanned b momentum (GeV).
	SMin, SMax float64
	// ScanPoints is the number of grid points in s.
	ScanPoints int
}

var _ topmass.LeptonicSolver = (*LeptonicSolver)(nil)

// NewLeptonicSolver returns a solver scanning s in [1, smax] GeV.
func NewLeptonicSolver(smax float64) *LeptonicSolver {
	return &LeptonicSolver{SMin: 1, SMax: smax, ScanPoints: 96}
}

// neutrinoT is the neutrino transverse momentum for b momentum s.
func neutrinoT(in *topmass.LeptonicInput, s float64) (float64, float64) {
	return in.TopPt[0] - in.Lepton.Px() - s*in.BDir[0],
		in.TopPt[1] - in.Lepton.Py() - s*in.BDir[1]
}

// neutrinoPz returns the pz of the given branch (0 or 1) of the W-mass
// quadratic.
func neutrinoPz(in *topmass.LeptonicInput, s, mw2 float64, branch int) (float64, bool) {
	l := &in.Lepton
	nx, ny := neutrinoT(in, s)
	el, lz := l.E(), l.Pz()
	mu := (mw2-kinematics.Mass2(*l))/2 + l.Px()*nx + l.Py()*ny
	a := el*el - lz*lz
	disc := mu*mu - a*(nx*nx+ny*ny)
	if a <= 0 || disc < 0 {
		return 0, false
	}
	r := el * math.Sqrt(disc)
	if branch == 1 {
		r = -r
	}
	pz := (mu*lz + r) / a
	// reject the root introduced by squaring E_l E_nu = mu + lz pz
	if mu+lz*pz < 0 {
		return 0, false
	}
	return pz, true
}

func (ls *LeptonicSolver) topResidual(in *topmass.LeptonicInput, s, mw2 float64, branch int) (float64, bool) {
	pz, ok := neutrinoPz(in, s, mw2, branch)
	if !ok {
		return 0, false
	}
	_, mt2, _ := ls.Constraints(in, s, pz)
	return mt2 - in.MTop2, true
}

func (ls *LeptonicSolver) SolveLeptonic(in *topmass.LeptonicInput, mw2 float64, out *[4]topmass.LeptonicSolution) int {
	if !(mw2 > 0) || math.IsInf(mw2, 0) || ls.ScanPoints < 2 || !(ls.SMax > ls.SMin) || !(ls.SMin > 0) {
		return 0
	}
	ratio := math.Pow(ls.SMax/ls.SMin, 1/float64(ls.ScanPoints-1))
	cnt := 0
	for branch := 0; branch < 2; branch++ {
		prevS, prevG, prevOK := 0.0, 0.0, false
		s := ls.SMin
		for i := 0; i < ls.ScanPoints && cnt < len(out); i++ {
			g, ok := ls.topResidual(in, s, mw2, branch)
			if ok && prevOK && (g < 0) != (prevG < 0) {
				if root, found := ls.bisect(in, mw2, branch, prevS, s, prevG); found {
					out[cnt] = ls.solution(in, root, mw2, branch)
					cnt++
				}
			}
			prevS, prevG, prevOK = s, g, ok
			s *= ratio
		}
	}
	return cnt
}

func (ls *LeptonicSolver) bisect(in *topmass.LeptonicInput, mw2 float64, branch int, lo, hi, glo float64) (float64, bool) {
	for i := 0; i < bisectionSteps && hi-lo > bisectionRelative*hi; i++ {
		mid := lo + (hi-lo)/2
		g, ok := ls.topResidual(in, mid, mw2, branch)
		if !ok {
			return 0, false
		}
		if (g < 0) == (glo < 0) {
			lo, glo = mid, g
		} else {
			hi = mid
		}
	}
	return lo + (hi-lo)/2, true
}

func (ls *LeptonicSolver) solution(in *topmass.LeptonicInput, s, mw2 float64, branch int) topmass.LeptonicSolution {
	pz, _ := neutrinoPz(in, s, mw2, branch)
	nx, ny := neutrinoT(in, s)
	_, _, jac := ls.Constraints(in, s, pz)
	return topmass.LeptonicSolution{
		Nu:          fmom.NewPxPyPzE(nx, ny, pz, math.Sqrt(nx*nx+ny*ny+pz*pz)),
		B:           kinematics.FromDirection(in.BDir, s, in.MB),
		S:           s,
		NuPz:        pz,
		JacobianDet: jac[0][0]*jac[1][1] - jac[0][1]*jac[1][0],
	}
}

// Constraints evaluates (mW^2, mt^2) and their derivatives analytically.
// The leptonic top pT is fixed, so mt^2 = E^2 - |pT_top|^2 - pz_top^2.
func (ls *LeptonicSolver) Constraints(in *topmass.LeptonicInput, s, nuPz float64) (mw2, mt2 float64, jac [2][2]float64) {
	l := &in.Lepton
	n := in.BDir
	nx, ny := neutrinoT(in, s)
	enu := math.Sqrt(nx*nx + ny*ny + nuPz*nuPz)
	eb := math.Sqrt(s*s + in.MB*in.MB)
	el := l.E()

	mw2 = kinematics.Mass2(*l) + 2*(el*enu-l.Px()*nx-l.Py()*ny-l.Pz()*nuPz)
	e := el + enu + eb
	pz := l.Pz() + nuPz + s*n[2]
	mt2 = e*e - in.TopPt[0]*in.TopPt[0] - in.TopPt[1]*in.TopPt[1] - pz*pz

	if enu == 0 || eb == 0 {
		return mw2, mt2, jac
	}
	dEnuDs := -(nx*n[0] + ny*n[1]) / enu
	dEnuDpz := nuPz / enu
	jac[0][0] = 2 * (el*dEnuDs + l.Px()*n[0] + l.Py()*n[1])
	jac[0][1] = 2 * (el*dEnuDpz - l.Pz())
	jac[1][0] = 2*e*(dEnuDs+s/eb) - 2*pz*n[2]
	jac[1][1] = 2*e*dEnuDpz - 2*pz
	return mw2, mt2, jac
}
