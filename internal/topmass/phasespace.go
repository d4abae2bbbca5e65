package topmass

import (
	"math"

	"go-hep.org/x/hep/fmom"
	"gonum.org/v1/gonum/stat/distuv"
)

// breitWigner is the relativistic Breit-Wigner density in m^2, a Cauchy
// distribution centred at m0^2 with scale m0*width.
type breitWigner struct {
	dist distuv.StudentsT
}

func newBreitWigner(m0, width float64) breitWigner {
	return breitWigner{dist: distuv.StudentsT{Mu: m0 * m0, Sigma: m0 * width, Nu: 1}}
}

// Quantile maps u in (0,1) to m^2.
func (b breitWigner) Quantile(u float64) float64 { return b.dist.Quantile(u) }

// Prob is the normalised density at m2.
func (b breitWigner) Prob(m2 float64) float64 { return b.dist.Prob(m2) }

// coverageEdges returns the m^2 interval holding the central fraction c.
func (b breitWigner) coverageEdges(c float64) (lo, hi float64) {
	ulo, uhi := coverageWindow(c)
	return b.quantileOrInf(ulo), b.quantileOrInf(uhi)
}

func (b breitWigner) quantileOrInf(u float64) float64 {
	switch u {
	case 0:
		return math.Inf(-1)
	case 1:
		return math.Inf(1)
	}
	return b.Quantile(u)
}

// tauSpectrum is the visible-energy-fraction density of a leptonic tau
// decay with massless daughters, normalised on [0,1].
func tauSpectrum(x float64) float64 {
	return (5 - 9*x*x + 4*x*x*x) / 3
}

// leptonicPhaseSpace is the phase-space factor of one leptonic solution:
// s^2 / (E_b E_nu |det J|). Non-finite values count as zero.
func leptonicPhaseSpace(sol *LeptonicSolution) float64 {
	det := math.Abs(sol.JacobianDet)
	eb := sol.B.E()
	enu := sol.Nu.E()
	if det == 0 || eb <= 0 || enu <= 0 {
		return 0
	}
	ps := sol.S * sol.S / (eb * enu * det)
	if math.IsNaN(ps) || math.IsInf(ps, 0) {
		return 0
	}
	return ps
}

// bjorkenX returns the incoming parton momentum fractions of a final
// state with total energy e and longitudinal momentum pz.
func bjorkenX(total fmom.PxPyPzE, sqrtS float64) (x1, x2 float64) {
	e, pz := total.E(), total.Pz()
	return (e + pz) / sqrtS, (e - pz) / sqrtS
}

func finitePositive(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}
