package kinematics

import (
	"math"

	"go-hep.org/x/hep/fmom"
)

// Sum adds four-momenta component-wise.
func Sum(ps ...fmom.PxPyPzE) fmom.PxPyPzE {
	var px, py, pz, e float64
	for i := range ps {
		p := &ps[i]
		px += p.Px()
		py += p.Py()
		pz += p.Pz()
		e += p.E()
	}
	return fmom.NewPxPyPzE(px, py, pz, e)
}

// Mass2 returns the Lorentz square E^2 - |p|^2, which may be slightly
// negative for light-like vectors.
func Mass2(p fmom.PxPyPzE) float64 {
	return p.E()*p.E() - p.Px()*p.Px() - p.Py()*p.Py() - p.Pz()*p.Pz()
}

// Mass returns sqrt(max(Mass2, 0)).
func Mass(p fmom.PxPyPzE) float64 {
	m2 := Mass2(p)
	if m2 <= 0 {
		return 0
	}
	return math.Sqrt(m2)
}

// Pt returns the transverse momentum of p.
func Pt(p fmom.PxPyPzE) float64 { return math.Hypot(p.Px(), p.Py()) }

// Momentum returns |p|.
func Momentum(p fmom.PxPyPzE) float64 {
	return math.Sqrt(p.Px()*p.Px() + p.Py()*p.Py() + p.Pz()*p.Pz())
}

// FromDirection builds an on-shell four-momentum of magnitude p along the
// unit vector dir.
func FromDirection(dir [3]float64, p, m float64) fmom.PxPyPzE {
	return fmom.NewPxPyPzE(p*dir[0], p*dir[1], p*dir[2], math.Sqrt(p*p+m*m))
}

// OnShell builds a four-momentum from a three-momentum and a mass.
func OnShell(px, py, pz, m float64) fmom.PxPyPzE {
	return massive(px, py, pz, m)
}

// Boost applies the Lorentz boost with velocity (bx, by, bz) to p.
func Boost(p fmom.PxPyPzE, bx, by, bz float64) fmom.PxPyPzE {
	b2 := bx*bx + by*by + bz*bz
	if b2 == 0 {
		return p
	}
	gamma := 1 / math.Sqrt(1-b2)
	bp := bx*p.Px() + by*p.Py() + bz*p.Pz()
	gamma2 := (gamma - 1) / b2
	return fmom.NewPxPyPzE(
		p.Px()+gamma2*bp*bx+gamma*bx*p.E(),
		p.Py()+gamma2*bp*by+gamma*by*p.E(),
		p.Pz()+gamma2*bp*bz+gamma*bz*p.E(),
		gamma*(p.E()+bp),
	)
}
