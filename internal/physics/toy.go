package physics

import (
	"math"

	"github.com/banshee-data/topmass/internal/kinematics"
	"github.com/banshee-data/topmass/internal/topmass"
)

// ToyMatrixElement weights a final state by the flux factor mt^2/s_hat
// and the V-A decay distribution (1 + cos theta)/2 of the charged lepton
// in the leptonic top rest frame, measured from the top direction and
// signed by the lepton charge.
type ToyMatrixElement struct{}

var _ topmass.MatrixElement = ToyMatrixElement{}

func (ToyMatrixElement) Weight(in *topmass.MatrixElementInput) float64 {
	total := kinematics.Sum(in.Q, in.Qbar, in.BHad, in.BLep, in.Lepton, in.Nu)
	shat := kinematics.Mass2(total)
	if !(shat > 0) {
		return 0
	}
	top := kinematics.Sum(in.BLep, in.Lepton, in.Nu)
	if top.E() <= 0 {
		return 0
	}
	lep := kinematics.Boost(in.Lepton, -top.Px()/top.E(), -top.Py()/top.E(), -top.Pz()/top.E())
	pt, pl := kinematics.Momentum(top), kinematics.Momentum(lep)
	cos := 0.0
	if pt > 0 && pl > 0 {
		cos = (top.Px()*lep.Px() + top.Py()*lep.Py() + top.Pz()*lep.Pz()) / (pt * pl)
	}
	if in.LeptonCharge < 0 {
		cos = -cos
	}
	return in.MTop * in.MTop / shat * (1 + cos) / 2
}

// ToyStructureFunction is a gluon-like parton luminosity
// f(x1) f(x2) with f(x) = (1-x)^Power / x.
type ToyStructureFunction struct {
	Power float64
}

var _ topmass.StructureFunction = ToyStructureFunction{}

func (s ToyStructureFunction) Weight(x1, x2 float64) float64 {
	f := func(x float64) float64 {
		if !(x > 0) || x >= 1 {
			return 0
		}
		return math.Pow(1-x, s.Power) / x
	}
	return f(x1) * f(x2)
}
