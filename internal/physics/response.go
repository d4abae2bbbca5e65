package physics

import (
	"math"

	"go-hep.org/x/hep/fmom"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/topmass/internal/kinematics"
	"github.com/banshee-data/topmass/internal/topmass"
)

// Resolution is a calorimeter-style jet pT resolution,
// sigma(pT) = sqrt(Stochastic^2 pT + (Constant pT)^2).
type Resolution struct {
	Stochastic float64 // GeV^(1/2)
	Constant   float64
}

func (r Resolution) Sigma(pt float64) float64 {
	return math.Sqrt(r.Stochastic*r.Stochastic*pt + r.Constant*r.Constant*pt*pt)
}

// GaussianTransfer compares the JES-corrected jet pT with the parton pT
// under a Gaussian of width Resolution.Sigma(parton pT). b jets have
// their own resolution.
type GaussianTransfer struct {
	Light Resolution
	B     Resolution
}

var _ topmass.TransferFunction = GaussianTransfer{}

// DefaultTransfer is a Tevatron-like jet response.
func DefaultTransfer() GaussianTransfer {
	return GaussianTransfer{
		Light: Resolution{Stochastic: 1.0, Constant: 0.10},
		B:     Resolution{Stochastic: 1.1, Constant: 0.12},
	}
}

func (t GaussianTransfer) resolution(r topmass.Role) Resolution {
	if r.IsB() {
		return t.B
	}
	return t.Light
}

func (t GaussianTransfer) Density(parton fmom.PxPyPzE, jet kinematics.Jet, jes float64, role topmass.Role) float64 {
	pt := kinematics.Pt(parton)
	if !(pt > 0) || !(jes > 0) {
		return 0
	}
	sigma := t.resolution(role).Sigma(pt)
	return distuv.Normal{Mu: pt, Sigma: sigma}.Prob(jet.Pt()/jes) / jes
}

// Smear draws a measured pT for parton pT pt at scale jes. It is the
// sampling counterpart of Density.
func (t GaussianTransfer) Smear(pt, jes float64, role topmass.Role, n distuv.Normal) float64 {
	return jes * (pt + t.resolution(role).Sigma(pt)*n.Rand())
}

// TurnOn is an error-function selection efficiency at a jet pT cut.
type TurnOn struct {
	PtCut float64 // GeV
	Sigma float64 // GeV
}

var _ topmass.PartonEfficiency = TurnOn{}

// DefaultTurnOn is a 20 GeV cut with a 3 GeV turn-on.
func DefaultTurnOn() TurnOn { return TurnOn{PtCut: 20, Sigma: 3} }

// Pass is the probability that a jet of the given pT passes the cut.
func (t TurnOn) Pass(pt, sigma float64) float64 {
	if sigma <= 0 {
		if pt >= t.PtCut {
			return 1
		}
		return 0
	}
	return distuv.Normal{Mu: t.PtCut, Sigma: sigma}.CDF(pt)
}

// Efficiency shifts the parton pT by the JES offset and widens the
// turn-on by the JES uncertainty at the cut.
func (t TurnOn) Efficiency(parton fmom.PxPyPzE, role topmass.Role, deltaJES, sigmaAtCut float64) float64 {
	sigma := t.Sigma
	if sigmaAtCut > 0 {
		sigma = math.Hypot(sigma, sigmaAtCut*t.PtCut)
	}
	return t.Pass(kinematics.Pt(parton)*(1+deltaJES), sigma)
}

// Acquisition is the probability of selecting the observed jets: the
// product of their turn-on probabilities at the JES-corrected pT, times
// ExtraJetRate when one jet is attributed to radiation.
type Acquisition struct {
	TurnOn       TurnOn
	ExtraJetRate float64
}

var _ topmass.JetAcquisition = Acquisition{}

func (a Acquisition) ProbToAcquire(jets []kinematics.Jet, dropped int, jes float64) float64 {
	if !(jes > 0) {
		return 0
	}
	p := 1.0
	for i, j := range jets {
		if i == dropped || j.Extra() {
			continue
		}
		p *= a.TurnOn.Pass(j.Pt()/jes, a.TurnOn.Sigma)
	}
	if dropped >= 0 {
		p *= a.ExtraJetRate
	}
	return p
}

// LossFactor is the parton-loss probability 1 - efficiency.
type LossFactor struct {
	TurnOn TurnOn
}

var _ topmass.PartonLoss = LossFactor{}

func (l LossFactor) ProbToLose(parton fmom.PxPyPzE, deltaJES float64, role topmass.Role) float64 {
	return 1 - l.TurnOn.Efficiency(parton, role, deltaJES, 0)
}
