package topmass

import (
	"math"
	"time"

	"go-hep.org/x/hep/fmom"

	"github.com/banshee-data/topmass/internal/kinematics"
	"github.com/banshee-data/topmass/internal/timeutil"
)

// quadLeptonic is an analytic leptonic solver:
//
//	mW^2 = m0sq + (s - s0)^2 + pz^2,  mt^2 = t + k*pz
//
// with b = (s,0,0,s) and nu = (0,0,s,s), so the phase-space factor of a
// solution is 1/|det J| = 1/(2k|s - s0|).
type quadLeptonic struct {
	m0sq, s0, t, k float64
	flatJacobian   bool // Constraints reports a zero Jacobian
	never          bool // no solutions at all
	calls          int
}

func (f *quadLeptonic) pz(in *LeptonicInput) float64 { return (in.MTop2 - f.t) / f.k }

func (f *quadLeptonic) minimum(in *LeptonicInput) float64 {
	pz := f.pz(in)
	return f.m0sq + pz*pz
}

func (f *quadLeptonic) SolveLeptonic(in *LeptonicInput, mw2 float64, out *[4]LeptonicSolution) int {
	f.calls++
	if f.never {
		return 0
	}
	pz := f.pz(in)
	d := mw2 - f.m0sq - pz*pz
	if d <= 0 {
		return 0
	}
	r := math.Sqrt(d)
	n := 0
	for _, s := range [2]float64{f.s0 - r, f.s0 + r} {
		if s <= 0 {
			continue
		}
		out[n] = LeptonicSolution{
			Nu:          fmom.NewPxPyPzE(0, 0, s, s),
			B:           fmom.NewPxPyPzE(s, 0, 0, s),
			S:           s,
			NuPz:        pz,
			JacobianDet: 2 * (s - f.s0) * f.k,
		}
		n++
	}
	return n
}

func (f *quadLeptonic) Constraints(in *LeptonicInput, s, pz float64) (float64, float64, [2][2]float64) {
	mw2 := f.m0sq + (s-f.s0)*(s-f.s0) + pz*pz
	mt2 := f.t + f.k*pz
	if f.flatJacobian {
		return mw2, mt2, [2][2]float64{}
	}
	return mw2, mt2, [2][2]float64{{2 * (s - f.s0), 2 * pz}, {0, f.k}}
}

// passW resolves the light quarks to the jets themselves.
type passW struct{ calls int }

func (f *passW) SolveW(q, qbar kinematics.Jet, mq, mqbar, mw2, aux float64) (HadronicWSolution, bool) {
	f.calls++
	return HadronicWSolution{Q: q.P4(), Qbar: qbar.P4(), Jacobian: 1}, true
}

// passTop resolves the hadronic b to the jet itself.
type passTop struct{}

func (passTop) SolveTop(w fmom.PxPyPzE, b kinematics.Jet, mb, mt2 float64, out *[2]HadronicTopSolution) int {
	out[0] = HadronicTopSolution{B: b.P4(), Jacobian: 1}
	return 1
}

// jesTransfer peaks at JES 1 and ignores the partons.
type jesTransfer struct{}

func (jesTransfer) Density(parton fmom.PxPyPzE, jet kinematics.Jet, jes float64, role Role) float64 {
	d := (jes - 1) / 0.05
	return math.Exp(-0.5 * d * d)
}

type constAcquisition float64

func (c constAcquisition) ProbToAcquire([]kinematics.Jet, int, float64) float64 { return float64(c) }

func testJets() []kinematics.Jet {
	return []kinematics.Jet{
		kinematics.NewJet(40, 10, 5, 5, kinematics.JetInfo{BTagProb: 0.4, BFakeRate: 0.02}),
		kinematics.NewJet(-30, 25, -10, 4, kinematics.JetInfo{BTagProb: 0.4, BFakeRate: 0.02}),
		kinematics.NewJet(60, -40, 20, 6, kinematics.JetInfo{BTagProb: 0.4, BFakeRate: 0.02, Tagged: true}),
		kinematics.NewJet(-50, -30, 35, 6, kinematics.JetInfo{BTagProb: 0.4, BFakeRate: 0.02}),
	}
}

func testEvent() *kinematics.Event {
	return &kinematics.Event{
		ID:     "test",
		Jets:   testJets(),
		Lepton: kinematics.NewLepton(35, 5, -12, 0, -1),
	}
}

func testLeptonic(p IntegrationParams) *quadLeptonic {
	return &quadLeptonic{m0sq: p.WMass*p.WMass - 50, s0: 200, t: 172.5 * 172.5, k: 1000}
}

func testContext(p IntegrationParams) ScanContext {
	return ScanContext{
		BQuarkMass:  4.7,
		HadronicW:   &passW{},
		HadronicTop: passTop{},
		Leptonic:    testLeptonic(p),
		Transfer:    jesTransfer{},
		Clock:       timeutil.NewMockClock(time.Unix(0, 0)),
	}
}

func testParams() (IntegrationParams, MCParams) {
	integ := DefaultIntegrationParams()
	integ.WLepPoints = 16
	integ.PermuteJets = PermuteNone
	mc := DefaultMCParams()
	mc.MinPoints = 64
	mc.MaxPoints = 256
	mc.MaxZeroProbPoints = 1 << 20
	mc.MaxEventTime = 0
	mc.DimMask = MaskOf(DimWHad, DimTHad, DimTLep, DimWLep, DimPtTTbar, DimPhiTTbar)
	return integ, mc
}
