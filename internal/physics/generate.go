package physics

import (
	"fmt"
	"math"
	"slices"

	"go-hep.org/x/hep/fmom"
	"gonum.org/v1/gonum/mathext/prng"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/topmass/internal/kinematics"
	"github.com/banshee-data/topmass/internal/topmass"
)

// GeneratorConfig describes the synthetic sample.
type GeneratorConfig struct {
	TopMass, TopWidth float64
	WMass, WWidth     float64
	BMass             float64
	LightMass         float64
	JES               float64

	Transfer  GaussianTransfer
	BTagEff   float64
	BFakeRate float64

	// RecoilScale is the Weibull scale of the ttbar pT and ExcessScale the
	// mean ttbar mass above threshold (GeV).
	RecoilScale float64
	ExcessScale float64
	// RapiditySigma is the width of the ttbar rapidity distribution.
	RapiditySigma float64
}

// DefaultGeneratorConfig generates at mt = 172.5 GeV and JES = 1.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		TopMass:       172.5,
		TopWidth:      TopWidthLO(172.5, 80.403, DefaultBQuarkMass),
		WMass:         80.403,
		WWidth:        2.141,
		BMass:         DefaultBQuarkMass,
		LightMass:     0.5,
		JES:           1,
		Transfer:      DefaultTransfer(),
		BTagEff:       0.4,
		BFakeRate:     0.02,
		RecoilScale:   20,
		ExcessScale:   60,
		RapiditySigma: 0.6,
	}
}

// Generator draws lepton+jets ttbar events: both tops decay through an
// on-shell W, one W to a lepton and neutrino, the other to two light
// quarks. The four quarks become jets through the configured response.
type Generator struct {
	cfg GeneratorConfig
	src *prng.MT19937

	unit   distuv.Uniform
	normal distuv.Normal
}

// NewGenerator returns a generator seeded with seed.
func NewGenerator(cfg GeneratorConfig, seed uint64) *Generator {
	src := prng.NewMT19937()
	src.Seed(seed)
	return &Generator{
		cfg:    cfg,
		src:    src,
		unit:   distuv.Uniform{Min: 0, Max: 1, Src: src},
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
}

// breitWignerMass draws a mass from a Breit-Wigner in m^2 truncated to
// (lo, hi).
func (g *Generator) breitWignerMass(m0, width, lo, hi float64) float64 {
	bw := distuv.StudentsT{Mu: m0 * m0, Sigma: m0 * width, Nu: 1, Src: g.src}
	for {
		m2 := bw.Rand()
		if m2 > lo*lo && m2 < hi*hi {
			return math.Sqrt(m2)
		}
	}
}

// isotropic returns a unit vector uniform on the sphere.
func (g *Generator) isotropic() [3]float64 {
	cos := 2*g.unit.Rand() - 1
	sin := math.Sqrt(1 - cos*cos)
	phi := 2 * math.Pi * g.unit.Rand()
	return [3]float64{sin * math.Cos(phi), sin * math.Sin(phi), cos}
}

// decay splits parent into daughters of masses m1 and m2, isotropic in
// the parent rest frame.
func (g *Generator) decay(parent fmom.PxPyPzE, m1, m2 float64) (fmom.PxPyPzE, fmom.PxPyPzE) {
	m := kinematics.Mass(parent)
	p := twoBodyMomentum(m, m1, m2)
	dir := g.isotropic()
	d1 := kinematics.FromDirection(dir, p, m1)
	d2 := kinematics.FromDirection([3]float64{-dir[0], -dir[1], -dir[2]}, p, m2)
	e := parent.E()
	bx, by, bz := parent.Px()/e, parent.Py()/e, parent.Pz()/e
	return kinematics.Boost(d1, bx, by, bz), kinematics.Boost(d2, bx, by, bz)
}

func twoBodyMomentum(m, m1, m2 float64) float64 {
	s := m * m
	l := (s - (m1+m2)*(m1+m2)) * (s - (m1-m2)*(m1-m2))
	if l <= 0 {
		return 0
	}
	return math.Sqrt(l) / (2 * m)
}

type parton struct {
	p4   fmom.PxPyPzE
	role topmass.Role
}

// Event draws one event.
func (g *Generator) Event(id string) kinematics.Event {
	c := g.cfg
	wLo := c.LightMass*2 + 1
	tLo := c.WMass + c.BMass + 1
	mw1 := g.breitWignerMass(c.WMass, c.WWidth, wLo, c.WMass+10*c.WWidth)
	mw2 := g.breitWignerMass(c.WMass, c.WWidth, wLo, c.WMass+10*c.WWidth)
	mt1 := g.breitWignerMass(c.TopMass, c.TopWidth, math.Max(tLo, mw1+c.BMass+0.1), c.TopMass+15*c.TopWidth)
	mt2 := g.breitWignerMass(c.TopMass, c.TopWidth, math.Max(tLo, mw2+c.BMass+0.1), c.TopMass+15*c.TopWidth)

	// ttbar system: mass above threshold, pT recoil and rapidity
	excess := distuv.Exponential{Rate: 1 / c.ExcessScale, Src: g.src}.Rand()
	mtt := mt1 + mt2 + excess
	pt := distuv.Weibull{K: 2, Lambda: c.RecoilScale, Src: g.src}.Rand()
	phi := 2 * math.Pi * g.unit.Rand()
	y := c.RapiditySigma * g.normal.Rand()
	mT := math.Hypot(mtt, pt)
	ttbar := fmom.NewPxPyPzE(pt*math.Cos(phi), pt*math.Sin(phi), mT*math.Sinh(y), mT*math.Cosh(y))

	tLep, tHad := g.decay(ttbar, mt1, mt2)
	wLep, bLep := g.decay(tLep, mw1, c.BMass)
	wHad, bHad := g.decay(tHad, mw2, c.BMass)
	lep, _ := g.decay(wLep, 0, 0)
	q, qbar := g.decay(wHad, c.LightMass, c.LightMass)

	charge := 1
	if g.unit.Rand() < 0.5 {
		charge = -1
	}
	partons := []parton{
		{p4: q, role: topmass.RoleQ},
		{p4: qbar, role: topmass.RoleQbar},
		{p4: bLep, role: topmass.RoleBLep},
		{p4: bHad, role: topmass.RoleBHad},
	}
	jets := make([]kinematics.Jet, 0, len(partons))
	for i := range partons {
		jets = append(jets, g.jet(&partons[i]))
	}
	slices.SortFunc(jets, func(a, b kinematics.Jet) int {
		switch {
		case a.Pt() > b.Pt():
			return -1
		case a.Pt() < b.Pt():
			return 1
		}
		return 0
	})
	return kinematics.Event{
		ID:         id,
		Jets:       jets,
		Lepton:     kinematics.NewLepton(lep.Px(), lep.Py(), lep.Pz(), 0, charge),
		BQuarkMass: c.BMass,
	}
}

// jet smears a parton into a jet along the parton direction and draws
// its b tag.
func (g *Generator) jet(p *parton) kinematics.Jet {
	c := g.cfg
	pt := kinematics.Pt(p.p4)
	measured := c.Transfer.Smear(pt, c.JES, p.role, g.normal)
	for measured < 0.05*pt {
		measured = c.Transfer.Smear(pt, c.JES, p.role, g.normal)
	}
	f := measured / pt
	tagProb := c.BFakeRate
	if p.role.IsB() {
		tagProb = c.BTagEff
	}
	info := kinematics.JetInfo{
		BTagProb:  c.BTagEff,
		BFakeRate: c.BFakeRate,
		Tagged:    distuv.Bernoulli{P: tagProb, Src: g.src}.Rand() == 1,
	}
	return kinematics.NewJet(f*p.p4.Px(), f*p.p4.Py(), f*p.p4.Pz(), f*kinematics.Mass(p.p4), info)
}

// Events draws n events with IDs prefix-0, prefix-1, ...
func (g *Generator) Events(prefix string, n int) []kinematics.Event {
	out := make([]kinematics.Event, n)
	for i := range out {
		out[i] = g.Event(fmt.Sprintf("%s-%d", prefix, i))
	}
	return out
}
