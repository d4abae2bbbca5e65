// Package kinematics holds the reconstructed-object data model used by the
// likelihood scanner: jets, the charged lepton and whole events.
//
// All momenta are in GeV. Derived quantities (pT, |p|, ET, eta, phi) are
// always computed from the underlying four-vector and never stored.
package kinematics

import (
	"encoding/json"
	"fmt"
	"math"

	"go-hep.org/x/hep/fmom"
)

// JetInfo carries the non-kinematic per-jet measurements.
type JetInfo struct {
	BTagProb      float64 `json:"btag_prob"`       // P(tagged | b quark)
	BFakeRate     float64 `json:"bfake_rate"`      // P(tagged | light quark)
	Tagged        bool    `json:"tagged"`          // observed b-tag decision
	DetectorEta   float64 `json:"detector_eta"`    // eta w.r.t. detector centre
	JESSigma      float64 `json:"jes_sigma"`       // JES systematic uncertainty
	JESSigmaSlope float64 `json:"jes_sigma_slope"` // d(JESSigma)/dpT
	SigmaAtCut    float64 `json:"sigma_at_cut"`    // JES uncertainty at the pT threshold
	Loose         bool    `json:"loose"`
	NTracks       int     `json:"ntracks"`
}

// Jet is an immutable reconstructed jet. Use NewJet or the With*/Scaled
// helpers to derive new jets.
type Jet struct {
	p4    fmom.PxPyPzE
	info  JetInfo
	extra bool
}

// NewJet builds a jet from its three-momentum and mass.
func NewJet(px, py, pz, m float64, info JetInfo) Jet {
	return Jet{p4: massive(px, py, pz, m), info: info}
}

// ExtraJet returns a placeholder jet marking an absent parton. It carries
// no momentum.
func ExtraJet() Jet {
	return Jet{p4: fmom.NewPxPyPzE(0, 0, 0, 0), extra: true}
}

func massive(px, py, pz, m float64) fmom.PxPyPzE {
	e := math.Sqrt(px*px + py*py + pz*pz + m*m)
	return fmom.NewPxPyPzE(px, py, pz, e)
}

func (j Jet) Px() float64 { return j.p4.Px() }
func (j Jet) Py() float64 { return j.p4.Py() }
func (j Jet) Pz() float64 { return j.p4.Pz() }
func (j Jet) E() float64  { return j.p4.E() }

// M returns the jet mass, clamped at zero for rounding noise.
func (j Jet) M() float64 {
	m2 := j.p4.E()*j.p4.E() - j.P()*j.P()
	if m2 <= 0 {
		return 0
	}
	return math.Sqrt(m2)
}

func (j Jet) Pt() float64 { return math.Hypot(j.p4.Px(), j.p4.Py()) }

func (j Jet) P() float64 {
	return math.Sqrt(j.p4.Px()*j.p4.Px() + j.p4.Py()*j.p4.Py() + j.p4.Pz()*j.p4.Pz())
}

// Et is the transverse energy E*pT/|p|.
func (j Jet) Et() float64 {
	p := j.P()
	if p == 0 {
		return 0
	}
	return j.E() * j.Pt() / p
}

func (j Jet) Eta() float64 { return j.p4.Eta() }
func (j Jet) Phi() float64 { return j.p4.Phi() }

// P4 returns a copy of the jet four-momentum.
func (j Jet) P4() fmom.PxPyPzE { return j.p4 }

// Info returns the jet's non-kinematic measurements.
func (j Jet) Info() JetInfo { return j.info }

// Extra reports whether this jet is a placeholder for an absent parton.
func (j Jet) Extra() bool { return j.extra }

// Dir returns the unit vector along the jet momentum. A zero-momentum jet
// points along +z.
func (j Jet) Dir() [3]float64 {
	p := j.P()
	if p == 0 {
		return [3]float64{0, 0, 1}
	}
	return [3]float64{j.Px() / p, j.Py() / p, j.Pz() / p}
}

// Scaled returns a copy with momentum and mass multiplied by f.
func (j Jet) Scaled(f float64) Jet {
	out := j
	out.p4 = massive(f*j.Px(), f*j.Py(), f*j.Pz(), f*j.M())
	return out
}

// WithDirection returns a copy pointing along (eta, phi) with the same |p|
// and mass.
func (j Jet) WithDirection(eta, phi float64) Jet {
	p := j.P()
	pt := p / math.Cosh(eta)
	out := j
	out.p4 = massive(pt*math.Cos(phi), pt*math.Sin(phi), pt*math.Sinh(eta), j.M())
	return out
}

// WithMass returns a copy with the same three-momentum and mass m.
func (j Jet) WithMass(m float64) Jet {
	out := j
	out.p4 = massive(j.Px(), j.Py(), j.Pz(), m)
	return out
}

func (j Jet) String() string {
	if j.extra {
		return "Jet{extra}"
	}
	return fmt.Sprintf("Jet{pt=%.2f eta=%.3f phi=%.3f m=%.2f tag=%t}", j.Pt(), j.Eta(), j.Phi(), j.M(), j.info.Tagged)
}

type jetJSON struct {
	Px    float64 `json:"px"`
	Py    float64 `json:"py"`
	Pz    float64 `json:"pz"`
	M     float64 `json:"m"`
	Extra bool    `json:"extra,omitempty"`
	JetInfo
}

func (j Jet) MarshalJSON() ([]byte, error) {
	return json.Marshal(jetJSON{Px: j.Px(), Py: j.Py(), Pz: j.Pz(), M: j.M(), Extra: j.extra, JetInfo: j.info})
}

func (j *Jet) UnmarshalJSON(data []byte) error {
	var raw jetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.M < 0 {
		return fmt.Errorf("jet mass must be non-negative, got %f", raw.M)
	}
	*j = NewJet(raw.Px, raw.Py, raw.Pz, raw.M, raw.JetInfo)
	j.extra = raw.Extra
	return nil
}
