package topmass

import (
	"fmt"
	"math/bits"
	"strings"
)

// Dimension identifies one nuisance dimension of the integration.
type Dimension int

const (
	DimWHad     Dimension = iota // hadronic W mass squared
	DimTHad                      // hadronic top mass squared
	DimTLep                      // leptonic top mass squared
	DimWLep                      // offset of the leptonic W-mass grid
	DimMQ                        // light quark mass
	DimMQbar                     // light antiquark mass
	DimMBLep                     // leptonic b mass
	DimMBHad                     // hadronic b mass
	DimQEta                      // light quark direction
	DimQPhi                      //
	DimQbarEta                   // light antiquark direction
	DimQbarPhi                   //
	DimBLepEta                   // leptonic b direction
	DimBLepPhi                   //
	DimBHadEta                   // hadronic b direction
	DimBHadPhi                   //
	DimPtTTbar                   // ttbar transverse recoil magnitude
	DimPhiTTbar                  // ttbar transverse recoil azimuth
	DimTau                       // visible energy fraction of a tau lepton
	NumDimensions
)

var dimensionNames = [NumDimensions]string{
	"WHAD", "THAD", "TLEP", "WLEP",
	"MQ", "MQBAR", "MBLEP", "MBHAD",
	"QETA", "QPHI", "QBARETA", "QBARPHI",
	"BLEPETA", "BLEPPHI", "BHADETA", "BHADPHI",
	"PTTBAR", "PHITTBAR", "TAU",
}

func (d Dimension) String() string {
	if d < 0 || d >= NumDimensions {
		return fmt.Sprintf("Dimension(%d)", int(d))
	}
	return dimensionNames[d]
}

// DimMask selects which nuisance dimensions are randomised.
type DimMask uint32

// AllDimensions has every dimension active.
const AllDimensions DimMask = 1<<NumDimensions - 1

// MaskOf builds a mask from a list of dimensions.
func MaskOf(dims ...Dimension) DimMask {
	var m DimMask
	for _, d := range dims {
		m |= 1 << uint(d)
	}
	return m
}

func (m DimMask) Has(d Dimension) bool { return m&(1<<uint(d)) != 0 }

// Count is the number of active dimensions, i.e. the length of a
// quasi-random point.
func (m DimMask) Count() int { return bits.OnesCount32(uint32(m)) }

// Index returns the coordinate index of d within a point, or -1 when d is
// not active.
func (m DimMask) Index(d Dimension) int {
	if !m.Has(d) {
		return -1
	}
	below := m & (1<<uint(d) - 1)
	return bits.OnesCount32(uint32(below))
}

// Dimensions lists the active dimensions in coordinate order.
func (m DimMask) Dimensions() []Dimension {
	out := make([]Dimension, 0, m.Count())
	for d := Dimension(0); d < NumDimensions; d++ {
		if m.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

func (m DimMask) String() string {
	dims := m.Dimensions()
	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = d.String()
	}
	return strings.Join(names, "|")
}

// ParseDimMask builds a mask from dimension names (case-insensitive).
func ParseDimMask(names []string) (DimMask, error) {
	var m DimMask
	for _, n := range names {
		n = strings.ToUpper(strings.TrimSpace(n))
		found := false
		for d, name := range dimensionNames {
			if name == n {
				m |= 1 << uint(d)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: unknown dimension %q", ErrInvalidParameter, n)
		}
	}
	return m, nil
}

// Role is the quark-level role a jet is assigned to.
type Role int

const (
	RoleQ    Role = iota // light quark from the hadronic W
	RoleQbar             // light antiquark from the hadronic W
	RoleBLep             // b quark from the leptonic top
	RoleBHad             // b quark from the hadronic top
	NumRoles
)

func (r Role) String() string {
	switch r {
	case RoleQ:
		return "q"
	case RoleQbar:
		return "qbar"
	case RoleBLep:
		return "blep"
	case RoleBHad:
		return "bhad"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// IsB reports whether r is one of the two b-quark roles.
func (r Role) IsB() bool { return r == RoleBLep || r == RoleBHad }

var (
	roleEtaDim  = [NumRoles]Dimension{DimQEta, DimQbarEta, DimBLepEta, DimBHadEta}
	rolePhiDim  = [NumRoles]Dimension{DimQPhi, DimQbarPhi, DimBLepPhi, DimBHadPhi}
	roleMassDim = [NumRoles]Dimension{DimMQ, DimMQbar, DimMBLep, DimMBHad}
)

// angularDims is the set of direction dimensions of all four roles.
var angularDims = MaskOf(DimQEta, DimQPhi, DimQbarEta, DimQbarPhi, DimBLepEta, DimBLepPhi, DimBHadEta, DimBHadPhi)

// mandatoryDims are always drawn by the sample evaluator.
var mandatoryDims = MaskOf(DimWHad, DimTHad)
