package topmass

import (
	"fmt"

	"go-hep.org/x/hep/fmom"

	"github.com/banshee-data/topmass/internal/kinematics"
	"github.com/banshee-data/topmass/internal/timeutil"
)

// HadronicWSolution is the resolved light-quark pair of the hadronic W.
type HadronicWSolution struct {
	Q, Qbar  fmom.PxPyPzE
	Jacobian float64
}

// HadronicWSolver resolves the light-quark momenta along the given jet
// directions so that their invariant mass squared is mw2. aux is the
// measured |p(q)|/|p(qbar)| ratio. Implementations must be pure.
type HadronicWSolver interface {
	SolveW(q, qbar kinematics.Jet, mq, mqbar, mw2, aux float64) (HadronicWSolution, bool)
}

// HadronicTopSolution is one resolved hadronic b quark.
type HadronicTopSolution struct {
	B        fmom.PxPyPzE
	Jacobian float64
}

// HadronicTopSolver resolves the hadronic b momentum along the b jet
// direction so that m(W+b)^2 = mt2. It writes at most two solutions and
// returns their count.
type HadronicTopSolver interface {
	SolveTop(w fmom.PxPyPzE, b kinematics.Jet, mb, mt2 float64, out *[2]HadronicTopSolution) int
}

// LeptonicInput is the fixed part of a leptonic-side solve.
type LeptonicInput struct {
	TopPt  [2]float64 // transverse momentum of the leptonic top
	Lepton fmom.PxPyPzE
	BDir   [3]float64 // unit direction of the leptonic b
	MTop2  float64    // leptonic top mass squared
	MB     float64
}

// LeptonicSolution is one (b momentum, neutrino) pair satisfying both mass
// constraints. S is |p(b)|; JacobianDet is det d(mW^2, mt^2)/d(S, NuPz).
type LeptonicSolution struct {
	Nu, B       fmom.PxPyPzE
	S, NuPz     float64
	JacobianDet float64
}

// LeptonicSolver solves the leptonic side for one W mass. SolveLeptonic
// writes at most four solutions and returns their count. Constraints maps
// the unknowns (s, nuPz) to (mW^2, mt^2) and returns the 2x2 Jacobian with
// rows (mW^2, mt^2) and columns (s, nuPz).
type LeptonicSolver interface {
	SolveLeptonic(in *LeptonicInput, mw2 float64, out *[4]LeptonicSolution) int
	Constraints(in *LeptonicInput, s, nuPz float64) (mw2, mt2 float64, jac [2][2]float64)
}

// TransferFunction is the detector response density of seeing jet given
// parton, with jet energies corrected by jes.
type TransferFunction interface {
	Density(parton fmom.PxPyPzE, jet kinematics.Jet, jes float64, role Role) float64
}

// PartonEfficiency is the probability that a parton yields a jet passing
// the selection.
type PartonEfficiency interface {
	Efficiency(parton fmom.PxPyPzE, role Role, deltaJES, sigmaAtCut float64) float64
}

// JetAcquisition is the probability of acquiring the observed jet set
// when jet dropped (-1 for none) is not attributed to a parton.
type JetAcquisition interface {
	ProbToAcquire(jets []kinematics.Jet, dropped int, jes float64) float64
}

// PartonLoss is the probability that a parton fails to produce a matching
// jet.
type PartonLoss interface {
	ProbToLose(parton fmom.PxPyPzE, deltaJES float64, role Role) float64
}

// MatrixElementInput carries the resolved final state of one sample.
type MatrixElementInput struct {
	Q, Qbar, BHad, BLep fmom.PxPyPzE
	Lepton, Nu          fmom.PxPyPzE
	MTop                float64
	LeptonCharge        int
}

// MatrixElement is the squared hard-process amplitude.
type MatrixElement interface {
	Weight(in *MatrixElementInput) float64
}

// StructureFunction is the parton luminosity at momentum fractions x1, x2.
type StructureFunction interface {
	Weight(x1, x2 float64) float64
}

// TopWidth returns the physical top width for a top mass.
type TopWidth interface {
	Width(mt, mw, mb float64) float64
}

// TopWidthFunc adapts a function to TopWidth.
type TopWidthFunc func(mt, mw, mb float64) float64

func (f TopWidthFunc) Width(mt, mw, mb float64) float64 { return f(mt, mw, mb) }

// ScanContext carries everything a scan needs beyond its parameters. The
// solvers and the transfer function are required; a nil optional
// strategy disables the corresponding factor.
type ScanContext struct {
	BQuarkMass float64

	HadronicW   HadronicWSolver
	HadronicTop HadronicTopSolver
	Leptonic    LeptonicSolver
	Transfer    TransferFunction

	Efficiency        PartonEfficiency
	Acquisition       JetAcquisition
	PartonLoss        PartonLoss
	MatrixElement     MatrixElement
	StructureFunction StructureFunction
	TopWidth          TopWidth

	// Clock drives the wall-clock budget; nil means the real clock.
	Clock timeutil.Clock
	// Yield is called every MCParams.YieldEvery samples.
	Yield func()
}

// Validate checks that the required collaborators are present.
func (c *ScanContext) Validate() error {
	switch {
	case c.HadronicW == nil:
		return fmt.Errorf("%w: scan context has no hadronic W solver", ErrInvalidParameter)
	case c.HadronicTop == nil:
		return fmt.Errorf("%w: scan context has no hadronic top solver", ErrInvalidParameter)
	case c.Leptonic == nil:
		return fmt.Errorf("%w: scan context has no leptonic solver", ErrInvalidParameter)
	case c.Transfer == nil:
		return fmt.Errorf("%w: scan context has no transfer function", ErrInvalidParameter)
	case c.BQuarkMass < 0:
		return fmt.Errorf("%w: negative b quark mass %g", ErrInvalidParameter, c.BQuarkMass)
	}
	return nil
}
