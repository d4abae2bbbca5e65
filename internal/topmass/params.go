package topmass

import (
	"fmt"
	"time"
)

// JetMode selects how many jets an event scan expects.
type JetMode int

const (
	FourJets  JetMode = iota // exactly four jets, all used
	ThreeJets                // three jets, one parton lost
	FiveJets                 // five jets, one jet dropped per hypothesis
)

// NJets returns the jet multiplicity of the mode.
func (m JetMode) NJets() int {
	switch m {
	case ThreeJets:
		return 3
	case FiveJets:
		return 5
	default:
		return 4
	}
}

func (m JetMode) String() string {
	return fmt.Sprintf("%d-jet", m.NJets())
}

// PermuteMode selects the jet-assignment prior.
type PermuteMode int

const (
	PermuteNone     PermuteMode = iota // only the input ordering
	PermuteBTagGate                    // b-tag consistent assignments only
	PermuteTagProb                     // every assignment, weighted by tag probabilities
)

// PartonLossMode selects how the probability of losing a parton enters the
// event weight.
type PartonLossMode int

const (
	PartonLossNone   PartonLossMode = iota // ignored
	PartonLossFactor                       // weight *= 1 - P(lose parton), per parton
	PartonLossDrop                         // not implemented
	PartonLossTotal                        // not implemented
)

// WeightMask gates the optional physics weight factors.
type WeightMask uint8

const (
	WeightMatrixElement WeightMask = 1 << iota
	WeightStructureFunction
)

// RandomMethod selects the point-set generator of the grid cache.
type RandomMethod int

const (
	RandomHalton RandomMethod = iota
	RandomPseudo
	RandomLatinHypercube
)

func (m RandomMethod) String() string {
	switch m {
	case RandomHalton:
		return "halton"
	case RandomPseudo:
		return "pseudo"
	case RandomLatinHypercube:
		return "lhs"
	default:
		return fmt.Sprintf("RandomMethod(%d)", int(m))
	}
}

// ParseRandomMethod maps a config name to a RandomMethod.
func ParseRandomMethod(s string) (RandomMethod, error) {
	switch s {
	case "halton", "":
		return RandomHalton, nil
	case "pseudo":
		return RandomPseudo, nil
	case "lhs":
		return RandomLatinHypercube, nil
	}
	return 0, fmt.Errorf("%w: unknown random method %q", ErrInvalidParameter, s)
}

// IntegrationParams holds the physics constants and integration policy.
// Build it with NewIntegrationParams; treat it as read-only afterwards.
type IntegrationParams struct {
	WMass  float64 // nominal W mass (GeV)
	WWidth float64 // nominal W width (GeV)
	SqrtS  float64 // collider centre-of-mass energy (GeV)

	LightJetMass float64 // light parton mass used when MQ/MQBAR are fixed
	BJetMass     float64 // b parton mass override; 0 uses ScanContext.BQuarkMass
	TopWidth     float64 // width of the top-mass sampling distribution

	WHadCoverage float64 // central fraction of the hadronic W Breit-Wigner sampled
	TopCoverage  float64 // same for both top masses
	WLepCoverage float64 // same for the leptonic W-mass grid

	WLepPoints int  // leptonic W-mass grid size
	FixedWLep  bool // use the nominal W mass instead of the grid

	PtTTbarScale  float64 // scale of the ttbar transverse recoil prior
	EtaResolution float64 // parton-jet angular resolution in eta
	PhiResolution float64 // parton-jet angular resolution in phi

	PermuteJets PermuteMode
	JetMode     JetMode
	PartonLoss  PartonLossMode
	WeightMask  WeightMask

	DebugLevel int
}

// DefaultIntegrationParams returns Tevatron-era defaults.
func DefaultIntegrationParams() IntegrationParams {
	return IntegrationParams{
		WMass:         80.403,
		WWidth:        2.141,
		SqrtS:         1960,
		LightJetMass:  0.5,
		TopWidth:      1.5,
		WHadCoverage:  0.98,
		TopCoverage:   0.98,
		WLepCoverage:  0.98,
		WLepPoints:    32,
		PtTTbarScale:  20,
		EtaResolution: 0.03,
		PhiResolution: 0.03,
		PermuteJets:   PermuteBTagGate,
		JetMode:       FourJets,
	}
}

// NewIntegrationParams validates p and returns it.
func NewIntegrationParams(p IntegrationParams) (IntegrationParams, error) {
	if err := p.Validate(); err != nil {
		return IntegrationParams{}, err
	}
	return p, nil
}

func inUnit(x float64) bool { return x > 0 && x <= 1 }

// Validate checks that every field is in range.
func (p IntegrationParams) Validate() error {
	switch {
	case p.WMass <= 0 || p.WWidth <= 0:
		return fmt.Errorf("%w: W mass and width must be positive, got %g/%g", ErrInvalidParameter, p.WMass, p.WWidth)
	case p.SqrtS <= 2*p.WMass:
		return fmt.Errorf("%w: sqrt_s %g too small", ErrInvalidParameter, p.SqrtS)
	case p.LightJetMass < 0 || p.BJetMass < 0:
		return fmt.Errorf("%w: parton masses must be non-negative", ErrInvalidParameter)
	case p.TopWidth <= 0:
		return fmt.Errorf("%w: top_width must be positive, got %g", ErrInvalidParameter, p.TopWidth)
	case !inUnit(p.WHadCoverage) || !inUnit(p.TopCoverage) || !inUnit(p.WLepCoverage):
		return fmt.Errorf("%w: coverage fractions must be in (0, 1]", ErrInvalidParameter)
	case !p.FixedWLep && p.WLepPoints < 2:
		return fmt.Errorf("%w: w_lep_points must be at least 2, got %d", ErrInvalidParameter, p.WLepPoints)
	case p.PtTTbarScale < 0:
		return fmt.Errorf("%w: pttbar_scale must be non-negative", ErrInvalidParameter)
	case p.EtaResolution < 0 || p.PhiResolution < 0:
		return fmt.Errorf("%w: angular resolutions must be non-negative", ErrInvalidParameter)
	case p.PermuteJets < PermuteNone || p.PermuteJets > PermuteTagProb:
		return fmt.Errorf("%w: permute_jets must be 0, 1 or 2, got %d", ErrInvalidParameter, p.PermuteJets)
	case p.JetMode < FourJets || p.JetMode > FiveJets:
		return fmt.Errorf("%w: unknown jet mode %d", ErrInvalidParameter, p.JetMode)
	case p.PartonLoss < PartonLossNone || p.PartonLoss > PartonLossTotal:
		return fmt.Errorf("%w: unknown parton loss mode %d", ErrInvalidParameter, p.PartonLoss)
	case p.WeightMask > WeightMatrixElement|WeightStructureFunction:
		return fmt.Errorf("%w: unknown weight mask bits %#x", ErrInvalidParameter, p.WeightMask)
	case p.DebugLevel < 0:
		return fmt.Errorf("%w: debug_level must be non-negative", ErrInvalidParameter)
	}
	return nil
}

// LSideMaskParams sizes the leptonic-side reachability mask.
type LSideMaskParams struct {
	Enable        bool
	MassBins      int
	PtBins        int
	PhiBins       int
	MassMin       float64
	MassMax       float64
	PtMax         float64
	PointsPerCell int
	MaxPoints     int           // solver calls per mask; 0 is unlimited
	MaxTime       time.Duration // wall-clock per mask; 0 is unlimited
}

// MCParams holds the Monte-Carlo policy. Build it with NewMCParams.
type MCParams struct {
	MinPoints         int
	MaxPoints         int
	MaxZeroProbPoints int
	MaxEventTime      time.Duration // 0 disables the wall-clock budget

	PrecisionFraction float64
	PrecisionTarget   float64 // <= 0 disables the precision criterion
	WorstPermCutoff   float64
	CheckFactor       float64

	DimMask      DimMask
	RandomMethod RandomMethod
	RandomSeed   uint64
	YieldEvery   int // samples between yield callbacks; 0 disables

	LSideMask LSideMaskParams
}

// DefaultMCParams returns conservative defaults.
func DefaultMCParams() MCParams {
	return MCParams{
		MinPoints:         256,
		MaxPoints:         65536,
		MaxZeroProbPoints: 4096,
		MaxEventTime:      10 * time.Minute,
		PrecisionFraction: 0.9,
		PrecisionTarget:   0.05,
		WorstPermCutoff:   0.5,
		CheckFactor:       2,
		DimMask:           MaskOf(DimWHad, DimTHad, DimTLep, DimWLep, DimPtTTbar, DimPhiTTbar),
		RandomMethod:      RandomHalton,
		RandomSeed:        1,
		LSideMask: LSideMaskParams{
			MassBins:      20,
			PtBins:        20,
			PhiBins:       16,
			MassMin:       100,
			MassMax:       300,
			PtMax:         300,
			PointsPerCell: 4,
		},
	}
}

// NewMCParams validates p and returns it.
func NewMCParams(p MCParams) (MCParams, error) {
	if err := p.Validate(); err != nil {
		return MCParams{}, err
	}
	return p, nil
}

// Validate checks that every field is in range. Masks without WHAD or THAD
// are rejected with ErrMissingDimension: both are always sampled.
func (p MCParams) Validate() error {
	switch {
	case p.MinPoints < 2:
		return fmt.Errorf("%w: min_points must be at least 2, got %d", ErrInvalidParameter, p.MinPoints)
	case p.MaxPoints < p.MinPoints:
		return fmt.Errorf("%w: max_points %d below min_points %d", ErrInvalidParameter, p.MaxPoints, p.MinPoints)
	case p.MaxZeroProbPoints < 0:
		return fmt.Errorf("%w: max_zeroprob_points must be non-negative", ErrInvalidParameter)
	case p.MaxEventTime < 0:
		return fmt.Errorf("%w: max_event_seconds must be non-negative", ErrInvalidParameter)
	case !inUnit(p.PrecisionFraction):
		return fmt.Errorf("%w: precision_fraction must be in (0, 1], got %g", ErrInvalidParameter, p.PrecisionFraction)
	case !inUnit(p.WorstPermCutoff):
		return fmt.Errorf("%w: worst_perm_cutoff must be in (0, 1], got %g", ErrInvalidParameter, p.WorstPermCutoff)
	case p.CheckFactor <= 1:
		return fmt.Errorf("%w: check_factor must exceed 1, got %g", ErrInvalidParameter, p.CheckFactor)
	case p.DimMask&^AllDimensions != 0:
		return fmt.Errorf("%w: unknown bits in dimension mask %#x", ErrInvalidParameter, uint32(p.DimMask))
	case p.DimMask&mandatoryDims != mandatoryDims:
		return fmt.Errorf("%w: mask %s lacks %s", ErrMissingDimension, p.DimMask, mandatoryDims&^p.DimMask)
	case p.RandomMethod < RandomHalton || p.RandomMethod > RandomLatinHypercube:
		return fmt.Errorf("%w: unknown random method %d", ErrInvalidParameter, p.RandomMethod)
	case p.YieldEvery < 0:
		return fmt.Errorf("%w: yield_every must be non-negative", ErrInvalidParameter)
	}
	if m := p.LSideMask; m.Enable {
		switch {
		case m.MassBins < 1 || m.PtBins < 1 || m.PhiBins < 1:
			return fmt.Errorf("%w: lside mask bin counts must be positive", ErrInvalidParameter)
		case m.MassMax <= m.MassMin || m.MassMin < 0:
			return fmt.Errorf("%w: lside mask mass range [%g, %g) is empty", ErrInvalidParameter, m.MassMin, m.MassMax)
		case m.PtMax <= 0:
			return fmt.Errorf("%w: lside_mask_pt_max must be positive", ErrInvalidParameter)
		case m.PointsPerCell < 1:
			return fmt.Errorf("%w: lside_mask_points_per_cell must be positive", ErrInvalidParameter)
		case m.MaxPoints < 0 || m.MaxTime < 0:
			return fmt.Errorf("%w: lside mask budgets must be non-negative", ErrInvalidParameter)
		}
	}
	return nil
}
