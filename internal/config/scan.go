package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/topmass/internal/topmass"
)

// DefaultConfigPath is the path to the canonical scan defaults file.
const DefaultConfigPath = "config/scan.defaults.json"

// ScanConfig is the JSON scan configuration. Every field is optional;
// unset fields take the engine defaults, so partial configs are safe.
type ScanConfig struct {
	// Monte Carlo control
	MinPoints         *int      `json:"min_points,omitempty"`
	MaxPoints         *int      `json:"max_points,omitempty"`
	MaxZeroProbPoints *int      `json:"max_zeroprob_points,omitempty"`
	MaxEventSeconds   *float64  `json:"max_event_seconds,omitempty"`
	PrecisionFraction *float64  `json:"precision_fraction,omitempty"`
	PrecisionTarget   *float64  `json:"precision_target,omitempty"`
	WorstPermCutoff   *float64  `json:"worst_perm_cutoff,omitempty"`
	CheckFactor       *float64  `json:"check_factor,omitempty"`
	MCDimMask         *[]string `json:"mc_dim_mask,omitempty"`
	RandomMethod      *string   `json:"random_method,omitempty"` // halton, pseudo or lhs
	RandomSeed        *uint64   `json:"random_seed_param,omitempty"`
	YieldEvery        *int      `json:"yield_every,omitempty"`

	// Leptonic-side mask
	LSideMaskEnable        *bool    `json:"lside_mask_enable,omitempty"`
	LSideMaskMassBins      *int     `json:"lside_mask_mass_bins,omitempty"`
	LSideMaskPtBins        *int     `json:"lside_mask_pt_bins,omitempty"`
	LSideMaskPhiBins       *int     `json:"lside_mask_phi_bins,omitempty"`
	LSideMaskMassMin       *float64 `json:"lside_mask_mass_min,omitempty"`
	LSideMaskMassMax       *float64 `json:"lside_mask_mass_max,omitempty"`
	LSideMaskPtMax         *float64 `json:"lside_mask_pt_max,omitempty"`
	LSideMaskPointsPerCell *int     `json:"lside_mask_points_per_cell,omitempty"`
	LSideMaskMaxPoints     *int     `json:"lside_mask_max_points,omitempty"`
	LSideMaskMaxSeconds    *float64 `json:"lside_mask_max_seconds,omitempty"`

	// Integration
	WMass         *float64 `json:"w_mass,omitempty"`
	WWidth        *float64 `json:"w_width,omitempty"`
	SqrtS         *float64 `json:"sqrt_s,omitempty"`
	LightJetMass  *float64 `json:"light_jet_mass,omitempty"`
	BJetMass      *float64 `json:"b_jet_mass,omitempty"`
	TopWidth      *float64 `json:"top_width,omitempty"`
	WHadCoverage  *float64 `json:"w_had_coverage,omitempty"`
	TopCoverage   *float64 `json:"top_coverage,omitempty"`
	WLepCoverage  *float64 `json:"w_lep_coverage,omitempty"`
	WLepPoints    *int     `json:"w_lep_points,omitempty"`
	FixedWLep     *bool    `json:"fixed_w_lep,omitempty"`
	PtTTbarScale  *float64 `json:"pttbar_scale,omitempty"`
	EtaResolution *float64 `json:"eta_resolution,omitempty"`
	PhiResolution *float64 `json:"phi_resolution,omitempty"`
	PermuteJets   *int     `json:"permute_jets,omitempty"`
	JetMode       *int     `json:"jet_mode,omitempty"` // jet count: 3, 4 or 5
	PartonLoss    *int     `json:"parton_loss,omitempty"`
	WeightMask    *int     `json:"weight_mask,omitempty"`
	DebugLevel    *int     `json:"debug_level,omitempty"`

	// Scan grid
	MassMin    *float64 `json:"mass_min,omitempty"`
	MassMax    *float64 `json:"mass_max,omitempty"`
	MassPoints *int     `json:"mass_points,omitempty"`
	JESMin     *float64 `json:"jes_min,omitempty"`
	JESMax     *float64 `json:"jes_max,omitempty"`
	JESPoints  *int     `json:"jes_points,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }

// EmptyScanConfig returns a ScanConfig with all fields unset.
func EmptyScanConfig() *ScanConfig {
	return &ScanConfig{}
}

// LoadScanConfig loads a ScanConfig from a JSON file. The file must have
// a .json extension and be under 1MB.
func LoadScanConfig(path string) (*ScanConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyScanConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or one of its parents. It panics if the file cannot be loaded and is
// meant for test setup.
func MustLoadDefaultConfig() *ScanConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadScanConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the fields the core parameter constructors cannot see:
// name lists and the scan grid. Everything else is checked when the
// parameter structs are built.
func (c *ScanConfig) Validate() error {
	if c.MCDimMask != nil {
		if _, err := topmass.ParseDimMask(*c.MCDimMask); err != nil {
			return fmt.Errorf("mc_dim_mask: %w", err)
		}
	}
	if c.RandomMethod != nil {
		if _, err := topmass.ParseRandomMethod(*c.RandomMethod); err != nil {
			return fmt.Errorf("random_method: %w", err)
		}
	}
	if c.JetMode != nil {
		if _, err := jetMode(*c.JetMode); err != nil {
			return err
		}
	}
	if c.MassPoints != nil && *c.MassPoints < 1 {
		return fmt.Errorf("mass_points must be positive, got %d", *c.MassPoints)
	}
	if c.JESPoints != nil && *c.JESPoints < 1 {
		return fmt.Errorf("jes_points must be positive, got %d", *c.JESPoints)
	}
	if lo, hi := c.GetMassMin(), c.GetMassMax(); !(lo > 0) || hi < lo {
		return fmt.Errorf("mass range [%g, %g] is invalid", lo, hi)
	}
	if lo, hi := c.GetJESMin(), c.GetJESMax(); !(lo > 0) || hi < lo {
		return fmt.Errorf("jes range [%g, %g] is invalid", lo, hi)
	}
	for _, s := range []*float64{c.MaxEventSeconds, c.LSideMaskMaxSeconds} {
		if s != nil && *s < 0 {
			return fmt.Errorf("time budgets must be non-negative, got %g", *s)
		}
	}
	return nil
}

func jetMode(n int) (topmass.JetMode, error) {
	switch n {
	case 3:
		return topmass.ThreeJets, nil
	case 4:
		return topmass.FourJets, nil
	case 5:
		return topmass.FiveJets, nil
	}
	return 0, fmt.Errorf("jet_mode must be 3, 4 or 5, got %d", n)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// IntegrationParams builds validated integration parameters, starting
// from topmass.DefaultIntegrationParams.
func (c *ScanConfig) IntegrationParams() (topmass.IntegrationParams, error) {
	p := topmass.DefaultIntegrationParams()
	set(&p.WMass, c.WMass)
	set(&p.WWidth, c.WWidth)
	set(&p.SqrtS, c.SqrtS)
	set(&p.LightJetMass, c.LightJetMass)
	set(&p.BJetMass, c.BJetMass)
	set(&p.TopWidth, c.TopWidth)
	set(&p.WHadCoverage, c.WHadCoverage)
	set(&p.TopCoverage, c.TopCoverage)
	set(&p.WLepCoverage, c.WLepCoverage)
	set(&p.WLepPoints, c.WLepPoints)
	set(&p.FixedWLep, c.FixedWLep)
	set(&p.PtTTbarScale, c.PtTTbarScale)
	set(&p.EtaResolution, c.EtaResolution)
	set(&p.PhiResolution, c.PhiResolution)
	set(&p.DebugLevel, c.DebugLevel)
	if c.PermuteJets != nil {
		p.PermuteJets = topmass.PermuteMode(*c.PermuteJets)
	}
	if c.PartonLoss != nil {
		p.PartonLoss = topmass.PartonLossMode(*c.PartonLoss)
	}
	if c.WeightMask != nil {
		p.WeightMask = topmass.WeightMask(*c.WeightMask)
	}
	if c.JetMode != nil {
		m, err := jetMode(*c.JetMode)
		if err != nil {
			return topmass.IntegrationParams{}, err
		}
		p.JetMode = m
	}
	return topmass.NewIntegrationParams(p)
}

// MCParams builds validated Monte Carlo parameters, starting from
// topmass.DefaultMCParams.
func (c *ScanConfig) MCParams() (topmass.MCParams, error) {
	p := topmass.DefaultMCParams()
	set(&p.MinPoints, c.MinPoints)
	set(&p.MaxPoints, c.MaxPoints)
	set(&p.MaxZeroProbPoints, c.MaxZeroProbPoints)
	set(&p.PrecisionFraction, c.PrecisionFraction)
	set(&p.PrecisionTarget, c.PrecisionTarget)
	set(&p.WorstPermCutoff, c.WorstPermCutoff)
	set(&p.CheckFactor, c.CheckFactor)
	set(&p.RandomSeed, c.RandomSeed)
	set(&p.YieldEvery, c.YieldEvery)
	if c.MaxEventSeconds != nil {
		p.MaxEventTime = seconds(*c.MaxEventSeconds)
	}
	if c.MCDimMask != nil {
		m, err := topmass.ParseDimMask(*c.MCDimMask)
		if err != nil {
			return topmass.MCParams{}, err
		}
		p.DimMask = m
	}
	if c.RandomMethod != nil {
		m, err := topmass.ParseRandomMethod(*c.RandomMethod)
		if err != nil {
			return topmass.MCParams{}, err
		}
		p.RandomMethod = m
	}

	lm := &p.LSideMask
	set(&lm.Enable, c.LSideMaskEnable)
	set(&lm.MassBins, c.LSideMaskMassBins)
	set(&lm.PtBins, c.LSideMaskPtBins)
	set(&lm.PhiBins, c.LSideMaskPhiBins)
	set(&lm.MassMin, c.LSideMaskMassMin)
	set(&lm.MassMax, c.LSideMaskMassMax)
	set(&lm.PtMax, c.LSideMaskPtMax)
	set(&lm.PointsPerCell, c.LSideMaskPointsPerCell)
	set(&lm.MaxPoints, c.LSideMaskMaxPoints)
	if c.LSideMaskMaxSeconds != nil {
		lm.MaxTime = seconds(*c.LSideMaskMaxSeconds)
	}
	return topmass.NewMCParams(p)
}

// GetMassMin returns the lowest top mass hypothesis (GeV).
func (c *ScanConfig) GetMassMin() float64 {
	if c.MassMin == nil {
		return 160
	}
	return *c.MassMin
}

// GetMassMax returns the highest top mass hypothesis (GeV).
func (c *ScanConfig) GetMassMax() float64 {
	if c.MassMax == nil {
		return 185
	}
	return *c.MassMax
}

// GetMassPoints returns the number of top mass hypotheses.
func (c *ScanConfig) GetMassPoints() int {
	if c.MassPoints == nil {
		return 11
	}
	return *c.MassPoints
}

// GetJESMin returns the lowest JES factor.
func (c *ScanConfig) GetJESMin() float64 {
	if c.JESMin == nil {
		return 0.9
	}
	return *c.JESMin
}

// GetJESMax returns the highest JES factor.
func (c *ScanConfig) GetJESMax() float64 {
	if c.JESMax == nil {
		return 1.1
	}
	return *c.JESMax
}

// GetJESPoints returns the number of JES points.
func (c *ScanConfig) GetJESPoints() int {
	if c.JESPoints == nil {
		return 5
	}
	return *c.JESPoints
}

// MassGrid returns the top mass hypotheses, evenly spaced.
func (c *ScanConfig) MassGrid() []float64 {
	return linspace(c.GetMassMin(), c.GetMassMax(), c.GetMassPoints())
}

// JESGrid returns the JES factors, evenly spaced.
func (c *ScanConfig) JESGrid() []float64 {
	return linspace(c.GetJESMin(), c.GetJESMax(), c.GetJESPoints())
}

func linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{(lo + hi) / 2}
	}
	return floats.Span(make([]float64, n), lo, hi)
}
