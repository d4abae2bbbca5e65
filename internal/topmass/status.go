package topmass

import (
	"fmt"
	"time"
)

// ScanStatus is the state of a scan. StatusContinue is the only
// non-terminal value.
type ScanStatus int

const (
	StatusContinue ScanStatus = iota
	StatusOK
	StatusMaxPoints
	StatusZeroProb
	StatusTimeLimit
)

var statusNames = [...]string{"CONTINUE", "OK", "MAXPOINTS", "ZEROPROB", "TIMELIMIT"}

func (s ScanStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("ScanStatus(%d)", int(s))
	}
	return statusNames[s]
}

// Terminal reports whether the scan stops in this state.
func (s ScanStatus) Terminal() bool { return s != StatusContinue }

// ParseScanStatus is the inverse of String.
func ParseScanStatus(name string) (ScanStatus, error) {
	for i, n := range statusNames {
		if n == name {
			return ScanStatus(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown scan status %q", ErrInvalidParameter, name)
}

// CycleInfo summarises one scan cycle.
type CycleInfo struct {
	MaxIntegrated int
	Active        []int   // hypotheses integrated in this cycle
	Covered       float64 // likelihood fraction meeting the precision target
	Status        ScanStatus
}

// Result is the outcome of one event scan.
type Result struct {
	Status ScanStatus
	Masses []float64
	JES    []float64

	// Likelihood is the combined estimate, indexed [mass*len(JES) + jes].
	Likelihood []NormAccumulator
	// PermLikelihood holds the unweighted per-hypothesis estimates, nil for
	// hypotheses with zero prior weight.
	PermLikelihood [][]NormAccumulator
	Weights        [][]float64
	Hypotheses     []Hypothesis

	Cycles           []CycleInfo
	PointsIntegrated int
	Samples          int64
	Elapsed          time.Duration
}

// At returns the combined estimate at mass index im and JES index ij.
func (r *Result) At(im, ij int) NormAccumulator {
	return r.Likelihood[im*len(r.JES)+ij]
}

// Curve returns the likelihood values and errors along the mass grid at
// JES index ij.
func (r *Result) Curve(ij int) (values, errs []float64) {
	values = make([]float64, len(r.Masses))
	errs = make([]float64, len(r.Masses))
	for im := range r.Masses {
		a := r.At(im, ij)
		values[im] = a.Value()
		errs[im] = a.Error()
	}
	return values, errs
}
