package report

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// SumNegLogLikelihood returns the grid of -Σ ln L over per-event
// likelihood grids sharing one set of axes. A zero or missing value in any
// event makes the point +Inf.
func SumNegLogLikelihood(title string, grids ...*Grid) (*Grid, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("no grids to combine")
	}
	first := grids[0]
	out := NewGrid(title, first.Masses, first.JES)
	for i := range out.Values {
		out.Values[i] = 0
	}
	for _, g := range grids {
		if !floats.Equal(g.Masses, first.Masses) || !floats.Equal(g.JES, first.JES) {
			return nil, fmt.Errorf("grid %q axes differ from %q", g.Title, first.Title)
		}
		for i, v := range g.Values {
			if v > 0 {
				out.Values[i] -= math.Log(v)
			} else {
				out.Values[i] = math.Inf(1)
			}
		}
	}
	return out, nil
}

// MassFit is the result of fitting the -ln L curve at one JES value.
type MassFit struct {
	JES   float64
	Mass  float64
	Sigma float64
	Err   error
}

// FitMass fits a parabola to each JES slice of a -ln L grid.
func FitMass(nll *Grid) []MassFit {
	fits := make([]MassFit, len(nll.JES))
	for ij, jes := range nll.JES {
		values, _ := nll.Curve(ij)
		m, s, err := FitParabola(nll.Masses, values)
		fits[ij] = MassFit{JES: jes, Mass: m, Sigma: s, Err: err}
	}
	return fits
}
