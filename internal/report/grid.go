// Package report renders likelihood curves and grids.
package report

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/topmass/internal/topmass"
)

// Grid is a likelihood surface over (mass, JES). Values and Errors are
// indexed [mass*len(JES) + jes]; Errors may be nil.
type Grid struct {
	Title  string
	Masses []float64
	JES    []float64
	Values []float64
	Errors []float64
}

// NewGrid returns a grid with every value set to NaN.
func NewGrid(title string, masses, jes []float64) *Grid {
	g := &Grid{
		Title:  title,
		Masses: append([]float64(nil), masses...),
		JES:    append([]float64(nil), jes...),
		Values: make([]float64, len(masses)*len(jes)),
	}
	for i := range g.Values {
		g.Values[i] = math.NaN()
	}
	return g
}

// GridFromResult copies the combined likelihood of a scan.
func GridFromResult(title string, r *topmass.Result) *Grid {
	g := NewGrid(title, r.Masses, r.JES)
	g.Errors = make([]float64, len(g.Values))
	for i := range r.Likelihood {
		g.Values[i] = r.Likelihood[i].Value()
		g.Errors[i] = r.Likelihood[i].Error()
	}
	return g
}

// Set stores v at the grid point nearest (mass, jes). It reports false
// when either coordinate is not on the grid.
func (g *Grid) Set(mass, jes, v float64) bool {
	im, ij := indexOf(g.Masses, mass), indexOf(g.JES, jes)
	if im < 0 || ij < 0 {
		return false
	}
	g.Values[im*len(g.JES)+ij] = v
	return true
}

func indexOf(xs []float64, x float64) int {
	for i, v := range xs {
		if scalar.EqualWithinAbsOrRel(v, x, 1e-9, 1e-9) {
			return i
		}
	}
	return -1
}

// Curve returns the values and errors along the mass axis at JES index ij.
func (g *Grid) Curve(ij int) (values, errs []float64) {
	values = make([]float64, len(g.Masses))
	errs = make([]float64, len(g.Masses))
	for im := range g.Masses {
		values[im] = g.Values[im*len(g.JES)+ij]
		if g.Errors != nil {
			errs[im] = g.Errors[im*len(g.JES)+ij]
		}
	}
	return values, errs
}

// Max returns the indices and value of the largest finite grid value.
func (g *Grid) Max() (im, ij int, v float64) {
	best := -1
	for i, x := range g.Values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		if best < 0 || x > g.Values[best] {
			best = i
		}
	}
	if best < 0 {
		return -1, -1, math.NaN()
	}
	return best / len(g.JES), best % len(g.JES), g.Values[best]
}

// Min is Max for the smallest finite value.
func (g *Grid) Min() (im, ij int, v float64) {
	neg := &Grid{Masses: g.Masses, JES: g.JES, Values: make([]float64, len(g.Values))}
	floats.ScaleTo(neg.Values, -1, g.Values)
	im, ij, v = neg.Max()
	return im, ij, -v
}

var errFitPoints = errors.New("parabola fit needs at least 3 finite points")

// FitParabola fits y = a + b·x + c·x² by least squares over the finite
// points and returns the position of the extremum and the curvature
// width 1/sqrt(2|c|). Applied to a -ln L curve the width is the one-sigma
// statistical uncertainty of the minimum.
func FitParabola(x, y []float64) (x0, width float64, err error) {
	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("parabola fit: %d abscissae for %d values", len(x), len(y))
	}
	var xs, ys []float64
	for i := range x {
		if !math.IsNaN(y[i]) && !math.IsInf(y[i], 0) {
			xs = append(xs, x[i])
			ys = append(ys, y[i])
		}
	}
	if len(xs) < 3 {
		return 0, 0, errFitPoints
	}

	// Centre the abscissae to keep the normal matrix well conditioned.
	mid := floats.Sum(xs) / float64(len(xs))
	a := mat.NewDense(len(xs), 3, nil)
	for i, xi := range xs {
		d := xi - mid
		a.SetRow(i, []float64{1, d, d * d})
	}
	var coef mat.VecDense
	if err := coef.SolveVec(a, mat.NewVecDense(len(ys), ys)); err != nil {
		return 0, 0, fmt.Errorf("parabola fit: %w", err)
	}
	b, c := coef.AtVec(1), coef.AtVec(2)
	if c == 0 {
		return 0, 0, errors.New("parabola fit: no curvature")
	}
	return mid - b/(2*c), 1 / math.Sqrt(2*math.Abs(c)), nil
}
