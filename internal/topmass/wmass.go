package topmass

import (
	"fmt"
	"math"

	"github.com/banshee-data/topmass/internal/monitoring"
)

// solutionWeigher writes the per-JES weight of one leptonic solution,
// excluding the phase-space factor, into out.
type solutionWeigher func(sol *LeptonicSolution, out []float64)

// wMassIntegrator integrates the leptonic W mass for one hadronic
// solution and one leptonic top mass. Near the kinematic minimum of the W
// mass two solutions merge and the phase-space factor diverges like
// 1/sqrt(m^2 - m^2_min); the cell holding the minimum is integrated
// analytically from the merging pair.
type wMassIntegrator struct {
	solver    LeptonicSolver
	bw        breitWigner
	points    int
	coverage  float64
	fixed     bool
	nominalW2 float64
	fixedEps  float64
	limiter   *monitoring.RateLimiter

	sols  [][4]LeptonicSolution
	nsol  []int
	m2    []float64
	probe [4]LeptonicSolution
	tmp   []float64
	pair  []float64
}

func newWMassIntegrator(p *IntegrationParams, solver LeptonicSolver, limiter *monitoring.RateLimiter) *wMassIntegrator {
	w := &wMassIntegrator{
		solver:    solver,
		bw:        newBreitWigner(p.WMass, p.WWidth),
		points:    p.WLepPoints,
		coverage:  p.WLepCoverage,
		fixed:     p.FixedWLep,
		nominalW2: p.WMass * p.WMass,
		fixedEps:  1e-3 * p.WMass * p.WWidth,
		limiter:   limiter,
	}
	if w.fixed {
		w.points = 1
	}
	w.sols = make([][4]LeptonicSolution, w.points)
	w.nsol = make([]int, w.points)
	w.m2 = make([]float64, w.points)
	return w
}

func (w *wMassIntegrator) ensureJES(n int) {
	if cap(w.tmp) < n {
		w.tmp = make([]float64, n)
		w.pair = make([]float64, n)
	}
	w.tmp = w.tmp[:n]
	w.pair = w.pair[:n]
}

func (w *wMassIntegrator) solve(in *LeptonicInput, m2 float64, out *[4]LeptonicSolution) int {
	n := w.solver.SolveLeptonic(in, m2, out)
	if n < 0 || n > len(out) {
		panic(fmt.Sprintf("topmass: leptonic solver returned %d solutions", n))
	}
	return n
}

func (w *wMassIntegrator) hasSolutions(in *LeptonicInput, m2 float64) bool {
	return w.solve(in, m2, &w.probe) > 0
}

// integrate adds the W-mass integral of weigh times the phase-space factor
// to out, one entry per JES point. shift in (0,1) places the grid points
// inside their cells. It reports whether any solution was found.
func (w *wMassIntegrator) integrate(in *LeptonicInput, shift float64, weigh solutionWeigher, out []float64) bool {
	w.ensureJES(len(out))
	if w.fixed {
		return w.integrateFixed(in, weigh, out)
	}

	ulo, _ := coverageWindow(w.coverage)
	c := w.coverage
	if c > 1 {
		c = 1
	}
	n := w.points
	cellW := c / float64(n)
	edge := func(i int) float64 { return w.bw.quantileOrInf(ulo + c*float64(i)/float64(n)) }

	iLow := -1
	for i := 0; i < n; i++ {
		w.m2[i] = w.bw.Quantile(ulo + c*(float64(i)+shift)/float64(n))
		w.nsol[i] = w.solve(in, w.m2[i], &w.sols[i])
		if iLow < 0 && w.nsol[i] > 0 {
			iLow = i
		}
	}
	if iLow < 0 {
		return false
	}

	pa, pb := closestPair(w.sols[iLow][:w.nsol[iLow]])
	boundary := false
	var m2min float64
	if pa >= 0 {
		lo := math.Max(edge(0), 0)
		if iLow > 0 {
			lo = w.m2[iLow-1]
		}
		if iLow > 0 || !w.hasSolutions(in, lo) {
			m2min, boundary = w.locateMinimum(in, &w.sols[iLow][pa], &w.sols[iLow][pb], lo, w.m2[iLow])
		}
	}
	hiEdge := edge(iLow + 1)
	if math.IsInf(hiEdge, 0) {
		boundary = false
	}

	clear(w.pair)
	for i := iLow; i < n; i++ {
		for k := 0; k < w.nsol[i]; k++ {
			sol := &w.sols[i][k]
			ps := leptonicPhaseSpace(sol)
			if ps == 0 {
				continue
			}
			weigh(sol, w.tmp)
			if boundary && i == iLow && (k == pa || k == pb) {
				addScaled(w.pair, ps, w.tmp)
				continue
			}
			addScaled(out, cellW*ps, w.tmp)
		}
	}
	if boundary {
		// Integral of rho(m^2) C/sqrt(m^2 - m2min) from m2min to the upper
		// cell edge, with C fixed by the pair at the grid point.
		mid := (m2min + hiEdge) / 2
		f := w.bw.Prob(mid) * 2 * math.Sqrt(w.m2[iLow]-m2min) * math.Sqrt(hiEdge-m2min)
		addScaled(out, f, w.pair)
	}
	return true
}

// integrateFixed evaluates the integrand at the nominal W mass. When the
// nominal mass sits within fixedEps above the kinematic minimum, the
// merging pair is replaced by its average over [m2min, m2min+eps].
func (w *wMassIntegrator) integrateFixed(in *LeptonicInput, weigh solutionWeigher, out []float64) bool {
	sols := &w.sols[0]
	n := w.solve(in, w.nominalW2, sols)
	if n == 0 {
		return false
	}
	pa, pb := closestPair(sols[:n])
	replace := false
	if pa >= 0 {
		m2min, ok := w.newtonMinimum(in, &sols[pa], &sols[pb])
		if ok && w.nominalW2-m2min >= 0 && w.nominalW2-m2min < w.fixedEps {
			replace = w.pairAverage(in, m2min+w.fixedEps, weigh)
		}
	}
	for k := 0; k < n; k++ {
		if replace && (k == pa || k == pb) {
			continue
		}
		sol := &sols[k]
		ps := leptonicPhaseSpace(sol)
		if ps == 0 {
			continue
		}
		weigh(sol, w.tmp)
		addScaled(out, ps, w.tmp)
	}
	if replace {
		addScaled(out, 2, w.pair)
	}
	return true
}

// pairAverage fills w.pair with the merging-pair integrand at m2.
func (w *wMassIntegrator) pairAverage(in *LeptonicInput, m2 float64, weigh solutionWeigher) bool {
	n := w.solve(in, m2, &w.probe)
	a, b := closestPair(w.probe[:n])
	if a < 0 {
		return false
	}
	clear(w.pair)
	for _, k := range [2]int{a, b} {
		sol := &w.probe[k]
		ps := leptonicPhaseSpace(sol)
		if ps == 0 {
			continue
		}
		weigh(sol, w.tmp)
		addScaled(w.pair, ps, w.tmp)
	}
	return true
}

// locateMinimum finds the W-mass minimum between lo (no solutions) and hi
// (solutions), first by Newton iteration from the merging pair and then by
// bisection.
func (w *wMassIntegrator) locateMinimum(in *LeptonicInput, a, b *LeptonicSolution, lo, hi float64) (float64, bool) {
	if m2, ok := w.newtonMinimum(in, a, b); ok && m2 >= lo && m2 <= hi {
		return m2, true
	}
	w.limiter.Logf("wmass-bisect", "topmass: newton search for W mass minimum failed in [%g, %g], bisecting", lo, hi)
	return w.bisectMinimum(in, lo, hi)
}

const bisectIterations = 48

func (w *wMassIntegrator) bisectMinimum(in *LeptonicInput, lo, hi float64) (float64, bool) {
	if !(lo < hi) {
		return 0, false
	}
	for i := 0; i < bisectIterations; i++ {
		mid := lo + (hi-lo)/2
		if w.hasSolutions(in, mid) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi, true
}

// closestPair returns the two solutions nearest each other in (s, pz), or
// -1, -1 with fewer than two solutions.
func closestPair(sols []LeptonicSolution) (int, int) {
	a, b := -1, -1
	best := math.Inf(1)
	for i := range sols {
		for j := i + 1; j < len(sols); j++ {
			d := math.Hypot(sols[i].S-sols[j].S, sols[i].NuPz-sols[j].NuPz)
			if d < best {
				a, b, best = i, j, d
			}
		}
	}
	return a, b
}

func addScaled(dst []float64, f float64, src []float64) {
	for i, v := range src {
		dst[i] += f * v
	}
}
