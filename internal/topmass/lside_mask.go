package topmass

import (
	"hash/fnv"
	"math"

	"github.com/banshee-data/topmass/internal/kinematics"
	"github.com/banshee-data/topmass/internal/timeutil"
)

// LSideMask records which (top mass, top pT, top phi) cells admit a
// leptonic-side solution for one lepton and leptonic b jet.
type LSideMask struct {
	p     LSideMaskParams
	cells []bool

	// Evaluated counts cells decided by the solver before a budget ran
	// out; the rest are marked reachable.
	Evaluated int
	// SolverCalls is the number of leptonic solves spent building the mask.
	SolverCalls int
}

func (m *LSideMask) index(im, ip, iphi int) int {
	return (im*m.p.PtBins+ip)*m.p.PhiBins + iphi
}

func binOf(x, lo, hi float64, n int) int {
	if !(x >= lo && x < hi) {
		return -1
	}
	b := int((x - lo) / (hi - lo) * float64(n))
	if b >= n {
		b = n - 1
	}
	return b
}

// Feasible reports whether the cell holding (mt, pt, phi) is reachable.
// Values outside the mask range are infeasible.
func (m *LSideMask) Feasible(mt, pt, phi float64) bool {
	im := binOf(mt, m.p.MassMin, m.p.MassMax, m.p.MassBins)
	ip := binOf(pt, 0, m.p.PtMax, m.p.PtBins)
	iphi := binOf(normalizePhi(phi), -math.Pi, math.Pi, m.p.PhiBins)
	if im < 0 || ip < 0 || iphi < 0 {
		return false
	}
	return m.cells[m.index(im, ip, iphi)]
}

func normalizePhi(phi float64) float64 {
	phi = math.Mod(phi+math.Pi, 2*math.Pi)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return phi - math.Pi
}

// lsideMaskBuilder probes each cell with PointsPerCell sub-points at the
// nominal W mass and two widths either side.
type lsideMaskBuilder struct {
	p      LSideMaskParams
	solver LeptonicSolver
	clock  timeutil.Clock
	wMass2 [3]float64
}

func (b *lsideMaskBuilder) build(lepton kinematics.Lepton, bjet kinematics.Jet, mb float64) *LSideMask {
	p := b.p
	m := &LSideMask{p: p, cells: make([]bool, p.MassBins*p.PtBins*p.PhiBins)}
	in := LeptonicInput{Lepton: lepton.P4(), BDir: bjet.Dir(), MB: mb}
	var out [4]LeptonicSolution
	budget := timeutil.NewBudget(b.clock, p.MaxTime)

	dm := (p.MassMax - p.MassMin) / float64(p.MassBins)
	dpt := p.PtMax / float64(p.PtBins)
	dphi := 2 * math.Pi / float64(p.PhiBins)
	exhausted := false
	for im := 0; im < p.MassBins; im++ {
		for ip := 0; ip < p.PtBins; ip++ {
			for iphi := 0; iphi < p.PhiBins; iphi++ {
				idx := m.index(im, ip, iphi)
				if !exhausted && b.overBudget(m, budget) {
					exhausted = true
				}
				if exhausted {
					m.cells[idx] = true
					continue
				}
				m.Evaluated++
			probe:
				for k := 0; k < p.PointsPerCell; k++ {
					frac := (float64(k) + 0.5) / float64(p.PointsPerCell)
					mt := p.MassMin + (float64(im)+frac)*dm
					pt := (float64(ip) + frac) * dpt
					phi := -math.Pi + (float64(iphi)+frac)*dphi
					in.MTop2 = mt * mt
					in.TopPt = [2]float64{pt * math.Cos(phi), pt * math.Sin(phi)}
					for _, mw2 := range b.wMass2 {
						m.SolverCalls++
						if b.solver.SolveLeptonic(&in, mw2, &out) > 0 {
							m.cells[idx] = true
							break probe
						}
					}
				}
			}
		}
	}
	return m
}

func (b *lsideMaskBuilder) overBudget(m *LSideMask, budget timeutil.Budget) bool {
	if b.p.MaxPoints > 0 && m.SolverCalls >= b.p.MaxPoints {
		return true
	}
	return budget.Exceeded()
}

type lsideMaskKey struct {
	fingerprint uint64
	jet         int
	mb          float64
	params      LSideMaskParams
}

// lsideMaskCache holds the masks of the current event, one per candidate
// leptonic b jet, and drops them when the event or parameters change.
type lsideMaskCache struct {
	builder lsideMaskBuilder
	masks   map[lsideMaskKey]*LSideMask
	event   uint64
	builds  int
}

func (c *lsideMaskCache) get(ev *kinematics.Event, fp uint64, jet int, mb float64) *LSideMask {
	if c.masks == nil || fp != c.event {
		c.masks = make(map[lsideMaskKey]*LSideMask)
		c.event = fp
	}
	key := lsideMaskKey{fingerprint: fp, jet: jet, mb: mb, params: c.builder.p}
	if m, ok := c.masks[key]; ok {
		return m
	}
	m := c.builder.build(ev.Lepton, ev.Jets[jet], mb)
	c.masks[key] = m
	c.builds++
	return m
}

// eventFingerprint hashes the kinematics of an event.
func eventFingerprint(ev *kinematics.Event) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(x float64) {
		bits := math.Float64bits(x)
		for i := range buf {
			buf[i] = byte(bits >> (8 * i))
		}
		h.Write(buf[:])
	}
	for _, j := range ev.Jets {
		put(j.Px())
		put(j.Py())
		put(j.Pz())
		put(j.E())
	}
	l := ev.Lepton.P4()
	put(l.Px())
	put(l.Py())
	put(l.Pz())
	put(l.E())
	return h.Sum64()
}
