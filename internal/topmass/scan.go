package topmass

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/banshee-data/topmass/internal/kinematics"
	"github.com/banshee-data/topmass/internal/monitoring"
	"github.com/banshee-data/topmass/internal/timeutil"
)

// ScanRequest is one event and the (mass, JES) grid to evaluate it on.
type ScanRequest struct {
	Event  *kinematics.Event
	Masses []float64 // top mass hypotheses (GeV)
	JES    []float64 // jet energy scale factors
}

// Engine runs likelihood scans. It owns the grid and mask caches and the
// scratch buffers, which are reused across events; an Engine must not be
// used by more than one goroutine at a time.
type Engine struct {
	integ IntegrationParams
	mc    MCParams
	ctx   ScanContext
	clock timeutil.Clock

	grids   GridCache
	masks   lsideMaskCache
	limiter *monitoring.RateLimiter
	eval    *sampleEvaluator
	out     []float64
}

// NewEngine validates its inputs and returns a ready engine.
func NewEngine(integ IntegrationParams, mc MCParams, ctx ScanContext) (*Engine, error) {
	if err := integ.Validate(); err != nil {
		return nil, err
	}
	if err := mc.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Validate(); err != nil {
		return nil, err
	}
	if ctx.Clock == nil {
		ctx.Clock = timeutil.RealClock{}
	}
	e := &Engine{integ: integ, mc: mc, ctx: ctx, clock: ctx.Clock}
	e.limiter = monitoring.NewRateLimiter(e.clock, 5, time.Minute)
	wm := newWMassIntegrator(&e.integ, e.ctx.Leptonic, e.limiter)
	e.eval = newSampleEvaluator(&e.integ, e.mc.DimMask, &e.ctx, wm)

	mw, gw := integ.WMass, integ.WWidth
	e.masks.builder = lsideMaskBuilder{
		p:      mc.LSideMask,
		solver: e.ctx.Leptonic,
		clock:  e.clock,
		wMass2: [3]float64{mw * mw, (mw - 2*gw) * (mw - 2*gw), (mw + 2*gw) * (mw + 2*gw)},
	}
	return e, nil
}

// GridBuilds is the number of quasi-random grids generated so far.
func (e *Engine) GridBuilds() int { return e.grids.Builds() }

// MaskBuilds is the number of leptonic-side masks built so far.
func (e *Engine) MaskBuilds() int { return e.masks.builds }

func (e *Engine) gridKey() GridKey {
	key := GridKey{
		Method: e.mc.RandomMethod,
		Mask:   e.mc.DimMask,
		Points: e.mc.MaxPoints,
		Seed:   e.mc.RandomSeed,
	}
	key.Coverage[DimWHad] = e.integ.WHadCoverage
	key.Coverage[DimTHad] = e.integ.TopCoverage
	key.Coverage[DimTLep] = e.integ.TopCoverage
	return key
}

func (e *Engine) checkRequest(req ScanRequest) error {
	switch e.integ.JetMode {
	case ThreeJets:
		return fmt.Errorf("%w: 3-jet scans", ErrNotImplemented)
	}
	switch e.integ.PartonLoss {
	case PartonLossDrop, PartonLossTotal:
		return fmt.Errorf("%w: parton loss mode %d", ErrNotImplemented, e.integ.PartonLoss)
	}
	ev := req.Event
	if ev == nil {
		return fmt.Errorf("%w: scan request has no event", ErrInvalidParameter)
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	if want := e.integ.JetMode.NJets(); len(ev.Jets) != want {
		return fmt.Errorf("%w: %s scan needs %d jets, event %q has %d", ErrInvalidParameter, e.integ.JetMode, want, ev.ID, len(ev.Jets))
	}
	for _, j := range ev.Jets {
		if j.Extra() {
			return fmt.Errorf("%w: extra jets in input events", ErrNotImplemented)
		}
	}
	if len(req.Masses) == 0 || len(req.JES) == 0 {
		return fmt.Errorf("%w: empty mass or JES grid", ErrInvalidParameter)
	}
	for _, m := range req.Masses {
		if !(m > 0) {
			return fmt.Errorf("%w: mass hypothesis %g", ErrInvalidParameter, m)
		}
	}
	for _, s := range req.JES {
		if !(s > 0) {
			return fmt.Errorf("%w: JES point %g", ErrInvalidParameter, s)
		}
	}
	return nil
}

func (e *Engine) bQuarkMass(ev *kinematics.Event) float64 {
	switch {
	case e.integ.BJetMass > 0:
		return e.integ.BJetMass
	case ev.BQuarkMass > 0:
		return ev.BQuarkMass
	}
	return e.ctx.BQuarkMass
}

// Scan integrates the likelihood of one event over the (mass, JES) grid.
// Budget exhaustion is reported through Result.Status; errors are
// reserved for invalid requests and unsupported configurations.
func (e *Engine) Scan(req ScanRequest) (*Result, error) {
	if err := e.checkRequest(req); err != nil {
		return nil, err
	}
	ev := req.Event
	nMass, nJES := len(req.Masses), len(req.JES)
	nPoints := nMass * nJES
	mb := e.bQuarkMass(ev)

	hyps := Hypotheses(e.integ.JetMode)
	weights := rawPermutationWeights(WeightInput{
		Jets:        ev.Jets,
		Mode:        e.integ.PermuteJets,
		JetMode:     e.integ.JetMode,
		JES:         req.JES,
		Acquisition: e.ctx.Acquisition,
	}, hyps)
	if !columnFeasible(weights) {
		return nil, fmt.Errorf("%w: event %q", ErrNoHypothesis, ev.ID)
	}
	normalizeWeights(weights)

	st := newScanState(weights, nPoints, nJES)
	states := make([]hypothesisState, len(hyps))
	var fp uint64
	if e.mc.LSideMask.Enable {
		fp = eventFingerprint(ev)
	}
	for _, p := range st.active {
		h := hyps[p]
		hs := &states[p]
		hs.hyp = h
		hs.jets = h.Arrange(ev.Jets)
		hs.blepJet = h.InputIndex(h.Perm[RoleBLep], len(ev.Jets))
		hs.aux = 1
		if pb := hs.jets[RoleQbar].P(); pb > 0 {
			hs.aux = hs.jets[RoleQ].P() / pb
		}
		if e.mc.LSideMask.Enable && hs.blepJet >= 0 {
			hs.mask = e.masks.get(ev, fp, hs.blepJet, mb)
		}
	}

	grid := e.grids.Get(e.gridKey(), mandatoryDims)
	e.eval.reset(ev.Lepton, mb, req.Masses, req.JES)
	if cap(e.out) < nPoints {
		e.out = make([]float64, nPoints)
	}
	out := e.out[:nPoints]

	budget := timeutil.NewBudget(e.clock, e.mc.MaxEventTime)
	res := &Result{
		Masses:     req.Masses,
		JES:        req.JES,
		Weights:    weights,
		Hypotheses: hyps,
	}
	pointsNext := e.mc.MinPoints
	maxIntegrated := 0
	for {
		target := maxIntegrated + pointsNext
		for _, p := range st.active {
			accs := st.perm[p]
			hs := &states[p]
			for ; st.cursor[p] < target; st.cursor[p]++ {
				e.eval.evaluate(grid.Point(st.cursor[p]), hs, out)
				for k, v := range out {
					accs[k].Accumulate(v)
				}
				res.Samples++
				if e.mc.YieldEvery > 0 && e.ctx.Yield != nil && res.Samples%int64(e.mc.YieldEvery) == 0 {
					e.ctx.Yield()
				}
			}
		}
		maxIntegrated = target
		pointsNext = min(e.mc.MaxPoints, int(math.Ceil(float64(maxIntegrated)*e.mc.CheckFactor))) - maxIntegrated

		j := st.judge(&e.mc, maxIntegrated, pointsNext, budget.Elapsed())
		res.Cycles = append(res.Cycles, CycleInfo{
			MaxIntegrated: maxIntegrated,
			Active:        append([]int(nil), st.active...),
			Covered:       j.covered,
			Status:        j.status,
		})
		e.logCycle(ev, res, st, j)
		if j.status.Terminal() {
			res.Status = j.status
			break
		}
		st.active = j.active
	}

	res.Likelihood = append([]NormAccumulator(nil), st.combined...)
	res.PermLikelihood = st.perm
	res.PointsIntegrated = maxIntegrated
	res.Elapsed = budget.Elapsed()
	return res, nil
}

func (e *Engine) logCycle(ev *kinematics.Event, res *Result, st *scanState, j judgement) {
	if e.integ.DebugLevel < 1 {
		return
	}
	c := res.Cycles[len(res.Cycles)-1]
	monitoring.Logf("topmass: event %s cycle %d: %d points, %d active, covered %.3f, %s",
		ev.ID, len(res.Cycles), c.MaxIntegrated, len(c.Active), c.Covered, c.Status)
	if e.integ.DebugLevel < 2 {
		return
	}
	for _, p := range c.Active {
		var sum float64
		for k := range st.perm[p] {
			sum += st.perm[p][k].Value()
		}
		monitoring.Logf("topmass:   %v cursor=%d sum=%.4g kept=%v", res.Hypotheses[p], st.cursor[p], sum, slices.Contains(j.active, p))
	}
}
