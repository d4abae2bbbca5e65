package topmass

import (
	"fmt"
	"math"

	"go-hep.org/x/hep/fmom"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/topmass/internal/kinematics"
)

// hypothesisState is the per-scan precomputation of one hypothesis.
type hypothesisState struct {
	hyp     Hypothesis
	jets    [NumRoles]kinematics.Jet
	blepJet int // input index of the leptonic b jet
	aux     float64
	mask    *LSideMask
}

// sampleEvaluator turns one quasi-random point into event weights on the
// (mass, JES) grid for one hypothesis. Every draw that leaves the
// physical region contributes zero instead of failing.
type sampleEvaluator struct {
	p       *IntegrationParams
	ctx     *ScanContext
	wmass   *wMassIntegrator
	coordIx [NumDimensions]int

	wBW      breitWigner
	whadCov  float64
	topCov   float64
	etaSmear distuv.Normal
	phiSmear distuv.Normal
	recoil   distuv.Weibull

	useME, useSF bool
	lossFactor   bool

	// per-scan state
	mb     float64
	lepton kinematics.Lepton
	masses []float64
	jes    []float64

	// per-sample state read by weighLeptonic
	cur struct {
		h             *hypothesisState
		q, qbar, bHad fmom.PxPyPzE
		lepton        fmom.PxPyPzE
		mt            float64
	}
	weigh solutionWeigher

	had  []float64
	lep  []float64
	tops [2]HadronicTopSolution
}

func newSampleEvaluator(p *IntegrationParams, mask DimMask, ctx *ScanContext, wm *wMassIntegrator) *sampleEvaluator {
	e := &sampleEvaluator{
		p:          p,
		ctx:        ctx,
		wmass:      wm,
		wBW:        newBreitWigner(p.WMass, p.WWidth),
		whadCov:    math.Min(p.WHadCoverage, 1),
		topCov:     math.Min(p.TopCoverage, 1),
		etaSmear:   distuv.Normal{Sigma: p.EtaResolution},
		phiSmear:   distuv.Normal{Sigma: p.PhiResolution},
		recoil:     distuv.Weibull{K: 2, Lambda: p.PtTTbarScale},
		useME:      p.WeightMask&WeightMatrixElement != 0 && ctx.MatrixElement != nil,
		useSF:      p.WeightMask&WeightStructureFunction != 0 && ctx.StructureFunction != nil,
		lossFactor: p.PartonLoss == PartonLossFactor && ctx.PartonLoss != nil,
	}
	for d := Dimension(0); d < NumDimensions; d++ {
		e.coordIx[d] = mask.Index(d)
	}
	e.weigh = e.weighLeptonic
	return e
}

// reset prepares the evaluator for one event.
func (e *sampleEvaluator) reset(lepton kinematics.Lepton, mb float64, masses, jes []float64) {
	e.lepton = lepton
	e.mb = mb
	e.masses = masses
	e.jes = jes
	if cap(e.had) < len(jes) {
		e.had = make([]float64, len(jes))
		e.lep = make([]float64, len(jes))
	}
	e.had = e.had[:len(jes)]
	e.lep = e.lep[:len(jes)]
}

func (e *sampleEvaluator) coord(x []float64, d Dimension) (float64, bool) {
	if i := e.coordIx[d]; i >= 0 {
		return x[i], true
	}
	return 0.5, false
}

// smear moves a jet direction by the angular resolution when the role's
// angle dimensions are active.
func (e *sampleEvaluator) smear(x []float64, jet kinematics.Jet, r Role) (kinematics.Jet, bool) {
	ue, okEta := e.coord(x, roleEtaDim[r])
	up, okPhi := e.coord(x, rolePhiDim[r])
	if !okEta && !okPhi {
		return jet, false
	}
	eta, phi := jet.Eta(), jet.Phi()
	if okEta {
		eta += e.etaSmear.Quantile(ue)
	}
	if okPhi {
		phi += e.phiSmear.Quantile(up)
	}
	return jet.WithDirection(eta, phi), true
}

func (e *sampleEvaluator) partonMass(x []float64, d Dimension, nominal float64) float64 {
	if u, ok := e.coord(x, d); ok {
		return 2 * nominal * u
	}
	return nominal
}

// topDensityRatio is the importance correction of a top mass drawn from
// the sampling Breit-Wigner instead of the physical one.
func (e *sampleEvaluator) topDensityRatio(mt, m2 float64, sampling breitWigner) float64 {
	if e.ctx.TopWidth == nil {
		return e.topCov
	}
	width := e.ctx.TopWidth.Width(mt, e.p.WMass, e.mb)
	if !(width > 0) {
		return 0
	}
	return e.topCov * newBreitWigner(mt, width).Prob(m2) / sampling.Prob(m2)
}

// partonFactor is the efficiency and parton-loss factor of one parton.
func (e *sampleEvaluator) partonFactor(parton fmom.PxPyPzE, jet kinematics.Jet, r Role, jes float64) float64 {
	f := 1.0
	if e.ctx.Efficiency != nil {
		f *= e.ctx.Efficiency.Efficiency(parton, r, jes-1, jet.Info().SigmaAtCut)
	}
	if e.lossFactor {
		f *= 1 - e.ctx.PartonLoss.ProbToLose(parton, jes-1, r)
	}
	return f
}

// evaluate fills out, indexed [mass*len(jes) + jes], with the weight of
// point x under hypothesis h.
func (e *sampleEvaluator) evaluate(x []float64, h *hypothesisState, out []float64) {
	clear(out)
	nJES := len(e.jes)
	q, qbar := h.jets[RoleQ], h.jets[RoleQbar]

	mq := e.partonMass(x, DimMQ, e.p.LightJetMass)
	mqbar := e.partonMass(x, DimMQbar, e.p.LightJetMass)
	mbLep := e.partonMass(x, DimMBLep, e.mb)
	mbHad := e.partonMass(x, DimMBHad, e.mb)

	uw, _ := e.coord(x, DimWHad)
	mw2 := e.wBW.Quantile(uw)
	thr := mq + mqbar + 0.5
	if mw2 < thr*thr || mw2 > e.p.SqrtS*e.p.SqrtS {
		return
	}
	corr := e.whadCov

	wsol, ok := e.ctx.HadronicW.SolveW(q, qbar, mq, mqbar, mw2, h.aux)
	if !ok {
		return
	}
	qs, smearQ := e.smear(x, q, RoleQ)
	qbars, smearQbar := e.smear(x, qbar, RoleQbar)
	if smearQ || smearQbar {
		if wsol, ok = e.ctx.HadronicW.SolveW(qs, qbars, mq, mqbar, mw2, h.aux); !ok {
			return
		}
	}
	wP4 := kinematics.Sum(wsol.Q, wsol.Qbar)

	var ptT, phiT float64
	if u, ok := e.coord(x, DimPtTTbar); ok && e.p.PtTTbarScale > 0 {
		ptT = e.recoil.Quantile(u)
	}
	if u, ok := e.coord(x, DimPhiTTbar); ok {
		phiT = 2*math.Pi*u - math.Pi
	}

	lepton := e.lepton.P4()
	if u, ok := e.coord(x, DimTau); ok {
		corr *= tauSpectrum(u)
		lepton = e.lepton.Scaled(1 / u).P4()
	}

	bHad := h.jets[RoleBHad]
	bHadS, smearBHad := e.smear(x, bHad, RoleBHad)
	bLepS, _ := e.smear(x, h.jets[RoleBLep], RoleBLep)
	shift, _ := e.coord(x, DimWLep)
	uThad, _ := e.coord(x, DimTHad)
	uTlep, tlepActive := e.coord(x, DimTLep)
	s2 := e.p.SqrtS * e.p.SqrtS

	e.cur.h = h
	e.cur.q, e.cur.qbar = wsol.Q, wsol.Qbar
	e.cur.lepton = lepton

	for im, mt := range e.masses {
		bw := newBreitWigner(mt, e.p.TopWidth)
		mt2 := bw.Quantile(uThad)
		minHad := math.Sqrt(mw2) + mbHad
		if mt2 <= minHad*minHad || mt2 > s2 {
			continue
		}
		corrT := e.topDensityRatio(mt, mt2, bw)

		n := e.solveTop(wP4, bHad, mbHad, mt2)
		if n == 0 {
			continue
		}
		if smearBHad {
			if n = e.solveTop(wP4, bHadS, mbHad, mt2); n == 0 {
				continue
			}
		}

		mtl2, corrL := mt*mt, 1.0
		if tlepActive {
			mtl2 = bw.Quantile(uTlep)
			if mtl2 <= mbLep*mbLep || mtl2 > s2 {
				continue
			}
			corrL = e.topDensityRatio(mt, mtl2, bw)
		}
		e.cur.mt = mt
		base := corr * corrT * corrL

		for k := 0; k < n; k++ {
			top := &e.tops[k]
			hadTop := kinematics.Sum(wP4, top.B)
			topPt := [2]float64{ptT*math.Cos(phiT) - hadTop.Px(), ptT*math.Sin(phiT) - hadTop.Py()}
			if h.mask != nil && !h.mask.Feasible(math.Sqrt(mtl2), math.Hypot(topPt[0], topPt[1]), math.Atan2(topPt[1], topPt[0])) {
				continue
			}
			if !e.hadronicWeights(h, wsol, top) {
				continue
			}
			e.cur.bHad = top.B
			in := LeptonicInput{TopPt: topPt, Lepton: lepton, BDir: bLepS.Dir(), MTop2: mtl2, MB: mbLep}
			clear(e.lep)
			if !e.wmass.integrate(&in, shift, e.weigh, e.lep) {
				continue
			}
			row := out[im*nJES : (im+1)*nJES]
			for j := range row {
				if v := base * e.had[j] * e.lep[j]; finitePositive(v) {
					row[j] += v
				}
			}
		}
	}
}

func (e *sampleEvaluator) solveTop(w fmom.PxPyPzE, b kinematics.Jet, mb, mt2 float64) int {
	n := e.ctx.HadronicTop.SolveTop(w, b, mb, mt2, &e.tops)
	if n < 0 || n > len(e.tops) {
		panic(fmt.Sprintf("topmass: hadronic top solver returned %d solutions", n))
	}
	return n
}

// hadronicWeights fills e.had with the hadronic-side weight per JES point
// and reports whether any is positive.
func (e *sampleEvaluator) hadronicWeights(h *hypothesisState, wsol HadronicWSolution, top *HadronicTopSolution) bool {
	tf := e.ctx.Transfer
	q, qbar, bHad := h.jets[RoleQ], h.jets[RoleQbar], h.jets[RoleBHad]
	jac := wsol.Jacobian * top.Jacobian
	positive := false
	for j, jes := range e.jes {
		v := jac *
			tf.Density(wsol.Q, q, jes, RoleQ) *
			tf.Density(wsol.Qbar, qbar, jes, RoleQbar) *
			tf.Density(top.B, bHad, jes, RoleBHad)
		v *= e.partonFactor(wsol.Q, q, RoleQ, jes) *
			e.partonFactor(wsol.Qbar, qbar, RoleQbar, jes) *
			e.partonFactor(top.B, bHad, RoleBHad, jes)
		if !finitePositive(v) {
			v = 0
		}
		e.had[j] = v
		positive = positive || v > 0
	}
	return positive
}

// weighLeptonic is the per-JES weight of one leptonic solution: the
// leptonic b transfer function times the optional matrix element and
// structure functions.
func (e *sampleEvaluator) weighLeptonic(sol *LeptonicSolution, out []float64) {
	h := e.cur.h
	bLep := h.jets[RoleBLep]
	common := 1.0
	if e.useME {
		common *= e.ctx.MatrixElement.Weight(&MatrixElementInput{
			Q: e.cur.q, Qbar: e.cur.qbar, BHad: e.cur.bHad, BLep: sol.B,
			Lepton: e.cur.lepton, Nu: sol.Nu,
			MTop: e.cur.mt, LeptonCharge: e.lepton.Charge(),
		})
	}
	if e.useSF {
		total := kinematics.Sum(e.cur.q, e.cur.qbar, e.cur.bHad, sol.B, e.cur.lepton, sol.Nu)
		x1, x2 := bjorkenX(total, e.p.SqrtS)
		if x1 <= 0 || x1 > 1 || x2 <= 0 || x2 > 1 {
			common = 0
		} else {
			common *= e.ctx.StructureFunction.Weight(x1, x2)
		}
	}
	for j, jes := range e.jes {
		if common == 0 {
			out[j] = 0
			continue
		}
		out[j] = common *
			e.ctx.Transfer.Density(sol.B, bLep, jes, RoleBLep) *
			e.partonFactor(sol.B, bLep, RoleBLep, jes)
	}
}
