package topmass

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/topmass/internal/kinematics"
	"github.com/banshee-data/topmass/internal/timeutil"
)

var (
	scanMasses = []float64{165, 172.5, 180}
	scanJES    = []float64{0.95, 1, 1.05}
)

func newTestEngine(t *testing.T, edit func(*IntegrationParams, *MCParams, *ScanContext)) *Engine {
	t.Helper()
	integ, mc := testParams()
	ctx := testContext(integ)
	if edit != nil {
		edit(&integ, &mc, &ctx)
	}
	e, err := NewEngine(integ, mc, ctx)
	require.NoError(t, err)
	return e
}

func scanRequest() ScanRequest {
	return ScanRequest{Event: testEvent(), Masses: scanMasses, JES: scanJES}
}

func TestScanSingleHypothesis(t *testing.T) {
	e := newTestEngine(t, nil)
	res, err := e.Scan(scanRequest())
	require.NoError(t, err)

	require.NotEmpty(t, res.Cycles)
	assert.Equal(t, []int{0}, res.Cycles[0].Active)
	assert.True(t, res.Status.Terminal())
	assert.Len(t, res.Likelihood, 9)
	for im := range scanMasses {
		assert.Greater(t, res.At(im, 1).Value(), 0.0)
	}
	values, errs := res.Curve(1)
	assert.Len(t, values, 3)
	assert.Len(t, errs, 3)
}

func TestScanFixedPointBudget(t *testing.T) {
	e := newTestEngine(t, func(_ *IntegrationParams, mc *MCParams, _ *ScanContext) {
		mc.MinPoints = 1024
		mc.MaxPoints = 1024
		mc.PrecisionTarget = 0
	})
	res, err := e.Scan(scanRequest())
	require.NoError(t, err)

	require.Len(t, res.Cycles, 1)
	assert.Equal(t, StatusMaxPoints, res.Status)
	assert.Equal(t, 1024, res.PointsIntegrated)
	assert.Equal(t, int64(1024), res.Samples)
	assert.Equal(t, int64(1024), res.Likelihood[0].Count())
}

func TestScanCyclesGrowGeometrically(t *testing.T) {
	e := newTestEngine(t, func(_ *IntegrationParams, mc *MCParams, _ *ScanContext) {
		mc.MinPoints = 64
		mc.MaxPoints = 1024
		mc.PrecisionTarget = 1e-9
	})
	res, err := e.Scan(scanRequest())
	require.NoError(t, err)

	var got []int
	for _, c := range res.Cycles {
		got = append(got, c.MaxIntegrated)
	}
	assert.Equal(t, []int{64, 128, 256, 512, 1024}, got)
	assert.Equal(t, StatusMaxPoints, res.Status)
	for _, c := range res.Cycles[:len(res.Cycles)-1] {
		assert.Equal(t, StatusContinue, c.Status)
	}
}

func TestScanReusesGrid(t *testing.T) {
	e := newTestEngine(t, nil)
	first, err := e.Scan(scanRequest())
	require.NoError(t, err)
	second, err := e.Scan(scanRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, e.GridBuilds())
	for k := range first.Likelihood {
		assert.Equal(t, first.Likelihood[k].Value(), second.Likelihood[k].Value())
	}
}

func TestScanTimeLimit(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	e := newTestEngine(t, func(_ *IntegrationParams, mc *MCParams, ctx *ScanContext) {
		mc.MaxEventTime = 10 * time.Second
		mc.PrecisionTarget = 1e-9
		mc.YieldEvery = 1
		ctx.Clock = clock
		ctx.Yield = func() { clock.Advance(time.Second) }
	})
	res, err := e.Scan(scanRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusTimeLimit, res.Status)
	assert.Len(t, res.Cycles, 1)
	assert.Equal(t, 64*time.Second, res.Elapsed)
}

func TestScanZeroProbability(t *testing.T) {
	e := newTestEngine(t, func(integ *IntegrationParams, mc *MCParams, ctx *ScanContext) {
		mc.MaxZeroProbPoints = 0
		l := testLeptonic(*integ)
		l.never = true
		ctx.Leptonic = l
	})
	res, err := e.Scan(scanRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusZeroProb, res.Status)
	assert.Len(t, res.Cycles, 1)
	for _, a := range res.Likelihood {
		assert.Zero(t, a.Value())
	}
}

func TestScanCombinesHypotheses(t *testing.T) {
	e := newTestEngine(t, func(integ *IntegrationParams, mc *MCParams, _ *ScanContext) {
		integ.PermuteJets = PermuteBTagGate
		mc.MinPoints = 64
		mc.MaxPoints = 64
	})
	res, err := e.Scan(scanRequest())
	require.NoError(t, err)
	require.Greater(t, len(res.Cycles[0].Active), 1)

	nJES := len(scanJES)
	for k, a := range res.Likelihood {
		var want float64
		for p, accs := range res.PermLikelihood {
			if accs == nil {
				continue
			}
			want += res.Weights[p][k%nJES] * accs[k].Value()
		}
		assert.InDelta(t, want, a.Value(), 1e-9*(1+want))
	}
	for j := range scanJES {
		var sum float64
		for p := range res.Weights {
			sum += res.Weights[p][j]
		}
		assert.InDelta(t, 1, sum, 1e-12)
	}
}

func TestScanLeptonicMask(t *testing.T) {
	e := newTestEngine(t, func(_ *IntegrationParams, mc *MCParams, _ *ScanContext) {
		mc.LSideMask = maskParams()
	})
	_, err := e.Scan(scanRequest())
	require.NoError(t, err)
	_, err = e.Scan(scanRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, e.MaskBuilds())
}

func fiveJetEvent() *kinematics.Event {
	ev := testEvent()
	ev.Jets = append(ev.Jets, kinematics.NewJet(15, 15, 0, 2, kinematics.JetInfo{BTagProb: 0.4, BFakeRate: 0.02}))
	return ev
}

func TestScanFiveJets(t *testing.T) {
	edit := func(integ *IntegrationParams, mc *MCParams, ctx *ScanContext) {
		integ.JetMode = FiveJets
		integ.PermuteJets = PermuteTagProb
		mc.MinPoints = 64
		mc.MaxPoints = 64
		ctx.Acquisition = slopeAcquisition{}
	}
	e := newTestEngine(t, edit)
	req := scanRequest()
	req.Event = fiveJetEvent()
	res, err := e.Scan(req)
	require.NoError(t, err)

	require.NotEmpty(t, res.Cycles)
	assert.Len(t, res.Cycles[0].Active, len(Hypotheses(FiveJets)))
	assert.True(t, res.Status.Terminal())

	want := PermutationWeights(WeightInput{
		Jets:        req.Event.Jets,
		Mode:        PermuteTagProb,
		JetMode:     FiveJets,
		JES:         scanJES,
		Acquisition: slopeAcquisition{},
	})
	require.Len(t, res.Weights, len(want))
	for p := range want {
		assert.InDeltaSlice(t, want[p], res.Weights[p], 1e-12)
	}
	for j := range scanJES {
		var sum float64
		for p := range res.Weights {
			sum += res.Weights[p][j]
		}
		assert.InDelta(t, 1, sum, 1e-12)
	}
	for im := range scanMasses {
		assert.Greater(t, res.At(im, 1).Value(), 0.0)
	}

	masked := newTestEngine(t, func(integ *IntegrationParams, mc *MCParams, ctx *ScanContext) {
		edit(integ, mc, ctx)
		mc.LSideMask = maskParams()
	})
	_, err = masked.Scan(req)
	require.NoError(t, err)
	// one mask per candidate leptonic b jet
	assert.Equal(t, len(req.Event.Jets), masked.MaskBuilds())
}

func TestScanErrors(t *testing.T) {
	tests := []struct {
		name string
		edit func(*IntegrationParams, *MCParams, *ScanContext)
		req  func(*ScanRequest)
		want error
	}{
		{
			name: "three jets",
			edit: func(integ *IntegrationParams, _ *MCParams, _ *ScanContext) { integ.JetMode = ThreeJets },
			want: ErrNotImplemented,
		},
		{
			name: "dropped partons",
			edit: func(integ *IntegrationParams, _ *MCParams, _ *ScanContext) { integ.PartonLoss = PartonLossDrop },
			want: ErrNotImplemented,
		},
		{
			name: "no acquirable hypothesis",
			edit: func(integ *IntegrationParams, _ *MCParams, ctx *ScanContext) {
				integ.PermuteJets = PermuteBTagGate
				ctx.Acquisition = constAcquisition(0)
			},
			want: ErrNoHypothesis,
		},
		{
			name: "empty mass grid",
			req:  func(r *ScanRequest) { r.Masses = nil },
			want: ErrInvalidParameter,
		},
		{
			name: "negative JES",
			req:  func(r *ScanRequest) { r.JES = []float64{-1} },
			want: ErrInvalidParameter,
		},
		{
			name: "missing event",
			req:  func(r *ScanRequest) { r.Event = nil },
			want: ErrInvalidParameter,
		},
		{
			name: "wrong jet count",
			req:  func(r *ScanRequest) { r.Event.Jets = r.Event.Jets[:3] },
			want: ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, tt.edit)
			req := scanRequest()
			if tt.req != nil {
				tt.req(&req)
			}
			_, err := e.Scan(req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewEngineValidation(t *testing.T) {
	integ, mc := testParams()
	ctx := testContext(integ)

	bad := mc
	bad.DimMask = MaskOf(DimTHad, DimTLep)
	_, err := NewEngine(integ, bad, ctx)
	assert.ErrorIs(t, err, ErrMissingDimension)

	noSolver := ctx
	noSolver.Leptonic = nil
	_, err = NewEngine(integ, mc, noSolver)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	badInteg := integ
	badInteg.WMass = 0
	_, err = NewEngine(badInteg, mc, ctx)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
