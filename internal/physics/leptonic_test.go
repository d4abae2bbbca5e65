package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/topmass/internal/kinematics"
	"github.com/banshee-data/topmass/internal/topmass"
)

func leptonicInput() *topmass.LeptonicInput {
	return &topmass.LeptonicInput{
		TopPt:  [2]float64{20, -15},
		Lepton: kinematics.NewLepton(30, 10, -5, 0, -1).P4(),
		BDir:   [3]float64{0.6, 0, 0.8},
		MB:     4.7,
	}
}

func TestLeptonicRoundTrip(t *testing.T) {
	ls := NewLeptonicSolver(980)
	in := leptonicInput()
	const s0, pz0 = 60.0, 25.0
	mw2, mt2, _ := ls.Constraints(in, s0, pz0)
	require.Greater(t, mw2, 0.0)
	in.MTop2 = mt2

	var out [4]topmass.LeptonicSolution
	n := ls.SolveLeptonic(in, mw2, &out)
	require.GreaterOrEqual(t, n, 1)

	found := false
	for _, sol := range out[:n] {
		gotW, gotT, _ := ls.Constraints(in, sol.S, sol.NuPz)
		assert.InEpsilon(t, mw2, gotW, 1e-8)
		assert.InEpsilon(t, mt2, gotT, 1e-8)
		assert.NotZero(t, sol.JacobianDet)
		assert.InDelta(t, sol.S, kinematics.Momentum(sol.B), 1e-9*sol.S)
		assert.Equal(t, sol.NuPz, sol.Nu.Pz())
		if math.Abs(sol.S-s0) < 1e-6 && math.Abs(sol.NuPz-pz0) < 1e-5 {
			found = true
		}
	}
	assert.True(t, found, "generating configuration among %d solutions", n)
}

func TestLeptonicNoSolutions(t *testing.T) {
	ls := NewLeptonicSolver(980)
	in := leptonicInput()
	var out [4]topmass.LeptonicSolution

	in.MTop2 = 172.5 * 172.5
	assert.Zero(t, ls.SolveLeptonic(in, 0, &out))
	assert.Zero(t, ls.SolveLeptonic(in, math.Inf(1), &out))

	// a top lighter than the lepton, neutrino and b pT it must carry
	in.MTop2 = 10
	assert.Zero(t, ls.SolveLeptonic(in, 80.4*80.4, &out))
}

func TestLeptonicConstraintsJacobian(t *testing.T) {
	ls := NewLeptonicSolver(980)
	in := leptonicInput()
	for _, pt := range [][2]float64{{60, 25}, {15, -40}, {200, 3}} {
		s, pz := pt[0], pt[1]
		_, _, jac := ls.Constraints(in, s, pz)
		const h = 1e-5
		w1, t1, _ := ls.Constraints(in, s+h, pz)
		w0, t0, _ := ls.Constraints(in, s-h, pz)
		assert.InDelta(t, (w1-w0)/(2*h), jac[0][0], 1e-4*(1+math.Abs(jac[0][0])))
		assert.InDelta(t, (t1-t0)/(2*h), jac[1][0], 1e-4*(1+math.Abs(jac[1][0])))
		w1, t1, _ = ls.Constraints(in, s, pz+h)
		w0, t0, _ = ls.Constraints(in, s, pz-h)
		assert.InDelta(t, (w1-w0)/(2*h), jac[0][1], 1e-4*(1+math.Abs(jac[0][1])))
		assert.InDelta(t, (t1-t0)/(2*h), jac[1][1], 1e-4*(1+math.Abs(jac[1][1])))
	}
}
