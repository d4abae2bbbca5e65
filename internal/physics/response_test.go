package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/topmass/internal/kinematics"
	"github.com/banshee-data/topmass/internal/topmass"
)

func TestGaussianTransferNormalised(t *testing.T) {
	tf := DefaultTransfer()
	parton := kinematics.OnShell(50, 0, 10, 4.7)
	for _, tc := range []struct {
		jes  float64
		role topmass.Role
	}{{1, topmass.RoleQ}, {1.1, topmass.RoleBHad}, {0.9, topmass.RoleBLep}} {
		const step = 0.05
		var sum, peakPt, peak float64
		for pt := step; pt < 200; pt += step {
			d := tf.Density(parton, kinematics.NewJet(pt, 0, 0, 0, kinematics.JetInfo{}), tc.jes, tc.role)
			sum += d * step
			if d > peak {
				peak, peakPt = d, pt
			}
		}
		assert.InDelta(t, 1, sum, 1e-3, "jes %g", tc.jes)
		assert.InDelta(t, 50*tc.jes, peakPt, 2*step)
	}
	assert.Zero(t, tf.Density(kinematics.OnShell(0, 0, 10, 0), kinematics.NewJet(20, 0, 0, 0, kinematics.JetInfo{}), 1, topmass.RoleQ))
}

func TestTurnOn(t *testing.T) {
	to := DefaultTurnOn()
	assert.InDelta(t, 0.5, to.Pass(20, 3), 1e-12)
	assert.Less(t, to.Pass(10, 3), 0.01)
	assert.Greater(t, to.Pass(30, 3), 0.99)
	assert.Equal(t, 1.0, to.Pass(20, 0))
	assert.Equal(t, 0.0, to.Pass(19.9, 0))

	parton := kinematics.OnShell(19, 0, 0, 0)
	base := to.Efficiency(parton, topmass.RoleQ, 0, 0)
	assert.Greater(t, to.Efficiency(parton, topmass.RoleQ, 0.1, 0), base, "a higher scale lifts the parton over the cut")
	assert.InDelta(t, 0.5, to.Efficiency(kinematics.OnShell(20, 0, 0, 0), topmass.RoleQ, 0, 0.2), 1e-12)
}

func TestAcquisition(t *testing.T) {
	acq := Acquisition{TurnOn: DefaultTurnOn(), ExtraJetRate: 0.3}
	hard := []kinematics.Jet{
		kinematics.NewJet(80, 0, 0, 5, kinematics.JetInfo{}),
		kinematics.NewJet(0, 70, 0, 5, kinematics.JetInfo{}),
		kinematics.NewJet(-60, 0, 0, 5, kinematics.JetInfo{}),
		kinematics.NewJet(0, -50, 0, 5, kinematics.JetInfo{}),
		kinematics.NewJet(20, 0, 20, 2, kinematics.JetInfo{}),
	}
	all := acq.ProbToAcquire(hard[:4], -1, 1)
	assert.InDelta(t, 1, all, 1e-9)
	assert.InDelta(t, 0.3*0.5, acq.ProbToAcquire(hard, 3, 1), 1e-6, "dropping a hard jet leaves the one at the cut")
	assert.Less(t, acq.ProbToAcquire(hard, -1, 1.2), acq.ProbToAcquire(hard, -1, 1))
	assert.Zero(t, acq.ProbToAcquire(hard, -1, 0))
}

func TestLossFactor(t *testing.T) {
	l := LossFactor{TurnOn: DefaultTurnOn()}
	p := kinematics.OnShell(20, 0, 0, 0)
	assert.InDelta(t, 0.5, l.ProbToLose(p, 0, topmass.RoleBLep), 1e-12)
	assert.Less(t, l.ProbToLose(kinematics.OnShell(40, 0, 0, 0), 0, topmass.RoleQ), 1e-6)
}

func TestTopWidthLO(t *testing.T) {
	assert.InDelta(t, 1.48, TopWidthLO(172.5, 80.403, 4.7), 0.02)
	assert.Greater(t, TopWidthLO(180, 80.403, 4.7), TopWidthLO(170, 80.403, 4.7))
	assert.Zero(t, TopWidthLO(80, 80.403, 4.7))
}

func TestToyStructureFunction(t *testing.T) {
	sf := ToyStructureFunction{Power: 5}
	assert.InDelta(t, (0.9*0.9*0.9*0.9*0.9/0.1)*(0.8*0.8*0.8*0.8*0.8/0.2), sf.Weight(0.1, 0.2), 1e-9)
	assert.Zero(t, sf.Weight(0, 0.5))
	assert.Zero(t, sf.Weight(0.5, 1))
}

func TestToyMatrixElement(t *testing.T) {
	in := &topmass.MatrixElementInput{
		Q:            kinematics.OnShell(40, 10, 5, 0.5),
		Qbar:         kinematics.OnShell(-30, 25, -10, 0.5),
		BHad:         kinematics.OnShell(60, -40, 20, 4.7),
		BLep:         kinematics.OnShell(-50, -30, 35, 4.7),
		Lepton:       kinematics.OnShell(35, 5, -12, 0),
		Nu:           kinematics.OnShell(-20, 20, 30, 0),
		MTop:         172.5,
		LeptonCharge: 1,
	}
	plus := ToyMatrixElement{}.Weight(in)
	in.LeptonCharge = -1
	minus := ToyMatrixElement{}.Weight(in)

	assert.GreaterOrEqual(t, plus, 0.0)
	assert.GreaterOrEqual(t, minus, 0.0)
	total := kinematics.Sum(in.Q, in.Qbar, in.BHad, in.BLep, in.Lepton, in.Nu)
	flux := 172.5 * 172.5 / kinematics.Mass2(total)
	assert.InDelta(t, flux, plus+minus, 1e-12, "the two charges share the decay distribution")
}
