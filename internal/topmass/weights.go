package topmass

import (
	"fmt"

	"github.com/banshee-data/topmass/internal/kinematics"
)

// WeightInput describes the jets of one event for the permutation prior.
type WeightInput struct {
	Jets        []kinematics.Jet
	Mode        PermuteMode
	JetMode     JetMode
	JES         []float64
	Acquisition JetAcquisition // nil means every jet set is acquired
}

// PermutationWeights returns the normalised prior weight of every
// hypothesis of in.JetMode at every JES point, indexed [hypothesis][jes].
// For each JES point the weights sum to one. A JES point at which no
// hypothesis has positive weight is a caller error and panics.
func PermutationWeights(in WeightInput) [][]float64 {
	w := rawPermutationWeights(in, Hypotheses(in.JetMode))
	normalizeWeights(w)
	return w
}

func rawPermutationWeights(in WeightInput, hyps []Hypothesis) [][]float64 {
	w := make([][]float64, len(hyps))
	for i := range w {
		w[i] = make([]float64, len(in.JES))
	}
	if in.Mode == PermuteNone {
		fill(w[identityHypothesis(in.JetMode)], 1)
		return w
	}
	for i, h := range hyps {
		slots := h.Slots(in.Jets)
		var prior float64
		switch in.Mode {
		case PermuteBTagGate:
			if tagConsistent(h, slots) {
				prior = 1
			}
		case PermuteTagProb:
			prior = tagProbability(h, slots)
		default:
			panic(fmt.Sprintf("topmass: unknown permutation mode %d", in.Mode))
		}
		if prior == 0 {
			continue
		}
		for j, jes := range in.JES {
			acq := 1.0
			if in.Acquisition != nil {
				acq = in.Acquisition.ProbToAcquire(in.Jets, h.Drop, jes)
			}
			w[i][j] = prior * acq
		}
	}
	return w
}

// identityHypothesis is the input ordering; a fifth jet is the one dropped.
func identityHypothesis(mode JetMode) int {
	if mode == FiveJets {
		return 4 * NumPermutations
	}
	return 0
}

func fill(s []float64, v float64) {
	for i := range s {
		s[i] = v
	}
}

// tagConsistent keeps assignments that put tagged jets on b roles. With
// more than two tags both b roles must hold tagged jets.
func tagConsistent(h Hypothesis, slots [NumRoles]kinematics.Jet) bool {
	nTags := 0
	for _, j := range slots {
		if j.Info().Tagged {
			nTags++
		}
	}
	for r := Role(0); r < NumRoles; r++ {
		tagged := slots[h.Perm[r]].Info().Tagged
		if nTags <= 2 && tagged && !r.IsB() {
			return false
		}
		if nTags > 2 && !tagged && r.IsB() {
			return false
		}
	}
	return true
}

func tagProbability(h Hypothesis, slots [NumRoles]kinematics.Jet) float64 {
	p := 1.0
	for r := Role(0); r < NumRoles; r++ {
		jet := slots[h.Perm[r]]
		if jet.Extra() {
			continue
		}
		info := jet.Info()
		eff := info.BFakeRate
		if r.IsB() {
			eff = info.BTagProb
		}
		if info.Tagged {
			p *= eff
		} else {
			p *= 1 - eff
		}
	}
	return p
}

func normalizeWeights(w [][]float64) {
	if len(w) == 0 {
		return
	}
	for j := range w[0] {
		var sum float64
		for i := range w {
			sum += w[i][j]
		}
		if !(sum > 0) {
			panic(fmt.Sprintf("topmass: permutation weights sum to %g at JES point %d", sum, j))
		}
		for i := range w {
			w[i][j] /= sum
		}
	}
}

// columnFeasible reports whether every JES column has a positive sum.
func columnFeasible(w [][]float64) bool {
	if len(w) == 0 {
		return false
	}
	for j := range w[0] {
		var sum float64
		for i := range w {
			sum += w[i][j]
		}
		if !(sum > 0) {
			return false
		}
	}
	return true
}
