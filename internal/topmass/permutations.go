package topmass

import (
	"fmt"

	"github.com/banshee-data/topmass/internal/kinematics"
)

// NumPermutations is the number of jet-to-role assignments of four jets.
const NumPermutations = 24

// Permutation maps jet slots to roles: Permutation[r] is the slot of the
// jet assigned to role r.
type Permutation [NumRoles]int

// permutations lists all assignments in lexicographic order, so index 0
// is the identity (jets in q, qbar, blep, bhad order).
var permutations = func() [NumPermutations]Permutation {
	var out [NumPermutations]Permutation
	i := 0
	var rec func(p Permutation, used [NumRoles]bool, depth int)
	rec = func(p Permutation, used [NumRoles]bool, depth int) {
		if depth == int(NumRoles) {
			out[i] = p
			i++
			return
		}
		for slot := 0; slot < int(NumRoles); slot++ {
			if used[slot] {
				continue
			}
			used[slot] = true
			p[depth] = slot
			rec(p, used, depth+1)
			used[slot] = false
		}
	}
	rec(Permutation{}, [NumRoles]bool{}, 0)
	return out
}()

// PermutationAt returns the i-th assignment.
func PermutationAt(i int) Permutation { return permutations[i] }

// Hypothesis is one combined jet-assignment hypothesis: an assignment of
// four jet slots to roles plus, outside the 4-jet mode, which input jet is
// dropped (5 jets) or missing (3 jets).
type Hypothesis struct {
	Index int
	Perm  Permutation
	Drop  int // -1 in 4-jet mode
}

func (h Hypothesis) String() string {
	if h.Drop < 0 {
		return fmt.Sprintf("#%d%v", h.Index, h.Perm)
	}
	return fmt.Sprintf("#%d%v/drop%d", h.Index, h.Perm, h.Drop)
}

// Hypotheses enumerates every combined hypothesis of a jet mode. The
// combined index is drop*24 + permutation.
func Hypotheses(mode JetMode) []Hypothesis {
	nDrop := 1
	switch mode {
	case ThreeJets:
		nDrop = 4
	case FiveJets:
		nDrop = 5
	}
	out := make([]Hypothesis, 0, nDrop*NumPermutations)
	for d := 0; d < nDrop; d++ {
		drop := d
		if mode == FourJets {
			drop = -1
		}
		for p := 0; p < NumPermutations; p++ {
			out = append(out, Hypothesis{Index: d*NumPermutations + p, Perm: permutations[p], Drop: drop})
		}
	}
	return out
}

// Slots resolves the four working jet slots of a hypothesis. In 5-jet mode
// the dropped input jet is removed; in 3-jet mode an extra (absent) jet is
// inserted at slot Drop.
func (h Hypothesis) Slots(jets []kinematics.Jet) [NumRoles]kinematics.Jet {
	var slots [NumRoles]kinematics.Jet
	switch {
	case h.Drop < 0:
		copy(slots[:], jets)
	case len(jets) == 5:
		n := 0
		for i := range jets {
			if i != h.Drop {
				slots[n] = jets[i]
				n++
			}
		}
	default:
		n := 0
		for s := range slots {
			if s == h.Drop {
				slots[s] = kinematics.ExtraJet()
				continue
			}
			slots[s] = jets[n]
			n++
		}
	}
	return slots
}

// Arrange returns the jets of a hypothesis in role order.
func (h Hypothesis) Arrange(jets []kinematics.Jet) [NumRoles]kinematics.Jet {
	slots := h.Slots(jets)
	var out [NumRoles]kinematics.Jet
	for r := Role(0); r < NumRoles; r++ {
		out[r] = slots[h.Perm[r]]
	}
	return out
}

// InputIndex maps a working slot to the index of its jet in the event's
// jet list, or -1 for an inserted extra jet.
func (h Hypothesis) InputIndex(slot, nJets int) int {
	switch {
	case h.Drop < 0:
		return slot
	case nJets == 5:
		if slot < h.Drop {
			return slot
		}
		return slot + 1
	case slot == h.Drop:
		return -1
	case slot < h.Drop:
		return slot
	default:
		return slot - 1
	}
}
