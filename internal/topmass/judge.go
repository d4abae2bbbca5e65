package topmass

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

// scanState is the mutable state of one event scan.
type scanState struct {
	nJES     int
	weights  [][]float64
	perm     [][]NormAccumulator
	cursor   []int
	active   []int
	combined []NormAccumulator
	values   []float64
	worst    []int
	counts   []int
}

func newScanState(weights [][]float64, nPoints, nJES int) *scanState {
	st := &scanState{
		nJES:     nJES,
		weights:  weights,
		perm:     make([][]NormAccumulator, len(weights)),
		cursor:   make([]int, len(weights)),
		combined: make([]NormAccumulator, nPoints),
		values:   make([]float64, nPoints),
		worst:    make([]int, nPoints),
		counts:   make([]int, len(weights)),
	}
	for p, w := range weights {
		if floats.Max(w) > 0 {
			st.perm[p] = make([]NormAccumulator, nPoints)
			st.active = append(st.active, p)
		}
	}
	return st
}

// judgement is the verdict of one completion check.
type judgement struct {
	status  ScanStatus
	covered float64
	active  []int
}

// combine folds the weighted per-hypothesis estimates into st.combined
// and records, per result point, the active hypothesis with the largest
// weighted error.
func (st *scanState) combine() {
	for k := range st.combined {
		st.combined[k].Reset()
		st.worst[k] = -1
	}
	worstErr := make([]float64, len(st.combined))
	activeSet := make(map[int]bool, len(st.active))
	for _, p := range st.active {
		activeSet[p] = true
	}
	for p, accs := range st.perm {
		if accs == nil {
			continue
		}
		for k := range accs {
			w := st.weights[p][k%st.nJES]
			if w == 0 || accs[k].Count() == 0 {
				continue
			}
			st.combined[k] = CombineIndependent(st.combined[k], accs[k].Scaled(w))
			if e := w * accs[k].Error(); activeSet[p] && e > worstErr[k] {
				worstErr[k] = e
				st.worst[k] = p
			}
		}
	}
	for k := range st.combined {
		st.values[k] = st.combined[k].Value()
	}
}

// judge decides whether the scan is finished. Precision is tested first,
// then the zero-probability, point and time budgets. A continuing scan
// with a precision target keeps only the hypotheses that are worst at
// the most result points failing the target.
func (st *scanState) judge(mc *MCParams, maxIntegrated, pointsNext int, elapsed time.Duration) judgement {
	st.combine()
	total := floats.Sum(st.values)
	target := mc.PrecisionTarget

	var covered float64
	if total > 0 && target > 0 {
		var ok float64
		for k, v := range st.values {
			if v > 0 && st.combined[k].Error() <= target*v {
				ok += v
			}
		}
		covered = ok / total
	}

	j := judgement{status: StatusContinue, covered: covered, active: st.active}
	switch {
	case target > 0 && total > 0 && covered >= mc.PrecisionFraction:
		j.status = StatusOK
	case total == 0 && maxIntegrated >= mc.MaxZeroProbPoints:
		j.status = StatusZeroProb
	case pointsNext <= 0:
		j.status = StatusMaxPoints
	case mc.MaxEventTime > 0 && elapsed >= mc.MaxEventTime:
		j.status = StatusTimeLimit
	case target > 0:
		j.active = st.prune(target, mc.WorstPermCutoff)
	}
	return j
}

// prune counts how often each active hypothesis is the worst at a point
// failing the target and keeps those within cutoff of the maximum count.
func (st *scanState) prune(target, cutoff float64) []int {
	clear(st.counts)
	maxCount := 0
	for k, v := range st.values {
		p := st.worst[k]
		if p < 0 || v <= 0 || st.combined[k].Error() <= target*v {
			continue
		}
		st.counts[p]++
		maxCount = max(maxCount, st.counts[p])
	}
	if maxCount == 0 {
		return st.active
	}
	keep := make([]int, 0, len(st.active))
	for _, p := range st.active {
		if c := st.counts[p]; c > 0 && float64(c) >= cutoff*float64(maxCount) {
			keep = append(keep, p)
		}
	}
	return keep
}
