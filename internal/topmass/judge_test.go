package topmass

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fillState gives hypothesis p the samples vals at every result point.
func fillState(st *scanState, p int, vals ...float64) {
	for k := range st.perm[p] {
		for _, v := range vals {
			st.perm[p][k].Accumulate(v)
		}
	}
}

func judgeParams() MCParams {
	mc := DefaultMCParams()
	mc.PrecisionTarget = 0.05
	mc.PrecisionFraction = 0.9
	mc.MaxZeroProbPoints = 100
	mc.MaxEventTime = time.Minute
	return mc
}

func TestJudge(t *testing.T) {
	tests := []struct {
		name      string
		p0, p1    []float64
		integ     int
		next      int
		elapsed   time.Duration
		want      ScanStatus
		minCovers float64
	}{
		{name: "precise", p0: []float64{1, 1, 1, 1}, p1: []float64{2, 2, 2, 2}, integ: 4, next: 4, want: StatusOK, minCovers: 1},
		{name: "precise beats budgets", p0: []float64{1, 1, 1, 1}, p1: []float64{1, 1, 1, 1}, integ: 4, next: 0, elapsed: time.Hour, want: StatusOK, minCovers: 1},
		{name: "zero probability", p0: []float64{0, 0}, p1: []float64{0, 0}, integ: 100, next: 100, want: StatusZeroProb},
		{name: "zero probability early", p0: []float64{0, 0}, p1: []float64{0, 0}, integ: 50, next: 50, want: StatusContinue},
		{name: "points exhausted", p0: []float64{0, 2, 0, 2}, p1: []float64{1, 1, 1, 1}, integ: 4, next: 0, want: StatusMaxPoints},
		{name: "time exhausted", p0: []float64{0, 2, 0, 2}, p1: []float64{1, 1, 1, 1}, integ: 4, next: 4, elapsed: time.Minute, want: StatusTimeLimit},
		{name: "noisy", p0: []float64{0, 2, 0, 2}, p1: []float64{1, 1, 1, 1}, integ: 4, next: 4, want: StatusContinue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := judgeParams()
			st := newScanState([][]float64{{0.5}, {0.5}}, 2, 1)
			fillState(st, 0, tt.p0...)
			fillState(st, 1, tt.p1...)

			j := st.judge(&mc, tt.integ, tt.next, tt.elapsed)
			assert.Equal(t, tt.want, j.status)
			assert.GreaterOrEqual(t, j.covered, tt.minCovers)
		})
	}
}

func TestJudgePrunesToWorstHypothesis(t *testing.T) {
	mc := judgeParams()
	st := newScanState([][]float64{{0.5}, {0.3}, {0.2}}, 2, 1)
	fillState(st, 0, 0, 2, 0, 2)
	fillState(st, 1, 1, 1, 1, 1)
	fillState(st, 2, 1, 1.2, 1, 1.2)

	j := st.judge(&mc, 4, 4, 0)
	assert.Equal(t, StatusContinue, j.status)
	assert.Equal(t, []int{0}, j.active)
	assert.Equal(t, []int{0, 1, 2}, st.active, "active set changes only when the caller adopts it")
}

func TestJudgeWithoutTargetNeverPrunes(t *testing.T) {
	mc := judgeParams()
	mc.PrecisionTarget = 0
	st := newScanState([][]float64{{0.5}, {0.5}}, 2, 1)
	fillState(st, 0, 1, 1)
	fillState(st, 1, 0, 4)

	j := st.judge(&mc, 2, 2, 0)
	assert.Equal(t, StatusContinue, j.status)
	assert.Zero(t, j.covered)
	assert.Equal(t, []int{0, 1}, j.active)
}

func TestScanStateSkipsZeroWeightHypotheses(t *testing.T) {
	st := newScanState([][]float64{{0, 0}, {0.2, 0.7}, {0.8, 0.3}}, 4, 2)
	assert.Equal(t, []int{1, 2}, st.active)
	assert.Nil(t, st.perm[0])
	assert.Len(t, st.perm[1], 4)
}

func TestCombineWeightsByJES(t *testing.T) {
	st := newScanState([][]float64{{0.2, 0.7}, {0.8, 0.3}}, 4, 2)
	fillState(st, 0, 1, 1)
	fillState(st, 1, 3, 3)
	st.combine()

	// result points alternate JES index 0 and 1
	assert.InDelta(t, 0.2*1+0.8*3, st.values[0], 1e-12)
	assert.InDelta(t, 0.7*1+0.3*3, st.values[1], 1e-12)
	assert.InDelta(t, 0.2*1+0.8*3, st.values[2], 1e-12)
}
