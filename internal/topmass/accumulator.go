package topmass

import (
	"fmt"
	"math"
)

// ksum is a Neumaier compensated sum. The correction term carries the
// low-order bits lost by each addition, which keeps sum-of-squares
// cancellation under control for long runs of tiny weights.
type ksum struct {
	s, c float64
}

func (k *ksum) add(x float64) {
	t := k.s + x
	if math.Abs(k.s) >= math.Abs(x) {
		k.c += (k.s - t) + x
	} else {
		k.c += (x - t) + k.s
	}
	k.s = t
}

func (k ksum) value() float64 { return k.s + k.c }

func (k *ksum) scale(f float64) {
	k.s *= f
	k.c *= f
}

// NormAccumulator is a running weighted-mean estimator of a Monte-Carlo
// integral. The zero value is empty and ready to use.
type NormAccumulator struct {
	sum   ksum
	sumsq ksum
	max   float64
	n     int64
}

// Accumulate adds one sample weight. Negative and NaN weights are
// programmer errors.
func (a *NormAccumulator) Accumulate(w float64) {
	if !(w >= 0) {
		panic(fmt.Sprintf("topmass: accumulate of invalid weight %g", w))
	}
	a.sum.add(w)
	a.sumsq.add(w * w)
	if w > a.max {
		a.max = w
	}
	a.n++
}

// Count is the number of accumulated samples.
func (a NormAccumulator) Count() int64 { return a.n }

// Sum is the total accumulated weight.
func (a NormAccumulator) Sum() float64 { return a.sum.value() }

// Max is the largest single weight seen.
func (a NormAccumulator) Max() float64 { return a.max }

// Value is the mean weight, i.e. the integral estimate.
func (a NormAccumulator) Value() float64 {
	if a.n == 0 {
		return 0
	}
	return a.sum.value() / float64(a.n)
}

// Variance is the population variance of the accumulated weights.
func (a NormAccumulator) Variance() float64 {
	if a.n == 0 {
		return 0
	}
	mean := a.Value()
	v := a.sumsq.value()/float64(a.n) - mean*mean
	if v < 0 {
		return 0
	}
	return v
}

// Error is the standard error of the mean, 0 with fewer than two samples.
func (a NormAccumulator) Error() float64 {
	if a.n <= 1 {
		return 0
	}
	return math.Sqrt(a.Variance() / float64(a.n-1))
}

// RelError is Error/Value, +Inf for an empty or zero estimate.
func (a NormAccumulator) RelError() float64 {
	v := a.Value()
	if v == 0 {
		return math.Inf(1)
	}
	return a.Error() / v
}

// Reset empties the accumulator.
func (a *NormAccumulator) Reset() { *a = NormAccumulator{} }

// Scale multiplies every accumulated weight by f >= 0.
func (a *NormAccumulator) Scale(f float64) {
	if !(f >= 0) {
		panic(fmt.Sprintf("topmass: scale by invalid factor %g", f))
	}
	a.sum.scale(f)
	a.sumsq.scale(f * f)
	a.max *= f
}

// Scaled returns a scaled copy of a.
func (a NormAccumulator) Scaled(f float64) NormAccumulator {
	a.Scale(f)
	return a
}

// fromMoments rebuilds an accumulator with the given mean, standard error
// and count.
func fromMoments(mean, err float64, n int64, max float64) NormAccumulator {
	var out NormAccumulator
	if n == 0 {
		return out
	}
	nf := float64(n)
	out.n = n
	out.sum.s = mean * nf
	out.sumsq.s = nf * (err*err*(nf-1) + mean*mean)
	out.max = max
	return out
}

// CombineCorrelated merges two estimates built from the same sample: the
// means add and the standard errors add linearly.
func CombineCorrelated(a, b NormAccumulator) NormAccumulator {
	if a.n == 0 {
		return b
	}
	if b.n == 0 {
		return a
	}
	return fromMoments(a.Value()+b.Value(), a.Error()+b.Error(), max(a.n, b.n), a.max+b.max)
}

// CombineIndependent merges two estimates built from independent samples:
// the means add and the variances of the means add.
func CombineIndependent(a, b NormAccumulator) NormAccumulator {
	if a.n == 0 {
		return b
	}
	if b.n == 0 {
		return a
	}
	return fromMoments(a.Value()+b.Value(), math.Hypot(a.Error(), b.Error()), max(a.n, b.n), a.max+b.max)
}

func (a NormAccumulator) String() string {
	return fmt.Sprintf("%.6g ± %.3g (n=%d)", a.Value(), a.Error(), a.n)
}
