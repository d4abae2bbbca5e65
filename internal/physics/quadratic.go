package physics

import "math"

// solveQuadratic returns the real roots of a x^2 + b x + c = 0 in
// ascending order. A degenerate leading coefficient falls back to the
// linear equation.
func solveQuadratic(a, b, c float64) (roots [2]float64, n int) {
	if a == 0 {
		if b == 0 {
			return roots, 0
		}
		roots[0] = -c / b
		return roots, 1
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return roots, 0
	}
	q := -0.5 * (b + math.Copysign(math.Sqrt(disc), b))
	if q == 0 {
		// b == 0 and c == 0
		return roots, 1
	}
	r1, r2 := q/a, c/q
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	roots[0], roots[1] = r1, r2
	return roots, 2
}
