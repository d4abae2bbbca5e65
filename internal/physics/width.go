package physics

import "math"

// FermiConstant in GeV^-2.
const FermiConstant = 1.1663787e-5

// TopWidthLO is the leading-order width of t -> W b with |Vtb| = 1,
//
//	G_F mt^3 / (8 pi sqrt 2) sqrt(lambda(1, xb, xw)) ((1-xb)^2 + xw(1+xb) - 2 xw^2)
//
// with x = m^2/mt^2. It is zero below threshold.
func TopWidthLO(mt, mw, mb float64) float64 {
	if !(mt > mw+mb) {
		return 0
	}
	mt2 := mt * mt
	xw, xb := mw*mw/mt2, mb*mb/mt2
	lambda := 1 + xw*xw + xb*xb - 2*xw - 2*xb - 2*xw*xb
	if lambda <= 0 {
		return 0
	}
	shape := (1-xb)*(1-xb) + xw*(1+xb) - 2*xw*xw
	return FermiConstant * mt2 * mt / (8 * math.Pi * math.Sqrt2) * math.Sqrt(lambda) * shape
}
