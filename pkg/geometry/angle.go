package geometry

import "math"

// TwoPi is a full turn in radians.
const TwoPi = 2 * math.Pi

// WrapAngle maps any angle onto [0, 2Pi).
// It is a floored modulo, so negative inputs wrap forward instead of keeping
// their sign the way math.Mod does.
func WrapAngle(a float64) float64 {
	r := a - TwoPi*math.Floor(a/TwoPi)
	if r >= TwoPi {
		// a/TwoPi rounding can land exactly on the upper bound
		return 0
	}
	return r
}

// ShortestRotation returns the signed turn that brings heading current onto
// heading target along the shorter arc.
// The clockwise and anti-clockwise deltas are both taken in [0, 2Pi); the
// smaller one wins, the anti-clockwise one being negated. Headings do not need
// to be normalized, the result always lies in [-Pi, Pi].
func ShortestRotation(current, target float64) float64 {
	cw := WrapAngle(target - current + 4*math.Pi)
	acw := WrapAngle(current - target + 4*math.Pi)
	if math.Abs(cw) < math.Abs(acw) {
		return cw
	}
	return -acw
}
