package bozorth3

import "math"

// The reference matcher does all of its trigonometry in single precision
// and rounds half away from zero. Both properties are load-bearing: scores
// are compared bit-for-bit against the NIST implementation, so the helpers
// below keep float32 arithmetic even where float64 would be more natural.

// rounded rounds half away from zero.
func rounded(x float32) int {
	if x < 0 {
		x -= 0.5
	} else {
		x += 0.5
	}
	return int(x)
}

func radToDeg(rad float32) float32 {
	return (180 / float32(math.Pi)) * rad
}

// atan2RoundDegree returns the edge direction in whole degrees, or 90 when
// dx is zero. The sign of dx is ignored on purpose: the reference uses the
// single-argument arctangent here, and downstream angle comparisons depend
// on that quadrant folding. Do not replace it with a two-argument atan2.
func atan2RoundDegree(dx, dy int) int {
	if dx == 0 {
		return 90
	}
	return rounded(radToDeg(float32(math.Atan(float64(float32(dy) / float32(dx))))))
}

// slopeInDegrees is the quadrant-preserving variant of atan2RoundDegree:
// when dx < 0 the result is shifted by 180 degrees and renormalized into
// (-180, 180]. When dx is zero the slope is -90 for dy <= 0 and 90
// otherwise.
func slopeInDegrees(dx, dy int) int {
	if dx == 0 {
		if dy <= 0 {
			return -90
		}
		return 90
	}
	fi := radToDeg(float32(math.Atan(float64(float32(dy) / float32(dx)))))
	if fi < 0 {
		if dx < 0 {
			fi += 180
		}
	} else {
		if dx < 0 {
			fi -= 180
		}
	}
	deg := rounded(fi)
	if deg <= -180 {
		deg += 360
	}
	return deg
}

// normalizeAngle maps an integer degree value into (-180, 180].
func normalizeAngle(deg int) int {
	if deg > 180 {
		return deg - 360
	}
	if deg <= -180 {
		return deg + 360
	}
	return deg
}

// anglesEqualWithTolerance reports whether two angles in degrees agree
// within the matcher's tolerance of 11 degrees, counting wrap-around: a
// difference of 349 or more also matches.
func anglesEqualWithTolerance(a, b int) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return !(d > angleLowerBound && d < angleUpperBound)
}

// areOpposite reports whether two orientations differ by exactly 180
// degrees, assuming both lie in (-180, 180].
func areOpposite(a, b int) bool {
	if b > 0 {
		return a == b-180
	}
	return a == b+180
}

// averageAngles folds two angles through the fixed-precision circular
// mean used everywhere else in the matcher.
func averageAngles(angle1, angle2 int) int {
	var averager AngleAverager
	averager.Push(angle1)
	averager.Push(angle2)
	return averager.Average()
}
