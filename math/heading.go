// math/heading.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

// HeadingDifference returns the minimum difference between two
// headings in degrees. (i.e., the result is always in the range [0,180].)
func HeadingDifference(a float64, b float64) float64 {
	d := Abs(NormalizeHeading(a) - NormalizeHeading(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// HeadingSignedTurn returns the signed number of degrees to turn from cur
// to reach target, taking the shorter way around; positive is a right
// turn.
//
// First find the angle to rotate the target heading by so that it's
// aligned with 180 degrees. This lets us not worry about the
// complexities of the wrap around at 0/360.
func HeadingSignedTurn(cur, target float64) float64 {
	rot := NormalizeHeading(180 - target)
	return 180 - NormalizeHeading(cur+rot)
}

// NormalizeHeading reduces a heading in degrees to [0,360).
func NormalizeHeading(h float64) float64 {
	h = Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// NormalizeRadians reduces an angle in radians to (-π,π].
func NormalizeRadians(r float64) float64 {
	r = Mod(r, 2*Pi)
	if r <= -Pi {
		r += 2 * Pi
	} else if r > Pi {
		r -= 2 * Pi
	}
	return r
}

// RadiansDifference is HeadingDifference for angles in radians; the
// result is in [0,π].
func RadiansDifference(a, b float64) float64 {
	return Abs(NormalizeRadians(a - b))
}

// CourseToHeading converts a great-circle course in radians as returned
// by HeadingGC to a compass heading in degrees.
func CourseToHeading(r float64) float64 {
	return NormalizeHeading(Degrees(r))
}
