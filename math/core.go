// math/core.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"

	"golang.org/x/exp/constraints"
)

const Pi = gomath.Pi

// Degrees converts an angle expressed in radians to degrees
func Degrees(r float64) float64 {
	return r * 180 / gomath.Pi
}

// Radians converts an angle expressed in degrees to radians
func Radians(d float64) float64 {
	return d / 180 * gomath.Pi
}

// Thin wrappers so that callers that import this package as "math" don't
// also need the standard library's math package.

func Sin(a float64) float64      { return gomath.Sin(a) }
func Cos(a float64) float64      { return gomath.Cos(a) }
func Atan2(y, x float64) float64 { return gomath.Atan2(y, x) }
func Sqrt(a float64) float64     { return gomath.Sqrt(a) }
func Mod(a, b float64) float64   { return gomath.Mod(a, b) }
func Floor(v float64) float64    { return gomath.Floor(v) }
func Ceil(v float64) float64     { return gomath.Ceil(v) }
func Round(v float64) float64    { return gomath.Round(v) }
func Pow(a, b float64) float64   { return gomath.Pow(a, b) }
func Hypot(a, b float64) float64 { return gomath.Hypot(a, b) }
func IsNaN(v float64) bool       { return gomath.IsNaN(v) }
func Inf(sign int) float64       { return gomath.Inf(sign) }

// SafeASin clamps its argument to [-1,1] before calling asin so that
// round-off in ratios like rocd/tas can't produce a NaN.
func SafeASin(a float64) float64 {
	return gomath.Asin(Clamp(a, -1, 1))
}

func SafeACos(a float64) float64 {
	return gomath.Acos(Clamp(a, -1, 1))
}

func Sign(v float64) float64 {
	if v > 0 {
		return 1
	} else if v < 0 {
		return -1
	}
	return 0
}

func Abs[V constraints.Integer | constraints.Float](x V) V {
	if x < 0 {
		return -x
	}
	return x
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func Sqr[V constraints.Integer | constraints.Float](v V) V { return v * v }

func Clamp[T constraints.Ordered](x T, low T, high T) T {
	if x < low {
		return low
	} else if x > high {
		return high
	}
	return x
}

func Lerp(x, a, b float64) float64 {
	return (1-x)*a + x*b
}

// Near reports whether a and b differ by no more than eps.
func Near(a, b, eps float64) bool {
	return Abs(a-b) <= eps
}
