// math/heading_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"testing"
)

func TestHeadingDifference(t *testing.T) {
	type hd struct {
		a, b, d float64
	}
	for _, h := range []hd{{10, 90, 80}, {350, 12, 22}, {340, 120, 140}, {-90, 20, 110},
		{10, 10, 0}, {0, 180, 180}, {720, 1, 1}} {
		if HeadingDifference(h.a, h.b) != h.d {
			t.Errorf("HeadingDifference(%f, %f) -> %f, expected %f", h.a, h.b,
				HeadingDifference(h.a, h.b), h.d)
		}
		if HeadingDifference(h.b, h.a) != h.d {
			t.Errorf("HeadingDifference(%f, %f) -> %f, expected %f", h.b, h.a,
				HeadingDifference(h.b, h.a), h.d)
		}
	}
}

func TestHeadingSignedTurn(t *testing.T) {
	type test struct {
		cur, target, turn float64
	}
	for _, tc := range []test{
		{10, 90, 80},
		{90, 10, -80},
		{350, 10, 20},
		{10, 350, -20},
		{0, 0, 0},
	} {
		if got := HeadingSignedTurn(tc.cur, tc.target); Abs(got-tc.turn) > 1e-9 {
			t.Errorf("HeadingSignedTurn(%f, %f) = %f, expected %f", tc.cur, tc.target, got, tc.turn)
		}
	}
}

func TestNormalize(t *testing.T) {
	for _, tc := range [][2]float64{{0, 0}, {360, 0}, {-10, 350}, {725, 5}} {
		if got := NormalizeHeading(tc[0]); Abs(got-tc[1]) > 1e-9 {
			t.Errorf("NormalizeHeading(%f) = %f, expected %f", tc[0], got, tc[1])
		}
	}
	for _, tc := range [][2]float64{{0, 0}, {Pi, Pi}, {-Pi, Pi}, {3 * Pi / 2, -Pi / 2}, {-5 * Pi / 2, -Pi / 2}} {
		if got := NormalizeRadians(tc[0]); Abs(got-tc[1]) > 1e-9 {
			t.Errorf("NormalizeRadians(%f) = %f, expected %f", tc[0], got, tc[1])
		}
	}
}
