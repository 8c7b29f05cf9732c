// util/compress.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"golang.org/x/exp/constraints"
)

// DeltaEncode replaces each value with its difference from the previous
// one; slowly-varying series (sample times, quantized altitudes) then
// compress much better.
func DeltaEncode[T constraints.Integer](d []T) []T {
	if len(d) == 0 {
		return nil
	}
	r := make([]T, len(d))

	var prev T
	for i, v := range d {
		r[i] = v - prev
		prev = v
	}
	return r
}

func DeltaDecode[T constraints.Integer](d []T) []T {
	if len(d) == 0 {
		return nil
	}
	r := make([]T, len(d))

	var prev T
	for i, delta := range d {
		r[i] = prev + delta
		prev = r[i]
	}
	return r
}
