// rand/rand.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package rand

import (
	"github.com/MichaelTJones/pcg"
)

///////////////////////////////////////////////////////////////////////////
// Random numbers.

// Rand is a small deterministic PCG-based generator. Each flight carries
// its own so that results don't depend on the order in which flights are
// processed.
type Rand struct {
	r *pcg.PCG32
}

func Make() *Rand {
	return &Rand{r: pcg.NewPCG32()}
}

// MakeSeeded returns a generator seeded with s; flights in a run use the
// run seed combined with their index.
func MakeSeeded(s int64) *Rand {
	r := Make()
	r.Seed(s)
	return r
}

func (r *Rand) Seed(s int64) {
	r.r.Seed(uint64(s), 0xda3e39cb94b95bdb)
}

func (r *Rand) Uint32() uint32 {
	return r.r.Random()
}

// Float64 returns a value in [0,1].
func (r *Rand) Float64() float64 {
	return float64(r.Uint32()) / (1<<32 - 1)
}

// Uniform returns a value uniformly distributed in [lo,hi].
func (r *Rand) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

// Jitter returns v perturbed by a uniformly-distributed fraction in
// [-frac,frac] of its value.
func (r *Rand) Jitter(v, frac float64) float64 {
	return v * (1 + r.Uniform(-frac, frac))
}
