// wx/grid.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wx

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/mmp/trajgen/math"
)

// GridSpec describes a regular latitude-longitude lattice.
type GridSpec struct {
	LatMin float64 `json:"lat_min" yaml:"lat_min"`
	LatMax float64 `json:"lat_max" yaml:"lat_max"`
	LonMin float64 `json:"lon_min" yaml:"lon_min"`
	LonMax float64 `json:"lon_max" yaml:"lon_max"`
	Step   float64 `json:"step" yaml:"step"` // degrees
}

func (s GridSpec) Validate() error {
	if s.Step <= 0 || s.LatMax <= s.LatMin || s.LonMax <= s.LonMin {
		return fmt.Errorf("%+v: %w", s, ErrInvalidGrid)
	}
	return nil
}

func (s GridSpec) dims() (nlat, nlon int) {
	return 1 + int(math.Round((s.LatMax-s.LatMin)/s.Step)), 1 + int(math.Round((s.LonMax-s.LonMin)/s.Step))
}

// Extent returns the lat-long bounds covered by the grid.
func (s GridSpec) Extent() math.Extent2D {
	return math.Extent2D{P0: math.Point2LL{s.LonMin, s.LatMin}, P1: math.Point2LL{s.LonMax, s.LatMax}}
}

// WindSlice holds the winds over a GridSpec at a single time. U and V
// are indexed [level][lat][lon] and are in knots.
type WindSlice struct {
	Time time.Time `json:"time" yaml:"time"`
	U    []float32 `json:"u" yaml:"u"`
	V    []float32 `json:"v" yaml:"v"`
}

// GridWind is a WindField defined by samples on a regular lat-long grid
// at a set of altitudes and times. Winds are interpolated trilinearly in
// space and linearly in time; outside the grid's lat-long bounds the
// wind is zero. Altitudes and times beyond the sampled ranges clamp.
type GridWind struct {
	Spec      GridSpec    `json:"spec" yaml:"spec"`
	Altitudes []float64   `json:"altitudes" yaml:"altitudes"` // ascending, ft
	Slices    []WindSlice `json:"slices" yaml:"slices"`       // ascending time

	nlat, nlon int
}

// NewGridWind returns an empty grid wind; time slices are added with
// AddSlice.
func NewGridWind(spec GridSpec, altitudes []float64) (*GridWind, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if len(altitudes) == 0 || !slices.IsSorted(altitudes) {
		return nil, fmt.Errorf("altitudes %v: %w", altitudes, ErrInvalidGrid)
	}
	g := &GridWind{Spec: spec, Altitudes: altitudes}
	g.nlat, g.nlon = spec.dims()
	return g, nil
}

// Init recomputes derived values after a GridWind has been unmarshaled
// and checks that its slices have the right size.
func (g *GridWind) Init() error {
	if err := g.Spec.Validate(); err != nil {
		return err
	}
	g.nlat, g.nlon = g.Spec.dims()
	for _, s := range g.Slices {
		if err := g.checkSlice(s); err != nil {
			return err
		}
	}
	return nil
}

func (g *GridWind) size() int { return len(g.Altitudes) * g.nlat * g.nlon }

func (g *GridWind) checkSlice(s WindSlice) error {
	if len(s.U) != g.size() || len(s.V) != g.size() {
		return fmt.Errorf("slice at %s has %d/%d values, expected %d: %w", s.Time, len(s.U), len(s.V),
			g.size(), ErrInvalidGrid)
	}
	return nil
}

// AddSlice adds the winds for a time, keeping the slices sorted by time.
func (g *GridWind) AddSlice(s WindSlice) error {
	if err := g.checkSlice(s); err != nil {
		return err
	}
	i := sort.Search(len(g.Slices), func(i int) bool { return !g.Slices[i].Time.Before(s.Time) })
	g.Slices = slices.Insert(g.Slices, i, s)
	return nil
}

// MakeSlice returns a zero-wind slice of the right size for the grid.
func (g *GridWind) MakeSlice(t time.Time) WindSlice {
	return WindSlice{Time: t, U: make([]float32, g.size()), V: make([]float32, g.size())}
}

func (g *GridWind) Index(level, ilat, ilon int) int {
	return (level*g.nlat+ilat)*g.nlon + ilon
}

// Dims returns the number of levels, latitudes and longitudes.
func (g *GridWind) Dims() (nalt, nlat, nlon int) {
	return len(g.Altitudes), g.nlat, g.nlon
}

func (g *GridWind) Wind(t time.Time, p math.Point2LL, altFt float64) (float64, float64) {
	if len(g.Slices) == 0 || !g.Spec.Extent().Inside(p) {
		return 0, 0
	}

	i := sort.Search(len(g.Slices), func(i int) bool { return g.Slices[i].Time.After(t) })
	switch {
	case i == 0:
		return g.sample(&g.Slices[0], p, altFt)
	case i == len(g.Slices):
		return g.sample(&g.Slices[i-1], p, altFt)
	default:
		s0, s1 := &g.Slices[i-1], &g.Slices[i]
		x := float64(t.Sub(s0.Time)) / float64(s1.Time.Sub(s0.Time))
		u0, v0 := g.sample(s0, p, altFt)
		u1, v1 := g.sample(s1, p, altFt)
		return math.Lerp(x, u0, u1), math.Lerp(x, v0, v1)
	}
}

func (g *GridWind) sample(s *WindSlice, p math.Point2LL, altFt float64) (float64, float64) {
	// Continuous grid coordinates.
	fy := math.Clamp((p[1]-g.Spec.LatMin)/g.Spec.Step, 0, float64(g.nlat-1))
	fx := math.Clamp((p[0]-g.Spec.LonMin)/g.Spec.Step, 0, float64(g.nlon-1))
	y0, x0 := int(fy), int(fx)
	y1, x1 := min(y0+1, g.nlat-1), min(x0+1, g.nlon-1)
	ty, tx := fy-float64(y0), fx-float64(x0)

	z0, z1, tz := 0, 0, 0.
	n := len(g.Altitudes)
	switch {
	case altFt <= g.Altitudes[0]:
	case altFt >= g.Altitudes[n-1]:
		z0, z1 = n-1, n-1
	default:
		z1 = sort.SearchFloat64s(g.Altitudes, altFt)
		z0 = z1 - 1
		tz = (altFt - g.Altitudes[z0]) / (g.Altitudes[z1] - g.Altitudes[z0])
	}

	bilerp := func(f []float32, z int) float64 {
		v00 := float64(f[g.Index(z, y0, x0)])
		v01 := float64(f[g.Index(z, y0, x1)])
		v10 := float64(f[g.Index(z, y1, x0)])
		v11 := float64(f[g.Index(z, y1, x1)])
		return math.Lerp(ty, math.Lerp(tx, v00, v01), math.Lerp(tx, v10, v11))
	}
	u := math.Lerp(tz, bilerp(s.U, z0), bilerp(s.U, z1))
	v := math.Lerp(tz, bilerp(s.V, z0), bilerp(s.V, z1))
	return u, v
}
