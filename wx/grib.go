// wx/grib.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wx

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/mmp/squall"
	"github.com/mmp/trajgen/log"
	"github.com/mmp/trajgen/math"
	"github.com/mmp/trajgen/util"
)

// WindSample is a single U or V wind value at a point on a pressure
// level, as found in a GRIB2 record.
type WindSample struct {
	P        math.Point2LL `json:"p" yaml:"p"`
	Pressure float64       `json:"pressure" yaml:"pressure"` // mb
	East     bool          `json:"east" yaml:"east"`         // U component if true, V otherwise
	Value    float64       `json:"value" yaml:"value"`       // m/s
}

// LoadGRIB2 reads RAP/HRRR GRIB2 data and returns a wind slice for time
// t over the given grid. Only UGRD and VGRD records on isobaric levels
// are used; the levels present determine the grid's altitudes, which
// are converted from pressure using the standard atmosphere. If g is
// non-nil, the slice is added to it and its altitudes must match.
func LoadGRIB2(r io.ReadSeeker, spec GridSpec, t time.Time, g *GridWind, lg *log.Logger) (*GridWind, error) {
	records, err := squall.Read(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GRIB2: %w", err)
	}
	lg.Infof("GRIB2: parsed %d records", len(records))

	records = util.FilterSlice(records, func(rec *squall.GRIB2) bool {
		sn := rec.Parameter.ShortName()
		if sn != "UGRD" && sn != "VGRD" {
			return false
		}
		_, ok := ParsePressureLevel(rec.Level)
		return ok
	})
	if len(records) == 0 {
		return nil, ErrNoWindRecords
	}

	ext := spec.Extent()
	var samples []WindSample
	for _, rec := range records {
		mb, _ := ParsePressureLevel(rec.Level)
		east := rec.Parameter.ShortName() == "UGRD"
		for i := range rec.NumPoints {
			value := float64(rec.Data[i])
			if value > 9e20 {
				// missing
				continue
			}
			lon := float64(rec.Longitudes[i])
			if lon > 180 {
				lon -= 360
			}
			p := math.Point2LL{lon, float64(rec.Latitudes[i])}
			if !ext.Inside(p) {
				continue
			}
			samples = append(samples, WindSample{P: p, Pressure: mb, East: east, Value: value})
		}
	}
	lg.Infof("GRIB2: %d wind records, %d samples inside grid", len(records), len(samples))

	return GridFromSamples(spec, t, samples, g)
}

// GridFromSamples splats scattered wind samples to the nearest grid
// cell, averaging the samples that land in each one. Cells that receive
// no samples are calm.
func GridFromSamples(spec GridSpec, t time.Time, samples []WindSample, g *GridWind) (*GridWind, error) {
	var pressures []float64
	for _, s := range samples {
		if !slices.Contains(pressures, s.Pressure) {
			pressures = append(pressures, s.Pressure)
		}
	}
	if len(pressures) == 0 {
		return nil, ErrNoWindRecords
	}
	// Higher pressure is lower altitude.
	slices.Sort(pressures)
	slices.Reverse(pressures)
	altitudes := util.MapSlice(pressures, StandardAltitude)

	if g == nil {
		var err error
		if g, err = NewGridWind(spec, altitudes); err != nil {
			return nil, err
		}
	} else if !slices.Equal(g.Altitudes, altitudes) {
		return nil, fmt.Errorf("GRIB2 levels %v don't match grid levels %v: %w", altitudes, g.Altitudes,
			ErrInvalidGrid)
	}

	slice := g.MakeSlice(t)
	usum := make([]float64, len(slice.U))
	vsum := make([]float64, len(slice.V))
	ucount := make([]int, len(slice.U))
	vcount := make([]int, len(slice.V))

	_, nlat, nlon := g.Dims()
	for _, s := range samples {
		level := slices.Index(pressures, s.Pressure)
		ilat := int(math.Round((s.P[1] - spec.LatMin) / spec.Step))
		ilon := int(math.Round((s.P[0] - spec.LonMin) / spec.Step))
		if ilat < 0 || ilat >= nlat || ilon < 0 || ilon >= nlon {
			continue
		}
		idx := g.Index(level, ilat, ilon)
		kt := s.Value * msToKnots
		if s.East {
			usum[idx] += kt
			ucount[idx]++
		} else {
			vsum[idx] += kt
			vcount[idx]++
		}
	}

	for i := range slice.U {
		if ucount[i] > 0 {
			slice.U[i] = float32(usum[i] / float64(ucount[i]))
		}
		if vcount[i] > 0 {
			slice.V[i] = float32(vsum[i] / float64(vcount[i]))
		}
	}

	if err := g.AddSlice(slice); err != nil {
		return nil, err
	}
	return g, nil
}
