// math/sectors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// MaxSectorsPerCell is the capacity of each cell's candidate list in a
// SectorGrid.
const MaxSectorsPerCell = 500

var (
	ErrInvalidSectorGrid  = errors.New("invalid sector grid specification")
	ErrSectorCellOverflow = errors.New("too many sectors overlap a grid cell")
)

// Sector is a named airspace volume: a lat-long polygon with an altitude
// band.
type Sector struct {
	Name     string     `json:"name" yaml:"name"`
	Vertices []Point2LL `json:"vertices" yaml:"vertices"`
	Floor    float64    `json:"floor" yaml:"floor"`     // feet
	Ceiling  float64    `json:"ceiling" yaml:"ceiling"` // feet

	extent Extent2D
}

// Extent returns the sector's lat-long bounding box.
func (s *Sector) Extent() Extent2D {
	if s.extent == (Extent2D{}) {
		s.extent = Extent2DFromPoints(s.Vertices)
	}
	return s.extent
}

// Contains reports whether the given position is inside the sector; the
// altitude band and bounding box are checked before the polygon itself.
func (s *Sector) Contains(p Point2LL, altFt float64) bool {
	if altFt < s.Floor || altFt > s.Ceiling {
		return false
	}
	if !s.Extent().Inside(p) {
		return false
	}
	return PolygonContains(s.Vertices, p)
}

// SectorGridSpec describes the uniform lat/long/altitude lattice used to
// accelerate sector lookups.
type SectorGridSpec struct {
	LatMin  float64 `json:"lat_min" yaml:"lat_min"`
	LatMax  float64 `json:"lat_max" yaml:"lat_max"`
	LatStep float64 `json:"lat_step" yaml:"lat_step"`
	LonMin  float64 `json:"lon_min" yaml:"lon_min"`
	LonMax  float64 `json:"lon_max" yaml:"lon_max"`
	LonStep float64 `json:"lon_step" yaml:"lon_step"`
	AltMin  float64 `json:"alt_min" yaml:"alt_min"`
	AltMax  float64 `json:"alt_max" yaml:"alt_max"`
	AltStep float64 `json:"alt_step" yaml:"alt_step"`
}

// DefaultSectorGridSpec covers the whole globe with 5 degree by 1000 foot
// cells up to 60,000'.
func DefaultSectorGridSpec() SectorGridSpec {
	return SectorGridSpec{
		LatMin: -90, LatMax: 90, LatStep: 5,
		LonMin: -180, LonMax: 180, LonStep: 5,
		AltMin: 0, AltMax: 60000, AltStep: 1000,
	}
}

func (s SectorGridSpec) dims() (nlat, nlon, nalt int) {
	return int(Ceil((s.LatMax - s.LatMin) / s.LatStep)),
		int(Ceil((s.LonMax - s.LonMin) / s.LonStep)),
		int(Ceil((s.AltMax - s.AltMin) / s.AltStep))
}

func (s SectorGridSpec) validate() error {
	if s.LatStep <= 0 || s.LonStep <= 0 || s.AltStep <= 0 ||
		s.LatMax <= s.LatMin || s.LonMax <= s.LonMin || s.AltMax <= s.AltMin {
		return fmt.Errorf("%+v: %w", s, ErrInvalidSectorGrid)
	}
	return nil
}

// SectorGrid holds a set of sectors along with a precomputed list of
// candidate sectors for each cell of a uniform grid. It's read-only once
// built and so may be shared freely.
type SectorGrid struct {
	Sectors []Sector
	spec    SectorGridSpec
	nlat    int
	nlon    int
	nalt    int
	cells   [][]int32
}

// BuildSectorGrid bins the given sectors into the cells of the grid by
// testing each sector's bounding box and altitude band against each
// cell. This is a load-time cost; rows of latitude are processed in
// parallel.
func BuildSectorGrid(sectors []Sector, spec SectorGridSpec) (*SectorGrid, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	g := &SectorGrid{Sectors: sectors, spec: spec}
	g.nlat, g.nlon, g.nalt = spec.dims()
	g.cells = make([][]int32, g.nlat*g.nlon*g.nalt)

	for i := range g.Sectors {
		g.Sectors[i].extent = Extent2DFromPoints(g.Sectors[i].Vertices)
	}

	var eg errgroup.Group
	eg.SetLimit(runtime.NumCPU())
	for ilat := range g.nlat {
		eg.Go(func() error {
			lat0 := spec.LatMin + float64(ilat)*spec.LatStep
			for ilon := range g.nlon {
				lon0 := spec.LonMin + float64(ilon)*spec.LonStep
				cell := Extent2D{
					P0: Point2LL{lon0, lat0},
					P1: Point2LL{lon0 + spec.LonStep, lat0 + spec.LatStep},
				}
				for ialt := range g.nalt {
					alt0 := spec.AltMin + float64(ialt)*spec.AltStep
					alt1 := alt0 + spec.AltStep

					idx := g.index(ilat, ilon, ialt)
					for si := range g.Sectors {
						s := &g.Sectors[si]
						if s.Floor > alt1 || s.Ceiling < alt0 || !Overlaps(s.extent, cell) {
							continue
						}
						if len(g.cells[idx]) == MaxSectorsPerCell {
							return fmt.Errorf("cell (%.1f,%.1f,%.0f): %w", lat0, lon0, alt0, ErrSectorCellOverflow)
						}
						g.cells[idx] = append(g.cells[idx], int32(si))
					}
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *SectorGrid) index(ilat, ilon, ialt int) int {
	return (ilat*g.nlon+ilon)*g.nalt + ialt
}

func cellCoord(v, lo, step float64, n int) (int, bool) {
	i := int(Floor((v - lo) / step))
	if i == n && v == lo+float64(n)*step {
		// Include the upper boundary in the last cell.
		i = n - 1
	}
	return i, i >= 0 && i < n
}

// Candidates returns the indices of the sectors that may contain the
// given position.
func (g *SectorGrid) Candidates(p Point2LL, altFt float64) []int32 {
	ilat, ok0 := cellCoord(p[1], g.spec.LatMin, g.spec.LatStep, g.nlat)
	ilon, ok1 := cellCoord(p[0], g.spec.LonMin, g.spec.LonStep, g.nlon)
	ialt, ok2 := cellCoord(altFt, g.spec.AltMin, g.spec.AltStep, g.nalt)
	if !ok0 || !ok1 || !ok2 {
		return nil
	}
	return g.cells[g.index(ilat, ilon, ialt)]
}

// Lookup returns the index of the sector containing the given position or
// -1 if there is none. The hinted sector (typically the one the aircraft
// was in at the previous sample) is checked first.
func (g *SectorGrid) Lookup(p Point2LL, altFt float64, hint int) int {
	if g == nil {
		return -1
	}
	if hint >= 0 && hint < len(g.Sectors) && g.Sectors[hint].Contains(p, altFt) {
		return hint
	}
	for _, si := range g.Candidates(p, altFt) {
		if int(si) != hint && g.Sectors[si].Contains(p, altFt) {
			return int(si)
		}
	}
	return -1
}
