// math/sectors_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"errors"
	"testing"
)

func square(lon0, lat0, size float64) []Point2LL {
	return []Point2LL{{lon0, lat0}, {lon0 + size, lat0}, {lon0 + size, lat0 + size}, {lon0, lat0 + size}}
}

func TestPolygonContains(t *testing.T) {
	sq := square(0, 0, 1)
	closed := append(append([]Point2LL(nil), sq...), sq[0])

	type test struct {
		p    Point2LL
		want bool
	}
	for _, tc := range []test{
		{Point2LL{0.5, 0.5}, true},
		{Point2LL{1.5, 0.5}, false},
		{Point2LL{-0.1, 0.5}, false},
		{Point2LL{0.5, 1.01}, false},
		{Point2LL{0.99, 0.01}, true},
	} {
		if got := PolygonContains(sq, tc.p); got != tc.want {
			t.Errorf("open polygon contains %v: got %v, want %v", tc.p, got, tc.want)
		}
		if got := PolygonContains(closed, tc.p); got != tc.want {
			t.Errorf("closed polygon contains %v: got %v, want %v", tc.p, got, tc.want)
		}
	}

	// Concave "L" shape
	l := []Point2LL{{0, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 2}, {0, 2}}
	if !PolygonContains(l, Point2LL{0.5, 1.5}) {
		t.Errorf("expected point in upper arm of L")
	}
	if PolygonContains(l, Point2LL{1.5, 1.5}) {
		t.Errorf("expected point in notch of L to be outside")
	}
	if PolygonContains(l[:2], Point2LL{0.5, 0}) {
		t.Errorf("degenerate polygon should contain nothing")
	}
}

func TestSectorGridLookup(t *testing.T) {
	sectors := []Sector{
		{Name: "LOW", Vertices: square(-75, 40, 2), Floor: 0, Ceiling: 17999},
		{Name: "HIGH", Vertices: square(-75, 40, 2), Floor: 18000, Ceiling: 45000},
		{Name: "EAST", Vertices: square(-73, 40, 3), Floor: 0, Ceiling: 45000},
		{Name: "CROSS", Vertices: square(-81, 39, 8), Floor: 3000, Ceiling: 9000},
	}
	g, err := BuildSectorGrid(sectors, DefaultSectorGridSpec())
	if err != nil {
		t.Fatalf("BuildSectorGrid: %v", err)
	}

	type test struct {
		p    Point2LL
		alt  float64
		hint int
		want string
	}
	for _, tc := range []test{
		{Point2LL{-74, 41}, 10000, -1, "LOW"},
		{Point2LL{-74, 41}, 30000, -1, "HIGH"},
		{Point2LL{-72, 41}, 30000, -1, "EAST"},
		{Point2LL{-72, 41}, 30000, 1, "EAST"}, // stale hint
		{Point2LL{-78, 42}, 5000, -1, "CROSS"},
		{Point2LL{-74, 41}, 5000, 3, "CROSS"}, // hint wins where sectors overlap
		{Point2LL{-60, 41}, 5000, -1, ""},
		{Point2LL{-74, 41}, 50000, -1, ""},
	} {
		idx := g.Lookup(tc.p, tc.alt, tc.hint)
		got := ""
		if idx >= 0 {
			got = g.Sectors[idx].Name
		}
		if got != tc.want {
			t.Errorf("Lookup(%v, %.0f, %d) = %q, want %q", tc.p, tc.alt, tc.hint, got, tc.want)
		}
	}

	var nilGrid *SectorGrid
	if nilGrid.Lookup(Point2LL{0, 0}, 0, 0) != -1 {
		t.Errorf("nil grid should find nothing")
	}
}

func TestSectorGridErrors(t *testing.T) {
	bad := DefaultSectorGridSpec()
	bad.LatStep = 0
	if _, err := BuildSectorGrid(nil, bad); !errors.Is(err, ErrInvalidSectorGrid) {
		t.Errorf("expected ErrInvalidSectorGrid, got %v", err)
	}

	var many []Sector
	for range MaxSectorsPerCell + 1 {
		many = append(many, Sector{Vertices: square(1, 1, 1), Floor: 0, Ceiling: 1000})
	}
	if _, err := BuildSectorGrid(many, DefaultSectorGridSpec()); !errors.Is(err, ErrSectorCellOverflow) {
		t.Errorf("expected ErrSectorCellOverflow, got %v", err)
	}
}

func TestIntersectTracks(t *testing.T) {
	// One aircraft heading east along the equator, another heading north
	// crossing it at 1 degree east.
	p, ok := IntersectTracks(LL(0, 0), Pi/2, LL(-1, 1), 0)
	if !ok {
		t.Fatalf("expected an intersection")
	}
	if Abs(p.Latitude()) > 1e-6 || Abs(p.Longitude()-1) > 1e-6 {
		t.Errorf("expected intersection at (0,1), got %s", p)
	}

	// Diverging: the crossing point is behind the second aircraft.
	if _, ok := IntersectTracks(LL(0, 0), Pi/2, LL(1, 1), 0); ok {
		t.Errorf("expected no intersection ahead of both aircraft")
	}

	// Same great circle.
	if _, ok := IntersectTracks(LL(0, 0), Pi/2, LL(0, 1), Pi/2); ok {
		t.Errorf("expected no intersection for coincident tracks")
	}
}

func TestToECEF(t *testing.T) {
	v := ToECEF(LL(0, 0), 0)
	if Abs(v[0]-SemiMajorEarthFt) > 1e-6 || Abs(v[1]) > 1e-6 || Abs(v[2]) > 1e-6 {
		t.Errorf("equator/prime meridian: got %v", v)
	}
	up := ToECEF(LL(0, 0), 1000).Sub(v)
	if Abs(up.Length()-1000) > 1e-6 {
		t.Errorf("1000' altitude offset gave length %f", up.Length())
	}

	// Level flight due north at the equator has velocity along +z.
	vel := VelocityECEF(LL(0, 0), 0, 0, 100)
	if Abs(vel[2]-100) > 1e-9 || Abs(vel[0]) > 1e-9 || Abs(vel[1]) > 1e-9 {
		t.Errorf("northbound velocity: got %v", vel)
	}
	// Climbing at the equator/prime meridian adds +x.
	vel = VelocityECEF(LL(0, 0), 0, Pi/2, 100)
	if Abs(vel[0]-100) > 1e-9 {
		t.Errorf("vertical velocity: got %v", vel)
	}
}
