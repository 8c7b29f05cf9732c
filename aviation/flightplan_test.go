// aviation/flightplan_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"errors"
	"testing"

	"github.com/mmp/trajgen/math"
)

func makeTestFlightPlan(n int) *FlightPlan {
	fp := NewFlightPlan("KAAA", "KBBB", equatorRoute(n)...)
	fp.CruiseAltitude = 33000
	return fp
}

func countNamed(fp *FlightPlan, name string) int {
	n := 0
	for _, node := range fp.Route.All() {
		if node.Name == name {
			n++
		}
	}
	return n
}

func TestInsertTopOfClimb(t *testing.T) {
	fp := makeTestFlightPlan(5)
	climb := 100 * math.NauticalMilesToFeet

	toc := fp.InsertTopOfClimb(climb)
	if toc == NoNode || fp.TOC != toc {
		t.Fatalf("no top of climb inserted")
	}
	// One degree of longitude is ~60nm, so it falls between WP1 and WP2.
	if idx := fp.Route.IndexOf(toc); idx != 2 {
		t.Errorf("top of climb at index %d, expected 2", idx)
	}
	if d := fp.Route.DistanceBetween(fp.Route.Head(), toc); math.Abs(d-climb) > 1 {
		t.Errorf("top of climb %f ft from origin, expected %f", d, climb)
	}
	if n := fp.Route.Node(toc); n.AltitudeEstimate != 33000 || n.Name != TopOfClimbName {
		t.Errorf("unexpected top of climb node %+v", *n)
	}

	// Reinserting replaces the existing one.
	toc = fp.InsertTopOfClimb(climb / 2)
	if c := countNamed(fp, TopOfClimbName); c != 1 {
		t.Errorf("%d top of climb points after reinsertion", c)
	}
	if idx := fp.Route.IndexOf(toc); idx != 1 {
		t.Errorf("top of climb at index %d, expected 1", idx)
	}
	if err := fp.Route.Validate(); err != nil {
		t.Error(err)
	}

	short := makeTestFlightPlan(2)
	toc = short.InsertTopOfClimb(10 * math.NauticalMilesToFeet)
	if idx := short.Route.IndexOf(toc); idx != 1 || short.Route.Len() != 3 {
		t.Errorf("two-point route: top of climb at %d of %d", idx, short.Route.Len())
	}

	tooShort := makeTestFlightPlan(3)
	if toc := tooShort.InsertTopOfClimb(1000 * math.NauticalMilesToFeet); toc != NoNode {
		t.Errorf("top of climb inserted beyond the end of the route")
	}

	for _, proc := range []string{ProcEnroute, ProcSTAR, ProcApproach} {
		fp := makeTestFlightPlan(5)
		fp.Route.Node(fp.Route.Head()).ProcType = proc
		if toc := fp.InsertTopOfClimb(climb); toc != NoNode {
			t.Errorf("%s: top of climb inserted", proc)
		}
	}
}

func TestInsertTopOfDescent(t *testing.T) {
	fp := makeTestFlightPlan(5)
	descent := 130 * math.NauticalMilesToFeet

	tod := fp.InsertTopOfDescent(descent)
	if tod == NoNode {
		t.Fatal("no top of descent inserted")
	}
	if idx := fp.Route.IndexOf(tod); idx != 2 {
		t.Errorf("top of descent at index %d, expected 2", idx)
	}
	if d := fp.Route.DistanceBetween(tod, fp.Route.Tail()); math.Abs(d-descent) > 1 {
		t.Errorf("top of descent %f ft from destination, expected %f", d, descent)
	}

	fp.InsertTopOfDescent(descent / 2)
	if c := countNamed(fp, TopOfDescentName); c != 1 {
		t.Errorf("%d top of descent points after reinsertion", c)
	}

	// Measured from the waypoint at index 3.
	fp = makeTestFlightPlan(6)
	tod = fp.InsertTopOfDescentFrom(descent/2, 3)
	if idx := fp.Route.IndexOf(tod); idx != 2 {
		t.Errorf("top of descent at index %d, expected 2", idx)
	}
	if d := fp.Route.DistanceBetween(tod, fp.Route.At(4)); math.Abs(d-descent/2) > 1 {
		t.Errorf("top of descent %f ft from WP3, expected %f", d, descent/2)
	}

	fp = makeTestFlightPlan(5)
	fp.Route.Node(fp.Route.Head()).ProcType = ProcSTAR
	if tod := fp.InsertTopOfDescent(descent); tod != NoNode {
		t.Errorf("STAR: top of descent inserted")
	}
	if tod := fp.InsertTopOfDescentFrom(descent, 4); tod == NoNode {
		t.Errorf("STAR: indexed top of descent not inserted")
	}
	fp.Route.Node(fp.Route.Head()).ProcType = ProcApproach
	if tod := fp.InsertTopOfDescentFrom(descent, 4); tod != NoNode {
		t.Errorf("APPROACH: indexed top of descent inserted")
	}
}

func TestGeoStyleTopOfClimb(t *testing.T) {
	climb := 70 * math.NauticalMilesToFeet

	// The unindexed variant only recognizes the full enumerator name
	// while the indexed one adds the prefix itself.
	for _, tc := range []struct {
		phase      string
		plain      bool
		fromIndex0 bool
	}{
		{"", true, true},
		{"CRUISE", false, false},
		{"CLIMBOUT", true, true},
		{"APPROACH", true, false},
		{"FLIGHT_PHASE_APPROACH", false, true},
		{"FLIGHT_PHASE_CLIMBOUT", true, true},
	} {
		fp := makeTestFlightPlan(5)
		fp.GeoStyle = true
		fp.Route.Node(fp.Route.Head()).Phase = tc.phase
		if got := fp.InsertTopOfClimbGeoStyle(climb, 31000) != NoNode; got != tc.plain {
			t.Errorf("%q: InsertTopOfClimbGeoStyle inserted %v, expected %v", tc.phase, got, tc.plain)
		}

		fp = makeTestFlightPlan(5)
		fp.Route.Node(fp.Route.Head()).Phase = tc.phase
		if got := fp.InsertTopOfClimbGeoStyleFrom(climb, 31000, 0) != NoNode; got != tc.fromIndex0 {
			t.Errorf("%q: InsertTopOfClimbGeoStyleFrom inserted %v, expected %v", tc.phase, got, tc.fromIndex0)
		}
	}

	fp := makeTestFlightPlan(6)
	toc := fp.InsertTopOfClimbGeoStyleFrom(climb, 31000, 2)
	if idx := fp.Route.IndexOf(toc); idx != 4 {
		t.Errorf("indexed geo top of climb at %d, expected 4", idx)
	}
	if n := fp.Route.Node(toc); n.AltitudeEstimate != 31000 || n.Phase != "TOP_OF_CLIMB" {
		t.Errorf("unexpected node %+v", *n)
	}
}

func TestGeoStyleTopOfDescent(t *testing.T) {
	descent := 70 * math.NauticalMilesToFeet

	fp := makeTestFlightPlan(5)
	tod := fp.InsertTopOfDescentGeoStyle(descent, 29000)
	if idx := fp.Route.IndexOf(tod); idx != 3 {
		t.Errorf("geo top of descent at %d, expected 3", idx)
	}
	if n := fp.Route.Node(tod); n.AltitudeEstimate != 29000 {
		t.Errorf("geo top of descent altitude %f", n.AltitudeEstimate)
	}

	fp = makeTestFlightPlan(5)
	fp.Route.Node(fp.Route.Head()).Phase = "FLIGHT_PHASE_INITIAL_DESCENT"
	if tod := fp.InsertTopOfDescentGeoStyle(descent, 29000); tod != NoNode {
		t.Errorf("descending plan got a top of descent")
	}

	fp = makeTestFlightPlan(5)
	fp.Route.Node(fp.Route.Head()).Phase = "APPROACH"
	if tod := fp.InsertTopOfDescentGeoStyleFrom(descent, 29000, 4); tod != NoNode {
		t.Errorf("approach plan got an indexed top of descent")
	}
	fp.Route.Node(fp.Route.Head()).Phase = "CLIMBOUT"
	if tod := fp.InsertTopOfDescentGeoStyleFrom(descent, 29000, 3); fp.Route.IndexOf(tod) != 2 {
		t.Errorf("indexed top of descent at %d, expected 2", fp.Route.IndexOf(tod))
	}
}

func TestResolveAltitudes(t *testing.T) {
	fp := makeTestFlightPlan(7)
	fp.OriginElevation = 100
	fp.DestinationElevation = 500
	fp.Route.Node(fp.Route.At(5)).AltDesc = "@"
	fp.Route.Node(fp.Route.At(5)).Alt1 = 9000

	// TOC between WP0 and WP1, TOD between WP3 and WP4.
	fp.InsertTopOfClimb(30 * math.NauticalMilesToFeet)
	fp.InsertTopOfDescentFrom(30*math.NauticalMilesToFeet, fp.Route.IndexOf(fp.Route.FindByNamePrefix("WP4")))
	fp.ResolveAltitudes()

	// WP0 TOC WP1 WP2 WP3 TOD WP4 WP5 WP6
	r := fp.Route
	d1 := r.DistanceBetween(fp.TOD, r.At(6))
	d2 := r.DistanceBetween(fp.TOD, r.At(7))
	want := []float64{100, 33000, 33000, 33000, 33000, 33000, math.Lerp(d1/d2, 33000, 9000), 9000, 500}
	if r.Len() != len(want) {
		t.Fatalf("route has %d waypoints, expected %d", r.Len(), len(want))
	}
	for i, n := range r.All() {
		if math.Abs(n.AltitudeEstimate-want[i]) > 0.01 {
			t.Errorf("%d %s: got altitude %f, expected %f", i, n.Name, n.AltitudeEstimate, want[i])
		}
	}
}

func TestPlanProfile(t *testing.T) {
	db, err := NewPerformanceDB([]PerformanceTable{makeTestTable()})
	if err != nil {
		t.Fatal(err)
	}

	fp := makeTestFlightPlan(8) // ~420nm
	fp.CruiseAltitude = 37000
	if err := fp.PlanProfile(db, 0); err != nil {
		t.Fatal(err)
	}
	if fp.TOC == NoNode || fp.TOD == NoNode {
		t.Fatalf("missing TOC %d or TOD %d", fp.TOC, fp.TOD)
	}
	if fp.Route.IndexOf(fp.TOC) >= fp.Route.IndexOf(fp.TOD) {
		t.Errorf("top of climb after top of descent")
	}

	tbl, _ := db.Table(0)
	if d := fp.Route.DistanceBetween(fp.Route.Head(), fp.TOC); math.Abs(d-tbl.ClimbDistance(0, 37000)) > 1 {
		t.Errorf("TOC at %f ft, expected %f", d, tbl.ClimbDistance(0, 37000))
	}
	if err := fp.Route.Validate(); err != nil {
		t.Error(err)
	}

	short := NewFlightPlan("KAAA", "KBBB", WaypointNode{Name: "RW"}, WaypointNode{Name: "END", Location: math.Point2LL{0.2, 0}})
	short.CruiseAltitude = 33000
	if err := short.PlanProfile(db, 0); !errors.Is(err, ErrCruiseAltitudeTooLow) {
		t.Errorf("12nm route: got %v, expected ErrCruiseAltitudeTooLow", err)
	}
	if err := NewFlightPlan("KAAA", "KBBB", WaypointNode{Name: "RW"}).PlanProfile(db, 0); !errors.Is(err, ErrMalformedSequence) {
		t.Errorf("single waypoint route: got %v", err)
	}
	if err := makeTestFlightPlan(8).PlanProfile(db, 3); err == nil {
		t.Errorf("expected error for unknown type index")
	}
}
