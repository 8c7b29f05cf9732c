// aviation/perf_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"errors"
	"testing"

	"github.com/mmp/trajgen/math"
)

func makeTestTable() PerformanceTable {
	row := func(alt, cruise, climb, descent, roc, rod float64) PerformanceRow {
		return PerformanceRow{
			Altitude:    alt,
			CruiseTAS:   cruise,
			ClimbTAS:    climb,
			DescentTAS:  descent,
			ClimbRate:   [NumColumns]float64{0.8 * roc, roc, 1.2 * roc},
			DescentRate: rod,
			CruiseFuel:  [NumColumns]float64{30, 40, 50},
			ClimbFuel:   60,
			DescentFuel: 15,
		}
	}
	return PerformanceTable{
		Name:     "B738",
		Synonyms: []string{"B737-800"},
		Rows: []PerformanceRow{
			row(0, 250, 160, 250, 3000, 1500),
			row(10000, 300, 250, 280, 2500, 2000),
			row(20000, 400, 290, 300, 2000, 2500),
			row(30000, 450, 300, 300, 1500, 2500),
			row(40000, 460, 300, 300, 1000, 2500),
		},
		VStall:        StallSpeeds{Takeoff: 120, InitialClimb: 125, Cruise: 140, Approach: 115, Landing: 110},
		TakeoffLength: 6000,
		LandingLength: 5000,
		MaxAltitude:   41000,
		VMO:           340,
		MMO:           0.82,
		Wingspan:      117,
	}
}

func makeConstantTable(tas, climbRate, descentRate float64) PerformanceTable {
	r := PerformanceRow{
		CruiseTAS:   tas,
		ClimbTAS:    tas,
		DescentTAS:  tas,
		ClimbRate:   [NumColumns]float64{climbRate, climbRate, climbRate},
		DescentRate: descentRate,
	}
	lo, hi := r, r
	hi.Altitude = 50000
	return PerformanceTable{Name: "CONST", Rows: []PerformanceRow{lo, hi}}
}

func TestPerformanceLookup(t *testing.T) {
	tbl := makeTestTable()
	if err := tbl.Validate(); err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		name string
		got  float64
		want float64
	}{
		{"exact row", tbl.ClimbTAS(10000), 250},
		{"interpolated", tbl.ClimbTAS(5000), 205},
		{"quarter", tbl.CruiseTAS(12500), 325},
		{"below first row", tbl.ClimbTAS(-500), 160},
		{"above last row", tbl.CruiseTAS(45000), 460},
		{"low column", tbl.ClimbRate(0, Low), 2400},
		{"high column", tbl.ClimbRate(15000, High), 2700},
		{"descent ignores column", tbl.DescentRate(25000, High), 2500},
		{"descent rate", tbl.DescentRate(5000, Nominal), 1750},
		{"cruise fuel", tbl.CruiseFuelFlow(12345, Low), 30},
		{"altitude row", tbl.Altitude(3), 30000},
		{"altitude clamped row", tbl.Altitude(99), 40000},
		{"V2", tbl.V2(), 144},
	} {
		if math.Abs(tc.got-tc.want) > 1e-9 {
			t.Errorf("%s: got %f, expected %f", tc.name, tc.got, tc.want)
		}
	}
	if len(tbl.Rows) != 5 {
		t.Errorf("rows: got %d, expected 5", len(tbl.Rows))
	}
}

func TestPerformanceTableValidate(t *testing.T) {
	empty := PerformanceTable{Name: "EMPTY"}
	if err := empty.Validate(); !errors.Is(err, ErrEmptyPerformanceTable) {
		t.Errorf("empty table: got %v", err)
	}

	unsorted := makeTestTable()
	unsorted.Rows[2].Altitude = 5000
	if err := unsorted.Validate(); !errors.Is(err, ErrUnsortedPerformanceTable) {
		t.Errorf("unsorted table: got %v", err)
	}

	zero := makeTestTable()
	zero.Rows[1].DescentRate = 0
	if err := zero.Validate(); !errors.Is(err, ErrInvalidPerformanceRate) {
		t.Errorf("zero rate: got %v", err)
	}
}

func TestClimbDescentDistance(t *testing.T) {
	tbl := makeConstantTable(250, 2000, 1800)
	v := 250 * math.KnotsToFeetPerSecond

	hdot := 2000. / 60
	want := math.Sqrt(v*v-hdot*hdot) / hdot * 10000
	if got := tbl.ClimbDistance(5000, 15000); math.Abs(got-want) > 1e-6*want {
		t.Errorf("climb distance: got %f, expected %f", got, want)
	}

	hdot = 1800. / 60
	want = v * math.Cos(math.SafeASin(hdot/v)) * 20000 / hdot
	if got := tbl.DescentDistance(1000, 21000); math.Abs(got-want) > 1e-6*want {
		t.Errorf("descent distance: got %f, expected %f", got, want)
	}

	if d := tbl.ClimbDistance(10000, 10000); d != 0 {
		t.Errorf("zero-height climb: got %f", d)
	}
	if d := tbl.DescentDistance(20000, 10000); d != 0 {
		t.Errorf("descent to higher altitude: got %f", d)
	}

	real := makeTestTable()
	if c0, c1 := real.ClimbDistance(0, 20000), real.ClimbDistance(0, 30000); c1 <= c0 {
		t.Errorf("climb distance didn't increase with altitude: %f, %f", c0, c1)
	}
}

func TestCruiseAltitudeFor(t *testing.T) {
	tbl := makeTestTable()
	fits := func(alt float64) float64 {
		return tbl.ClimbDistance(0, alt) + tbl.DescentDistance(0, alt)
	}

	p, err := tbl.CruiseAltitudeFor(2000*math.NauticalMilesToFeet, 0, 0, 35000)
	if err != nil || p.Altitude != 35000 {
		t.Errorf("long route: got %+v/%v, expected 35000", p, err)
	}
	if math.Abs(p.ClimbDistance+p.DescentDistance-fits(35000)) > 1e-6 {
		t.Errorf("profile distances don't match the table")
	}

	p, err = tbl.CruiseAltitudeFor(2000*math.NauticalMilesToFeet, 0, 0, 45000)
	if err != nil || p.Altitude != 41000 {
		t.Errorf("above max altitude: got %+v/%v, expected 41000", p, err)
	}

	p, err = tbl.CruiseAltitudeFor(fits(30000)+1, 0, 0, 35000)
	if err != nil || p.Altitude != 30000 {
		t.Errorf("short route: got %+v/%v, expected 30000", p, err)
	}

	p, err = tbl.CruiseAltitudeFor(fits(20000)-1, 0, 0, 35000)
	if err != nil || p.Altitude != 10000 {
		t.Errorf("shorter route: got %+v/%v, expected 10000", p, err)
	}

	if _, err = tbl.CruiseAltitudeFor(fits(10000)-1, 0, 0, 35000); !errors.Is(err, ErrCruiseAltitudeTooLow) {
		t.Errorf("very short route: got %v, expected ErrCruiseAltitudeTooLow", err)
	}
}

func TestPerformanceDB(t *testing.T) {
	db, err := NewPerformanceDB([]PerformanceTable{makeTestTable(), makeConstantTable(200, 1500, 1500)})
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		name string
		idx  int
	}{{"B738", 0}, {"b737-800", 0}, {"CONST", 1}} {
		if i, err := db.Lookup(tc.name); err != nil || i != tc.idx {
			t.Errorf("Lookup(%q): got %d/%v, expected %d", tc.name, i, err, tc.idx)
		}
	}
	if _, err := db.Lookup("A320"); !errors.Is(err, ErrUnknownAircraftType) {
		t.Errorf("unknown type: got %v", err)
	}
	if _, err := db.Table(2); !errors.Is(err, ErrUnknownAircraftType) {
		t.Errorf("out of range index: got %v", err)
	}

	tbl, _ := db.Table(0)
	for range 2 {
		d, err := db.ClimbDistance(0, 0, 25000)
		if err != nil || d != tbl.ClimbDistance(0, 25000) {
			t.Errorf("memoized climb distance: got %f/%v, expected %f", d, err, tbl.ClimbDistance(0, 25000))
		}
	}
	p0, _ := db.CruiseAltitudeFor(0, 300*math.NauticalMilesToFeet, 0, 0, 35000)
	p1, _ := tbl.CruiseAltitudeFor(300*math.NauticalMilesToFeet, 0, 0, 35000)
	if p0 != p1 {
		t.Errorf("memoized cruise profile %+v != %+v", p0, p1)
	}

	dup := makeConstantTable(200, 1500, 1500)
	dup.Name = "B737-800"
	if _, err := NewPerformanceDB([]PerformanceTable{makeTestTable(), dup}); !errors.Is(err, ErrDuplicateAircraftType) {
		t.Errorf("duplicate synonym: got %v", err)
	}
}
