// sim/groundvehicle_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/math"
)

func makeTestVehicleSpec() VehicleSpec {
	p0 := testOrigin
	p1 := math.DestinationGC(p0, math.Pi/2, 1000, 0)
	p2 := math.DestinationGC(p1, 0, 500, 0)
	return VehicleSpec{
		ID:        "TUG1",
		Type:      "tug",
		Airport:   "KAAA",
		Departure: testStart.Add(10 * time.Second),
		Speed:     10,
		DrivePlan: []av.WaypointNode{
			{Name: "A", Location: p0},
			{Name: "B", Location: p1},
			{Name: "C", Location: p2},
		},
		OperatorAbsenceTicks: 3,
	}
}

func TestGroundVehicleDrive(t *testing.T) {
	spec := makeTestVehicleSpec()
	v, err := NewGroundVehicle(spec)
	if err != nil {
		t.Fatal(err)
	}
	end := spec.DrivePlan[2].Location

	now := testStart
	var arrivedAt time.Time
	var driving int
	for range 600 {
		if v.Step(now, time.Second) {
			if !arrivedAt.IsZero() {
				t.Errorf("arrived twice")
			}
			arrivedAt = now
		}
		if v.Status == VehicleDriving {
			driving++
		}
		if now.Before(spec.Departure) && v.Status != VehicleWaiting {
			t.Errorf("%s: %s before departure", now, v.Status)
		}
		now = now.Add(time.Second)
	}

	if v.Status != VehicleArrived || v.Position != end || v.Speed != 0 {
		t.Errorf("status %s at %s speed %f, want arrived at %s", v.Status, v.Position, v.Speed, end)
	}
	// 1500 ft at 10 knots, starting after the departure time plus three
	// ticks of operator absence.
	secs := 1500 / (10 * math.KnotsToFeetPerSecond)
	start := spec.Departure.Add(3 * time.Second)
	if want := start.Add(time.Duration(secs * float64(time.Second))); arrivedAt.Sub(want).Abs() > time.Second {
		t.Errorf("arrived at %s, want about %s", arrivedAt, want)
	}
	if driving == 0 {
		t.Errorf("never driving")
	}
}

func TestGroundVehicleBoundaryClip(t *testing.T) {
	spec := makeTestVehicleSpec()
	spec.Departure, spec.OperatorAbsenceTicks = testStart, 0
	v, err := NewGroundVehicle(spec)
	if err != nil {
		t.Fatal(err)
	}
	// Enough time to pass B in a single step; the vehicle must turn the
	// corner rather than overshoot along the first leg.
	secs := 1200 / (10 * math.KnotsToFeetPerSecond)
	v.Step(testStart, time.Duration(secs*float64(time.Second)))

	b := spec.DrivePlan[1].Location
	if d := math.DistanceGC(v.Position, b, 0); !math.Near(d, 200, 1) {
		t.Errorf("%.1f ft past B, want 200", d)
	}
	if v.DrivePlan.Node(v.Target).Name != "C" {
		t.Errorf("target %s, want C", v.DrivePlan.Node(v.Target).Name)
	}
}

func TestGroundVehiclePlanTooShort(t *testing.T) {
	spec := makeTestVehicleSpec()
	spec.DrivePlan = spec.DrivePlan[:1]
	if _, err := NewGroundVehicle(spec); !errors.Is(err, ErrVehiclePlanTooShort) {
		t.Errorf("got %v, want %v", err, ErrVehiclePlanTooShort)
	}
}

func TestGroundVehicleInSim(t *testing.T) {
	sc := makeTestScenario()
	sc.Vehicles = []VehicleSpec{makeTestVehicleSpec()}
	s := makeTestSim(t, sc)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Status() != StatusEnded || s.Vehicles[0].Status != VehicleArrived {
		t.Errorf("status %s vehicle %s", s.Status(), s.Vehicles[0].Status)
	}
	samples := s.Trajectories.Get("TUG1")
	if len(samples) == 0 {
		t.Fatal("no vehicle samples")
	}
	if last := samples[len(samples)-1]; last.Phase != VehicleArrived.String() || last.Sector != -1 {
		t.Errorf("last sample %+v", last)
	}
}
