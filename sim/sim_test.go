// sim/sim_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/log"
	"github.com/mmp/trajgen/math"
)

var (
	testOrigin      = math.LL(40, -75)
	testEnroute     = math.LL(41, -77)
	testDestination = math.LL(42, -79.5)
	testStart       = time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)
)

func makeTestLogger() *log.Logger {
	return &log.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func makeTestTable() av.PerformanceTable {
	row := func(alt, cruise, climb, descent, roc, rod float64) av.PerformanceRow {
		return av.PerformanceRow{
			Altitude:    alt,
			CruiseTAS:   cruise,
			ClimbTAS:    climb,
			DescentTAS:  descent,
			ClimbRate:   [av.NumColumns]float64{0.8 * roc, roc, 1.2 * roc},
			DescentRate: rod,
			CruiseFuel:  [av.NumColumns]float64{30, 40, 50},
			ClimbFuel:   60,
			DescentFuel: 15,
		}
	}
	return av.PerformanceTable{
		Name: "B738",
		Rows: []av.PerformanceRow{
			row(0, 250, 160, 250, 3000, 1500),
			row(10000, 300, 250, 280, 2500, 2000),
			row(20000, 400, 290, 300, 2000, 2500),
			row(30000, 450, 300, 300, 1500, 2500),
			row(40000, 460, 300, 300, 1000, 2500),
		},
		VStall:        av.StallSpeeds{Takeoff: 120, InitialClimb: 125, Cruise: 140, Approach: 115, Landing: 110},
		TakeoffLength: 6000,
		LandingLength: 5000,
		MaxAltitude:   41000,
	}
}

func makeTestFlight(callsign string, departure time.Time) Flight {
	return Flight{
		Callsign:       callsign,
		Type:           "B738",
		Departure:      departure,
		Origin:         "KAAA",
		Destination:    "KBBB",
		CruiseAltitude: 30000,
		Route: []av.WaypointNode{
			{Name: "KAAA", Location: testOrigin},
			{Name: "MIDPT", Location: testEnroute},
			{Name: "KBBB", Location: testDestination},
		},
	}
}

func makeTestScenario(flights ...Flight) *Scenario {
	cfg := DefaultConfig()
	cfg.Start = testStart
	cfg.End = testStart.Add(4 * time.Hour)
	cfg.Workers = 2
	return &Scenario{
		Config:      cfg,
		Performance: []av.PerformanceTable{makeTestTable()},
		Flights:     flights,
	}
}

func makeTestSim(t *testing.T, sc *Scenario) *Sim {
	t.Helper()
	s, err := NewSim(sc, makeTestLogger())
	if err != nil {
		t.Fatalf("NewSim: %v", err)
	}
	t.Cleanup(s.Destroy)
	return s
}

func TestStatusTransitions(t *testing.T) {
	s := makeTestSim(t, makeTestScenario(makeTestFlight("TST101", testStart)))
	ctx := context.Background()

	if err := s.Step(ctx); !errors.Is(err, ErrNotRunning) {
		t.Errorf("step before start: got %v, want %v", err, ErrNotRunning)
	}
	if err := s.Resume(); !errors.Is(err, ErrNotPaused) {
		t.Errorf("resume before start: got %v, want %v", err, ErrNotPaused)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second start: got %v, want %v", err, ErrAlreadyStarted)
	}
	if err := s.Step(ctx); err != nil {
		t.Fatal(err)
	}
	if got, want := s.SimTime(), testStart.Add(s.Config.Tick()); !got.Equal(want) {
		t.Errorf("time after one tick %s, want %s", got, want)
	}

	if err := s.Pause(); err != nil {
		t.Fatal(err)
	}
	if err := s.Step(ctx); !errors.Is(err, ErrNotRunning) {
		t.Errorf("step while paused: got %v, want %v", err, ErrNotRunning)
	}
	if err := s.Resume(); err != nil {
		t.Fatal(err)
	}
	if s.Status() != StatusResumed {
		t.Errorf("status %s, want %s", s.Status(), StatusResumed)
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := s.Step(ctx); !errors.Is(err, ErrSimulationStopped) {
		t.Errorf("step after stop: got %v, want %v", err, ErrSimulationStopped)
	}
	if err := s.Stop(); !errors.Is(err, ErrSimulationStopped) {
		t.Errorf("second stop: got %v, want %v", err, ErrSimulationStopped)
	}
}

func TestRunForPauses(t *testing.T) {
	s := makeTestSim(t, makeTestScenario(makeTestFlight("TST101", testStart)))
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.RunFor(context.Background(), 5*time.Minute); err != nil {
		t.Fatal(err)
	}
	if s.Status() != StatusPaused {
		t.Errorf("status %s after RunFor, want %s", s.Status(), StatusPaused)
	}
	if got, want := s.SimTime(), testStart.Add(5*time.Minute); !got.Equal(want) {
		t.Errorf("time %s after RunFor, want %s", got, want)
	}
	if s.Stats.Ticks != 300 {
		t.Errorf("%d ticks, want 300", s.Stats.Ticks)
	}
}

func TestRunCanceled(t *testing.T) {
	s := makeTestSim(t, makeTestScenario(makeTestFlight("TST101", testStart)))
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want %v", err, context.Canceled)
	}
}

func TestLateDepartureActivation(t *testing.T) {
	s := makeTestSim(t, makeTestScenario(makeTestFlight("TST101", testStart),
		makeTestFlight("TST202", testStart.Add(10*time.Minute))))
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.RunFor(context.Background(), 10*time.Minute); err != nil {
		t.Fatal(err)
	}
	if ac, _ := s.Fleet.Lookup("TST202"); ac.Status != AircraftScheduled || ac.State != nil {
		t.Errorf("TST202 %s before its departure time", ac.Status)
	}
	if err := s.Resume(); err != nil {
		t.Fatal(err)
	}
	if err := s.Step(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ac, _ := s.Fleet.Lookup("TST202"); ac.Status != AircraftActive {
		t.Errorf("TST202 %s after its departure time, want active", ac.Status)
	}
	if samples := s.Trajectories.Get("TST202"); len(samples) == 0 || !samples[0].Time.Equal(testStart.Add(10*time.Minute)) {
		t.Errorf("TST202 trajectory doesn't start at departure: %v", samples)
	}
}

func TestUnknownAircraftTypeSkipped(t *testing.T) {
	bad := makeTestFlight("BAD1", testStart)
	bad.Type = "ZZZZ"
	s := makeTestSim(t, makeTestScenario(makeTestFlight("TST101", testStart), bad))

	if ac, _ := s.Fleet.Lookup("BAD1"); ac.Status != AircraftFailed {
		t.Errorf("BAD1 status %s, want failed", ac.Status)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Step(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ac, _ := s.Fleet.Lookup("TST101"); ac.Status != AircraftActive {
		t.Errorf("TST101 status %s, want active", ac.Status)
	}
	if s.Stats.Failed != 1 {
		t.Errorf("%d failed, want 1", s.Stats.Failed)
	}
}

func TestWorkerCountDeterminism(t *testing.T) {
	run := func(workers int) map[string][]Sample {
		sc := makeTestScenario(makeTestFlight("TST101", testStart), makeTestFlight("TST202", testStart.Add(time.Minute)),
			makeTestFlight("TST303", testStart.Add(2*time.Minute)))
		sc.Config.Workers = workers
		sc.Config.ClearanceDelays.Jitter = 0.5
		s := makeTestSim(t, sc)
		if err := s.Start(); err != nil {
			t.Fatal(err)
		}
		horizon := 30 * time.Minute
		if log.RaceEnabled {
			horizon = 10 * time.Minute
		}
		if err := s.RunFor(context.Background(), horizon); err != nil {
			t.Fatal(err)
		}
		m := make(map[string][]Sample)
		for _, id := range s.Trajectories.IDs() {
			m[id] = s.Trajectories.Get(id)
		}
		return m
	}

	one, four := run(1), run(4)
	if len(one) != 3 {
		t.Fatalf("%d trajectories, want 3", len(one))
	}
	if !reflect.DeepEqual(one, four) {
		t.Errorf("trajectories differ between 1 and 4 workers")
	}
}
