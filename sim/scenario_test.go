// sim/scenario_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/math"
	"github.com/mmp/trajgen/util"
	"github.com/mmp/trajgen/wx"
)

const testScenarioYAML = `
config:
  start: 2025-03-01T14:00:00Z
  time_step_airborne: 10s
  airborne_sample_period: 20s
  enable_cdnr: true
  seed: 7
  skip_clearances: [ENTER_ARTC]
duration: 2h
performance:
  - name: B738
    rows:
      - {altitude: 0, cruise_tas: 250, climb_tas: 160, descent_tas: 250, climb_rate: [2400, 3000, 3600], descent_rate: 1500, cruise_fuel: [30, 40, 50], climb_fuel: 60, descent_fuel: 15}
      - {altitude: 30000, cruise_tas: 450, climb_tas: 300, descent_tas: 300, climb_rate: [1200, 1500, 1800], descent_rate: 2500, cruise_fuel: [30, 40, 50], climb_fuel: 60, descent_fuel: 15}
    vstall: {takeoff: 120, initial_climb: 125, cruise: 140, approach: 115, landing: 110}
    takeoff_length: 6000
    landing_length: 5000
    max_altitude: 41000
flights:
  - callsign: TST101
    type: B738
    departure: 2025-03-01T14:05:00Z
    origin: KAAA
    destination: KBBB
    cruise_altitude: 30000
    route:
      - {name: KAAA, location: [-75, 40]}
      - {name: KBBB, location: [-79.5, 42]}
`

const testScenarioJSON = `{
  "config": {
    "start": "2025-03-01T14:00:00Z",
    "end": "2025-03-01T16:00:00Z",
    "time_step_airborne": "15s"
  },
  "performance": [{"name": "B738", "rows": [{"altitude": 0, "cruise_tas": 250, "climb_tas": 160,
    "descent_tas": 250, "climb_rate": [2400, 3000, 3600], "descent_rate": 1500}]}],
  "flights": [{
    "callsign": "TST101", "type": "B738", "departure": "2025-03-01T14:00:00Z",
    "origin": "KAAA", "destination": "KBBB", "cruise_altitude": 30000,
    "route": [{"name": "KAAA", "location": [-75, 40]}, {"name": "KBBB", "location": [-79.5, 42]}]
  }]
}`

func TestReadScenarioYAML(t *testing.T) {
	sc, err := ReadScenario(strings.NewReader(testScenarioYAML), ".yaml")
	if err != nil {
		t.Fatal(err)
	}

	if got, want := sc.Config.End, testStart.Add(2*time.Hour); !got.Equal(want) {
		t.Errorf("end %s, want %s", got, want)
	}
	if sc.Config.TimeStepAirborne != 10*time.Second || sc.Config.AirborneSamplePeriod != 20*time.Second {
		t.Errorf("steps %s/%s, want 10s/20s", sc.Config.TimeStepAirborne, sc.Config.AirborneSamplePeriod)
	}
	// Unspecified fields keep their defaults.
	if sc.Config.TimeStepSurface != time.Second || sc.Config.CDNR.DelaySteps != 10 {
		t.Errorf("defaults not preserved: %+v", sc.Config)
	}
	if !sc.Config.EnableCDNR || sc.Config.Seed != 7 {
		t.Errorf("cdnr %v seed %d", sc.Config.EnableCDNR, sc.Config.Seed)
	}
	if len(sc.Config.SkipClearances) != 1 || sc.Config.SkipClearances[0] != av.ClearanceEnterARTC {
		t.Errorf("skip clearances %v", sc.Config.SkipClearances)
	}
	if len(sc.Flights) != 1 {
		t.Fatalf("%d flights, want 1", len(sc.Flights))
	}
	fl := sc.Flights[0]
	if !fl.Departure.Equal(testStart.Add(5 * time.Minute)) {
		t.Errorf("departure %s", fl.Departure)
	}
	if len(fl.Route) != 2 || fl.Route[1].Location != testDestination {
		t.Errorf("route %+v", fl.Route)
	}

	var e util.ErrorLogger
	sc.Validate(&e)
	if e.HaveErrors() {
		t.Errorf("validate: %s", e.String())
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yml")
	if err := os.WriteFile(path, []byte(testScenarioYAML), 0644); err != nil {
		t.Fatal(err)
	}
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Flights) != 1 || sc.Config.Seed != 7 {
		t.Errorf("loaded %d flights, seed %d", len(sc.Flights), sc.Config.Seed)
	}
	if _, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("missing file loaded")
	}
}

func TestReadScenarioJSON(t *testing.T) {
	sc, err := ReadScenario(strings.NewReader(testScenarioJSON), ".json")
	if err != nil {
		t.Fatal(err)
	}
	if sc.Config.TimeStepAirborne != 15*time.Second {
		t.Errorf("airborne step %s, want 15s", sc.Config.TimeStepAirborne)
	}
	if got, want := sc.Config.End, testStart.Add(2*time.Hour); !got.Equal(want) {
		t.Errorf("end %s, want %s", got, want)
	}
	if len(sc.Flights) != 1 || sc.Flights[0].Callsign != "TST101" {
		t.Errorf("flights %+v", sc.Flights)
	}
}

func TestReadScenarioErrors(t *testing.T) {
	if _, err := ReadScenario(strings.NewReader(`{"flights": [], "flights": []}`), ".json"); !errors.Is(err, ErrInvalidScenario) {
		t.Errorf("duplicate keys: got %v, want %v", err, ErrInvalidScenario)
	}
	if _, err := ReadScenario(strings.NewReader(""), ".toml"); !errors.Is(err, ErrUnknownScenarioType) {
		t.Errorf("unknown type: got %v, want %v", err, ErrUnknownScenarioType)
	}
	if _, err := ReadScenario(strings.NewReader("bogus_field: 1\n"), ".yaml"); err == nil {
		t.Errorf("unknown field accepted")
	}
}

func TestScenarioValidate(t *testing.T) {
	for _, test := range []struct {
		name   string
		modify func(*Scenario)
	}{
		{"duplicate callsign", func(sc *Scenario) {
			sc.Flights = append(sc.Flights, makeTestFlight("TST101", testStart))
		}},
		{"short route", func(sc *Scenario) { sc.Flights[0].Route = sc.Flights[0].Route[:1] }},
		{"no cruise altitude", func(sc *Scenario) { sc.Flights[0].CruiseAltitude = 0 }},
		{"departs before start", func(sc *Scenario) { sc.Flights[0].Departure = testStart.Add(-time.Minute) }},
		{"runway without airport", func(sc *Scenario) { sc.Flights[0].DepartureRunway = "22L" }},
		{"no performance", func(sc *Scenario) { sc.Performance = nil }},
		{"vehicle shares callsign", func(sc *Scenario) {
			v := makeTestVehicleSpec()
			v.ID = "TST101"
			sc.Vehicles = append(sc.Vehicles, v)
		}},
		{"vehicle speed", func(sc *Scenario) {
			v := makeTestVehicleSpec()
			v.Speed = 0
			sc.Vehicles = append(sc.Vehicles, v)
		}},
		{"wind samples without grid", func(sc *Scenario) {
			sc.Wind.Samples = []WindSamples{{Time: testStart}}
		}},
		{"weather polygon", func(sc *Scenario) {
			w := makeTestWeather()
			w.Polygons[0].Vertices = w.Polygons[0].Vertices[:2]
			sc.Weather = w
		}},
	} {
		t.Run(test.name, func(t *testing.T) {
			sc := makeTestScenario(makeTestFlight("TST101", testStart))
			test.modify(sc)
			var e util.ErrorLogger
			sc.Validate(&e)
			if !e.HaveErrors() {
				t.Errorf("expected a validation error")
			}
			if _, err := NewSim(sc, makeTestLogger()); !errors.Is(err, ErrInvalidScenario) {
				t.Errorf("NewSim: got %v, want %v", err, ErrInvalidScenario)
			}
		})
	}
}

func TestWindCache(t *testing.T) {
	spec := wx.GridSpec{LatMin: 40, LatMax: 41, LonMin: -75, LonMax: -74, Step: 1}
	wc := WindConfig{
		Grid: &spec,
		Samples: []WindSamples{{
			Time:    testStart,
			Samples: []wx.WindSample{{P: math.Point2LL{-75, 40}, Pressure: 500, East: true, Value: 10}},
		}},
		Cache: filepath.Join(t.TempDir(), "wind.msgpack.zst"),
	}
	lg := makeTestLogger()

	first, err := wc.build(lg)
	if err != nil {
		t.Fatal(err)
	}
	p := math.Point2LL{-75, 40}
	u0, v0 := first.Wind(testStart, p, 18000)

	// The cached grid is used even though the samples changed.
	wc.Samples[0].Samples[0].Value = 30
	second, err := wc.build(lg)
	if err != nil {
		t.Fatal(err)
	}
	if u, v := second.Wind(testStart, p, 18000); u != u0 || v != v0 {
		t.Errorf("cached wind %f,%f, want %f,%f", u, v, u0, v0)
	}

	// A different grid invalidates the cache.
	spec2 := spec
	spec2.LatMax = 42
	wc.Grid = &spec2
	third, err := wc.build(lg)
	if err != nil {
		t.Fatal(err)
	}
	if u, _ := third.Wind(testStart, p, 18000); u == u0 {
		t.Errorf("stale cached wind %f used for a different grid", u)
	}
}
