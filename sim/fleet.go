// sim/fleet.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"time"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/nav"
	"github.com/mmp/trajgen/rand"
)

// Flight is a scheduled flight as described by a scenario.
type Flight struct {
	Callsign  string    `json:"callsign" yaml:"callsign"`
	Type      string    `json:"type" yaml:"type"`
	Departure time.Time `json:"departure" yaml:"departure"`

	Origin               string  `json:"origin" yaml:"origin"`
	Destination          string  `json:"destination" yaml:"destination"`
	OriginElevation      float64 `json:"origin_elevation,omitempty" yaml:"origin_elevation,omitempty"`
	DestinationElevation float64 `json:"destination_elevation,omitempty" yaml:"destination_elevation,omitempty"`
	CruiseAltitude       float64 `json:"cruise_altitude" yaml:"cruise_altitude"`
	CruiseTAS            float64 `json:"cruise_tas,omitempty" yaml:"cruise_tas,omitempty"`
	GeoStyle             bool    `json:"geo_style,omitempty" yaml:"geo_style,omitempty"`

	Route         []av.WaypointNode `json:"route" yaml:"route"`
	DepartingTaxi []av.WaypointNode `json:"departing_taxi,omitempty" yaml:"departing_taxi,omitempty"`
	LandingTaxi   []av.WaypointNode `json:"landing_taxi,omitempty" yaml:"landing_taxi,omitempty"`

	// Runways at the origin and destination airports; synthesized from
	// the route if not given.
	DepartureRunway string `json:"departure_runway,omitempty" yaml:"departure_runway,omitempty"`
	ArrivalRunway   string `json:"arrival_runway,omitempty" yaml:"arrival_runway,omitempty"`

	Incident       *nav.Incident      `json:"incident,omitempty" yaml:"incident,omitempty"`
	SkipClearances []av.ClearanceKind `json:"skip_clearances,omitempty" yaml:"skip_clearances,omitempty"`
}

// AircraftStatus tracks an aircraft's life cycle in the scheduler.
type AircraftStatus int

const (
	// AircraftScheduled aircraft have not reached their departure time.
	AircraftScheduled AircraftStatus = iota
	AircraftActive
	// AircraftDone aircraft have landed or latched an abnormal phase.
	AircraftDone
	// AircraftFailed aircraft could not be initialized and are not
	// propagated.
	AircraftFailed
)

func (s AircraftStatus) String() string {
	return [...]string{"scheduled", "active", "done", "failed"}[s]
}

// Aircraft is one entry in the fleet. State is nil until the aircraft
// is activated at its departure time.
type Aircraft struct {
	Flight    *Flight
	Index     int
	TypeIndex int
	Status    AircraftStatus

	State           *nav.AircraftState
	DepartureRunway *av.Runway
	ArrivalRunway   *av.Runway

	// Pending is simulated time accumulated toward the aircraft's next
	// regime step.
	Pending    time.Duration
	LastSample time.Time
	Sector     int

	env *nav.Env
}

func (ac *Aircraft) Callsign() string { return ac.Flight.Callsign }

// StateTime returns the simulation time the aircraft's state
// corresponds to, given the current clock.
func (ac *Aircraft) StateTime(now time.Time) time.Time {
	return now.Add(-ac.Pending)
}

func (ac *Aircraft) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("callsign", ac.Callsign()),
		slog.String("status", ac.Status.String()),
		slog.Duration("pending", ac.Pending),
	}
	if ac.State != nil {
		attrs = append(attrs, slog.Any("state", ac.State))
	}
	return slog.GroupValue(attrs...)
}

// Fleet owns every aircraft in a run, indexed by their position in the
// scenario.
type Fleet struct {
	Aircraft   []*Aircraft
	byCallsign map[string]int
}

func NewFleet() *Fleet {
	return &Fleet{byCallsign: make(map[string]int)}
}

// Add appends a flight to the fleet and returns its index.
func (f *Fleet) Add(fl *Flight, typeIdx int) (int, error) {
	if _, ok := f.byCallsign[fl.Callsign]; ok {
		return -1, fmt.Errorf("%s: %w", fl.Callsign, ErrDuplicateCallsign)
	}
	idx := len(f.Aircraft)
	f.Aircraft = append(f.Aircraft, &Aircraft{Flight: fl, Index: idx, TypeIndex: typeIdx, Sector: -1})
	f.byCallsign[fl.Callsign] = idx
	return idx, nil
}

func (f *Fleet) Len() int { return len(f.Aircraft) }

func (f *Fleet) Lookup(callsign string) (*Aircraft, bool) {
	if i, ok := f.byCallsign[callsign]; ok {
		return f.Aircraft[i], true
	}
	return nil, false
}

// Active iterates over the aircraft that are currently being
// propagated.
func (f *Fleet) Active() iter.Seq2[int, *Aircraft] {
	return func(yield func(int, *Aircraft) bool) {
		for i, ac := range f.Aircraft {
			if ac.Status == AircraftActive && !yield(i, ac) {
				return
			}
		}
	}
}

// Count returns the number of aircraft with the given status.
func (f *Fleet) Count(status AircraftStatus) int {
	n := 0
	for _, ac := range f.Aircraft {
		if ac.Status == status {
			n++
		}
	}
	return n
}

// makeFlightPlan builds the airborne plan for a flight and fits its
// climb and descent profile.
func (s *Sim) makeFlightPlan(ac *Aircraft, r *rand.Rand) (*av.FlightPlan, error) {
	fl := ac.Flight
	fp := av.NewFlightPlan(fl.Origin, fl.Destination, slices.Clone(fl.Route)...)
	fp.GeoStyle = fl.GeoStyle
	fp.OriginElevation, fp.DestinationElevation = fl.OriginElevation, fl.DestinationElevation
	if ap, ok := s.Airports[fl.Origin]; ok {
		fp.OriginElevation = ap.Elevation
	}
	if ap, ok := s.Airports[fl.Destination]; ok {
		fp.DestinationElevation = ap.Elevation
	}
	fp.CruiseAltitude = fl.CruiseAltitude
	if err := fp.Route.Validate(); err != nil {
		return nil, err
	}
	if err := fp.PlanProfile(s.Perf, ac.TypeIndex); err != nil {
		return nil, err
	}

	perf, err := s.Perf.Table(ac.TypeIndex)
	if err != nil {
		return nil, err
	}
	fp.CruiseTAS = fl.CruiseTAS
	if fp.CruiseTAS <= 0 {
		fp.CruiseTAS = perf.CruiseTAS(fp.CruiseAltitude)
	}
	if p := s.Config.CruiseTASPerturbation; p > 0 {
		fp.CruiseTAS = r.Jitter(fp.CruiseTAS, p)
	}
	return fp, nil
}

func (s *Sim) lookupRunway(airport, id string) (*av.Runway, error) {
	if id == "" {
		return nil, nil
	}
	ap, ok := s.Airports[airport]
	if !ok {
		return nil, fmt.Errorf("%s: %w", airport, ErrUnknownAirport)
	}
	return ap.Runway(id)
}

// activate creates the aircraft's state at its origin gate. Failures
// are logged and leave the aircraft unpropagated; they never stop the
// run.
func (s *Sim) activate(ac *Aircraft, now time.Time) {
	err := func() error {
		fl := ac.Flight
		r := rand.MakeSeeded(s.Config.Seed ^ int64(ac.Index+1)*0x9e3779b9)
		fp, err := s.makeFlightPlan(ac, r)
		if err != nil {
			return err
		}
		if ac.DepartureRunway, err = s.lookupRunway(fl.Origin, fl.DepartureRunway); err != nil {
			return err
		}
		if ac.ArrivalRunway, err = s.lookupRunway(fl.Destination, fl.ArrivalRunway); err != nil {
			return err
		}

		plans := nav.Plans{Airborne: fp}
		if len(fl.DepartingTaxi) > 0 {
			plans.DepartingTaxi = av.NewWaypointSequence(fl.DepartingTaxi...)
		}
		if len(fl.LandingTaxi) > 0 {
			plans.LandingTaxi = av.NewWaypointSequence(fl.LandingTaxi...)
		}

		env := s.makeEnv(ac)
		st, err := nav.NewAircraftState(fl.Callsign, ac.TypeIndex, plans, env)
		if err != nil {
			return err
		}
		// NewAircraftState synthesizes any missing runways.
		ac.DepartureRunway, ac.ArrivalRunway = env.DepartureRunway, env.ArrivalRunway
		if fl.Incident != nil {
			inc := *fl.Incident
			st.Incident = &inc
		}
		for _, kind := range slices.Concat(s.Config.SkipClearances, fl.SkipClearances) {
			s.Clearances.SkipRequestClearance(ac.Index, kind)
		}

		ac.State, ac.env = st, env
		return nil
	}()

	if err != nil {
		ac.Status = AircraftFailed
		s.lg.Error("unable to initialize aircraft", "callsign", ac.Callsign(), "error", err)
		s.eventStream.Post(Event{Type: StatusMessageEvent, Time: now, Callsign: ac.Callsign(),
			Text: "initialization failed: " + err.Error()})
		return
	}

	ac.Status = AircraftActive
	s.lg.Info("activated aircraft", "callsign", ac.Callsign(), "plan", ac.State.Plans.Airborne)
}

// makeEnv returns the environment consulted by the aircraft's state
// machine. It holds no state of its own beyond the runways, so it can
// be rebuilt after a checkpoint is restored.
func (s *Sim) makeEnv(ac *Aircraft) *nav.Env {
	perf, _ := s.Perf.Table(ac.TypeIndex)
	return &nav.Env{
		Perf:            perf,
		Wind:            s.Wind,
		Clearances:      s.Clearances.Checker(ac.Index),
		DepartureRunway: ac.DepartureRunway,
		ArrivalRunway:   ac.ArrivalRunway,
		TRACONAltitude:  s.Config.TRACONAltitude,
		Lg:              s.lg.With("callsign", ac.Callsign()),
	}
}
