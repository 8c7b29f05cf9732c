// sim/sim.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/brunoga/deep"
	"github.com/goforj/godump"
	"golang.org/x/sync/errgroup"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/log"
	"github.com/mmp/trajgen/math"
	"github.com/mmp/trajgen/nav"
	"github.com/mmp/trajgen/util"
	"github.com/mmp/trajgen/wx"
)

// Status is the scheduler's run state.
type Status int

const (
	StatusReady Status = iota
	StatusStarted
	StatusPaused
	StatusResumed
	StatusStopped
	StatusEnded
)

func (s Status) String() string {
	return [...]string{"READY", "STARTED", "PAUSED", "RESUMED", "STOPPED", "ENDED"}[s]
}

func (s Status) running() bool { return s == StatusStarted || s == StatusResumed }

// Stats are the run-wide counters the scheduler maintains.
type Stats struct {
	Ticks             int
	Active            int
	Landed            int
	Abnormal          int
	Failed            int
	CDNREvents        int
	StalledClearances int
	TacticalHolds     int
	Reroutes          int
	SubStepOverflows  int
	Samples           int
}

func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("ticks", s.Ticks),
		slog.Int("active", s.Active),
		slog.Int("landed", s.Landed),
		slog.Int("abnormal", s.Abnormal),
		slog.Int("failed", s.Failed),
		slog.Int("cdnr_events", s.CDNREvents),
		slog.Int("stalled_clearances", s.StalledClearances),
		slog.Int("tactical_holds", s.TacticalHolds),
		slog.Int("reroutes", s.Reroutes),
		slog.Int("substep_overflows", s.SubStepOverflows),
		slog.Int("samples", s.Samples))
}

// Sim advances a fleet of aircraft and ground vehicles on a shared
// clock. Each global tick, every active aircraft whose accumulated time
// has reached its regime's step is advanced in parallel; conflict
// detection, ground vehicles, and trajectory sampling then run serially
// after the barrier.
type Sim struct {
	Config       Config
	Airports     map[string]*av.Airport
	Perf         *av.PerformanceDB
	Wind         wx.WindField
	Sectors      *math.SectorGrid
	Weather      *Weather
	Fleet        *Fleet
	Vehicles     []*GroundVehicle
	Clearances   *ClearanceProtocol
	Trajectories *TrajectoryStore
	Stats        Stats

	mu          util.LoggingMutex
	status      Status
	now         time.Time
	runUntil    time.Time
	lastReroute time.Time
	wake        chan struct{}

	samples     *util.ChunkedChan[TaggedSample]
	eventStream *EventStream
	lg          *log.Logger
}

// NewSim validates the scenario and builds the simulation from it.
// Aircraft are registered in scenario order; that order determines
// their index for conflict resolution tie-breaking and their random
// streams.
func NewSim(sc *Scenario, lg *log.Logger) (*Sim, error) {
	var e util.ErrorLogger
	sc.Validate(&e)
	if e.HaveErrors() {
		e.PrintErrors(lg)
		return nil, fmt.Errorf("%w: %s", ErrInvalidScenario, e.String())
	}

	perf, err := av.NewPerformanceDB(sc.Performance)
	if err != nil {
		return nil, err
	}
	wind, err := sc.Wind.build(lg)
	if err != nil {
		return nil, err
	}

	s := &Sim{
		Config:       sc.Config,
		Airports:     make(map[string]*av.Airport),
		Perf:         perf,
		Wind:         wind,
		Fleet:        NewFleet(),
		Clearances:   NewClearanceProtocol(sc.Config.ClearanceDelays, sc.Config.Seed, sc.Config.StallWarningThreshold, lg),
		Trajectories: NewTrajectoryStore(),
		now:          sc.Config.Start,
		wake:         make(chan struct{}, 1),
		eventStream:  NewEventStream(lg),
		lg:           lg,
	}
	for i := range sc.Airports {
		s.Airports[sc.Airports[i].ICAO] = &sc.Airports[i]
	}

	if len(sc.Sectors) > 0 {
		spec := math.DefaultSectorGridSpec()
		if sc.SectorGrid != nil {
			spec = *sc.SectorGrid
		}
		if s.Sectors, err = math.BuildSectorGrid(sc.Sectors, spec); err != nil {
			return nil, err
		}
	}

	if sc.Weather != nil {
		s.Weather = sc.Weather
		if err := s.Weather.buildGraph(); err != nil {
			return nil, err
		}
	}

	for i := range sc.Flights {
		fl := &sc.Flights[i]
		typeIdx, err := perf.Lookup(fl.Type)
		idx, aerr := s.Fleet.Add(fl, typeIdx)
		if aerr != nil {
			return nil, aerr
		}
		if cidx := s.Clearances.Add(fl.Callsign); cidx != idx {
			panic(fmt.Sprintf("clearance index %d != fleet index %d", cidx, idx))
		}
		if err != nil {
			s.Fleet.Aircraft[idx].Status = AircraftFailed
			s.Stats.Failed++
			lg.Error("unknown aircraft type", "callsign", fl.Callsign, "type", fl.Type, "error", err)
		}
	}

	for _, spec := range sc.Vehicles {
		v, err := NewGroundVehicle(spec)
		if err != nil {
			return nil, err
		}
		s.Vehicles = append(s.Vehicles, v)
	}

	lg.Info("created simulation", "config", s.Config, "aircraft", s.Fleet.Len(),
		"vehicles", len(s.Vehicles), "run_id", s.Trajectories.RunID.String())
	return s, nil
}

func (s *Sim) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("status", s.status.String()),
		slog.Time("now", s.now),
		slog.Any("stats", s.Stats),
		slog.Any("trajectories", s.Trajectories))
}

func (s *Sim) SimTime() time.Time {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.now
}

func (s *Sim) Status() Status {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.status
}

func (s *Sim) Subscribe() *EventsSubscription {
	return s.eventStream.Subscribe()
}

// StreamSamples returns a channel that receives every trajectory sample
// as it is recorded, in chunks. It must be called before Start; the
// channel is closed when the run ends or is stopped.
func (s *Sim) StreamSamples(chunk int) <-chan []TaggedSample {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	if s.samples == nil {
		s.samples = util.MakeChunkedChan[TaggedSample](64, chunk)
	}
	return s.samples.Ch()
}

func (s *Sim) Destroy() {
	s.eventStream.Destroy()
}

func (s *Sim) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Sim) setStatus(status Status) {
	s.lg.Info("simulation status", "from", s.status.String(), "to", status.String(), "time", s.now)
	s.status = status
	s.eventStream.Post(Event{Type: StatusMessageEvent, Time: s.now, Text: status.String()})
}

func (s *Sim) Start() error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if s.status != StatusReady {
		return ErrAlreadyStarted
	}
	s.setStatus(StatusStarted)
	return nil
}

func (s *Sim) Pause() error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if !s.status.running() {
		return ErrNotRunning
	}
	s.setStatus(StatusPaused)
	return nil
}

func (s *Sim) Resume() error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if s.status != StatusPaused {
		return ErrNotPaused
	}
	s.setStatus(StatusResumed)
	s.signal()
	return nil
}

// Stop ends the run early; it cannot be resumed.
func (s *Sim) Stop() error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	switch s.status {
	case StatusEnded:
		return ErrSimulationEnded
	case StatusStopped:
		return ErrSimulationStopped
	}
	s.setStatus(StatusStopped)
	s.finish()
	s.signal()
	return nil
}

// Step advances the simulation by a single global tick.
func (s *Sim) Step(ctx context.Context) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	switch s.status {
	case StatusEnded:
		return ErrSimulationEnded
	case StatusStopped:
		return ErrSimulationStopped
	}
	if !s.status.running() {
		return ErrNotRunning
	}
	return s.tick(ctx)
}

// Run advances the simulation until it ends, is stopped, or ctx is
// canceled. While paused it waits for Resume or Stop.
func (s *Sim) Run(ctx context.Context) error {
	for {
		s.mu.Lock(s.lg)
		status := s.status
		if status.running() && !s.runUntil.IsZero() && !s.now.Before(s.runUntil) {
			s.runUntil = time.Time{}
			s.setStatus(StatusPaused)
			s.mu.Unlock(s.lg)
			return nil
		}
		var err error
		if status.running() {
			err = s.tick(ctx)
		}
		s.mu.Unlock(s.lg)

		switch {
		case err != nil:
			return err
		case status == StatusEnded:
			return nil
		case status == StatusStopped:
			return ErrSimulationStopped
		case status == StatusReady:
			return ErrNotRunning
		case status == StatusPaused:
			select {
			case <-s.wake:
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
}

// RunFor runs the simulation for d of simulated time and then pauses
// it.
func (s *Sim) RunFor(ctx context.Context, d time.Duration) error {
	s.mu.Lock(s.lg)
	s.runUntil = s.now.Add(d)
	s.mu.Unlock(s.lg)
	return s.Run(ctx)
}

type advanceResult struct {
	advanced bool
	nav.StepResult
}

// tick runs one global tick. The caller holds s.mu.
func (s *Sim) tick(ctx context.Context) error {
	dt := s.Config.Tick()
	now := s.now
	next := now.Add(dt)

	for _, ac := range s.Fleet.Aircraft {
		if ac.Status == AircraftScheduled && !ac.Flight.Departure.After(now) {
			s.activate(ac, now)
			if ac.Status == AircraftActive {
				s.recordSample(ac, now)
			} else {
				s.Stats.Failed++
			}
		}
	}

	if s.Config.EnableStrategicWeather &&
		(s.lastReroute.IsZero() || now.Sub(s.lastReroute) >= s.Config.StrategicWeatherPeriod) {
		s.Stats.Reroutes += s.rerouteStrategic(now)
		s.lastReroute = now
	}
	if s.Config.EnableTacticalWeather {
		s.checkTactical(now)
	}

	results, err := s.advanceAircraft(ctx, next, dt)
	if err != nil {
		return err
	}

	for i, r := range results {
		if !r.advanced {
			continue
		}
		ac := s.Fleet.Aircraft[i]
		s.processResult(ac, r, next)
	}

	for _, st := range s.Clearances.Watchdog(next) {
		s.Stats.StalledClearances++
		s.eventStream.Post(Event{Type: ClearanceStallEvent, Time: next, Callsign: st.Callsign,
			Text: fmt.Sprintf("%s pending %s", st.Kind, st.Pending)})
	}

	if s.Config.EnableCDNR {
		s.Stats.CDNREvents += s.detectConflicts(next)
	}

	for _, v := range s.Vehicles {
		driving := v.Status == VehicleDriving
		if v.Step(now, dt) {
			s.eventStream.Post(Event{Type: VehicleArrivedEvent, Time: next, Callsign: v.ID})
			s.lg.Info("vehicle arrived", "vehicle", v)
		}
		if driving || v.Status == VehicleDriving {
			s.addSample(v.ID, v.sample(next))
		}
	}

	for i, r := range results {
		if !r.advanced {
			continue
		}
		ac := s.Fleet.Aircraft[i]
		if r.PhaseChanged || r.Abnormal || r.Landed ||
			ac.State.Regime(s.Config.TRACONAltitude) != nav.RegimeAirborne ||
			next.Sub(ac.LastSample) >= s.Config.AirborneSamplePeriod {
			s.recordSample(ac, next)
		}
	}

	s.now = next
	s.Stats.Ticks++
	s.Stats.Active = s.Fleet.Count(AircraftActive)

	if !s.now.Before(s.Config.End) || s.finished() {
		s.setStatus(StatusEnded)
		s.lg.Info("simulation ended", "stats", s.Stats)
		s.finish()
	}
	return nil
}

// advanceAircraft accumulates dt for every active aircraft and advances
// the ones whose regime step has elapsed, using a pool of workers. Each
// aircraft is only touched by a single worker.
func (s *Sim) advanceAircraft(ctx context.Context, next time.Time, dt time.Duration) ([]advanceResult, error) {
	results := make([]advanceResult, s.Fleet.Len())

	idxCh := make(chan int)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer close(idxCh)
		for i := range s.Fleet.Active() {
			select {
			case idxCh <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for range max(1, s.Config.Workers) {
		eg.Go(func() error {
			for i := range idxCh {
				ac := s.Fleet.Aircraft[i]
				ac.Pending += dt
				// Aircraft under a conflict hold advance every tick so the
				// hold is released after exactly its number of ticks.
				if ac.State.HeldCDNR == 0 &&
					ac.Pending < s.Config.regimeStep(ac.State.Regime(s.Config.TRACONAltitude)) {
					continue
				}
				start := next.Add(-ac.Pending)
				results[i] = advanceResult{
					advanced:   true,
					StepResult: nav.Advance(ac.State, ac.env, start, ac.Pending),
				}
				ac.Pending = 0
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Sim) processResult(ac *Aircraft, r advanceResult, now time.Time) {
	st := ac.State
	for _, ph := range r.Phases {
		s.eventStream.Post(Event{Type: PhaseChangeEvent, Time: now, Callsign: st.Callsign, Phase: ph})
	}
	if r.Overflow {
		s.Stats.SubStepOverflows++
		s.lg.Warn("sub-step limit reached", "callsign", st.Callsign, "result", r.StepResult)
	}

	switch {
	case r.Abnormal:
		ac.Status = AircraftDone
		s.Stats.Abnormal++
		s.lg.Warn("abnormal termination", "callsign", st.Callsign, "phase", st.Phase.String(),
			"transitions", st.Transitions())
		s.lg.Debug("abnormal aircraft state", "callsign", st.Callsign, "dump", godump.DumpStr(st))
		s.eventStream.Post(Event{Type: AbnormalEvent, Time: now, Callsign: st.Callsign, Phase: st.Phase})
	case r.Landed:
		ac.Status = AircraftDone
		s.Stats.Landed++
		s.lg.Info("landed", "callsign", st.Callsign, "fuel_kg", st.FuelBurnedKg)
		s.eventStream.Post(Event{Type: LandedEvent, Time: now, Callsign: st.Callsign, Phase: st.Phase})
	}
}

// flush advances the aircraft through its accumulated Pending time so
// that its state corresponds to now.
func (s *Sim) flush(ac *Aircraft, now time.Time) {
	if ac.Pending == 0 {
		return
	}
	r := advanceResult{
		advanced:   true,
		StepResult: nav.Advance(ac.State, ac.env, now.Add(-ac.Pending), ac.Pending),
	}
	ac.Pending = 0
	s.processResult(ac, r, now)
	if r.PhaseChanged || r.Abnormal || r.Landed {
		s.recordSample(ac, now)
	}
}

func (s *Sim) recordSample(ac *Aircraft, t time.Time) {
	st := ac.State
	if s.Sectors != nil {
		ac.Sector = s.Sectors.Lookup(st.Position, st.Altitude, ac.Sector)
	}
	ac.LastSample = t
	s.addSample(ac.Callsign(), makeAircraftSample(st, t, ac.Sector))
}

func (s *Sim) addSample(id string, sample Sample) {
	s.Trajectories.Add(id, sample)
	s.Stats.Samples++
	if s.samples != nil {
		s.samples.Send(TaggedSample{ID: id, Sample: sample})
	}
}

// finished reports whether every aircraft and vehicle has completed.
func (s *Sim) finished() bool {
	if s.Fleet.Count(AircraftScheduled) > 0 || s.Fleet.Count(AircraftActive) > 0 {
		return false
	}
	for _, v := range s.Vehicles {
		if v.Status != VehicleArrived {
			return false
		}
	}
	return true
}

func (s *Sim) finish() {
	if s.samples != nil {
		s.samples.Close()
		s.samples = nil
	}
}

// Aircraft returns a copy of the state of the aircraft with the given
// callsign.
func (s *Sim) Aircraft(callsign string) (nav.AircraftState, AircraftStatus, error) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	ac, ok := s.Fleet.Lookup(callsign)
	if !ok {
		return nav.AircraftState{}, 0, fmt.Errorf("%s: %w", callsign, ErrUnknownCallsign)
	}
	if ac.State == nil {
		return nav.AircraftState{}, ac.Status, nil
	}
	return deep.MustCopy(*ac.State), ac.Status, nil
}

// DumpAbnormal writes the full state of every aircraft that latched an
// abnormal phase.
func (s *Sim) DumpAbnormal(w io.Writer) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	for _, ac := range s.Fleet.Aircraft {
		if ac.State != nil && ac.State.Phase.IsAbnormal() {
			fmt.Fprintf(w, "%s:\n", ac.Callsign())
			godump.Fdump(w, ac.State)
		}
	}
}
