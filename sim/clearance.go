// sim/clearance.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"
	"time"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/log"
	"github.com/mmp/trajgen/nav"
	"github.com/mmp/trajgen/rand"
	"github.com/mmp/trajgen/util"
)

// ClearanceDelay models the human response latency for a clearance: the
// pilot's time to make the request and the controller's time to grant
// it.
type ClearanceDelay struct {
	Pilot      time.Duration `json:"pilot" yaml:"pilot"`
	Controller time.Duration `json:"controller" yaml:"controller"`
}

func (d ClearanceDelay) Total() time.Duration { return d.Pilot + d.Controller }

var defaultClearanceDelay = ClearanceDelay{Pilot: 5 * time.Second, Controller: 10 * time.Second}

// ClearanceDelays are the delay tables consulted by the clearance
// protocol. Per-aircraft entries, keyed by callsign, override the
// per-kind defaults.
type ClearanceDelays struct {
	Kinds       map[av.ClearanceKind]ClearanceDelay            `json:"kinds,omitempty" yaml:"kinds,omitempty"`
	PerAircraft map[string]map[av.ClearanceKind]ClearanceDelay `json:"per_aircraft,omitempty" yaml:"per_aircraft,omitempty"`
	// Jitter is the fraction by which each delay is uniformly perturbed
	// when its record is created.
	Jitter float64 `json:"jitter,omitempty" yaml:"jitter,omitempty"`
}

func DefaultClearanceDelays() ClearanceDelays {
	d := ClearanceDelays{Kinds: make(map[av.ClearanceKind]ClearanceDelay)}
	for k := range av.NumClearanceKinds {
		d.Kinds[k] = defaultClearanceDelay
	}
	return d
}

func (d *ClearanceDelays) lookup(callsign string, kind av.ClearanceKind) ClearanceDelay {
	if m, ok := d.PerAircraft[callsign]; ok {
		if cd, ok := m[kind]; ok {
			return cd
		}
	}
	if cd, ok := d.Kinds[kind]; ok {
		return cd
	}
	return defaultClearanceDelay
}

func (d *ClearanceDelays) validate(e *util.ErrorLogger) {
	e.Push("clearance_delays")
	defer e.Pop()

	check := func(kind av.ClearanceKind, cd ClearanceDelay) {
		if kind < 0 || kind >= av.NumClearanceKinds {
			e.ErrorString("%s: %s", kind, av.ErrUnknownClearanceKind)
		}
		if cd.Pilot < 0 || cd.Controller < 0 {
			e.ErrorString("%s: negative delay", kind)
		}
	}
	for kind, cd := range d.Kinds {
		check(kind, cd)
	}
	for _, cs := range util.SortedMapKeys(d.PerAircraft) {
		e.Push(cs)
		for kind, cd := range d.PerAircraft[cs] {
			check(kind, cd)
		}
		e.Pop()
	}
	if d.Jitter < 0 || d.Jitter >= 1 {
		e.ErrorString("jitter %f must be in [0,1)", d.Jitter)
	}
}

// ClearanceRecord tracks one (aircraft, clearance kind) request.
type ClearanceRecord struct {
	Decision  av.ClearanceDecision
	Requested time.Time
	Decided   time.Time
	Delay     time.Duration
	Stalled   bool
}

func (r ClearanceRecord) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("decision", r.Decision.String())}
	if r.Decision != av.ClearanceUnrequested {
		attrs = append(attrs, slog.Time("requested", r.Requested), slog.Duration("delay", r.Delay))
	}
	if r.Decision == av.ClearanceGranted {
		attrs = append(attrs, slog.Time("decided", r.Decided))
	}
	return slog.GroupValue(attrs...)
}

type aircraftClearances struct {
	Callsign string
	Records  [av.NumClearanceKinds]ClearanceRecord
	rand     *rand.Rand
}

// ClearanceProtocol holds the request/delay/grant state for every
// aircraft. Each aircraft's records are only touched by the worker
// advancing it, so no locking is needed during the parallel pass.
type ClearanceProtocol struct {
	delays    ClearanceDelays
	seed      int64
	aircraft  []aircraftClearances
	threshold time.Duration
	lg        *log.Logger
}

func NewClearanceProtocol(delays ClearanceDelays, seed int64, stallThreshold time.Duration,
	lg *log.Logger) *ClearanceProtocol {
	return &ClearanceProtocol{
		delays:    delays,
		seed:      seed,
		threshold: stallThreshold,
		lg:        lg,
	}
}

// Add registers an aircraft and returns the index used to refer to it.
func (cp *ClearanceProtocol) Add(callsign string) int {
	idx := len(cp.aircraft)
	cp.aircraft = append(cp.aircraft, aircraftClearances{
		Callsign: callsign,
		rand:     rand.MakeSeeded(cp.seed + int64(idx)),
	})
	return idx
}

// Check returns the decision for the aircraft's clearance of the given
// kind at now. The first call creates a pending request; it is granted
// once the combined pilot and controller delay has elapsed since the
// request. A granted clearance stays granted.
func (cp *ClearanceProtocol) Check(ac int, kind av.ClearanceKind, now time.Time) av.ClearanceDecision {
	a := &cp.aircraft[ac]
	rec := &a.Records[kind]

	switch rec.Decision {
	case av.ClearanceUnrequested:
		delay := cp.delays.lookup(a.Callsign, kind).Total()
		if cp.delays.Jitter > 0 {
			delay = time.Duration(a.rand.Jitter(float64(delay), cp.delays.Jitter))
		}
		*rec = ClearanceRecord{Decision: av.ClearancePending, Requested: now, Delay: delay}
		nav.NavLog(a.Callsign, now, nav.NavLogClearance, "requested %s, delay %s", kind, delay)
		fallthrough
	case av.ClearancePending:
		if now.Sub(rec.Requested) >= rec.Delay {
			rec.Decision = av.ClearanceGranted
			rec.Decided = rec.Requested.Add(rec.Delay)
			nav.NavLog(a.Callsign, now, nav.NavLogClearance, "granted %s", kind)
		}
	}
	return rec.Decision
}

// SkipRequestClearance grants the aircraft's clearance of the given kind
// without a request.
func (cp *ClearanceProtocol) SkipRequestClearance(ac int, kind av.ClearanceKind) {
	cp.aircraft[ac].Records[kind] = ClearanceRecord{Decision: av.ClearanceGranted}
}

// Record returns the current record for the aircraft's clearance of the
// given kind.
func (cp *ClearanceProtocol) Record(ac int, kind av.ClearanceKind) ClearanceRecord {
	return cp.aircraft[ac].Records[kind]
}

// StalledClearance identifies a clearance request that has been pending
// for longer than the stall threshold.
type StalledClearance struct {
	Callsign string
	Kind     av.ClearanceKind
	Pending  time.Duration
}

// Watchdog reports each request that has been pending for longer than
// the stall threshold, once, and returns the ones newly reported.
// Requests whose delay has elapsed are grantable at their next check and
// are not reported.
func (cp *ClearanceProtocol) Watchdog(now time.Time) []StalledClearance {
	if cp.threshold <= 0 || util.DebuggerIsRunning() {
		return nil
	}
	var stalled []StalledClearance
	for i := range cp.aircraft {
		a := &cp.aircraft[i]
		for kind := range av.NumClearanceKinds {
			rec := &a.Records[kind]
			if rec.Decision != av.ClearancePending || rec.Stalled {
				continue
			}
			if waited := now.Sub(rec.Requested); waited > cp.threshold && waited < rec.Delay {
				rec.Stalled = true
				stalled = append(stalled, StalledClearance{Callsign: a.Callsign, Kind: kind, Pending: waited})
				cp.lg.Warn("clearance stalled", "callsign", a.Callsign, "kind", kind.String(),
					"pending", waited, "record", *rec)
			}
		}
	}
	return stalled
}

// Checker returns the nav.ClearanceChecker for a single aircraft.
func (cp *ClearanceProtocol) Checker(ac int) nav.ClearanceChecker {
	return aircraftChecker{cp: cp, ac: ac}
}

type aircraftChecker struct {
	cp *ClearanceProtocol
	ac int
}

func (c aircraftChecker) Check(kind av.ClearanceKind, now time.Time) av.ClearanceDecision {
	return c.cp.Check(c.ac, kind, now)
}
