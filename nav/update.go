// nav/update.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"log/slog"
	"slices"
	"time"

	av "github.com/mmp/trajgen/aviation"
)

// MaxSubSteps bounds the number of transition and kinematics sub-steps
// taken in a single call to Advance.
const MaxSubSteps = 64

// Regime selects the integration step used for an aircraft.
type Regime int

const (
	RegimeSurface Regime = iota
	RegimeTerminal
	RegimeAirborne
)

func (r Regime) String() string {
	return [...]string{"surface", "terminal", "airborne"}[r]
}

// Regime returns the integration regime for the aircraft's current
// phase and altitude.
func (st *AircraftState) Regime(traconAltitude float64) Regime {
	switch {
	case st.Phase.IsGround():
		return RegimeSurface
	case st.Altitude < traconAltitude:
		return RegimeTerminal
	default:
		return RegimeAirborne
	}
}

// StepResult summarizes a call to Advance.
type StepResult struct {
	// Consumed is always equal to the dt passed to Advance.
	Consumed time.Duration
	SubSteps int
	// Phases lists the phases entered, in order.
	Phases       []av.FlightPhase
	PhaseChanged bool
	// Stalled is set if a clearance-gated transition was pending.
	Stalled  bool
	Abnormal bool
	Landed   bool
	// Overflow is set if the sub-step limit was reached; the rest of the
	// time was consumed without moving.
	Overflow bool
}

func (r StepResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("consumed", r.Consumed),
		slog.Int("substeps", r.SubSteps),
		slog.Any("phases", r.Phases),
		slog.Bool("stalled", r.Stalled),
		slog.Bool("abnormal", r.Abnormal),
		slog.Bool("landed", r.Landed),
		slog.Bool("overflow", r.Overflow))
}

// Transitions returns the phases the aircraft has entered, in order.
func (st *AircraftState) Transitions() []av.FlightPhase {
	return slices.Clone(st.transitions)
}

// RestoreTransitions replaces the phase history; it is used when
// restoring saved state.
func (st *AircraftState) RestoreTransitions(tr []av.FlightPhase) {
	st.transitions = slices.Clone(tr)
}

// Advance propagates the aircraft for dt starting at now. It repeatedly
// checks the current phase's transition rule and runs its kinematics
// until the whole of dt has been consumed; a single call may cross
// several waypoints and phase boundaries.
func Advance(st *AircraftState, env *Env, now time.Time, dt time.Duration) StepResult {
	var res StepResult
	st.Remaining = dt
	st.PhaseChanged = false

	consume := func(d time.Duration) {
		d = max(0, min(d, st.Remaining))
		if d > 0 {
			st.FuelBurnedKg += st.fuelFlow(env.Perf) * d.Minutes()
		}
		st.Remaining -= d
		st.PhaseTime += d
		res.Consumed += d
	}
	finish := func() StepResult {
		res.PhaseChanged = st.PhaseChanged
		res.Abnormal = st.Phase.IsAbnormal()
		res.Landed = st.Phase == av.PhaseLanded
		return res
	}

	if st.Phase.IsTerminal() {
		st.TAS, st.GS, st.ROCD = 0, 0, 0
		consume(st.Remaining)
		return finish()
	}

	if st.HeldCDNR > 0 {
		hold := min(st.Remaining, st.HeldCDNR)
		st.TAS, st.GS, st.ROCD, st.FPA = 0, 0, 0, 0
		consume(hold)
		st.HeldCDNR -= hold
		if st.HeldCDNR == 0 {
			st.TAS = st.PreHoldTAS
			NavLog(st.Callsign, now.Add(hold), NavLogState, "conflict hold released, tas %.1f", st.TAS)
		}
	}
	if st.HeldTactical {
		st.GS, st.ROCD, st.FPA = 0, 0, 0
		consume(st.Remaining)
		return finish()
	}

	for st.Remaining > 0 {
		if res.SubSteps == MaxSubSteps {
			env.Lg.Warn("sub-step limit reached", "callsign", st.Callsign, "phase", st.Phase.String(),
				"remaining", st.Remaining)
			res.Overflow = true
			consume(st.Remaining)
			break
		}
		res.SubSteps++

		t := now.Add(dt - st.Remaining)
		st.maybeStartIncident(env, t)

		h := &phaseHandlers[st.Phase]
		next, stalled := h.transition(st, env, t)
		st.AwaitingClearance = stalled
		if next != st.Phase {
			st.setPhase(next, env, t)
			res.Phases = append(res.Phases, next)
			if next.IsTerminal() {
				consume(st.Remaining)
				break
			}
			continue
		}
		if stalled {
			// Wait in place for the clearance.
			res.Stalled = true
			st.stationary(st.Remaining)
			consume(st.Remaining)
			break
		}

		ph := st.Phase
		elapsed := h.kinematics(st, env, t, st.Remaining)
		consume(elapsed)
		if st.Phase != ph {
			// The kinematics latched a runway deviation.
			res.Phases = append(res.Phases, st.Phase)
			consume(st.Remaining)
			break
		}
	}

	return finish()
}

// setPhase switches to the given phase and runs its entry action, unless
// the aircraft is resuming a phase it was in before a hold or incident.
func (st *AircraftState) setPhase(next av.FlightPhase, env *Env, now time.Time) {
	NavLog(st.Callsign, now, NavLogPhase, "%s -> %s", st.Phase, next)
	st.Phase = next
	st.PhaseTime = 0
	st.PhaseChanged = true
	st.transitions = append(st.transitions, next)

	if st.resumed {
		st.resumed = false
	} else if enter := phaseHandlers[next].enter; enter != nil {
		enter(st, env, now)
	}

	switch {
	case next == av.PhaseLanded:
		st.stationary(0)
		env.Lg.Info("landed", "callsign", st.Callsign, "fuel_kg", st.FuelBurnedKg)
	case next.IsAbnormal():
		st.GS, st.ROCD, st.FPA = 0, 0, 0
		env.Lg.Warn("abnormal flight event", "callsign", st.Callsign, "phase", next.String(),
			"position", st.Position.DDString(), "altitude", st.Altitude)
	}
}

// maybeStartIncident starts the aircraft's scripted incident, if it has
// one, once its time has come and the aircraft is airborne and not
// already holding.
func (st *AircraftState) maybeStartIncident(env *Env, now time.Time) {
	inc := st.Incident
	if inc == nil || inc.Started || now.Before(inc.At) {
		return
	}
	if st.Phase.IsGround() || st.Phase.IsHolding() || st.Phase == av.PhaseUserIncident || st.ResumePhase != nil ||
		st.Phase == av.PhaseFinalApproach || st.Phase == av.PhaseTouchdown {
		return
	}

	inc.Started = true
	resume := st.Phase
	env.Lg.Info("incident", "callsign", st.Callsign, "phase", inc.Phase.String(), "duration", inc.Duration)
	if inc.Phase.IsHolding() {
		st.beginHold(resume, inc.Duration)
	} else {
		st.ResumePhase = &resume
	}
	st.setPhase(inc.Phase, env, now)
}
