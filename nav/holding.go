// nav/holding.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"fmt"
	"time"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/math"
)

// Holding pattern dimensions, in nautical miles.
const (
	HoldLegLength = 5
	HoldWidth     = 2.5
	// HoldRingPoints is the number of points in a holding ring; the
	// first and last are both the holding fix.
	HoldRingPoints = 9
)

// HoldingRing returns a right-hand racetrack holding pattern at fix for
// an aircraft arriving on inboundCourse (radians). The ring starts and
// ends at the fix; it turns right onto the outbound leg, flies
// HoldLegLength, and turns back inbound.
func HoldingRing(fix math.Point2LL, inboundCourse, alt float64) *av.WaypointSequence {
	leg := HoldLegLength * math.NauticalMilesToFeet
	r := HoldWidth / 2 * math.NauticalMilesToFeet
	c := inboundCourse
	back := c + math.Pi
	right, left := c+math.Pi/2, c-math.Pi/2

	// Centers of the two turns.
	c1 := math.DestinationGC(fix, right, r, 0)
	c2 := math.DestinationGC(c1, back, leg, 0)

	outStart := math.DestinationGC(c1, right, r, 0)
	inStart := math.DestinationGC(c2, left, r, 0)
	pts := [HoldRingPoints]math.Point2LL{
		fix,
		math.DestinationGC(c1, c, r, 0),
		outStart,
		math.DestinationGC(outStart, back, leg/2, 0),
		math.DestinationGC(c2, right, r, 0),
		math.DestinationGC(c2, back, r, 0),
		inStart,
		math.DestinationGC(inStart, c, leg/2, 0),
		fix,
	}

	s := av.NewWaypointSequence()
	for i, p := range pts {
		s.Append(av.WaypointNode{
			Name:             fmt.Sprintf("HOLD%d", i+1),
			Type:             NodeHold,
			Location:         p,
			AltDesc:          "@",
			Alt1:             alt,
			AltitudeEstimate: alt,
		})
	}
	s.UpdateLegs()
	return s
}

// beginHold builds a holding ring at the aircraft's current position
// and switches to it. When the ring has been flown at least once and
// holdFor has elapsed, the aircraft resumes its previous plan in the
// resume phase.
func (st *AircraftState) beginHold(resume av.FlightPhase, holdFor time.Duration) {
	st.ResumePhase = &resume
	st.HoldFor = holdFor
	st.PreHoldPlan, st.PreHoldTarget = st.ActivePlan, st.Target
	st.Holding = HoldingRing(st.Position, st.Course, st.Altitude)
	st.setPlan(PlanHolding)
}

// resume returns from a hold or incident to the phase and plan that
// were active before it.
func (st *AircraftState) resume() av.FlightPhase {
	next := defaultResumePhase(st.Phase)
	if st.ResumePhase != nil {
		next = *st.ResumePhase
	}
	st.ResumePhase = nil
	st.resumed = true
	if st.ActivePlan == PlanHolding {
		st.ActivePlan, st.Target = st.PreHoldPlan, st.PreHoldTarget
		st.Last = st.Sequence().Prev(st.Target)
		st.Holding = nil
		st.PreHoldTarget = av.NoNode
	}
	return next
}

func holdTransition(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
	if st.Holding == nil {
		// A hold entered directly rather than through beginHold.
		st.beginHold(defaultResumePhase(st.Phase), st.HoldFor)
	}
	if st.Target == av.NoNode && st.PhaseTime >= st.HoldFor {
		NavLog(st.Callsign, now, NavLogHold, "leaving hold after %s, resuming %s", st.PhaseTime,
			*st.ResumePhase)
		return st.resume(), false
	}
	return st.Phase, false
}

func defaultResumePhase(ph av.FlightPhase) av.FlightPhase {
	switch ph {
	case av.PhaseHoldInDeparturePattern:
		return av.PhaseClimbToCruiseAltitude
	case av.PhaseHoldInArrivalPattern:
		return av.PhaseInitialDescent
	default:
		return av.PhaseCruise
	}
}

func holdKinematics(st *AircraftState, env *Env, now time.Time, dt time.Duration) time.Duration {
	if st.Target == av.NoNode {
		// Another lap.
		st.setPlan(PlanHolding)
		NavLog(st.Callsign, now, NavLogHold, "starting another lap of the hold")
	}
	n := st.TargetNode()
	return st.flyRoute(env, now, st.holdTAS(env), n.AltitudeEstimate, env.Perf.DescentRate(st.Altitude, av.Nominal), dt)
}

func (st *AircraftState) holdTAS(env *Env) float64 {
	if st.Phase == av.PhaseHoldInArrivalPattern {
		return env.Perf.DescentTAS(st.Altitude)
	}
	return env.Perf.CruiseTAS(st.Altitude)
}
