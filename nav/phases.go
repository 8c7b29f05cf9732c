// nav/phases.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"fmt"
	"time"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/math"
	"github.com/mmp/trajgen/util"
)

// PushbackDuration is how long an aircraft takes to push back from the
// gate.
const PushbackDuration = 60 * time.Second

// ApproachActivationDistance is the distance from the arrival threshold,
// in nautical miles, inside which a descending aircraft starts its
// approach regardless of altitude.
const ApproachActivationDistance = 30

// transitionFunc decides the phase for the next sub-step. It returns
// the current phase if the aircraft stays in it; stalled is true if a
// clearance the transition needs is still pending.
type transitionFunc func(st *AircraftState, env *Env, now time.Time) (next av.FlightPhase, stalled bool)

// kinematicsFunc moves the aircraft for at most dt and returns the time
// actually consumed, which is less than dt if a waypoint or other
// boundary was reached.
type kinematicsFunc func(st *AircraftState, env *Env, now time.Time, dt time.Duration) time.Duration

type phaseHandler struct {
	enter      func(st *AircraftState, env *Env, now time.Time)
	transition transitionFunc
	kinematics kinematicsFunc
}

var phaseHandlers [av.NumFlightPhases]phaseHandler

func init() {
	stay := func(st *AircraftState, env *Env, now time.Time, dt time.Duration) time.Duration {
		return st.stationary(dt)
	}
	always := func(next av.FlightPhase) transitionFunc {
		return func(*AircraftState, *Env, time.Time) (av.FlightPhase, bool) { return next, false }
	}
	gated := func(kind av.ClearanceKind, next av.FlightPhase) transitionFunc {
		return func(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
			return st.clearedTo(env, now, kind, next)
		}
	}

	phaseHandlers[av.PhasePredeparture] = phaseHandler{transition: always(av.PhaseOriginGate), kinematics: stay}
	phaseHandlers[av.PhaseOriginGate] = phaseHandler{
		transition: gated(av.ClearancePushback, av.PhasePushback),
		kinematics: stay,
	}
	phaseHandlers[av.PhasePushback] = phaseHandler{
		transition: func(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
			return util.Select(st.PhaseTime >= PushbackDuration, av.PhaseRampDeparting, st.Phase), false
		},
		kinematics: func(st *AircraftState, env *Env, now time.Time, dt time.Duration) time.Duration {
			return st.stationary(min(dt, PushbackDuration-st.PhaseTime))
		},
	}
	phaseHandlers[av.PhaseRampDeparting] = phaseHandler{
		transition: rampDepartingTransition,
		kinematics: taxiAt(RampSpeed),
	}
	phaseHandlers[av.PhaseTaxiDeparting] = phaseHandler{
		transition: taxiTransition,
		kinematics: taxiAt(TaxiSpeed),
	}
	phaseHandlers[av.PhaseRunwayThresholdDeparting] = phaseHandler{
		transition: gated(av.ClearanceTakeoff, av.PhaseTakeoff),
		kinematics: stay,
	}
	phaseHandlers[av.PhaseTakeoff] = phaseHandler{
		enter: enterTakeoff,
		transition: func(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
			return util.Select(st.TAS >= st.V2, av.PhaseClimbout, st.Phase), false
		},
		kinematics: takeoffKinematics,
	}
	phaseHandlers[av.PhaseClimbout] = phaseHandler{
		enter: func(st *AircraftState, env *Env, now time.Time) {
			if st.ActivePlan != PlanAirborne {
				st.setPlan(PlanAirborne)
				LogRoute(st.Callsign, now, st.Sequence(), st.Target)
			}
		},
		transition: climboutTransition,
		kinematics: func(st *AircraftState, env *Env, now time.Time, dt time.Duration) time.Duration {
			p := env.Perf
			alt := min(env.traconAltitude(), st.CruiseAltitude)
			return st.flyRoute(env, now, p.ClimbTAS(st.Altitude), alt, p.ClimbRate(st.Altitude, av.Nominal), dt)
		},
	}
	phaseHandlers[av.PhaseClimbToCruiseAltitude] = phaseHandler{
		transition: func(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
			if st.Altitude >= st.CruiseAltitude || st.passed(st.Plans.Airborne.TOC) {
				return av.PhaseTopOfClimb, false
			}
			return st.Phase, false
		},
		kinematics: func(st *AircraftState, env *Env, now time.Time, dt time.Duration) time.Duration {
			p := env.Perf
			return st.flyRoute(env, now, p.ClimbTAS(st.Altitude), st.CruiseAltitude, p.ClimbRate(st.Altitude, av.Nominal), dt)
		},
	}
	phaseHandlers[av.PhaseTopOfClimb] = phaseHandler{transition: always(av.PhaseCruise), kinematics: cruiseKinematics}
	phaseHandlers[av.PhaseCruise] = phaseHandler{
		transition: func(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
			fp := st.Plans.Airborne
			if st.passed(fp.TOD) || (fp.TOD == av.NoNode && st.Target == fp.Route.Tail()) {
				return av.PhaseTopOfDescent, false
			}
			return st.Phase, false
		},
		kinematics: cruiseKinematics,
	}
	phaseHandlers[av.PhaseTopOfDescent] = phaseHandler{
		transition: gated(av.ClearanceDescentFromCruise, av.PhaseInitialDescent),
		kinematics: cruiseKinematics,
	}
	phaseHandlers[av.PhaseInitialDescent] = phaseHandler{
		transition: initialDescentTransition,
		kinematics: func(st *AircraftState, env *Env, now time.Time, dt time.Duration) time.Duration {
			alt := st.Altitude
			if n := st.TargetNode(); n != nil {
				alt = min(alt, n.AltitudeEstimate)
			}
			alt = max(alt, st.DestinationElevation+finalApproachFixHeight)
			p := env.Perf
			return st.flyRoute(env, now, p.DescentTAS(st.Altitude), alt, p.DescentRate(st.Altitude, av.Nominal), dt)
		},
	}
	phaseHandlers[av.PhaseApproach] = phaseHandler{
		enter:      enterApproach,
		transition: approachTransition,
		kinematics: func(st *AircraftState, env *Env, now time.Time, dt time.Duration) time.Duration {
			alt := min(st.Altitude, st.RunwayElevation+finalApproachFixHeight)
			p := env.Perf
			elapsed, _ := st.fly(env, now, st.FinalApproachFix, p.DescentTAS(st.Altitude), alt,
				p.DescentRate(st.Altitude, av.Nominal), dt)
			return elapsed
		},
	}
	phaseHandlers[av.PhaseFinalApproach] = phaseHandler{
		enter: func(st *AircraftState, env *Env, now time.Time) {
			// Request the touchdown clearance early so it is normally
			// granted by the time the aircraft reaches the threshold.
			env.cleared(av.ClearanceTouchdown, now)
			st.TAS = st.VRef
		},
		transition: func(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
			if !at(st.Position, st.RunwayEntry) {
				return st.Phase, false
			}
			if env.cleared(av.ClearanceTouchdown, now) {
				return av.PhaseTouchdown, false
			}
			NavLog(st.Callsign, now, NavLogClearance, "no touchdown clearance at threshold, going around")
			return av.PhaseGoAround, false
		},
		kinematics: finalApproachKinematics,
	}
	phaseHandlers[av.PhaseGoAround] = phaseHandler{
		enter: func(st *AircraftState, env *Env, now time.Time) {
			st.GoAroundSplit = st.Position
			st.GoAroundPoint = goAroundPoint(env.ArrivalRunway)
			env.Lg.Info("go around", "callsign", st.Callsign, "at", st.Position.DDString())
		},
		transition: func(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
			if !at(st.Position, st.GoAroundPoint) {
				return st.Phase, false
			}
			st.beginHold(av.PhaseApproach, 0)
			return av.PhaseHoldInArrivalPattern, false
		},
		kinematics: func(st *AircraftState, env *Env, now time.Time, dt time.Duration) time.Duration {
			p := env.Perf
			elapsed, _ := st.fly(env, now, st.GoAroundPoint, p.ClimbTAS(st.Altitude), st.RunwayElevation+goAroundHeight,
				p.ClimbRate(st.Altitude, av.Nominal), dt)
			return elapsed
		},
	}
	phaseHandlers[av.PhaseTouchdown] = phaseHandler{
		enter: func(st *AircraftState, env *Env, now time.Time) {
			st.Altitude = st.RunwayElevation
			st.ROCD, st.FPA = 0, 0
		},
		transition: always(av.PhaseLand),
		kinematics: stay,
	}
	phaseHandlers[av.PhaseLand] = phaseHandler{
		enter: func(st *AircraftState, env *Env, now time.Time) {
			st.Acceleration = -landingDeceleration(env.Perf)
			st.Course = env.ArrivalRunway.Course()
		},
		transition: func(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
			return util.Select(st.TAS <= RunwayExitSpeed, av.PhaseExitRunway, st.Phase), false
		},
		kinematics: func(st *AircraftState, env *Env, now time.Time, dt time.Duration) time.Duration {
			elapsed := st.runwayRoll(RunwayExitSpeed, dt)
			if next, ok := st.checkRunwayDeviation(env, now.Add(elapsed), env.ArrivalRunway, false); ok {
				st.setPhase(next, env, now.Add(elapsed))
			}
			return elapsed
		},
	}
	phaseHandlers[av.PhaseExitRunway] = phaseHandler{
		transition: gated(av.ClearanceTaxiLanding, av.PhaseTaxiArriving),
		kinematics: stay,
	}
	phaseHandlers[av.PhaseTaxiArriving] = phaseHandler{
		enter: func(st *AircraftState, env *Env, now time.Time) {
			if st.ActivePlan != PlanLandingTaxi {
				st.setPlan(PlanLandingTaxi)
			}
		},
		transition: taxiArrivingTransition,
		kinematics: taxiAt(TaxiSpeed),
	}
	phaseHandlers[av.PhaseRunwayCrossing] = phaseHandler{
		transition: func(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
			if st.targetType() == NodeCrossing {
				return st.Phase, false
			}
			return util.Select(st.ActivePlan == PlanDepartingTaxi, av.PhaseTaxiDeparting, av.PhaseTaxiArriving), false
		},
		kinematics: taxiAt(CrossingSpeed),
	}
	phaseHandlers[av.PhaseRampArriving] = phaseHandler{
		transition: func(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
			return util.Select(st.Target == av.NoNode, av.PhaseDestinationGate, st.Phase), false
		},
		kinematics: taxiAt(RampSpeed),
	}
	phaseHandlers[av.PhaseDestinationGate] = phaseHandler{transition: always(av.PhaseLanded), kinematics: stay}

	for _, ph := range []av.FlightPhase{av.PhaseHoldInDeparturePattern, av.PhaseHoldInEnroutePattern,
		av.PhaseHoldInArrivalPattern, av.PhaseHolding} {
		phaseHandlers[ph] = phaseHandler{transition: holdTransition, kinematics: holdKinematics}
	}
	phaseHandlers[av.PhaseUserIncident] = phaseHandler{
		transition: func(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
			if st.Incident == nil || st.PhaseTime >= st.Incident.Duration {
				return st.resume(), false
			}
			return st.Phase, false
		},
		kinematics: func(st *AircraftState, env *Env, now time.Time, dt time.Duration) time.Duration {
			st.GS, st.ROCD, st.FPA = 0, 0, 0
			if st.Incident != nil {
				dt = min(dt, st.Incident.Duration-st.PhaseTime)
			}
			return dt
		},
	}

	for ph := range av.NumFlightPhases {
		h := phaseHandlers[ph]
		if !ph.IsTerminal() && (h.transition == nil || h.kinematics == nil) {
			panic(fmt.Sprintf("%s: no phase handler", ph))
		}
	}
}

func at(a, b math.Point2LL) bool {
	return math.DistanceGC(a, b, 0) < 1
}

// passed returns true if the aircraft has flown past the given node of
// its airborne route.
func (st *AircraftState) passed(id av.NodeID) bool {
	if id == av.NoNode || st.ActivePlan != PlanAirborne || st.Last == av.NoNode {
		return false
	}
	r := st.Plans.Airborne.Route
	return r.IndexOf(st.Last) >= r.IndexOf(id)
}

// clearedTo returns next if the clearance has been granted and the
// current phase, stalled, otherwise.
func (st *AircraftState) clearedTo(env *Env, now time.Time, kind av.ClearanceKind, next av.FlightPhase) (av.FlightPhase, bool) {
	if env.cleared(kind, now) {
		return next, false
	}
	return st.Phase, true
}

func taxiAt(speed float64) kinematicsFunc {
	return func(st *AircraftState, env *Env, now time.Time, dt time.Duration) time.Duration {
		return st.taxi(speed, dt, now)
	}
}

func rampDepartingTransition(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
	switch st.targetType() {
	case "":
		return av.PhaseRunwayThresholdDeparting, false
	case NodeGate, NodeRamp:
		return st.Phase, false
	default:
		return st.clearedTo(env, now, av.ClearanceTaxiDeparting, av.PhaseTaxiDeparting)
	}
}

func taxiTransition(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
	switch st.targetType() {
	case "":
		return av.PhaseRunwayThresholdDeparting, false
	case NodeCrossing:
		return av.PhaseRunwayCrossing, false
	default:
		return st.Phase, false
	}
}

func taxiArrivingTransition(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
	switch st.targetType() {
	case "":
		return av.PhaseDestinationGate, false
	case NodeCrossing:
		return av.PhaseRunwayCrossing, false
	case NodeGate, NodeRamp:
		return st.clearedTo(env, now, av.ClearanceRampLanding, av.PhaseRampArriving)
	default:
		return st.Phase, false
	}
}

func enterTakeoff(st *AircraftState, env *Env, now time.Time) {
	rwy := env.DepartureRunway
	st.RunwayEntry, st.RunwayEnd = rwy.Threshold, rwy.End
	st.RunwayElevation = rwy.Elevation
	st.Position, st.Altitude = rwy.Threshold, rwy.Elevation
	st.Course = rwy.Course()
	st.TAS, st.GS = 0, 0
	st.Acceleration = takeoffAcceleration(env.Perf)
	st.AbnormalOnRunway = false
}

func takeoffKinematics(st *AircraftState, env *Env, now time.Time, dt time.Duration) time.Duration {
	elapsed := st.runwayRoll(st.V2, dt)
	if next, ok := st.checkRunwayDeviation(env, now.Add(elapsed), env.DepartureRunway, true); ok {
		st.setPhase(next, env, now.Add(elapsed))
	}
	return elapsed
}

func climboutTransition(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
	// An aircraft stopped while waiting for a clearance has not stalled.
	if !st.AwaitingClearance && st.TAS < env.Perf.VStall.InitialClimb {
		env.Lg.Warn("takeoff stall", "callsign", st.Callsign, "tas", st.TAS,
			"vstall", env.Perf.VStall.InitialClimb)
		return av.PhaseTakeoffStall, false
	}
	if st.Altitude >= min(env.traconAltitude(), st.CruiseAltitude) {
		return st.clearedTo(env, now, av.ClearanceEnterARTC, av.PhaseClimbToCruiseAltitude)
	}
	return st.Phase, false
}

func cruiseKinematics(st *AircraftState, env *Env, now time.Time, dt time.Duration) time.Duration {
	p := env.Perf
	rate := util.Select(st.Altitude < st.CruiseAltitude, p.ClimbRate(st.Altitude, av.Nominal),
		p.DescentRate(st.Altitude, av.Nominal))
	return st.flyRoute(env, now, st.CruiseTAS, st.CruiseAltitude, rate, dt)
}

func initialDescentTransition(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
	near := math.NMDistanceGC(st.Position, env.ArrivalRunway.Threshold) <= ApproachActivationDistance
	if st.Altitude <= env.traconAltitude() || near || st.Target == av.NoNode {
		return st.clearedTo(env, now, av.ClearanceEnterTRACON, av.PhaseApproach)
	}
	return st.Phase, false
}

func enterApproach(st *AircraftState, env *Env, now time.Time) {
	rwy := env.ArrivalRunway
	st.RunwayEntry, st.RunwayEnd = rwy.Threshold, rwy.End
	st.RunwayElevation = rwy.Elevation
	st.FinalApproachFix = finalApproachFix(rwy)
	// As with touchdown, request the approach clearance well before the
	// fix.
	env.cleared(av.ClearanceApproach, now)
}

func approachTransition(st *AircraftState, env *Env, now time.Time) (av.FlightPhase, bool) {
	if !at(st.Position, st.FinalApproachFix) {
		return st.Phase, false
	}
	if env.cleared(av.ClearanceApproach, now) {
		return av.PhaseFinalApproach, false
	}
	NavLog(st.Callsign, now, NavLogClearance, "no approach clearance at the final approach fix, holding")
	st.beginHold(av.PhaseApproach, 0)
	return av.PhaseHoldInArrivalPattern, false
}

// finalApproachKinematics flies to the threshold at VRef with the
// vertical rate that crosses it at the threshold crossing height.
func finalApproachKinematics(st *AircraftState, env *Env, now time.Time, dt time.Duration) time.Duration {
	target := st.RunwayElevation + thresholdCrossingHeight
	if d := math.DistanceGC(st.Position, st.RunwayEntry, 0); d > 0 {
		st.Course = math.HeadingGC(st.Position, st.RunwayEntry)
	}
	st.TAS, st.FPA = st.VRef, 0
	st.updateGroundSpeed(env, now)

	rate := 0.
	if v := st.GS * math.KnotsToFeetPerSecond; v > 0 {
		mins := math.DistanceGC(st.Position, st.RunwayEntry, 0) / v / 60
		if mins > 0 {
			rate = (target - st.Altitude) / mins
		}
	}
	elapsed, _ := st.fly(env, now, st.RunwayEntry, st.VRef, target, rate, dt)
	return elapsed
}
