// nav/runway.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"time"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/math"
)

// Runway deviation thresholds.
const (
	// Relative heading between the bearing to the runway end and the
	// runway course beyond which the aircraft is considered to be
	// deviating.
	RunwayDeviationAngle = 10 // degrees
	RunwayOvershootAngle = 90 // degrees
	// Lateral offset from the centerline beyond which a deviating
	// aircraft has left the runway.
	RunwayLateralLimit = 250 // ft
)

// Synthesized airport geometry, in feet.
const (
	thresholdCrossingHeight = 50
	gateToRunway            = 1000
	rampOffset              = 300
	taxiwayOffset           = 400
	exitOffset              = 500
	minRunwayLength         = 5000
	// FinalApproachFixDistance is the distance from the threshold to the
	// final approach fix, in nautical miles.
	FinalApproachFixDistance = 5
	finalApproachFixHeight   = 1500
	goAroundDistance         = 2 // nm past the runway end
	goAroundHeight           = 2000
)

// checkRunwayDeviation classifies a takeoff or landing roll deviation
// and latches it. Undershoot applies only to takeoff, where the whole
// runway has been used without reaching V2.
func (st *AircraftState) checkRunwayDeviation(env *Env, now time.Time, rwy *av.Runway, takeoff bool) (av.FlightPhase, bool) {
	if st.AbnormalOnRunway {
		return st.Phase, false
	}
	if takeoff && st.TAS >= st.V2 {
		return st.Phase, false
	}

	along, lateral := rwy.Project(st.Position)
	next := st.Phase
	switch {
	case takeoff && along > rwy.Length():
		next = av.PhaseRunwayUndershoot
	case math.DistanceGC(st.Position, st.RunwayEnd, 0) > 1:
		brg := math.HeadingGC(st.Position, st.RunwayEnd)
		rel := math.Degrees(math.RadiansDifference(brg, rwy.Course()))
		if rel > RunwayOvershootAngle {
			next = av.PhaseRunwayOvershoot
		} else if rel > RunwayDeviationAngle && math.Abs(lateral) > RunwayLateralLimit {
			next = av.PhaseOutOfRunway
		}
	}
	if next == st.Phase {
		return next, false
	}

	st.AbnormalOnRunway = true
	NavLog(st.Callsign, now, NavLogRunway, "%s: along %.0f ft lateral %.0f ft tas %.1f", next, along, lateral, st.TAS)
	env.Lg.Warn("runway deviation", "callsign", st.Callsign, "phase", next.String(),
		"along", along, "lateral", lateral, "tas", st.TAS)
	return next, true
}

// RunwayLengthFor returns the runway length synthesized for an aircraft
// type: long enough for both the takeoff roll to V2 and the landing
// rollout from VRef, with margin.
func RunwayLengthFor(perf *av.PerformanceTable) float64 {
	v2 := perf.V2() * math.KnotsToFeetPerSecond
	vref := perf.VRef() * math.KnotsToFeetPerSecond
	length := max(perf.TakeoffLength, perf.LandingLength,
		v2*v2/(2*takeoffAcceleration(perf)), vref*vref/(2*landingDeceleration(perf)))
	return max(minRunwayLength, 1.25*length)
}

func takeoffAcceleration(perf *av.PerformanceTable) float64 {
	if a := perf.TakeoffAcceleration(); a > 0 {
		return a
	}
	return defaultTakeoffAcceleration
}

func landingDeceleration(perf *av.PerformanceTable) float64 {
	if a := perf.LandingDeceleration(); a > 0 {
		return a
	}
	return defaultLandingDeceleration
}

// synthesizeDepartureRunway places a runway aligned with the first leg
// of the route, starting a short distance from the origin.
func synthesizeDepartureRunway(fp *av.FlightPlan, perf *av.PerformanceTable) *av.Runway {
	r := fp.Route
	p0, p1 := r.Node(r.Head()).Location, r.Node(r.Next(r.Head())).Location
	course := math.HeadingGC(p0, p1)
	thr := math.DestinationGC(p0, course, gateToRunway, 0)
	return &av.Runway{
		Id:        "DEP",
		Airport:   fp.Origin,
		Threshold: thr,
		End:       math.DestinationGC(thr, course, RunwayLengthFor(perf), 0),
		Elevation: fp.OriginElevation,
	}
}

// synthesizeArrivalRunway places a runway aligned with the final leg of
// the route, ending a short distance before the destination.
func synthesizeArrivalRunway(fp *av.FlightPlan, perf *av.PerformanceTable) *av.Runway {
	r := fp.Route
	pn, pp := r.Node(r.Tail()).Location, r.Node(r.Prev(r.Tail())).Location
	// Final course into the destination.
	course := math.HeadingGC(pn, pp) + math.Pi
	end := math.DestinationGC(pn, course+math.Pi, gateToRunway, 0)
	return &av.Runway{
		Id:        "ARR",
		Airport:   fp.Destination,
		Threshold: math.DestinationGC(end, course+math.Pi, RunwayLengthFor(perf), 0),
		End:       end,
		Elevation: fp.DestinationElevation,
	}
}

// synthesizeDepartingTaxi returns a gate to runway taxi plan: off the
// gate onto the ramp, along a taxiway, and onto the runway threshold.
func synthesizeDepartingTaxi(fp *av.FlightPlan, rwy *av.Runway) *av.WaypointSequence {
	gate := fp.Route.Node(fp.Route.Head()).Location
	left := rwy.Course() - math.Pi/2
	return av.NewWaypointSequence(
		av.WaypointNode{Name: fp.Origin + "_GATE", Type: NodeGate, Location: gate},
		av.WaypointNode{Name: fp.Origin + "_RAMP", Type: NodeRamp, Location: math.DestinationGC(gate, left, rampOffset, 0)},
		av.WaypointNode{Name: fp.Origin + "_TWY", Type: NodeTaxiway, Location: math.DestinationGC(rwy.Threshold, left, taxiwayOffset, 0)},
		av.WaypointNode{Name: rwy.Id, Type: NodeRunway, Location: rwy.Threshold},
	)
}

// synthesizeLandingTaxi returns a runway to gate taxi plan: off the
// runway end onto a taxiway, then across the ramp to the gate.
func synthesizeLandingTaxi(fp *av.FlightPlan, rwy *av.Runway) *av.WaypointSequence {
	gate := fp.Route.Node(fp.Route.Tail()).Location
	right := rwy.Course() + math.Pi/2
	return av.NewWaypointSequence(
		av.WaypointNode{Name: rwy.Id, Type: NodeRunway, Location: rwy.End},
		av.WaypointNode{Name: fp.Destination + "_TWY", Type: NodeTaxiway, Location: math.DestinationGC(rwy.End, right, exitOffset, 0)},
		av.WaypointNode{Name: fp.Destination + "_RAMP", Type: NodeRamp, Location: math.DestinationGC(gate, right, rampOffset, 0)},
		av.WaypointNode{Name: fp.Destination + "_GATE", Type: NodeGate, Location: gate},
	)
}

// finalApproachFix returns the point on the extended centerline
// FinalApproachFixDistance before the threshold.
func finalApproachFix(rwy *av.Runway) math.Point2LL {
	return math.DestinationGC(rwy.Threshold, rwy.Course()+math.Pi, FinalApproachFixDistance*math.NauticalMilesToFeet, 0)
}

func goAroundPoint(rwy *av.Runway) math.Point2LL {
	return math.DestinationGC(rwy.End, rwy.Course(), goAroundDistance*math.NauticalMilesToFeet, 0)
}
