// aviation/flightplan.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/mmp/trajgen/math"
)

// Reserved names of the synthetic top of climb and top of descent
// waypoints.
const (
	TopOfClimbName   = "TOP_OF_CLIMB_PT"
	TopOfDescentName = "TOP_OF_DESCENT_PT"
)

// Procedure types found in WaypointNode.ProcType.
const (
	ProcSID      = "SID"
	ProcEnroute  = "ENROUTE"
	ProcSTAR     = "STAR"
	ProcApproach = "APPROACH"
)

// FlightPlan is the airborne portion of an aircraft's plan, from the
// departure runway to the arrival runway.
type FlightPlan struct {
	Origin               string  `json:"origin" yaml:"origin"`
	Destination          string  `json:"destination" yaml:"destination"`
	OriginElevation      float64 `json:"origin_elevation" yaml:"origin_elevation"`
	DestinationElevation float64 `json:"destination_elevation" yaml:"destination_elevation"`
	CruiseAltitude       float64 `json:"cruise_altitude" yaml:"cruise_altitude"`
	CruiseTAS            float64 `json:"cruise_tas" yaml:"cruise_tas"`

	// GeoStyle plans tag each waypoint with the flight phase it belongs
	// to rather than a procedure type.
	GeoStyle bool `json:"geo_style,omitempty" yaml:"geo_style,omitempty"`

	Route *WaypointSequence `json:"-" yaml:"-"`

	TOC NodeID `json:"-" yaml:"-"`
	TOD NodeID `json:"-" yaml:"-"`
}

// NewFlightPlan returns a flight plan flying the given route.
func NewFlightPlan(origin, destination string, route ...WaypointNode) *FlightPlan {
	return &FlightPlan{
		Origin:      origin,
		Destination: destination,
		Route:       NewWaypointSequence(route...),
		TOC:         NoNode,
		TOD:         NoNode,
	}
}

func (fp *FlightPlan) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("origin", fp.Origin),
		slog.String("destination", fp.Destination),
		slog.Float64("cruise_altitude", fp.CruiseAltitude),
		slog.Int("waypoints", fp.Route.Len()),
		slog.Float64("length_nm", fp.PathLength()*math.FeetToNauticalMiles))
}

// PathLength returns the route's total great-circle length in feet.
func (fp *FlightPlan) PathLength() float64 {
	return fp.Route.PathLength()
}

// Clone returns a copy of the flight plan with its own route.
func (fp *FlightPlan) Clone() *FlightPlan {
	c := *fp
	c.Route = fp.Route.Clone()
	return &c
}

func (fp *FlightPlan) removeNamed(name string) {
	for {
		id := fp.Route.FindByNamePrefix(name)
		if id == NoNode {
			return
		}
		_ = fp.Route.Delete(id)
	}
}

// forwardSplit finds the point dist feet along the route after the node
// at index start. It returns the index at which a node at that point
// should be inserted.
func (fp *FlightPlan) forwardSplit(start int, dist float64) (int, math.Point2LL, bool) {
	r := fp.Route
	if start < 0 || start >= r.Len()-1 {
		return 0, math.Point2LL{}, false
	}

	s := 0.
	prev := r.At(start)
	for j := start + 1; j < r.Len(); j++ {
		cur := r.Next(prev)
		p0, p1 := r.Node(prev).Location, r.Node(cur).Location
		leg := math.DistanceGC(p0, p1, 0)
		if s+leg >= dist {
			return j, math.DestinationGC(p0, math.HeadingGC(p0, p1), dist-s, 0), true
		}
		s += leg
		prev = cur
	}
	return 0, math.Point2LL{}, false
}

// backwardSplit finds the point dist feet before the node at index end,
// measured back along the route. It returns the index at which a node
// at that point should be inserted.
func (fp *FlightPlan) backwardSplit(end int, dist float64) (int, math.Point2LL, bool) {
	r := fp.Route
	if end <= 0 || end >= r.Len() {
		return 0, math.Point2LL{}, false
	}

	s := 0.
	next := r.At(end)
	for j := end; j > 0; j-- {
		cur := r.Prev(next)
		p0, p1 := r.Node(cur).Location, r.Node(next).Location
		leg := math.DistanceGC(p0, p1, 0)
		if s+leg >= dist {
			// Distance from p0 along the leg toward p1.
			return j, math.DestinationGC(p0, math.HeadingGC(p0, p1), s+leg-dist, 0), true
		}
		s += leg
		next = cur
	}
	return 0, math.Point2LL{}, false
}

func (fp *FlightPlan) insertSynthetic(index int, name string, p math.Point2LL, alt float64, phase string) NodeID {
	// Synthetic points inherit the procedure of the leg they split.
	var procName, procType string
	if prev := fp.Route.Node(fp.Route.At(index - 1)); prev != nil {
		procName, procType = prev.ProcName, prev.ProcType
	}
	id, err := fp.Route.InsertAt(index, WaypointNode{
		Name:             name,
		Type:             "synthetic",
		Location:         p,
		AltDesc:          "@",
		Alt1:             alt,
		AltitudeEstimate: alt,
		ProcName:         procName,
		ProcType:         procType,
		Phase:            phase,
	})
	if err != nil {
		return NoNode
	}
	return id
}

// InsertTopOfClimb inserts the top of climb point climbDist feet along
// the route from its first waypoint, replacing any existing one. Routes
// that begin enroute or later don't get one. The ID of the new node is
// returned, or NoNode if none was inserted.
func (fp *FlightPlan) InsertTopOfClimb(climbDist float64) NodeID {
	fp.TOC = NoNode
	head := fp.Route.Node(fp.Route.Head())
	if head == nil {
		return NoNode
	}
	switch head.ProcType {
	case ProcEnroute, ProcSTAR, ProcApproach:
		return NoNode
	}

	fp.removeNamed(TopOfClimbName)
	fp.TOC = fp.insertTopOfClimbAfter(0, climbDist, fp.CruiseAltitude, PhaseTopOfClimb.String())
	return fp.TOC
}

func (fp *FlightPlan) insertTopOfClimbAfter(start int, climbDist, alt float64, phase string) NodeID {
	r := fp.Route
	if r.Len() < 2 {
		return NoNode
	}
	if r.Len() < 3 {
		// With only the two runway ends, the point goes directly along
		// the first leg.
		p0, p1 := r.Node(r.Head()).Location, r.Node(r.Tail()).Location
		return fp.insertSynthetic(1, TopOfClimbName, math.DestinationGC(p0, math.HeadingGC(p0, p1), climbDist, 0), alt, phase)
	}
	if j, p, ok := fp.forwardSplit(start, climbDist); ok {
		return fp.insertSynthetic(j, TopOfClimbName, p, alt, phase)
	}
	return NoNode
}

// InsertTopOfDescent inserts the top of descent point descentDist feet
// before the end of the route, replacing any existing one.
func (fp *FlightPlan) InsertTopOfDescent(descentDist float64) NodeID {
	fp.TOD = NoNode
	head := fp.Route.Node(fp.Route.Head())
	if head == nil {
		return NoNode
	}
	switch head.ProcType {
	case ProcSTAR, ProcApproach:
		return NoNode
	}

	fp.removeNamed(TopOfDescentName)
	if j, p, ok := fp.backwardSplit(fp.Route.Len()-1, descentDist); ok {
		fp.TOD = fp.insertSynthetic(j, TopOfDescentName, p, fp.CruiseAltitude, PhaseTopOfDescent.String())
	}
	return fp.TOD
}

// InsertTopOfDescentFrom is like InsertTopOfDescent but measures the
// descent distance back from the waypoint at the given index, normally
// the first arrival waypoint with an altitude constraint.
func (fp *FlightPlan) InsertTopOfDescentFrom(descentDist float64, index int) NodeID {
	fp.TOD = NoNode
	head := fp.Route.Node(fp.Route.Head())
	if head == nil || head.ProcType == ProcApproach {
		return NoNode
	}

	fp.removeNamed(TopOfDescentName)
	if index >= fp.Route.Len() {
		return NoNode
	}
	if j, p, ok := fp.backwardSplit(index, descentDist); ok {
		fp.TOD = fp.insertSynthetic(j, TopOfDescentName, p, fp.CruiseAltitude, PhaseTopOfDescent.String())
	}
	return fp.TOD
}

// FirstArrivalConstraintIndex returns the index of the first STAR
// waypoint with an altitude constraint, or -1 if there is none.
func (fp *FlightPlan) FirstArrivalConstraintIndex() int {
	for i, n := range fp.Route.All() {
		if n.ProcType != ProcSTAR {
			continue
		}
		if _, ok := n.ConstraintAltitude(); ok {
			return i
		}
	}
	return -1
}

// geoSkip reports whether a geo-style plan whose first waypoint is in
// the given phase gets no top of climb or descent.
func geoSkip(tag string, ph FlightPhase, ok bool) bool {
	return tag == PhaseCruise.String() || (ok && ph.IsDescending())
}

// InsertTopOfClimbGeoStyle inserts the top of climb into a geo-style
// plan. The first waypoint's phase tag is used as-is, so only the full
// "FLIGHT_PHASE_X" form identifies a phase here.
func (fp *FlightPlan) InsertTopOfClimbGeoStyle(climbDist, cruiseAlt float64) NodeID {
	fp.TOC = NoNode
	head := fp.Route.Node(fp.Route.Head())
	if head == nil {
		return NoNode
	}
	ph, ok := lookupPrefixedPhase(head.Phase)
	if geoSkip(head.Phase, ph, ok) {
		return NoNode
	}

	fp.removeNamed(TopOfClimbName)
	fp.TOC = fp.insertTopOfClimbAfter(0, climbDist, cruiseAlt, PhaseTopOfClimb.String())
	return fp.TOC
}

// InsertTopOfClimbGeoStyleFrom inserts the top of climb climbDist feet
// after the waypoint at startIndex. Unlike InsertTopOfClimbGeoStyle, the
// first waypoint's phase tag is taken to be a bare phase name.
func (fp *FlightPlan) InsertTopOfClimbGeoStyleFrom(climbDist, cruiseAlt float64, startIndex int) NodeID {
	fp.TOC = NoNode
	head := fp.Route.Node(fp.Route.Head())
	if head == nil {
		return NoNode
	}
	ph, ok := lookupPrefixedPhase(legacyPhasePrefix + head.Phase)
	if geoSkip(head.Phase, ph, ok) {
		return NoNode
	}

	fp.removeNamed(TopOfClimbName)
	if startIndex == 0 {
		fp.TOC = fp.insertTopOfClimbAfter(0, climbDist, cruiseAlt, PhaseTopOfClimb.String())
	} else if j, p, ok := fp.forwardSplit(startIndex, climbDist); ok {
		fp.TOC = fp.insertSynthetic(j, TopOfClimbName, p, cruiseAlt, PhaseTopOfClimb.String())
	}
	return fp.TOC
}

// InsertTopOfDescentGeoStyle inserts the top of descent into a
// geo-style plan, descentDist feet before its last waypoint.
func (fp *FlightPlan) InsertTopOfDescentGeoStyle(descentDist, cruiseAlt float64) NodeID {
	fp.TOD = NoNode
	head := fp.Route.Node(fp.Route.Head())
	if head == nil {
		return NoNode
	}
	ph, ok := lookupPrefixedPhase(head.Phase)
	if geoSkip(head.Phase, ph, ok) {
		return NoNode
	}

	fp.removeNamed(TopOfDescentName)
	if j, p, ok := fp.backwardSplit(fp.Route.Len()-1, descentDist); ok {
		fp.TOD = fp.insertSynthetic(j, TopOfDescentName, p, cruiseAlt, PhaseTopOfDescent.String())
	}
	return fp.TOD
}

// InsertTopOfDescentGeoStyleFrom measures the descent back from the
// waypoint at the given index. Plans that start on the approach don't
// get one.
func (fp *FlightPlan) InsertTopOfDescentGeoStyleFrom(descentDist, cruiseAlt float64, index int) NodeID {
	fp.TOD = NoNode
	head := fp.Route.Node(fp.Route.Head())
	if head == nil || head.Phase == PhaseApproach.String() {
		return NoNode
	}

	fp.removeNamed(TopOfDescentName)
	if j, p, ok := fp.backwardSplit(index, descentDist); ok {
		fp.TOD = fp.insertSynthetic(j, TopOfDescentName, p, cruiseAlt, PhaseTopOfDescent.String())
	}
	return fp.TOD
}

// PlanProfile fits the cruise altitude to the route, inserts the top of
// climb and descent points and resolves the waypoint altitudes.
func (fp *FlightPlan) PlanProfile(db *PerformanceDB, typeIdx int) error {
	if fp.Route.Len() < 2 {
		return fmt.Errorf("%s-%s: route has %d waypoints: %w", fp.Origin, fp.Destination, fp.Route.Len(),
			ErrMalformedSequence)
	}

	prof, err := db.CruiseAltitudeFor(typeIdx, fp.PathLength(), fp.OriginElevation, fp.DestinationElevation,
		fp.CruiseAltitude)
	if err != nil {
		return fmt.Errorf("%s-%s: %w", fp.Origin, fp.Destination, err)
	}
	fp.CruiseAltitude = prof.Altitude

	if fp.GeoStyle {
		fp.InsertTopOfClimbGeoStyle(prof.ClimbDistance, prof.Altitude)
	} else {
		fp.InsertTopOfClimb(prof.ClimbDistance)
	}

	fp.removeNamed(TopOfDescentName)
	descentDist := prof.DescentDistance
	arrival := fp.FirstArrivalConstraintIndex()
	if arrival > 0 {
		// Descend to the first arrival constraint rather than the field.
		alt, _ := fp.Route.Node(fp.Route.At(arrival)).ConstraintAltitude()
		if descentDist, err = db.DescentDistance(typeIdx, alt, prof.Altitude); err != nil {
			return err
		}
	}

	switch {
	case fp.GeoStyle && arrival > 0:
		fp.InsertTopOfDescentGeoStyleFrom(descentDist, prof.Altitude, arrival)
	case fp.GeoStyle:
		fp.InsertTopOfDescentGeoStyle(descentDist, prof.Altitude)
	case arrival > 0:
		fp.InsertTopOfDescentFrom(descentDist, arrival)
	default:
		fp.InsertTopOfDescent(descentDist)
	}

	fp.ResolveAltitudes()
	return nil
}

// ResolveAltitudes fills in AltitudeEstimate for every waypoint. The
// ends of the route are at the field elevations, the cruise segment from
// top of climb to top of descent is at the cruise altitude, and
// waypoints with altitude constraints use them. Any others are
// interpolated by route distance between the nearest resolved waypoints
// on either side.
func (fp *FlightPlan) ResolveAltitudes() {
	r := fp.Route
	n := r.Len()
	if n == 0 {
		return
	}

	ids := make([]NodeID, 0, n)
	for _, id := range r.IDs() {
		ids = append(ids, id)
	}
	resolved := make([]bool, n)

	tocIdx, todIdx := slices.Index(ids, fp.TOC), slices.Index(ids, fp.TOD)
	for i, id := range ids {
		node := r.Node(id)
		switch {
		case i == 0:
			node.AltitudeEstimate = fp.OriginElevation
		case i == n-1:
			node.AltitudeEstimate = fp.DestinationElevation
		case tocIdx != -1 && i >= tocIdx && (todIdx == -1 || i <= todIdx):
			node.AltitudeEstimate = fp.CruiseAltitude
		default:
			if alt, ok := node.ConstraintAltitude(); ok {
				node.AltitudeEstimate = alt
			} else if node.AltitudeEstimate == 0 {
				continue
			}
		}
		resolved[i] = true
	}

	// Cumulative route distance to each waypoint.
	dist := make([]float64, n)
	for i := 1; i < n; i++ {
		dist[i] = dist[i-1] + r.Node(ids[i-1]).DistanceToNext
	}

	prev := 0
	for i := 1; i < n; i++ {
		if !resolved[i] {
			continue
		}
		a0, a1 := r.Node(ids[prev]).AltitudeEstimate, r.Node(ids[i]).AltitudeEstimate
		for k := prev + 1; k < i; k++ {
			t := 0.
			if d := dist[i] - dist[prev]; d > 0 {
				t = (dist[k] - dist[prev]) / d
			}
			r.Node(ids[k]).AltitudeEstimate = math.Lerp(t, a0, a1)
		}
		prev = i
	}
}
