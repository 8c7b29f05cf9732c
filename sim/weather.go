// sim/weather.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"maps"
	"slices"
	"time"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/math"
	"github.com/mmp/trajgen/nav"
)

// WeatherPolygon is a region of convective weather that routes are
// planned around while it is active.
type WeatherPolygon struct {
	Name     string          `json:"name" yaml:"name"`
	Vertices []math.Point2LL `json:"vertices" yaml:"vertices"`
	Floor    float64         `json:"floor,omitempty" yaml:"floor,omitempty"`
	Ceiling  float64         `json:"ceiling,omitempty" yaml:"ceiling,omitempty"`
	// Start and End bound the time the polygon is active; a zero End
	// means it stays active.
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end,omitempty" yaml:"end,omitempty"`
}

func (w *WeatherPolygon) Active(t time.Time) bool {
	return !t.Before(w.Start) && (w.End.IsZero() || t.Before(w.End))
}

// Blocks reports whether the point is inside the polygon's altitude band
// and boundary. A zero ceiling means the polygon extends all the way up.
func (w *WeatherPolygon) Blocks(p math.Point2LL, alt float64) bool {
	if alt < w.Floor || (w.Ceiling > 0 && alt > w.Ceiling) {
		return false
	}
	return math.PolygonContains(w.Vertices, p)
}

// TacticalWaypoint is a waypoint that aircraft may not proceed to while
// it is active.
type TacticalWaypoint struct {
	Name  string    `json:"name" yaml:"name"`
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end,omitempty" yaml:"end,omitempty"`
}

func (w *TacticalWaypoint) Active(t time.Time) bool {
	return !t.Before(w.Start) && (w.End.IsZero() || t.Before(w.End))
}

// Airway connects two named points of the reroute network.
type Airway struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Weather holds the strategic weather polygons and the network used to
// plan around them, along with the tactical weather waypoints.
type Weather struct {
	Polygons []WeatherPolygon   `json:"polygons,omitempty" yaml:"polygons,omitempty"`
	Tactical []TacticalWaypoint `json:"tactical,omitempty" yaml:"tactical,omitempty"`
	// Network gives the reroute graph's points; Airways its edges.
	Network map[string]math.Point2LL `json:"network,omitempty" yaml:"network,omitempty"`
	Airways []Airway                 `json:"airways,omitempty" yaml:"airways,omitempty"`

	graph *av.Graph
}

// buildGraph constructs the reroute graph from the network and airways.
func (w *Weather) buildGraph() error {
	g := &av.Graph{}
	for _, name := range slices.Sorted(maps.Keys(w.Network)) {
		g.AddNode(name, w.Network[name])
	}
	for _, aw := range w.Airways {
		a, ok := g.Lookup(aw.From)
		if !ok {
			return fmt.Errorf("airway %s-%s: %s: %w", aw.From, aw.To, aw.From, ErrUnknownWaypoint)
		}
		b, ok := g.Lookup(aw.To)
		if !ok {
			return fmt.Errorf("airway %s-%s: %s: %w", aw.From, aw.To, aw.To, ErrUnknownWaypoint)
		}
		if err := g.AddEdge(a, b); err != nil {
			return err
		}
	}
	w.graph = g
	return nil
}

func (w *Weather) blocked(p math.Point2LL, alt float64, t time.Time) bool {
	for i := range w.Polygons {
		if w.Polygons[i].Active(t) && w.Polygons[i].Blocks(p, alt) {
			return true
		}
	}
	return false
}

func (w *Weather) tacticalActive(name string, t time.Time) bool {
	for i := range w.Tactical {
		if w.Tactical[i].Name == name && w.Tactical[i].Active(t) {
			return true
		}
	}
	return false
}

// rerouteStrategic replans the remaining airborne route of every active
// aircraft around the weather polygons active at now. Each maximal run
// of future waypoints inside a polygon is replaced by the shortest path
// through the reroute network between the waypoints on either side of
// it that avoids every active polygon. It returns the number of
// aircraft rerouted.
func (s *Sim) rerouteStrategic(now time.Time) int {
	w := s.Weather
	if w == nil || w.graph == nil || len(w.graph.Nodes) == 0 {
		return 0
	}

	n := 0
	for _, ac := range s.Fleet.Active() {
		st := ac.State
		if st.ActivePlan != nav.PlanAirborne || st.Phase.IsDescending() {
			continue
		}
		rerouted, err := s.rerouteAircraft(ac, now)
		if err != nil {
			s.lg.Warn("strategic reroute failed", "callsign", ac.Callsign(), "error", err)
			continue
		}
		if rerouted {
			n++
			nav.LogRoute(st.Callsign, now, st.Plans.Airborne.Route, st.Last)
			s.eventStream.Post(Event{Type: RerouteEvent, Time: now, Callsign: st.Callsign, Phase: st.Phase})
		}
	}
	return n
}

func (s *Sim) rerouteAircraft(ac *Aircraft, now time.Time) (bool, error) {
	w := s.Weather
	st := ac.State
	fp := st.Plans.Airborne
	r := fp.Route

	// Collect the runs of blocked waypoints ahead of the aircraft. The
	// destination and the top of climb and descent points are never
	// rerouted.
	type run struct{ first, last av.NodeID }
	var runs []run
	var cur *run
	for id := st.Target; id != av.NoNode && id != r.Tail(); id = r.Next(id) {
		node := r.Node(id)
		if id != fp.TOC && id != fp.TOD && w.blocked(node.Location, node.AltitudeEstimate, now) {
			if cur == nil {
				runs = append(runs, run{first: id, last: id})
				cur = &runs[len(runs)-1]
			} else {
				cur.last = id
			}
		} else {
			cur = nil
		}
	}
	if len(runs) == 0 {
		return false, nil
	}

	g := w.graph
	for _, rn := range runs {
		from := r.Node(r.Prev(rn.first))
		fromLoc := st.Position
		if from != nil && rn.first != st.Target {
			fromLoc = from.Location
		}
		to := r.Node(r.Next(rn.last))

		start, end := g.Nearest(fromLoc), g.Nearest(to.Location)
		alt := r.Node(rn.first).AltitudeEstimate
		path, _, err := g.FindShortestPath(start, end,
			func(i int) float64 { return math.DistanceGC(g.Nodes[i], g.Nodes[end], 0) },
			func(i int) bool { return !w.blocked(g.Nodes[i], alt, now) })
		if err != nil {
			return false, fmt.Errorf("%s: %w", ac.Callsign(), err)
		}

		// Splice: insert the path before the first blocked waypoint and
		// then remove the blocked ones.
		idx := r.IndexOf(rn.first)
		var firstNew av.NodeID = av.NoNode
		for _, gi := range path {
			id, err := r.InsertAt(idx, av.WaypointNode{
				Name:     g.Names[gi],
				Type:     "reroute",
				Location: g.Nodes[gi],
				ProcType: av.ProcEnroute,
			})
			if err != nil {
				return false, err
			}
			if firstNew == av.NoNode {
				firstNew = id
			}
			idx++
		}
		retarget := false
		for id := rn.first; ; {
			next := r.Next(id)
			retarget = retarget || id == st.Target
			if err := r.Delete(id); err != nil {
				return false, err
			}
			if id == rn.last {
				break
			}
			id = next
		}
		if retarget {
			st.Target = firstNew
			if st.Target == av.NoNode {
				st.Target = r.Next(st.Last)
			}
		}
	}

	r.UpdateLegs()
	fp.ResolveAltitudes()
	s.lg.Info("strategic reroute", "callsign", ac.Callsign(), "plan", fp)
	return true, nil
}

// checkTactical holds each airborne aircraft whose next waypoint is an
// active tactical weather waypoint and releases those whose waypoint is
// no longer active.
func (s *Sim) checkTactical(now time.Time) {
	w := s.Weather
	if w == nil {
		return
	}
	for _, ac := range s.Fleet.Active() {
		st := ac.State
		held := false
		if n := st.TargetNode(); n != nil && !st.Phase.IsGround() {
			held = w.tacticalActive(n.Name, now)
		}
		if held == st.HeldTactical {
			continue
		}
		st.HeldTactical = held
		typ := TacticalReleaseEvent
		if held {
			typ = TacticalHoldEvent
			s.Stats.TacticalHolds++
		}
		var name string
		if n := st.TargetNode(); n != nil {
			name = n.Name
		}
		nav.NavLog(st.Callsign, now, nav.NavLogState, "tactical weather hold %v at %s", held, name)
		s.eventStream.Post(Event{Type: typ, Time: now, Callsign: st.Callsign, Phase: st.Phase, Text: name})
	}
}
