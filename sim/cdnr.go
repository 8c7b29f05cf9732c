// sim/cdnr.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"time"

	"github.com/mmp/trajgen/math"
	"github.com/mmp/trajgen/nav"
)

// Flight levels at and above which aircraft need the larger vertical
// separation.
const (
	cdnrHighAltitude         = 29000
	cdnrVerticalSeparationLo = 1000
	cdnrVerticalSeparationHi = 2000
)

// conflictTrack is the part of an aircraft's state that conflict
// detection reads.
type conflictTrack struct {
	Index    int
	Callsign string
	Position math.Point2LL
	Altitude float64
	Course   float64 // radians
	GS       float64 // knots
	Regime   nav.Regime
	// Time is the simulation time the state corresponds to.
	Time time.Time
	Held bool
}

// conflict describes a predicted loss of separation between two
// aircraft.
type conflict struct {
	Point math.Point2LL
	// T1 and T2 are the times each aircraft reaches Point.
	T1, T2 time.Time
	// Separation is the predicted distance between the two when the
	// first reaches Point, in feet.
	Separation float64
	Required   float64
}

func verticalSeparation(a, b *conflictTrack) float64 {
	if max(a.Altitude, b.Altitude) >= cdnrHighAltitude {
		return cdnrVerticalSeparationHi
	}
	return cdnrVerticalSeparationLo
}

// predictConflict projects both aircraft along their current great
// circle tracks to the point where the tracks cross and reports a
// conflict if, when the first reaches it, the second is closer to it
// than the required separation. Aircraft on the same great circle,
// head-on or in trail, have no crossing point and are not detected.
func predictConflict(a, b *conflictTrack, cfg *CDNRConfig) (conflict, bool) {
	if math.Abs(a.Altitude-b.Altitude) > verticalSeparation(a, b) {
		return conflict{}, false
	}

	dist := cfg.distances(min(a.Regime, b.Regime))
	if math.DistanceGC(a.Position, b.Position, 0) > dist.Initiation {
		return conflict{}, false
	}
	if a.GS <= 0 || b.GS <= 0 {
		return conflict{}, false
	}

	x, ok := math.IntersectTracks(a.Position, a.Course, b.Position, b.Course)
	if !ok {
		return conflict{}, false
	}

	va, vb := a.GS*math.KnotsToFeetPerSecond, b.GS*math.KnotsToFeetPerSecond
	da, db := math.DistanceGC(a.Position, x, 0), math.DistanceGC(b.Position, x, 0)
	ta := a.Time.Add(time.Duration(da / va * float64(time.Second)))
	tb := b.Time.Add(time.Duration(db / vb * float64(time.Second)))

	// The second aircraft's distance from the crossing point when the
	// first passes it, taking the slower of the two speeds.
	sep := math.Abs(tb.Sub(ta).Seconds()) * min(va, vb)
	if sep >= dist.Separation {
		return conflict{}, false
	}
	return conflict{Point: x, T1: ta, T2: tb, Separation: sep, Required: dist.Separation}, true
}

// snapshotTracks captures the conflict-relevant state of every active
// aircraft before any of them are modified by the resolution pass.
func (s *Sim) snapshotTracks(now time.Time) []conflictTrack {
	var tracks []conflictTrack
	for i, ac := range s.Fleet.Active() {
		st := ac.State
		tracks = append(tracks, conflictTrack{
			Index:    i,
			Callsign: ac.Callsign(),
			Position: st.Position,
			Altitude: st.Altitude,
			Course:   st.Course,
			GS:       st.GS,
			Regime:   st.Regime(s.Config.TRACONAltitude),
			Time:     ac.StateTime(now),
			Held:     st.HeldCDNR > 0 || st.HeldTactical,
		})
	}
	return tracks
}

// detectConflicts runs conflict detection and resolution over all
// unordered pairs of active, unheld aircraft. Of each conflicting pair,
// the aircraft that reaches the crossing point later is held for
// DelaySteps ticks; when both reach it at the same time, the one with
// the lower fleet index is held. It returns the number of holds issued.
func (s *Sim) detectConflicts(now time.Time) int {
	tracks := s.snapshotTracks(now)
	hold := s.Config.Tick() * time.Duration(s.Config.CDNR.DelaySteps)

	n := 0
	for i := range tracks {
		a := &tracks[i]
		for j := i + 1; j < len(tracks); j++ {
			b := &tracks[j]
			if a.Held || b.Held {
				continue
			}
			c, ok := predictConflict(a, b, &s.Config.CDNR)
			if !ok {
				continue
			}

			held, other := a, b
			if c.T2.After(c.T1) {
				held, other = b, a
			}
			held.Held = true
			if s.holdForConflict(s.Fleet.Aircraft[held.Index], other.Callsign, c, hold, now) {
				n++
			}
			if a.Held {
				break
			}
		}
	}
	return n
}

// holdForConflict stops the aircraft for the given time, starting now.
// It returns false if bringing the aircraft up to now ended its flight.
func (s *Sim) holdForConflict(ac *Aircraft, other string, c conflict, hold time.Duration, now time.Time) bool {
	s.flush(ac, now)
	if ac.Status != AircraftActive {
		return false
	}

	st := ac.State
	st.PreHoldTAS = st.TAS
	st.TAS, st.GS = 0, 0
	st.HeldCDNR = hold
	st.TimeToConflict = c.T1.Sub(now)
	if c.T2.After(c.T1) {
		st.TimeToConflict = c.T2.Sub(now)
	}

	nav.NavLog(st.Callsign, now, nav.NavLogState, "conflict with %s, held %s", other, hold)
	s.lg.Info("conflict hold", "callsign", st.Callsign, "other", other, "hold", hold,
		"separation", c.Separation, "required", c.Required, "point", c.Point.DDString())
	s.eventStream.Post(Event{
		Type:     ConflictHoldEvent,
		Time:     now,
		Callsign: st.Callsign,
		Other:    other,
		Phase:    st.Phase,
		Text:     fmt.Sprintf("predicted separation %.0f ft at %s", c.Separation, c.Point.DDString()),
	})
	return true
}
