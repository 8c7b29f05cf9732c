// aviation/runway.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"strings"

	"github.com/mmp/trajgen/math"
)

// Runway is one direction of a runway: aircraft depart or land starting
// at Threshold and heading toward End.
type Runway struct {
	Id        string        `json:"id" yaml:"id"`
	Airport   string        `json:"airport,omitempty" yaml:"airport,omitempty"`
	Threshold math.Point2LL `json:"threshold" yaml:"threshold"`
	End       math.Point2LL `json:"end" yaml:"end"`
	Elevation float64       `json:"elevation" yaml:"elevation"` // ft
	Width     float64       `json:"width,omitempty" yaml:"width,omitempty"`
}

// Course returns the true course from the threshold to the runway end,
// in radians.
func (r *Runway) Course() float64 {
	return math.HeadingGC(r.Threshold, r.End)
}

// Length returns the runway length in feet.
func (r *Runway) Length() float64 {
	return math.DistanceGC(r.Threshold, r.End, 0)
}

// Project returns the distance of p along the runway centerline from the
// threshold and its signed lateral offset from the centerline, both in
// feet; positive lateral offsets are right of centerline.
func (r *Runway) Project(p math.Point2LL) (along, lateral float64) {
	lateral, along = math.CrossTrack(r.Threshold, r.Course(), p)
	return
}

type Airport struct {
	ICAO      string        `json:"icao" yaml:"icao"`
	Location  math.Point2LL `json:"location" yaml:"location"`
	Elevation float64       `json:"elevation" yaml:"elevation"`
	Runways   []Runway      `json:"runways" yaml:"runways"`
}

// Runway returns the runway with the given identifier.
func (ap *Airport) Runway(id string) (*Runway, error) {
	id = strings.TrimSpace(id)
	for i := range ap.Runways {
		if ap.Runways[i].Id == id {
			return &ap.Runways[i], nil
		}
	}
	return nil, fmt.Errorf("%s runway %s: %w", ap.ICAO, id, ErrUnknownRunway)
}
