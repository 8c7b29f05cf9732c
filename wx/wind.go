// wx/wind.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wx

import (
	"time"

	"github.com/mmp/trajgen/math"
)

// WindField gives the wind at a point in space and time as eastward and
// northward components in knots. The components describe the motion of
// the air: a wind "from 270" has a positive east component.
type WindField interface {
	Wind(t time.Time, p math.Point2LL, altFt float64) (east, north float64)
}

// ZeroWind is a calm WindField.
type ZeroWind struct{}

func (ZeroWind) Wind(time.Time, math.Point2LL, float64) (float64, float64) { return 0, 0 }

// UniformWind is the same wind everywhere.
type UniformWind struct {
	East, North float64
}

// MakeUniformWind returns a uniform wind blowing from the given true
// direction (degrees) at speed knots.
func MakeUniformWind(dir, speed float64) UniformWind {
	e, n := DirSpeedToUV(dir, speed)
	return UniformWind{East: e, North: n}
}

func (w UniformWind) Wind(time.Time, math.Point2LL, float64) (float64, float64) {
	return w.East, w.North
}

// DirSpeedToUV converts a meteorological wind (the direction it blows
// from, degrees true) to eastward and northward components in the same
// units as speed.
func DirSpeedToUV(dir, speed float64) (east, north float64) {
	d := math.Radians(dir)
	return -speed * math.Sin(d), -speed * math.Cos(d)
}

// UVToDirSpeed is the inverse of DirSpeedToUV; calm winds are reported
// as 0 degrees.
func UVToDirSpeed(east, north float64) (dir, speed float64) {
	speed = math.Hypot(east, north)
	if speed == 0 {
		return 0, 0
	}
	dir = math.NormalizeHeading(270 - math.Degrees(math.Atan2(north, east)))
	return dir, speed
}

// Components returns the headwind and crosswind components in knots for
// an aircraft on the given true course (radians): positive headwinds
// oppose motion and positive crosswinds push the aircraft to the right.
func Components(east, north, courseRad float64) (head, cross float64) {
	s, c := math.Sin(courseRad), math.Cos(courseRad)
	along := east*s + north*c
	cross = east*c - north*s
	return -along, cross
}
