// math/latlong.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"fmt"
)

const NMPerLatitude = 60

const (
	NauticalMilesToFeet = 6076.12
	FeetToNauticalMiles = 1 / NauticalMilesToFeet

	KnotsToFeetPerSecond = 1.68781
	FeetPerSecondToKnots = 1 / KnotsToFeetPerSecond
	KnotsToFeetPerMinute = KnotsToFeetPerSecond * 60
)

///////////////////////////////////////////////////////////////////////////
// Point2LL

// Point2LL represents a 2D point on the Earth in degrees of
// latitude-longitude.
// Important: 0 (x) is longitude, 1 (y) is latitude
type Point2LL [2]float64

// LL returns a Point2LL for the given latitude and longitude; it's handy
// since the argument order matches the way positions are usually written.
func LL(lat, lon float64) Point2LL {
	return Point2LL{lon, lat}
}

func (p Point2LL) Longitude() float64 {
	return p[0]
}

func (p Point2LL) Latitude() float64 {
	return p[1]
}

func (p Point2LL) IsZero() bool {
	return p[0] == 0 && p[1] == 0
}

// DDString returns the position in decimal degrees, e.g.:
// (39.860901, -75.274864)
func (p Point2LL) DDString() string {
	return fmt.Sprintf("(%f, %f)", p[1], p[0]) // latitude, longitude
}

func (p Point2LL) String() string {
	return p.DDString()
}

///////////////////////////////////////////////////////////////////////////
// Extent2D

// Extent2D represents a 2D bounding box with the two vertices at its
// opposite minimum and maximum corners.
type Extent2D struct {
	P0, P1 Point2LL
}

// EmptyExtent2D returns a Extent2D representing an empty bounding box.
func EmptyExtent2D() Extent2D {
	return Extent2D{P0: Point2LL{1e30, 1e30}, P1: Point2LL{-1e30, -1e30}}
}

// Extent2DFromPoints returns an Extent2D that bounds all of the provided
// points.
func Extent2DFromPoints(pts []Point2LL) Extent2D {
	e := EmptyExtent2D()
	for _, p := range pts {
		e = Union(e, p)
	}
	return e
}

func (e Extent2D) Inside(p Point2LL) bool {
	return p[0] >= e.P0[0] && p[0] <= e.P1[0] && p[1] >= e.P0[1] && p[1] <= e.P1[1]
}

// Overlaps returns true if the two provided Extent2Ds overlap.
func Overlaps(a Extent2D, b Extent2D) bool {
	x := (a.P1[0] >= b.P0[0]) && (a.P0[0] <= b.P1[0])
	y := (a.P1[1] >= b.P0[1]) && (a.P0[1] <= b.P1[1])
	return x && y
}

// Union returns an Extent2D that bounds both the provided Extent2D and
// the given point.
func Union(e Extent2D, p Point2LL) Extent2D {
	e.P0[0] = Min(e.P0[0], p[0])
	e.P0[1] = Min(e.P0[1], p[1])
	e.P1[0] = Max(e.P1[0], p[0])
	e.P1[1] = Max(e.P1[1], p[1])
	return e
}
