// math/greatcircle.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

// Spherical-earth great-circle geometry. Distances are in feet, angles
// are in radians internally and positions are degrees (Point2LL).

// EarthRadiusFt is the mean radius of the earth used for all
// great-circle computations.
const EarthRadiusFt = 20925524.9

// DistanceGC returns the great-circle distance in feet between a and b
// at the given altitude above the surface, using the haversine formula.
func DistanceGC(a, b Point2LL, altFt float64) float64 {
	lat1, lat2 := Radians(a[1]), Radians(b[1])
	dlat := lat2 - lat1
	dlon := Radians(b[0] - a[0])

	h := Sqr(Sin(dlat/2)) + Cos(lat1)*Cos(lat2)*Sqr(Sin(dlon/2))
	return (EarthRadiusFt + altFt) * 2 * SafeASin(Sqrt(Clamp(h, 0, 1)))
}

// NMDistanceGC is a convenience wrapper returning the surface distance
// between two points in nautical miles.
func NMDistanceGC(a, b Point2LL) float64 {
	return DistanceGC(a, b, 0) * FeetToNauticalMiles
}

// HeadingGC returns the initial great-circle course from a to b in
// radians in (-π,π], measured clockwise from true north. Identical
// points give 0.
func HeadingGC(a, b Point2LL) float64 {
	if a == b {
		return 0
	}
	lat1, lat2 := Radians(a[1]), Radians(b[1])
	dlon := Radians(b[0] - a[0])

	y := Sin(dlon) * Cos(lat2)
	x := Cos(lat1)*Sin(lat2) - Sin(lat1)*Cos(lat2)*Cos(dlon)
	if x == 0 && y == 0 {
		return 0
	}
	return Atan2(y, x)
}

// DestinationGC returns the point reached by travelling rangeFt along the
// great circle leaving p on the given course (radians) at altFt.
func DestinationGC(p Point2LL, courseRad, rangeFt, altFt float64) Point2LL {
	if rangeFt == 0 {
		return p
	}
	lat1, lon1 := Radians(p[1]), Radians(p[0])
	sigma := rangeFt / (EarthRadiusFt + altFt)

	lat2 := SafeASin(Sin(lat1)*Cos(sigma) + Cos(lat1)*Sin(sigma)*Cos(courseRad))
	lon2 := lon1 + Atan2(Sin(courseRad)*Sin(sigma)*Cos(lat1), Cos(sigma)-Sin(lat1)*Sin(lat2))

	lon := Degrees(lon2)
	for lon > 180 {
		lon -= 360
	}
	for lon <= -180 {
		lon += 360
	}
	return Point2LL{lon, Degrees(lat2)}
}

// InterpolateGC returns the point a fraction t of the way from a to b
// along the great circle connecting them.
func InterpolateGC(a, b Point2LL, t float64) Point2LL {
	return DestinationGC(a, HeadingGC(a, b), t*DistanceGC(a, b, 0), 0)
}

// CrossTrack returns the signed cross-track distance of p from the great
// circle leaving a on the given course (positive to the right) and the
// along-track distance from a to the closest point; both are in feet.
func CrossTrack(a Point2LL, courseRad float64, p Point2LL) (xtrack, along float64) {
	d13 := DistanceGC(a, p, 0) / EarthRadiusFt
	if d13 == 0 {
		return 0, 0
	}
	dtheta := HeadingGC(a, p) - courseRad

	xt := SafeASin(Sin(d13) * Sin(dtheta))
	c := Cos(xt)
	if c == 0 {
		return xt * EarthRadiusFt, 0
	}
	at := SafeACos(Cos(d13) / c)
	if Cos(dtheta) < 0 {
		at = -at
	}
	return xt * EarthRadiusFt, at * EarthRadiusFt
}
