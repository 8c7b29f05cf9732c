// math/ecef.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

// WGS-84 ellipsoid, in feet.
const (
	SemiMajorEarthFt     = 6378137.0 * 3.2808399
	EccentricitySqEarth  = 0.00669437999014
	minTrackNormalLength = 1e-12
)

func primeVerticalRadius(latRad float64) float64 {
	s := Sin(latRad)
	return SemiMajorEarthFt / Sqrt(1-EccentricitySqEarth*s*s)
}

// ToECEF returns the earth-centered earth-fixed position of p at the
// given altitude, in feet.
func ToECEF(p Point2LL, altFt float64) Vec3 {
	lat, lon := Radians(p[1]), Radians(p[0])
	rn := primeVerticalRadius(lat)
	return Vec3{
		(rn + altFt) * Cos(lat) * Cos(lon),
		(rn + altFt) * Cos(lat) * Sin(lon),
		((1-EccentricitySqEarth)*rn + altFt) * Sin(lat),
	}
}

// nedToECEF rotates a vector expressed in the local north-east-down frame
// at p into the ECEF frame.
func nedToECEF(p Point2LL, n, e, d float64) Vec3 {
	lat, lon := Radians(p[1]), Radians(p[0])
	slat, clat := Sin(lat), Cos(lat)
	slon, clon := Sin(lon), Cos(lon)
	return Vec3{
		-slat*clon*n - slon*e - clat*clon*d,
		-slat*slon*n + clon*e - clat*slon*d,
		clat*n - slat*d,
	}
}

// VelocityECEF returns the ECEF velocity of an aircraft at p flying the
// given course (radians from true north) and flight-path angle (radians,
// positive up) at speedFps.
func VelocityECEF(p Point2LL, courseRad, fpaRad, speedFps float64) Vec3 {
	h := speedFps * Cos(fpaRad)
	return nedToECEF(p, h*Cos(courseRad), h*Sin(courseRad), -speedFps*Sin(fpaRad))
}

// UnitSphere returns the unit vector from the center of a spherical earth
// through p.
func UnitSphere(p Point2LL) Vec3 {
	lat, lon := Radians(p[1]), Radians(p[0])
	return Vec3{Cos(lat) * Cos(lon), Cos(lat) * Sin(lon), Sin(lat)}
}

// FromUnitSphere is the inverse of UnitSphere.
func FromUnitSphere(v Vec3) Point2LL {
	v = v.Normalize()
	return Point2LL{Degrees(Atan2(v[1], v[0])), Degrees(SafeASin(v[2]))}
}

// TrackPlaneNormal returns the unit normal of the plane of the great
// circle through p on the given course.
func TrackPlaneNormal(p Point2LL, courseRad float64) Vec3 {
	dir := nedToECEF(p, Cos(courseRad), Sin(courseRad), 0)
	return UnitSphere(p).Cross(dir).Normalize()
}

// IntersectTracks finds the point where the great-circle tracks of two
// aircraft cross. Of the two antipodal intersections, the one that is
// ahead of both aircraft and closest to them is returned; ok is false if
// the tracks are coincident or parallel or if neither intersection lies
// ahead of both.
func IntersectTracks(p1 Point2LL, course1 float64, p2 Point2LL, course2 float64) (Point2LL, bool) {
	n1, n2 := TrackPlaneNormal(p1, course1), TrackPlaneNormal(p2, course2)
	d := n1.Cross(n2)
	if d.Length() < minTrackNormalLength {
		return Point2LL{}, false
	}
	d = d.Normalize()

	u1, u2 := UnitSphere(p1), UnitSphere(p2)
	dir1 := nedToECEF(p1, Cos(course1), Sin(course1), 0)
	dir2 := nedToECEF(p2, Cos(course2), Sin(course2), 0)

	best, bestDist := Point2LL{}, Inf(1)
	for _, c := range [2]Vec3{d, d.Scale(-1)} {
		// Ahead means the candidate lies in the forward hemisphere of the
		// direction of motion for both aircraft.
		if c.Sub(u1).Dot(dir1) <= 0 || c.Sub(u2).Dot(dir2) <= 0 {
			continue
		}
		pt := FromUnitSphere(c)
		if dist := DistanceGC(p1, pt, 0) + DistanceGC(p2, pt, 0); dist < bestDist {
			best, bestDist = pt, dist
		}
	}
	return best, !IsNaN(bestDist) && bestDist < Inf(1)
}
