// math/polygon.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

// PolygonContains checks whether the given point is inside the polygon
// using the even-odd ray-casting rule. The polygon may be given either
// open or explicitly closed (with the last vertex repeating the first);
// in the latter case the repeated vertex is ignored.
func PolygonContains(poly []Point2LL, p Point2LL) bool {
	n := len(poly)
	if n > 1 && poly[0] == poly[n-1] {
		n--
	}
	if n < 3 {
		return false
	}

	inside := false
	for i := 0; i < n; i++ {
		p0, p1 := poly[i], poly[(i+1)%n]
		if (p0[1] <= p[1] && p[1] < p1[1]) || (p1[1] <= p[1] && p[1] < p0[1]) {
			x := p0[0] + (p[1]-p0[1])*(p1[0]-p0[0])/(p1[1]-p0[1])
			if x > p[0] {
				inside = !inside
			}
		}
	}
	return inside
}
