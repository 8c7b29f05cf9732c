// math/kdtree.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"slices"
)

// KDNode is a node in a 2D KD-tree over Point2LLs. Each node records the
// index of its point in the slice the tree was built from.
type KDNode struct {
	Location Point2LL
	Index    int
	Left     *KDNode
	Right    *KDNode
}

type kdEntry struct {
	p     Point2LL
	index int
}

// BuildKDTree constructs a balanced KD-tree from a slice of points. The
// tree alternates splitting by X (longitude) and Y (latitude) at each
// level. The points slice isn't modified.
func BuildKDTree(points []Point2LL) *KDNode {
	if len(points) == 0 {
		return nil
	}
	entries := make([]kdEntry, len(points))
	for i, p := range points {
		entries[i] = kdEntry{p: p, index: i}
	}
	return buildKDTreeRecursive(entries, 0)
}

func buildKDTreeRecursive(entries []kdEntry, depth int) *KDNode {
	if len(entries) == 0 {
		return nil
	}
	if len(entries) == 1 {
		return &KDNode{Location: entries[0].p, Index: entries[0].index}
	}

	axis := depth % 2
	slices.SortFunc(entries, func(a, b kdEntry) int {
		if a.p[axis] < b.p[axis] {
			return -1
		} else if a.p[axis] > b.p[axis] {
			return 1
		}
		return a.index - b.index
	})

	median := len(entries) / 2
	return &KDNode{
		Location: entries[median].p,
		Index:    entries[median].index,
		Left:     buildKDTreeRecursive(entries[:median], depth+1),
		Right:    buildKDTreeRecursive(entries[median+1:], depth+1),
	}
}

// Nearest returns the index of the tree point closest to p along with
// its great-circle distance in feet, or -1 for an empty tree. Longitude
// differences are scaled by the cosine of p's latitude for pruning.
func (tree *KDNode) Nearest(p Point2LL) (int, float64) {
	if tree == nil {
		return -1, 0
	}

	lonScale := Cos(Radians(p[1]))
	dist2 := func(q Point2LL) float64 {
		return Sqr((q[0]-p[0])*lonScale) + Sqr(q[1]-p[1])
	}

	best, bestD2 := -1, Inf(1)
	var bestLoc Point2LL
	var visit func(n *KDNode, depth int)
	visit = func(n *KDNode, depth int) {
		if n == nil {
			return
		}
		if d2 := dist2(n.Location); d2 < bestD2 || (d2 == bestD2 && n.Index < best) {
			best, bestD2, bestLoc = n.Index, d2, n.Location
		}

		axis := depth % 2
		delta := p[axis] - n.Location[axis]
		near, far := n.Left, n.Right
		if delta > 0 {
			near, far = far, near
		}
		visit(near, depth+1)

		if axis == 0 {
			delta *= lonScale
		}
		if delta*delta <= bestD2 {
			visit(far, depth+1)
		}
	}
	visit(tree, 0)

	return best, DistanceGC(p, bestLoc, 0)
}
