// aviation/pathfind_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/mmp/trajgen/math"
)

// makeGridGraph returns an n x n grid of nodes spaced one degree apart
// with edges between horizontal and vertical neighbours.
func makeGridGraph(n int) *Graph {
	g := &Graph{}
	for y := range n {
		for x := range n {
			g.AddNode(fmt.Sprintf("G%d%d", x, y), math.Point2LL{float64(x), float64(y)})
		}
	}
	for y := range n {
		for x := range n {
			i := y*n + x
			if x+1 < n {
				g.AddEdge(i, i+1)
			}
			if y+1 < n {
				g.AddEdge(i, i+n)
			}
		}
	}
	return g
}

func TestFindShortestPath(t *testing.T) {
	g := makeGridGraph(3)
	// 6 7 8
	// 3 4 5
	// 0 1 2

	path, cost, err := g.FindShortestPath(0, 2, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{0, 1, 2}; !slices.Equal(path, want) {
		t.Errorf("got path %v, expected %v", path, want)
	}
	if d := math.DistanceGC(g.Nodes[0], g.Nodes[2], 0); math.Abs(cost-d) > 1e-6*d {
		t.Errorf("got cost %f, expected %f", cost, d)
	}

	// Avoid node 1; the detour goes through the middle row.
	blocked := func(n int) bool { return n != 1 }
	path, _, err = g.FindShortestPath(0, 2, nil, blocked)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{0, 3, 4, 5, 2}; !slices.Equal(path, want) {
		t.Errorf("detour: got path %v, expected %v", path, want)
	}

	walled := func(n int) bool { return n != 1 && n != 4 && n != 7 }
	if _, _, err := g.FindShortestPath(0, 2, nil, walled); !errors.Is(err, ErrNoPath) {
		t.Errorf("walled off: got %v, expected ErrNoPath", err)
	}
	if _, _, err := g.FindShortestPath(0, 42, nil, nil); !errors.Is(err, ErrInvalidGraphNode) {
		t.Errorf("bad node: got %v, expected ErrInvalidGraphNode", err)
	}

	// A zero heuristic degrades to Dijkstra and finds the same cost.
	_, c0, _ := g.FindShortestPath(0, 8, func(int) float64 { return 0 }, nil)
	_, c1, _ := g.FindShortestPath(0, 8, nil, nil)
	if math.Abs(c0-c1) > 1e-6 {
		t.Errorf("heuristic changed path cost: %f vs %f", c0, c1)
	}
}

func TestFindAllPaths(t *testing.T) {
	g := makeGridGraph(2)
	// 2 3
	// 0 1
	paths, err := g.FindAllPaths(0, 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Errorf("got %d paths, expected 2: %v", len(paths), paths)
	}
	for _, p := range paths {
		if p[0] != 0 || p[len(p)-1] != 3 {
			t.Errorf("path %v doesn't connect 0 and 3", p)
		}
	}

	if paths, _ := makeGridGraph(3).FindAllPaths(0, 8, 5); len(paths) != 5 {
		t.Errorf("limited search returned %d paths, expected 5", len(paths))
	}

	g.AddNode("ISLAND", math.Point2LL{10, 10})
	if _, err := g.FindAllPaths(0, 4, 0); !errors.Is(err, ErrNoPath) {
		t.Errorf("disconnected node: got %v, expected ErrNoPath", err)
	}
}

func TestGraphNearest(t *testing.T) {
	g := makeGridGraph(3)
	if i := g.Nearest(math.Point2LL{1.9, 0.2}); i != 2 {
		t.Errorf("got %d, expected 2", i)
	}
	if i, ok := g.Lookup("G11"); !ok || i != 4 {
		t.Errorf("Lookup: got %d/%v", i, ok)
	}
	if i := (&Graph{}).Nearest(math.Point2LL{}); i != -1 {
		t.Errorf("empty graph: got %d", i)
	}
}
