// aviation/pathfind.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"container/heap"
	"fmt"
	"slices"

	"github.com/mmp/trajgen/math"
)

// Graph is a directed graph over named geographic points, used for
// rerouting flights around weather.
type Graph struct {
	Nodes []math.Point2LL
	Names []string
	Adj   [][]Edge

	index map[string]int
	kd    *math.KDNode
}

// Edge is a directed graph edge; Cost is normally the great-circle
// distance in feet.
type Edge struct {
	To   int
	Cost float64
}

func (g *Graph) AddNode(name string, p math.Point2LL) int {
	if g.index == nil {
		g.index = make(map[string]int)
	}
	if i, ok := g.index[name]; ok {
		return i
	}
	g.Nodes = append(g.Nodes, p)
	g.Names = append(g.Names, name)
	g.Adj = append(g.Adj, nil)
	g.index[name] = len(g.Nodes) - 1
	g.kd = nil
	return len(g.Nodes) - 1
}

// AddEdge adds edges in both directions between a and b with their
// great-circle distance as the cost.
func (g *Graph) AddEdge(a, b int) error {
	if !g.valid(a) || !g.valid(b) {
		return fmt.Errorf("edge %d-%d: %w", a, b, ErrInvalidGraphNode)
	}
	d := math.DistanceGC(g.Nodes[a], g.Nodes[b], 0)
	g.Adj[a] = append(g.Adj[a], Edge{To: b, Cost: d})
	g.Adj[b] = append(g.Adj[b], Edge{To: a, Cost: d})
	return nil
}

func (g *Graph) Lookup(name string) (int, bool) {
	i, ok := g.index[name]
	return i, ok
}

func (g *Graph) valid(i int) bool { return i >= 0 && i < len(g.Nodes) }

// Nearest returns the index of the node closest to p, or -1 for an
// empty graph.
func (g *Graph) Nearest(p math.Point2LL) int {
	if g.kd == nil {
		g.kd = math.BuildKDTree(g.Nodes)
	}
	i, _ := g.kd.Nearest(p)
	return i
}

// FindAllPaths returns up to maxPaths simple paths from start to end
// found by depth-first search. maxPaths <= 0 means no limit.
func (g *Graph) FindAllPaths(start, end, maxPaths int) ([][]int, error) {
	if !g.valid(start) || !g.valid(end) {
		return nil, fmt.Errorf("path %d-%d: %w", start, end, ErrInvalidGraphNode)
	}

	var paths [][]int
	visited := make([]bool, len(g.Nodes))
	var path []int
	var dfs func(n int) bool
	dfs = func(n int) bool {
		path = append(path, n)
		visited[n] = true
		defer func() {
			path = path[:len(path)-1]
			visited[n] = false
		}()

		if n == end {
			paths = append(paths, slices.Clone(path))
			return maxPaths > 0 && len(paths) >= maxPaths
		}
		for _, e := range g.Adj[n] {
			if !visited[e.To] && dfs(e.To) {
				return true
			}
		}
		return false
	}
	dfs(start)

	if len(paths) == 0 {
		return nil, fmt.Errorf("%s-%s: %w", g.Names[start], g.Names[end], ErrNoPath)
	}
	return paths, nil
}

type openEntry struct {
	node int
	f    float64
	seq  int
}

type openSet []openEntry

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].seq < o[j].seq
}
func (o openSet) Swap(i, j int) { o[i], o[j] = o[j], o[i] }
func (o *openSet) Push(x any)   { *o = append(*o, x.(openEntry)) }
func (o *openSet) Pop() any {
	old := *o
	e := old[len(old)-1]
	*o = old[:len(old)-1]
	return e
}

// FindShortestPath returns the lowest-cost path from start to end using
// A*. heuristic must not overestimate the remaining cost; if nil, the
// great-circle distance to end is used. Nodes for which usable returns
// false are never entered; a nil usable allows all nodes.
func (g *Graph) FindShortestPath(start, end int, heuristic func(n int) float64, usable func(n int) bool) ([]int, float64, error) {
	if !g.valid(start) || !g.valid(end) {
		return nil, 0, fmt.Errorf("path %d-%d: %w", start, end, ErrInvalidGraphNode)
	}
	if heuristic == nil {
		goal := g.Nodes[end]
		heuristic = func(n int) float64 { return math.DistanceGC(g.Nodes[n], goal, 0) }
	}
	if usable == nil {
		usable = func(int) bool { return true }
	}

	n := len(g.Nodes)
	cost := make([]float64, n)
	from := make([]int, n)
	closed := make([]bool, n)
	for i := range cost {
		cost[i] = math.Inf(1)
		from[i] = -1
	}
	cost[start] = 0

	seq := 0
	open := &openSet{{node: start, f: heuristic(start)}}
	for open.Len() > 0 {
		cur := heap.Pop(open).(openEntry).node
		if closed[cur] {
			continue
		}
		if cur == end {
			path := []int{end}
			for p := from[end]; p != -1; p = from[p] {
				path = append(path, p)
			}
			slices.Reverse(path)
			return path, cost[end], nil
		}
		closed[cur] = true

		for _, e := range g.Adj[cur] {
			if closed[e.To] || (e.To != end && !usable(e.To)) {
				continue
			}
			if c := cost[cur] + e.Cost; c < cost[e.To] {
				cost[e.To] = c
				from[e.To] = cur
				seq++
				heap.Push(open, openEntry{node: e.To, f: c + heuristic(e.To), seq: seq})
			}
		}
	}
	return nil, 0, fmt.Errorf("%s-%s: %w", g.Names[start], g.Names[end], ErrNoPath)
}
