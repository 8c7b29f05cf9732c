// aviation/waypoint.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"

	"github.com/mmp/trajgen/math"

	"github.com/vmihailenco/msgpack/v5"
)

// NodeID is a handle to a node in a WaypointSequence. IDs remain valid
// across insertions and deletions of other nodes.
type NodeID int

const NoNode NodeID = -1

// WaypointNode is a single point in a taxi plan, flight plan or drive
// plan.
type WaypointNode struct {
	Name     string        `json:"name" yaml:"name"`
	Type     string        `json:"type,omitempty" yaml:"type,omitempty"`
	Location math.Point2LL `json:"location" yaml:"location"` // [lon, lat]

	// Altitude constraint: AltDesc is the ARINC 424 descriptor ("+", "-",
	// "@", "B") and Alt1/Alt2 its values in feet.
	AltDesc          string  `json:"alt_desc,omitempty" yaml:"alt_desc,omitempty"`
	Alt1             float64 `json:"alt1,omitempty" yaml:"alt1,omitempty"`
	Alt2             float64 `json:"alt2,omitempty" yaml:"alt2,omitempty"`
	AltitudeEstimate float64 `json:"altitude_estimate,omitempty" yaml:"altitude_estimate,omitempty"`

	SpeedLimit     float64 `json:"speed_limit,omitempty" yaml:"speed_limit,omitempty"` // knots
	SpeedLimitDesc string  `json:"speed_limit_desc,omitempty" yaml:"speed_limit_desc,omitempty"`

	ProcName string `json:"proc_name,omitempty" yaml:"proc_name,omitempty"`
	ProcType string `json:"proc_type,omitempty" yaml:"proc_type,omitempty"` // SID, ENROUTE, STAR, APPROACH

	RecommendedNavaid string  `json:"recommended_navaid,omitempty" yaml:"recommended_navaid,omitempty"`
	Theta             float64 `json:"theta,omitempty" yaml:"theta,omitempty"`
	Rho               float64 `json:"rho,omitempty" yaml:"rho,omitempty"`
	MagCourse         float64 `json:"mag_course,omitempty" yaml:"mag_course,omitempty"`
	RouteDistance     float64 `json:"route_distance,omitempty" yaml:"route_distance,omitempty"`

	// Derived by UpdateLegs.
	CourseToNext   float64 `json:"-" yaml:"-"` // radians
	DistanceToNext float64 `json:"-" yaml:"-"` // feet

	// Phase tags the node in geo-style flight plans.
	Phase string `json:"phase,omitempty" yaml:"phase,omitempty"`

	Prev NodeID `json:"-" yaml:"-"`
	Next NodeID `json:"-" yaml:"-"`
}

// ConstraintAltitude returns the altitude implied by the node's altitude
// constraint, if it has one.
func (n *WaypointNode) ConstraintAltitude() (float64, bool) {
	switch strings.TrimSpace(n.AltDesc) {
	case "B":
		if n.Alt2 != 0 {
			return (n.Alt1 + n.Alt2) / 2, true
		}
		return n.Alt1, n.Alt1 != 0
	case "+", "-", "@", "":
		return n.Alt1, n.Alt1 != 0
	default:
		return n.Alt1, n.Alt1 != 0
	}
}

func (n *WaypointNode) LogValue() slog.Value {
	if n == nil {
		return slog.StringValue("(nil)")
	}
	return slog.GroupValue(
		slog.String("name", n.Name),
		slog.String("location", n.Location.DDString()),
		slog.Float64("altitude", n.AltitudeEstimate),
		slog.String("phase", n.Phase))
}

// WaypointSequence is a doubly-linked list of WaypointNodes stored in an
// arena; links are NodeIDs into the arena rather than pointers. Deleted
// slots are kept on a free list and reused by later insertions.
type WaypointSequence struct {
	nodes []WaypointNode
	free  []NodeID
	head  NodeID
	tail  NodeID
	n     int
}

// NewWaypointSequence returns a sequence holding the given nodes in
// order, with legs computed.
func NewWaypointSequence(nodes ...WaypointNode) *WaypointSequence {
	s := &WaypointSequence{head: NoNode, tail: NoNode}
	for _, n := range nodes {
		s.Append(n)
	}
	s.UpdateLegs()
	return s
}

func (s *WaypointSequence) Len() int {
	if s == nil {
		return 0
	}
	return s.n
}

func (s *WaypointSequence) Head() NodeID {
	if s == nil || s.n == 0 {
		return NoNode
	}
	return s.head
}

func (s *WaypointSequence) Tail() NodeID {
	if s == nil || s.n == 0 {
		return NoNode
	}
	return s.tail
}

func (s *WaypointSequence) valid(id NodeID) bool {
	return s != nil && id >= 0 && int(id) < len(s.nodes) && !slices.Contains(s.free, id)
}

// Node returns the node with the given ID, or nil for NoNode.
func (s *WaypointSequence) Node(id NodeID) *WaypointNode {
	if s == nil || id < 0 || int(id) >= len(s.nodes) {
		return nil
	}
	return &s.nodes[id]
}

func (s *WaypointSequence) Next(id NodeID) NodeID {
	if n := s.Node(id); n != nil {
		return n.Next
	}
	return NoNode
}

func (s *WaypointSequence) Prev(id NodeID) NodeID {
	if n := s.Node(id); n != nil {
		return n.Prev
	}
	return NoNode
}

// At returns the ID of the node at the given position in the sequence or
// NoNode if index is out of range.
func (s *WaypointSequence) At(index int) NodeID {
	if index < 0 || index >= s.Len() {
		return NoNode
	}
	id := s.head
	for range index {
		id = s.nodes[id].Next
	}
	return id
}

// IndexOf returns the position of the given node in the sequence, or -1.
func (s *WaypointSequence) IndexOf(id NodeID) int {
	for i, cur := range s.IDs() {
		if cur == id {
			return i
		}
	}
	return -1
}

func (s *WaypointSequence) alloc(node WaypointNode) NodeID {
	if len(s.free) > 0 {
		id := s.free[len(s.free)-1]
		s.free = s.free[:len(s.free)-1]
		s.nodes[id] = node
		return id
	}
	s.nodes = append(s.nodes, node)
	return NodeID(len(s.nodes) - 1)
}

// Append adds the node at the end of the sequence.
func (s *WaypointSequence) Append(node WaypointNode) NodeID {
	id, _ := s.InsertAt(s.Len(), node)
	return id
}

// InsertAt inserts the node so that it's at position index in the
// sequence. Index 0 makes it the new head; any index at or past the end
// appends it.
func (s *WaypointSequence) InsertAt(index int, node WaypointNode) (NodeID, error) {
	if index < 0 {
		return NoNode, fmt.Errorf("insert at %d: %w", index, ErrWaypointIndexOutOfRange)
	}

	id := s.alloc(node)
	n := &s.nodes[id]

	switch {
	case s.n == 0:
		n.Prev, n.Next = NoNode, NoNode
		s.head, s.tail = id, id
	case index == 0:
		n.Prev, n.Next = NoNode, s.head
		s.nodes[s.head].Prev = id
		s.head = id
	case index >= s.n:
		n.Prev, n.Next = s.tail, NoNode
		s.nodes[s.tail].Next = id
		s.tail = id
	default:
		after := s.At(index - 1)
		before := s.nodes[after].Next
		n.Prev, n.Next = after, before
		s.nodes[after].Next = id
		s.nodes[before].Prev = id
	}
	s.n++

	s.updateLeg(n.Prev)
	s.updateLeg(id)
	return id, nil
}

// DeleteAt removes the node at the given position. The removed node's
// fields are cleared and its slot is made available for reuse; the
// neighbours' altitude estimates are left as they are.
func (s *WaypointSequence) DeleteAt(index int) error {
	id := s.At(index)
	if id == NoNode {
		return fmt.Errorf("delete at %d of %d: %w", index, s.Len(), ErrWaypointIndexOutOfRange)
	}
	s.remove(id)
	return nil
}

// Delete removes the node with the given ID.
func (s *WaypointSequence) Delete(id NodeID) error {
	if !s.valid(id) {
		return fmt.Errorf("delete node %d: %w", id, ErrInvalidWaypointNode)
	}
	s.remove(id)
	return nil
}

func (s *WaypointSequence) remove(id NodeID) {
	n := &s.nodes[id]
	prev, next := n.Prev, n.Next
	if prev != NoNode {
		s.nodes[prev].Next = next
	} else {
		s.head = next
	}
	if next != NoNode {
		s.nodes[next].Prev = prev
	} else {
		s.tail = prev
	}

	*n = WaypointNode{Prev: NoNode, Next: NoNode}
	s.free = append(s.free, id)
	s.n--

	s.updateLeg(prev)
}

func (s *WaypointSequence) updateLeg(id NodeID) {
	if id == NoNode {
		return
	}
	n := &s.nodes[id]
	if n.Next == NoNode {
		n.CourseToNext, n.DistanceToNext = 0, 0
		return
	}
	next := &s.nodes[n.Next]
	n.CourseToNext = math.HeadingGC(n.Location, next.Location)
	n.DistanceToNext = math.DistanceGC(n.Location, next.Location, 0)
}

// UpdateLegs recomputes the course and distance to the next node for all
// nodes.
func (s *WaypointSequence) UpdateLegs() {
	for id := s.Head(); id != NoNode; id = s.nodes[id].Next {
		s.updateLeg(id)
	}
}

// DistanceBetween returns the great-circle length in feet of the path
// from a to b following next links. It returns 0 if b doesn't follow a.
func (s *WaypointSequence) DistanceBetween(a, b NodeID) float64 {
	if !s.valid(a) || !s.valid(b) {
		return 0
	}
	d := 0.
	for id := a; id != b; {
		next := s.nodes[id].Next
		if next == NoNode {
			return 0
		}
		d += math.DistanceGC(s.nodes[id].Location, s.nodes[next].Location, 0)
		id = next
	}
	return d
}

// PathLength returns the total length of the sequence in feet.
func (s *WaypointSequence) PathLength() float64 {
	return s.DistanceBetween(s.Head(), s.Tail())
}

// FindByNamePrefix returns the first node whose name starts with prefix.
func (s *WaypointSequence) FindByNamePrefix(prefix string) NodeID {
	for _, id := range s.IDs() {
		if strings.HasPrefix(s.nodes[id].Name, prefix) {
			return id
		}
	}
	return NoNode
}

// All iterates over the nodes in sequence order.
func (s *WaypointSequence) All() iter.Seq2[int, *WaypointNode] {
	return func(yield func(int, *WaypointNode) bool) {
		i := 0
		for id := s.Head(); id != NoNode; id = s.nodes[id].Next {
			if !yield(i, &s.nodes[id]) {
				return
			}
			i++
		}
	}
}

// IDs iterates over the node IDs in sequence order.
func (s *WaypointSequence) IDs() iter.Seq2[int, NodeID] {
	return func(yield func(int, NodeID) bool) {
		i := 0
		for id := s.Head(); id != NoNode; id = s.nodes[id].Next {
			if !yield(i, id) {
				return
			}
			i++
		}
	}
}

// Nodes returns a copy of the nodes in sequence order.
func (s *WaypointSequence) Nodes() []WaypointNode {
	var nodes []WaypointNode
	for _, n := range s.All() {
		nodes = append(nodes, *n)
	}
	return nodes
}

// Clone returns an independent copy of the sequence; node IDs are
// preserved.
func (s *WaypointSequence) Clone() *WaypointSequence {
	if s == nil {
		return nil
	}
	return &WaypointSequence{
		nodes: slices.Clone(s.nodes),
		free:  slices.Clone(s.free),
		head:  s.head,
		tail:  s.tail,
		n:     s.n,
	}
}

// Validate checks the structural invariants of the sequence: following
// next links from the head reaches the tail in exactly Len steps, and
// prev links give the reverse.
func (s *WaypointSequence) Validate() error {
	if s.Len() == 0 {
		return nil
	}

	if s.nodes[s.head].Prev != NoNode {
		return fmt.Errorf("head has predecessor: %w", ErrMalformedSequence)
	}
	if s.nodes[s.tail].Next != NoNode {
		return fmt.Errorf("tail has successor: %w", ErrMalformedSequence)
	}

	var fwd []NodeID
	for id := s.head; id != NoNode; id = s.nodes[id].Next {
		if !s.valid(id) || len(fwd) > s.n {
			return fmt.Errorf("bad link to %d: %w", id, ErrMalformedSequence)
		}
		fwd = append(fwd, id)
	}
	if len(fwd) != s.n || fwd[len(fwd)-1] != s.tail {
		return fmt.Errorf("forward walk gave %d nodes, expected %d: %w", len(fwd), s.n, ErrMalformedSequence)
	}

	i := len(fwd) - 1
	for id := s.tail; id != NoNode; id = s.nodes[id].Prev {
		if i < 0 || fwd[i] != id {
			return fmt.Errorf("backward walk mismatch at %d: %w", id, ErrMalformedSequence)
		}
		i--
	}
	if i != -1 {
		return fmt.Errorf("backward walk too short: %w", ErrMalformedSequence)
	}
	return nil
}

type sequenceWire struct {
	Nodes []WaypointNode
	Free  []NodeID
	Head  NodeID
	Tail  NodeID
	Len   int
}

// EncodeMsgpack stores the arena as-is so that NodeIDs held elsewhere
// remain valid after a checkpoint is restored.
func (s *WaypointSequence) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(sequenceWire{Nodes: s.nodes, Free: s.free, Head: s.head, Tail: s.tail, Len: s.n})
}

func (s *WaypointSequence) DecodeMsgpack(dec *msgpack.Decoder) error {
	var w sequenceWire
	if err := dec.Decode(&w); err != nil {
		return err
	}
	*s = WaypointSequence{nodes: w.Nodes, free: w.Free, head: w.Head, tail: w.Tail, n: w.Len}
	return s.Validate()
}
