// Package graph defines WeightedGraph, the directed multigraph of
// participants and contribution artifacts that cred flows over.
//
// Edge weights are held as exact rationals. Parallel edges with the same
// key collapse into one edge whose weight is the exact sum, which makes
// Merge commutative and associative bit-for-bit rather than only up to
// floating point rounding.
package graph

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"slices"

	"github.com/roach88/grainrank/internal/canon"
	"github.com/roach88/grainrank/internal/errs"
)

// Direction selects which way cred flows along an edge.
type Direction string

const (
	// Forward flows from Src to Dst.
	Forward Direction = "forward"
	// Backward flows from Dst to Src.
	Backward Direction = "backward"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Forward || d == Backward
}

// Node is a participant or contribution artifact.
type Node struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Participant bool   `json:"participant,omitempty"`
}

// Edge is a weighted, directed interaction between two nodes. A nil
// Timestamp (milliseconds since epoch) marks a structural edge that belongs
// to every period.
type Edge struct {
	Src       string    `json:"src"`
	Dst       string    `json:"dst"`
	Direction Direction `json:"direction"`
	Weight    float64   `json:"weight"`
	Timestamp *int64    `json:"timestamp,omitempty"`
}

// FlowSource returns the node cred leaves along this edge.
func (e Edge) FlowSource() string {
	if e.Direction == Backward {
		return e.Dst
	}
	return e.Src
}

// FlowTarget returns the node cred arrives at along this edge.
func (e Edge) FlowTarget() string {
	if e.Direction == Backward {
		return e.Src
	}
	return e.Dst
}

// Key identifies the edge for merging: source, destination, direction and
// timestamp. The timestamp is part of the key so every edge stays in the
// period it happened in; an untimed edge never merges with a timed one.
func (e Edge) Key() EdgeKey {
	k := EdgeKey{Src: e.Src, Dst: e.Dst, Direction: e.Direction}
	if e.Timestamp != nil {
		k.Timed = true
		k.Timestamp = *e.Timestamp
	}
	return k
}

// EdgeKey is the merge identity of an edge. Edges sharing a key have their
// weights summed.
type EdgeKey struct {
	Src       string
	Dst       string
	Direction Direction
	Timed     bool
	Timestamp int64
}

func compareKeys(a, b EdgeKey) int {
	return cmp.Or(
		cmp.Compare(a.Src, b.Src),
		cmp.Compare(a.Dst, b.Dst),
		cmp.Compare(a.Direction, b.Direction),
		compareBool(a.Timed, b.Timed),
		cmp.Compare(a.Timestamp, b.Timestamp),
	)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// WeightedGraph is a directed multigraph with non-negative finite weights.
// It is not safe for concurrent mutation.
type WeightedGraph struct {
	nodes map[string]Node
	edges map[EdgeKey]*big.Rat
}

// New returns an empty graph.
func New() *WeightedGraph {
	return &WeightedGraph{
		nodes: make(map[string]Node),
		edges: make(map[EdgeKey]*big.Rat),
	}
}

// AddNode inserts n. Re-adding an identical node is a no-op; re-adding an
// ID with different metadata is a GRAPH_INTEGRITY error. IDs and
// descriptions must be valid UTF-8 in NFC so they survive snapshots
// unchanged and visually equal IDs cannot name two nodes.
func (g *WeightedGraph) AddNode(n Node) error {
	if n.ID == "" {
		return errs.GraphIntegrity("node ID is empty")
	}
	if err := canon.CheckString(n.ID); err != nil {
		return &errs.Error{Code: errs.CodeGraphIntegrity, Message: "node ID", Err: err}
	}
	if err := canon.CheckString(n.Description); err != nil {
		return &errs.Error{Code: errs.CodeGraphIntegrity, Message: fmt.Sprintf("node %q description", n.ID), Err: err}
	}
	if existing, ok := g.nodes[n.ID]; ok {
		if existing != n {
			return errs.GraphIntegrity("node %q has inconsistent metadata: %+v vs %+v", n.ID, existing, n)
		}
		return nil
	}
	g.nodes[n.ID] = n
	return nil
}

// AddEdge inserts e. Both endpoints must already exist. An edge whose key
// is already present adds its weight to the existing edge.
func (g *WeightedGraph) AddEdge(e Edge) error {
	if math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) || e.Weight < 0 {
		return errs.GraphIntegrity("edge %s->%s has invalid weight %v", e.Src, e.Dst, e.Weight)
	}
	return g.addWeight(e.Key(), new(big.Rat).SetFloat64(e.Weight))
}

func (g *WeightedGraph) addWeight(k EdgeKey, w *big.Rat) error {
	if !k.Direction.Valid() {
		return errs.GraphIntegrity("edge %s->%s has unknown direction %q", k.Src, k.Dst, k.Direction)
	}
	if _, ok := g.nodes[k.Src]; !ok {
		return errs.GraphIntegrity("edge source %q is not a node", k.Src)
	}
	if _, ok := g.nodes[k.Dst]; !ok {
		return errs.GraphIntegrity("edge destination %q is not a node", k.Dst)
	}
	if cur, ok := g.edges[k]; ok {
		cur.Add(cur, w)
		return nil
	}
	g.edges[k] = new(big.Rat).Set(w)
	return nil
}

// Node returns the node with the given ID.
func (g *WeightedGraph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes sorted by ID.
func (g *WeightedGraph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b Node) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Participants returns the participant nodes sorted by ID.
func (g *WeightedGraph) Participants() []Node {
	var out []Node
	for _, n := range g.Nodes() {
		if n.Participant {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns all edges sorted by key. Weights are the nearest float64
// to the exact summed weight.
func (g *WeightedGraph) Edges() []Edge {
	keys := make([]EdgeKey, 0, len(g.edges))
	for k := range g.edges {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)

	out := make([]Edge, len(keys))
	for i, k := range keys {
		w, _ := g.edges[k].Float64()
		e := Edge{Src: k.Src, Dst: k.Dst, Direction: k.Direction, Weight: w}
		if k.Timed {
			ts := k.Timestamp
			e.Timestamp = &ts
		}
		out[i] = e
	}
	return out
}

// Weight returns the exact summed weight for a key, or nil if absent.
func (g *WeightedGraph) Weight(k EdgeKey) *big.Rat {
	w, ok := g.edges[k]
	if !ok {
		return nil
	}
	return new(big.Rat).Set(w)
}

// NodeCount returns the number of nodes.
func (g *WeightedGraph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct edge keys.
func (g *WeightedGraph) EdgeCount() int { return len(g.edges) }

type graphJSON struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Read decodes a graph from JSON of the form {"nodes": [...], "edges": [...]}.
func Read(r io.Reader) (*WeightedGraph, error) {
	var raw graphJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, &errs.Error{Code: errs.CodeGraphIntegrity, Message: "decode graph", Err: err}
	}
	g := New()
	for _, n := range raw.Nodes {
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, e := range raw.Edges {
		if err := g.AddEdge(e); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Write encodes g as JSON with nodes and edges in sorted order.
func (g *WeightedGraph) Write(w io.Writer) error {
	raw := graphJSON{Nodes: g.Nodes(), Edges: g.Edges()}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(raw); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	return nil
}
