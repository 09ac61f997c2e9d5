// Package bonus mints synthetic cred for funded external dependencies.
//
// Each dependency becomes a synthetic source node with one forward edge to
// every target participant, weighted by mintPercentage × budget. The
// resulting graph is merged with the base contribution graph before the
// cred engine runs.
package bonus

import (
	"math"

	"github.com/roach88/grainrank/internal/errs"
	"github.com/roach88/grainrank/internal/graph"
)

// NodePrefix prefixes the ID of every synthetic dependency node.
const NodePrefix = "bonus/"

// Target maps a dependency onto one participant.
type Target struct {
	Participant    string  `yaml:"participant" json:"participant"`
	MintPercentage float64 `yaml:"mintPercentage" json:"mintPercentage"`
}

// Dependency is a funded external dependency.
type Dependency struct {
	ID          string   `yaml:"id" json:"id"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Targets     []Target `yaml:"targets" json:"targets"`
}

// Mint is one synthetic edge's worth of bonus weight.
type Mint struct {
	Dependency  string
	Participant string
	Weight      float64
}

// ComputeMinting validates deps against the base graph and returns one Mint
// per target, in dependency then target order. Every target must be a
// participant node of base.
func ComputeMinting(base *graph.WeightedGraph, deps []Dependency, budget float64) ([]Mint, error) {
	if math.IsNaN(budget) || math.IsInf(budget, 0) || budget < 0 {
		return nil, errs.InvalidConfiguration("dependency budget must be finite and non-negative, got %v", budget)
	}

	seen := make(map[string]bool, len(deps))
	var mints []Mint
	for _, dep := range deps {
		if dep.ID == "" {
			return nil, errs.InvalidConfiguration("dependency ID is empty")
		}
		if seen[dep.ID] {
			return nil, errs.InvalidConfiguration("duplicate dependency %q", dep.ID)
		}
		seen[dep.ID] = true

		for _, tgt := range dep.Targets {
			p := tgt.MintPercentage
			if math.IsNaN(p) || p < 0 || p > 1 {
				return nil, errs.InvalidConfiguration("dependency %q: mint percentage for %q must be in [0, 1], got %v", dep.ID, tgt.Participant, p)
			}
			n, ok := base.Node(tgt.Participant)
			if !ok {
				return nil, errs.InvalidConfiguration("dependency %q: unknown participant %q", dep.ID, tgt.Participant)
			}
			if !n.Participant {
				return nil, errs.InvalidConfiguration("dependency %q: target %q is not a participant", dep.ID, tgt.Participant)
			}
			mints = append(mints, Mint{
				Dependency:  dep.ID,
				Participant: tgt.Participant,
				Weight:      p * budget,
			})
		}
	}
	return mints, nil
}

// CreateGraph builds the bonus graph for mints. It carries the target
// participant nodes so it can be merged on its own.
func CreateGraph(base *graph.WeightedGraph, deps []Dependency, mints []Mint) (*graph.WeightedGraph, error) {
	g := graph.New()
	for _, dep := range deps {
		desc := dep.Description
		if desc == "" {
			desc = dep.ID
		}
		if err := g.AddNode(graph.Node{ID: NodeID(dep.ID), Description: "Bonus: " + desc}); err != nil {
			return nil, err
		}
	}
	for _, m := range mints {
		target, ok := base.Node(m.Participant)
		if !ok {
			return nil, errs.InvalidConfiguration("unknown participant %q", m.Participant)
		}
		if err := g.AddNode(target); err != nil {
			return nil, err
		}
		err := g.AddEdge(graph.Edge{
			Src:       NodeID(m.Dependency),
			Dst:       m.Participant,
			Direction: graph.Forward,
			Weight:    m.Weight,
		})
		if err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Build runs ComputeMinting and CreateGraph.
func Build(base *graph.WeightedGraph, deps []Dependency, budget float64) (*graph.WeightedGraph, error) {
	mints, err := ComputeMinting(base, deps, budget)
	if err != nil {
		return nil, err
	}
	return CreateGraph(base, deps, mints)
}

// NodeID returns the synthetic node ID for a dependency.
func NodeID(dependency string) string {
	return NodePrefix + dependency
}
