package credrank

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/roach88/grainrank/internal/graph"
)

// Participant is a scored identity with one cred value per period.
type Participant struct {
	ID          string
	Description string
	Cred        []float64
}

// TotalCred sums cred across all periods.
func (p Participant) TotalCred() float64 {
	return floats.Sum(p.Cred)
}

// EdgeFlow attributes cred mass to one graph edge, per period.
type EdgeFlow struct {
	Src       string
	Dst       string
	Direction graph.Direction
	Timestamp *int64
	Flow      []float64
}

// PeriodStats records how power iteration went for one period. Stats are
// diagnostic and are not part of snapshots.
type PeriodStats struct {
	Start      int64
	Iterations int
	Delta      float64
	Converged  bool
}

// CredGraph is the immutable result of a cred run.
type CredGraph struct {
	boundaries   []int64
	participants []Participant
	edges        []EdgeFlow
	stats        []PeriodStats
}

func newCredGraph(boundaries []int64, participants []Participant, edges []EdgeFlow, stats []PeriodStats) *CredGraph {
	slices.SortFunc(participants, func(a, b Participant) int { return cmp.Compare(a.ID, b.ID) })
	return &CredGraph{
		boundaries:   boundaries,
		participants: participants,
		edges:        edges,
		stats:        stats,
	}
}

// Boundaries returns a copy of the period start timestamps.
func (cg *CredGraph) Boundaries() []int64 {
	return slices.Clone(cg.boundaries)
}

// NumPeriods returns the number of periods.
func (cg *CredGraph) NumPeriods() int {
	return len(cg.boundaries)
}

// Participants returns participants sorted by ID. Cred slices are copies.
func (cg *CredGraph) Participants() []Participant {
	out := make([]Participant, len(cg.participants))
	for i, p := range cg.participants {
		p.Cred = slices.Clone(p.Cred)
		out[i] = p
	}
	return out
}

// Participant looks up one participant by ID.
func (cg *CredGraph) Participant(id string) (Participant, bool) {
	i, ok := slices.BinarySearchFunc(cg.participants, id, func(p Participant, id string) int {
		return cmp.Compare(p.ID, id)
	})
	if !ok {
		return Participant{}, false
	}
	p := cg.participants[i]
	p.Cred = slices.Clone(p.Cred)
	return p, true
}

// EdgeFlows returns per-edge cred attribution in graph edge order.
func (cg *CredGraph) EdgeFlows() []EdgeFlow {
	out := make([]EdgeFlow, len(cg.edges))
	for i, e := range cg.edges {
		e.Flow = slices.Clone(e.Flow)
		out[i] = e
	}
	return out
}

// Stats returns per-period convergence diagnostics. Empty for a CredGraph
// loaded from a snapshot.
func (cg *CredGraph) Stats() []PeriodStats {
	return slices.Clone(cg.stats)
}

// TotalCred sums cred across all participants and periods.
func (cg *CredGraph) TotalCred() float64 {
	var total float64
	for _, p := range cg.participants {
		total += p.TotalCred()
	}
	return total
}
