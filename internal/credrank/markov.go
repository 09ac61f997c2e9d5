package credrank

import (
	"gonum.org/v1/gonum/floats"

	"github.com/roach88/grainrank/internal/graph"
)

// selfLoop marks a transition that is an absorbing self-loop rather than a
// graph edge.
const selfLoop = -1

type transition struct {
	from, to int
	prob     float64
	edge     int
}

// chain is the transition structure for one period.
type chain struct {
	n     int
	trans []transition
}

// buildChain normalizes each node's outgoing flow in the given edges. Edge
// indexes refer to the caller's full edge list. Weights are summed and
// transitions emitted in edge order, so the result is deterministic.
func buildChain(nodeIndex map[string]int, n int, edges []graph.Edge, edgeIdx []int) chain {
	totals := make([]float64, n)
	for _, i := range edgeIdx {
		e := edges[i]
		totals[nodeIndex[e.FlowSource()]] += e.Weight
	}

	trans := make([]transition, 0, len(edgeIdx)+n)
	for _, i := range edgeIdx {
		e := edges[i]
		from := nodeIndex[e.FlowSource()]
		if totals[from] == 0 {
			continue
		}
		trans = append(trans, transition{
			from: from,
			to:   nodeIndex[e.FlowTarget()],
			prob: e.Weight / totals[from],
			edge: i,
		})
	}
	for u := 0; u < n; u++ {
		if totals[u] == 0 {
			trans = append(trans, transition{from: u, to: u, prob: 1, edge: selfLoop})
		}
	}
	return chain{n: n, trans: trans}
}

// walkResult is the outcome of power iteration for one period.
type walkResult struct {
	dist       []float64
	iterations int
	delta      float64
	converged  bool
}

// stationary runs power iteration from the uniform distribution.
func (c chain) stationary(threshold float64, maxIterations int) walkResult {
	if c.n == 0 {
		return walkResult{dist: []float64{}, converged: true}
	}

	p := make([]float64, c.n)
	for i := range p {
		p[i] = 1 / float64(c.n)
	}

	res := walkResult{}
	for res.iterations < maxIterations {
		next := make([]float64, c.n)
		for _, t := range c.trans {
			next[t.to] += p[t.from] * t.prob
		}
		res.iterations++
		res.delta = floats.Distance(next, p, 1)
		p = next
		if res.delta < threshold {
			res.converged = true
			break
		}
	}
	res.dist = p
	return res
}

// edgeFlows returns the mass carried by each graph edge under dist,
// scaled by mass. Self-loops are not reported.
func (c chain) edgeFlows(dist []float64, numEdges int, mass float64) []float64 {
	out := make([]float64, numEdges)
	for _, t := range c.trans {
		if t.edge == selfLoop {
			continue
		}
		out[t.edge] += dist[t.from] * t.prob * mass
	}
	return out
}
