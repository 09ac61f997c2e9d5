package credrank

import (
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/grainrank/internal/graph"
)

type periodResult struct {
	scores []float64
	flows  []float64
	stats  PeriodStats
}

// Compute runs the graph walk over g for the given period boundaries and
// returns the resulting CredGraph.
//
// Fails with GRAPH_INTEGRITY if boundaries are empty or not strictly
// increasing, and with INVALID_CONFIGURATION for bad params. Failing to
// converge is never fatal.
func Compute(g *graph.WeightedGraph, boundaries []int64, params Params) (*CredGraph, error) {
	if err := validateBoundaries(boundaries); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	nodes := g.Nodes()
	nodeIndex := make(map[string]int, len(nodes))
	for i, n := range nodes {
		nodeIndex[n.ID] = i
	}
	edges := g.Edges()

	// Partition edge indexes by period; structural edges go everywhere.
	perPeriod := make([][]int, len(boundaries))
	for i, e := range edges {
		if e.Timestamp == nil {
			for k := range perPeriod {
				perPeriod[k] = append(perPeriod[k], i)
			}
			continue
		}
		k := periodIndex(boundaries, *e.Timestamp)
		perPeriod[k] = append(perPeriod[k], i)
	}

	results := make([]periodResult, len(boundaries))
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for k := range boundaries {
		eg.Go(func() error {
			c := buildChain(nodeIndex, len(nodes), edges, perPeriod[k])
			walk := c.stationary(params.ConvergenceThreshold, params.MaxIterations)

			scores := make([]float64, len(walk.dist))
			for i, v := range walk.dist {
				scores[i] = v * params.TotalMass
			}
			results[k] = periodResult{
				scores: scores,
				flows:  c.edgeFlows(walk.dist, len(edges), params.TotalMass),
				stats: PeriodStats{
					Start:      boundaries[k],
					Iterations: walk.iterations,
					Delta:      walk.delta,
					Converged:  walk.converged,
				},
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var participants []Participant
	for i, n := range nodes {
		if !n.Participant {
			continue
		}
		cred := make([]float64, len(boundaries))
		for k := range results {
			cred[k] = results[k].scores[i]
		}
		participants = append(participants, Participant{ID: n.ID, Description: n.Description, Cred: cred})
	}

	flows := make([]EdgeFlow, len(edges))
	for i, e := range edges {
		f := make([]float64, len(boundaries))
		for k := range results {
			f[k] = results[k].flows[i]
		}
		flows[i] = EdgeFlow{Src: e.Src, Dst: e.Dst, Direction: e.Direction, Timestamp: e.Timestamp, Flow: f}
	}

	stats := make([]PeriodStats, len(results))
	for k, r := range results {
		stats[k] = r.stats
		if !r.stats.Converged {
			slog.Warn("credrank period hit iteration cap",
				"period_start", r.stats.Start,
				"iterations", r.stats.Iterations,
				"delta", r.stats.Delta)
		} else {
			slog.Debug("credrank period converged",
				"period_start", r.stats.Start,
				"iterations", r.stats.Iterations)
		}
	}

	return newCredGraph(append([]int64(nil), boundaries...), participants, flows, stats), nil
}
