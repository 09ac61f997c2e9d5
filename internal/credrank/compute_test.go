package credrank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/grainrank/internal/bonus"
	"github.com/roach88/grainrank/internal/errs"
	"github.com/roach88/grainrank/internal/graph"
)

func ts(v int64) *int64 { return &v }

func buildGraph(t *testing.T, nodes []graph.Node, edges []graph.Edge) *graph.WeightedGraph {
	t.Helper()
	g := graph.New()
	for _, n := range nodes {
		require.NoError(t, g.AddNode(n))
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e))
	}
	return g
}

var (
	alice = graph.Node{ID: "alice", Description: "Alice", Participant: true}
	bob   = graph.Node{ID: "bob", Description: "Bob", Participant: true}
	pr    = graph.Node{ID: "pr/1", Description: "PR #1"}
)

// twoNodeCycle has exactly representable results: both participants hold
// half the mass in every period.
func twoNodeCycle(t *testing.T) *graph.WeightedGraph {
	return buildGraph(t, []graph.Node{alice, bob}, []graph.Edge{
		{Src: "alice", Dst: "bob", Direction: graph.Forward, Weight: 1},
		{Src: "bob", Dst: "alice", Direction: graph.Forward, Weight: 1},
		{Src: "alice", Dst: "bob", Direction: graph.Forward, Weight: 1, Timestamp: ts(150)},
	})
}

func TestCompute_TwoNodeCycle(t *testing.T) {
	cg, err := Compute(twoNodeCycle(t), []int64{0, 100}, DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, []Participant{
		{ID: "alice", Description: "Alice", Cred: []float64{500, 500}},
		{ID: "bob", Description: "Bob", Cred: []float64{500, 500}},
	}, cg.Participants())

	flows := cg.EdgeFlows()
	require.Len(t, flows, 3)
	assert.Equal(t, []float64{500, 250}, flows[0].Flow, "structural alice->bob")
	assert.Equal(t, []float64{0, 250}, flows[1].Flow, "timed alice->bob only in its period")
	assert.Equal(t, []float64{500, 500}, flows[2].Flow, "bob->alice")

	for _, s := range cg.Stats() {
		assert.True(t, s.Converged)
		assert.Equal(t, 1, s.Iterations)
	}
}

func TestCompute_SinkAbsorbsMass(t *testing.T) {
	g := buildGraph(t, []graph.Node{alice, bob}, []graph.Edge{
		{Src: "alice", Dst: "bob", Direction: graph.Forward, Weight: 3},
	})
	cg, err := Compute(g, []int64{0}, DefaultParams())
	require.NoError(t, err)

	a, _ := cg.Participant("alice")
	b, _ := cg.Participant("bob")
	assert.Equal(t, []float64{0}, a.Cred)
	assert.Equal(t, []float64{1000}, b.Cred)
	assert.Equal(t, 2, cg.Stats()[0].Iterations)
}

func TestCompute_BackwardEdgeFlowsToSource(t *testing.T) {
	g := buildGraph(t, []graph.Node{alice, bob}, []graph.Edge{
		{Src: "alice", Dst: "bob", Direction: graph.Backward, Weight: 1},
	})
	cg, err := Compute(g, []int64{0}, DefaultParams())
	require.NoError(t, err)

	a, _ := cg.Participant("alice")
	assert.Equal(t, []float64{1000}, a.Cred)
}

func TestCompute_BonusMintRaisesTarget(t *testing.T) {
	pr2 := graph.Node{ID: "pr/2", Description: "PR #2"}
	base := buildGraph(t, []graph.Node{alice, bob, pr, pr2}, []graph.Edge{
		{Src: "pr/1", Dst: "alice", Direction: graph.Forward, Weight: 1},
		{Src: "pr/2", Dst: "bob", Direction: graph.Forward, Weight: 1},
	})

	without, err := Compute(base, []int64{0}, DefaultParams())
	require.NoError(t, err)

	minted, err := bonus.Build(base, []bonus.Dependency{{
		ID:      "sqlite",
		Targets: []bonus.Target{{Participant: "alice", MintPercentage: 1}},
	}}, 1)
	require.NoError(t, err)
	merged, err := graph.Merge(base, minted)
	require.NoError(t, err)
	with, err := Compute(merged, []int64{0}, DefaultParams())
	require.NoError(t, err)

	a0, _ := without.Participant("alice")
	b0, _ := without.Participant("bob")
	assert.InDelta(t, 500, a0.Cred[0], 1e-9)
	assert.InDelta(t, 500, b0.Cred[0], 1e-9)

	// The dependency node's share of the starting mass lands on alice.
	a1, _ := with.Participant("alice")
	b1, _ := with.Participant("bob")
	assert.InDelta(t, 600, a1.Cred[0], 1e-9)
	assert.InDelta(t, 400, b1.Cred[0], 1e-9)
	assert.Greater(t, a1.Cred[0], a0.Cred[0])
}

func TestCompute_ProjectsOntoParticipants(t *testing.T) {
	g := buildGraph(t, []graph.Node{alice, bob, pr}, []graph.Edge{
		{Src: "alice", Dst: "pr/1", Direction: graph.Forward, Weight: 1},
		{Src: "pr/1", Dst: "bob", Direction: graph.Forward, Weight: 1},
		{Src: "bob", Dst: "alice", Direction: graph.Forward, Weight: 1},
		{Src: "pr/1", Dst: "alice", Direction: graph.Forward, Weight: 1},
	})
	cg, err := Compute(g, []int64{0}, DefaultParams())
	require.NoError(t, err)

	ps := cg.Participants()
	require.Len(t, ps, 2)
	_, ok := cg.Participant("pr/1")
	assert.False(t, ok)

	// Artifact mass is dropped by the projection, so participants hold
	// strictly less than the total.
	assert.Less(t, cg.TotalCred(), DefaultTotalMass)
	assert.Greater(t, cg.TotalCred(), 0.0)
}

func TestCompute_ConservesMassPerPeriod(t *testing.T) {
	carol := graph.Node{ID: "carol", Description: "Carol", Participant: true}
	g := buildGraph(t, []graph.Node{alice, bob, carol}, []graph.Edge{
		{Src: "alice", Dst: "bob", Direction: graph.Forward, Weight: 2},
		{Src: "alice", Dst: "carol", Direction: graph.Forward, Weight: 1},
		{Src: "bob", Dst: "carol", Direction: graph.Backward, Weight: 0.7},
		{Src: "carol", Dst: "alice", Direction: graph.Forward, Weight: 5, Timestamp: ts(10)},
		{Src: "bob", Dst: "alice", Direction: graph.Forward, Weight: 1, Timestamp: ts(120)},
	})
	cg, err := Compute(g, []int64{0, 100}, DefaultParams())
	require.NoError(t, err)

	for k := 0; k < cg.NumPeriods(); k++ {
		var sum float64
		for _, p := range cg.Participants() {
			sum += p.Cred[k]
		}
		assert.InDelta(t, DefaultTotalMass, sum, 1e-6, "period %d", k)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	carol := graph.Node{ID: "carol", Description: "Carol", Participant: true}
	g := buildGraph(t, []graph.Node{alice, bob, carol, pr}, []graph.Edge{
		{Src: "alice", Dst: "pr/1", Direction: graph.Forward, Weight: 0.3, Timestamp: ts(5)},
		{Src: "pr/1", Dst: "bob", Direction: graph.Forward, Weight: 1.7},
		{Src: "pr/1", Dst: "carol", Direction: graph.Backward, Weight: 0.1},
		{Src: "carol", Dst: "alice", Direction: graph.Forward, Weight: 2, Timestamp: ts(205)},
		{Src: "bob", Dst: "pr/1", Direction: graph.Forward, Weight: 0.9, Timestamp: ts(110)},
	})
	boundaries := []int64{0, 100, 200}

	first, err := Compute(g, boundaries, DefaultParams())
	require.NoError(t, err)
	want, err := first.Marshal()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Compute(g, boundaries, DefaultParams())
		require.NoError(t, err)
		got, err := again.Marshal()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCompute_IterationCapIsSoft(t *testing.T) {
	// Bipartite and periodic: the walk oscillates forever.
	g := buildGraph(t, []graph.Node{alice, bob, pr}, []graph.Edge{
		{Src: "alice", Dst: "pr/1", Direction: graph.Forward, Weight: 1},
		{Src: "bob", Dst: "pr/1", Direction: graph.Forward, Weight: 1},
		{Src: "pr/1", Dst: "alice", Direction: graph.Forward, Weight: 1},
		{Src: "pr/1", Dst: "bob", Direction: graph.Forward, Weight: 1},
	})
	params := DefaultParams()
	params.MaxIterations = 3

	cg, err := Compute(g, []int64{0}, params)
	require.NoError(t, err)
	stats := cg.Stats()[0]
	assert.False(t, stats.Converged)
	assert.Equal(t, 3, stats.Iterations)
	require.Len(t, cg.Participants(), 2)
}

func TestCompute_EmptyGraph(t *testing.T) {
	cg, err := Compute(graph.New(), []int64{0, 10}, DefaultParams())
	require.NoError(t, err)
	assert.Empty(t, cg.Participants())
	assert.Equal(t, 2, cg.NumPeriods())
}

func TestCompute_BadBoundaries(t *testing.T) {
	g := twoNodeCycle(t)
	for name, b := range map[string][]int64{
		"empty":         nil,
		"equal":         {0, 100, 100},
		"decreasing":    {100, 0},
		"late decrease": {0, 10, 20, 15},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Compute(g, b, DefaultParams())
			require.Error(t, err)
			assert.True(t, errs.IsGraphIntegrity(err))
		})
	}
}

func TestCompute_BadParams(t *testing.T) {
	g := twoNodeCycle(t)
	for name, p := range map[string]Params{
		"zero threshold":  {ConvergenceThreshold: 0, MaxIterations: 1, TotalMass: 1},
		"zero iterations": {ConvergenceThreshold: 1e-3, MaxIterations: 0, TotalMass: 1},
		"negative mass":   {ConvergenceThreshold: 1e-3, MaxIterations: 1, TotalMass: -1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Compute(g, []int64{0}, p)
			assert.True(t, errs.IsInvalidConfiguration(err))
		})
	}
}

func TestParams_WithDefaults(t *testing.T) {
	p := Params{MaxIterations: 7}.WithDefaults()
	assert.Equal(t, Params{ConvergenceThreshold: DefaultConvergenceThreshold, MaxIterations: 7, TotalMass: DefaultTotalMass}, p)
}
