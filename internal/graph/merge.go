package graph

// Merge combines graphs into a new graph. Nodes are unioned by ID and must
// carry identical metadata everywhere they appear. Edges sharing a key have
// their exact weights summed, so the result does not depend on input order
// or grouping. Edges between the same endpoints in the same direction but
// with different timestamps (or one timed, one untimed) are kept as
// separate edges; see Edge.Key. Inputs are not modified.
func Merge(graphs ...*WeightedGraph) (*WeightedGraph, error) {
	out := New()
	for _, g := range graphs {
		if g == nil {
			continue
		}
		for _, n := range g.Nodes() {
			if err := out.AddNode(n); err != nil {
				return nil, err
			}
		}
	}
	for _, g := range graphs {
		if g == nil {
			continue
		}
		for k, w := range g.edges {
			if err := out.addWeight(k, w); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
