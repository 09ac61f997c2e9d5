// Package credrank computes per-period cred for participants by running a
// Markov-chain graph walk over a merged WeightedGraph.
//
// # Algorithm
//
// Edges are partitioned into periods by timestamp; structural (untimed)
// edges are replicated into every period. For each period:
//
//  1. Every node's outgoing flow weights are normalized into a probability
//     distribution. A node with no outgoing weight gets a self-loop of
//     probability 1, so mass is never lost.
//  2. Power iteration runs from the uniform distribution until the L1
//     distance between successive distributions falls below the
//     convergence threshold, or MaxIterations is reached. Hitting the cap
//     is not an error: the last distribution is used.
//  3. The distribution is scaled by TotalMass and projected onto
//     participant nodes.
//
// Periods are independent and are computed concurrently; each period's
// arithmetic is sequential in a fixed node and edge order, so repeated
// runs produce bit-identical CredGraphs.
//
// # Snapshots
//
// A CredGraph serializes to RFC 8785 canonical JSON (see package canon).
// Cred values are written as shortest round-trip decimal strings, so
// Unmarshal(Marshal(cg)) reproduces every float exactly.
package credrank
