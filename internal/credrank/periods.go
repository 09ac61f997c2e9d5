package credrank

import (
	"math"
	"sort"
	"time"

	"github.com/roach88/grainrank/internal/errs"
	"github.com/roach88/grainrank/internal/graph"
)

// validateBoundaries requires a non-empty, strictly increasing sequence.
func validateBoundaries(boundaries []int64) error {
	if len(boundaries) == 0 {
		return errs.GraphIntegrity("period boundaries are empty")
	}
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] <= boundaries[i-1] {
			return errs.GraphIntegrity("period boundaries must be strictly increasing: boundaries[%d]=%d <= boundaries[%d]=%d",
				i, boundaries[i], i-1, boundaries[i-1])
		}
	}
	return nil
}

// periodIndex returns the period containing ts. Period i covers
// [boundaries[i], boundaries[i+1]); the last period is open ended and
// timestamps before the first boundary belong to period 0.
func periodIndex(boundaries []int64, ts int64) int {
	i := sort.Search(len(boundaries), func(i int) bool { return boundaries[i] > ts }) - 1
	if i < 0 {
		return 0
	}
	return i
}

// MaxPeriods bounds how many periods PeriodBoundaries may derive.
const MaxPeriods = 1_000_000

// PeriodBoundaries derives contiguous period starts of the given length
// covering every timestamped edge in g. Starts are aligned to multiples of
// length since the epoch. A graph with no timestamped edges gets a single
// period starting at 0. If the aligned start of the earliest timestamp is
// not representable, the first boundary is the earliest aligned one that is;
// earlier timestamps fall into period 0. Deriving more than MaxPeriods
// periods is an InvalidConfiguration error.
func PeriodBoundaries(g *graph.WeightedGraph, length time.Duration) ([]int64, error) {
	step := length.Milliseconds()
	if step < 1 {
		return nil, errs.InvalidConfiguration("period length must be at least 1ms, got %s", length)
	}

	var lo, hi int64
	found := false
	for _, e := range g.Edges() {
		if e.Timestamp == nil {
			continue
		}
		ts := *e.Timestamp
		if !found || ts < lo {
			lo = ts
		}
		if !found || ts > hi {
			hi = ts
		}
		found = true
	}
	if !found {
		return []int64{0}, nil
	}

	q := floorDiv(lo, step)
	if minQ := math.MinInt64 / step; q < minQ {
		q = minQ
	}
	start := q * step
	if start > hi {
		return []int64{start}, nil
	}
	// Unsigned arithmetic: hi-start may exceed math.MaxInt64.
	steps := (uint64(hi) - uint64(start)) / uint64(step)
	if steps >= MaxPeriods {
		return nil, errs.InvalidConfiguration("period length %s over timestamps [%d, %d] gives more than %d periods",
			length, lo, hi, MaxPeriods)
	}
	count := steps + 1
	out := make([]int64, count)
	for i := range out {
		out[i] = int64(uint64(start) + uint64(i)*uint64(step))
	}
	return out, nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
