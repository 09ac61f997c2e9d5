package grain

import (
	"math"
	"math/big"
	"slices"

	"github.com/roach88/grainrank/internal/errs"
)

// SplitBudget divides total across weights in proportion, exactly.
//
// Each entry first gets the floor of its ideal share total*w/sum(w). The
// leftover minimal units (fewer than len(weights)) go one each to the
// entries with the largest fractional remainder, ties broken by ascending
// index. The result always sums to total.
//
// All-zero weights yield all-zero amounts for a zero total and an
// ARITHMETIC error otherwise. Negative or non-finite weights are rejected.
func SplitBudget(total Grain, weights []float64) ([]Grain, error) {
	rats := make([]*big.Rat, len(weights))
	sum := new(big.Rat)
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, errs.Arithmetic("weight %d must be finite and non-negative, got %v", i, w)
		}
		rats[i] = new(big.Rat).SetFloat64(w)
		sum.Add(sum, rats[i])
	}

	out := make([]Grain, len(weights))
	if sum.Sign() == 0 {
		if !total.IsZero() {
			return nil, errs.Arithmetic("cannot distribute positive budget with zero total weight")
		}
		for i := range out {
			out[i] = Zero
		}
		return out, nil
	}

	totalRat := new(big.Rat).SetInt(total.bigInt())
	fracs := make([]*big.Rat, len(weights))
	provisional := new(big.Int)
	floors := make([]*big.Int, len(weights))
	for i, w := range rats {
		ideal := new(big.Rat).Mul(totalRat, new(big.Rat).Quo(w, sum))
		q, r := new(big.Int).QuoRem(ideal.Num(), ideal.Denom(), new(big.Int))
		floors[i] = q
		fracs[i] = new(big.Rat).SetFrac(r, ideal.Denom())
		provisional.Add(provisional, q)
	}

	remainder := new(big.Int).Sub(total.bigInt(), provisional)
	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if c := fracs[b].Cmp(fracs[a]); c != 0 {
			return c
		}
		return a - b
	})

	// remainder < len(weights), so it fits in an int.
	for k := int64(0); k < remainder.Int64(); k++ {
		i := order[k]
		floors[i].Add(floors[i], big.NewInt(1))
	}

	for i, f := range floors {
		out[i] = fromBig(f)
	}
	return out, nil
}
