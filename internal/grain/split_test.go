package grain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/grainrank/internal/errs"
)

func amounts(gs []Grain) []string {
	out := make([]string, len(gs))
	for i, v := range gs {
		out[i] = v.String()
	}
	return out
}

func TestSplitBudget_Proportional(t *testing.T) {
	out, err := SplitBudget(One, []float64{40, 60})
	require.NoError(t, err)
	assert.Equal(t, []string{"400000000000000000", "600000000000000000"}, amounts(out))
}

func TestSplitBudget_RemainderToLargestFraction(t *testing.T) {
	out, err := SplitBudget(One, []float64{100, 200})
	require.NoError(t, err)
	// 1/3 and 2/3 leave one unit over; the 2/3 entry has the larger fraction.
	assert.Equal(t, []string{"333333333333333333", "666666666666666667"}, amounts(out))
}

func TestSplitBudget_TiesByAscendingIndex(t *testing.T) {
	out, err := SplitBudget(g("10"), []float64{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "3", "3"}, amounts(out))

	out, err = SplitBudget(g("5"), []float64{0, 1, 1, 0, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "2", "1", "0", "1", "1"}, amounts(out))
}

func TestSplitBudget_ZeroWeights(t *testing.T) {
	out, err := SplitBudget(Zero, []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "0"}, amounts(out))

	_, err = SplitBudget(One, []float64{0, 0})
	require.Error(t, err)
	assert.True(t, errs.IsArithmetic(err))
	assert.Contains(t, err.Error(), "cannot distribute positive budget with zero total weight")

	_, err = SplitBudget(One, nil)
	assert.True(t, errs.IsArithmetic(err))
}

func TestSplitBudget_RejectsBadWeights(t *testing.T) {
	for _, w := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := SplitBudget(One, []float64{1, w})
		assert.True(t, errs.IsArithmetic(err), "weight %v", w)
	}
}

func TestSplitBudget_SumsToTotal(t *testing.T) {
	totals := []Grain{Zero, g("1"), g("7"), g("999"), One, g("123456789012345678901234567890")}
	weightSets := [][]float64{
		{1},
		{1, 2, 3},
		{0.1, 0.2, 0.3, 0.4},
		{1e-9, 5, 1e9},
		{3, 3, 3, 3, 3, 3, 3},
		{0, 0, 1},
		{math.Pi, math.E, math.Sqrt2},
	}

	for _, total := range totals {
		for _, ws := range weightSets {
			out, err := SplitBudget(total, ws)
			require.NoError(t, err)
			require.Len(t, out, len(ws))
			for _, v := range out {
				assert.GreaterOrEqual(t, v.Cmp(Zero), 0)
			}
			assert.True(t, Sum(out...).Equal(total), "total %s weights %v got %v", total, ws, amounts(out))
		}
	}
}

func TestSplitBudget_LargerWeightNeverMoreThanOneUnitBehind(t *testing.T) {
	ws := []float64{5, 7, 7, 11, 2}
	out, err := SplitBudget(g("1000003"), ws)
	require.NoError(t, err)
	for i := range ws {
		for j := range ws {
			if ws[i] >= ws[j] {
				diff := out[j].BigInt()
				diff.Sub(diff, out[i].BigInt())
				assert.LessOrEqual(t, diff.Int64(), int64(1))
			}
		}
	}
}
