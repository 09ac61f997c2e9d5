package grain

import (
	"encoding/json"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/grainrank/internal/errs"
)

func g(s string) Grain {
	return MustFromString(s)
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "0", Zero.String())
	assert.Equal(t, "1000000000000000000", One.String())
	assert.True(t, Zero.IsZero())
	assert.False(t, One.IsZero())
}

func TestFromString(t *testing.T) {
	v, err := FromString("42")
	require.NoError(t, err)
	assert.Equal(t, "42", v.String())

	_, err = FromString("-1")
	assert.True(t, errs.IsArithmetic(err))

	_, err = FromString("1.5")
	assert.True(t, errs.IsArithmetic(err))

	_, err = FromInt64(-3)
	assert.True(t, errs.IsArithmetic(err))
}

func TestFromDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1", "1000000000000000000"},
		{"12.5", "12500000000000000000"},
		{"0.000000000000000001", "1"},
		{"0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := FromDecimal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}

	_, err := FromDecimal("0.0000000000000000001")
	assert.True(t, errs.IsInvalidConfiguration(err))
	_, err = FromDecimal("-2")
	assert.True(t, errs.IsInvalidConfiguration(err))
	_, err = FromDecimal("ten")
	assert.True(t, errs.IsInvalidConfiguration(err))
}

func TestAddSub(t *testing.T) {
	sum := g("7").Add(g("5"))
	assert.Equal(t, "12", sum.String())

	diff, err := sum.Sub(g("12"))
	require.NoError(t, err)
	assert.True(t, diff.IsZero())

	_, err = g("3").Sub(g("4"))
	require.Error(t, err)
	assert.True(t, errs.IsArithmetic(err))
}

func TestMul(t *testing.T) {
	v, err := g("10").Mul(big.NewRat(1, 3))
	require.NoError(t, err)
	assert.Equal(t, "3", v.String())

	v, err = One.MulFloat(0.5)
	require.NoError(t, err)
	assert.Equal(t, "500000000000000000", v.String())

	_, err = One.Mul(big.NewRat(-1, 2))
	assert.True(t, errs.IsArithmetic(err))
	_, err = One.MulFloat(math.Inf(1))
	assert.True(t, errs.IsArithmetic(err))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, g("1").Cmp(g("2")))
	assert.Equal(t, 0, Zero.Cmp(Grain{}))
	assert.True(t, g("1").Lt(One))
	assert.True(t, Sum(g("1"), g("2"), g("3")).Equal(g("6")))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1.00", One.Format(2))
	assert.Equal(t, "12.5", g("12500000000000000000").Format(1))
	assert.Equal(t, "0", Zero.Format(0))
}

func TestDecimal(t *testing.T) {
	assert.Equal(t, "1", One.Decimal())
	assert.Equal(t, "12.5", g("12500000000000000000").Decimal())
	assert.Equal(t, "0.000000000000000001", g("1").Decimal())

	back, err := FromDecimal(g("12500000000000000007").Decimal())
	require.NoError(t, err)
	assert.Equal(t, "12500000000000000007", back.String())
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(One)
	require.NoError(t, err)
	assert.Equal(t, `"1000000000000000000"`, string(data))

	var back Grain
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Equal(One))

	assert.Error(t, json.Unmarshal([]byte(`12`), &back))
}
