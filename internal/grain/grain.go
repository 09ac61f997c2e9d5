// Package grain implements Grain, the fixed-point currency distributed in
// proportion to cred.
//
// A Grain is an exact non-negative integer count of minimal units. One whole
// grain is 10^18 minimal units. Floating point never enters a Grain value:
// scaling goes through exact rationals and display strings are one-way.
package grain

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/roach88/grainrank/internal/errs"
)

// DecimalPrecision is the number of minimal-unit decimal places in one grain.
const DecimalPrecision = 18

// Grain is an immutable amount of minimal units. The zero value is Zero.
type Grain struct {
	v *big.Int
}

// Process-wide constants. Methods never mutate a Grain, so sharing is safe.
var (
	Zero = Grain{}
	One  = Grain{v: new(big.Int).Exp(big.NewInt(10), big.NewInt(DecimalPrecision), nil)}
)

// CurrencyID is an opaque, already validated currency identifier. It is
// recorded alongside distributions and never parsed here.
type CurrencyID string

func fromBig(b *big.Int) Grain {
	if b.Sign() == 0 {
		return Zero
	}
	return Grain{v: b}
}

func (g Grain) bigInt() *big.Int {
	if g.v == nil {
		return new(big.Int)
	}
	return g.v
}

// FromInt64 returns n minimal units. Fails on negative n.
func FromInt64(n int64) (Grain, error) {
	if n < 0 {
		return Zero, errs.Arithmetic("grain must be non-negative, got %d", n)
	}
	return fromBig(big.NewInt(n)), nil
}

// FromString parses a base-10 count of minimal units.
func FromString(s string) (Grain, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Zero, errs.Arithmetic("invalid grain amount %q", s)
	}
	if b.Sign() < 0 {
		return Zero, errs.Arithmetic("grain must be non-negative, got %s", s)
	}
	return fromBig(b), nil
}

// MustFromString is like FromString but panics on error.
// Use only in tests or with constant inputs.
func MustFromString(s string) Grain {
	g, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return g
}

// FromDecimal parses a whole-grain decimal such as "12.5" into minimal
// units. Amounts finer than one minimal unit are rejected, not rounded.
func FromDecimal(s string) (Grain, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, errs.InvalidConfiguration("invalid grain decimal %q", s)
	}
	if d.IsNegative() {
		return Zero, errs.InvalidConfiguration("grain amount must be non-negative, got %q", s)
	}
	shifted := d.Shift(DecimalPrecision)
	if !shifted.IsInteger() {
		return Zero, errs.InvalidConfiguration("grain amount %q has more than %d decimal places", s, DecimalPrecision)
	}
	return fromBig(shifted.BigInt()), nil
}

// Add returns g + o.
func (g Grain) Add(o Grain) Grain {
	return fromBig(new(big.Int).Add(g.bigInt(), o.bigInt()))
}

// Sub returns g - o. Fails with an ARITHMETIC error when o > g.
func (g Grain) Sub(o Grain) (Grain, error) {
	if g.Cmp(o) < 0 {
		return Zero, errs.Arithmetic("grain underflow: %s - %s", g, o)
	}
	return fromBig(new(big.Int).Sub(g.bigInt(), o.bigInt())), nil
}

// Mul scales g by a non-negative rational, flooring to whole minimal units.
func (g Grain) Mul(r *big.Rat) (Grain, error) {
	if r == nil || r.Sign() < 0 {
		return Zero, errs.Arithmetic("grain can only be scaled by a non-negative rational")
	}
	scaled := new(big.Rat).Mul(new(big.Rat).SetInt(g.bigInt()), r)
	return fromBig(new(big.Int).Quo(scaled.Num(), scaled.Denom())), nil
}

// MulFloat scales g by a non-negative finite float. The float is converted
// to its exact rational value first.
func (g Grain) MulFloat(f float64) (Grain, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Zero, errs.Arithmetic("grain cannot be scaled by %v", f)
	}
	return g.Mul(new(big.Rat).SetFloat64(f))
}

// Cmp returns -1, 0 or +1 as g is less than, equal to or greater than o.
func (g Grain) Cmp(o Grain) int {
	return g.bigInt().Cmp(o.bigInt())
}

// Equal reports whether g and o are the same amount.
func (g Grain) Equal(o Grain) bool {
	return g.Cmp(o) == 0
}

// Lt reports whether g < o.
func (g Grain) Lt(o Grain) bool {
	return g.Cmp(o) < 0
}

// IsZero reports whether g is zero.
func (g Grain) IsZero() bool {
	return g.v == nil || g.v.Sign() == 0
}

// BigInt returns a copy of the underlying minimal-unit count.
func (g Grain) BigInt() *big.Int {
	return new(big.Int).Set(g.bigInt())
}

// String returns the minimal-unit count in base 10. This is the storage
// form and round-trips through FromString.
func (g Grain) String() string {
	return g.bigInt().String()
}

// Format renders g in whole grain with a fixed number of decimals, for
// reporting only. The result is never parsed back into a Grain.
func (g Grain) Format(decimals int32) string {
	return decimal.NewFromBigInt(g.bigInt(), -DecimalPrecision).StringFixed(decimals)
}

// Decimal renders g exactly in whole grain with no trailing zeros. It is
// the inverse of FromDecimal and is used for configuration records.
func (g Grain) Decimal() string {
	return decimal.NewFromBigInt(g.bigInt(), -DecimalPrecision).String()
}

// Sum adds all amounts.
func Sum(gs ...Grain) Grain {
	total := new(big.Int)
	for _, g := range gs {
		total.Add(total, g.bigInt())
	}
	return fromBig(total)
}

// MarshalJSON encodes g as a quoted minimal-unit string.
func (g Grain) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

// UnmarshalJSON decodes a quoted minimal-unit string.
func (g *Grain) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("grain: %w", err)
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
