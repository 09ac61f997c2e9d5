// Package policy turns per-identity cred histories into grain receipts.
//
// Every variant has the same shape: validate the configuration, compute a
// non-negative score per identity, split the budget over those scores with
// grain.SplitBudget, and pair the amounts back with identities in input
// order. Policies are pure; they never log and never touch the ledger.
package policy

import (
	"github.com/roach88/grainrank/internal/grain"
)

// Type names a policy variant in configuration and ledger records.
type Type string

const (
	TypeImmediate Type = "IMMEDIATE"
	TypeRecent    Type = "RECENT"
	TypeBalanced  Type = "BALANCED"
	TypeSpecial   Type = "SPECIAL"
)

// ProcessedIdentity is everything a policy knows about one identity's
// history. Cred is chronological, one value per period.
type ProcessedIdentity struct {
	ID   string
	Cred []float64
	Paid grain.Grain
}

// Receipt is one identity's share of a distribution.
type Receipt struct {
	ID     string      `json:"id"`
	Amount grain.Grain `json:"amount"`
}

// Policy is a closed set of variants: Immediate, Recent, Balanced and
// Special.
type Policy interface {
	Type() Type
	isPolicy()
}

// Immediate pays out in proportion to cred over the most recent periods.
// NumPeriodsLookback defaults to 1 when nil. It is a float so that
// non-integral configuration values are reported rather than truncated.
type Immediate struct {
	Budget             grain.Grain
	NumPeriodsLookback *float64
}

// Recent pays out in proportion to exponentially discounted cred. Each
// step into the past multiplies a period's weight by 1-Discount.
type Recent struct {
	Budget   grain.Grain
	Discount float64
}

// Balanced tops identities up toward their fair share of everything ever
// paid. NumPeriodsLookback limits the cred considered; 0 means all of it.
type Balanced struct {
	Budget             grain.Grain
	NumPeriodsLookback int
}

// Special sends the whole budget to one identity.
type Special struct {
	Budget    grain.Grain
	Recipient string
	Memo      string
}

func (Immediate) Type() Type { return TypeImmediate }
func (Recent) Type() Type    { return TypeRecent }
func (Balanced) Type() Type  { return TypeBalanced }
func (Special) Type() Type   { return TypeSpecial }

func (Immediate) isPolicy() {}
func (Recent) isPolicy()    {}
func (Balanced) isPolicy()  {}
func (Special) isPolicy()   {}

// Budget returns the amount p distributes.
func Budget(p Policy) grain.Grain {
	switch p := p.(type) {
	case Immediate:
		return p.Budget
	case Recent:
		return p.Budget
	case Balanced:
		return p.Budget
	case Special:
		return p.Budget
	default:
		panic(unknownPolicy(p))
	}
}
