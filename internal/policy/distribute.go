package policy

import (
	"fmt"
	"math"
	"math/big"

	"github.com/roach88/grainrank/internal/errs"
	"github.com/roach88/grainrank/internal/grain"
)

func unknownPolicy(p Policy) string {
	return fmt.Sprintf("policy: unknown variant %T", p)
}

// Distribute computes receipts for identities under p. Receipts are in
// the same order as identities and sum to the policy budget whenever at
// least one identity has a nonzero score.
func Distribute(p Policy, identities []ProcessedIdentity) ([]Receipt, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}

	var scores []float64
	switch p := p.(type) {
	case Immediate:
		scores = immediateScores(p, identities)
	case Recent:
		scores = recentScores(p, identities)
	case Balanced:
		scores = balancedScores(p, identities)
	case Special:
		var err error
		if scores, err = specialScores(p, identities); err != nil {
			return nil, err
		}
	default:
		panic(unknownPolicy(p))
	}

	amounts, err := grain.SplitBudget(Budget(p), scores)
	if err != nil {
		return nil, fmt.Errorf("%s policy: %w", p.Type(), err)
	}
	receipts := make([]Receipt, len(identities))
	for i, id := range identities {
		receipts[i] = Receipt{ID: id.ID, Amount: amounts[i]}
	}
	return receipts, nil
}

// Validate checks the parameter ranges of p.
func Validate(p Policy) error {
	switch p := p.(type) {
	case Immediate:
		if p.NumPeriodsLookback == nil {
			return nil
		}
		lb := *p.NumPeriodsLookback
		if lb < 1 {
			return errs.InvalidConfiguration("numPeriodsLookback must be at least 1")
		}
		if lb != math.Trunc(lb) {
			return errs.InvalidConfiguration("numPeriodsLookback must be an integer")
		}
	case Recent:
		if math.IsNaN(p.Discount) || p.Discount < 0 || p.Discount > 1 {
			return errs.InvalidConfiguration("discount must be in [0, 1], got %v", p.Discount)
		}
	case Balanced:
		if p.NumPeriodsLookback < 0 {
			return errs.InvalidConfiguration("numPeriodsLookback must not be negative, got %d", p.NumPeriodsLookback)
		}
	case Special:
		if p.Recipient == "" {
			return errs.InvalidConfiguration("special policy requires a recipient")
		}
	default:
		panic(unknownPolicy(p))
	}
	return nil
}

// lookback returns the number of trailing periods to use for a history of
// length n, clamping to the available history.
func lookback(requested float64, n int) int {
	if requested >= float64(n) {
		return n
	}
	return int(requested)
}

// tail sums the last k values of cred.
func tail(cred []float64, k int) float64 {
	var s float64
	for _, c := range cred[len(cred)-k:] {
		s += c
	}
	return s
}

func immediateScores(p Immediate, identities []ProcessedIdentity) []float64 {
	requested := 1.0
	if p.NumPeriodsLookback != nil {
		requested = *p.NumPeriodsLookback
	}
	scores := make([]float64, len(identities))
	for i, id := range identities {
		scores[i] = tail(id.Cred, lookback(requested, len(id.Cred)))
	}
	return scores
}

func recentScores(p Recent, identities []ProcessedIdentity) []float64 {
	keep := 1 - p.Discount
	scores := make([]float64, len(identities))
	for i, id := range identities {
		var s float64
		n := len(id.Cred)
		for j, c := range id.Cred {
			s += c * math.Pow(keep, float64(n-1-j))
		}
		scores[i] = s
	}
	return scores
}

// balancedScores computes each identity's shortfall against its cred
// proportional share of everything paid so far plus this budget. Paid
// amounts are compared exactly; only the final shortfalls become floats.
func balancedScores(p Balanced, identities []ProcessedIdentity) []float64 {
	cred := make([]*big.Rat, len(identities))
	totalCred := new(big.Rat)
	totalPaid := p.Budget
	for i, id := range identities {
		k := len(id.Cred)
		if p.NumPeriodsLookback > 0 && p.NumPeriodsLookback < k {
			k = p.NumPeriodsLookback
		}
		cred[i] = new(big.Rat).SetFloat64(tail(id.Cred, k))
		totalCred.Add(totalCred, cred[i])
		totalPaid = totalPaid.Add(id.Paid)
	}

	scores := make([]float64, len(identities))
	if totalCred.Sign() == 0 {
		return scores
	}

	// Shortfalls over cred holders sum to at least the budget, so a
	// positive budget always has somewhere to go.
	pool := new(big.Rat).SetInt(totalPaid.BigInt())
	for i, id := range identities {
		target := new(big.Rat).Mul(pool, cred[i])
		target.Quo(target, totalCred)
		short := target.Sub(target, new(big.Rat).SetInt(id.Paid.BigInt()))
		if short.Sign() > 0 {
			scores[i], _ = short.Float64()
		}
	}
	return scores
}

func specialScores(p Special, identities []ProcessedIdentity) ([]float64, error) {
	scores := make([]float64, len(identities))
	found := false
	for i, id := range identities {
		if id.ID == p.Recipient {
			scores[i] = 1
			found = true
		}
	}
	if !found {
		return nil, errs.InvalidConfiguration("special policy recipient %q is not a known identity", p.Recipient)
	}
	return scores, nil
}
