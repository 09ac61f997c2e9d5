package ledger

import (
	"time"

	"github.com/roach88/grainrank/internal/errs"
	"github.com/roach88/grainrank/internal/grain"
	"github.com/roach88/grainrank/internal/policy"
)

// Event types stored in ledger_events.type.
const (
	EventDistribution = "DISTRIBUTION"
)

// DigestDomain separates ledger payload digests from other canonical
// hashes.
const DigestDomain = "grainrank/ledger/v1"

// Allocation is the result of running one policy.
type Allocation struct {
	ID       string
	Policy   policy.Config
	Receipts []policy.Receipt
}

// Total sums the allocation's receipts.
func (a Allocation) Total() grain.Grain {
	amounts := make([]grain.Grain, len(a.Receipts))
	for i, r := range a.Receipts {
		amounts[i] = r.Amount
	}
	return grain.Sum(amounts...)
}

// Distribution is one run of all configured policies against a cred
// snapshot. CredDigest identifies the snapshot the receipts were computed
// from; Currency is recorded as given.
type Distribution struct {
	ID          string
	Currency    grain.CurrencyID
	CredDigest  string
	CreatedAt   time.Time
	Allocations []Allocation
}

// Total sums every allocation.
func (d Distribution) Total() grain.Grain {
	var total grain.Grain
	for _, a := range d.Allocations {
		total = total.Add(a.Total())
	}
	return total
}

// validate checks that d is complete and that each allocation pays out
// exactly its policy budget.
func (d Distribution) validate() error {
	if d.ID == "" {
		return errs.InvalidConfiguration("distribution id is empty")
	}
	seen := make(map[string]bool, len(d.Allocations))
	for _, a := range d.Allocations {
		if a.ID == "" {
			return errs.InvalidConfiguration("distribution %s: allocation id is empty", d.ID)
		}
		if seen[a.ID] {
			return errs.InvalidConfiguration("distribution %s: duplicate allocation %s", d.ID, a.ID)
		}
		seen[a.ID] = true

		budget, err := grain.FromDecimal(a.Policy.Budget)
		if err != nil {
			return err
		}
		if total := a.Total(); !total.Equal(budget) {
			return errs.Arithmetic("allocation %s: receipts sum to %s, budget is %s", a.ID, total, budget)
		}
	}
	return nil
}
