// Package distribution runs configured policies against a cred snapshot
// and records the result in the ledger.
package distribution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/grainrank/internal/credrank"
	"github.com/roach88/grainrank/internal/errs"
	"github.com/roach88/grainrank/internal/grain"
	"github.com/roach88/grainrank/internal/ledger"
	"github.com/roach88/grainrank/internal/policy"
)

// ProcessIdentities pairs each participant's cred history with what the
// ledger has already paid them. Participants keep the CredGraph's ID
// order; identities never paid get Zero.
func ProcessIdentities(cg *credrank.CredGraph, paid map[string]grain.Grain) []policy.ProcessedIdentity {
	participants := cg.Participants()
	out := make([]policy.ProcessedIdentity, len(participants))
	for i, p := range participants {
		out[i] = policy.ProcessedIdentity{
			ID:   p.ID,
			Cred: p.Cred,
			Paid: paid[p.ID],
		}
	}
	return out
}

// Compute runs every policy over identities and assembles the
// distribution. All policies see the same identities. Any policy error
// fails the whole distribution.
func Compute(ids IDGenerator, policies []policy.Policy, identities []policy.ProcessedIdentity, currency grain.CurrencyID, now time.Time) (ledger.Distribution, error) {
	if len(policies) == 0 {
		return ledger.Distribution{}, errs.InvalidConfiguration("no distribution policies configured")
	}

	d := ledger.Distribution{
		ID:          ids.Generate(),
		Currency:    currency,
		CreatedAt:   time.UnixMilli(now.UnixMilli()).UTC(),
		Allocations: make([]ledger.Allocation, len(policies)),
	}
	for i, p := range policies {
		receipts, err := policy.Distribute(p, identities)
		if err != nil {
			return ledger.Distribution{}, fmt.Errorf("policy %d (%s): %w", i, p.Type(), err)
		}
		d.Allocations[i] = ledger.Allocation{
			ID:       ids.Generate(),
			Policy:   policy.ToConfig(p),
			Receipts: receipts,
		}
	}
	return d, nil
}

// Run performs one distribution under exclusive ledger access: read paid
// totals, compute receipts from cg, append. On any failure nothing is
// appended.
func Run(ctx context.Context, l *ledger.Ledger, ids IDGenerator, cg *credrank.CredGraph, policies []policy.Policy, currency grain.CurrencyID, now time.Time) (ledger.Distribution, error) {
	digest, err := cg.Digest()
	if err != nil {
		return ledger.Distribution{}, fmt.Errorf("distribution: %w", err)
	}

	var d ledger.Distribution
	err = l.Exclusive(ctx, func(tx *ledger.Tx) error {
		paid, err := tx.PaidTotals(ctx)
		if err != nil {
			return err
		}
		d, err = Compute(ids, policies, ProcessIdentities(cg, paid), currency, now)
		if err != nil {
			return err
		}
		d.CredDigest = digest
		for _, a := range d.Allocations {
			slog.Debug("allocation computed",
				"distribution", d.ID,
				"allocation", a.ID,
				"policy", a.Policy.Type,
				"budget", a.Policy.Budget)
		}
		_, err = tx.AppendDistribution(ctx, d)
		return err
	})
	if err != nil {
		return ledger.Distribution{}, fmt.Errorf("distribution: %w", err)
	}
	return d, nil
}
