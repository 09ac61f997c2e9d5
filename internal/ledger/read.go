package ledger

import (
	"context"
	"fmt"

	"github.com/roach88/grainrank/internal/canon"
	"github.com/roach88/grainrank/internal/errs"
	"github.com/roach88/grainrank/internal/grain"
)

// paidTotals sums receipts per identity. Identities that were never paid
// are absent from the map.
func paidTotals(ctx context.Context, q querier) (map[string]grain.Grain, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT identity, amount
		FROM receipts
		ORDER BY identity COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query paid totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]grain.Grain)
	for rows.Next() {
		var identity, amount string
		if err := rows.Scan(&identity, &amount); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		g, err := grain.FromString(amount)
		if err != nil {
			return nil, fmt.Errorf("receipt for %s: %w", identity, err)
		}
		totals[identity] = totals[identity].Add(g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return totals, nil
}

// distributions replays DISTRIBUTION events in seq order, verifying each
// payload against its stored digest.
func distributions(ctx context.Context, q querier) ([]Distribution, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, payload, digest
		FROM ledger_events
		WHERE type = ?
		ORDER BY seq ASC
	`, EventDistribution)
	if err != nil {
		return nil, fmt.Errorf("query distributions: %w", err)
	}
	defer rows.Close()

	out := []Distribution{}
	for rows.Next() {
		var id, payload, digest string
		if err := rows.Scan(&id, &payload, &digest); err != nil {
			return nil, fmt.Errorf("scan distribution: %w", err)
		}
		d, err := unmarshalDistribution([]byte(payload))
		if err != nil {
			return nil, err
		}
		got, err := canon.Digest(DigestDomain, d.toPayload())
		if err != nil {
			return nil, fmt.Errorf("distribution %s: %w", id, err)
		}
		if got != digest {
			return nil, errs.LedgerMismatch("distribution %s does not match its recorded digest", id)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distributions: %w", err)
	}
	return out, nil
}
