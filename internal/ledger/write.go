package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/grainrank/internal/canon"
	"github.com/roach88/grainrank/internal/errs"
)

// appendDistribution inserts d and its receipts. Uses ON CONFLICT(id) DO
// NOTHING so re-appending the same distribution is a no-op; a different
// distribution under an existing ID is a LEDGER_MISMATCH.
func appendDistribution(ctx context.Context, q querier, d Distribution) (bool, error) {
	if err := d.validate(); err != nil {
		return false, fmt.Errorf("append distribution: %w", err)
	}

	payload := d.toPayload()
	data, err := canon.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("append distribution: %w", err)
	}
	digest, err := canon.Digest(DigestDomain, payload)
	if err != nil {
		return false, fmt.Errorf("append distribution: %w", err)
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO ledger_events (id, type, payload, digest)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, d.ID, EventDistribution, string(data), digest)
	if err != nil {
		return false, fmt.Errorf("append distribution: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append distribution: %w", err)
	}
	if n == 0 {
		var existing string
		err := q.QueryRowContext(ctx, `SELECT digest FROM ledger_events WHERE id = ?`, d.ID).Scan(&existing)
		if err != nil {
			return false, fmt.Errorf("append distribution: %w", err)
		}
		if existing != digest {
			return false, errs.LedgerMismatch("distribution %s is already recorded with different content", d.ID)
		}
		return false, nil
	}

	for _, a := range d.Allocations {
		for i, r := range a.Receipts {
			if err := insertReceipt(ctx, q, d.ID, a.ID, i, r.ID, r.Amount.String()); err != nil {
				return false, fmt.Errorf("append distribution %s: %w", d.ID, err)
			}
		}
	}

	slog.Info("ledger distribution recorded",
		"id", d.ID,
		"allocations", len(d.Allocations),
		"total", d.Total().Format(2))
	return true, nil
}

func insertReceipt(ctx context.Context, q querier, eventID, allocationID string, idx int, identity, amount string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO receipts (event_id, allocation_id, idx, identity, amount)
		VALUES (?, ?, ?, ?, ?)
	`, eventID, allocationID, idx, identity, amount)
	if err != nil {
		return fmt.Errorf("insert receipt %s[%d]: %w", allocationID, idx, err)
	}
	return nil
}
