// Package report summarizes a CredGraph for humans: the top participants
// by total cred, and optionally how their cred changed against a prior
// snapshot.
package report

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/grainrank/internal/credrank"
	"github.com/roach88/grainrank/internal/errs"
)

// DefaultTop is the number of rows shown when no limit is given.
const DefaultTop = 20

// changeCap is the percentage change above which the exact figure is not
// shown.
const changeCap = 10000

// Row is one participant in a summary.
type Row struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Cred        float64 `json:"cred"`
	Percent     float64 `json:"percent"`
}

// SummaryReport lists the top participants by total cred.
type SummaryReport struct {
	TotalCred float64 `json:"totalCred"`
	Rows      []Row   `json:"rows"`
}

// DiffRow compares one participant's total cred with a prior snapshot.
type DiffRow struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	PriorCred   float64 `json:"priorCred"`
	NewCred     float64 `json:"newCred"`
	Change      string  `json:"change"`
}

// DiffReport lists the top participants by new cred with their change.
type DiffReport struct {
	Rows []DiffRow `json:"rows"`
}

// ranked returns participants by total cred descending, then by ID.
func ranked(cg *credrank.CredGraph) []credrank.Participant {
	ps := cg.Participants()
	slices.SortStableFunc(ps, func(a, b credrank.Participant) int {
		return cmp.Or(cmp.Compare(b.TotalCred(), a.TotalCred()), cmp.Compare(a.ID, b.ID))
	})
	return ps
}

func limit(n, length int) int {
	if n <= 0 {
		n = DefaultTop
	}
	return min(n, length)
}

// Summary returns the top n participants of cg. n <= 0 means DefaultTop.
func Summary(cg *credrank.CredGraph, n int) SummaryReport {
	ps := ranked(cg)
	total := cg.TotalCred()

	rows := make([]Row, limit(n, len(ps)))
	for i := range rows {
		p := ps[i]
		var pct float64
		if total > 0 {
			pct = 100 * p.TotalCred() / total
		}
		rows[i] = Row{ID: p.ID, Description: p.Description, Cred: p.TotalCred(), Percent: pct}
	}
	return SummaryReport{TotalCred: total, Rows: rows}
}

// Diff compares the top n participants of cg against prior. Every
// participant of cg must exist in prior; otherwise prior is stale and Diff
// fails with LEDGER_MISMATCH so the caller can fall back to Summary.
func Diff(cg, prior *credrank.CredGraph, n int) (DiffReport, error) {
	ps := ranked(cg)
	priors := make(map[string]float64, len(ps))
	for _, p := range ps {
		old, ok := prior.Participant(p.ID)
		if !ok {
			return DiffReport{}, errs.LedgerMismatch(
				"participant [%s, %s] exists in the new scores but not in the prior snapshot; rerun without diff to refresh",
				p.Description, p.ID)
		}
		priors[p.ID] = old.TotalCred()
	}

	rows := make([]DiffRow, limit(n, len(ps)))
	for i := range rows {
		p := ps[i]
		rows[i] = DiffRow{
			ID:          p.ID,
			Description: p.Description,
			PriorCred:   priors[p.ID],
			NewCred:     p.TotalCred(),
			Change:      formatChange(priors[p.ID], p.TotalCred()),
		}
	}
	return DiffReport{Rows: rows}, nil
}

// formatChange renders the percentage change from prior to cur. Growth
// from zero, or beyond changeCap, is shown as ">10,000%".
func formatChange(prior, cur float64) string {
	if prior == 0 {
		if cur == 0 {
			return "0.0%"
		}
		return ">10,000%"
	}
	pct := 100 * (cur - prior) / prior
	switch {
	case pct > changeCap:
		return ">10,000%"
	case pct > 0:
		return fmt.Sprintf("+%.1f%%", pct)
	default:
		return fmt.Sprintf("%.1f%%", pct)
	}
}
