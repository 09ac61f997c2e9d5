package cli

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/grainrank/internal/grain"
	"github.com/roach88/grainrank/internal/ledger"
)

// LedgerOptions holds flags shared by the ledger subcommands.
type LedgerOptions struct {
	*RootOptions
	Ledger string
}

// NewLedgerCommand creates the ledger command and its subcommands.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the distribution ledger",
	}
	cmd.PersistentFlags().StringVar(&opts.Ledger, "ledger", "", "path to SQLite ledger (required)")
	_ = cmd.MarkPersistentFlagRequired("ledger")

	cmd.AddCommand(&cobra.Command{
		Use:           "balances",
		Short:         "Show grain paid to each identity",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalances(opts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "List recorded distributions in ledger order",
		Long: `List every recorded distribution in the order it was appended. Each
record's digest is verified while reading; a tampered ledger fails with
LEDGER_MISMATCH.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	})

	return cmd
}

// Balance is the total paid to one identity.
type Balance struct {
	ID   string      `json:"id"`
	Paid grain.Grain `json:"paid"`
}

func openLedger(path string, cmd *cobra.Command) (*ledger.Ledger, context.Context, error) {
	l, err := ledger.Open(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return l, ctx, nil
}

func runBalances(opts *LedgerOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	l, ctx, err := openLedger(opts.Ledger, cmd)
	if err != nil {
		return err
	}
	defer l.Close()

	paid, err := l.PaidTotals(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read balances", err)
	}

	balances := make([]Balance, 0, len(paid))
	for id, amount := range paid {
		balances = append(balances, Balance{ID: id, Paid: amount})
	}
	slices.SortFunc(balances, func(a, b Balance) int {
		return cmp.Or(b.Paid.Cmp(a.Paid), cmp.Compare(a.ID, b.ID))
	})

	return out.Render(balances, func(w io.Writer) error {
		if len(balances) == 0 {
			_, err := fmt.Fprintln(w, "No grain paid yet.")
			return err
		}
		bw := bufio.NewWriter(w)
		fmt.Fprintln(bw, "| Identity | Paid |")
		fmt.Fprintln(bw, "| --- | --- |")
		for _, b := range balances {
			fmt.Fprintf(bw, "| %s | %s |\n", b.ID, b.Paid.Format(displayDecimals))
		}
		return bw.Flush()
	})
}

// historyEntry summarizes one recorded distribution.
type historyEntry struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	CredDigest  string    `json:"credDigest"`
	Allocations int       `json:"allocations"`
	Total       string    `json:"total"`
}

func runHistory(opts *LedgerOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	l, ctx, err := openLedger(opts.Ledger, cmd)
	if err != nil {
		return err
	}
	defer l.Close()

	ds, err := l.Distributions(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read ledger", err)
	}

	entries := make([]historyEntry, len(ds))
	for i, d := range ds {
		entries[i] = historyEntry{
			ID:          d.ID,
			CreatedAt:   d.CreatedAt,
			CredDigest:  d.CredDigest,
			Allocations: len(d.Allocations),
			Total:       d.Total().Decimal(),
		}
	}

	return out.Render(entries, func(w io.Writer) error {
		if len(entries) == 0 {
			_, err := fmt.Fprintln(w, "No distributions found.")
			return err
		}
		bw := bufio.NewWriter(w)
		fmt.Fprintln(bw, "| Distribution | Created | Allocations | Total |")
		fmt.Fprintln(bw, "| --- | --- | --- | --- |")
		for _, e := range entries {
			fmt.Fprintf(bw, "| %s | %s | %d | %s |\n", e.ID, e.CreatedAt.Format(time.RFC3339), e.Allocations, e.Total)
		}
		return bw.Flush()
	})
}
