package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/grainrank/internal/config"
	"github.com/roach88/grainrank/internal/credrank"
	"github.com/roach88/grainrank/internal/distribution"
	"github.com/roach88/grainrank/internal/errs"
	"github.com/roach88/grainrank/internal/ledger"
	"github.com/roach88/grainrank/internal/policy"
)

// displayDecimals is the precision of grain amounts in text output.
const displayDecimals = 3

// DistributeOptions holds flags for the distribute command.
type DistributeOptions struct {
	*RootOptions
	Ledger string
	Cred   string
	Config string

	// IDs overrides the distribution and allocation ID generator (for
	// testing). If nil, defaults to UUIDv7Generator.
	IDs distribution.IDGenerator
	// Now overrides the clock (for testing).
	Now func() time.Time
}

// NewDistributeCommand creates the distribute command.
func NewDistributeCommand(rootOpts *RootOptions) *cobra.Command {
	return newDistributeCommand(&DistributeOptions{RootOptions: rootOpts})
}

func newDistributeCommand(opts *DistributeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "Pay out grain according to the configured policies",
		Long: `Run every configured policy against a cred snapshot and the ledger's
paid history, then append the resulting receipts to the ledger as one
distribution. The ledger is created if it does not exist.

Example:
  grainrank distribute --ledger ledger.db --cred output/credGraph.json --config grainrank.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDistribute(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "path to SQLite ledger (required)")
	cmd.Flags().StringVar(&opts.Cred, "cred", "", "cred snapshot written by credrank (required)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "instance config (required)")
	_ = cmd.MarkFlagRequired("ledger")
	_ = cmd.MarkFlagRequired("cred")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runDistribute(opts *DistributeOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	inst, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	policies, err := inst.ParsePolicies()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid policies", err)
	}
	if len(policies) == 0 {
		return WrapExitError(ExitCommandError, "nothing to distribute",
			errs.InvalidConfiguration("no policies configured in %s", opts.Config))
	}

	cg, err := credrank.LoadFile(opts.Cred)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load cred snapshot", err)
	}

	l, err := ledger.Open(opts.Ledger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer l.Close()

	ids := opts.IDs
	if ids == nil {
		ids = distribution.UUIDv7Generator{}
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := distribution.Run(ctx, l, ids, cg, policies, inst.Currency, now())
	if err != nil {
		return WrapExitError(ExitFailure, "distribution failed", err)
	}

	view := newDistributionView(d)
	return out.Render(view, func(w io.Writer) error { return writeDistribution(w, view) })
}

// distributionView is the output form of a recorded distribution.
type distributionView struct {
	ID          string           `json:"id"`
	Currency    string           `json:"currency"`
	CredDigest  string           `json:"credDigest"`
	CreatedAt   time.Time        `json:"createdAt"`
	Total       string           `json:"total"`
	Allocations []allocationView `json:"allocations"`
}

type allocationView struct {
	ID       string           `json:"id"`
	Policy   policy.Config    `json:"policy"`
	Receipts []policy.Receipt `json:"receipts"`
}

func newDistributionView(d ledger.Distribution) distributionView {
	v := distributionView{
		ID:          d.ID,
		Currency:    string(d.Currency),
		CredDigest:  d.CredDigest,
		CreatedAt:   d.CreatedAt,
		Total:       d.Total().Decimal(),
		Allocations: make([]allocationView, len(d.Allocations)),
	}
	for i, a := range d.Allocations {
		v.Allocations[i] = allocationView{ID: a.ID, Policy: a.Policy, Receipts: a.Receipts}
	}
	return v
}

func writeDistribution(w io.Writer, v distributionView) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Distribution %s\n\n", v.ID)
	fmt.Fprintf(bw, "Created %s, %s grain in total.\n", v.CreatedAt.Format(time.RFC3339), v.Total)
	for _, a := range v.Allocations {
		fmt.Fprintf(bw, "\n## %s allocation %s (budget %s)\n\n", a.Policy.Type, a.ID, a.Policy.Budget)
		fmt.Fprintln(bw, "| Identity | Amount |")
		fmt.Fprintln(bw, "| --- | --- |")
		for _, r := range a.Receipts {
			if r.Amount.IsZero() {
				continue
			}
			fmt.Fprintf(bw, "| %s | %s |\n", r.ID, r.Amount.Format(displayDecimals))
		}
	}
	return bw.Flush()
}
