package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/grainrank/internal/credrank"
	"github.com/roach88/grainrank/internal/errs"
	"github.com/roach88/grainrank/internal/report"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Cred  string
	Prior string
	Top   int
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the top participants of a cred snapshot",
		Long: `Print the top participants of a cred snapshot by total cred.

With --prior, show how each participant's cred changed since an older
snapshot. Unlike credrank -d, a stale prior snapshot is an error here.

Example:
  grainrank report --cred output/credGraph.json --top 10
  grainrank report --cred output/credGraph.json --prior last-week.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Cred, "cred", "", "cred snapshot (required)")
	cmd.Flags().StringVar(&opts.Prior, "prior", "", "older cred snapshot to diff against")
	cmd.Flags().IntVar(&opts.Top, "top", report.DefaultTop, "number of participants to show")
	_ = cmd.MarkFlagRequired("cred")

	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	cg, err := credrank.LoadFile(opts.Cred)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load cred snapshot", err)
	}

	if opts.Prior == "" {
		r := report.Summary(cg, opts.Top)
		return out.Render(r, func(w io.Writer) error { return report.WriteSummary(w, r) })
	}

	prior, err := credrank.LoadFile(opts.Prior)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load prior snapshot", err)
	}
	r, err := report.Diff(cg, prior, opts.Top)
	if err != nil {
		if errs.IsLedgerMismatch(err) {
			return WrapExitError(ExitFailure, "prior snapshot is stale", err)
		}
		return WrapExitError(ExitFailure, "failed to diff cred", err)
	}
	return out.Render(r, func(w io.Writer) error { return report.WriteDiff(w, r) })
}
