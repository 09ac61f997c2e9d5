package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/grainrank/internal/bonus"
	"github.com/roach88/grainrank/internal/config"
	"github.com/roach88/grainrank/internal/credrank"
	"github.com/roach88/grainrank/internal/errs"
	"github.com/roach88/grainrank/internal/graph"
	"github.com/roach88/grainrank/internal/report"
)

// CredrankOptions holds flags for the credrank command.
type CredrankOptions struct {
	*RootOptions
	Graphs []string
	Config string
	Out    string
	Diff   bool
	Top    int
}

// NewCredrankCommand creates the credrank command.
func NewCredrankCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CredrankOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "credrank",
		Short: "Compute cred for a contribution graph",
		Long: `Merge one or more contribution graphs with the configured dependency
bonus graph, run the cred engine over every period, print the top
participants and write the canonical cred snapshot.

With --diff, the report compares against the snapshot currently at --out.
If that snapshot is missing or stale, the plain summary is printed instead.

Example:
  grainrank credrank --graph github.json --graph discord.json \
    --config grainrank.yaml --out output/credGraph.json -d`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCredrank(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Graphs, "graph", nil, "contribution graph JSON (repeatable, required)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "instance config (.yaml, .yml, .cue or .json) (required)")
	cmd.Flags().StringVar(&opts.Out, "out", "output/credGraph.json", "path of the cred snapshot to write")
	cmd.Flags().BoolVarP(&opts.Diff, "diff", "d", false, "compare against the existing snapshot at --out")
	cmd.Flags().IntVar(&opts.Top, "top", report.DefaultTop, "number of participants to show")
	_ = cmd.MarkFlagRequired("graph")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runCredrank(opts *CredrankOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	inst, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	graphs := make([]*graph.WeightedGraph, 0, len(opts.Graphs)+1)
	for _, path := range opts.Graphs {
		g, err := readGraph(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read graph", err)
		}
		out.VerboseLog("loaded %s: %d nodes, %d edges", path, g.NodeCount(), g.EdgeCount())
		graphs = append(graphs, g)
	}
	base, err := graph.Merge(graphs...)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to merge graphs", err)
	}

	bonusGraph, err := bonus.Build(base, inst.Bonus.Dependencies, inst.Bonus.Budget)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to mint dependency bonus", err)
	}
	merged, err := graph.Merge(base, bonusGraph)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to merge bonus graph", err)
	}

	boundaries, err := periodBoundaries(inst, merged)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to derive periods", err)
	}

	slog.Info("computing cred",
		"nodes", merged.NodeCount(),
		"edges", merged.EdgeCount(),
		"periods", len(boundaries))
	cg, err := credrank.Compute(merged, boundaries, inst.Params())
	if err != nil {
		return WrapExitError(ExitFailure, "cred computation failed", err)
	}

	var render func() error
	if opts.Diff {
		render = diffOrSummary(out, cg, opts.Out, opts.Top)
	} else {
		render = summary(out, cg, opts.Top)
	}

	if err := credrank.WriteFile(opts.Out, cg); err != nil {
		return WrapExitError(ExitCommandError, "failed to write cred snapshot", err)
	}
	slog.Info("cred snapshot written", "path", opts.Out, "participants", len(cg.Participants()))

	return render()
}

func readGraph(path string) (*graph.WeightedGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	defer f.Close()

	g, err := graph.Read(f)
	if err != nil {
		return nil, fmt.Errorf("read graph %s: %w", path, err)
	}
	return g, nil
}

// periodBoundaries uses the configured boundaries when given, otherwise
// derives them from the graph's timestamps.
func periodBoundaries(inst *config.Instance, g *graph.WeightedGraph) ([]int64, error) {
	if len(inst.Periods.Boundaries) > 0 {
		return inst.Periods.Boundaries, nil
	}
	length, err := inst.PeriodLength()
	if err != nil {
		return nil, err
	}
	return credrank.PeriodBoundaries(g, length)
}

func summary(out *OutputFormatter, cg *credrank.CredGraph, top int) func() error {
	r := report.Summary(cg, top)
	return func() error {
		return out.Render(r, func(w io.Writer) error { return report.WriteSummary(w, r) })
	}
}

// diffOrSummary must be called before the snapshot at priorPath is
// overwritten.
func diffOrSummary(out *OutputFormatter, cg *credrank.CredGraph, priorPath string, top int) func() error {
	prior, err := credrank.LoadFile(priorPath)
	if err != nil {
		slog.Warn("prior cred snapshot unavailable, showing summary", "path", priorPath, "error", err)
		return summary(out, cg, top)
	}
	r, err := report.Diff(cg, prior, top)
	if err != nil {
		if !errs.IsLedgerMismatch(err) {
			return func() error { return WrapExitError(ExitFailure, "failed to diff cred", err) }
		}
		slog.Warn("prior cred snapshot is stale, showing summary", "path", priorPath, "error", err)
		return summary(out, cg, top)
	}
	return func() error {
		return out.Render(r, func(w io.Writer) error { return report.WriteDiff(w, r) })
	}
}
