package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abraxas-audio/abraxas/internal/provenance"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// TraceResult holds the complete trace output for one run.
type TraceResult struct {
	RunID         string               `json:"run_id"`
	Record        *provenance.Record   `json:"record"`
	Ancestry      []*provenance.Record `json:"ancestry,omitempty"`
	Children      []*provenance.Record `json:"children,omitempty"`
	CanonicalHash string               `json:"canonical_hash,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query provenance for a run",
		Long: `Query the provenance ledger for a specific run.

Shows the run's record, its ancestry chain (child first up to the
root operation), its direct children, and the canonical hash of the
generation snapshot when one was persisted.

Examples:
  abx trace --run 0192d1f0-6a2e-7cc0-b000-000000000001
  abx trace --db ./abx.db --run 0192d1f0-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Database == "" {
				opts.Database = rootOpts.Config.Database
			}
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to provenance database (default from config)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace (required)")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := provenance.Open(opts.Database)
	if err != nil {
		_ = formatter.Error("DB_OPEN", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	record, err := st.ReadRecord(ctx, opts.RunID)
	if err != nil {
		if provenance.IsNotFound(err) {
			_ = formatter.Error("RUN_NOT_FOUND", err.Error(), nil)
			return WrapExitError(ExitFailure, "run not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to read record", err)
	}

	ancestry, err := st.Ancestry(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read ancestry", err)
	}

	children, err := st.ReadChildren(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read children", err)
	}

	result := TraceResult{
		RunID:    opts.RunID,
		Record:   record,
		Ancestry: ancestry,
		Children: children,
	}

	// The snapshot is optional; only generation runs persist one.
	if g, err := st.ReadGenerationIR(ctx, opts.RunID); err == nil {
		if hash, err := g.CanonicalHash(); err == nil {
			result.CanonicalHash = hash
		}
	} else if !provenance.IsNotFound(err) {
		return WrapExitError(ExitCommandError, "failed to read generation snapshot", err)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	return outputTraceText(cmd, result, opts.Verbose)
}

// outputTraceText renders the trace in sections.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	r := result.Record
	fmt.Fprintf(w, "Run: %s\n", r.RunID)
	fmt.Fprintf(w, "Status: %s\n", runStatus(r))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Record ===")
	fmt.Fprintf(w, "  Pipeline:    %s\n", r.Pipeline)
	fmt.Fprintf(w, "  Entity Type: %s\n", r.EntityType)
	if r.EntityID != "" {
		fmt.Fprintf(w, "  Entity ID:   %s\n", r.EntityID)
	}
	fmt.Fprintf(w, "  Started:     %s\n", r.StartedAt.Format(time.RFC3339))
	if !r.CompletedAt.IsZero() {
		fmt.Fprintf(w, "  Completed:   %s (%s)\n", r.CompletedAt.Format(time.RFC3339), r.Duration())
	}
	if r.Host != "" {
		fmt.Fprintf(w, "  Host:        %s\n", r.Host)
	}
	if r.Environment != "" {
		fmt.Fprintf(w, "  Environment: %s\n", r.Environment)
	}
	if result.CanonicalHash != "" {
		fmt.Fprintf(w, "  Snapshot:    %s\n", truncateID(result.CanonicalHash))
	}
	if len(r.Metrics) > 0 {
		fmt.Fprintf(w, "  Metrics:     %s\n", formatMetrics(r.Metrics))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Ancestry ===")
	if len(result.Ancestry) <= 1 {
		fmt.Fprintln(w, "  (root operation)")
	} else {
		for _, rec := range result.Ancestry {
			fmt.Fprintf(w, "  %s  %s/%s\n", truncateID(rec.RunID), rec.Pipeline, rec.EntityType)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Children ===")
	if len(result.Children) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		for _, rec := range result.Children {
			fmt.Fprintf(w, "  %s  %s/%s  %s\n", truncateID(rec.RunID), rec.Pipeline, rec.EntityType, runStatus(rec))
			if verbose && len(rec.Metrics) > 0 {
				fmt.Fprintf(w, "       Metrics: %s\n", formatMetrics(rec.Metrics))
			}
		}
	}

	return nil
}

// formatMetrics formats a metric map with sorted keys for deterministic output.
func formatMetrics(metrics map[string]any) string {
	if len(metrics) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, metrics[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

// runStatus returns a human-readable lifecycle state.
func runStatus(r *provenance.Record) string {
	if r.InFlight() {
		return "in flight"
	}
	return "completed"
}
