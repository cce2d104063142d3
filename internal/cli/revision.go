package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abraxas-audio/abraxas/internal/ir"
	"github.com/abraxas-audio/abraxas/internal/revstore"
)

// RevisionOptions holds the flags shared by the revision subcommands.
type RevisionOptions struct {
	*RootOptions
	StoreRoot string
}

// NewRevisionCommand creates the revision command group.
func NewRevisionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RevisionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "revision",
		Short: "Append-only catalog revision store",
		Long: `Work with the append-only revision store.

Every correction lands as a new content-addressed revision; prior
revisions stay readable forever. Resubmitting a payload identical to
the current latest revision is rejected as a duplicate.`,
	}

	cmd.PersistentFlags().StringVar(&opts.StoreRoot, "store", "", "revision store root (default from config)")

	cmd.AddCommand(newRevisionAppendCommand(opts))
	cmd.AddCommand(newRevisionShowCommand(opts))
	cmd.AddCommand(newRevisionListCommand(opts))
	cmd.AddCommand(newRevisionLatestCommand(opts))

	return cmd
}

// openRevStore resolves the store root and opens it.
func openRevStore(opts *RevisionOptions) (*revstore.Store, error) {
	root := opts.StoreRoot
	if root == "" {
		root = opts.Config.StoreRoot
	}
	return revstore.Open(root)
}

func newRevisionAppendCommand(opts *RevisionOptions) *cobra.Command {
	var payloadFile, evidenceRef string

	cmd := &cobra.Command{
		Use:   "append <entity-key>",
		Short: "Append a new revision for an entity",
		Long: `Append a new revision for an entity from a JSON or YAML payload file.

Examples:
  abx revision append catalog.plaits --payload plaits.yaml
  abx revision append catalog.plaits --payload plaits.json --evidence 0192d1f0-...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRevisionAppend(opts, args[0], payloadFile, evidenceRef, cmd)
		},
	}

	cmd.Flags().StringVar(&payloadFile, "payload", "", "payload file, .json or .yaml (required)")
	_ = cmd.MarkFlagRequired("payload")
	cmd.Flags().StringVar(&evidenceRef, "evidence", "", "free-text justification or run id")

	return cmd
}

func runRevisionAppend(opts *RevisionOptions, entityKey, payloadFile, evidenceRef string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	payload, err := decodePayloadFile(payloadFile)
	if err != nil {
		_ = formatter.Error("PAYLOAD_READ", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read payload", err)
	}

	st, err := openRevStore(opts)
	if err != nil {
		_ = formatter.Error("STORE_OPEN", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open revision store", err)
	}

	rev, err := st.Append(entityKey, payload, evidenceRef)
	if err != nil {
		switch {
		case revstore.IsDuplicate(err):
			_ = formatter.Error("DUPLICATE_REVISION", err.Error(), nil)
			return WrapExitError(ExitFailure, "duplicate revision", err)
		case ir.IsSerializationError(err):
			_ = formatter.Error("NOT_CANONICALIZABLE", err.Error(), nil)
			return WrapExitError(ExitFailure, "payload has no canonical form", err)
		default:
			_ = formatter.Error("STORE_WRITE", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to append revision", err)
		}
	}

	if opts.Format == "json" {
		return formatter.Success(rev)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Appended %s version %d for %s\n", rev.RevisionID, rev.Version, rev.EntityKey)
	return nil
}

func newRevisionShowCommand(opts *RevisionOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <entity-key> <revision-id>",
		Short:         "Show one revision",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)

			st, err := openRevStore(opts)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open revision store", err)
			}

			rev, err := st.ReadRevision(args[0], args[1])
			if err != nil {
				if revstore.IsNotFound(err) {
					_ = formatter.Error("REVISION_NOT_FOUND", err.Error(), nil)
					return WrapExitError(ExitFailure, "revision not found", err)
				}
				return WrapExitError(ExitCommandError, "failed to read revision", err)
			}

			return outputRevision(formatter, cmd, rev)
		},
	}
}

func newRevisionLatestCommand(opts *RevisionOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "latest <entity-key>",
		Short:         "Show the latest revision for an entity",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)

			st, err := openRevStore(opts)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open revision store", err)
			}

			rev, err := st.ReadLatest(args[0])
			if err != nil {
				if revstore.IsNotFound(err) {
					_ = formatter.Error("ENTITY_NOT_FOUND", err.Error(), nil)
					return WrapExitError(ExitFailure, "entity has no revisions", err)
				}
				return WrapExitError(ExitCommandError, "failed to read latest revision", err)
			}

			return outputRevision(formatter, cmd, rev)
		},
	}
}

func newRevisionListCommand(opts *RevisionOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <entity-key>",
		Short:         "List an entity's revision history",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)

			st, err := openRevStore(opts)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open revision store", err)
			}

			revs, err := st.ListRevisions(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list revisions", err)
			}

			if opts.Format == "json" {
				return formatter.Success(revs)
			}

			if len(revs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No revisions for %s\n", args[0])
				return nil
			}
			for _, rev := range revs {
				fmt.Fprintf(cmd.OutOrStdout(), "  v%-4d %s  %s\n",
					rev.Version, rev.RevisionID, rev.Meta.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

// outputRevision renders one revision in the configured format.
func outputRevision(formatter *OutputFormatter, cmd *cobra.Command, rev *revstore.Revision) error {
	if formatter.Format == "json" {
		return formatter.Success(rev)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Entity:   %s\n", rev.EntityKey)
	fmt.Fprintf(w, "Revision: %s (version %d)\n", rev.RevisionID, rev.Version)
	fmt.Fprintf(w, "Created:  %s\n", rev.Meta.CreatedAt.Format(time.RFC3339))
	if rev.Meta.EvidenceRef != "" {
		fmt.Fprintf(w, "Evidence: %s\n", rev.Meta.EvidenceRef)
	}

	pretty, err := json.MarshalIndent(rev.Payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Payload:\n%s\n", pretty)
	return nil
}

// newFormatter builds the standard formatter for a command invocation.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
