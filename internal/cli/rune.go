package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abraxas-audio/abraxas/internal/ir"
)

// RuneIDResult is the JSON payload for `abx rune id`.
type RuneIDResult struct {
	RuneID      string `json:"rune_id"`
	HandlerPath string `json:"handler_path"`
	Name        string `json:"name"`
}

// NewRuneCommand creates the rune command group.
func NewRuneCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rune",
		Short: "Operation tag utilities",
	}
	cmd.AddCommand(newRuneIDCommand(rootOpts))
	return cmd
}

// newRuneIDCommand creates the `rune id` subcommand. The manifest keeps
// stored ids in sync with this computation; use it after renaming a
// handler path or rune name.
func newRuneIDCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "id <handler-path> <name>",
		Short: "Compute the deterministic id for a handler/name pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := RuneIDResult{
				RuneID:      ir.RuneID(args[0], args[1]),
				HandlerPath: args[0],
				Name:        args[1],
			}
			if rootOpts.Format == "json" {
				formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
				return formatter.Success(result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.RuneID)
			return nil
		},
	}
}
