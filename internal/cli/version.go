package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abraxas-audio/abraxas/internal/ir"
)

// VersionInfo is the version payload for JSON output.
type VersionInfo struct {
	Engine  string `json:"engine_version"`
	ABXCore string `json:"abx_core_version"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print engine and core library versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{Engine: ir.EngineVersion, ABXCore: ir.ABXCoreVersion}
			if rootOpts.Format == "json" {
				formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
				return formatter.Success(info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "abx engine %s (abx-core %s)\n", info.Engine, info.ABXCore)
			return nil
		},
	}
}
