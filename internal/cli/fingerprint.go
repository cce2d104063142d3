package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abraxas-audio/abraxas/internal/ir"
)

// FingerprintResult holds the canonical digest of a payload file.
type FingerprintResult struct {
	File          string `json:"file"`
	Digest        string `json:"digest"`
	CanonicalSize int    `json:"canonical_size"`
	Canonical     string `json:"canonical,omitempty"`
}

// NewFingerprintCommand creates the fingerprint command.
func NewFingerprintCommand(rootOpts *RootOptions) *cobra.Command {
	var showCanonical, asIR bool

	cmd := &cobra.Command{
		Use:   "fingerprint <file>",
		Short: "Compute the canonical digest of a payload file",
		Long: `Compute the canonical content digest of a JSON or YAML payload.

Two files with the same logical content produce the same digest,
regardless of key order, whitespace, or which process wrote them.

With --ir, the file is read as a serialized generation snapshot and
the digest covers only its semantic inputs (rack, seed, params), so
re-serialized snapshots with different timestamps or hosts match.

Examples:
  abx fingerprint patch.json
  abx fingerprint rack.yaml --show-canonical
  abx fingerprint generation_ir.json --ir`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asIR {
				return runFingerprintIR(rootOpts, args[0], cmd)
			}
			return runFingerprint(rootOpts, args[0], showCanonical, cmd)
		},
	}

	cmd.Flags().BoolVar(&showCanonical, "show-canonical", false, "include the canonical form in the output")
	cmd.Flags().BoolVar(&asIR, "ir", false, "treat the file as a serialized generation snapshot")

	return cmd
}

func runFingerprintIR(opts *RootOptions, file string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	data, err := os.ReadFile(file)
	if err != nil {
		_ = formatter.Error("PAYLOAD_READ", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read snapshot", err)
	}

	g, err := ir.DeserializeGenerationIR(data)
	if err != nil {
		_ = formatter.Error("IR_DECODE", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to decode snapshot", err)
	}

	digest, err := g.CanonicalHash()
	if err != nil {
		_ = formatter.Error("NOT_CANONICALIZABLE", err.Error(), nil)
		return WrapExitError(ExitFailure, "snapshot has no canonical form", err)
	}

	if opts.Format == "json" {
		return formatter.Success(FingerprintResult{File: file, Digest: digest})
	}
	fmt.Fprintln(cmd.OutOrStdout(), digest)
	return nil
}

func runFingerprint(opts *RootOptions, file string, showCanonical bool, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	payload, err := decodePayloadFile(file)
	if err != nil {
		_ = formatter.Error("PAYLOAD_READ", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read payload", err)
	}

	canonical, err := ir.MarshalCanonical(payload)
	if err != nil {
		_ = formatter.Error("NOT_CANONICALIZABLE", err.Error(), nil)
		return WrapExitError(ExitFailure, "payload has no canonical form", err)
	}

	digest, err := ir.HashPayload(payload)
	if err != nil {
		return WrapExitError(ExitFailure, "payload has no canonical form", err)
	}

	result := FingerprintResult{
		File:          file,
		Digest:        digest,
		CanonicalSize: len(canonical),
	}
	if showCanonical {
		result.Canonical = string(canonical)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Digest)
	if showCanonical {
		fmt.Fprintln(cmd.OutOrStdout(), result.Canonical)
	}
	return nil
}
