package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abraxas-audio/abraxas/internal/manifest"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	AssetsDir    string
	HandlersFile string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                        `json:"valid"`
	Entries int                         `json:"entries"`
	Errors  []*manifest.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [manifest-dir]",
		Short: "Validate the rune manifest",
		Long: `Validate the rune manifest directory.

Runs all manifest checks in one pass and reports every finding:
stored ids against their recomputation, duplicate ids, handler
resolution, asset cross-references, and core handler coverage.

Examples:
  abx validate
  abx validate ./manifest --format json
  abx validate ./manifest --handlers extra_handlers.txt`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.Config.ManifestDir
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(opts, dir, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.AssetsDir, "assets", "", "asset directory (default: <manifest-dir>/assets if present)")
	cmd.Flags().StringVar(&opts.HandlersFile, "handlers", "", "file listing extra handler paths, one per line")

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	m, err := manifest.Load(dir)
	if err != nil {
		_ = formatter.Error("MANIFEST_LOAD", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load manifest", err)
	}
	formatter.VerboseLog("Loaded %d manifest entr%s from %s", len(m.Entries), plural(len(m.Entries), "y", "ies"), dir)

	handlers, err := buildHandlerTable(opts.HandlersFile)
	if err != nil {
		_ = formatter.Error("HANDLERS_LOAD", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load handler list", err)
	}

	deps := manifest.Deps{Handlers: handlers}
	if assetsDir := resolveAssetsDir(opts.AssetsDir, dir); assetsDir != "" {
		formatter.VerboseLog("Checking assets in %s", assetsDir)
		deps.Assets = os.DirFS(assetsDir)
	}

	findings := manifest.Validate(m, deps)
	if len(findings) > 0 {
		return outputValidationErrors(formatter, m, findings)
	}

	return outputValidateSuccess(formatter, m)
}

// buildHandlerTable reconstructs the handler surface the manifest is checked
// against. The CLI has no live server process, so it registers the known
// core operations plus any extra paths listed in handlersFile.
func buildHandlerTable(handlersFile string) (manifest.HandlerSet, error) {
	handlers := make(manifest.HandlerSet)
	stub := func(ctx context.Context) error { return nil }
	for _, path := range manifest.CoreHandlers {
		handlers.Register(path, stub)
	}

	if handlersFile == "" {
		return handlers, nil
	}

	f, err := os.Open(handlersFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		handlers.Register(line, stub)
	}
	return handlers, scanner.Err()
}

// resolveAssetsDir picks the asset directory: the explicit flag wins, else
// <manifest-dir>/assets when it exists, else no asset checking.
func resolveAssetsDir(flag, manifestDir string) string {
	if flag != "" {
		return flag
	}
	candidate := filepath.Join(manifestDir, "assets")
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate
	}
	return ""
}

// asValidationErrors unwraps the manifest findings into their concrete type
// for structured output.
func asValidationErrors(findings []error) []*manifest.ValidationError {
	out := make([]*manifest.ValidationError, 0, len(findings))
	for _, err := range findings {
		var ve *manifest.ValidationError
		if errors.As(err, &ve) {
			out = append(out, ve)
			continue
		}
		out = append(out, &manifest.ValidationError{Code: "UNKNOWN", Message: err.Error()})
	}
	return out
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, m *manifest.Manifest) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Entries: len(m.Entries)})
	}

	fmt.Fprintf(formatter.Writer, "✓ Manifest valid (%d entr%s)\n", len(m.Entries), plural(len(m.Entries), "y", "ies"))
	return nil
}

// outputValidationErrors outputs every finding and fails with exit code 1.
func outputValidationErrors(formatter *OutputFormatter, m *manifest.Manifest, findings []error) error {
	errs := asValidationErrors(findings)

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Entries: len(m.Entries), Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d finding(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Manifest validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, ve := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n", ve.Error())
	}
	fmt.Fprintln(formatter.Writer)

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d finding(s)", len(errs)))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
