package manifest

import (
	"fmt"
	"io/fs"

	"github.com/abraxas-audio/abraxas/internal/ir"
)

// ValidationError is one finding from a validation pass.
type ValidationError struct {
	Code        string `json:"code"`
	RuneID      string `json:"rune_id,omitempty"`
	HandlerPath string `json:"handler_path,omitempty"`
	Asset       string `json:"asset,omitempty"`
	Message     string `json:"message"`
}

// Validation error codes, one per check.
const (
	ErrCodeIDMismatch     = "ID_MISMATCH"
	ErrCodeDuplicateID    = "DUPLICATE_ID"
	ErrCodeHandlerUnknown = "HANDLER_UNRESOLVED"
	ErrCodeAssetMissing   = "ASSET_MISSING"
	ErrCodeAssetOrphaned  = "ASSET_ORPHANED"
	ErrCodeCoreUncovered  = "CORE_HANDLER_UNCOVERED"
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch {
	case e.Asset != "":
		return fmt.Sprintf("%s: %s (asset=%s)", e.Code, e.Message, e.Asset)
	case e.HandlerPath != "":
		return fmt.Sprintf("%s: %s (handler=%s)", e.Code, e.Message, e.HandlerPath)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Deps carries the external state validation checks against.
type Deps struct {
	// Handlers is the process handler table (check c).
	Handlers HandlerSet

	// Assets holds the visual asset files (checks d). Nil skips both
	// asset checks, for callers validating structure only.
	Assets fs.FS
}

// Validate runs the five manifest checks and accumulates every finding:
//
//	(a) each entry's id matches its recomputation from (handler_path, name)
//	(b) no two entries share an id
//	(c) every handler path resolves to a real, callable target
//	(d) every referenced asset exists, and no existing asset is unreferenced
//	(e) every core handler appears as some entry's target
//
// All checks run independently; a single pass reports every problem, not
// just the first. A non-empty result is the failure signal - validation
// never panics or aborts as control flow.
func Validate(m *Manifest, deps Deps) []error {
	var errs []error
	errs = append(errs, checkIDs(m)...)
	errs = append(errs, checkDuplicates(m)...)
	errs = append(errs, checkHandlers(m, deps.Handlers)...)
	errs = append(errs, checkAssets(m, deps.Assets)...)
	errs = append(errs, checkCoreCoverage(m)...)
	return errs
}

// checkIDs verifies every stored id against its deterministic recomputation.
func checkIDs(m *Manifest) []error {
	var errs []error
	for _, e := range m.Entries {
		want := ir.RuneID(e.HandlerPath, e.Name)
		if e.RuneID != want {
			errs = append(errs, &ValidationError{
				Code:        ErrCodeIDMismatch,
				RuneID:      e.RuneID,
				HandlerPath: e.HandlerPath,
				Message:     fmt.Sprintf("stored id %s does not match recomputed %s", e.RuneID, want),
			})
		}
	}
	return errs
}

// checkDuplicates flags every entry sharing an id with an earlier one.
func checkDuplicates(m *Manifest) []error {
	var errs []error
	seen := make(map[string]string) // rune_id -> first handler path
	for _, e := range m.Entries {
		if first, dup := seen[e.RuneID]; dup {
			errs = append(errs, &ValidationError{
				Code:        ErrCodeDuplicateID,
				RuneID:      e.RuneID,
				HandlerPath: e.HandlerPath,
				Message:     fmt.Sprintf("id %s already declared for %s", e.RuneID, first),
			})
			continue
		}
		seen[e.RuneID] = e.HandlerPath
	}
	return errs
}

// checkHandlers verifies each declared handler path against the table.
func checkHandlers(m *Manifest, handlers HandlerSet) []error {
	var errs []error
	for _, e := range m.Entries {
		if !handlers.Resolves(e.HandlerPath) {
			errs = append(errs, &ValidationError{
				Code:        ErrCodeHandlerUnknown,
				RuneID:      e.RuneID,
				HandlerPath: e.HandlerPath,
				Message:     "handler path does not resolve to a callable target",
			})
		}
	}
	return errs
}

// checkAssets verifies referenced assets exist and existing assets are
// referenced. Nil assets skips both directions.
func checkAssets(m *Manifest, assets fs.FS) []error {
	if assets == nil {
		return nil
	}

	var errs []error
	referenced := make(map[string]bool)
	for _, e := range m.Entries {
		for _, asset := range e.Assets {
			referenced[asset] = true
			if _, err := fs.Stat(assets, asset); err != nil {
				errs = append(errs, &ValidationError{
					Code:    ErrCodeAssetMissing,
					RuneID:  e.RuneID,
					Asset:   asset,
					Message: "referenced asset does not exist",
				})
			}
		}
	}

	onDisk, err := fs.Glob(assets, "*")
	if err != nil {
		errs = append(errs, &ValidationError{
			Code:    ErrCodeAssetMissing,
			Message: fmt.Sprintf("cannot enumerate assets: %v", err),
		})
		return errs
	}
	for _, name := range onDisk {
		info, err := fs.Stat(assets, name)
		if err != nil || info.IsDir() {
			continue
		}
		if !referenced[name] {
			errs = append(errs, &ValidationError{
				Code:    ErrCodeAssetOrphaned,
				Asset:   name,
				Message: "asset exists but no entry references it",
			})
		}
	}
	return errs
}

// checkCoreCoverage verifies every core handler has a manifest entry.
func checkCoreCoverage(m *Manifest) []error {
	covered := make(map[string]bool)
	for _, e := range m.Entries {
		covered[e.HandlerPath] = true
	}

	var errs []error
	for _, path := range CoreHandlers {
		if !covered[path] {
			errs = append(errs, &ValidationError{
				Code:        ErrCodeCoreUncovered,
				HandlerPath: path,
				Message:     "core handler has no manifest entry",
			})
		}
	}
	return errs
}
