package manifest

import (
	"context"
)

// Entry declares one instrumented operation.
type Entry struct {
	// RuneID is the deterministic identifier. Always recomputable as
	// ir.RuneID(HandlerPath, Name); a stored id that disagrees is invalid.
	RuneID string `json:"rune_id"`

	// HandlerPath names the handler the rune wraps, e.g.
	// "api.generate.create_patches".
	HandlerPath string `json:"handler_path"`

	// Name is the rune type tag recorded at runtime, e.g. "PATCH_GENERATE".
	Name string `json:"name"`

	// Category groups entries for display ("generation", "import", ...).
	Category string `json:"category"`

	// Assets lists the visual asset files this entry references.
	Assets []string `json:"assets,omitempty"`

	// AddedIn records the release the entry first appeared in.
	AddedIn string `json:"added_in,omitempty"`

	// Notes is free-form provenance commentary.
	Notes string `json:"notes,omitempty"`
}

// Manifest is the loaded set of declarations.
type Manifest struct {
	Entries []Entry
}

// HandlerFunc is a callable operation target.
type HandlerFunc func(ctx context.Context) error

// HandlerSet is the process's handler table, injected by the composition
// root (the server wires its real handlers; tests wire stand-ins).
type HandlerSet map[string]HandlerFunc

// Register adds a handler under its path.
func (h HandlerSet) Register(path string, fn HandlerFunc) {
	h[path] = fn
}

// Resolves reports whether path maps to a real, callable target.
func (h HandlerSet) Resolves(path string) bool {
	fn, ok := h[path]
	return ok && fn != nil
}

// CoreHandlers is the fixed set of operations considered critical to the
// product. Validation fails if any of these lacks a manifest entry.
var CoreHandlers = []string{
	"api.generate.create_patches",
	"api.imports.run_rack_import",
	"api.exports.render_pdf",
	"api.diagrams.render_svg",
	"api.catalog.revise_entry",
}
