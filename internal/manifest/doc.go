// Package manifest loads and validates the static rune manifest: the
// declared mapping from instrumentation identifiers to the handlers they
// wrap, plus the visual assets those entries reference.
//
// The manifest exists so that every critical operation is discoverable and
// every declared rune id is reproducible from its inputs rather than
// hand-picked. Validation runs five independent checks and accumulates
// every finding into one error list - it is a one-shot health/test check
// where a complete report beats fail-fast.
package manifest
