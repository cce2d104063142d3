// Package runes provides lightweight operation tagging: each wrapped
// operation gets a tag with timing, outcome, and structured metadata,
// retained in a bounded in-memory ring buffer for live inspection.
//
// This is explicitly not a durable audit log. The registry is process-local
// and injectable; there is no package-level singleton, so tests construct a
// fresh registry instead of clearing shared state.
package runes
