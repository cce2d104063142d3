// Package provenance tracks run lineage for every traceable operation:
// who started it, when, under which pipeline, derived from which parent,
// and how it ended.
//
// A Record is created at the start of an operation and sealed exactly once
// at completion. Records form a tree through parent_run_id, so derived
// artifacts (a layout computed from a generation run, an export rendered
// from a layout) stay attributable to their origin.
//
// The Store persists records and serialized Generation IRs in SQLite.
// Persistence is explicit: a Record is plain in-memory state until the
// caller writes it.
package provenance
