// Package revstore implements the append-only, content-addressed revision
// store for entity metadata (gallery/catalog history).
//
// Every write produces a new immutable revision keyed by the canonical hash
// of its payload; prior state is never mutated. Per entity, revisions form
// a strictly increasing, gap-free version sequence starting at 0, tracked
// by a small latest-version pointer that is updated only after the revision
// itself is durably written.
//
// Layout on disk:
//
//	{root}/{entity_key}/revisions/{revision_id}.json
//	{root}/{entity_key}/_meta.json
//
// Appends to the same entity are serialized by a per-entity lock; distinct
// entities proceed fully in parallel.
package revstore
