package runes

import (
	"sync"
)

// DefaultCapacity is the registry's default ring size.
const DefaultCapacity = 1000

// Registry is a bounded, in-memory ring of finalized tags. When the ring
// is full the oldest entry is evicted first (FIFO, not LRU - query access
// never extends an entry's life).
//
// Thread-safety: safe for concurrent Register and Query. Readers may
// observe a slightly stale view but never a corrupted one.
type Registry struct {
	mu   sync.Mutex
	buf  []*Tag
	next int  // next write position
	full bool // buf has wrapped at least once
}

// NewRegistry creates a registry with the given capacity.
// capacity <= 0 falls back to DefaultCapacity.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{buf: make([]*Tag, capacity)}
}

// Register appends a finalized tag, evicting the oldest entry when full.
func (r *Registry) Register(t *Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = t
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// Len returns the number of retained tags.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.full {
		return len(r.buf)
	}
	return r.next
}

// Capacity returns the ring size.
func (r *Registry) Capacity() int {
	return len(r.buf)
}

// Query returns up to limit tags, most recent first. typeFilter narrows to
// a single rune type; empty matches all. limit <= 0 means no limit.
func (r *Registry) Query(limit int, typeFilter string) []*Tag {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := r.next
	if r.full {
		count = len(r.buf)
	}

	var out []*Tag
	// Walk backwards from the most recent write.
	for i := 1; i <= count; i++ {
		idx := r.next - i
		if idx < 0 {
			idx += len(r.buf)
		}
		t := r.buf[idx]
		if typeFilter != "" && t.RuneType != typeFilter {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
