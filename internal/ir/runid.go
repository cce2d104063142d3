package ir

import (
	"sync"

	"github.com/google/uuid"
)

// RunIDGenerator produces globally unique run identifiers.
// Injected wherever run ids are assigned so tests can pin the sequence.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, making run ids
// sortable by creation time, which keeps run listings and trace output in
// chronological order for free.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined run ids for testing.
// Enables deterministic test execution and golden comparison.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
// Generate panics once all ids are consumed; this is a fail-fast guard
// against test misconfiguration.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all run ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// ShortID returns a short random identifier (12 hex chars) for rune tags.
// Short ids are for live inspection, not durable addressing; collision
// resistance at ring-buffer scale is sufficient.
func ShortID() string {
	u := uuid.New()
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 12)
	for i := 0; i < 6; i++ {
		out[2*i] = hexdigits[u[i]>>4]
		out[2*i+1] = hexdigits[u[i]&0x0f]
	}
	return string(out)
}
