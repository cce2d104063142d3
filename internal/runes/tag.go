package runes

import (
	"time"

	"github.com/abraxas-audio/abraxas/internal/ir"
)

// Tag is one instrumentation event: created at operation entry, finalized
// exactly once at exit. State machine: created -> running -> completed,
// where completion carries either success or failure.
type Tag struct {
	RuneID       string         `json:"rune_id"`
	RuneType     string         `json:"rune_type"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  time.Time      `json:"completed_at,omitempty"`
	DurationMS   int64          `json:"duration_ms"`
	EntityType   string         `json:"entity_type,omitempty"`
	EntityID     string         `json:"entity_id,omitempty"`
	ParentRuneID string         `json:"parent_rune_id,omitempty"`
	Metrics      map[string]any `json:"metrics,omitempty"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"error_message,omitempty"`

	finalized bool
	clock     func() time.Time
}

// Option configures a tag at start time.
type Option func(*Tag)

// WithEntity attaches the target entity. Entity extraction is explicit at
// the call site; nothing is inferred from the wrapped operation.
func WithEntity(entityType, entityID string) Option {
	return func(t *Tag) {
		t.EntityType = entityType
		t.EntityID = entityID
	}
}

// WithParent nests this tag under another. Depth is unbounded but callers
// are expected to keep it shallow.
func WithParent(parentRuneID string) Option {
	return func(t *Tag) { t.ParentRuneID = parentRuneID }
}

// WithMetric seeds a metric at start time.
func WithMetric(key string, value any) Option {
	return func(t *Tag) { t.AddMetric(key, value) }
}

// withClock pins the clock for tests.
func withClock(now func() time.Time) Option {
	return func(t *Tag) { t.clock = now }
}

// Start creates a running tag. Callers using Start directly are
// responsible for calling Finish on every exit path; prefer Wrap, which
// guarantees it structurally.
func Start(runeType string, opts ...Option) *Tag {
	t := &Tag{
		RuneID:   ir.ShortID(),
		RuneType: runeType,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.StartedAt = t.clock().UTC()
	return t
}

// AddMetric sets a named metric on the tag. Last write wins.
func (t *Tag) AddMetric(key string, value any) {
	if t.Metrics == nil {
		t.Metrics = make(map[string]any)
	}
	t.Metrics[key] = value
}

// Finish finalizes the tag: stamps completion time and duration, records
// the outcome, and registers the tag. err == nil means success; otherwise
// the error message is captured and success is false.
//
// Finish is idempotent - only the first call takes effect, so a deferred
// Finish on the panic path cannot double-finalize after a normal one.
func (t *Tag) Finish(reg *Registry, err error) {
	if t.finalized {
		return
	}
	t.finalized = true

	t.CompletedAt = t.clock().UTC()
	t.DurationMS = t.CompletedAt.Sub(t.StartedAt).Milliseconds()
	if err != nil {
		t.Success = false
		t.ErrorMessage = err.Error()
	} else {
		t.Success = true
	}
	if reg != nil {
		reg.Register(t)
	}
}

// Running reports whether the tag has not reached a terminal state.
func (t *Tag) Running() bool {
	return !t.finalized
}
