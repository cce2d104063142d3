package provenance

import (
	"fmt"
	"os"
	"time"

	"github.com/abraxas-audio/abraxas/internal/ir"
)

// Pipeline identifies which processing pipeline produced a run.
type Pipeline string

const (
	PipelineGeneration Pipeline = "generation"
	PipelineLayout     Pipeline = "layout"
	PipelineExport     Pipeline = "export"
	PipelineImport     Pipeline = "import"
)

// ValidPipelines lists the accepted pipeline values.
var ValidPipelines = []Pipeline{PipelineGeneration, PipelineLayout, PipelineExport, PipelineImport}

// Valid reports whether p is a known pipeline.
func (p Pipeline) Valid() bool {
	for _, v := range ValidPipelines {
		if p == v {
			return true
		}
	}
	return false
}

// Record is the lifecycle and lineage wrapper around one traceable
// operation. A record with a zero CompletedAt is "in flight" and must not
// be treated as durable history by readers.
//
// Ownership: a Record belongs to the operation that created it. It is not
// safe for concurrent mutation; parallel sub-steps of one operation must
// synchronize externally or report into distinct metric keys.
type Record struct {
	RunID       string         `json:"run_id"`
	EntityType  string         `json:"entity_type"`
	EntityID    string         `json:"entity_id,omitempty"`
	Pipeline    Pipeline       `json:"pipeline"`
	ParentRunID string         `json:"parent_run_id,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at,omitempty"`
	Metrics     map[string]any `json:"metrics,omitempty"`
	Host        string         `json:"host,omitempty"`
	Environment string         `json:"environment,omitempty"`
}

// Ledger creates provenance records with injected id generation and clock,
// so tests can pin both. The zero value is not usable; call NewLedger.
type Ledger struct {
	IDs         ir.RunIDGenerator
	Now         func() time.Time
	Host        string
	Environment string
}

// NewLedger builds a Ledger with production defaults: UUIDv7 run ids,
// the system clock, the local hostname, and the ABX_ENV environment
// name (empty if unset).
func NewLedger() *Ledger {
	host, _ := os.Hostname()
	return &Ledger{
		IDs:         ir.UUIDv7Generator{},
		Now:         time.Now,
		Host:        host,
		Environment: os.Getenv("ABX_ENV"),
	}
}

// Create starts a new record for an operation on the given entity type.
// parentRunID may be empty for root operations. The returned record is in
// flight until MarkCompleted.
func (l *Ledger) Create(entityType string, pipeline Pipeline, parentRunID string) (*Record, error) {
	if !pipeline.Valid() {
		return nil, fmt.Errorf("create provenance record: unknown pipeline %q", pipeline)
	}
	return &Record{
		RunID:       l.IDs.Generate(),
		EntityType:  entityType,
		Pipeline:    pipeline,
		ParentRunID: parentRunID,
		StartedAt:   l.Now().UTC(),
		Host:        l.Host,
		Environment: l.Environment,
	}, nil
}

// InFlight reports whether the record has not yet been sealed.
func (r *Record) InFlight() bool {
	return r.CompletedAt.IsZero()
}

// MarkCompleted seals the record with the given completion time.
// A second call returns ErrAlreadyCompleted and leaves the original
// completion time untouched; the existing timestamp is never overwritten.
func (r *Record) MarkCompleted(now time.Time) error {
	if !r.CompletedAt.IsZero() {
		return ErrAlreadyCompleted
	}
	if now.Before(r.StartedAt) {
		return fmt.Errorf("mark completed: completion %s precedes start %s", now, r.StartedAt)
	}
	r.CompletedAt = now.UTC()
	return nil
}

// SetEntityID records the identifier of the entity the operation produced.
// Callable exactly once, and only after the entity durably exists; calling
// with an id already set returns ErrEntityIDSet.
func (r *Record) SetEntityID(id string) error {
	if id == "" {
		return fmt.Errorf("set entity id: id must not be empty")
	}
	if r.EntityID != "" {
		return ErrEntityIDSet
	}
	r.EntityID = id
	return nil
}

// AddMetric sets a named metric. Safe to call repeatedly; last write wins.
func (r *Record) AddMetric(key string, value any) {
	if r.Metrics == nil {
		r.Metrics = make(map[string]any)
	}
	r.Metrics[key] = value
}

// Duration returns the run's wall duration, or zero while in flight.
func (r *Record) Duration() time.Duration {
	if r.InFlight() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// ToDict returns the record as a flat map excluding absent optional fields.
// This is the shape the HTTP layer serializes for display.
func (r *Record) ToDict() map[string]any {
	out := map[string]any{
		"run_id":      r.RunID,
		"entity_type": r.EntityType,
		"pipeline":    string(r.Pipeline),
		"started_at":  r.StartedAt.Format(time.RFC3339Nano),
	}
	if r.EntityID != "" {
		out["entity_id"] = r.EntityID
	}
	if r.ParentRunID != "" {
		out["parent_run_id"] = r.ParentRunID
	}
	if !r.CompletedAt.IsZero() {
		out["completed_at"] = r.CompletedAt.Format(time.RFC3339Nano)
		out["duration_ms"] = r.Duration().Milliseconds()
	}
	if len(r.Metrics) > 0 {
		metrics := make(map[string]any, len(r.Metrics))
		for k, v := range r.Metrics {
			metrics[k] = v
		}
		out["metrics"] = metrics
	}
	if r.Host != "" {
		out["host"] = r.Host
	}
	if r.Environment != "" {
		out["environment"] = r.Environment
	}
	return out
}
