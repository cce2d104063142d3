package provenance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abraxas-audio/abraxas/internal/ir"
)

// WriteRecord upserts a provenance record.
//
// The ledger is written twice per operation at most: once at creation while
// in flight, once after sealing. The upsert never clears an existing
// completed_at - a sealed record stays sealed even if a stale in-flight
// copy is written afterwards.
func (s *Store) WriteRecord(ctx context.Context, r *Record) error {
	metricsJSON, err := marshalMetrics(r.Metrics)
	if err != nil {
		return fmt.Errorf("write record %s: %w", r.RunID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO provenance_records
		(run_id, entity_type, entity_id, pipeline, parent_run_id, started_at, completed_at, metrics, host, environment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			entity_id    = excluded.entity_id,
			completed_at = COALESCE(excluded.completed_at, provenance_records.completed_at),
			metrics      = excluded.metrics
	`,
		r.RunID,
		r.EntityType,
		nullable(r.EntityID),
		string(r.Pipeline),
		nullable(r.ParentRunID),
		r.StartedAt.UTC().Format(time.RFC3339Nano),
		nullableTime(r.CompletedAt),
		metricsJSON,
		nullable(r.Host),
		nullable(r.Environment),
	)
	if err != nil {
		return fmt.Errorf("write record %s: %w", r.RunID, err)
	}
	return nil
}

// WriteGenerationIR persists a serialized Generation IR alongside its
// canonical hash. Uses ON CONFLICT(run_id) DO NOTHING: an IR is immutable
// after creation, so a duplicate write of the same run is a no-op.
func (s *Store) WriteGenerationIR(ctx context.Context, g ir.GenerationIR) error {
	hash, err := g.CanonicalHash()
	if err != nil {
		return fmt.Errorf("write generation IR %s: %w", g.RunID, err)
	}
	blob, err := g.Serialize()
	if err != nil {
		return fmt.Errorf("write generation IR %s: %w", g.RunID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO generation_irs
		(run_id, rack_id, canonical_hash, ir, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		g.RunID,
		g.RackState.RackID,
		hash,
		string(blob),
		g.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write generation IR %s: %w", g.RunID, err)
	}
	return nil
}

// marshalMetrics serializes the metrics map, returning NULL for empty.
func marshalMetrics(metrics map[string]any) (sql.NullString, error) {
	if len(metrics) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(metrics)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal metrics: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}
