package provenance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abraxas-audio/abraxas/internal/ir"
)

const recordColumns = `run_id, entity_type, entity_id, pipeline, parent_run_id,
	started_at, completed_at, metrics, host, environment`

// ReadRecord returns the record for a run id.
// Returns NotFoundError if the run does not exist.
func (s *Store) ReadRecord(ctx context.Context, runID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM provenance_records
		WHERE run_id = ?
	`, runID)

	r, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Kind: "run", ID: runID}
	}
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", runID, err)
	}
	return r, nil
}

// ReadChildren returns the records derived from the given run,
// ordered by start time.
func (s *Store) ReadChildren(ctx context.Context, runID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM provenance_records
		WHERE parent_run_id = ?
		ORDER BY started_at, run_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read children of %s: %w", runID, err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ReadByEntity returns every record that produced or touched an entity,
// ordered by start time.
func (s *Store) ReadByEntity(ctx context.Context, entityType, entityID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM provenance_records
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY started_at, run_id
	`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("read records for %s/%s: %w", entityType, entityID, err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ReadInFlight returns records whose completed_at was never written.
// These are abandoned or still-running operations; process death leaves
// them permanently in flight (accepted, unrecovered).
func (s *Store) ReadInFlight(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM provenance_records
		WHERE completed_at IS NULL
		ORDER BY started_at, run_id
	`)
	if err != nil {
		return nil, fmt.Errorf("read in-flight records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// Ancestry walks parent links from the given run up to the root.
// Result is ordered child-first: result[0] is the requested run.
// A dangling parent reference terminates the walk rather than erroring;
// partial history is still useful for diagnosis.
func (s *Store) Ancestry(ctx context.Context, runID string) ([]*Record, error) {
	var chain []*Record
	seen := make(map[string]bool)

	id := runID
	for id != "" && !seen[id] {
		seen[id] = true
		r, err := s.ReadRecord(ctx, id)
		if err != nil {
			if IsNotFound(err) && len(chain) > 0 {
				break
			}
			return nil, err
		}
		chain = append(chain, r)
		id = r.ParentRunID
	}
	return chain, nil
}

// ReadGenerationIR returns the stored IR for a run.
// Returns NotFoundError if absent.
func (s *Store) ReadGenerationIR(ctx context.Context, runID string) (ir.GenerationIR, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, `
		SELECT ir FROM generation_irs WHERE run_id = ?
	`, runID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.GenerationIR{}, &NotFoundError{Kind: "generation IR", ID: runID}
	}
	if err != nil {
		return ir.GenerationIR{}, fmt.Errorf("read generation IR %s: %w", runID, err)
	}
	return ir.DeserializeGenerationIR([]byte(blob))
}

// FindRunsByCanonicalHash returns run ids whose IR fingerprint matches,
// oldest first. This is the run-history dedup lookup: a caller about to
// execute a generation request can check whether an equivalent run already
// happened. The store itself never gates on this.
func (s *Store) FindRunsByCanonicalHash(ctx context.Context, hash string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id FROM generation_irs
		WHERE canonical_hash = ?
		ORDER BY created_at, run_id
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("find runs by hash: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("find runs by hash: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// collectRecords drains rows into records.
func collectRecords(rows *sql.Rows) ([]*Record, error) {
	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// scanRecord decodes one provenance row from either a Row or Rows scan.
func scanRecord(scan func(...any) error) (*Record, error) {
	var (
		r           Record
		entityID    sql.NullString
		parentRunID sql.NullString
		startedAt   string
		completedAt sql.NullString
		metrics     sql.NullString
		host        sql.NullString
		environment sql.NullString
		pipeline    string
	)

	err := scan(&r.RunID, &r.EntityType, &entityID, &pipeline, &parentRunID,
		&startedAt, &completedAt, &metrics, &host, &environment)
	if err != nil {
		return nil, err
	}

	r.Pipeline = Pipeline(pipeline)
	r.EntityID = entityID.String
	r.ParentRunID = parentRunID.String
	r.Host = host.String
	r.Environment = environment.String

	r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if completedAt.Valid {
		r.CompletedAt, err = time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
	}
	if metrics.Valid {
		if err := json.Unmarshal([]byte(metrics.String), &r.Metrics); err != nil {
			return nil, fmt.Errorf("parse metrics: %w", err)
		}
	}
	return &r, nil
}
