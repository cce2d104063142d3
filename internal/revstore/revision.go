package revstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/abraxas-audio/abraxas/internal/ir"
)

// RevisionIDPrefix precedes the truncated payload digest in revision ids.
const RevisionIDPrefix = "rev."

// Revision is one entry in an entity's append-only history.
// Immutable once written; re-reads always return the same value.
type Revision struct {
	EntityKey  string         `json:"entity_key"`
	RevisionID string         `json:"revision_id"`
	Version    int            `json:"version"`
	Payload    map[string]any `json:"payload"`
	Meta       RevisionMeta   `json:"meta"`
}

// RevisionMeta carries the free-text justification and write time.
type RevisionMeta struct {
	EvidenceRef string    `json:"evidence_ref"`
	CreatedAt   time.Time `json:"created_at"`
}

// pointer is the per-entity latest-version record (_meta.json).
// It always references the highest version written; version -1 never
// appears on disk because the pointer is only written after revision 0.
type pointer struct {
	EntityKey        string    `json:"entity_key"`
	LatestRevisionID string    `json:"latest_revision_id"`
	LatestVersion    int       `json:"latest_version"`
	UpdatedAt        time.Time `json:"updated_at"`
	EvidenceRef      string    `json:"evidence_ref"`
}

// RevisionID computes the content address of a payload:
// "rev." + first 16 hex chars of the canonical payload digest.
// Returns SerializationError if the payload has no canonical form.
func RevisionID(payload map[string]any) (string, error) {
	digest, err := ir.HashPayload(payload)
	if err != nil {
		return "", err
	}
	return RevisionIDPrefix + digest[:16], nil
}

// validateEntityKey rejects keys that would escape the store root or
// collide with the pointer record. Dotted logical keys like
// "catalog.plaits" are the expected shape.
func validateEntityKey(key string) error {
	if key == "" {
		return fmt.Errorf("entity key must not be empty")
	}
	if strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("entity key %q must not contain path separators", key)
	}
	if key == "." || key == ".." || strings.HasPrefix(key, "_") {
		return fmt.Errorf("entity key %q is reserved", key)
	}
	return nil
}
