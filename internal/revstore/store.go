package revstore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	revisionsDir = "revisions"
	pointerFile  = "_meta.json"
)

// Store is a filesystem-backed append-only revision store.
//
// Thread-safety: appends to one entity are serialized by a per-entity
// mutex; reads and cross-entity appends proceed in parallel. The store
// assumes it is the sole writer for its root directory within a process;
// multi-process coordination is out of scope.
type Store struct {
	root string
	now  func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open creates or opens a store rooted at the given directory.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &StorageError{Op: "open", Path: root, Err: err}
	}
	return &Store{
		root:  root,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// entityLock returns the append lock for an entity, creating it on first use.
func (s *Store) entityLock(entityKey string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[entityKey]
	if !ok {
		l = &sync.Mutex{}
		s.locks[entityKey] = l
	}
	return l
}

// Append writes a new revision for the entity.
//
// Sequence: canonicalize and hash the payload (SerializationError aborts
// before anything touches disk), claim version latest+1 under the entity
// lock, write the revision record, and only then update the latest-version
// pointer. A payload whose revision id already exists for the entity fails
// with DuplicateRevisionError and leaves the pointer untouched.
func (s *Store) Append(entityKey string, payload map[string]any, evidenceRef string) (*Revision, error) {
	if err := validateEntityKey(entityKey); err != nil {
		return nil, err
	}

	// Hash before any filesystem work: a malformed payload must cause no
	// partial write.
	revisionID, err := RevisionID(payload)
	if err != nil {
		return nil, err
	}

	lock := s.entityLock(entityKey)
	lock.Lock()
	defer lock.Unlock()

	revPath := s.revisionPath(entityKey, revisionID)
	if _, err := os.Stat(revPath); err == nil {
		return nil, &DuplicateRevisionError{EntityKey: entityKey, RevisionID: revisionID}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, &StorageError{Op: "append", Path: revPath, Err: err}
	}

	latest, err := s.readPointer(entityKey)
	if err != nil {
		return nil, err
	}
	version := 0
	if latest != nil {
		version = latest.LatestVersion + 1
	}

	rev := &Revision{
		EntityKey:  entityKey,
		RevisionID: revisionID,
		Version:    version,
		Payload:    payload,
		Meta: RevisionMeta{
			EvidenceRef: evidenceRef,
			CreatedAt:   s.now().UTC(),
		},
	}

	if err := os.MkdirAll(filepath.Dir(revPath), 0o755); err != nil {
		return nil, &StorageError{Op: "append", Path: revPath, Err: err}
	}
	if err := s.writeJSON(revPath, rev); err != nil {
		return nil, err
	}

	// Pointer is updated strictly after the revision is durable, so a
	// crash between the two writes leaves a reachable-by-id revision but
	// never a pointer to a missing one.
	ptr := &pointer{
		EntityKey:        entityKey,
		LatestRevisionID: revisionID,
		LatestVersion:    version,
		UpdatedAt:        rev.Meta.CreatedAt,
		EvidenceRef:      evidenceRef,
	}
	if err := s.writeJSON(s.pointerPath(entityKey), ptr); err != nil {
		return nil, err
	}

	return rev, nil
}

// ReadLatest returns the entity's highest-version revision.
// Returns NotFoundError if the entity has no history.
func (s *Store) ReadLatest(entityKey string) (*Revision, error) {
	if err := validateEntityKey(entityKey); err != nil {
		return nil, err
	}
	ptr, err := s.readPointer(entityKey)
	if err != nil {
		return nil, err
	}
	if ptr == nil {
		return nil, &NotFoundError{EntityKey: entityKey}
	}
	return s.ReadRevision(entityKey, ptr.LatestRevisionID)
}

// ReadRevision returns one revision by id.
// Returns NotFoundError if absent.
func (s *Store) ReadRevision(entityKey, revisionID string) (*Revision, error) {
	if err := validateEntityKey(entityKey); err != nil {
		return nil, err
	}
	path := s.revisionPath(entityKey, revisionID)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{EntityKey: entityKey, RevisionID: revisionID}
	}
	if err != nil {
		return nil, &StorageError{Op: "read revision", Path: path, Err: err}
	}

	var rev Revision
	if err := json.Unmarshal(data, &rev); err != nil {
		return nil, &StorageError{Op: "read revision", Path: path, Err: err}
	}
	return &rev, nil
}

// ListRevisions returns the entity's full history ordered by version
// ascending. An entity with no history yields an empty slice, not an error.
func (s *Store) ListRevisions(entityKey string) ([]*Revision, error) {
	if err := validateEntityKey(entityKey); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.root, entityKey, revisionsDir)

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []*Revision{}, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "list revisions", Path: dir, Err: err}
	}

	revisions := make([]*Revision, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		rev, err := s.ReadRevision(entityKey, strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		revisions = append(revisions, rev)
	}

	sort.Slice(revisions, func(i, j int) bool {
		return revisions[i].Version < revisions[j].Version
	})
	return revisions, nil
}

// readPointer loads the entity's latest-version pointer, nil if absent.
func (s *Store) readPointer(entityKey string) (*pointer, error) {
	path := s.pointerPath(entityKey)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "read pointer", Path: path, Err: err}
	}

	var ptr pointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return nil, &StorageError{Op: "read pointer", Path: path, Err: err}
	}
	return &ptr, nil
}

// writeJSON writes a record atomically: temp file in the target directory,
// then rename. Readers never observe a torn record.
func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode", Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func (s *Store) revisionPath(entityKey, revisionID string) string {
	return filepath.Join(s.root, entityKey, revisionsDir, revisionID+".json")
}

func (s *Store) pointerPath(entityKey string) string {
	return filepath.Join(s.root, entityKey, pointerFile)
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}
