package revstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abraxas-audio/abraxas/internal/ir"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "gallery"))
	require.NoError(t, err)
	return s
}

func TestAppendFirstRevision(t *testing.T) {
	s := openTestStore(t)

	rev, err := s.Append("catalog.plaits", map[string]any{"hp": 12}, "import:v1")
	require.NoError(t, err)

	assert.Equal(t, "catalog.plaits", rev.EntityKey)
	assert.Equal(t, 0, rev.Version)
	assert.Equal(t, "import:v1", rev.Meta.EvidenceRef)
	assert.True(t, len(rev.RevisionID) == len(RevisionIDPrefix)+16)
	assert.Equal(t, RevisionIDPrefix, rev.RevisionID[:len(RevisionIDPrefix)])
	assert.False(t, rev.Meta.CreatedAt.IsZero())
}

func TestAppendThenCorrect(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Append("catalog.plaits", map[string]any{"hp": 12}, "import:v1")
	require.NoError(t, err)
	_, err = s.Append("catalog.plaits", map[string]any{"hp": 14}, "manual-correction")
	require.NoError(t, err)

	revisions, err := s.ListRevisions("catalog.plaits")
	require.NoError(t, err)
	require.Len(t, revisions, 2)
	assert.Equal(t, 0, revisions[0].Version)
	assert.Equal(t, 1, revisions[1].Version)

	latest, err := s.ReadLatest("catalog.plaits")
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Version)
	assert.Equal(t, float64(14), latest.Payload["hp"])
	assert.Equal(t, "manual-correction", latest.Meta.EvidenceRef)
}

func TestAppendOnlyLaw(t *testing.T) {
	s := openTestStore(t)

	const n = 8
	written := make([]*Revision, n)
	for i := 0; i < n; i++ {
		rev, err := s.Append("catalog.maths", map[string]any{"build": i}, fmt.Sprintf("step-%d", i))
		require.NoError(t, err)
		written[i] = rev
	}

	revisions, err := s.ListRevisions("catalog.maths")
	require.NoError(t, err)
	require.Len(t, revisions, n)

	for i, rev := range revisions {
		assert.Equal(t, i, rev.Version, "versions must be gap-free from 0")
	}

	// Previously written revisions never change value on re-read.
	for i, want := range written {
		got, err := s.ReadRevision("catalog.maths", want.RevisionID)
		require.NoError(t, err)
		assert.Equal(t, want.RevisionID, got.RevisionID)
		assert.Equal(t, want.Version, got.Version)
		assert.Equal(t, want.Meta.EvidenceRef, got.Meta.EvidenceRef)
		assert.Equal(t, float64(i), got.Payload["build"])
	}
}

func TestDuplicateRejection(t *testing.T) {
	s := openTestStore(t)
	payload := map[string]any{"hp": 12, "name": "Plaits"}

	first, err := s.Append("catalog.plaits", payload, "import:v1")
	require.NoError(t, err)

	_, err = s.Append("catalog.plaits", payload, "import:v2")
	require.Error(t, err)
	assert.True(t, IsDuplicate(err), "want DuplicateRevisionError, got %T", err)

	var dup *DuplicateRevisionError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.RevisionID, dup.RevisionID)

	// Pointer unchanged after the failed attempt.
	latest, err := s.ReadLatest("catalog.plaits")
	require.NoError(t, err)
	assert.Equal(t, 0, latest.Version)
	assert.Equal(t, first.RevisionID, latest.RevisionID)

	// Equal logical content with different key insertion history is still
	// the same payload.
	reordered := map[string]any{"name": "Plaits", "hp": 12}
	_, err = s.Append("catalog.plaits", reordered, "retry")
	assert.True(t, IsDuplicate(err))
}

func TestSamePayloadDifferentEntities(t *testing.T) {
	s := openTestStore(t)
	payload := map[string]any{"hp": 8}

	a, err := s.Append("catalog.ripples", payload, "import")
	require.NoError(t, err)
	b, err := s.Append("catalog.rings", payload, "import")
	require.NoError(t, err)

	// Content addressing is per entity; the same payload may exist under
	// two different entities.
	assert.Equal(t, a.RevisionID, b.RevisionID)
	assert.Equal(t, 0, a.Version)
	assert.Equal(t, 0, b.Version)
}

func TestSerializationErrorNoPartialWrite(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Append("catalog.bad", map[string]any{"ch": make(chan int)}, "import")
	require.Error(t, err)
	assert.True(t, ir.IsSerializationError(err))

	// Nothing was written for the entity.
	revisions, err := s.ListRevisions("catalog.bad")
	require.NoError(t, err)
	assert.Empty(t, revisions)
	if _, statErr := os.Stat(filepath.Join(s.Root(), "catalog.bad")); statErr == nil {
		t.Error("entity directory should not exist after failed append")
	}
}

func TestReadLatestUnknownEntity(t *testing.T) {
	s := openTestStore(t)

	_, err := s.ReadLatest("catalog.unknown")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestReadRevisionUnknownID(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Append("catalog.plaits", map[string]any{"hp": 12}, "import")
	require.NoError(t, err)

	_, err = s.ReadRevision("catalog.plaits", "rev.0000000000000000")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestEntityKeyValidation(t *testing.T) {
	s := openTestStore(t)

	for _, key := range []string{"", "a/b", `a\b`, "..", "_meta"} {
		t.Run(fmt.Sprintf("key=%q", key), func(t *testing.T) {
			_, err := s.Append(key, map[string]any{"x": 1}, "import")
			assert.Error(t, err)
		})
	}
}

func TestFileLayout(t *testing.T) {
	s := openTestStore(t)

	rev, err := s.Append("catalog.plaits", map[string]any{"hp": 12}, "import:v1")
	require.NoError(t, err)

	revPath := filepath.Join(s.Root(), "catalog.plaits", "revisions", rev.RevisionID+".json")
	if _, err := os.Stat(revPath); err != nil {
		t.Errorf("revision file missing at %s: %v", revPath, err)
	}
	metaPath := filepath.Join(s.Root(), "catalog.plaits", "_meta.json")
	if _, err := os.Stat(metaPath); err != nil {
		t.Errorf("pointer file missing at %s: %v", metaPath, err)
	}
}

func TestConcurrentAppendSameEntity(t *testing.T) {
	s := openTestStore(t)

	const writers = 16
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Append("catalog.plaits", map[string]any{"build": i}, "concurrent")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "writer %d", i)
	}

	revisions, err := s.ListRevisions("catalog.plaits")
	require.NoError(t, err)
	require.Len(t, revisions, writers)

	// No two writers claimed the same version.
	seen := make(map[int]bool)
	for _, rev := range revisions {
		assert.False(t, seen[rev.Version], "version %d claimed twice", rev.Version)
		seen[rev.Version] = true
	}

	latest, err := s.ReadLatest("catalog.plaits")
	require.NoError(t, err)
	assert.Equal(t, writers-1, latest.Version)
}

func TestConcurrentAppendDistinctEntities(t *testing.T) {
	s := openTestStore(t)

	const entities = 8
	var wg sync.WaitGroup
	for i := 0; i < entities; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("catalog.mod%d", i)
			for v := 0; v < 3; v++ {
				_, err := s.Append(key, map[string]any{"v": v}, "load")
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < entities; i++ {
		latest, err := s.ReadLatest(fmt.Sprintf("catalog.mod%d", i))
		require.NoError(t, err)
		assert.Equal(t, 2, latest.Version)
	}
}
