package runes

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abraxas-audio/abraxas/internal/testutil"
)

func TestWrapSuccess(t *testing.T) {
	reg := NewRegistry(10)

	err := Wrap(reg, "PATCH_GENERATE", func(tag *Tag) error {
		tag.AddMetric("patches_generated", 3)
		return nil
	}, WithEntity("rack", "rk-1"))
	require.NoError(t, err)

	tags := reg.Query(1, "")
	require.Len(t, tags, 1)

	tag := tags[0]
	assert.True(t, tag.Success)
	assert.Empty(t, tag.ErrorMessage)
	assert.False(t, tag.Running())
	assert.False(t, tag.CompletedAt.IsZero())
	assert.Equal(t, "rack", tag.EntityType)
	assert.Equal(t, "rk-1", tag.EntityID)
	assert.Equal(t, 3, tag.Metrics["patches_generated"])
	assert.Len(t, tag.RuneID, 12)
}

func TestWrapError(t *testing.T) {
	reg := NewRegistry(10)
	sentinel := errors.New("generation blew up")

	err := Wrap(reg, "PATCH_GENERATE", func(tag *Tag) error {
		return sentinel
	})

	// The original error comes back unchanged - never masked.
	assert.Same(t, sentinel, err)

	tags := reg.Query(1, "")
	require.Len(t, tags, 1)
	assert.False(t, tags[0].Success)
	assert.Equal(t, "generation blew up", tags[0].ErrorMessage)
	assert.False(t, tags[0].CompletedAt.IsZero())
}

func TestWrapPanicFinalizesThenRepanics(t *testing.T) {
	reg := NewRegistry(10)

	assert.PanicsWithValue(t, "boom", func() {
		_ = Wrap(reg, "RACK_IMPORT", func(tag *Tag) error {
			panic("boom")
		})
	})

	tags := reg.Query(1, "")
	require.Len(t, tags, 1)
	assert.False(t, tags[0].Success)
	assert.Contains(t, tags[0].ErrorMessage, "boom")
	assert.False(t, tags[0].Running(), "tag must never stay stuck running")
	assert.False(t, tags[0].CompletedAt.IsZero())
}

func TestWrapNesting(t *testing.T) {
	reg := NewRegistry(10)

	err := Wrap(reg, "EXPORT_PDF", func(outer *Tag) error {
		return Wrap(reg, "DIAGRAM_RENDER", func(inner *Tag) error {
			return nil
		}, WithParent(outer.RuneID))
	})
	require.NoError(t, err)

	inner := reg.Query(0, "DIAGRAM_RENDER")
	outer := reg.Query(0, "EXPORT_PDF")
	require.Len(t, inner, 1)
	require.Len(t, outer, 1)
	assert.Equal(t, outer[0].RuneID, inner[0].ParentRuneID)
}

func TestFinishIdempotent(t *testing.T) {
	reg := NewRegistry(10)

	base := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	clock := testutil.NewTickingClock(base, 40*time.Millisecond)
	tag := Start("OP", withClock(clock.Now))

	tag.Finish(reg, nil)
	first := tag.CompletedAt
	assert.Equal(t, int64(40), tag.DurationMS)

	tag.Finish(reg, errors.New("late failure"))
	assert.Equal(t, first, tag.CompletedAt)
	assert.True(t, tag.Success)
	assert.Equal(t, 1, reg.Len(), "second Finish must not re-register")
}

func TestWrapNilRegistry(t *testing.T) {
	// A nil registry disables retention but not instrumentation semantics.
	err := Wrap(nil, "OP", func(tag *Tag) error { return nil })
	assert.NoError(t, err)
}
