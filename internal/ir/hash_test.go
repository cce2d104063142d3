package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPayloadDeterministic(t *testing.T) {
	payload := map[string]any{
		"hp":    12,
		"name":  "plaits",
		"depth": 25,
	}

	h1, err := HashPayload(payload)
	require.NoError(t, err)
	h2, err := HashPayload(payload)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64) // hex sha256
}

func TestHashPayloadDistinguishesContent(t *testing.T) {
	h1 := MustHashPayload(map[string]any{"hp": 12})
	h2 := MustHashPayload(map[string]any{"hp": 14})
	assert.NotEqual(t, h1, h2)
}

func TestHashPayloadDomainSeparation(t *testing.T) {
	// The same bytes hashed under different domains must differ; a payload
	// digest can never collide with an IR fingerprint by construction.
	canonical := []byte(`{"a":1}`)
	assert.NotEqual(t,
		hashWithDomain(DomainPayload, canonical),
		hashWithDomain(DomainIR, canonical),
	)
}

func TestHashPayloadRejectsNonCanonicalizable(t *testing.T) {
	_, err := HashPayload(map[string]any{"f": func() {}})
	require.Error(t, err)
	assert.True(t, IsSerializationError(err))
}

func TestRuneIDDeterministic(t *testing.T) {
	id1 := RuneID("api.generate.create_patches", "PATCH_GENERATE")
	id2 := RuneID("api.generate.create_patches", "PATCH_GENERATE")
	assert.Equal(t, id1, id2)

	assert.True(t, len(id1) == 3+16)
	assert.Equal(t, "rn.", id1[:3])
}

func TestRuneIDDistinguishesHandlerAndName(t *testing.T) {
	base := RuneID("api.generate.create_patches", "PATCH_GENERATE")
	assert.NotEqual(t, base, RuneID("api.generate.create_patches", "PATCH_IMPORT"))
	assert.NotEqual(t, base, RuneID("api.imports.run_import", "PATCH_GENERATE"))

	// The separator prevents boundary ambiguity between path and name.
	assert.NotEqual(t, RuneID("ab", "c"), RuneID("a", "bc"))
}
