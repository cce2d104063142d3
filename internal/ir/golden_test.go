package ir

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// The golden file pins the canonical byte form itself. Any change to key
// ordering, escaping, or number formatting would silently re-key every
// revision and fingerprint in existing deployments, so it must show up as
// a diff here first.
func TestCanonicalFormGolden(t *testing.T) {
	obj := Object{
		"rack_id": String("rk-0001"),
		"seed":    Int(42),
		"params": Object{
			"max_patches":     Int(5),
			"allow_feedback":  Bool(true),
			"prefer_simple":   Bool(false),
			"target_category": Null{},
		},
		"modules": Array{
			Object{"module_id": String("md-1"), "position_hp": Int(0)},
		},
		"note": String("Plaits <v2> & friends"),
		"gain": Float(0.5),
	}

	canonical, err := MarshalCanonical(obj)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "canonical_payload", canonical)
}
