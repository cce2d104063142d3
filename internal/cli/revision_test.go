package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abraxas-audio/abraxas/internal/revstore"
)

func TestRevisionAppendAndLatest(t *testing.T) {
	store := t.TempDir()
	dir := t.TempDir()
	payload := writeFile(t, dir, "plaits.yaml", "name: Plaits\nhp: 12\n")

	out, err := execute(t, "revision", "append", "catalog.plaits", "--store", store, "--payload", payload)
	require.NoError(t, err)
	assert.Contains(t, out, "version 0")
	assert.Contains(t, out, "rev.")

	out, err = execute(t, "revision", "latest", "catalog.plaits", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "catalog.plaits")
	assert.Contains(t, out, "Plaits")
}

func TestRevisionAppendDuplicateFails(t *testing.T) {
	store := t.TempDir()
	dir := t.TempDir()
	payload := writeFile(t, dir, "plaits.json", `{"name": "Plaits", "hp": 12}`)
	// Same content, different key order and format.
	reordered := writeFile(t, dir, "plaits2.yaml", "hp: 12\nname: Plaits\n")

	_, err := execute(t, "revision", "append", "catalog.plaits", "--store", store, "--payload", payload)
	require.NoError(t, err)

	_, err = execute(t, "revision", "append", "catalog.plaits", "--store", store, "--payload", reordered)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRevisionCorrectionThenShow(t *testing.T) {
	store := t.TempDir()
	dir := t.TempDir()
	v0 := writeFile(t, dir, "v0.json", `{"name": "Plaits", "hp": 12}`)
	v1 := writeFile(t, dir, "v1.json", `{"name": "Plaits", "hp": 14}`)

	_, err := execute(t, "revision", "append", "catalog.plaits", "--store", store, "--payload", v0)
	require.NoError(t, err)
	_, err = execute(t, "revision", "append", "catalog.plaits", "--store", store, "--payload", v1, "--evidence", "manufacturer datasheet")
	require.NoError(t, err)

	// The original revision stays readable by id.
	id, err := revstore.RevisionID(map[string]any{"name": "Plaits", "hp": 12})
	require.NoError(t, err)

	out, err := execute(t, "revision", "show", "catalog.plaits", id, "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "version 0")
	assert.Contains(t, out, `"hp": 12`)

	out, err = execute(t, "revision", "latest", "catalog.plaits", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "version 1")
	assert.Contains(t, out, "manufacturer datasheet")
}

func TestRevisionListJSON(t *testing.T) {
	store := t.TempDir()
	dir := t.TempDir()
	v0 := writeFile(t, dir, "v0.json", `{"hp": 12}`)
	v1 := writeFile(t, dir, "v1.json", `{"hp": 14}`)

	_, err := execute(t, "revision", "append", "catalog.plaits", "--store", store, "--payload", v0)
	require.NoError(t, err)
	_, err = execute(t, "revision", "append", "catalog.plaits", "--store", store, "--payload", v1)
	require.NoError(t, err)

	out, err := execute(t, "--format", "json", "revision", "list", "catalog.plaits", "--store", store)
	require.NoError(t, err)

	var resp struct {
		Status string               `json:"status"`
		Data   []*revstore.Revision `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, 0, resp.Data[0].Version)
	assert.Equal(t, 1, resp.Data[1].Version)
}

func TestRevisionLatestUnknownEntity(t *testing.T) {
	_, err := execute(t, "revision", "latest", "catalog.ghost", "--store", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRevisionListUnknownEntityEmpty(t *testing.T) {
	out, err := execute(t, "revision", "list", "catalog.ghost", "--store", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No revisions")
}
