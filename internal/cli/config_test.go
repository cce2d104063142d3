package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "./revisions", cfg.StoreRoot)
	assert.Equal(t, "./abx.db", cfg.Database)
	assert.Equal(t, "./manifest", cfg.ManifestDir)
}

func TestLoadConfigExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abx.yaml")
	content := "store_root: /var/lib/abx/revisions\ndatabase: /var/lib/abx/abx.db\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/abx/revisions", cfg.StoreRoot)
	assert.Equal(t, "/var/lib/abx/abx.db", cfg.Database)
	// Unset keys keep their defaults.
	assert.Equal(t, "./manifest", cfg.ManifestDir)
}

func TestLoadConfigExplicitFileMissing(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
