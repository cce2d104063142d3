package cli

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config keys recognized in abx.yaml. Flags override config values; config
// values override defaults.
const (
	cfgKeyStoreRoot   = "store_root"
	cfgKeyDatabase    = "database"
	cfgKeyManifestDir = "manifest_dir"
)

// Config holds the resolved settings shared by the storage-backed commands.
type Config struct {
	// StoreRoot is the revision store root directory.
	StoreRoot string

	// Database is the provenance SQLite database path.
	Database string

	// ManifestDir is the rune manifest directory.
	ManifestDir string
}

// loadConfig reads abx.yaml via Viper. An explicit path must exist; with no
// explicit path the working directory is searched and a missing file is not
// an error (every key has a usable default).
func loadConfig(explicitPath string) (*Config, error) {
	v := viper.New()
	v.SetDefault(cfgKeyStoreRoot, "./revisions")
	v.SetDefault(cfgKeyDatabase, "./abx.db")
	v.SetDefault(cfgKeyManifestDir, "./manifest")

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", explicitPath, err)
		}
	} else {
		v.SetConfigName("abx")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return &Config{
		StoreRoot:   v.GetString(cfgKeyStoreRoot),
		Database:    v.GetString(cfgKeyDatabase),
		ManifestDir: v.GetString(cfgKeyManifestDir),
	}, nil
}
