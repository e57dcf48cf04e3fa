// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads provider credentials from a directory of plain-text
// files. Each file in the directory represents one secret: the filename is
// the key name and the file contents (trimmed) are the value.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/patent-chooser/pkg/types"
)

// Recognized key files.
const (
	OPSAPIKey         = "ops-api-key"
	PatentsViewAPIKey = "patentsview-api-key"
	RedisPassword     = "redis-password"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply fills empty credential fields of cfg from the loaded secrets.
// Values already present in the configuration win.
func Apply(cfg *types.Config, s map[string]string) {
	if cfg.Primary.APIKey == "" {
		cfg.Primary.APIKey = s[OPSAPIKey]
	}
	if cfg.Cache.Password == "" {
		cfg.Cache.Password = s[RedisPassword]
	}
	if key := s[PatentsViewAPIKey]; key != "" {
		if cfg.Datasources == nil {
			cfg.Datasources = map[string]types.DatasourceConfig{}
		}
		ds := cfg.Datasources[types.DatasourcePatentsView]
		if ds.APIKey == "" {
			ds.APIKey = key
			cfg.Datasources[types.DatasourcePatentsView] = ds
		}
	}
}
