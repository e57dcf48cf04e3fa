// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads patent-chooser settings from defaults, an optional
// YAML file, PATENT_CHOOSER_* environment variables, and command-line flags,
// in increasing order of priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/patent-chooser/pkg/types"
)

const (
	// FileName is the config file name without extension.
	FileName = "patent-chooser"

	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "PATENT_CHOOSER"
)

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"log-format":    "log.format",
	"primary-url":   "primary.base_url",
	"page-size":     "primary.page_size",
	"basket-driver": "basket.driver",
	"basket-dsn":    "basket.dsn",
	"project":       "basket.project",
	"cache":         "cache.enabled",
	"redis-addr":    "cache.addr",
	"addr":          "server.addr",
}

// Load reads the configuration. configFile names an explicit file; when it
// is empty ./patent-chooser.yaml and ~/.config/patent-chooser/ are searched
// and a missing file is not an error. flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (types.Config, string, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return types.Config{}, "", fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, "", fmt.Errorf("decoding config: %w", err)
	}
	return cfg, v.ConfigFileUsed(), Validate(cfg)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.user_agent", "patent-chooser/dev")

	v.SetDefault("primary.base_url", "http://localhost:6543")
	v.SetDefault("primary.max_results", 2000)
	v.SetDefault("primary.page_size", types.DefaultPageSize)

	v.SetDefault("datasources.depatisnet.enabled", false)
	v.SetDefault("datasources.depatisnet.max_results", 1000)
	v.SetDefault("datasources.ifi.enabled", false)
	v.SetDefault("datasources.ftpro.enabled", false)
	v.SetDefault("datasources.google.enabled", false)
	v.SetDefault("datasources.google.max_results", 1000)
	v.SetDefault("datasources.patentsview.enabled", false)

	v.SetDefault("normalizer.enabled", false)

	v.SetDefault("basket.driver", "sqlite3")
	v.SetDefault("basket.dsn", "patent-chooser.db")
	v.SetDefault("basket.project", "default")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", time.Hour)

	v.SetDefault("signals.topic", "patent-chooser.signals")

	v.SetDefault("server.addr", ":8080")
}

// Validate checks settings that cannot be defaulted.
func Validate(cfg types.Config) error {
	switch cfg.Basket.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("basket.driver must be sqlite3 or postgres, got %q", cfg.Basket.Driver)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}
	if cfg.Primary.PageSize <= 0 {
		return errors.New("primary.page_size must be positive")
	}
	if cfg.Cache.Enabled && cfg.Cache.Addr == "" {
		return errors.New("cache.enabled requires cache.addr")
	}
	if cfg.Normalizer.Enabled && cfg.Normalizer.BaseURL == "" {
		return errors.New("normalizer.enabled requires normalizer.base_url")
	}
	for name, ds := range cfg.Datasources {
		if ds.Enabled && ds.BaseURL == "" && name != types.DatasourcePatentsView {
			return fmt.Errorf("datasources.%s.enabled requires a base_url", name)
		}
	}
	return nil
}
