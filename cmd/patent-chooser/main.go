// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the patent-chooser CLI.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/patent-chooser/internal/config"
	"github.com/pdiddy/patent-chooser/internal/logging"
	"github.com/pdiddy/patent-chooser/internal/secrets"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg is the configuration loaded before every command runs.
var cfg types.Config

// rootCmd is the base command for the patent-chooser CLI.
var rootCmd = &cobra.Command{
	Use:   "patent-chooser",
	Short: "Search patent sources and curate a per-project basket of documents",
	Long: `patent-chooser searches the primary bibliographic provider and auxiliary
patent search services, reconciles their number lists into complete result
pages, and keeps a per-project basket of rated and dismissed documents.

Each CLI command activates the configured project (--project) before it runs.
"serve" exposes the same operations over HTTP and streams events over a
websocket.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}

		cfgFile, _ := cmd.Flags().GetString("config")
		loaded, used, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		if used != "" {
			fmt.Fprintln(os.Stderr, "Using config file:", used)
		}
		secrets.Apply(&loaded, s)
		cfg = loaded

		logging.Setup(cfg.Log, os.Stderr)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./patent-chooser.yaml or ~/.config/patent-chooser/patent-chooser.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	pf.String("primary-url", "", "base URL of the primary bibliographic provider")
	pf.Int("page-size", 0, "result page size")
	pf.String("basket-driver", "", "basket database driver: sqlite3 or postgres")
	pf.String("basket-dsn", "", "basket database DSN")
	pf.StringP("project", "p", "", "project whose basket the command works on")
	pf.Bool("cache", false, "memoize primary provider pages in Redis")
	pf.String("redis-addr", "", "Redis address for the query cache")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
