// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the primary provider query cache",
}

var cacheFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Drop every cached provider page",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Cache.Enabled {
			return errors.New("query cache is disabled: set cache.enabled or pass --cache")
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.cache.Invalidate(context.Background()); err != nil {
			return err
		}
		fmt.Println("Query cache flushed.")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheFlushCmd)
	rootCmd.AddCommand(cacheCmd)
}
