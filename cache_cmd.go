package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errCacheDisabled = errors.New("the page cache is disabled (cache.enabled: false)")

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the fetched-page cache",
	Args:  cobra.NoArgs,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show page cache usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := pageCache()
		if c == nil {
			return errCacheDisabled
		}
		fmt.Fprintln(cmd.OutOrStdout(), c.Stats())
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := pageCache()
		if c == nil {
			return errCacheDisabled
		}
		if err := c.Clear(); err != nil {
			return fmt.Errorf("unable to clear cache: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cleared page cache.")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}
