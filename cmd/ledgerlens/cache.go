package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the parse cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the number of live cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openCache()
		if err != nil {
			return err
		}
		n, err := s.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("entries: %d\n", n)
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge <fingerprint>",
	Short: "Delete one cache entry by fingerprint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openCache()
		if err != nil {
			return err
		}
		return s.Delete(cmd.Context(), args[0])
	},
}

var cacheReapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openCache()
		if err != nil {
			return err
		}
		n, err := s.ReapExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("reaped: %d\n", n)
		return nil
	},
}

func openCache() (*cache.Store, error) {
	mgr, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg := mgr.Get()
	return cache.Open(cache.Config{
		Enabled: true,
		Driver:  cfg.Cache.Driver,
		DSN:     cfg.Cache.DSN,
		TTLDays: cfg.Cache.TTLDays,
		Logger:  newLogger(),
	})
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	cacheCmd.AddCommand(cacheReapCmd)
}
