package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaamos-labs/watchdog/internal/discover"
	"github.com/kaamos-labs/watchdog/internal/httputil"
	"github.com/kaamos-labs/watchdog/internal/store"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Poll all enabled sources for new documents",
	Long: `Discover runs the platform connector for every enabled source
concurrently, records newly found documents with their file links, and
updates per-source health counters. Documents already known by external
id are skipped.`,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, err := store.NewStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	fetcher := httputil.NewFetcher(cfg.HTTP, httputil.NewRateLimiter(cfg.HTTP.RequestsPerSecond))
	summary, err := discover.NewOrchestrator(st, fetcher, os.Stdout, logger).Run(context.Background())
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d source(s) failed discovery", summary.Failed)
	}
	return nil
}
