package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaamos-labs/watchdog/internal/download"
	"github.com/kaamos-labs/watchdog/internal/httputil"
	"github.com/kaamos-labs/watchdog/internal/store"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the PDF files of discovered documents",
	Long: `Fetch downloads every file still awaiting download, validates that
the response really is a PDF, and stores it under the files directory as
<source_id>/<file_id>.pdf. Documents whose files arrive move to fetched.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
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
	result, err := download.NewDownloader(st, fetcher, cfg.Storage.FilesDir, os.Stdout, logger).Run(context.Background())
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d file(s) failed download", result.Failed)
	}
	return nil
}
