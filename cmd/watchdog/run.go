// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kaamos-labs/watchdog/internal/casebuild"
	"github.com/kaamos-labs/watchdog/internal/discover"
	"github.com/kaamos-labs/watchdog/internal/download"
	"github.com/kaamos-labs/watchdog/internal/extract"
	"github.com/kaamos-labs/watchdog/internal/httputil"
	"github.com/kaamos-labs/watchdog/internal/llm"
	"github.com/kaamos-labs/watchdog/internal/pdftext"
	"github.com/kaamos-labs/watchdog/internal/store"
	"github.com/kaamos-labs/watchdog/internal/triage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: discover, fetch, extract, triage, casebuild",
	Long: `Run executes every pipeline stage in order against the shared
database. A failing stage does not stop the stages after it; the command
reports each stage's outcome and exits nonzero if any stage failed.`,
	RunE: runAll,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runAll(cmd *cobra.Command, args []string) error {
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

	ctx := context.Background()
	fetcher := httputil.NewFetcher(cfg.HTTP, httputil.NewRateLimiter(cfg.HTTP.RequestsPerSecond))

	// The model-backed stages share one client; without a key they fail
	// individually while the rest of the pipeline still runs.
	var backend llm.Backend
	if cfg.LLM.APIKey != "" {
		client, err := llm.NewClient(cfg.LLM.APIKey, logger)
		if err != nil {
			return err
		}
		backend = client
	}
	requireBackend := func() error {
		if backend == nil {
			return fmt.Errorf("OPENAI_API_KEY is not set (environment or .secrets/openai-api-key)")
		}
		return nil
	}

	stages := []struct {
		name string
		run  func() error
	}{
		{"discover", func() error {
			summary, err := discover.NewOrchestrator(st, fetcher, os.Stdout, logger).Run(ctx)
			if err == nil && summary.Failed > 0 {
				err = fmt.Errorf("%d source(s) failed", summary.Failed)
			}
			return err
		}},
		{"fetch", func() error {
			result, err := download.NewDownloader(st, fetcher, cfg.Storage.FilesDir, os.Stdout, logger).Run(ctx)
			if err == nil && result.Failed > 0 {
				err = fmt.Errorf("%d file(s) failed", result.Failed)
			}
			return err
		}},
		{"extract", func() error {
			result, err := extract.NewExtractor(st, pdftext.NewConverter(), cfg.Storage.FilesDir, cfg.Extraction, os.Stdout, logger).Run(ctx)
			if err == nil && result.Failed > 0 {
				err = fmt.Errorf("%d file(s) failed", result.Failed)
			}
			return err
		}},
		{"triage", func() error {
			if err := requireBackend(); err != nil {
				return err
			}
			result, err := triage.NewTriager(st, backend, cfg.LLM, os.Stdout, logger).Run(ctx)
			if err == nil && result.Failed > 0 {
				err = fmt.Errorf("%d document(s) failed", result.Failed)
			}
			return err
		}},
		{"casebuild", func() error {
			if err := requireBackend(); err != nil {
				return err
			}
			result, err := casebuild.NewBuilder(st, backend, cfg.LLM, os.Stdout, logger).Run(ctx)
			if err == nil && result.Failed > 0 {
				err = fmt.Errorf("%d document(s) failed", result.Failed)
			}
			return err
		}},
	}

	var failed []string
	for _, stage := range stages {
		fmt.Fprintf(os.Stdout, "=== %s ===\n", stage.name)
		if err := stage.run(); err != nil {
			failed = append(failed, stage.name)
			fmt.Fprintf(os.Stdout, "%s failed: %v\n", stage.name, err)
		}
		fmt.Fprintln(os.Stdout)
	}

	if len(failed) > 0 {
		return fmt.Errorf("stages failed: %s", strings.Join(failed, ", "))
	}
	return nil
}
