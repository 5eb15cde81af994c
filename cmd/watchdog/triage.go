package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaamos-labs/watchdog/internal/llm"
	"github.com/kaamos-labs/watchdog/internal/store"
	"github.com/kaamos-labs/watchdog/internal/triage"
)

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Classify fetched documents by environmental relevance",
	Long: `Triage sends each fetched document's text to the triage model and
records a relevance verdict: score, categories, and reasoning. Documents
scoring as signals or maybes become candidates for case building;
everything lands in processed (or error) either way.`,
	RunE: runTriage,
}

func init() {
	rootCmd.AddCommand(triageCmd)
}

func runTriage(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set (environment or .secrets/openai-api-key)")
	}

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

	client, err := llm.NewClient(cfg.LLM.APIKey, logger)
	if err != nil {
		return err
	}

	result, err := triage.NewTriager(st, client, cfg.LLM, os.Stdout, logger).Run(context.Background())
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d document(s) failed triage", result.Failed)
	}
	return nil
}
