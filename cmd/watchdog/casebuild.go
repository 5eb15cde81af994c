package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaamos-labs/watchdog/internal/casebuild"
	"github.com/kaamos-labs/watchdog/internal/llm"
	"github.com/kaamos-labs/watchdog/internal/store"
)

var casebuildCmd = &cobra.Command{
	Use:   "casebuild",
	Short: "Build and update cases from high-scoring documents",
	Long: `Casebuild drafts a structured case from each processed document that
scored as a signal and is not yet cited as evidence. Drafts sharing a
permit number with an existing case merge into it; everything else
creates a new case with evidence and timeline entries.`,
	RunE: runCasebuild,
}

func init() {
	rootCmd.AddCommand(casebuildCmd)
}

func runCasebuild(cmd *cobra.Command, args []string) error {
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

	result, err := casebuild.NewBuilder(st, client, cfg.LLM, os.Stdout, logger).Run(context.Background())
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d document(s) failed case building", result.Failed)
	}
	return nil
}
