// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the watchdog CLI. Each pipeline
// stage is a subcommand (discover, fetch, extract, triage, casebuild),
// composable under cron or through the aggregate run command; sources,
// seed, stats, and serve cover operations.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kaamos-labs/watchdog/internal/secrets"
	"github.com/kaamos-labs/watchdog/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds values loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretOr resolves a secret value: the environment variable wins, then
// the .secrets/ directory entry. Secrets never come from the config file.
func secretOr(envName, secretKey string) string {
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return loadedSecrets[secretKey]
}

// rootCmd is the base command for the watchdog CLI.
var rootCmd = &cobra.Command{
	Use:   "watchdog",
	Short: "Municipal document ingestion and triage for Lapland",
	Long: `watchdog discovers governance documents (meeting minutes, permits,
decisions) published by Lapland municipalities across their legacy
publishing platforms, downloads and extracts them, and uses a language
model to surface environmentally significant cases with evidence.

Each pipeline stage is a subcommand: discover, fetch, extract, triage,
and casebuild. Stages are idempotent and safe to run on a schedule;
run executes all five in order.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./watchdog.yaml or ~/.config/watchdog/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "development logging (debug level, console encoder)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("watchdog")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "watchdog"))
		}
	}

	viper.SetEnvPrefix("WATCHDOG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("http.timeout", "30s")
	viper.SetDefault("http.user_agent", "CivicWatchdog/1.0 (+https://github.com/kaamos-labs/watchdog)")
	viper.SetDefault("http.max_retries", 3)
	viper.SetDefault("http.requests_per_second", 1.0)
	viper.SetDefault("storage.database_path", "watchdog.db")
	viper.SetDefault("storage.files_dir", "files")
	viper.SetDefault("llm.triage_model", "gpt-4o-mini")
	viper.SetDefault("llm.case_model", "gpt-4o")
	viper.SetDefault("llm.triage_max_tokens", 4000)
	viper.SetDefault("llm.case_max_tokens", 8000)
	viper.SetDefault("llm.monthly_budget_eur", 10.0)
	viper.SetDefault("extraction.ocr_language", "fin")
	viper.SetDefault("admin.listen_addr", ":8600")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// buildConfig assembles the immutable configuration from viper and the
// loaded secrets. Built once per invocation and passed into components.
func buildConfig() types.Config {
	return types.Config{
		HTTP: types.HTTPConfig{
			Timeout:           viper.GetDuration("http.timeout"),
			UserAgent:         viper.GetString("http.user_agent"),
			MaxRetries:        viper.GetInt("http.max_retries"),
			RequestsPerSecond: viper.GetFloat64("http.requests_per_second"),
			AllowedDomain:     viper.GetString("http.allowed_domain"),
		},
		Storage: types.StorageConfig{
			DatabasePath: viper.GetString("storage.database_path"),
			FilesDir:     viper.GetString("storage.files_dir"),
		},
		LLM: types.LLMConfig{
			APIKey:           secretOr("OPENAI_API_KEY", secrets.KeyOpenAI),
			TriageModel:      viper.GetString("llm.triage_model"),
			CaseModel:        viper.GetString("llm.case_model"),
			TriageMaxTokens:  viper.GetInt("llm.triage_max_tokens"),
			CaseMaxTokens:    viper.GetInt("llm.case_max_tokens"),
			MonthlyBudgetEUR: viper.GetFloat64("llm.monthly_budget_eur"),
		},
		Extraction: types.ExtractionConfig{
			OCRLanguage: viper.GetString("extraction.ocr_language"),
		},
		Admin: types.AdminConfig{
			Token:      secretOr("WATCHDOG_ADMIN_TOKEN", secrets.KeyAdminToken),
			ListenAddr: viper.GetString("admin.listen_addr"),
		},
	}
}

// newLogger builds the structured logger shared by a command invocation.
// Callers own the Sync.
func newLogger() (*zap.Logger, error) {
	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
