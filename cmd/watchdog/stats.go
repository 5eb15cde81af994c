// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kaamos-labs/watchdog/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pipeline counts and month-to-date model spend",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().Bool("json", false, "output stats as JSON")

	rootCmd.AddCommand(statsCmd)
}

// Status display order follows the pipeline.
var (
	documentOrder = []string{"new", "fetched", "processed", "error"}
	fileOrder     = []string{"pending", "extracted", "ocr_queued", "ocr_done", "failed"}
)

func runStats(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	st, err := store.NewStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats(context.Background())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*store.Stats
			MonthlyBudgetEUR float64 `json:"monthly_budget_eur"`
		}{stats, cfg.LLM.MonthlyBudgetEUR})
	}

	fmt.Printf("Sources:    %d (%d enabled)\n", stats.Sources, stats.EnabledSources)
	fmt.Printf("Documents:  %s\n", formatCounts(stats.Documents, documentOrder))
	fmt.Printf("Files:      %s\n", formatCounts(stats.Files, fileOrder))
	fmt.Printf("Cases:      %d\n", stats.Cases)
	fmt.Printf("LLM spend:  %.2f EUR of %.2f EUR this month\n",
		stats.MonthSpendEUR, cfg.LLM.MonthlyBudgetEUR)
	return nil
}

// formatCounts renders status counts in pipeline order, with any statuses
// outside the known set appended alphabetically.
func formatCounts(counts map[string]int, order []string) string {
	parts := make([]string, 0, len(counts))
	total := 0
	for _, key := range order {
		total += counts[key]
		parts = append(parts, fmt.Sprintf("%d %s", counts[key], key))
	}

	var extras []string
	for key := range counts {
		if !slices.Contains(order, key) {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	for _, key := range extras {
		total += counts[key]
		parts = append(parts, fmt.Sprintf("%d %s", counts[key], key))
	}

	return fmt.Sprintf("%s (total: %d)", strings.Join(parts, ", "), total)
}
