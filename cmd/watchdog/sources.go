// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/kaamos-labs/watchdog/internal/store"
	"github.com/kaamos-labs/watchdog/pkg/types"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage configured sources (add, list, import)",
	Long: `Sources manages the municipalities and publishing platforms the
pipeline polls. Each source pairs one municipality with one platform and
carries typed listing paths in its configuration.`,
}

// --- add subcommand ---

var sourcesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add one source, or update it if the municipality exists",
	Long: `Add registers a source by municipality, platform, and base URL.
Listing paths are given as key=value pairs, keyed by document type:
meetings, agendas, officer_decisions, announcements, zoning.`,
	RunE: runSourcesAdd,
}

func runSourcesAdd(cmd *cobra.Command, args []string) error {
	municipality, _ := cmd.Flags().GetString("municipality")
	platform, _ := cmd.Flags().GetString("platform")
	baseURL, _ := cmd.Flags().GetString("url")
	if municipality == "" || platform == "" || baseURL == "" {
		return fmt.Errorf("--municipality, --platform, and --url are required")
	}

	paths, _ := cmd.Flags().GetStringToString("paths")
	if err := validatePathKeys(paths); err != nil {
		return err
	}
	pdfPattern, _ := cmd.Flags().GetString("pdf-pattern")
	disabled, _ := cmd.Flags().GetBool("disabled")

	cfg := buildConfig()
	st, err := store.NewStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	id, created, err := st.UpsertSource(context.Background(), types.Source{
		Municipality: municipality,
		Platform:     platform,
		BaseURL:      baseURL,
		Enabled:      !disabled,
		Config:       types.PathConfig{Paths: paths, PDFPattern: pdfPattern},
	})
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Added source %d: %s (%s)\n", id, municipality, platform)
	} else {
		fmt.Printf("Updated source %d: %s (%s)\n", id, municipality, platform)
	}
	return nil
}

// --- list subcommand ---

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configured sources with their health counters",
	RunE:  runSourcesList,
}

func runSourcesList(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	st, err := store.NewStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	sources, err := st.ListSources(context.Background())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sources)
	}

	if len(sources) == 0 {
		fmt.Println("No sources configured. Run 'watchdog seed' to load the Lapland set.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-22s  %-18s  %-44s  %-8s  %s\n",
		"ID", "Municipality", "Platform", "Base URL", "Enabled", "Failures")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for _, src := range sources {
		enabled := "yes"
		if !src.Enabled {
			enabled = "no"
		}
		base := src.BaseURL
		if len(base) > 44 {
			base = base[:41] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-22s  %-18s  %-44s  %-8s  %d\n",
			src.ID, src.Municipality, src.Platform, base, enabled, src.ConsecutiveFailures)
	}

	fmt.Fprintf(os.Stdout, "\n%d sources\n", len(sources))
	return nil
}

// --- import subcommand ---

var sourcesImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import sources from a YAML file",
	Long: `Import reads a YAML list of sources and upserts each one, keyed on
municipality. Entries look like:

  - municipality: Inari
    platform: dynasty
    base_url: https://inari.oncloudos.com
    paths:
      meetings: /cgi/DREQUEST.PHP?page=meeting_frames

Sources are enabled unless the entry sets enabled: false.`,
	RunE: runSourcesImport,
}

// sourceSpec is one import file entry. Paths sit at the top level, next to
// the municipality, matching the hand-maintained source inventories.
type sourceSpec struct {
	Municipality string            `yaml:"municipality"`
	Platform     string            `yaml:"platform"`
	BaseURL      string            `yaml:"base_url"`
	Enabled      *bool             `yaml:"enabled"`
	Paths        map[string]string `yaml:"paths"`
	PDFPattern   string            `yaml:"pdf_pattern"`
}

func runSourcesImport(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide exactly one YAML file of sources")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	var specs []sourceSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	srcs := make([]types.Source, 0, len(specs))
	for i, spec := range specs {
		if err := validatePathKeys(spec.Paths); err != nil {
			return fmt.Errorf("entry %d (%s): %w", i+1, spec.Municipality, err)
		}
		srcs = append(srcs, types.Source{
			Municipality: spec.Municipality,
			Platform:     spec.Platform,
			BaseURL:      spec.BaseURL,
			Enabled:      spec.Enabled == nil || *spec.Enabled,
			Config:       types.PathConfig{Paths: spec.Paths, PDFPattern: spec.PDFPattern},
		})
	}

	cfg := buildConfig()
	st, err := store.NewStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	added, updated, err := upsertSources(context.Background(), st, srcs, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\nImport summary: %d added, %d updated (total: %d)\n",
		added, updated, added+updated)
	return nil
}

// --- shared helpers ---

func validatePathKeys(paths map[string]string) error {
	for key := range paths {
		if !slices.Contains(types.PathKeys, key) {
			return fmt.Errorf("unknown path key %q (valid: %s)", key, strings.Join(types.PathKeys, ", "))
		}
	}
	return nil
}

// upsertSources writes each source through the municipality-keyed upsert and
// prints one line per source. Shared by sources import and seed.
func upsertSources(ctx context.Context, st *store.Store, srcs []types.Source, out io.Writer) (added, updated int, err error) {
	for i, src := range srcs {
		if src.Municipality == "" || src.Platform == "" || src.BaseURL == "" {
			return added, updated, fmt.Errorf("source %d: municipality, platform, and base_url are required", i+1)
		}
		_, created, err := st.UpsertSource(ctx, src)
		if err != nil {
			return added, updated, fmt.Errorf("upserting %s: %w", src.Municipality, err)
		}
		if created {
			added++
			fmt.Fprintf(out, "added:   %s (%s)\n", src.Municipality, src.Platform)
		} else {
			updated++
			fmt.Fprintf(out, "updated: %s (%s)\n", src.Municipality, src.Platform)
		}
	}
	return added, updated, nil
}

func init() {
	sourcesAddCmd.Flags().String("municipality", "", "municipality or organization name")
	sourcesAddCmd.Flags().String("platform", "", "publishing platform: cloudnc, dynasty, tweb, or municipal_website")
	sourcesAddCmd.Flags().String("url", "", "base URL of the publishing site")
	sourcesAddCmd.Flags().StringToString("paths", nil, "listing paths by document type, e.g. meetings=/fi-FI,zoning=/fi-FI/Kaavat")
	sourcesAddCmd.Flags().String("pdf-pattern", "", "regex override for file links (municipal_website only)")
	sourcesAddCmd.Flags().Bool("disabled", false, "register the source without enabling it")

	sourcesListCmd.Flags().Bool("json", false, "output sources as JSON")

	sourcesCmd.AddCommand(sourcesAddCmd)
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesImportCmd)

	rootCmd.AddCommand(sourcesCmd)
}
