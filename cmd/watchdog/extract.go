package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaamos-labs/watchdog/internal/extract"
	"github.com/kaamos-labs/watchdog/internal/pdftext"
	"github.com/kaamos-labs/watchdog/internal/store"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract text from stored PDFs, with OCR fallback",
	Long: `Extract runs pdftotext over stored files and saves the text on the
file row. Large files that yield almost no text are treated as scanned
and queued for OCR; the next run renders them with pdftoppm and reads
the pages with tesseract.`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
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

	conv := pdftext.NewConverter()
	result, err := extract.NewExtractor(st, conv, cfg.Storage.FilesDir, cfg.Extraction, os.Stdout, logger).Run(context.Background())
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d file(s) failed extraction", result.Failed)
	}
	return nil
}
