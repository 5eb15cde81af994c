// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns stored PDFs into text rows. Files whose embedded
// text layer is too thin are queued for an OCR pass on the next run.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kaamos-labs/watchdog/internal/store"
	"github.com/kaamos-labs/watchdog/pkg/types"
)

const (
	// minTextChars is the threshold below which a large PDF is treated as
	// scanned rather than genuinely short.
	minTextChars = 100

	// ocrMinBytes keeps tiny PDFs (cover sheets, one-paragraph notices)
	// off the OCR queue even when their text is short.
	ocrMinBytes = 10000
)

// PDFText is the conversion surface the extractor drives.
type PDFText interface {
	Extract(ctx context.Context, path string) (string, error)
	OCR(ctx context.Context, path, lang string) (string, error)
}

// Result holds the outcome of one extraction batch.
type Result struct {
	Extracted int
	OCRQueued int
	OCRDone   int
	Failed    int
}

// Total returns the number of files processed.
func (r Result) Total() int { return r.Extracted + r.OCRQueued + r.OCRDone + r.Failed }

// Extractor walks files that have a stored copy but no text yet.
type Extractor struct {
	store *store.Store
	pdf   PDFText
	root  string
	lang  string
	out   io.Writer
	log   *zap.Logger
}

// NewExtractor wires an extractor reading PDFs under root.
func NewExtractor(s *store.Store, pdf PDFText, root string, cfg types.ExtractionConfig, out io.Writer, log *zap.Logger) *Extractor {
	lang := cfg.OCRLanguage
	if lang == "" {
		lang = "fin"
	}
	return &Extractor{store: s, pdf: pdf, root: root, lang: lang, out: out, log: log.Named("extract")}
}

// Run processes every file awaiting text. Pending files get a native pass
// first; a thin text layer on a large file queues the file for OCR, which
// the next Run picks up. Failures mark the file failed and the batch
// continues.
func (e *Extractor) Run(ctx context.Context) (*Result, error) {
	files, err := e.store.ListFilesForExtraction(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{}
	if len(files) == 0 {
		fmt.Fprintln(e.out, "No files awaiting extraction.")
		return result, nil
	}

	e.log.Info("extraction started", zap.Int("files", len(files)))

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		path := filepath.Join(e.root, f.StoragePath)
		if _, statErr := os.Stat(path); statErr != nil {
			result.Failed++
			fmt.Fprintf(e.out, "failed:  %s (file missing from storage)\n", f.StoragePath)
			if err := e.store.SetFileTextStatus(ctx, f.ID, types.TextFailed); err != nil {
				return result, err
			}
			continue
		}

		switch f.TextStatus {
		case types.TextPending:
			err = e.native(ctx, f, path, result)
		case types.TextOCRQueued:
			err = e.ocr(ctx, f, path, result)
		}
		if err != nil {
			return result, err
		}
	}

	fmt.Fprintf(e.out, "\nExtraction summary: %d extracted, %d queued for OCR, %d OCR done, %d failed (total: %d)\n",
		result.Extracted, result.OCRQueued, result.OCRDone, result.Failed, result.Total())
	e.log.Info("extraction complete",
		zap.Int("extracted", result.Extracted),
		zap.Int("ocr_queued", result.OCRQueued),
		zap.Int("ocr_done", result.OCRDone),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (e *Extractor) native(ctx context.Context, f types.File, path string, result *Result) error {
	text, err := e.pdf.Extract(ctx, path)
	if err != nil {
		result.Failed++
		fmt.Fprintf(e.out, "failed:  %s (%v)\n", f.StoragePath, err)
		return e.store.SetFileTextStatus(ctx, f.ID, types.TextFailed)
	}

	if len(strings.TrimSpace(text)) < minTextChars && f.Bytes > ocrMinBytes {
		result.OCRQueued++
		fmt.Fprintf(e.out, "queued:  %s (thin text layer, OCR on next run)\n", f.StoragePath)
		return e.store.SetFileTextStatus(ctx, f.ID, types.TextOCRQueued)
	}

	result.Extracted++
	fmt.Fprintf(e.out, "ok:      %s (%d chars)\n", f.StoragePath, len(text))
	return e.store.SetFileText(ctx, f.ID, text, types.TextExtracted)
}

func (e *Extractor) ocr(ctx context.Context, f types.File, path string, result *Result) error {
	text, err := e.pdf.OCR(ctx, path, e.lang)
	if err != nil {
		result.Failed++
		fmt.Fprintf(e.out, "failed:  %s (%v)\n", f.StoragePath, err)
		return e.store.SetFileTextStatus(ctx, f.ID, types.TextFailed)
	}

	result.OCRDone++
	fmt.Fprintf(e.out, "ok:      %s (OCR, %d chars)\n", f.StoragePath, len(text))
	return e.store.SetFileText(ctx, f.ID, text, types.TextOCRDone)
}
