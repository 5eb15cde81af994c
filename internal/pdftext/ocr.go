// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const ocrDPI = "200"

// OCR renders each page to an image and runs tesseract over it, joining the
// page texts with blank lines. lang is a tesseract language code such as
// "fin".
func (c *Converter) OCR(ctx context.Context, path, lang string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "watchdog-ocr-")
	if err != nil {
		return "", fmt.Errorf("creating OCR work dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	if _, err := c.run.Run(ctx, binPdftoppm, "-r", ocrDPI, "-png", path, prefix); err != nil {
		return "", fmt.Errorf("rendering pages: %w", err)
	}

	// pdftoppm zero-pads page numbers, so lexical order is page order.
	pages, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", fmt.Errorf("listing rendered pages: %w", err)
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("no pages rendered from %s", filepath.Base(path))
	}

	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		out, err := c.run.Run(ctx, binTesseract, page, "stdout", "-l", lang)
		if err != nil {
			return "", fmt.Errorf("ocr on %s: %w", filepath.Base(page), err)
		}
		parts = append(parts, strings.TrimSpace(string(out)))
	}
	return strings.Join(parts, "\n\n"), nil
}
