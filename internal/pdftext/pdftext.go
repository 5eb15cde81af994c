// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftext recovers text from PDF files by shelling out to poppler
// tools, with a tesseract OCR pass for scanned documents.
package pdftext

import (
	"context"
	"fmt"
)

const (
	binPdftotext = "pdftotext"
	binPdftoppm  = "pdftoppm"
	binTesseract = "tesseract"
)

// Converter extracts PDF text, natively via pdftotext and through a
// render-then-OCR pass for documents with no embedded text layer.
type Converter struct {
	run Runner
}

// NewConverter returns a converter using the installed poppler and
// tesseract binaries.
func NewConverter() *Converter {
	return &Converter{run: execRunner{}}
}

// Extract returns the embedded text layer of the PDF at path.
func (c *Converter) Extract(ctx context.Context, path string) (string, error) {
	out, err := c.run.Run(ctx, binPdftotext, "-layout", path, "-")
	if err != nil {
		return "", fmt.Errorf("extracting text: %w", err)
	}
	return string(out), nil
}
