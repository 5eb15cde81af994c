// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download retrieves discovered files through the safe fetcher and
// stores validated PDFs under the storage root.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaamos-labs/watchdog/internal/httputil"
	"github.com/kaamos-labs/watchdog/internal/store"
	"github.com/kaamos-labs/watchdog/pkg/types"
)

var (
	// ErrNotPDF rejects responses that are neither served as PDF nor carry
	// the PDF magic bytes. Municipal servers like to return HTML error
	// pages with status 200.
	ErrNotPDF = errors.New("response is not a PDF")

	// ErrPathEscape rejects storage paths that resolve outside the root.
	ErrPathEscape = errors.New("storage path escapes root")
)

// Fetcher is the safe HTTP surface the downloader uses.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*httputil.Response, error)
}

// Result holds the outcome of one download batch.
type Result struct {
	Downloaded int
	Failed     int
}

// Total returns the number of files processed.
func (r Result) Total() int { return r.Downloaded + r.Failed }

// Downloader fetches pending files and records where they landed.
type Downloader struct {
	store   *store.Store
	fetcher Fetcher
	root    string
	out     io.Writer
	log     *zap.Logger
}

// NewDownloader wires a downloader storing files under root.
func NewDownloader(s *store.Store, f Fetcher, root string, out io.Writer, log *zap.Logger) *Downloader {
	return &Downloader{store: s, fetcher: f, root: root, out: out, log: log.Named("download")}
}

// Run downloads every file that has no stored copy yet. Failures mark the
// file failed and the batch continues; a document moves new to fetched once
// at least one of its files is stored.
func (d *Downloader) Run(ctx context.Context) (*Result, error) {
	items, err := d.store.ListAwaitingDownload(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{}
	if len(items) == 0 {
		fmt.Fprintln(d.out, "No files awaiting download.")
		return result, nil
	}

	d.log.Info("download started", zap.Int("files", len(items)))

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		relPath, size, hash, mime, err := d.fetchOne(ctx, it)
		if err != nil {
			result.Failed++
			fmt.Fprintf(d.out, "failed:  %s (%v)\n", shortTitle(it.DocTitle), err)
			if err := d.store.SetFileTextStatus(ctx, it.FileID, types.TextFailed); err != nil {
				return result, err
			}
			continue
		}

		if err := d.store.MarkFileStored(ctx, it.FileID, relPath, size, mime); err != nil {
			return result, err
		}
		if err := d.store.SetDocumentContentHashIfEmpty(ctx, it.DocumentID, hash); err != nil {
			return result, err
		}
		if err := d.store.MarkDocumentFetched(ctx, it.DocumentID); err != nil {
			return result, err
		}
		result.Downloaded++
		fmt.Fprintf(d.out, "ok:      %s (%s, %d bytes)\n", shortTitle(it.DocTitle), relPath, size)
	}

	fmt.Fprintf(d.out, "\nDownload summary: %d downloaded, %d failed (total: %d)\n",
		result.Downloaded, result.Failed, result.Total())
	d.log.Info("download complete",
		zap.Int("downloaded", result.Downloaded),
		zap.Int("failed", result.Failed))
	return result, nil
}

// fetchOne retrieves a single file, validates it, and writes it into place
// via a temp file. Returns the relative storage path, size, content hash,
// and reported mime type.
func (d *Downloader) fetchOne(ctx context.Context, it store.DownloadItem) (string, int64, string, string, error) {
	resp, err := d.fetcher.Fetch(ctx, it.URL)
	if err != nil {
		return "", 0, "", "", err
	}
	if !resp.IsPDF() {
		return "", 0, "", "", fmt.Errorf("%w (content-type %q)", ErrNotPDF, resp.Header.Get("Content-Type"))
	}

	rel := filepath.Join(strconv.FormatInt(it.SourceID, 10), strconv.FormatInt(it.FileID, 10)+".pdf")
	abs, err := securePath(d.root, rel)
	if err != nil {
		return "", 0, "", "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", 0, "", "", fmt.Errorf("creating storage directory: %w", err)
	}

	tmpPath := filepath.Join(filepath.Dir(abs), "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmpPath, resp.Body, 0o644); err != nil {
		return "", 0, "", "", fmt.Errorf("writing download: %w", err)
	}
	if err := os.Rename(tmpPath, abs); err != nil {
		os.Remove(tmpPath)
		return "", 0, "", "", fmt.Errorf("renaming temp file: %w", err)
	}

	sum := sha256.Sum256(resp.Body)
	return rel, int64(len(resp.Body)), hex.EncodeToString(sum[:]), resp.Header.Get("Content-Type"), nil
}

// securePath joins rel onto root and verifies the result stays inside it.
// Stored paths come from the database, which an operator can edit.
func securePath(root, rel string) (string, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	abs, err := filepath.Abs(filepath.Join(rootAbs, rel))
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	if abs != rootAbs && !strings.HasPrefix(abs, rootAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, rel)
	}
	return abs, nil
}

func shortTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= 40 {
		return title
	}
	return string(runes[:40]) + "..."
}
