package download

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kaamos-labs/watchdog/internal/httputil"
	"github.com/kaamos-labs/watchdog/internal/store"
	"github.com/kaamos-labs/watchdog/pkg/types"
)

type fakeFetcher struct {
	pages map[string][]byte
	types map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (*httputil.Response, error) {
	f.calls = append(f.calls, rawURL)
	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", rawURL)
	}
	header := http.Header{}
	if ct, ok := f.types[rawURL]; ok {
		header.Set("Content-Type", ct)
	}
	return &httputil.Response{Body: body, Header: header, StatusCode: 200, FinalURL: rawURL}, nil
}

func testSetup(t *testing.T) (*store.Store, string) {
	t.Helper()
	tmpDir := t.TempDir()
	s, err := store.NewStore(types.StorageConfig{
		DatabasePath: filepath.Join(tmpDir, "watchdog.db"),
		FilesDir:     filepath.Join(tmpDir, "files"),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, filepath.Join(tmpDir, "files")
}

func seedDocument(t *testing.T, s *store.Store, fileURLs []string) (int64, int64) {
	t.Helper()
	ctx := context.Background()
	sourceID, _, err := s.UpsertSource(ctx, types.Source{
		Municipality: "Inari",
		Platform:     "dynasty",
		BaseURL:      "https://inari.example.fi",
		Enabled:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	docID, err := s.InsertDocumentWithFiles(ctx, sourceID, types.DocumentRef{
		Municipality: "Inari",
		Platform:     "dynasty",
		DocType:      types.DocMinutes,
		Title:        "Pöytäkirja 14.3.2025",
		SourceURL:    "https://inari.example.fi/cgi/DREQUEST.PHP?page=meetingitem&id=7",
		FileURLs:     fileURLs,
	})
	if err != nil {
		t.Fatal(err)
	}
	return sourceID, docID
}

// --- batch tests ---

func TestRunStoresPDFAndMarksFetched(t *testing.T) {
	s, root := testSetup(t)
	pdfBody := []byte("%PDF-1.4\nfake minutes content")
	pdfURL := "https://inari.example.fi/docs/7-a.pdf"
	htmlURL := "https://inari.example.fi/docs/7-b.pdf"
	ff := &fakeFetcher{
		pages: map[string][]byte{
			pdfURL:  pdfBody,
			htmlURL: []byte("<html><body>Session expired</body></html>"),
		},
		types: map[string]string{
			pdfURL:  "application/pdf",
			htmlURL: "text/html; charset=utf-8",
		},
	}
	sourceID, docID := seedDocument(t, s, []string{pdfURL, htmlURL})

	var out bytes.Buffer
	d := NewDownloader(s, ff, root, &out, zap.NewNop())
	result, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Downloaded != 1 || result.Failed != 1 {
		t.Errorf("result = %+v, want 1 downloaded 1 failed", result)
	}
	if result.Total() != 2 {
		t.Errorf("Total() = %d, want 2", result.Total())
	}

	ctx := context.Background()
	files, err := s.FilesForDocument(ctx, docID)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}

	stored := files[0]
	wantPath := fmt.Sprintf("%d/%d.pdf", sourceID, stored.ID)
	if stored.StoragePath != wantPath {
		t.Errorf("storage path = %q, want %q", stored.StoragePath, wantPath)
	}
	if stored.Bytes != int64(len(pdfBody)) {
		t.Errorf("bytes = %d, want %d", stored.Bytes, len(pdfBody))
	}
	if stored.MIME != "application/pdf" {
		t.Errorf("mime = %q", stored.MIME)
	}
	if stored.FetchedAt == nil {
		t.Error("fetched_at not set on stored file")
	}
	if stored.TextStatus != types.TextPending {
		t.Errorf("stored file text status = %q, want pending", stored.TextStatus)
	}
	onDisk, err := os.ReadFile(filepath.Join(root, wantPath))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if !bytes.Equal(onDisk, pdfBody) {
		t.Error("stored file content does not match response body")
	}

	failed := files[1]
	if failed.TextStatus != types.TextFailed {
		t.Errorf("failed file text status = %q, want failed", failed.TextStatus)
	}
	if failed.StoragePath != "" {
		t.Errorf("failed file has storage path %q", failed.StoragePath)
	}

	docs, err := s.ListDocumentsByStatus(ctx, types.DocumentFetched)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d fetched documents, want 1", len(docs))
	}
	sum := sha256.Sum256(pdfBody)
	if docs[0].ContentHash != hex.EncodeToString(sum[:]) {
		t.Errorf("content hash = %q, want sha256 of first stored file", docs[0].ContentHash)
	}

	for _, want := range []string{
		"ok:      Pöytäkirja 14.3.2025",
		"failed:  Pöytäkirja 14.3.2025",
		"Download summary: 1 downloaded, 1 failed (total: 2)",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunAcceptsMagicBytesWithoutPDFContentType(t *testing.T) {
	s, root := testSetup(t)
	url := "https://inari.example.fi/docs/7-a.pdf"
	ff := &fakeFetcher{
		pages: map[string][]byte{url: []byte("%PDF-1.7\nbinary")},
		types: map[string]string{url: "application/octet-stream"},
	}
	_, docID := seedDocument(t, s, []string{url})

	d := NewDownloader(s, ff, root, io.Discard, zap.NewNop())
	result, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Downloaded != 1 || result.Failed != 0 {
		t.Errorf("result = %+v, want 1 downloaded", result)
	}
	files, err := s.FilesForDocument(context.Background(), docID)
	if err != nil {
		t.Fatal(err)
	}
	if files[0].StoragePath == "" {
		t.Error("file not stored despite PDF magic bytes")
	}
	if files[0].MIME != "application/octet-stream" {
		t.Errorf("mime = %q, want reported content type", files[0].MIME)
	}
}

func TestRunFetchErrorLeavesDocumentNew(t *testing.T) {
	s, root := testSetup(t)
	url := "https://inari.example.fi/docs/7-a.pdf"
	ff := &fakeFetcher{errs: map[string]error{url: errors.New("connection refused")}}
	seedDocument(t, s, []string{url})

	d := NewDownloader(s, ff, root, io.Discard, zap.NewNop())
	result, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("result = %+v, want 1 failed", result)
	}

	ctx := context.Background()
	docs, err := s.ListDocumentsByStatus(ctx, types.DocumentNew)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Errorf("got %d new documents, want document to stay new", len(docs))
	}

	// The failed file leaves the queue so the next run does not retry it.
	pending, err := s.ListAwaitingDownload(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("got %d files still awaiting download, want 0", len(pending))
	}
}

func TestRunEmptyQueue(t *testing.T) {
	s, root := testSetup(t)
	ff := &fakeFetcher{}

	var out bytes.Buffer
	d := NewDownloader(s, ff, root, &out, zap.NewNop())
	result, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Total() != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
	if !strings.Contains(out.String(), "No files awaiting download.") {
		t.Errorf("output = %q", out.String())
	}
	if len(ff.calls) != 0 {
		t.Errorf("fetcher called %d times on empty queue", len(ff.calls))
	}
}

// --- path containment tests ---

func TestSecurePath(t *testing.T) {
	root := t.TempDir()

	abs, err := securePath(root, "3/7.pdf")
	if err != nil {
		t.Fatalf("securePath: %v", err)
	}
	if !strings.HasPrefix(abs, root) {
		t.Errorf("resolved path %q not under root", abs)
	}

	for _, rel := range []string{"../outside.pdf", "../../etc/passwd", ".."} {
		if _, err := securePath(root, rel); !errors.Is(err, ErrPathEscape) {
			t.Errorf("securePath(%q) error = %v, want ErrPathEscape", rel, err)
		}
	}
}
