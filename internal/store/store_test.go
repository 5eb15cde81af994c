package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kaamos-labs/watchdog/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	tmpDir := t.TempDir()
	s, err := NewStore(types.StorageConfig{
		DatabasePath: filepath.Join(tmpDir, "watchdog.db"),
		FilesDir:     filepath.Join(tmpDir, "files"),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedSource(t *testing.T, s *Store, municipality string) int64 {
	t.Helper()
	id, _, err := s.UpsertSource(context.Background(), types.Source{
		Municipality: municipality,
		Platform:     "dynasty",
		BaseURL:      "https://" + municipality + ".example.fi",
		Enabled:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func sampleRef(n int) types.DocumentRef {
	meeting := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	return types.DocumentRef{
		Municipality: "Inari",
		Platform:     "dynasty",
		Body:         "Ympäristölautakunta",
		MeetingDate:  &meeting,
		DocType:      types.DocMinutes,
		Title:        fmt.Sprintf("Pöytäkirja %d", n),
		SourceURL:    fmt.Sprintf("https://inari.example.fi/cgi/DREQUEST.PHP?page=meetingitem&id=%d", n),
		FileURLs: []string{
			fmt.Sprintf("https://inari.example.fi/docs/%d-a.pdf", n),
			fmt.Sprintf("https://inari.example.fi/docs/%d-b.pdf", n),
		},
	}
}

func seedDocument(t *testing.T, s *Store, sourceID int64, n int) int64 {
	t.Helper()
	docID, err := s.InsertDocumentWithFiles(context.Background(), sourceID, sampleRef(n))
	if err != nil {
		t.Fatal(err)
	}
	return docID
}

// --- schema tests ---

func TestNewStoreCreatesSchema(t *testing.T) {
	s := testStore(t)

	tables := []string{"sources", "documents", "files", "cases", "case_events", "evidence", "llm_usage"}
	for _, table := range tables {
		var count int
		err := s.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count == 0 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestNewStoreCreatesParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "data", "watchdog.db")

	s, err := NewStore(types.StorageConfig{DatabasePath: dbPath})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", dbPath)
	}
}

func TestNewStoreRequiresPath(t *testing.T) {
	_, err := NewStore(types.StorageConfig{})
	if err == nil {
		t.Fatal("expected error for empty database path")
	}
}

// --- source tests ---

func TestUpsertSourceInsertThenUpdate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	src := types.Source{
		Municipality: "Kittilä",
		Platform:     "dynasty",
		BaseURL:      "https://dynasty10.kittila.fi",
		Enabled:      true,
		Config: types.PathConfig{
			Paths: map[string]string{"meetings": "/cgi/DREQUEST.PHP?page=meeting_frames"},
		},
	}
	id, created, err := s.UpsertSource(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("first upsert should create")
	}

	src.BaseURL = "https://dynasty11.kittila.fi"
	src.Config.Paths["announcements"] = "/cgi/DREQUEST.PHP?page=announcement_search"
	id2, created, err := s.UpsertSource(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second upsert should update")
	}
	if id2 != id {
		t.Errorf("id changed on update: %d != %d", id2, id)
	}

	sources, err := s.ListSources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 1 {
		t.Fatalf("got %d sources, want 1", len(sources))
	}
	got := sources[0]
	if got.BaseURL != "https://dynasty11.kittila.fi" {
		t.Errorf("BaseURL = %q", got.BaseURL)
	}
	if got.Config.Paths["announcements"] == "" {
		t.Error("updated config not persisted")
	}
}

func TestListEnabledSources(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	seedSource(t, s, "Inari")
	if _, _, err := s.UpsertSource(ctx, types.Source{
		Municipality: "Utsjoki",
		Platform:     "municipal_website",
		BaseURL:      "https://www.utsjoki.fi",
		Enabled:      false,
	}); err != nil {
		t.Fatal(err)
	}

	enabled, err := s.ListEnabledSources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(enabled) != 1 {
		t.Fatalf("got %d enabled sources, want 1", len(enabled))
	}
	if enabled[0].Municipality != "Inari" {
		t.Errorf("Municipality = %q, want Inari", enabled[0].Municipality)
	}
}

func TestSourceHealthTracking(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	id := seedSource(t, s, "Ranua")

	for i := 0; i < 2; i++ {
		if err := s.MarkSourceFailure(ctx, id, "connection refused"); err != nil {
			t.Fatal(err)
		}
	}
	sources, _ := s.ListSources(ctx)
	if sources[0].ConsecutiveFailures != 2 {
		t.Errorf("ConsecutiveFailures = %d, want 2", sources[0].ConsecutiveFailures)
	}
	if sources[0].LastError != "connection refused" {
		t.Errorf("LastError = %q", sources[0].LastError)
	}

	if err := s.MarkSourceSuccess(ctx, id); err != nil {
		t.Fatal(err)
	}
	sources, _ = s.ListSources(ctx)
	if sources[0].ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0 after success", sources[0].ConsecutiveFailures)
	}
	if sources[0].LastError != "" {
		t.Errorf("LastError = %q, want cleared", sources[0].LastError)
	}
	if sources[0].LastSuccessAt == nil {
		t.Error("LastSuccessAt not set")
	}
}

// --- document tests ---

func TestInsertDocumentWithFiles(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	srcID := seedSource(t, s, "Inari")

	docID := seedDocument(t, s, srcID, 1)

	docs, err := s.ListDocumentsByStatus(ctx, types.DocumentNew)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	doc := docs[0]
	if doc.ID != docID {
		t.Errorf("ID = %d, want %d", doc.ID, docID)
	}
	if doc.ExternalID != sampleRef(1).StableID() {
		t.Errorf("ExternalID = %q", doc.ExternalID)
	}
	if doc.Body != "Ympäristölautakunta" {
		t.Errorf("Body = %q", doc.Body)
	}
	if doc.MeetingDate == nil || doc.MeetingDate.Day() != 14 {
		t.Errorf("MeetingDate = %v", doc.MeetingDate)
	}
	if doc.Status != types.DocumentNew {
		t.Errorf("Status = %q, want new", doc.Status)
	}

	files, err := s.FilesForDocument(ctx, docID)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	for _, f := range files {
		if f.TextStatus != types.TextPending {
			t.Errorf("TextStatus = %q, want pending", f.TextStatus)
		}
		if f.FileType != "pdf" {
			t.Errorf("FileType = %q, want pdf", f.FileType)
		}
	}
}

func TestDocumentExists(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	srcID := seedSource(t, s, "Inari")
	seedDocument(t, s, srcID, 1)

	exists, err := s.DocumentExists(ctx, srcID, sampleRef(1).StableID())
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("expected document to exist")
	}

	exists, err = s.DocumentExists(ctx, srcID, "0123456789abcdef")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("unexpected document")
	}

	// Same external id under a different source does not count.
	otherID := seedSource(t, s, "Sodankylä")
	exists, err = s.DocumentExists(ctx, otherID, sampleRef(1).StableID())
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("document should be scoped to its source")
	}
}

func TestDownloadLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	srcID := seedSource(t, s, "Inari")
	docID := seedDocument(t, s, srcID, 1)

	items, err := s.ListAwaitingDownload(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d pending downloads, want 2", len(items))
	}
	if items[0].DocumentID != docID || items[0].SourceID != srcID {
		t.Errorf("item = %+v", items[0])
	}
	if items[0].DocTitle != "Pöytäkirja 1" {
		t.Errorf("DocTitle = %q", items[0].DocTitle)
	}

	// Store the first file; it disappears from the pending list.
	relPath := fmt.Sprintf("%d/%d.pdf", srcID, items[0].FileID)
	if err := s.MarkFileStored(ctx, items[0].FileID, relPath, 20480, "application/pdf"); err != nil {
		t.Fatal(err)
	}
	items, _ = s.ListAwaitingDownload(ctx)
	if len(items) != 1 {
		t.Fatalf("got %d pending downloads after store, want 1", len(items))
	}

	// Failing the second file also removes it.
	if err := s.SetFileTextStatus(ctx, items[0].FileID, types.TextFailed); err != nil {
		t.Fatal(err)
	}
	items, _ = s.ListAwaitingDownload(ctx)
	if len(items) != 0 {
		t.Fatalf("got %d pending downloads after failure, want 0", len(items))
	}

	files, _ := s.FilesForDocument(ctx, docID)
	stored := files[0]
	if stored.StoragePath != relPath {
		t.Errorf("StoragePath = %q, want %q", stored.StoragePath, relPath)
	}
	if stored.Bytes != 20480 {
		t.Errorf("Bytes = %d, want 20480", stored.Bytes)
	}
	if stored.MIME != "application/pdf" {
		t.Errorf("MIME = %q", stored.MIME)
	}
	if stored.FetchedAt == nil {
		t.Error("FetchedAt not set")
	}
}

func TestContentHashFirstFileWins(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	srcID := seedSource(t, s, "Inari")
	docID := seedDocument(t, s, srcID, 1)

	if err := s.SetDocumentContentHashIfEmpty(ctx, docID, "aaaa"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetDocumentContentHashIfEmpty(ctx, docID, "bbbb"); err != nil {
		t.Fatal(err)
	}

	docs, _ := s.ListDocumentsByStatus(ctx, types.DocumentNew)
	if docs[0].ContentHash != "aaaa" {
		t.Errorf("ContentHash = %q, want aaaa", docs[0].ContentHash)
	}
}

func TestMarkDocumentFetchedOnlyFromNew(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	srcID := seedSource(t, s, "Inari")
	docID := seedDocument(t, s, srcID, 1)

	if err := s.MarkDocumentFetched(ctx, docID); err != nil {
		t.Fatal(err)
	}
	docs, _ := s.ListDocumentsByStatus(ctx, types.DocumentFetched)
	if len(docs) != 1 {
		t.Fatalf("got %d fetched documents, want 1", len(docs))
	}

	// A processed document does not regress to fetched.
	if err := s.SetDocumentStatus(ctx, docID, types.DocumentProcessed); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkDocumentFetched(ctx, docID); err != nil {
		t.Fatal(err)
	}
	docs, _ = s.ListDocumentsByStatus(ctx, types.DocumentProcessed)
	if len(docs) != 1 {
		t.Error("processed document regressed")
	}
}

// --- extraction tests ---

func TestListFilesForExtraction(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	srcID := seedSource(t, s, "Inari")
	docID := seedDocument(t, s, srcID, 1)

	files, _ := s.FilesForDocument(ctx, docID)

	// Only stored files qualify.
	queue, err := s.ListFilesForExtraction(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(queue) != 0 {
		t.Fatalf("got %d files before any download, want 0", len(queue))
	}

	if err := s.MarkFileStored(ctx, files[0].ID, "1/1.pdf", 100, "application/pdf"); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkFileStored(ctx, files[1].ID, "1/2.pdf", 100, "application/pdf"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFileTextStatus(ctx, files[1].ID, types.TextOCRQueued); err != nil {
		t.Fatal(err)
	}

	queue, err = s.ListFilesForExtraction(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(queue) != 2 {
		t.Fatalf("got %d files, want 2 (pending and ocr_queued)", len(queue))
	}

	// Extracted and failed files drop out.
	if err := s.SetFileText(ctx, files[0].ID, "sample text", types.TextExtracted); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFileTextStatus(ctx, files[1].ID, types.TextFailed); err != nil {
		t.Fatal(err)
	}
	queue, _ = s.ListFilesForExtraction(ctx)
	if len(queue) != 0 {
		t.Fatalf("got %d files after completion, want 0", len(queue))
	}
}

func TestDocumentTextConcatenatesInFileOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	srcID := seedSource(t, s, "Inari")
	docID := seedDocument(t, s, srcID, 1)

	files, _ := s.FilesForDocument(ctx, docID)
	if err := s.SetFileText(ctx, files[0].ID, "Esityslista alkaa", types.TextExtracted); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFileText(ctx, files[1].ID, "Liite: maa-aineslupa", types.TextOCRDone); err != nil {
		t.Fatal(err)
	}

	text, err := s.DocumentText(ctx, docID)
	if err != nil {
		t.Fatal(err)
	}
	want := "Esityslista alkaa\n\n---\n\nLiite: maa-aineslupa"
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestDocumentTextSkipsUnextracted(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	srcID := seedSource(t, s, "Inari")
	docID := seedDocument(t, s, srcID, 1)

	files, _ := s.FilesForDocument(ctx, docID)
	if err := s.SetFileText(ctx, files[0].ID, "vain tämä", types.TextExtracted); err != nil {
		t.Fatal(err)
	}
	// Second file stays pending with no text.

	text, err := s.DocumentText(ctx, docID)
	if err != nil {
		t.Fatal(err)
	}
	if text != "vain tämä" {
		t.Errorf("text = %q, want %q", text, "vain tämä")
	}
}

// --- triage tests ---

func TestSetTriageResult(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	srcID := seedSource(t, s, "Inari")
	docID := seedDocument(t, s, srcID, 1)

	verdict := types.Verdict{
		Dominated:      true,
		Categories:     []string{"extraction", "water"},
		RelevanceScore: 0.85,
		SignalReason:   "Maa-aineslupa vesistön läheisyydessä",
	}
	if err := s.SetTriageResult(ctx, docID, verdict, types.DocumentProcessed); err != nil {
		t.Fatal(err)
	}

	docs, _ := s.ListDocumentsByStatus(ctx, types.DocumentProcessed)
	if len(docs) != 1 {
		t.Fatalf("got %d processed documents, want 1", len(docs))
	}
	doc := docs[0]
	if doc.TriageScore == nil || *doc.TriageScore != 0.85 {
		t.Errorf("TriageScore = %v, want 0.85", doc.TriageScore)
	}
	if len(doc.TriageCategories) != 2 || doc.TriageCategories[0] != "extraction" {
		t.Errorf("TriageCategories = %v", doc.TriageCategories)
	}
	if doc.TriageReason == "" {
		t.Error("TriageReason not stored")
	}
}

// --- case tests ---

func TestListCaseCandidates(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	srcID := seedSource(t, s, "Inari")

	score := func(docID int64, score float64) {
		t.Helper()
		verdict := types.Verdict{Dominated: true, RelevanceScore: score, Categories: []string{"zoning"}}
		if err := s.SetTriageResult(ctx, docID, verdict, types.DocumentProcessed); err != nil {
			t.Fatal(err)
		}
	}

	high := seedDocument(t, s, srcID, 1)
	low := seedDocument(t, s, srcID, 2)
	cited := seedDocument(t, s, srcID, 3)
	unprocessed := seedDocument(t, s, srcID, 4)
	score(high, 0.9)
	score(low, 0.4)
	score(cited, 0.7)
	_ = unprocessed

	// The cited document already backs a case.
	caseID, err := s.InsertCase(ctx, types.Case{
		PrimaryCategory: "zoning",
		Headline:        "Rantakaava vireillä",
		Status:          types.CaseProposed,
		Confidence:      types.ConfidenceMedium,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AppendEvidence(ctx, types.Evidence{
		CaseID: caseID, DocumentID: &cited, Snippet: "lainaus",
	}); err != nil {
		t.Fatal(err)
	}

	candidates, err := s.ListCaseCandidates(ctx, 0.6)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	if candidates[0].ID != high {
		t.Errorf("candidate = %d, want %d", candidates[0].ID, high)
	}
}

func TestFindCaseByEntity(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	entities, _ := json.Marshal(map[string]any{
		"applicant":     "Lapin Sora Oy",
		"permit_number": "MAL-2025-42",
	})
	id, err := s.InsertCase(ctx, types.Case{
		PrimaryCategory: "extraction",
		Headline:        "Maa-aineslupa vireillä",
		Status:          types.CaseProposed,
		Confidence:      types.ConfidenceHigh,
		EntitiesJSON:    string(entities),
	})
	if err != nil {
		t.Fatal(err)
	}

	found, err := s.FindCaseByEntity(ctx, "MAL-2025-42")
	if err != nil {
		t.Fatal(err)
	}
	if found == nil || found.ID != id {
		t.Fatalf("found = %v, want case %d", found, id)
	}

	missing, err := s.FindCaseByEntity(ctx, "MAL-2099-1")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("unexpected match: %+v", missing)
	}
}

func TestCaseEvidenceAndEvents(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	srcID := seedSource(t, s, "Inari")
	docID := seedDocument(t, s, srcID, 1)

	caseID, err := s.InsertCase(ctx, types.Case{
		PrimaryCategory: "energy",
		Headline:        "Tuulivoimahanke",
		Status:          types.CaseUnknown,
		Confidence:      types.ConfidenceMedium,
	})
	if err != nil {
		t.Fatal(err)
	}

	page := 3
	if err := s.AppendEvidence(ctx, types.Evidence{
		CaseID:     caseID,
		DocumentID: &docID,
		Page:       &page,
		Snippet:    "Tuulivoimapuiston osayleiskaava, 12 turbiinia",
		SourceURL:  "https://inari.example.fi/doc",
	}); err != nil {
		t.Fatal(err)
	}

	when := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	if err := s.AppendCaseEvent(ctx, types.CaseEvent{
		CaseID:      caseID,
		EventType:   "timeline",
		EventTime:   &when,
		PayloadJSON: `{"description":"Muistutusaika päättyy"}`,
	}); err != nil {
		t.Fatal(err)
	}

	evs, err := s.ListEvidence(ctx, caseID)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 {
		t.Fatalf("got %d evidence rows, want 1", len(evs))
	}
	if evs[0].Page == nil || *evs[0].Page != 3 {
		t.Errorf("Page = %v, want 3", evs[0].Page)
	}
	if evs[0].DocumentID == nil || *evs[0].DocumentID != docID {
		t.Errorf("DocumentID = %v, want %d", evs[0].DocumentID, docID)
	}

	events, err := s.ListCaseEvents(ctx, caseID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].EventTime == nil || !events[0].EventTime.Equal(when) {
		t.Errorf("EventTime = %v, want %v", events[0].EventTime, when)
	}
}

// --- usage tests ---

func TestUsageLedgerAndMonthSpend(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	srcID := seedSource(t, s, "Inari")
	docID := seedDocument(t, s, srcID, 1)

	for i := 0; i < 3; i++ {
		if err := s.RecordUsage(ctx, types.LLMUsage{
			DocumentID:       &docID,
			Model:            "gpt-4o-mini",
			Stage:            "triage",
			PromptTokens:     1200,
			CompletionTokens: 150,
			EstimatedCostEUR: 0.001,
		}); err != nil {
			t.Fatal(err)
		}
	}

	spend, err := s.MonthSpendEUR(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if spend < 0.0029 || spend > 0.0031 {
		t.Errorf("spend = %f, want ~0.003", spend)
	}
}

func TestStats(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	srcID := seedSource(t, s, "Inari")
	docID := seedDocument(t, s, srcID, 1)
	if err := s.MarkDocumentFetched(ctx, docID); err != nil {
		t.Fatal(err)
	}
	seedDocument(t, s, srcID, 2)

	if _, err := s.InsertCase(ctx, types.Case{
		PrimaryCategory: "water", Headline: "Ojitus", Status: types.CaseUnknown, Confidence: types.ConfidenceLow,
	}); err != nil {
		t.Fatal(err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Sources != 1 || st.EnabledSources != 1 {
		t.Errorf("Sources = %d/%d, want 1/1", st.Sources, st.EnabledSources)
	}
	if st.Documents["new"] != 1 || st.Documents["fetched"] != 1 {
		t.Errorf("Documents = %v", st.Documents)
	}
	if st.Files["pending"] != 4 {
		t.Errorf("Files = %v, want 4 pending", st.Files)
	}
	if st.Cases != 1 {
		t.Errorf("Cases = %d, want 1", st.Cases)
	}
}
