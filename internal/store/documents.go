// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kaamos-labs/watchdog/pkg/types"
)

// DocumentExists reports whether a document with the given stable id is
// already recorded for the source.
func (s *Store) DocumentExists(ctx context.Context, sourceID int64, externalID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE source_id = ? AND external_id = ?`,
		sourceID, externalID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking document: %w", err)
	}
	return true, nil
}

// InsertDocumentWithFiles persists a discovered reference and one file row
// per file URL in a single transaction. Returns the new document id.
func (s *Store) InsertDocumentWithFiles(ctx context.Context, sourceID int64, ref types.DocumentRef) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO documents (source_id, external_id, doc_type, title, body, meeting_date, published_at, source_url, status, discovered_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sourceID, ref.StableID(), string(ref.DocType), ref.Title, nullString(ref.Body),
		nullTime(ref.MeetingDate), nullTime(ref.PublishedAt), ref.SourceURL,
		string(types.DocumentNew), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting document: %w", err)
	}
	docID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading document id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO files (document_id, url, file_type, text_status, created_at)
		 VALUES (?, ?, 'pdf', ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("preparing file insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range ref.FileURLs {
		if _, err := stmt.ExecContext(ctx, docID, u, string(types.TextPending), now); err != nil {
			return 0, fmt.Errorf("inserting file: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing document: %w", err)
	}
	return docID, nil
}

// InsertDiscovered persists every ref that is new for the source, with its
// file rows, in one transaction. Refs whose (source_id, external_id) already
// exist are skipped. Returns the number of documents inserted.
func (s *Store) InsertDiscovered(ctx context.Context, sourceID int64, refs []types.DocumentRef) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	inserted := 0
	for _, ref := range refs {
		externalID := ref.StableID()
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM documents WHERE source_id = ? AND external_id = ?`,
			sourceID, externalID,
		).Scan(&one)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return 0, fmt.Errorf("checking document: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO documents (source_id, external_id, doc_type, title, body, meeting_date, published_at, source_url, status, discovered_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sourceID, externalID, string(ref.DocType), ref.Title, nullString(ref.Body),
			nullTime(ref.MeetingDate), nullTime(ref.PublishedAt), ref.SourceURL,
			string(types.DocumentNew), now, now,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting document: %w", err)
		}
		docID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("reading document id: %w", err)
		}
		for _, u := range ref.FileURLs {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO files (document_id, url, file_type, text_status, created_at)
				 VALUES (?, ?, 'pdf', ?, ?)`,
				docID, u, string(types.TextPending), now,
			)
			if err != nil {
				return 0, fmt.Errorf("inserting file: %w", err)
			}
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing discovery batch: %w", err)
	}
	return inserted, nil
}

// DownloadItem pairs a pending file with the document it belongs to.
type DownloadItem struct {
	FileID     int64
	URL        string
	DocumentID int64
	SourceID   int64
	DocTitle   string
}

// ListAwaitingDownload returns files that have no stored copy yet, oldest
// first.
func (s *Store) ListAwaitingDownload(ctx context.Context) ([]DownloadItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.url, f.document_id, d.source_id, d.title
		 FROM files f JOIN documents d ON d.id = f.document_id
		 WHERE f.storage_path IS NULL AND f.text_status = ?
		 ORDER BY f.id`,
		string(types.TextPending),
	)
	if err != nil {
		return nil, fmt.Errorf("querying pending files: %w", err)
	}
	defer rows.Close()

	var items []DownloadItem
	for rows.Next() {
		var it DownloadItem
		if err := rows.Scan(&it.FileID, &it.URL, &it.DocumentID, &it.SourceID, &it.DocTitle); err != nil {
			return nil, fmt.Errorf("scanning pending file: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// MarkFileStored records a completed download: where the file landed
// relative to the storage root, its size, and its reported content type.
func (s *Store) MarkFileStored(ctx context.Context, fileID int64, relPath string, size int64, mime string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE files SET storage_path = ?, bytes = ?, mime = ?, fetched_at = ? WHERE id = ?`,
		relPath, size, nullString(mime), time.Now().UTC(), fileID,
	)
	if err != nil {
		return fmt.Errorf("marking file stored: %w", err)
	}
	return nil
}

// SetFileTextStatus updates only the extraction state of a file.
func (s *Store) SetFileTextStatus(ctx context.Context, fileID int64, status types.TextStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE files SET text_status = ? WHERE id = ?`,
		string(status), fileID,
	)
	if err != nil {
		return fmt.Errorf("updating file status: %w", err)
	}
	return nil
}

// SetFileText stores extracted text together with the resulting state.
func (s *Store) SetFileText(ctx context.Context, fileID int64, text string, status types.TextStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE files SET text_content = ?, text_status = ? WHERE id = ?`,
		text, string(status), fileID,
	)
	if err != nil {
		return fmt.Errorf("storing file text: %w", err)
	}
	return nil
}

// SetDocumentContentHashIfEmpty records a content hash for the document
// unless one is already present. The first stored file wins.
func (s *Store) SetDocumentContentHashIfEmpty(ctx context.Context, docID int64, hash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET content_hash = ?, updated_at = ?
		 WHERE id = ? AND (content_hash IS NULL OR content_hash = '')`,
		hash, time.Now().UTC(), docID,
	)
	if err != nil {
		return fmt.Errorf("recording content hash: %w", err)
	}
	return nil
}

// MarkDocumentFetched advances a document from new to fetched. Documents
// already past new are left untouched.
func (s *Store) MarkDocumentFetched(ctx context.Context, docID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(types.DocumentFetched), time.Now().UTC(), docID, string(types.DocumentNew),
	)
	if err != nil {
		return fmt.Errorf("marking document fetched: %w", err)
	}
	return nil
}

// SetDocumentStatus moves a document to the given state unconditionally.
func (s *Store) SetDocumentStatus(ctx context.Context, docID int64, status types.DocumentStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), docID,
	)
	if err != nil {
		return fmt.Errorf("updating document status: %w", err)
	}
	return nil
}

// SetTriageResult stores a triage verdict and advances the document to the
// given state in one update.
func (s *Store) SetTriageResult(ctx context.Context, docID int64, verdict types.Verdict, status types.DocumentStatus) error {
	categories, err := json.Marshal(verdict.Categories)
	if err != nil {
		return fmt.Errorf("encoding categories: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE documents SET triage_score = ?, triage_categories = ?, triage_reason = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		verdict.RelevanceScore, string(categories), verdict.SignalReason,
		string(status), time.Now().UTC(), docID,
	)
	if err != nil {
		return fmt.Errorf("storing triage result: %w", err)
	}
	return nil
}

// ListFilesForExtraction returns stored files still awaiting text, both
// fresh downloads and those queued for OCR.
func (s *Store) ListFilesForExtraction(ctx context.Context) ([]types.File, error) {
	return s.queryFiles(ctx,
		`SELECT `+fileColumns+` FROM files
		 WHERE storage_path IS NOT NULL AND text_status IN (?, ?)
		 ORDER BY id`,
		string(types.TextPending), string(types.TextOCRQueued),
	)
}

// FilesForDocument returns all files belonging to a document.
func (s *Store) FilesForDocument(ctx context.Context, docID int64) ([]types.File, error) {
	return s.queryFiles(ctx,
		`SELECT `+fileColumns+` FROM files WHERE document_id = ? ORDER BY id`,
		docID,
	)
}

// DocumentText concatenates the extracted text of all of a document's files
// in file order, separated by a horizontal rule. Empty when no file has
// usable text yet.
func (s *Store) DocumentText(ctx context.Context, docID int64) (string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text_content FROM files
		 WHERE document_id = ? AND text_status IN (?, ?) AND text_content IS NOT NULL
		 ORDER BY id`,
		docID, string(types.TextExtracted), string(types.TextOCRDone),
	)
	if err != nil {
		return "", fmt.Errorf("querying document text: %w", err)
	}
	defer rows.Close()

	var parts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return "", fmt.Errorf("scanning text: %w", err)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return strings.Join(parts, "\n\n---\n\n"), nil
}

// ListDocumentsByStatus returns documents in the given pipeline state,
// oldest first.
func (s *Store) ListDocumentsByStatus(ctx context.Context, status types.DocumentStatus) ([]types.Document, error) {
	return s.queryDocuments(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE status = ? ORDER BY id`,
		string(status),
	)
}

const documentColumns = `id, source_id, external_id, doc_type, title, body, meeting_date, published_at, source_url, status, content_hash, triage_score, triage_categories, triage_reason, discovered_at, updated_at`

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]types.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(rows *sql.Rows) (types.Document, error) {
	var (
		doc                      types.Document
		body, hash, cats, reason sql.NullString
		meeting, published       sql.NullTime
		score                    sql.NullFloat64
	)
	err := rows.Scan(
		&doc.ID, &doc.SourceID, &doc.ExternalID, &doc.DocType, &doc.Title,
		&body, &meeting, &published, &doc.SourceURL, &doc.Status,
		&hash, &score, &cats, &reason, &doc.DiscoveredAt, &doc.UpdatedAt,
	)
	if err != nil {
		return types.Document{}, fmt.Errorf("scanning document: %w", err)
	}
	doc.Body = body.String
	doc.ContentHash = hash.String
	doc.TriageReason = reason.String
	if meeting.Valid {
		t := meeting.Time.UTC()
		doc.MeetingDate = &t
	}
	if published.Valid {
		t := published.Time.UTC()
		doc.PublishedAt = &t
	}
	if score.Valid {
		doc.TriageScore = &score.Float64
	}
	if cats.Valid && cats.String != "" {
		if err := json.Unmarshal([]byte(cats.String), &doc.TriageCategories); err != nil {
			return types.Document{}, fmt.Errorf("decoding categories for document %d: %w", doc.ID, err)
		}
	}
	return doc, nil
}

const fileColumns = `id, document_id, url, file_type, mime, bytes, storage_path, text_status, text_content, fetched_at, created_at`

func (s *Store) queryFiles(ctx context.Context, query string, args ...any) ([]types.File, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var files []types.File
	for rows.Next() {
		var (
			f                types.File
			mime, path, text sql.NullString
			size             sql.NullInt64
			fetched          sql.NullTime
		)
		err := rows.Scan(
			&f.ID, &f.DocumentID, &f.URL, &f.FileType, &mime, &size,
			&path, &f.TextStatus, &text, &fetched, &f.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		f.MIME = mime.String
		f.Bytes = size.Int64
		f.StoragePath = path.String
		f.TextContent = text.String
		if fetched.Valid {
			t := fetched.Time.UTC()
			f.FetchedAt = &t
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
