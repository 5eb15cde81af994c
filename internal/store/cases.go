// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kaamos-labs/watchdog/pkg/types"
)

// ListCaseCandidates returns processed documents at or above the score
// threshold that no case cites as evidence yet, highest score first.
func (s *Store) ListCaseCandidates(ctx context.Context, minScore float64) ([]types.Document, error) {
	return s.queryDocuments(ctx,
		`SELECT `+documentColumns+` FROM documents d
		 WHERE d.status = ? AND d.triage_score >= ?
		   AND NOT EXISTS (SELECT 1 FROM evidence e WHERE e.document_id = d.id)
		 ORDER BY d.triage_score DESC, d.id`,
		string(types.DocumentProcessed), minScore,
	)
}

// FindCaseByEntity returns the oldest case whose entity extract contains
// the given fragment, typically a permit number. Nil when none matches.
func (s *Store) FindCaseByEntity(ctx context.Context, fragment string) (*types.Case, error) {
	cases, err := s.queryCases(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE entities_json LIKE ? ORDER BY id LIMIT 1`,
		"%"+fragment+"%",
	)
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, nil
	}
	return &cases[0], nil
}

// InsertCase persists a new case and returns its id.
func (s *Store) InsertCase(ctx context.Context, c types.Case) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO cases (primary_category, headline, summary_md, status, confidence, confidence_reason, municipalities_json, entities_json, locations_json, first_seen_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.PrimaryCategory, c.Headline, c.SummaryMD, string(c.Status), string(c.Confidence),
		nullString(c.ConfidenceReason), nullString(c.MunicipalitiesJSON),
		nullString(c.EntitiesJSON), nullString(c.LocationsJSON), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting case: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading case id: %w", err)
	}
	return id, nil
}

// TouchCase bumps a case's updated_at, marking that new material arrived.
func (s *Store) TouchCase(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE cases SET updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("touching case: %w", err)
	}
	return nil
}

// AppendEvidence attaches a verbatim snippet to a case.
func (s *Store) AppendEvidence(ctx context.Context, ev types.Evidence) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evidence (case_id, file_id, document_id, page, snippet, source_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.CaseID, ev.FileID, ev.DocumentID, ev.Page, ev.Snippet,
		nullString(ev.SourceURL), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting evidence: %w", err)
	}
	return nil
}

// AppendCaseEvent records a timeline or audit event for a case.
func (s *Store) AppendCaseEvent(ctx context.Context, ev types.CaseEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO case_events (case_id, event_type, event_time, payload_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ev.CaseID, ev.EventType, nullTime(ev.EventTime), nullString(ev.PayloadJSON),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting case event: %w", err)
	}
	return nil
}

// ListCases returns all cases, most recently updated first.
func (s *Store) ListCases(ctx context.Context) ([]types.Case, error) {
	return s.queryCases(ctx,
		`SELECT `+caseColumns+` FROM cases ORDER BY updated_at DESC, id DESC`,
	)
}

// ListEvidence returns a case's evidence rows in insertion order.
func (s *Store) ListEvidence(ctx context.Context, caseID int64) ([]types.Evidence, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, case_id, file_id, document_id, page, snippet, source_url, created_at
		 FROM evidence WHERE case_id = ? ORDER BY id`,
		caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying evidence: %w", err)
	}
	defer rows.Close()

	var evs []types.Evidence
	for rows.Next() {
		var (
			ev            types.Evidence
			fileID, docID sql.NullInt64
			page          sql.NullInt64
			srcURL        sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.CaseID, &fileID, &docID, &page, &ev.Snippet, &srcURL, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning evidence: %w", err)
		}
		if fileID.Valid {
			ev.FileID = &fileID.Int64
		}
		if docID.Valid {
			ev.DocumentID = &docID.Int64
		}
		if page.Valid {
			p := int(page.Int64)
			ev.Page = &p
		}
		ev.SourceURL = srcURL.String
		evs = append(evs, ev)
	}
	return evs, rows.Err()
}

// ListCaseEvents returns a case's events in insertion order.
func (s *Store) ListCaseEvents(ctx context.Context, caseID int64) ([]types.CaseEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, case_id, event_type, event_time, payload_json, created_at
		 FROM case_events WHERE case_id = ? ORDER BY id`,
		caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying case events: %w", err)
	}
	defer rows.Close()

	var events []types.CaseEvent
	for rows.Next() {
		var (
			ev      types.CaseEvent
			when    sql.NullTime
			payload sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.CaseID, &ev.EventType, &when, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning case event: %w", err)
		}
		if when.Valid {
			t := when.Time.UTC()
			ev.EventTime = &t
		}
		ev.PayloadJSON = payload.String
		events = append(events, ev)
	}
	return events, rows.Err()
}

const caseColumns = `id, primary_category, headline, summary_md, status, confidence, confidence_reason, municipalities_json, entities_json, locations_json, first_seen_at, updated_at`

func (s *Store) queryCases(ctx context.Context, query string, args ...any) ([]types.Case, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying cases: %w", err)
	}
	defer rows.Close()

	var cases []types.Case
	for rows.Next() {
		var (
			c                     types.Case
			reason                sql.NullString
			munis, entities, locs sql.NullString
		)
		err := rows.Scan(
			&c.ID, &c.PrimaryCategory, &c.Headline, &c.SummaryMD, &c.Status,
			&c.Confidence, &reason, &munis, &entities, &locs,
			&c.FirstSeenAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning case: %w", err)
		}
		c.ConfidenceReason = reason.String
		c.MunicipalitiesJSON = munis.String
		c.EntitiesJSON = entities.String
		c.LocationsJSON = locs.String
		cases = append(cases, c)
	}
	return cases, rows.Err()
}
