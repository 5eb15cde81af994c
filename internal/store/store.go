// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists the pipeline state machine: sources, documents,
// files, cases, evidence, and the model-usage ledger, in SQLite. Each
// pipeline stage selects its work by status and commits its own
// transitions; the store is the only shared mutable resource between
// stages.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kaamos-labs/watchdog/pkg/types"
)

// Store wraps the SQLite database holding all pipeline state.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at cfg.DatabasePath and creates
// the schema if it does not exist.
func NewStore(cfg types.StorageConfig) (*Store, error) {
	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("storage.database_path is not configured")
	}
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DatabasePath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			municipality TEXT NOT NULL,
			platform TEXT NOT NULL,
			base_url TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			config_json TEXT,
			last_success_at TIMESTAMP,
			last_error TEXT,
			consecutive_failures INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_muni_platform ON sources(municipality, platform)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_id INTEGER NOT NULL REFERENCES sources(id),
			external_id TEXT NOT NULL,
			doc_type TEXT,
			title TEXT,
			body TEXT,
			meeting_date TIMESTAMP,
			published_at TIMESTAMP,
			source_url TEXT,
			status TEXT NOT NULL DEFAULT 'new',
			content_hash TEXT,
			triage_score REAL,
			triage_categories TEXT,
			triage_reason TEXT,
			discovered_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE(source_id, external_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status, triage_score)`,
		`CREATE TABLE IF NOT EXISTS files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id INTEGER NOT NULL REFERENCES documents(id),
			url TEXT NOT NULL,
			file_type TEXT NOT NULL DEFAULT 'pdf',
			mime TEXT,
			bytes INTEGER,
			storage_path TEXT,
			text_status TEXT NOT NULL DEFAULT 'pending',
			text_content TEXT,
			fetched_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_files_document_id ON files(document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_files_text_status ON files(text_status)`,
		`CREATE TABLE IF NOT EXISTS cases (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			primary_category TEXT,
			headline TEXT,
			summary_md TEXT,
			status TEXT NOT NULL DEFAULT 'unknown',
			confidence TEXT NOT NULL DEFAULT 'medium',
			confidence_reason TEXT,
			municipalities_json TEXT,
			entities_json TEXT,
			locations_json TEXT,
			first_seen_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS case_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id INTEGER NOT NULL REFERENCES cases(id),
			event_type TEXT NOT NULL,
			event_time TIMESTAMP,
			payload_json TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_case_events_case_id ON case_events(case_id)`,
		`CREATE TABLE IF NOT EXISTS evidence (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id INTEGER NOT NULL REFERENCES cases(id),
			file_id INTEGER REFERENCES files(id),
			document_id INTEGER REFERENCES documents(id),
			page INTEGER,
			snippet TEXT NOT NULL,
			source_url TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evidence_case_id ON evidence(case_id)`,
		`CREATE INDEX IF NOT EXISTS idx_evidence_document_id ON evidence(document_id)`,
		`CREATE TABLE IF NOT EXISTS llm_usage (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id INTEGER REFERENCES documents(id),
			model TEXT NOT NULL,
			stage TEXT NOT NULL,
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			estimated_cost_eur REAL NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}
