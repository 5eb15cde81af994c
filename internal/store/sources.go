// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaamos-labs/watchdog/pkg/types"
)

// UpsertSource inserts a source or, when one with the same municipality
// already exists, updates its platform, base URL, configuration, and
// enabled flag. Returns the source id and whether a new row was created.
func (s *Store) UpsertSource(ctx context.Context, src types.Source) (int64, bool, error) {
	configJSON, err := json.Marshal(src.Config)
	if err != nil {
		return 0, false, fmt.Errorf("encoding source config: %w", err)
	}
	now := time.Now().UTC()

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM sources WHERE municipality = ?`, src.Municipality,
	).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO sources (municipality, platform, base_url, enabled, config_json, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			src.Municipality, src.Platform, src.BaseURL, src.Enabled, string(configJSON), now, now,
		)
		if err != nil {
			return 0, false, fmt.Errorf("inserting source: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("reading source id: %w", err)
		}
		return id, true, nil
	case err != nil:
		return 0, false, fmt.Errorf("looking up source: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE sources SET platform = ?, base_url = ?, config_json = ?, enabled = ?, updated_at = ?
		 WHERE id = ?`,
		src.Platform, src.BaseURL, string(configJSON), src.Enabled, now, id,
	)
	if err != nil {
		return 0, false, fmt.Errorf("updating source: %w", err)
	}
	return id, false, nil
}

// ListSources returns all sources ordered by municipality.
func (s *Store) ListSources(ctx context.Context) ([]types.Source, error) {
	return s.querySources(ctx,
		`SELECT id, municipality, platform, base_url, enabled, config_json,
		        last_success_at, last_error, consecutive_failures, created_at, updated_at
		 FROM sources ORDER BY municipality`)
}

// ListEnabledSources returns the sources discovery runs against.
func (s *Store) ListEnabledSources(ctx context.Context) ([]types.Source, error) {
	return s.querySources(ctx,
		`SELECT id, municipality, platform, base_url, enabled, config_json,
		        last_success_at, last_error, consecutive_failures, created_at, updated_at
		 FROM sources WHERE enabled = 1 ORDER BY municipality`)
}

func (s *Store) querySources(ctx context.Context, query string, args ...any) ([]types.Source, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var out []types.Source
	for rows.Next() {
		var (
			src         types.Source
			configJSON  sql.NullString
			lastSuccess sql.NullTime
			lastError   sql.NullString
		)
		if err := rows.Scan(
			&src.ID, &src.Municipality, &src.Platform, &src.BaseURL, &src.Enabled,
			&configJSON, &lastSuccess, &lastError, &src.ConsecutiveFailures,
			&src.CreatedAt, &src.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		if configJSON.Valid && configJSON.String != "" {
			// Unknown keys in stored config are dropped here by the typed parse.
			if err := json.Unmarshal([]byte(configJSON.String), &src.Config); err != nil {
				return nil, fmt.Errorf("decoding config for source %d: %w", src.ID, err)
			}
		}
		if lastSuccess.Valid {
			t := lastSuccess.Time.UTC()
			src.LastSuccessAt = &t
		}
		src.LastError = lastError.String
		out = append(out, src)
	}
	return out, rows.Err()
}

// MarkSourceSuccess resets the failure counter and stamps last_success_at
// after a discovery run succeeded.
func (s *Store) MarkSourceSuccess(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE sources SET last_success_at = ?, last_error = NULL,
		        consecutive_failures = 0, updated_at = ? WHERE id = ?`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("marking source %d success: %w", id, err)
	}
	return nil
}

// MarkSourceFailure increments the failure counter and records the error.
func (s *Store) MarkSourceFailure(ctx context.Context, id int64, cause string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE sources SET last_error = ?, consecutive_failures = consecutive_failures + 1,
		        updated_at = ? WHERE id = ?`,
		cause, now, id,
	)
	if err != nil {
		return fmt.Errorf("marking source %d failure: %w", id, err)
	}
	return nil
}
