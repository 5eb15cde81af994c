// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kaamos-labs/watchdog/pkg/types"
)

// RecordUsage appends one model call to the usage ledger.
func (s *Store) RecordUsage(ctx context.Context, u types.LLMUsage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_usage (document_id, model, stage, prompt_tokens, completion_tokens, estimated_cost_eur, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.DocumentID, u.Model, u.Stage, u.PromptTokens, u.CompletionTokens,
		u.EstimatedCostEUR, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording usage: %w", err)
	}
	return nil
}

// MonthSpendEUR sums the estimated cost of all model calls made in the
// calendar month containing now.
func (s *Store) MonthSpendEUR(ctx context.Context, now time.Time) (float64, error) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	var spend float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(estimated_cost_eur), 0) FROM llm_usage WHERE created_at >= ?`,
		start,
	).Scan(&spend)
	if err != nil {
		return 0, fmt.Errorf("summing month spend: %w", err)
	}
	return spend, nil
}

// Stats is a point-in-time snapshot of pipeline state.
type Stats struct {
	Sources        int            `json:"sources"`
	EnabledSources int            `json:"enabled_sources"`
	Documents      map[string]int `json:"documents"`
	Files          map[string]int `json:"files"`
	Cases          int            `json:"cases"`
	MonthSpendEUR  float64        `json:"month_spend_eur"`
}

// Stats reports row counts per pipeline state plus the current month's
// model spend.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		Documents: map[string]int{},
		Files:     map[string]int{},
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(enabled), 0) FROM sources`,
	).Scan(&st.Sources, &st.EnabledSources)
	if err != nil {
		return nil, fmt.Errorf("counting sources: %w", err)
	}

	if err := s.countBy(ctx, `SELECT status, COUNT(*) FROM documents GROUP BY status`, st.Documents); err != nil {
		return nil, err
	}
	if err := s.countBy(ctx, `SELECT text_status, COUNT(*) FROM files GROUP BY text_status`, st.Files); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cases`).Scan(&st.Cases); err != nil {
		return nil, fmt.Errorf("counting cases: %w", err)
	}

	spend, err := s.MonthSpendEUR(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	st.MonthSpendEUR = spend
	return st, nil
}

func (s *Store) countBy(ctx context.Context, query string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("counting rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scanning count: %w", err)
		}
		into[key] = n
	}
	return rows.Err()
}
