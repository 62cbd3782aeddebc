package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"careercrawl-engine/internal/pattern"
)

// PatternStore is the sqlite backend for the listing-pattern cache.
// One row per site base URL; last write wins on concurrent updates, which
// is acceptable because entries are re-verified on every read.
type PatternStore struct {
	DB *sql.DB
}

var _ pattern.Store = (*PatternStore)(nil)

func (s *PatternStore) Get(ctx context.Context, baseURL string) (string, bool, error) {
	baseURL = normalizeBaseURL(baseURL)
	if baseURL == "" {
		return "", false, nil
	}

	var suffix string
	err := s.DB.QueryRowContext(ctx,
		`SELECT suffix FROM listing_patterns WHERE base_url = ? LIMIT 1;`,
		baseURL,
	).Scan(&suffix)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return suffix, true, nil
}

func (s *PatternStore) Put(ctx context.Context, baseURL, suffix string) error {
	baseURL = normalizeBaseURL(baseURL)
	if baseURL == "" {
		return nil
	}

	_, err := s.DB.ExecContext(ctx, `
INSERT INTO listing_patterns(base_url, suffix, checked_at)
VALUES(?,?,?)
ON CONFLICT(base_url) DO UPDATE SET
  suffix = excluded.suffix,
  checked_at = excluded.checked_at;
`, baseURL, suffix, time.Now().UTC().Format(time.RFC3339))

	return err
}

func (s *PatternStore) Delete(ctx context.Context, baseURL string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM listing_patterns WHERE base_url = ?;`,
		normalizeBaseURL(baseURL))
	return err
}

func (s *PatternStore) All(ctx context.Context) ([]pattern.Entry, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT base_url, suffix, checked_at FROM listing_patterns ORDER BY base_url;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pattern.Entry
	for rows.Next() {
		var e pattern.Entry
		var checkedAt string
		if err := rows.Scan(&e.BaseURL, &e.Suffix, &checkedAt); err != nil {
			return nil, err
		}
		e.CheckedAt, _ = time.Parse(time.RFC3339, checkedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func normalizeBaseURL(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "/")
}
