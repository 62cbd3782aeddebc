package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"careercrawl-engine/internal/domain"
)

// Upsert records one observation of a posting, keyed by URL.
//
// A first observation inserts the row (scrape_count=1, active). A repeat
// observation always refreshes last_seen, bumps scrape_count and forces the
// row active; the returned outcome is OutcomeUpdated only when a
// comparison-relevant field (title, location, prior active flag) differed.
// Storage effects are identical for updated and unchanged.
func Upsert(ctx context.Context, db *sql.DB, p domain.RawPosting) (domain.UpsertOutcome, bool, error) {
	if strings.TrimSpace(p.URL) == "" {
		return "", false, errors.New("posting has no url")
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	metaJSON := marshalMetadata(p.Metadata)

	var (
		prevTitle    string
		prevLocation sql.NullString
		prevActive   int
	)
	err := db.QueryRowContext(ctx,
		`SELECT title, location, is_active FROM postings WHERE url = ?;`,
		p.URL,
	).Scan(&prevTitle, &prevLocation, &prevActive)

	if errors.Is(err, sql.ErrNoRows) {
		_, err = db.ExecContext(ctx, `
INSERT INTO postings (url, company, title, location, external_id,
                      first_seen, last_seen, scrape_count, is_active, metadata)
VALUES (?, ?, ?, ?, ?, ?, ?, 1, 1, ?);`,
			p.URL, p.Company, p.Title, nullableText(p.Location), p.ExternalID,
			now, now, metaJSON,
		)
		if err != nil {
			return "", false, fmt.Errorf("insert posting: %w", err)
		}
		return domain.OutcomeNew, true, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup posting: %w", err)
	}

	changed := prevTitle != p.Title ||
		prevLocation.String != p.Location ||
		prevActive != 1

	_, err = db.ExecContext(ctx, `
UPDATE postings
SET last_seen = ?,
    scrape_count = scrape_count + 1,
    is_active = 1,
    title = ?,
    location = ?,
    external_id = ?,
    metadata = ?
WHERE url = ?;`,
		now, p.Title, nullableText(p.Location), p.ExternalID, metaJSON, p.URL,
	)
	if err != nil {
		return "", false, fmt.Errorf("update posting: %w", err)
	}

	if changed {
		return domain.OutcomeUpdated, true, nil
	}
	return domain.OutcomeUnchanged, false, nil
}

// DeactivateMissing flips is_active off for every active posting of the
// company whose URL is not in seen. An empty seen set deactivates all of the
// company's active postings. Rows are never deleted; a later Upsert of the
// same URL revives the row.
func DeactivateMissing(ctx context.Context, db *sql.DB, company string, seen []string) (int64, error) {
	if len(seen) == 0 {
		res, err := db.ExecContext(ctx, `
UPDATE postings
SET is_active = 0
WHERE company = ? AND is_active = 1;`, company)
		if err != nil {
			return 0, fmt.Errorf("deactivate sweep: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(seen)), ",")
	args := make([]any, 0, len(seen)+1)
	args = append(args, company)
	for _, u := range seen {
		args = append(args, u)
	}

	res, err := db.ExecContext(ctx, fmt.Sprintf(`
UPDATE postings
SET is_active = 0
WHERE company = ? AND url NOT IN (%s) AND is_active = 1;`, placeholders), args...)
	if err != nil {
		return 0, fmt.Errorf("deactivate sweep: %w", err)
	}
	return res.RowsAffected()
}

// ActiveURLs returns the set of active posting URLs for a company.
func ActiveURLs(ctx context.Context, db *sql.DB, company string) (map[string]struct{}, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT url FROM postings WHERE company = ? AND is_active = 1;`, company)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		out[u] = struct{}{}
	}
	return out, rows.Err()
}

// ListActive returns active postings, all companies when company is "".
func ListActive(ctx context.Context, db *sql.DB, company string) ([]domain.Posting, error) {
	query := `
SELECT id, url, company, title, location, external_id,
       first_seen, last_seen, scrape_count, is_active, metadata
FROM postings
WHERE is_active = 1
ORDER BY company, title;`
	args := []any{}
	if company != "" {
		query = `
SELECT id, url, company, title, location, external_id,
       first_seen, last_seen, scrape_count, is_active, metadata
FROM postings
WHERE is_active = 1 AND company = ?
ORDER BY company, title;`
		args = append(args, company)
	}
	return queryPostings(ctx, db, query, args...)
}

// AllPostings returns every posting, optionally including inactive rows.
func AllPostings(ctx context.Context, db *sql.DB, includeInactive bool) ([]domain.Posting, error) {
	if includeInactive {
		return queryPostings(ctx, db, `
SELECT id, url, company, title, location, external_id,
       first_seen, last_seen, scrape_count, is_active, metadata
FROM postings
ORDER BY company, title;`)
	}
	return ListActive(ctx, db, "")
}

// ExportActive writes the active postings as an indented JSON array,
// the flat record shape downstream consumers read.
func ExportActive(ctx context.Context, db *sql.DB, w io.Writer) (int, error) {
	postings, err := ListActive(ctx, db, "")
	if err != nil {
		return 0, err
	}
	if postings == nil {
		postings = []domain.Posting{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(postings); err != nil {
		return 0, err
	}
	return len(postings), nil
}

func queryPostings(ctx context.Context, db *sql.DB, query string, args ...any) ([]domain.Posting, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Posting
	for rows.Next() {
		var (
			p         domain.Posting
			location  sql.NullString
			firstSeen string
			lastSeen  string
			active    int
			metaJSON  string
		)
		if err := rows.Scan(
			&p.ID, &p.URL, &p.Company, &p.Title, &location, &p.ExternalID,
			&firstSeen, &lastSeen, &p.ScrapeCount, &active, &metaJSON,
		); err != nil {
			return nil, err
		}
		p.Location = location.String
		p.IsActive = active == 1
		p.FirstSeen, _ = time.Parse(time.RFC3339Nano, firstSeen)
		p.LastSeen, _ = time.Parse(time.RFC3339Nano, lastSeen)
		if metaJSON != "" && metaJSON != "{}" {
			_ = json.Unmarshal([]byte(metaJSON), &p.Metadata)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func marshalMetadata(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}
