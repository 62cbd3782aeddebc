package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"careercrawl-engine/internal/domain"
)

// RunTotals are the aggregate counters written back when a run completes.
type RunTotals struct {
	SitesScraped    int
	JobsFound       int
	JobsNew         int
	JobsUpdated     int
	JobsDeactivated int
}

// StartRun inserts a scrape_runs row in "running" state and returns its id.
func StartRun(ctx context.Context, db *sql.DB) (int64, error) {
	res, err := db.ExecContext(ctx, `
INSERT INTO scrape_runs (started_at, status)
VALUES (?, 'running');`,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	return res.LastInsertId()
}

// CompleteRun finalizes a run exactly once. Completed rows are never
// touched again; a run orphaned in "running" by a crash is left alone.
func CompleteRun(ctx context.Context, db *sql.DB, id int64, totals RunTotals, status, errMsg string) error {
	_, err := db.ExecContext(ctx, `
UPDATE scrape_runs
SET completed_at = ?,
    sites_scraped = ?,
    jobs_found = ?,
    jobs_new = ?,
    jobs_updated = ?,
    jobs_deactivated = ?,
    status = ?,
    error_message = ?
WHERE id = ? AND status = 'running';`,
		time.Now().UTC().Format(time.RFC3339Nano),
		totals.SitesScraped,
		totals.JobsFound,
		totals.JobsNew,
		totals.JobsUpdated,
		totals.JobsDeactivated,
		status,
		nullableText(errMsg),
		id,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func RecentRuns(ctx context.Context, db *sql.DB, limit int) ([]domain.ScrapeRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.QueryContext(ctx, `
SELECT id, started_at, completed_at, sites_scraped,
       jobs_found, jobs_new, jobs_updated, jobs_deactivated,
       status, error_message
FROM scrape_runs
ORDER BY id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScrapeRun
	for rows.Next() {
		var (
			r           domain.ScrapeRun
			startedAt   string
			completedAt sql.NullString
			errMsg      sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &startedAt, &completedAt, &r.SitesScraped,
			&r.JobsFound, &r.JobsNew, &r.JobsUpdated, &r.JobsDeactivated,
			&r.Status, &errMsg,
		); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		if completedAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, completedAt.String)
			if err == nil {
				r.CompletedAt = &t
			}
		}
		r.ErrorMessage = errMsg.String
		out = append(out, r)
	}
	return out, rows.Err()
}
