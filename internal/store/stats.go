package store

import (
	"context"
	"database/sql"
	"errors"

	"careercrawl-engine/internal/domain"
)

// LedgerStats summarizes the ledger for reporting.
type LedgerStats struct {
	TotalPostings    int
	ActivePostings   int
	InactivePostings int
	ByCompany        map[string]int // active counts
	TotalRuns        int
	LastRun          *domain.ScrapeRun
}

func Stats(ctx context.Context, db *sql.DB) (LedgerStats, error) {
	var s LedgerStats

	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM postings;`).Scan(&s.TotalPostings); err != nil {
		return s, err
	}
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM postings WHERE is_active = 1;`).Scan(&s.ActivePostings); err != nil {
		return s, err
	}
	s.InactivePostings = s.TotalPostings - s.ActivePostings

	rows, err := db.QueryContext(ctx, `
SELECT company, COUNT(*)
FROM postings
WHERE is_active = 1
GROUP BY company
ORDER BY COUNT(*) DESC;`)
	if err != nil {
		return s, err
	}
	defer rows.Close()

	s.ByCompany = make(map[string]int)
	for rows.Next() {
		var company string
		var n int
		if err := rows.Scan(&company, &n); err != nil {
			return s, err
		}
		s.ByCompany[company] = n
	}
	if err := rows.Err(); err != nil {
		return s, err
	}

	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scrape_runs;`).Scan(&s.TotalRuns); err != nil {
		return s, err
	}

	last, err := RecentRuns(ctx, db, 20)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return s, err
	}
	for i := range last {
		if last[i].Status == domain.RunStatusCompleted {
			s.LastRun = &last[i]
			break
		}
	}

	return s, nil
}
