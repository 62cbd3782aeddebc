package crawl

import "careercrawl-engine/internal/store"

// RunStats aggregates a run's per-site results.
type RunStats struct {
	RunID       int64
	Sites       []SiteResult
	Scraped     int
	Failed      int
	Found       int
	New         int
	Updated     int
	Unchanged   int
	Deactivated int64
}

func (s *RunStats) add(r SiteResult) {
	if r.Err != nil {
		s.Failed++
		return
	}
	s.Scraped++
	s.Found += r.Found
	s.New += r.New
	s.Updated += r.Updated
	s.Unchanged += r.Unchanged
	s.Deactivated += r.Deactivated
}

func (s *RunStats) Totals() store.RunTotals {
	return store.RunTotals{
		SitesScraped:    s.Scraped,
		JobsFound:       s.Found,
		JobsNew:         s.New,
		JobsUpdated:     s.Updated,
		JobsDeactivated: int(s.Deactivated),
	}
}
