package crawl

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"

	"careercrawl-engine/internal/domain"
	"careercrawl-engine/internal/pattern"
	"careercrawl-engine/internal/store"
)

// SiteResult is the outcome of one site's incremental crawl.
type SiteResult struct {
	BaseURL      string
	Company      string
	SearchURL    string
	Pages        int
	Found        int
	New          int
	Updated      int
	Unchanged    int
	Deactivated  int64
	StoppedEarly bool
	Err          error
}

func (c *Crawler) scrapeSite(ctx context.Context, baseURL string) (res SiteResult) {
	res.BaseURL = baseURL

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic scraping %s: %v", baseURL, r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SiteTimeout())
	defer cancel()

	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		res.Err = fmt.Errorf("invalid site url %q", baseURL)
		return res
	}
	res.Company = companyFromURL(u)

	suffix, err := c.detector.Detect(ctx, baseURL, c.cfg.ForceDetect)
	if err != nil {
		if errors.Is(err, pattern.ErrNoPattern) {
			res.Err = fmt.Errorf("no compatible listing pattern for %s", baseURL)
		} else {
			res.Err = fmt.Errorf("detect pattern for %s: %w", baseURL, err)
		}
		return res
	}
	res.SearchURL = strings.TrimRight(baseURL, "/") + suffix

	active, err := store.ActiveURLs(ctx, c.db.Pool, res.Company)
	if err != nil {
		res.Err = fmt.Errorf("load active urls for %s: %w", res.Company, err)
		return res
	}

	postings, pages, stopped := c.collectPostings(ctx, res.SearchURL, active)
	res.Pages = pages
	res.StoppedEarly = stopped
	res.Found = len(postings)

	seen := make([]string, 0, len(postings))
	for _, p := range postings {
		outcome, _, err := store.Upsert(ctx, c.db.Pool, p)
		if err != nil {
			res.Err = fmt.Errorf("upsert %s: %w", p.URL, err)
			return res
		}
		seen = append(seen, p.URL)
		switch outcome {
		case domain.OutcomeNew:
			res.New++
		case domain.OutcomeUpdated:
			res.Updated++
		default:
			res.Unchanged++
		}
	}

	// Only sweep for vanished postings when the crawl actually saw jobs.
	// An empty result more often means a broken page than a company with
	// zero openings, and deactivating everything on it would be wrong.
	if len(postings) > 0 {
		gone, err := store.DeactivateMissing(ctx, c.db.Pool, res.Company, seen)
		if err != nil {
			res.Err = fmt.Errorf("deactivate missing for %s: %w", res.Company, err)
			return res
		}
		res.Deactivated = gone
	}

	log.Printf("[crawl] %s: %d pages, %d found, %d new, %d updated, %d deactivated (stopped early: %v)",
		res.Company, res.Pages, res.Found, res.New, res.Updated, res.Deactivated, res.StoppedEarly)
	return res
}

// collectPostings walks the paginated listing. Page 1 is fetched alone to
// confirm the listing works, then pages come in concurrent batches.
// Bookkeeping stays in page order: a batch may fetch pages past the stop
// point, but their postings are discarded.
func (c *Crawler) collectPostings(ctx context.Context, searchURL string, active map[string]struct{}) ([]domain.RawPosting, int, bool) {
	var (
		postings  []domain.RawPosting
		seenCrawl = make(map[string]struct{})
		knownRun  int
	)

	// countNew tallies a page into the smart-stop counter and returns
	// whether the crawl should continue.
	countNew := func(page pageResult) bool {
		fresh := 0
		for _, p := range page.postings {
			if _, dup := seenCrawl[p.URL]; dup {
				continue
			}
			seenCrawl[p.URL] = struct{}{}
			postings = append(postings, p)
			if _, known := active[p.URL]; !known {
				fresh++
			}
		}
		if fresh == 0 {
			knownRun++
		} else {
			knownRun = 0
		}
		return knownRun < c.cfg.SmartStopPages
	}

	first := c.fetchPage(ctx, searchURL, 1, c.cfg.PageTimeout())
	if first.state != pageOK {
		if first.err != nil {
			log.Printf("[crawl] page 1 of %s: %v", searchURL, first.err)
		}
		return nil, 1, false
	}
	pages := 1
	if !countNew(first) {
		return postings, pages, true
	}

	batchSize := c.cfg.MaxConcurrentPages
	for next := 2; next <= c.cfg.MaxPages; {
		end := next + batchSize - 1
		if end > c.cfg.MaxPages {
			end = c.cfg.MaxPages
		}

		results := make([]pageResult, end-next+1)
		var wg sync.WaitGroup
		for i := range results {
			wg.Add(1)
			go func(i, page int) {
				defer wg.Done()
				results[i] = c.fetchPage(ctx, searchURL, page, c.cfg.PageTimeout())
			}(i, next+i)
		}
		wg.Wait()

		// A batch of nothing but empty or failed pages is the natural end
		// of pagination.
		allEmpty := true
		for _, r := range results {
			if r.err != nil {
				log.Printf("[crawl] page %d of %s: %v", r.page, searchURL, r.err)
			}
			if r.state == pageOK {
				allEmpty = false
			}
		}
		if allEmpty {
			return postings, pages + len(results), false
		}

		// Empty pages inside a live batch still count toward the
		// consecutive-known run.
		for _, r := range results {
			pages++
			if !countNew(r) {
				return postings, pages, true
			}
		}
		next = end + 1
	}

	return postings, pages, false
}
