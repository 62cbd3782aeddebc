package crawl

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"careercrawl-engine/internal/config"
	"careercrawl-engine/internal/domain"
	"careercrawl-engine/internal/pattern"
	"careercrawl-engine/internal/store"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

// Config bounds one incremental crawl run.
type Config struct {
	MaxConcurrentSites int
	MaxConcurrentPages int
	SmartStopPages     int
	MaxPages           int
	RequestsPerSecond  float64
	Burst              int
	SiteTimeoutSeconds int
	PageTimeoutSeconds int
	ForceDetect        bool
}

func ConfigFrom(c config.Config) Config {
	return Config{
		MaxConcurrentSites: c.Crawl.MaxConcurrentSites,
		MaxConcurrentPages: c.Crawl.MaxConcurrentPages,
		SmartStopPages:     c.Crawl.SmartStopPages,
		MaxPages:           c.Crawl.MaxPages,
		RequestsPerSecond:  c.Crawl.RequestsPerSecond,
		Burst:              c.Crawl.Burst,
		SiteTimeoutSeconds: c.Crawl.SiteTimeoutSeconds,
		PageTimeoutSeconds: c.Crawl.PageTimeoutSeconds,
	}
}

func (c Config) SiteTimeout() time.Duration { return time.Duration(c.SiteTimeoutSeconds) * time.Second }
func (c Config) PageTimeout() time.Duration { return time.Duration(c.PageTimeoutSeconds) * time.Second }

func (c Config) validate() error {
	if c.MaxConcurrentSites < 1 {
		return fmt.Errorf("max concurrent sites must be >= 1, got %d", c.MaxConcurrentSites)
	}
	if c.MaxConcurrentPages < 1 {
		return fmt.Errorf("max concurrent pages must be >= 1, got %d", c.MaxConcurrentPages)
	}
	if c.SmartStopPages < 1 {
		return fmt.Errorf("smart stop pages must be >= 1, got %d", c.SmartStopPages)
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("max pages must be >= 1, got %d", c.MaxPages)
	}
	return nil
}

// Crawler runs incremental crawls of career sites against the posting
// ledger.
type Crawler struct {
	db       *store.DB
	detector *pattern.Detector
	hc       *http.Client
	limiter  *hostLimiter
	cfg      Config
}

func New(db *store.DB, detector *pattern.Detector, cfg Config) *Crawler {
	hc := &http.Client{
		Timeout: cfg.PageTimeout(),
		Transport: &http.Transport{
			MaxConnsPerHost: cfg.MaxConcurrentPages,
		},
	}
	return &Crawler{
		db:       db,
		detector: detector,
		hc:       hc,
		limiter:  newHostLimiter(cfg.RequestsPerSecond, cfg.Burst),
		cfg:      cfg,
	}
}

// RunIncremental crawls every site, reconciles the ledger, and records a
// scrape run. Per-site failures are isolated: one broken site never fails
// the run, it just shows up in its SiteResult.
func (c *Crawler) RunIncremental(ctx context.Context, sites []string) (*RunStats, error) {
	if err := c.cfg.validate(); err != nil {
		return nil, err
	}
	if len(sites) == 0 {
		return nil, fmt.Errorf("no sites to crawl")
	}

	runID, err := store.StartRun(ctx, c.db.Pool)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	log.Printf("[crawl] run %d: %d sites, %d concurrent", runID, len(sites), c.cfg.MaxConcurrentSites)

	sem := semaphore.NewWeighted(int64(c.cfg.MaxConcurrentSites))
	results := make([]SiteResult, len(sites))

	g, gctx := errgroup.WithContext(ctx)
	for i, site := range sites {
		i, site := i, site
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				results[i] = SiteResult{BaseURL: site, Err: err}
				return nil
			}
			defer sem.Release(1)
			results[i] = c.scrapeSite(gctx, site)
			if results[i].Err != nil {
				log.Printf("[crawl] site %s failed: %v", site, results[i].Err)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats := &RunStats{RunID: runID, Sites: results}
	for _, r := range results {
		stats.add(r)
	}

	status := domain.RunStatusCompleted
	var errMsg string
	if stats.Failed == len(sites) {
		status = domain.RunStatusFailed
		errMsg = "all sites failed"
	}
	if err := store.CompleteRun(ctx, c.db.Pool, runID, stats.Totals(), status, errMsg); err != nil {
		return stats, fmt.Errorf("complete run %d: %w", runID, err)
	}
	return stats, nil
}
