package poll

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"careercrawl-engine/internal/crawl"
)

// Status is the poller's last-known state, readable while a run is in
// flight.
type Status struct {
	Running   bool
	LastRunAt string
	LastOkAt  string
	LastNew   int
	LastError string
}

// Poller re-runs incremental crawls on a fixed interval.
type Poller struct {
	crawler  *crawl.Crawler
	sites    []string
	interval time.Duration

	running atomic.Bool
	status  atomic.Value // Status
}

func New(crawler *crawl.Crawler, sites []string, interval time.Duration) *Poller {
	p := &Poller{crawler: crawler, sites: sites, interval: interval}
	p.status.Store(Status{})
	return p
}

func (p *Poller) Status() Status {
	return p.status.Load().(Status)
}

// Run blocks until ctx is cancelled. The first crawl fires immediately,
// then one per interval. A tick that lands while the previous run is
// still going is skipped rather than queued.
func (p *Poller) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	p.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		log.Printf("[poll] previous run still in progress, skipping tick")
		return
	}
	defer p.running.Store(false)

	st := p.Status()
	st.Running = true
	st.LastRunAt = time.Now().Format(time.RFC3339)
	p.status.Store(st)

	stats, err := p.crawler.RunIncremental(ctx, p.sites)

	st = p.Status()
	st.Running = false
	if err != nil {
		st.LastError = err.Error()
		log.Printf("[poll] error: %v", err)
	} else {
		st.LastError = ""
		st.LastOkAt = time.Now().Format(time.RFC3339)
		st.LastNew = stats.New
		log.Printf("[poll] ok run=%d new=%d updated=%d deactivated=%d",
			stats.RunID, stats.New, stats.Updated, stats.Deactivated)
	}
	p.status.Store(st)
}
