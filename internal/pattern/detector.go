package pattern

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoPattern means no candidate suffix produced a listing page.
var ErrNoPattern = errors.New("no compatible listing pattern found")

// Candidates are the known listing-path suffixes, most common first.
// The empty suffix means the base URL itself is the listing page.
var Candidates = []string{
	"/SearchJobs",
	"/JobSearch",
	"/FolderDetail",
	"/JobList",
	"/Opportunities",
	"",
}

const probeTimeout = 10 * time.Second

// Detector resolves the listing-path suffix for a site, caching results
// through an injected Store and re-verifying cached entries on every use.
type Detector struct {
	store      Store
	hc         *http.Client
	candidates []string
	userAgent  string
}

func NewDetector(store Store, hc *http.Client) *Detector {
	if hc == nil {
		hc = &http.Client{Timeout: probeTimeout}
	}
	return &Detector{
		store:      store,
		hc:         hc,
		candidates: Candidates,
		userAgent:  "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	}
}

// Detect returns the listing suffix for baseURL. A cached suffix is
// re-probed first; when it no longer yields a listing page (or on a cache
// miss, or when force is set) every candidate is probed in order and the
// winner persisted. Probe failures count as "candidate failed", never as a
// detection error: only exhausting all candidates yields ErrNoPattern.
func (d *Detector) Detect(ctx context.Context, baseURL string, force bool) (string, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")

	if !force {
		suffix, ok, err := d.store.Get(ctx, baseURL)
		if err != nil {
			log.Printf("[pattern] cache read failed for %s: %v", baseURL, err)
		} else if ok {
			if d.probe(ctx, baseURL+suffix) {
				return suffix, nil
			}
			log.Printf("[pattern] cached suffix %q stale for %s, re-detecting", suffix, baseURL)
		}
	}

	for _, cand := range d.candidates {
		if d.probe(ctx, baseURL+cand) {
			if err := d.store.Put(ctx, baseURL, cand); err != nil {
				log.Printf("[pattern] cache write failed for %s: %v", baseURL, err)
			}
			return cand, nil
		}
	}

	return "", ErrNoPattern
}

// Invalidate drops the cached suffix for one site.
func (d *Detector) Invalidate(ctx context.Context, baseURL string) error {
	return d.store.Delete(ctx, strings.TrimRight(strings.TrimSpace(baseURL), "/"))
}

func (d *Detector) probe(ctx context.Context, url string) bool {
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(pctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", d.userAgent)

	res, err := d.hc.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return false
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return false
	}
	return looksLikeListing(doc)
}

// CacheStats summarizes the pattern cache for reporting.
type CacheStats struct {
	Sites       int
	BySuffix    map[string]int
	LastUpdated time.Time
}

func (d *Detector) CacheStats(ctx context.Context) (CacheStats, error) {
	entries, err := d.store.All(ctx)
	if err != nil {
		return CacheStats{}, err
	}

	stats := CacheStats{Sites: len(entries), BySuffix: make(map[string]int)}
	for _, e := range entries {
		name := e.Suffix
		if name == "" {
			name = "(base URL)"
		}
		stats.BySuffix[name]++
		if e.CheckedAt.After(stats.LastUpdated) {
			stats.LastUpdated = e.CheckedAt
		}
	}
	return stats, nil
}
