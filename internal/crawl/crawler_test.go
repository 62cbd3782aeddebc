package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careercrawl-engine/internal/domain"
	"careercrawl-engine/internal/pattern"
	"careercrawl-engine/internal/store"
)

func testConfig() Config {
	return Config{
		MaxConcurrentSites: 2,
		MaxConcurrentPages: 3,
		SmartStopPages:     3,
		MaxPages:           10,
		RequestsPerSecond:  500,
		Burst:              50,
		SiteTimeoutSeconds: 30,
		PageTimeoutSeconds: 10,
	}
}

func testDB(t *testing.T) *store.DB {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, store.Migrate(db.Pool))
	return db
}

// fakeSite serves a paginated listing under /SearchJobs. jobsPerPage maps
// page number to how many postings that page carries; missing pages are
// empty.
func fakeSite(jobsPerPage map[int]int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/SearchJobs" {
			w.Write([]byte(`<html><body><h1>About us</h1></body></html>`))
			return
		}
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			page, _ = strconv.Atoi(p)
		}

		fmt.Fprint(w, `<html><body><div class="job-search">`)
		for i := 0; i < jobsPerPage[page]; i++ {
			id := page*100 + i
			fmt.Fprintf(w, `<article>
<a href="/careers/JobDetail/%d">Engineer %d</a>
<span class="job-location">Austin, Texas</span>
</article>`, id, id)
		}
		fmt.Fprint(w, `</div></body></html>`)
	}))
}

func jobURL(srv *httptest.Server, page, i int) string {
	return fmt.Sprintf("%s/careers/JobDetail/%d", srv.URL, page*100+i)
}

func newTestCrawler(t *testing.T, db *store.DB, srv *httptest.Server, cfg Config) *Crawler {
	t.Helper()
	detector := pattern.NewDetector(pattern.NewMemoryStore(), srv.Client())
	return New(db, detector, cfg)
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "https://x.example/SearchJobs", pageURL("https://x.example/SearchJobs", 1))
	assert.Equal(t, "https://x.example/SearchJobs?page=2", pageURL("https://x.example/SearchJobs", 2))
	assert.Equal(t, "https://x.example/jobs?dept=eng&page=3", pageURL("https://x.example/jobs?dept=eng", 3))
}

func TestSmartStopBoundary(t *testing.T) {
	// Pages 1-2 carry new postings, pages 3+ only known ones. With a
	// threshold of 3 the crawl must stop right after page 5.
	srv := fakeSite(map[int]int{1: 2, 2: 2, 3: 2, 4: 2, 5: 2, 6: 2, 7: 2, 8: 2})
	defer srv.Close()

	active := make(map[string]struct{})
	for page := 3; page <= 8; page++ {
		for i := 0; i < 2; i++ {
			active[jobURL(srv, page, i)] = struct{}{}
		}
	}

	c := newTestCrawler(t, nil, srv, testConfig())
	postings, pages, stopped := c.collectPostings(context.Background(), srv.URL+"/SearchJobs", active)

	assert.True(t, stopped)
	assert.Equal(t, 5, pages)
	assert.Len(t, postings, 10, "postings up to and including the stop page are kept")
}

func TestSmartStopCounterResets(t *testing.T) {
	// Same shape, but page 4 contributes a new posting: the crawl must
	// not stop at page 5.
	srv := fakeSite(map[int]int{1: 2, 2: 2, 3: 2, 4: 2, 5: 2, 6: 2, 7: 2, 8: 2})
	defer srv.Close()

	active := make(map[string]struct{})
	for page := 3; page <= 8; page++ {
		for i := 0; i < 2; i++ {
			if page == 4 && i == 0 {
				continue
			}
			active[jobURL(srv, page, i)] = struct{}{}
		}
	}

	c := newTestCrawler(t, nil, srv, testConfig())
	_, pages, stopped := c.collectPostings(context.Background(), srv.URL+"/SearchJobs", active)

	assert.True(t, stopped)
	assert.Equal(t, 7, pages, "counter restarts at page 4, so pages 5-7 trip it")
}

func TestNaturalEndOfPagination(t *testing.T) {
	srv := fakeSite(map[int]int{1: 3, 2: 3})
	defer srv.Close()

	c := newTestCrawler(t, nil, srv, testConfig())
	postings, _, stopped := c.collectPostings(context.Background(), srv.URL+"/SearchJobs", nil)

	assert.False(t, stopped)
	assert.Len(t, postings, 6)
}

func TestExtractPostingsSkipsChrome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<article><a href="/nav/About">About</a></article>
<article>
<a href="/careers/JobDetail/7">Staff Engineer</a>
<span class="job-location">Remote</span>
<time datetime="2026-08-01">Aug 1</time>
</article>
</body></html>`)
	}))
	defer srv.Close()

	c := newTestCrawler(t, nil, srv, testConfig())
	res := c.fetchPage(context.Background(), srv.URL+"/SearchJobs", 1, c.cfg.PageTimeout())

	require.Equal(t, pageOK, res.state)
	require.Len(t, res.postings, 1)
	p := res.postings[0]
	assert.Equal(t, srv.URL+"/careers/JobDetail/7", p.URL)
	assert.Equal(t, "Staff Engineer", p.Title)
	assert.Equal(t, "Remote", p.Location)
	assert.Equal(t, "7", p.ExternalID)
	assert.Equal(t, "127", p.Company)
	assert.Equal(t, "2026-08-01", p.Metadata["date_posted"])
}

func TestRunIncremental(t *testing.T) {
	srv := fakeSite(map[int]int{1: 3, 2: 3})
	defer srv.Close()

	db := testDB(t)
	c := newTestCrawler(t, db, srv, testConfig())
	ctx := context.Background()

	stats, err := c.RunIncremental(ctx, []string{srv.URL})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Scraped)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 6, stats.Found)
	assert.Equal(t, 6, stats.New)
	assert.EqualValues(t, 0, stats.Deactivated)

	active, err := store.ActiveURLs(ctx, db.Pool, "127")
	require.NoError(t, err)
	assert.Len(t, active, 6)

	runs, err := store.RecentRuns(ctx, db.Pool, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, 6, runs[0].JobsNew)

	// Second pass over an unchanged site: everything is known.
	stats, err = c.RunIncremental(ctx, []string{srv.URL})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.New)
	assert.Equal(t, 6, stats.Unchanged)
	assert.EqualValues(t, 0, stats.Deactivated)
}

func TestRunIncrementalDeactivatesVanished(t *testing.T) {
	jobs := map[int]int{1: 3, 2: 3}
	srv := fakeSite(jobs)
	defer srv.Close()

	db := testDB(t)
	ctx := context.Background()
	c := newTestCrawler(t, db, srv, testConfig())

	_, err := c.RunIncremental(ctx, []string{srv.URL})
	require.NoError(t, err)

	// The listing shrinks to page 1 only: page 2's postings vanish.
	delete(jobs, 2)

	stats, err := c.RunIncremental(ctx, []string{srv.URL})
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Deactivated)

	active, err := store.ActiveURLs(ctx, db.Pool, "127")
	require.NoError(t, err)
	assert.Len(t, active, 3)
	for i := 0; i < 3; i++ {
		assert.Contains(t, active, jobURL(srv, 1, i))
	}
}

func TestRunIncrementalFailureIsolated(t *testing.T) {
	good := fakeSite(map[int]int{1: 2})
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer bad.Close()

	db := testDB(t)
	c := newTestCrawler(t, db, good, testConfig())

	stats, err := c.RunIncremental(context.Background(), []string{bad.URL, good.URL})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Scraped)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.New)

	require.Len(t, stats.Sites, 2)
	assert.Error(t, stats.Sites[0].Err, "results stay in input order")
	assert.NoError(t, stats.Sites[1].Err)
}

func TestRunIncrementalAllFailed(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer bad.Close()

	db := testDB(t)
	c := newTestCrawler(t, db, bad, testConfig())

	stats, err := c.RunIncremental(context.Background(), []string{bad.URL})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	runs, err := store.RecentRuns(context.Background(), db.Pool, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunStatusFailed, runs[0].Status)
	assert.Equal(t, "all sites failed", runs[0].ErrorMessage)
}

func TestEmptyListingSkipsSweep(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	jobs := map[int]int{1: 2}
	srv := fakeSite(jobs)
	defer srv.Close()

	c := newTestCrawler(t, db, srv, testConfig())
	_, err := c.RunIncremental(ctx, []string{srv.URL})
	require.NoError(t, err)

	// The listing page still exists but lists nothing. The ledger must
	// not be swept on an empty result.
	delete(jobs, 1)

	stats, err := c.RunIncremental(ctx, []string{srv.URL})
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.Deactivated)

	active, err := store.ActiveURLs(ctx, db.Pool, "127")
	require.NoError(t, err)
	assert.Len(t, active, 2)
}
