package crawl

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"careercrawl-engine/internal/domain"
)

type pageState int

const (
	pageOK pageState = iota
	pageEmpty
	pageErr
)

type pageResult struct {
	page     int
	state    pageState
	postings []domain.RawPosting
	err      error
}

// pageURL builds the URL for a given page of the listing. Page 1 is the
// bare search URL; later pages append a page query parameter.
func pageURL(searchURL string, page int) string {
	if page <= 1 {
		return searchURL
	}
	sep := "?"
	if strings.Contains(searchURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", searchURL, sep, page)
}

func (c *Crawler) fetchPage(ctx context.Context, searchURL string, page int, timeout time.Duration) pageResult {
	res := pageResult{page: page}

	u := pageURL(searchURL, page)
	if err := c.limiter.wait(ctx, u); err != nil {
		res.state = pageErr
		res.err = err
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		res.state = pageErr
		res.err = fmt.Errorf("build request: %w", err)
		return res
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		res.state = pageErr
		res.err = fmt.Errorf("fetch page %d: %w", page, err)
		return res
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		res.state = pageErr
		res.err = fmt.Errorf("fetch page %d: status %d", page, resp.StatusCode)
		return res
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		res.state = pageErr
		res.err = fmt.Errorf("parse page %d: %w", page, err)
		return res
	}

	res.postings = extractPostings(doc, u)
	if len(res.postings) == 0 {
		res.state = pageEmpty
		return res
	}
	res.state = pageOK
	return res
}
