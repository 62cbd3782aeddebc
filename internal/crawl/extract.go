package crawl

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"careercrawl-engine/internal/domain"
)

var (
	jobLinkRe    = regexp.MustCompile(`(?i)JobDetail|FolderDetail`)
	trailingIDRe = regexp.MustCompile(`/(\d+)/?$`)
)

// extractPostings pulls job postings out of a listing page. Postings are
// article elements carrying a link to a job detail page; anything without
// such a link is navigation chrome and skipped.
func extractPostings(doc *goquery.Document, pageURL string) []domain.RawPosting {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var out []domain.RawPosting
	seen := make(map[string]struct{})

	doc.Find("article").Each(func(_ int, art *goquery.Selection) {
		p, ok := postingFromArticle(art, base)
		if !ok {
			return
		}
		if _, dup := seen[p.URL]; dup {
			return
		}
		seen[p.URL] = struct{}{}
		out = append(out, p)
	})
	return out
}

func postingFromArticle(art *goquery.Selection, base *url.URL) (domain.RawPosting, bool) {
	var p domain.RawPosting

	link := art.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		return jobLinkRe.MatchString(href)
	}).First()
	if link.Length() == 0 {
		return p, false
	}

	href, _ := link.Attr("href")
	ref, err := url.Parse(href)
	if err != nil {
		return p, false
	}
	abs := base.ResolveReference(ref)

	p.URL = abs.String()
	p.Company = companyFromURL(abs)
	p.Title = cleanText(link.Text())
	if p.Title == "" {
		p.Title = cleanText(art.Find("h2, h3").First().Text())
	}
	if p.Title == "" {
		return p, false
	}

	if m := trailingIDRe.FindStringSubmatch(abs.Path); m != nil {
		p.ExternalID = m[1]
	}

	p.Location = cleanText(art.Find(`[class*="location"]`).First().Text())

	if t := art.Find("time").First(); t.Length() > 0 {
		posted := cleanText(t.Text())
		if dt, ok := t.Attr("datetime"); ok && dt != "" {
			posted = dt
		}
		if posted != "" {
			p.Metadata = map[string]string{"date_posted": posted}
		}
	}

	return p, true
}

// companyFromURL derives a company key from the first host label, e.g.
// careers-acme.example.com becomes "careers-acme".
func companyFromURL(u *url.URL) string {
	host := u.Hostname()
	if i := strings.IndexByte(host, '.'); i > 0 {
		return host[:i]
	}
	return host
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
