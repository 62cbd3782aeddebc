package pattern

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	jobCountRe  = regexp.MustCompile(`(?i)jobs?\s+found|positions?\s+available|openings?`)
	jobDetailRe = regexp.MustCompile(`(?i)JobDetail|FolderDetail`)
)

// looksLikeListing decides whether a fetched page is a job listing page.
// Any single signal is enough: vendor themes vary too much for a strict
// conjunction to survive contact with real sites.
func looksLikeListing(doc *goquery.Document) bool {
	if doc.Find("article").Length() > 0 {
		return true
	}
	if hasClassContaining(doc, "job") {
		return true
	}
	if hasJobDetailLink(doc) {
		return true
	}
	if jobCountRe.MatchString(doc.Text()) {
		return true
	}
	if hasClassContaining(doc, "search") || hasClassContaining(doc, "filter") {
		return true
	}
	return false
}

func hasClassContaining(doc *goquery.Document, substr string) bool {
	found := false
	doc.Find("[class]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		class, _ := sel.Attr("class")
		if strings.Contains(strings.ToLower(class), substr) {
			found = true
			return false
		}
		return true
	})
	return found
}

func hasJobDetailLink(doc *goquery.Document) bool {
	found := false
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if jobDetailRe.MatchString(href) {
			found = true
			return false
		}
		return true
	})
	return found
}
