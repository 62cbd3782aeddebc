package dedup

import (
	"fmt"
	"sort"
	"strings"

	"careercrawl-engine/internal/domain"
)

const (
	DefaultTitleThreshold    = 0.85
	DefaultLocationThreshold = 0.90
	DefaultCombinedThreshold = 0.80

	titleWeight    = 0.7
	locationWeight = 0.3
)

// Deduplicator detects postings that are the same job under cosmetic
// title/location variation. Duplicates are only ever sought within one
// normalized company, never across companies.
type Deduplicator struct {
	TitleThreshold    float64
	LocationThreshold float64
	CombinedThreshold float64
}

func New() *Deduplicator {
	return &Deduplicator{
		TitleThreshold:    DefaultTitleThreshold,
		LocationThreshold: DefaultLocationThreshold,
		CombinedThreshold: DefaultCombinedThreshold,
	}
}

func NewWithThresholds(title, location, combined float64) *Deduplicator {
	return &Deduplicator{
		TitleThreshold:    title,
		LocationThreshold: location,
		CombinedThreshold: combined,
	}
}

// Breakdown carries the component scores of one pairwise comparison.
type Breakdown struct {
	Title1          string  `json:"title1"`
	Title2          string  `json:"title2"`
	Location1       string  `json:"location1"`
	Location2       string  `json:"location2"`
	TitleSimilarity float64 `json:"titleSimilarity"`
	TermsSimilarity float64 `json:"termsSimilarity"`
	TitleScore      float64 `json:"titleScore"`
	LocationScore   float64 `json:"locationScore"`
	CombinedScore   float64 `json:"combinedScore"`
}

// Duplicate is one non-canonical member of a group.
type Duplicate struct {
	Posting   domain.Posting
	Score     float64
	Breakdown Breakdown
}

// Group is one canonical posting plus everything judged to be the same job.
type Group struct {
	Canonical  domain.Posting
	Duplicates []Duplicate
}

// AreSimilar applies the pairwise duplicate test. All three gates must
// pass: a very high title match cannot override a location mismatch
// through the weighted average.
func (d *Deduplicator) AreSimilar(a, b domain.Posting) (bool, float64, Breakdown) {
	if NormalizeCompany(a.Company) != NormalizeCompany(b.Company) {
		return false, 0, Breakdown{}
	}

	title1 := NormalizeTitle(a.Title)
	title2 := NormalizeTitle(b.Title)
	loc1 := NormalizeLocation(a.Location)
	loc2 := NormalizeLocation(b.Location)

	titleSim := sequenceSimilarity(title1, title2)
	termsSim := jaccard(KeyTerms(title1), KeyTerms(title2))

	// Max of the two catches both spelling variation (sequence) and
	// abbreviation-driven rewrites (term overlap).
	titleScore := titleSim
	if termsSim > titleScore {
		titleScore = termsSim
	}

	locationScore := sequenceSimilarity(loc1, loc2)
	if loc1 == "Remote" && loc2 == "Remote" {
		locationScore = 1.0
	}

	combined := titleWeight*titleScore + locationWeight*locationScore

	isDup := titleScore >= d.TitleThreshold &&
		locationScore >= d.LocationThreshold &&
		combined >= d.CombinedThreshold

	return isDup, combined, Breakdown{
		Title1:          title1,
		Title2:          title2,
		Location1:       loc1,
		Location2:       loc2,
		TitleSimilarity: titleSim,
		TermsSimilarity: termsSim,
		TitleScore:      titleScore,
		LocationScore:   locationScore,
		CombinedScore:   combined,
	}
}

// FindDuplicates groups postings into duplicate clusters keyed by the
// canonical posting's URL. Clustering is single-pass greedy: within a
// company, in input order, the first member of a similar pair becomes the
// canonical and later postings are only ever compared against canonicals.
func (d *Deduplicator) FindDuplicates(postings []domain.Posting) map[string]Group {
	byCompany := make(map[string][]domain.Posting)
	var companies []string
	for _, p := range postings {
		key := NormalizeCompany(p.Company)
		if _, ok := byCompany[key]; !ok {
			companies = append(companies, key)
		}
		byCompany[key] = append(byCompany[key], p)
	}

	groups := make(map[string]Group)
	processed := make(map[string]struct{})

	for _, company := range companies {
		members := byCompany[company]
		if len(members) < 2 {
			continue
		}

		for i, canon := range members {
			if _, done := processed[canon.URL]; done {
				continue
			}

			for _, other := range members[i+1:] {
				if _, done := processed[other.URL]; done {
					continue
				}

				dup, score, breakdown := d.AreSimilar(canon, other)
				if !dup {
					continue
				}

				g, ok := groups[canon.URL]
				if !ok {
					g = Group{Canonical: canon}
				}
				g.Duplicates = append(g.Duplicates, Duplicate{
					Posting:   other,
					Score:     score,
					Breakdown: breakdown,
				})
				groups[canon.URL] = g

				processed[other.URL] = struct{}{}
			}
		}
	}

	return groups
}

// Dedupe splits postings into unique postings and removed duplicates,
// keeping each group's canonical.
func (d *Deduplicator) Dedupe(postings []domain.Posting) (unique, removed []domain.Posting) {
	drop := make(map[string]struct{})
	for _, g := range d.FindDuplicates(postings) {
		for _, dup := range g.Duplicates {
			drop[dup.Posting.URL] = struct{}{}
		}
	}

	for _, p := range postings {
		if _, gone := drop[p.URL]; gone {
			removed = append(removed, p)
		} else {
			unique = append(unique, p)
		}
	}
	return unique, removed
}

// CompanyStats is the per-company slice of Stats.
type CompanyStats struct {
	Total      int `json:"total"`
	Duplicates int `json:"duplicates"`
}

type Stats struct {
	TotalJobs       int                     `json:"totalJobs"`
	UniqueJobs      int                     `json:"uniqueJobs"`
	DuplicateGroups int                     `json:"duplicateGroups"`
	TotalDuplicates int                     `json:"totalDuplicates"`
	DuplicateRate   float64                 `json:"duplicateRate"`
	PerCompany      map[string]CompanyStats `json:"perCompany"`
}

func (d *Deduplicator) Stats(postings []domain.Posting) Stats {
	groups := d.FindDuplicates(postings)

	s := Stats{
		TotalJobs:  len(postings),
		PerCompany: make(map[string]CompanyStats),
	}

	for _, p := range postings {
		company := p.Company
		if company == "" {
			company = "Unknown"
		}
		cs := s.PerCompany[company]
		cs.Total++
		s.PerCompany[company] = cs
	}

	for _, g := range groups {
		s.DuplicateGroups++
		s.TotalDuplicates += len(g.Duplicates)

		company := g.Canonical.Company
		if company == "" {
			company = "Unknown"
		}
		cs := s.PerCompany[company]
		cs.Duplicates += len(g.Duplicates)
		s.PerCompany[company] = cs
	}

	s.UniqueJobs = s.TotalJobs - s.TotalDuplicates
	if s.TotalJobs > 0 {
		s.DuplicateRate = float64(s.TotalDuplicates) / float64(s.TotalJobs)
	}
	return s
}

// Report renders a human-readable duplicate report.
func (d *Deduplicator) Report(postings []domain.Posting) string {
	groups := d.FindDuplicates(postings)
	if len(groups) == 0 {
		return "No duplicates found."
	}

	urls := make([]string, 0, len(groups))
	total := 0
	for u, g := range groups {
		urls = append(urls, u)
		total += len(g.Duplicates)
	}
	sort.Strings(urls)

	var b strings.Builder
	rule := strings.Repeat("=", 80)

	fmt.Fprintf(&b, "%s\nDUPLICATE JOBS REPORT\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "Found %d duplicate groups (%d duplicate jobs)\n\n", len(groups), total)

	for i, u := range urls {
		g := groups[u]
		fmt.Fprintf(&b, "## Group %d: %d duplicate(s)\n\n", i+1, len(g.Duplicates))
		fmt.Fprintf(&b, "Canonical: %s\n", g.Canonical.Title)
		fmt.Fprintf(&b, "  Company:  %s\n", g.Canonical.Company)
		fmt.Fprintf(&b, "  Location: %s\n", g.Canonical.Location)
		fmt.Fprintf(&b, "  URL:      %s\n\n", g.Canonical.URL)

		for j, dup := range g.Duplicates {
			fmt.Fprintf(&b, "  %d. %s\n", j+1, dup.Posting.Title)
			fmt.Fprintf(&b, "     Location:   %s\n", dup.Posting.Location)
			fmt.Fprintf(&b, "     Similarity: %.1f%%\n", dup.Score*100)
			fmt.Fprintf(&b, "     URL:        %s\n", dup.Posting.URL)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s\nSummary: %d groups, %d duplicates\n%s\n", rule, len(groups), total, rule)
	return b.String()
}
