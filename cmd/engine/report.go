package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"careercrawl-engine/internal/crawl"
	"careercrawl-engine/internal/dedup"
	"careercrawl-engine/internal/store"
)

func runReport(stats *crawl.RunStats) string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)

	fmt.Fprintf(&b, "%s\nCRAWL RUN %d\n%s\n", rule, stats.RunID, rule)
	fmt.Fprintf(&b, "Sites scraped:    %d (%d failed)\n", stats.Scraped, stats.Failed)
	fmt.Fprintf(&b, "Jobs found:       %d\n", stats.Found)
	fmt.Fprintf(&b, "  new:            %d\n", stats.New)
	fmt.Fprintf(&b, "  updated:        %d\n", stats.Updated)
	fmt.Fprintf(&b, "  unchanged:      %d\n", stats.Unchanged)
	fmt.Fprintf(&b, "Jobs deactivated: %d\n\n", stats.Deactivated)

	for _, r := range stats.Sites {
		if r.Err != nil {
			fmt.Fprintf(&b, "  FAIL %-30s %v\n", r.BaseURL, r.Err)
			continue
		}
		note := ""
		if r.StoppedEarly {
			note = " (stopped early)"
		}
		fmt.Fprintf(&b, "  ok   %-30s %d pages, %d found, %d new%s\n",
			r.Company, r.Pages, r.Found, r.New, note)
	}
	b.WriteString(rule + "\n")
	return b.String()
}

func printDedupReport(ctx context.Context, db *store.DB, dd *dedup.Deduplicator) error {
	postings, err := store.ListActive(ctx, db.Pool, "")
	if err != nil {
		return err
	}

	s := dd.Stats(postings)
	fmt.Printf("\nDedup: %d jobs, %d unique, %d duplicates across %d groups (%.1f%%)\n",
		s.TotalJobs, s.UniqueJobs, s.TotalDuplicates, s.DuplicateGroups, s.DuplicateRate*100)
	if s.TotalDuplicates > 0 {
		fmt.Println()
		fmt.Print(dd.Report(postings))
	}
	return nil
}

func printStats(ctx context.Context, db *store.DB) error {
	s, err := store.Stats(ctx, db.Pool)
	if err != nil {
		return err
	}

	rule := strings.Repeat("=", 60)
	fmt.Printf("%s\nLEDGER\n%s\n", rule, rule)
	fmt.Printf("Postings: %d total, %d active, %d inactive\n",
		s.TotalPostings, s.ActivePostings, s.InactivePostings)
	fmt.Printf("Runs:     %d\n", s.TotalRuns)
	if s.LastRun != nil {
		r := s.LastRun
		completed := "-"
		if r.CompletedAt != nil {
			completed = r.CompletedAt.Format(time.RFC3339)
		}
		fmt.Printf("Last run: #%d %s, started %s, completed %s\n",
			r.ID, r.Status, r.StartedAt.Format(time.RFC3339), completed)
		fmt.Printf("          %d sites, %d found, %d new, %d updated, %d deactivated\n",
			r.SitesScraped, r.JobsFound, r.JobsNew, r.JobsUpdated, r.JobsDeactivated)
	}

	if len(s.ByCompany) > 0 {
		companies := make([]string, 0, len(s.ByCompany))
		for c := range s.ByCompany {
			companies = append(companies, c)
		}
		sort.Slice(companies, func(i, j int) bool {
			if s.ByCompany[companies[i]] != s.ByCompany[companies[j]] {
				return s.ByCompany[companies[i]] > s.ByCompany[companies[j]]
			}
			return companies[i] < companies[j]
		})
		fmt.Println("\nActive by company:")
		for _, c := range companies {
			fmt.Printf("  %-30s %d\n", c, s.ByCompany[c])
		}
	}
	fmt.Println(rule)
	return nil
}
