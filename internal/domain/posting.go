package domain

import "time"

// RawPosting is what the page extractor yields for one listing card,
// before the ledger has seen it.
type RawPosting struct {
	URL        string
	Company    string // host-derived slug, e.g. "bloomberg"
	Title      string
	Location   string // "" when the card carries no location
	ExternalID string // vendor job id, "" when absent
	Metadata   map[string]string
}

// Posting is one job listing as tracked by the ledger, identified by URL.
type Posting struct {
	ID          int64             `json:"id"`
	URL         string            `json:"url"`
	Company     string            `json:"company"`
	Title       string            `json:"title"`
	Location    string            `json:"location,omitempty"`
	ExternalID  string            `json:"externalId,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	FirstSeen   time.Time         `json:"firstSeen"`
	LastSeen    time.Time         `json:"lastSeen"`
	ScrapeCount int               `json:"scrapeCount"`
	IsActive    bool              `json:"isActive"`
}

// UpsertOutcome reports how the ledger handled one observation.
type UpsertOutcome string

const (
	OutcomeNew       UpsertOutcome = "new"
	OutcomeUpdated   UpsertOutcome = "updated"
	OutcomeUnchanged UpsertOutcome = "unchanged"
)
