package domain

import "time"

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// ScrapeRun is the immutable audit record of one crawl execution.
// A run that never completes (process crash) stays in "running".
type ScrapeRun struct {
	ID              int64      `json:"id"`
	StartedAt       time.Time  `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	SitesScraped    int        `json:"sitesScraped"`
	JobsFound       int        `json:"jobsFound"`
	JobsNew         int        `json:"jobsNew"`
	JobsUpdated     int        `json:"jobsUpdated"`
	JobsDeactivated int        `json:"jobsDeactivated"`
	Status          string     `json:"status"`
	ErrorMessage    string     `json:"errorMessage,omitempty"`
}
