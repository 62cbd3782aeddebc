package config

import (
	"errors"
	"fmt"
	"strings"
)

func Validate(cfg Config) error {
	var errs []string

	if strings.TrimSpace(cfg.App.DataDir) == "" {
		errs = append(errs, "app.data_dir is required")
	}

	if cfg.Crawl.MaxConcurrentSites <= 0 {
		errs = append(errs, "crawl.max_concurrent_sites must be > 0")
	}
	if cfg.Crawl.MaxConcurrentPages <= 0 {
		errs = append(errs, "crawl.max_concurrent_pages must be > 0")
	}
	if cfg.Crawl.SmartStopPages <= 0 {
		errs = append(errs, "crawl.smart_stop_pages must be > 0")
	}
	if cfg.Crawl.MaxPages <= 0 {
		errs = append(errs, "crawl.max_pages must be > 0")
	}
	if cfg.Crawl.RequestsPerSecond <= 0 {
		errs = append(errs, "crawl.requests_per_second must be > 0")
	}
	if cfg.Crawl.Burst <= 0 {
		errs = append(errs, "crawl.burst must be > 0")
	}
	if cfg.Crawl.SiteTimeoutSeconds <= 0 {
		errs = append(errs, "crawl.site_timeout_seconds must be > 0")
	}
	if cfg.Crawl.PageTimeoutSeconds <= 0 {
		errs = append(errs, "crawl.page_timeout_seconds must be > 0")
	}

	checkThreshold := func(name string, v float64) {
		if v <= 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("dedup.%s must be in (0, 1]", name))
		}
	}
	checkThreshold("title_threshold", cfg.Dedup.TitleThreshold)
	checkThreshold("location_threshold", cfg.Dedup.LocationThreshold)
	checkThreshold("combined_threshold", cfg.Dedup.CombinedThreshold)

	if cfg.Polling.IntervalSeconds <= 0 {
		errs = append(errs, "polling.interval_seconds must be > 0")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}
