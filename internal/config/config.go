package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Crawl struct {
		SitesFile          string  `yaml:"sites_file"`
		MaxConcurrentSites int     `yaml:"max_concurrent_sites"`
		MaxConcurrentPages int     `yaml:"max_concurrent_pages"`
		SmartStopPages     int     `yaml:"smart_stop_pages"`
		MaxPages           int     `yaml:"max_pages"`
		RequestsPerSecond  float64 `yaml:"requests_per_second"`
		Burst              int     `yaml:"burst"`
		SiteTimeoutSeconds int     `yaml:"site_timeout_seconds"`
		PageTimeoutSeconds int     `yaml:"page_timeout_seconds"`
	} `yaml:"crawl"`

	Dedup struct {
		TitleThreshold    float64 `yaml:"title_threshold"`
		LocationThreshold float64 `yaml:"location_threshold"`
		CombinedThreshold float64 `yaml:"combined_threshold"`
	} `yaml:"dedup"`

	Polling struct {
		IntervalSeconds int `yaml:"interval_seconds"`
	} `yaml:"polling"`
}

func Default() Config {
	var cfg Config
	cfg.App.DataDir = "data"
	cfg.Crawl.SitesFile = "data/sites.txt"
	cfg.Crawl.MaxConcurrentSites = 3
	cfg.Crawl.MaxConcurrentPages = 3
	cfg.Crawl.SmartStopPages = 5
	cfg.Crawl.MaxPages = 100
	cfg.Crawl.RequestsPerSecond = 2.0
	cfg.Crawl.Burst = 1
	cfg.Crawl.SiteTimeoutSeconds = 300
	cfg.Crawl.PageTimeoutSeconds = 30
	cfg.Dedup.TitleThreshold = 0.85
	cfg.Dedup.LocationThreshold = 0.90
	cfg.Dedup.CombinedThreshold = 0.80
	cfg.Polling.IntervalSeconds = 3600
	return cfg
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
