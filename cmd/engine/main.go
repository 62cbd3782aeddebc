package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"careercrawl-engine/internal/config"
	"careercrawl-engine/internal/crawl"
	"careercrawl-engine/internal/dedup"
	"careercrawl-engine/internal/pattern"
	"careercrawl-engine/internal/poll"
	"careercrawl-engine/internal/store"
)

func main() {
	var (
		dataDir     = flag.String("data", "", "data directory (default $CAREERCRAWL_DATA_DIR or ./data)")
		cfgPath     = flag.String("config", "", "config file (default <data>/config.yml)")
		sitesPath   = flag.String("sites", "", "sites file, one base URL per line (default from config)")
		exportPath  = flag.String("export", "", "export active postings as JSON to this file and exit")
		forceDetect = flag.Bool("force-detect", false, "ignore cached listing patterns and re-probe every site")
		loop        = flag.Bool("loop", false, "keep polling on the configured interval instead of one run")
		dedupOnly   = flag.Bool("dedup-only", false, "skip crawling, just report duplicates in the ledger")
		showStats   = flag.Bool("stats", false, "print ledger and run statistics and exit")
	)
	flag.Parse()

	if *dataDir == "" {
		*dataDir = os.Getenv("CAREERCRAWL_DATA_DIR")
	}
	if *dataDir == "" {
		*dataDir = "data"
	}
	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir. A second instance would race the ledger.
	lock := flock.New(filepath.Join(*dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("data dir lock: %v", err)
	}
	if !locked {
		log.Fatalf("another engine instance is already running against %s", *dataDir)
	}
	defer lock.Unlock()

	if *cfgPath == "" {
		p, err := config.EnsureUserConfig(*dataDir)
		if err != nil {
			log.Fatalf("config bootstrap failed: %v", err)
		}
		*cfgPath = p
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config load failed (%s): %v", *cfgPath, err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config invalid (%s): %v", *cfgPath, err)
	}

	db, err := store.Open(filepath.Join(*dataDir, "careercrawl.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dd := dedup.NewWithThresholds(
		cfg.Dedup.TitleThreshold,
		cfg.Dedup.LocationThreshold,
		cfg.Dedup.CombinedThreshold,
	)

	switch {
	case *showStats:
		if err := printStats(ctx, db); err != nil {
			log.Fatal(err)
		}
		return
	case *exportPath != "":
		if err := exportActive(ctx, db, *exportPath); err != nil {
			log.Fatal(err)
		}
		return
	case *dedupOnly:
		if err := printDedupReport(ctx, db, dd); err != nil {
			log.Fatal(err)
		}
		return
	}

	if *sitesPath == "" {
		*sitesPath = cfg.Crawl.SitesFile
	}
	sites, err := readSites(*sitesPath)
	if err != nil {
		log.Fatalf("read sites (%s): %v", *sitesPath, err)
	}
	if len(sites) == 0 {
		log.Fatalf("no sites in %s", *sitesPath)
	}

	crawlCfg := crawl.ConfigFrom(cfg)
	crawlCfg.ForceDetect = *forceDetect
	detector := pattern.NewDetector(&store.PatternStore{DB: db.Pool}, nil)
	crawler := crawl.New(db, detector, crawlCfg)

	if *loop {
		interval := time.Duration(cfg.Polling.IntervalSeconds) * time.Second
		log.Printf("[engine] polling every %s across %d sites", interval, len(sites))
		poll.New(crawler, sites, interval).Run(ctx)
		return
	}

	stats, err := crawler.RunIncremental(ctx, sites)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Print(runReport(stats))

	if err := printDedupReport(ctx, db, dd); err != nil {
		log.Printf("[engine] dedup report: %v", err)
	}
	if err := printStats(ctx, db); err != nil {
		log.Printf("[engine] ledger stats: %v", err)
	}
}

// readSites loads base URLs from a text file, skipping blanks and #
// comments.
func readSites(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sites []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sites = append(sites, line)
	}
	return sites, sc.Err()
}

func exportActive(ctx context.Context, db *store.DB, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := store.ExportActive(ctx, db.Pool, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	log.Printf("[engine] exported %d active postings to %s", n, path)
	return nil
}
