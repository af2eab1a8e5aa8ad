package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"postwriter/pkg/config"
	"postwriter/pkg/logger"
	"postwriter/pkg/scraper"
)

var (
	// Scrape command flags
	maxPages   int
	dataDir    string
	resumeScan bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape <profile-url>",
	Short: "Collect posts from a Facebook profile or page",
	Long: `Collect public posts from a Facebook profile or page.

A stored session cookie is required. Store one with 'postwriter auth login'
or set the POSTWRITER_SESSION_COOKIE environment variable.

Requests are paced by an adaptive rate limiter: delays are randomized per
request type, and any sign of throttling (blocked responses, suspicious
redirects, burst patterns) escalates an exponential backoff that persists
across runs.`,
	Example: `  # Collect posts with default settings
  postwriter scrape https://facebook.com/somepage

  # Collect more pages into a specific directory
  postwriter scrape somepage --max-pages 25 --data-dir ./data

  # Resume an interrupted run from its checkpoint
  postwriter scrape somepage --resume`,
	Args: cobra.ExactArgs(1),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum result pages to fetch (0 uses config)")
	scrapeCmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "directory for collected posts")
	scrapeCmd.Flags().BoolVar(&resumeScan, "resume", false, "resume from last checkpoint")
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Facebook.ProfileURL = strings.TrimSpace(args[0])
	if maxPages > 0 {
		cfg.Facebook.MaxPages = maxPages
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}

	log := logger.GetLogger()
	log.WithField("version", version).Info("PostWriter starting")

	s, err := scraper.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize scraper: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.ScrapeProfile(ctx, resumeScan); err != nil {
		log.WithError(err).Error("scrape failed")
		return err
	}
	return nil
}

// loadConfig loads configuration and initializes logging, honoring the
// global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
