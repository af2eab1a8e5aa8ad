package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"postwriter/pkg/scraper"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Filter collected posts and extract copy templates",
	Long: `Run the quality filter and structural analysis over collected posts.

Posts are cleaned of UI noise, scored, and classified. Groups of
high-engagement posts that share a structural signature become reusable
templates, stored alongside the posts.`,
	Example: `  # Analyze the default data directory
  postwriter analyze

  # Analyze a specific directory
  postwriter analyze --data-dir ./data`,
	RunE: runAnalyze,
}

// ideasCmd represents the ideas command
var ideasCmd = &cobra.Command{
	Use:   "ideas <topic>",
	Short: "Generate content ideas for a topic",
	Long: `Generate content ideas for a topic from previously extracted templates.

Each idea combines a template's hook style with the topic. Run 'analyze'
first to build templates.`,
	Example: `  postwriter ideas "home insurance"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runIdeas,
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show rate limiter statistics",
	Long: `Show the rate limiter's recent request counters and current backoff.

Use --reset-backoff to clear an accumulated backoff after resolving a block
manually (for example after completing a checkpoint challenge in a browser).`,
	RunE: runStats,
}

var resetBackoffFlag bool

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(ideasCmd)
	rootCmd.AddCommand(statsCmd)

	analyzeCmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "directory for collected posts")
	ideasCmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "directory for collected posts")
	statsCmd.Flags().BoolVar(&resetBackoffFlag, "reset-backoff", false, "clear the persisted backoff")
}

func newSession() (*scraper.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	s, err := scraper.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	return s, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}

	report, err := s.Analyze(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Posts analyzed:    %d\n", report.FilterStats.TotalPosts)
	fmt.Printf("Posts kept:        %d\n", report.FilterStats.GoodPosts)
	fmt.Printf("Posts filtered:    %d\n", report.FilterStats.FilteredPosts)
	fmt.Printf("Average score:     %.1f\n", report.FilterStats.AverageQuality)
	fmt.Printf("Templates created: %d\n", report.TemplatesCreated)

	if len(report.Topics) > 0 {
		fmt.Println("\nTop topics:")
		for _, t := range report.Topics {
			fmt.Printf("  %-20s %d posts (%.1f avg engagement)\n", t.Name, t.Count, t.AvgEngagement)
		}
	}
	return nil
}

func runIdeas(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}

	topic := strings.Join(args, " ")
	ideas, err := s.Ideas(topic)
	if err != nil {
		return err
	}
	if len(ideas) == 0 {
		fmt.Println("No templates available yet. Run 'postwriter analyze' first.")
		return nil
	}

	fmt.Printf("Ideas for %q:\n", topic)
	for i, idea := range ideas {
		fmt.Printf("  %d. %s\n", i+1, idea)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}

	if resetBackoffFlag {
		s.ResetBackoff()
		fmt.Println("Backoff cleared.")
	}

	stats := s.LimiterStatistics()
	fmt.Printf("Requests (last hour):   %d\n", stats.TotalRequestsHour)
	fmt.Printf("Requests (last minute): %d\n", stats.TotalRequestsMinute)
	fmt.Printf("Successful (hour):      %d\n", stats.SuccessfulRequestsHour)
	fmt.Printf("Rate limited (hour):    %d\n", stats.RateLimitedHour)
	fmt.Printf("Success rate:           %.0f%%\n", stats.SuccessRateHour*100)
	fmt.Printf("Consecutive failures:   %d\n", stats.ConsecutiveFailures)
	fmt.Printf("Current backoff:        %s\n", stats.CurrentBackoff)
	if !stats.LastRequestTime.IsZero() {
		fmt.Printf("Last request:           %s\n", stats.LastRequestTime.Format("2006-01-02 15:04:05"))
	}
	if len(stats.RequestTypes) > 0 {
		fmt.Println("\nBy request type (hour):")
		for t, n := range stats.RequestTypes {
			fmt.Printf("  %-16s %d\n", t, n)
		}
	}
	return nil
}
