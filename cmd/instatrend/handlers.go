package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shivlongani/ai-instagram-trend-analyzer-suggester/internal/config"
	"github.com/shivlongani/ai-instagram-trend-analyzer-suggester/internal/scheduler"
	"github.com/shivlongani/ai-instagram-trend-analyzer-suggester/internal/store"
	"github.com/shivlongani/ai-instagram-trend-analyzer-suggester/pkg/gemini"
	"github.com/shivlongani/ai-instagram-trend-analyzer-suggester/pkg/instagram"
	"github.com/shivlongani/ai-instagram-trend-analyzer-suggester/pkg/server"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildAnalyzer(cfg *config.Config) (*gemini.Client, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("gemini api key not configured (set GEMINI_API_KEY or gemini.api_key)")
	}
	return gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.BaseURL, cfg.Gemini.MaxAttempts), nil
}

func buildTrendSources(cfg *config.Config) []instagram.TrendSource {
	var sources []instagram.TrendSource

	if len(cfg.Trends.Feeds) > 0 {
		feeds := make([]instagram.RSSFeed, len(cfg.Trends.Feeds))
		for i, f := range cfg.Trends.Feeds {
			feeds[i] = instagram.RSSFeed{Name: f.Name, URL: f.URL}
		}
		sources = append(sources, instagram.NewRSSSource(feeds, 0))
	}

	// Static fallback data keeps the analysis pipeline usable when no
	// live source yields anything.
	sources = append(sources, instagram.NewStaticSource())

	return sources
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		return err
	}

	fetcher := instagram.NewProfileClient(cfg.Instagram.UserAgent)
	sources := buildTrendSources(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(db, sources, cfg.Refresh.ParseInterval(), cfg.Refresh.ParseMaxAge())
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
		}
	}()

	srv := server.New(db, analyzer, fetcher, cfg.Server.Host, port)
	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	return srv.ListenAndServe(ctx)
}

func runRefresh(force bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	maxAge := cfg.Refresh.ParseMaxAge()
	if force {
		// A negative max age makes any stored data count as stale.
		maxAge = -1
	}

	sched := scheduler.New(db, buildTrendSources(cfg), cfg.Refresh.ParseInterval(), maxAge)
	if err := sched.RefreshOnce(context.Background()); err != nil {
		return fmt.Errorf("refresh trends: %w", err)
	}

	trends, err := db.ListTrendingItems(context.Background(), 0)
	if err != nil {
		return fmt.Errorf("list trends: %w", err)
	}
	fmt.Fprintf(os.Stderr, "store holds %d trending items\n", len(trends))
	return nil
}

func runAnalyze(username string, numPosts int, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()

	fetcher := instagram.NewProfileClient(cfg.Instagram.UserAgent)
	profile, err := fetcher.FetchProfile(ctx, username, numPosts)
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}

	trending, err := db.ListTrendingItems(ctx, 15)
	if err != nil {
		return fmt.Errorf("list trends: %w", err)
	}
	if len(trending) == 0 {
		return fmt.Errorf("no trending data stored (run: instatrend refresh)")
	}

	hashtags := make([]string, len(trending))
	for i, t := range trending {
		hashtags[i] = t.Hashtag
	}

	analysis := analyzer.AnalyzeProfile(ctx, profile.Bio, profile.Captions, hashtags)

	if len(analysis.MatchedTrends) > 0 {
		rows := make([]store.MatchedTrend, len(analysis.MatchedTrends))
		for i, m := range analysis.MatchedTrends {
			rows[i] = store.MatchedTrend{
				Username:   username,
				Hashtag:    m.Hashtag,
				MatchScore: m.MatchScore,
				Reasoning:  m.Reasoning,
			}
		}
		if err := db.ReplaceMatchedTrends(ctx, username, rows); err != nil {
			fmt.Fprintf(os.Stderr, "could not save matches: %v\n", err)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	}

	fmt.Printf("profile: %s\n", username)
	fmt.Printf("interests: %v\n", analysis.UserInterests.PrimaryInterests)
	fmt.Printf("style: %s, tone: %s\n\n", analysis.UserInterests.ContentStyle, analysis.UserInterests.Tone)

	if len(analysis.MatchedTrends) == 0 {
		fmt.Println("no matching trends found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tHASHTAG\tREASONING")
	for _, m := range analysis.MatchedTrends {
		fmt.Fprintf(w, "%.0f\t%s\t%s\n", m.MatchScore, m.Hashtag, m.Reasoning)
	}
	return w.Flush()
}

func runTrendsList(jsonOutput bool, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	trends, err := db.ListTrendingItems(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("list trends: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(trends)
	}

	if len(trends) == 0 {
		fmt.Println("no trends stored (try: instatrend refresh)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HASHTAG\tLIKES\tCOMMENTS\tFETCHED")
	for _, t := range trends {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n",
			t.Hashtag, t.Likes, t.Comments, t.FetchedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
