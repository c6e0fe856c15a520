package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shivlongani/ai-instagram-trend-analyzer-suggester/internal/store"
	"github.com/shivlongani/ai-instagram-trend-analyzer-suggester/pkg/instagram"
)

// Scheduler periodically refreshes trending data.
type Scheduler struct {
	store    store.Store
	sources  []instagram.TrendSource
	interval time.Duration
	maxAge   time.Duration
}

// New creates a scheduler. Zero interval selects 30 minutes; zero maxAge
// selects 1 hour.
func New(s store.Store, sources []instagram.TrendSource, interval, maxAge time.Duration) *Scheduler {
	if interval == 0 {
		interval = 30 * time.Minute
	}
	if maxAge == 0 {
		maxAge = time.Hour
	}
	return &Scheduler{
		store:    s,
		sources:  sources,
		interval: interval,
		maxAge:   maxAge,
	}
}

// Run starts the refresh loop with one immediate run. Blocks until ctx is
// cancelled; an in-flight refresh is allowed to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	fmt.Fprintln(os.Stderr, "scheduler: initial trend refresh...")
	if err := s.RefreshOnce(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "scheduler: refresh failed: %v\n", err)
	}

	fmt.Fprintf(os.Stderr, "scheduler: running (refresh every %s, max age %s)\n", s.interval, s.maxAge)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "scheduler: stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.RefreshOnce(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "scheduler: refresh failed: %v\n", err)
			}
		}
	}
}

// RefreshOnce refreshes trending data if it is stale. Sources are tried in
// order and the first one that yields items wins.
func (s *Scheduler) RefreshOnce(ctx context.Context) error {
	stale, err := s.store.NeedsRefresh(ctx, s.maxAge)
	if err != nil {
		return fmt.Errorf("staleness check: %w", err)
	}
	if !stale {
		fmt.Fprintln(os.Stderr, "scheduler: trends still fresh, skipping fetch")
		return nil
	}

	for _, src := range s.sources {
		items, err := src.FetchTrends(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scheduler: %s source error: %v\n", src.Name(), err)
			continue
		}
		if len(items) == 0 {
			continue
		}

		inserted, err := s.store.InsertTrendingItems(ctx, items)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scheduler: %s store error: %v\n", src.Name(), err)
			continue
		}

		fmt.Fprintf(os.Stderr, "scheduler: %s: stored %d new of %d items\n", src.Name(), inserted, len(items))
		return nil
	}

	return fmt.Errorf("no trending data retrieved from any source")
}
