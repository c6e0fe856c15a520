package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertTrendingItemsSkipsDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	items := []TrendingItem{
		{Hashtag: "#fitness", Caption: "morning run", Likes: 100, FetchedAt: time.Now()},
		{Hashtag: "#foodie", Caption: "pasta night", Likes: 50, FetchedAt: time.Now()},
	}

	n, err := s.InsertTrendingItems(ctx, items)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// Same hashtag and caption again, different counts: skipped.
	n, err = s.InsertTrendingItems(ctx, []TrendingItem{
		{Hashtag: "#fitness", Caption: "morning run", Likes: 999, FetchedAt: time.Now()},
	})
	require.NoError(t, err)
	require.Equal(t, 0, n)

	// Same hashtag with a new caption is a new row.
	n, err = s.InsertTrendingItems(ctx, []TrendingItem{
		{Hashtag: "#fitness", Caption: "evening lift", FetchedAt: time.Now()},
	})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	all, err := s.ListTrendingItems(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestListTrendingItemsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-2 * time.Hour)
	recent := time.Now()

	_, err := s.InsertTrendingItems(ctx, []TrendingItem{
		{Hashtag: "#old", Caption: "a", FetchedAt: old},
		{Hashtag: "#new", Caption: "b", FetchedAt: recent},
	})
	require.NoError(t, err)

	got, err := s.ListTrendingItems(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "#new", got[0].Hashtag)
}

func TestNeedsRefresh(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Empty store: always stale.
	stale, err := s.NeedsRefresh(ctx, time.Hour)
	require.NoError(t, err)
	require.True(t, stale)

	_, err = s.InsertTrendingItems(ctx, []TrendingItem{
		{Hashtag: "#a", Caption: "x", FetchedAt: time.Now().Add(-30 * time.Minute)},
	})
	require.NoError(t, err)

	stale, err = s.NeedsRefresh(ctx, time.Hour)
	require.NoError(t, err)
	require.False(t, stale)

	stale, err = s.NeedsRefresh(ctx, 10*time.Minute)
	require.NoError(t, err)
	require.True(t, stale)
}

func TestLastFetchTimeEmptyStore(t *testing.T) {
	s := newTestStore(t)

	last, err := s.LastFetchTime(context.Background())
	require.NoError(t, err)
	require.True(t, last.IsZero())
}

func TestReplaceMatchedTrends(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := []MatchedTrend{
		{Username: "alice", Hashtag: "#fitness", MatchScore: 85, Reasoning: "posts about running"},
		{Username: "alice", Hashtag: "#travel", MatchScore: 70, Reasoning: "vacation photos"},
	}
	require.NoError(t, s.ReplaceMatchedTrends(ctx, "alice", first))

	// A later analysis fully replaces the prior one.
	second := []MatchedTrend{
		{Username: "alice", Hashtag: "#wellness", MatchScore: 90, Reasoning: "yoga content"},
	}
	require.NoError(t, s.ReplaceMatchedTrends(ctx, "alice", second))

	got, err := s.ListMatchedTrends(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "#wellness", got[0].Hashtag)
}

func TestReplaceMatchedTrendsIsolatedByUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceMatchedTrends(ctx, "alice", []MatchedTrend{
		{Username: "alice", Hashtag: "#fitness", MatchScore: 80},
	}))
	require.NoError(t, s.ReplaceMatchedTrends(ctx, "bob", []MatchedTrend{
		{Username: "bob", Hashtag: "#foodie", MatchScore: 75},
	}))

	alice, err := s.ListMatchedTrends(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 1)
	require.Equal(t, "#fitness", alice[0].Hashtag)
}

func TestListMatchedTrendsOrderedByScore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceMatchedTrends(ctx, "carol", []MatchedTrend{
		{Username: "carol", Hashtag: "#low", MatchScore: 40},
		{Username: "carol", Hashtag: "#high", MatchScore: 95},
		{Username: "carol", Hashtag: "#mid", MatchScore: 60},
	}))

	got, err := s.ListMatchedTrends(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "#high", got[0].Hashtag)
	require.Equal(t, "#mid", got[1].Hashtag)
	require.Equal(t, "#low", got[2].Hashtag)
}

func TestListMatchedTrendsUnknownUser(t *testing.T) {
	s := newTestStore(t)

	got, err := s.ListMatchedTrends(context.Background(), "nobody")
	require.NoError(t, err)
	require.Empty(t, got)
}
