package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// TrendingItem is one hashtag/caption record surfaced as currently popular.
// Rows are insert-only; duplicates on (hashtag, caption) are skipped.
type TrendingItem struct {
	ID        int64     `db:"id" json:"-"`
	Hashtag   string    `db:"hashtag" json:"hashtag"`
	Caption   string    `db:"caption" json:"caption"`
	PostURL   string    `db:"post_url" json:"post_url,omitempty"`
	Likes     int       `db:"likes" json:"likes"`
	Comments  int       `db:"comments" json:"comments"`
	FetchedAt time.Time `db:"fetched_at" json:"fetched_at"`
}

// MatchedTrend is a trending hashtag paired with a relevance score and
// rationale for a specific username.
type MatchedTrend struct {
	ID         int64     `db:"id" json:"-"`
	Username   string    `db:"username" json:"-"`
	Hashtag    string    `db:"hashtag" json:"hashtag"`
	MatchScore float64   `db:"match_score" json:"match_score"`
	Reasoning  string    `db:"reasoning" json:"reasoning"`
	CreatedAt  time.Time `db:"created_at" json:"-"`
}

// Store is the persistence interface.
type Store interface {
	InsertTrendingItems(ctx context.Context, items []TrendingItem) (int, error)
	ListTrendingItems(ctx context.Context, limit int) ([]TrendingItem, error)
	LastFetchTime(ctx context.Context) (time.Time, error)
	NeedsRefresh(ctx context.Context, maxAge time.Duration) (bool, error)

	ReplaceMatchedTrends(ctx context.Context, username string, matches []MatchedTrend) error
	ListMatchedTrends(ctx context.Context, username string) ([]MatchedTrend, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertTrendingItems stores new trending rows in a single transaction,
// skipping any (hashtag, caption) pair already present. It returns the
// number of rows actually inserted.
func (s *SQLiteStore) InsertTrendingItems(ctx context.Context, items []TrendingItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert trending: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	inserted := 0
	for i := range items {
		fetchedAt := items[i].FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = now
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO trending_items (hashtag, caption, post_url, likes, comments, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(hashtag, caption) DO NOTHING
		`, items[i].Hashtag, items[i].Caption, items[i].PostURL,
			items[i].Likes, items[i].Comments, fetchedAt)
		if err != nil {
			return 0, fmt.Errorf("insert trending %s: %w", items[i].Hashtag, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert trending: %w", err)
	}
	return inserted, nil
}

// ListTrendingItems returns the most recent trending rows, newest first.
func (s *SQLiteStore) ListTrendingItems(ctx context.Context, limit int) ([]TrendingItem, error) {
	if limit <= 0 {
		limit = 50
	}

	var items []TrendingItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM trending_items ORDER BY fetched_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list trending items: %w", err)
	}
	return items, nil
}

// LastFetchTime returns the timestamp of the most recent trend fetch,
// or the zero time when no rows exist.
func (s *SQLiteStore) LastFetchTime(ctx context.Context) (time.Time, error) {
	var last time.Time
	err := s.db.GetContext(ctx, &last,
		"SELECT fetched_at FROM trending_items ORDER BY fetched_at DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("last fetch time: %w", err)
	}
	return last, nil
}

// NeedsRefresh reports whether trend data is stale: true when no fetch has
// ever happened, or when the last fetch is older than maxAge.
func (s *SQLiteStore) NeedsRefresh(ctx context.Context, maxAge time.Duration) (bool, error) {
	last, err := s.LastFetchTime(ctx)
	if err != nil {
		return false, err
	}
	if last.IsZero() {
		return true, nil
	}
	return time.Since(last) > maxAge, nil
}

// ReplaceMatchedTrends deletes all prior matches for username and inserts
// the new batch in one transaction. Concurrent replaces for the same
// username race; the last commit wins.
func (s *SQLiteStore) ReplaceMatchedTrends(ctx context.Context, username string, matches []MatchedTrend) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace matches: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM matched_trends WHERE username = ?", username); err != nil {
		return fmt.Errorf("clear matches for %s: %w", username, err)
	}

	now := time.Now().UTC()
	for i := range matches {
		createdAt := matches[i].CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO matched_trends (username, hashtag, match_score, reasoning, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, username, matches[i].Hashtag, matches[i].MatchScore, matches[i].Reasoning, createdAt)
		if err != nil {
			return fmt.Errorf("insert match %s for %s: %w", matches[i].Hashtag, username, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace matches: %w", err)
	}
	return nil
}

// ListMatchedTrends returns the stored matches for username, highest
// score first.
func (s *SQLiteStore) ListMatchedTrends(ctx context.Context, username string) ([]MatchedTrend, error) {
	var matches []MatchedTrend
	err := s.db.SelectContext(ctx, &matches,
		"SELECT * FROM matched_trends WHERE username = ? ORDER BY match_score DESC", username)
	if err != nil {
		return nil, fmt.Errorf("list matches for %s: %w", username, err)
	}
	return matches, nil
}
