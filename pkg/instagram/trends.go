package instagram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/mmcdole/gofeed"

	"github.com/shivlongani/ai-instagram-trend-analyzer-suggester/internal/store"
)

// TrendSource provides candidate trending hashtags with sample captions.
type TrendSource interface {
	Name() string
	FetchTrends(ctx context.Context) ([]store.TrendingItem, error)
}

// RSSFeed is a named RSS/Atom feed URL.
type RSSFeed struct {
	Name string
	URL  string
}

// RSSSource derives trending items from social-media roundup feeds:
// hashtags are extracted from entry titles and descriptions, with feed
// categories as a fallback.
type RSSSource struct {
	client *http.Client
	parser *gofeed.Parser
	feeds  []RSSFeed
	limit  int
}

// NewRSSSource creates an RSS trend source. limit bounds the items taken
// per feed (default 20).
func NewRSSSource(feeds []RSSFeed, limit int) *RSSSource {
	if limit <= 0 {
		limit = 20
	}
	return &RSSSource{
		client: &http.Client{Timeout: 30 * time.Second},
		parser: gofeed.NewParser(),
		feeds:  feeds,
		limit:  limit,
	}
}

func (r *RSSSource) Name() string { return "rss" }

func (r *RSSSource) FetchTrends(ctx context.Context) ([]store.TrendingItem, error) {
	var all []store.TrendingItem
	for _, feed := range r.feeds {
		items, err := r.fetchFeed(ctx, feed)
		if err != nil {
			fmt.Printf("  rss feed %s error: %v\n", feed.Name, err)
			continue
		}
		all = append(all, items...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no trends from %d feeds", len(r.feeds))
	}
	return all, nil
}

func (r *RSSSource) fetchFeed(ctx context.Context, feed RSSFeed) ([]store.TrendingItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create rss request %s: %w", feed.Name, err)
	}
	req.Header.Set("User-Agent", "instatrend/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rss %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss %s status %d", feed.Name, resp.StatusCode)
	}

	parsed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rss %s: %w", feed.Name, err)
	}

	now := time.Now().UTC()
	var items []store.TrendingItem
	for _, entry := range parsed.Items {
		if len(items) >= r.limit {
			break
		}

		hashtags := ExtractHashtags(entry.Title + " " + entry.Description)
		if len(hashtags) == 0 {
			for _, cat := range entry.Categories {
				if tag := hashtagFromCategory(cat); tag != "" {
					hashtags = append(hashtags, tag)
				}
			}
		}
		if len(hashtags) == 0 {
			continue
		}

		items = append(items, store.TrendingItem{
			Hashtag:   hashtags[0],
			Caption:   strings.TrimSpace(entry.Title),
			PostURL:   entry.Link,
			FetchedAt: now,
		})
	}
	return items, nil
}

// StaticSource returns a built-in fallback list of trends, used when no
// live source is configured or all live sources fail.
type StaticSource struct{}

// NewStaticSource creates the fallback trend source.
func NewStaticSource() *StaticSource { return &StaticSource{} }

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) FetchTrends(ctx context.Context) ([]store.TrendingItem, error) {
	now := time.Now().UTC()
	return []store.TrendingItem{
		{
			Hashtag:   "#fitness",
			Caption:   "Transform your body with these simple exercises!",
			PostURL:   "https://instagram.com/p/mock1",
			Likes:     15420,
			Comments:  234,
			FetchedAt: now,
		},
		{
			Hashtag:   "#foodie",
			Caption:   "Best pasta recipe you'll ever try!",
			PostURL:   "https://instagram.com/p/mock2",
			Likes:     8765,
			Comments:  156,
			FetchedAt: now,
		},
		{
			Hashtag:   "#travel",
			Caption:   "Hidden gems in Bali that tourists miss",
			PostURL:   "https://instagram.com/p/mock3",
			Likes:     23140,
			Comments:  445,
			FetchedAt: now,
		},
		{
			Hashtag:   "#photography",
			Caption:   "Golden hour tips every creator should know",
			PostURL:   "https://instagram.com/p/mock4",
			Likes:     12876,
			Comments:  198,
			FetchedAt: now,
		},
		{
			Hashtag:   "#wellness",
			Caption:   "5 morning habits that changed my life",
			PostURL:   "https://instagram.com/p/mock5",
			Likes:     19532,
			Comments:  367,
			FetchedAt: now,
		},
	}, nil
}

// ExtractHashtags returns the distinct #tags found in text, in order of
// first appearance.
func ExtractHashtags(text string) []string {
	seen := make(map[string]bool)
	var tags []string

	for _, word := range strings.Fields(text) {
		if !strings.HasPrefix(word, "#") {
			continue
		}
		tag := "#" + trimTag(word[1:])
		if len(tag) < 2 || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// trimTag cuts a candidate tag at the first rune not valid in a hashtag.
func trimTag(s string) string {
	for i, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return s[:i]
		}
	}
	return s
}

func hashtagFromCategory(cat string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, cat)
	if cleaned == "" {
		return ""
	}
	return "#" + cleaned
}
