package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrProfileNotFound indicates the requested profile does not exist.
	ErrProfileNotFound = errors.New("instagram: profile does not exist")
	// ErrLoginRequired indicates Instagram refused anonymous access.
	ErrLoginRequired = errors.New("instagram: login required")
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Instagram's public web app ID, required by the profile JSON endpoint.
const webAppID = "936619743392459"

// Profile holds the scraped bio and recent post captions for a handle.
type Profile struct {
	Username string
	Bio      string
	Captions []string
}

// ProfileClient fetches public profile data from Instagram's web endpoints.
type ProfileClient struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// NewProfileClient creates a profile fetcher. An empty userAgent selects a
// browser default.
func NewProfileClient(userAgent string) *ProfileClient {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &ProfileClient{
		client:    &http.Client{Timeout: 30 * time.Second},
		baseURL:   "https://www.instagram.com",
		userAgent: userAgent,
	}
}

// FetchProfile returns the bio and up to numPosts non-empty recent captions
// for username. It tries the web profile JSON endpoint first and degrades
// to parsing the profile HTML page when that endpoint is unavailable.
func (p *ProfileClient) FetchProfile(ctx context.Context, username string, numPosts int) (*Profile, error) {
	if numPosts <= 0 {
		numPosts = 3
	}

	profile, err := p.fetchJSON(ctx, username, numPosts)
	if err == nil {
		return profile, nil
	}
	if errors.Is(err, ErrProfileNotFound) || errors.Is(err, ErrLoginRequired) {
		return nil, err
	}

	fmt.Printf("  instagram: profile endpoint failed (%v), trying HTML fallback\n", err)
	return p.fetchHTML(ctx, username)
}

func (p *ProfileClient) fetchJSON(ctx context.Context, username string, numPosts int) (*Profile, error) {
	reqURL := fmt.Sprintf("%s/api/v1/users/web_profile_info/?username=%s",
		p.baseURL, url.QueryEscape(username))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create profile request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("X-IG-App-ID", webAppID)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", username, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrProfileNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrLoginRequired
	default:
		return nil, fmt.Errorf("profile %s status %d", username, resp.StatusCode)
	}

	var payload struct {
		Data struct {
			User *struct {
				Biography string `json:"biography"`
				Media     struct {
					Edges []struct {
						Node struct {
							Caption struct {
								Edges []struct {
									Node struct {
										Text string `json:"text"`
									} `json:"node"`
								} `json:"edges"`
							} `json:"edge_media_to_caption"`
						} `json:"node"`
					} `json:"edges"`
				} `json:"edge_owner_to_timeline_media"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", username, err)
	}

	user := payload.Data.User
	if user == nil {
		return nil, ErrProfileNotFound
	}

	var captions []string
	for _, edge := range user.Media.Edges {
		if len(captions) >= numPosts {
			break
		}
		for _, c := range edge.Node.Caption.Edges {
			if text := strings.TrimSpace(c.Node.Text); text != "" {
				captions = append(captions, text)
				break
			}
		}
	}

	return &Profile{
		Username: username,
		Bio:      strings.TrimSpace(user.Biography),
		Captions: captions,
	}, nil
}

// fetchHTML scrapes the public profile page. Only the bio is recoverable
// this way; captions are left empty.
func (p *ProfileClient) fetchHTML(ctx context.Context, username string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+url.PathEscape(username)+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("create profile page request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile page %s: %w", username, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrProfileNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile page %s status %d", username, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse profile page %s: %w", username, err)
	}

	desc, _ := doc.Find(`meta[property="og:description"]`).Attr("content")
	return &Profile{
		Username: username,
		Bio:      bioFromOGDescription(desc),
	}, nil
}

// bioFromOGDescription extracts the bio from an og:description like
// `123 Followers, 45 Following, 67 Posts - Name (@user) on Instagram: "bio"`.
func bioFromOGDescription(desc string) string {
	idx := strings.Index(desc, `: "`)
	if idx < 0 {
		return ""
	}
	bio := desc[idx+3:]
	bio = strings.TrimSuffix(bio, `"`)
	return strings.TrimSpace(bio)
}
