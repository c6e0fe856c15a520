package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const completeAnalysisJSON = `{
	"user_interests": {
		"primary_interests": ["fitness", "nutrition"],
		"content_style": "professional",
		"preferred_formats": ["reels"],
		"audience_type": "athletes",
		"tone": "educational"
	},
	"matched_trends": [
		{"hashtag": "#fitness", "match_score": 92, "reasoning": "core topic"},
		{"hashtag": "#wellness", "match_score": 78, "reasoning": "adjacent"}
	],
	"post_suggestions": [
		{"trend_hashtag": "#fitness", "suggestions": ["workout reel", "meal prep"]}
	]
}`

func analyzerServer(t *testing.T, respond func(prompt string) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		w.Write([]byte(geminiResponse(respond(req.Contents[0].Parts[0].Text))))
	}))
}

func TestAnalyzeProfileComplete(t *testing.T) {
	srv := analyzerServer(t, func(string) string { return completeAnalysisJSON })
	defer srv.Close()

	got := newTestClient(srv).AnalyzeProfile(context.Background(),
		"certified trainer", []string{"leg day #fitness"}, []string{"#fitness", "#wellness"})

	if got.UserInterests.ContentStyle != "professional" {
		t.Errorf("content style: %q", got.UserInterests.ContentStyle)
	}
	if len(got.MatchedTrends) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got.MatchedTrends))
	}
	if got.MatchedTrends[0].Hashtag != "#fitness" || got.MatchedTrends[0].MatchScore != 92 {
		t.Errorf("first match: %+v", got.MatchedTrends[0])
	}
	if len(got.PostSuggestions) != 1 {
		t.Errorf("expected 1 suggestion group, got %d", len(got.PostSuggestions))
	}
}

func TestAnalyzeProfileDefaultsOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	got := newTestClient(srv).AnalyzeProfile(context.Background(), "bio", nil, nil)

	if got.UserInterests.ContentStyle != "casual" {
		t.Errorf("expected default interests, got %+v", got.UserInterests)
	}
	if got.MatchedTrends == nil || got.PostSuggestions == nil {
		t.Error("result lists must never be nil")
	}
	if len(got.MatchedTrends) != 0 {
		t.Errorf("expected no matches, got %d", len(got.MatchedTrends))
	}
}

func TestAnalyzeProfileTruncatesInputs(t *testing.T) {
	var prompt string
	srv := analyzerServer(t, func(p string) string {
		prompt = p
		return completeAnalysisJSON
	})
	defer srv.Close()

	longBio := strings.Repeat("x", 500)
	captions := []string{"a", "b", "c", "d", "e"}
	hashtags := make([]string, 20)
	for i := range hashtags {
		hashtags[i] = "#tag"
	}

	newTestClient(srv).AnalyzeProfile(context.Background(), longBio, captions, hashtags)

	if strings.Contains(prompt, strings.Repeat("x", 201)) {
		t.Error("bio not capped at 200 chars")
	}
	if strings.Contains(prompt, "- d") {
		t.Error("captions not capped at 3")
	}
	if strings.Count(prompt, "#tag") > 10 {
		t.Errorf("hashtags not capped at 10, found %d", strings.Count(prompt, "#tag"))
	}
}

func TestAnalyzeProfileFast(t *testing.T) {
	srv := analyzerServer(t, func(prompt string) string {
		switch {
		case strings.Contains(prompt, "Analyze this Instagram profile quickly"):
			return `{"primary_interests": ["travel"], "content_style": "artistic", "preferred_formats": ["photos"], "audience_type": "explorers", "tone": "inspirational"}`
		case strings.Contains(prompt, "Match these trends"):
			return `[{"hashtag": "#travel", "match_score": 88, "reasoning": "frequent travel posts"}]`
		default:
			return `[{"trend_hashtag": "#travel", "suggestions": ["sunset shot"]}]`
		}
	})
	defer srv.Close()

	got := newTestClient(srv).AnalyzeProfileFast(context.Background(),
		"wanderer", []string{"airport again"}, []string{"#travel"})

	if got.UserInterests.ContentStyle != "artistic" {
		t.Errorf("interests: %+v", got.UserInterests)
	}
	if len(got.MatchedTrends) != 1 || got.MatchedTrends[0].Hashtag != "#travel" {
		t.Errorf("matches: %+v", got.MatchedTrends)
	}
	if len(got.PostSuggestions) != 1 {
		t.Errorf("suggestions: %+v", got.PostSuggestions)
	}
}

func TestAnalyzeProfileFastDegradesPerFacet(t *testing.T) {
	srv := analyzerServer(t, func(prompt string) string {
		// Interests facet always malformed; the others succeed.
		if strings.Contains(prompt, "Analyze this Instagram profile quickly") {
			return "not json at all"
		}
		if strings.Contains(prompt, "Match these trends") {
			return `[{"hashtag": "#a", "match_score": 70, "reasoning": "r"}]`
		}
		return `[{"trend_hashtag": "#a", "suggestions": ["idea"]}]`
	})
	defer srv.Close()

	got := newTestClient(srv).AnalyzeProfileFast(context.Background(), "bio", nil, []string{"#a"})

	if got.UserInterests.ContentStyle != "casual" {
		t.Errorf("expected default interests, got %+v", got.UserInterests)
	}
	if len(got.MatchedTrends) != 1 {
		t.Errorf("expected matches to survive, got %+v", got.MatchedTrends)
	}
}

func TestSuggestPosts(t *testing.T) {
	srv := analyzerServer(t, func(string) string {
		return `[{"trend_hashtag": "#foodie", "suggestions": ["recipe reel", "plating tips"]}]`
	})
	defer srv.Close()

	got, err := newTestClient(srv).SuggestPosts(context.Background(), []string{"#foodie"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || len(got[0].Suggestions) != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestSuggestPostsNoHashtags(t *testing.T) {
	c := NewClient("k", "", "", 0)
	got, err := c.SuggestPosts(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestParseMatchesRequiresKeys(t *testing.T) {
	// One element missing match_score discards the whole list.
	raw := json.RawMessage(`[
		{"hashtag": "#a", "match_score": 90, "reasoning": "r"},
		{"hashtag": "#b", "reasoning": "r"}
	]`)
	if got := parseMatches(raw); len(got) != 0 {
		t.Errorf("expected discard, got %+v", got)
	}

	valid := json.RawMessage(`[{"hashtag": "#a", "match_score": 90, "reasoning": "r"}]`)
	if got := parseMatches(valid); len(got) != 1 {
		t.Errorf("expected 1 match, got %+v", got)
	}
}

func TestParseSuggestionsRequiresKeys(t *testing.T) {
	raw := json.RawMessage(`[{"suggestions": ["x"]}]`)
	if got := parseSuggestions(raw); len(got) != 0 {
		t.Errorf("expected discard, got %+v", got)
	}

	valid := json.RawMessage(`[{"trend_hashtag": "#a", "suggestions": ["x"]}]`)
	if got := parseSuggestions(valid); len(got) != 1 {
		t.Errorf("expected 1 suggestion, got %+v", got)
	}
}

func TestParseMatchesNotAnArray(t *testing.T) {
	if got := parseMatches(json.RawMessage(`{"hashtag": "#a"}`)); len(got) != 0 {
		t.Errorf("expected empty, got %+v", got)
	}
	if got := parseMatches(nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil, got %v", got)
	}
}
