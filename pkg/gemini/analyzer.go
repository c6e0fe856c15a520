package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Input caps keep prompts small and latency bounded.
const (
	maxBioLen      = 200
	maxCaptionLen  = 100
	maxCaptions    = 3
	maxHashtags    = 10
	maxSuggestTags = 5
)

const completePrompt = `Analyze this Instagram profile and return ONE complete JSON with ALL analysis:

Bio: %s
Recent Posts:
%s
Available Hashtags: %s

Return ONLY this EXACT JSON structure:
{
    "user_interests": {
        "primary_interests": ["interest1", "interest2"],
        "content_style": "casual/professional/artistic",
        "preferred_formats": ["photos", "reels"],
        "audience_type": "target audience",
        "tone": "personal/inspirational/educational"
    },
    "matched_trends": [
        {"hashtag": "#hashtag1", "match_score": 85, "reasoning": "why it matches"}
    ],
    "post_suggestions": [
        {"trend_hashtag": "#hashtag1", "suggestions": ["idea 1", "idea 2"]}
    ]
}

IMPORTANT: Return ONLY the JSON above, no other text.`

const interestsPrompt = `Analyze this Instagram profile quickly:
Bio: %s
Recent posts:
%s

Return ONLY this JSON format:
{"primary_interests": ["list", "of", "interests"], "content_style": "style", "preferred_formats": ["formats"], "audience_type": "audience", "tone": "tone"}`

const matchPrompt = `Match these trends to a user interested in: %s
Trends: %s

Return ONLY this JSON array with the top 5 matches:
[{"hashtag": "#tag", "match_score": 85, "reasoning": "brief reason"}]`

const suggestPrompt = `Generate 2 quick post ideas for each hashtag: %s
Based on: %s

Return ONLY this JSON:
[{"trend_hashtag": "#tag", "suggestions": ["idea1", "idea2"]}]`

const simpleSuggestPrompt = `Generate 2-3 creative Instagram post ideas for each of these trending hashtags: %s

Return ONLY a JSON array in this format:
[{"trend_hashtag": "#hashtag", "suggestions": ["idea 1", "idea 2"]}]

Make each suggestion engaging and trendy. No additional text.`

// UserInterests is the AI's classification of a profile.
type UserInterests struct {
	PrimaryInterests []string `json:"primary_interests"`
	ContentStyle     string   `json:"content_style"`
	PreferredFormats []string `json:"preferred_formats"`
	AudienceType     string   `json:"audience_type"`
	Tone             string   `json:"tone"`
}

// TrendMatch pairs a trending hashtag with a relevance score for the
// analyzed profile.
type TrendMatch struct {
	Hashtag    string  `json:"hashtag"`
	MatchScore float64 `json:"match_score"`
	Reasoning  string  `json:"reasoning"`
}

// PostSuggestion holds content ideas for one trending hashtag.
type PostSuggestion struct {
	TrendHashtag string   `json:"trend_hashtag"`
	Suggestions  []string `json:"suggestions"`
}

// Analysis is the combined result of a profile analysis. MatchedTrends and
// PostSuggestions are never nil.
type Analysis struct {
	UserInterests   UserInterests    `json:"user_interests"`
	MatchedTrends   []TrendMatch     `json:"matched_trends"`
	PostSuggestions []PostSuggestion `json:"post_suggestions"`
}

// DefaultInterests is the fallback classification used when analysis fails.
func DefaultInterests() UserInterests {
	return UserInterests{
		PrimaryInterests: []string{"lifestyle"},
		ContentStyle:     "casual",
		PreferredFormats: []string{"photos"},
		AudienceType:     "general",
		Tone:             "personal",
	}
}

func defaultAnalysis() Analysis {
	return Analysis{
		UserInterests:   DefaultInterests(),
		MatchedTrends:   []TrendMatch{},
		PostSuggestions: []PostSuggestion{},
	}
}

// AnalyzeProfile runs the single-call strategy: one prompt requesting
// interests, trend matches, and post suggestions together. It never fails;
// on any error the default interests and empty lists are returned.
func (c *Client) AnalyzeProfile(ctx context.Context, bio string, captions, hashtags []string) Analysis {
	prompt := fmt.Sprintf(completePrompt,
		truncate(bio, maxBioLen),
		formatCaptions(captions),
		strings.Join(capStrings(hashtags, maxHashtags), ", "))

	text, err := c.Generate(ctx, prompt, FormatJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gemini: profile analysis failed, using defaults: %v\n", err)
		return defaultAnalysis()
	}

	var parsed struct {
		UserInterests   *UserInterests  `json:"user_interests"`
		MatchedTrends   json.RawMessage `json:"matched_trends"`
		PostSuggestions json.RawMessage `json:"post_suggestions"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		fmt.Fprintf(os.Stderr, "gemini: unexpected analysis shape, using defaults: %v\n", err)
		return defaultAnalysis()
	}

	result := Analysis{
		UserInterests:   DefaultInterests(),
		MatchedTrends:   parseMatches(parsed.MatchedTrends),
		PostSuggestions: parseSuggestions(parsed.PostSuggestions),
	}
	if parsed.UserInterests != nil {
		result.UserInterests = *parsed.UserInterests
	}
	return result
}

// AnalyzeProfileFast runs the multi-call strategy: three independent
// prompts dispatched in parallel. A failed or malformed facet degrades to
// its empty/default value without affecting the others.
func (c *Client) AnalyzeProfileFast(ctx context.Context, bio string, captions, hashtags []string) Analysis {
	shortBio := truncate(bio, maxBioLen)
	prompts := []string{
		fmt.Sprintf(interestsPrompt, shortBio, formatCaptions(captions)),
		fmt.Sprintf(matchPrompt, truncate(bio, 100), strings.Join(capStrings(hashtags, maxHashtags), ", ")),
		fmt.Sprintf(suggestPrompt, strings.Join(capStrings(hashtags, maxCaptions), ", "), truncate(bio, 100)),
	}

	results := c.GenerateBatch(ctx, prompts)

	analysis := defaultAnalysis()
	if results[0] != "" {
		var interests UserInterests
		if err := json.Unmarshal([]byte(results[0]), &interests); err == nil {
			analysis.UserInterests = interests
		}
	}
	if results[1] != "" {
		analysis.MatchedTrends = parseMatches(json.RawMessage(results[1]))
	}
	if results[2] != "" {
		analysis.PostSuggestions = parseSuggestions(json.RawMessage(results[2]))
	}
	return analysis
}

// SuggestPosts generates post ideas for hashtags without a full profile
// analysis. Used when serving cached matches.
func (c *Client) SuggestPosts(ctx context.Context, hashtags []string) ([]PostSuggestion, error) {
	if len(hashtags) == 0 {
		return []PostSuggestion{}, nil
	}

	prompt := fmt.Sprintf(simpleSuggestPrompt, strings.Join(capStrings(hashtags, maxSuggestTags), ", "))
	text, err := c.Generate(ctx, prompt, FormatJSON)
	if err != nil {
		return nil, err
	}
	return parseSuggestions(json.RawMessage(text)), nil
}

// parseMatches accepts a match list only when every element carries the
// hashtag and match_score keys; otherwise the whole list is discarded.
func parseMatches(raw json.RawMessage) []TrendMatch {
	if !hasRequiredKeys(raw, "hashtag", "match_score") {
		return []TrendMatch{}
	}
	var matches []TrendMatch
	if err := json.Unmarshal(raw, &matches); err != nil || matches == nil {
		return []TrendMatch{}
	}
	return matches
}

// parseSuggestions accepts a suggestion list only when every element
// carries the trend_hashtag and suggestions keys.
func parseSuggestions(raw json.RawMessage) []PostSuggestion {
	if !hasRequiredKeys(raw, "trend_hashtag", "suggestions") {
		return []PostSuggestion{}
	}
	var suggestions []PostSuggestion
	if err := json.Unmarshal(raw, &suggestions); err != nil || suggestions == nil {
		return []PostSuggestion{}
	}
	return suggestions
}

func hasRequiredKeys(raw json.RawMessage, keys ...string) bool {
	if len(raw) == 0 {
		return false
	}
	var elems []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return false
	}
	for _, elem := range elems {
		for _, key := range keys {
			if _, ok := elem[key]; !ok {
				return false
			}
		}
	}
	return true
}

func formatCaptions(captions []string) string {
	var lines []string
	for _, caption := range capStrings(captions, maxCaptions) {
		lines = append(lines, "- "+truncate(caption, maxCaptionLen))
	}
	return strings.Join(lines, "\n")
}

func capStrings(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
