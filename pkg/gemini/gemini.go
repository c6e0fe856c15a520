package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// Format selects the validation applied to a model response.
type Format int

const (
	// FormatText accepts any non-empty response.
	FormatText Format = iota
	// FormatJSON requires the fence-stripped response to parse as JSON.
	FormatJSON
)

// ErrBadResponse marks a response that failed format validation after all
// retry attempts. Callers degrade to defaults rather than propagate it.
var ErrBadResponse = errors.New("gemini: response failed format validation")

// Client calls the Gemini text-generation API with retry and format
// validation.
type Client struct {
	client      *http.Client
	apiKey      string
	model       string
	baseURL     string
	maxAttempts int

	// Retry pacing. Parse failures wait a fixed pause; transport failures
	// back off linearly (base, base+step, base+2*step, ...).
	parseWait   time.Duration
	backoffBase time.Duration
	backoffStep time.Duration

	// Parallel dispatch bounds.
	workers      int
	batchTimeout time.Duration
}

// NewClient creates a Gemini client. An empty model or baseURL selects the
// defaults; maxAttempts <= 0 selects 3.
func NewClient(apiKey, model, baseURL string, maxAttempts int) *Client {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Client{
		client:       &http.Client{Timeout: 60 * time.Second},
		apiKey:       apiKey,
		model:        model,
		baseURL:      baseURL,
		maxAttempts:  maxAttempts,
		parseWait:    2 * time.Second,
		backoffBase:  3 * time.Second,
		backoffStep:  2 * time.Second,
		workers:      3,
		batchTimeout: 30 * time.Second,
	}
}

// Generate issues one prompt and returns the fence-stripped response text.
// Transport failures retry with linear backoff; when FormatJSON is
// requested, responses that do not parse retry after a short fixed pause.
// After maxAttempts the last error is returned (ErrBadResponse for
// malformed output).
func (c *Client) Generate(ctx context.Context, prompt string, format Format) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		text, err := c.call(ctx, prompt)
		if err != nil {
			lastErr = err
			if attempt == c.maxAttempts {
				break
			}
			wait := c.backoffBase + time.Duration(attempt-1)*c.backoffStep
			if err := sleep(ctx, wait); err != nil {
				return "", err
			}
			continue
		}

		text = stripFences(strings.TrimSpace(text))
		if format == FormatJSON && !json.Valid([]byte(text)) {
			lastErr = fmt.Errorf("%w: invalid JSON on attempt %d", ErrBadResponse, attempt)
			if attempt == c.maxAttempts {
				break
			}
			if err := sleep(ctx, c.parseWait); err != nil {
				return "", err
			}
			continue
		}

		return text, nil
	}
	return "", lastErr
}

// GenerateBatch issues independent prompts concurrently with a bounded
// worker count and an overall timeout. It always returns exactly
// len(prompts) results; a failed or abandoned prompt yields "".
func (c *Client) GenerateBatch(ctx context.Context, prompts []string) []string {
	results := make([]string, len(prompts))
	if len(prompts) == 0 {
		return results
	}

	ctx, cancel := context.WithTimeout(ctx, c.batchTimeout)
	defer cancel()

	type reply struct {
		idx  int
		text string
	}
	replies := make(chan reply, len(prompts))
	sem := make(chan struct{}, c.workers)

	for i, prompt := range prompts {
		go func(i int, prompt string) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				replies <- reply{idx: i}
				return
			}

			text, err := c.Generate(ctx, prompt, FormatJSON)
			if err != nil {
				fmt.Fprintf(os.Stderr, "gemini: batch prompt %d failed: %v\n", i+1, err)
				replies <- reply{idx: i}
				return
			}
			replies <- reply{idx: i, text: text}
		}(i, prompt)
	}

	for range prompts {
		select {
		case r := <-replies:
			results[r.idx] = r.text
		case <-ctx.Done():
			return results
		}
	}
	return results
}

func (c *Client) call(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"temperature":     0.1,
			"maxOutputTokens": 1000,
			"topP":            0.8,
			"topK":            10,
		},
	}

	body, _ := json.Marshal(payload)
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("gemini status %d: %v", resp.StatusCode, errResp)
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: no candidates returned")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

// stripFences removes a markdown code block wrapper from a response.
func stripFences(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	if idx := strings.Index(raw[3:], "\n"); idx >= 0 {
		raw = raw[3+idx+1:]
	}
	if strings.HasSuffix(raw, "```") {
		raw = raw[:len(raw)-3]
	}
	return strings.TrimSpace(raw)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
