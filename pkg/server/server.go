package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shivlongani/ai-instagram-trend-analyzer-suggester/internal/store"
	"github.com/shivlongani/ai-instagram-trend-analyzer-suggester/pkg/gemini"
	"github.com/shivlongani/ai-instagram-trend-analyzer-suggester/pkg/instagram"
)

// Version reported by the root and health endpoints.
const Version = "1.0.0"

// trendCandidates bounds how many trending rows feed one analysis.
const trendCandidates = 15

// Analyzer is the AI analysis surface the server depends on.
type Analyzer interface {
	AnalyzeProfile(ctx context.Context, bio string, captions, hashtags []string) gemini.Analysis
	SuggestPosts(ctx context.Context, hashtags []string) ([]gemini.PostSuggestion, error)
}

// ProfileFetcher fetches bio and captions for a handle.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, username string, numPosts int) (*instagram.Profile, error)
}

// Server provides the HTTP API.
type Server struct {
	store    store.Store
	analyzer Analyzer
	fetcher  ProfileFetcher
	addr     string
}

// New creates an HTTP server over the given dependencies.
func New(s store.Store, analyzer Analyzer, fetcher ProfileFetcher, host string, port int) *Server {
	if port == 0 {
		port = 8000
	}
	return &Server{
		store:    s,
		analyzer: analyzer,
		fetcher:  fetcher,
		addr:     fmt.Sprintf("%s:%d", host, port),
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/analyze-profile", s.handleAnalyzeProfile)
	r.Get("/suggestions/{username}", s.handleSuggestions)
	r.Get("/trends", s.handleTrends)
	r.Post("/demo-analysis", s.handleDemoAnalysis)

	return r
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when
// ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "instatrend server listening on %s\n", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Instagram Trend Suggester API is running",
		"version": Version,
		"status":  "healthy",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "healthy"
	if _, err := s.store.ListTrendingItems(r.Context(), 1); err != nil {
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	aiStatus := "configured"
	if s.analyzer == nil {
		aiStatus = "not configured"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "running",
		"database": dbStatus,
		"gemini":   aiStatus,
		"version":  Version,
	})
}

type analyzeRequest struct {
	Username string `json:"username"`
	NumPosts int    `json:"num_posts"`
}

type analyzeResponse struct {
	Username        string                  `json:"username"`
	UserInterests   gemini.UserInterests    `json:"user_interests"`
	MatchedTrends   []gemini.TrendMatch     `json:"matched_trends"`
	PostSuggestions []gemini.PostSuggestion `json:"post_suggestions"`
}

func (s *Server) handleAnalyzeProfile(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if req.NumPosts <= 0 {
		req.NumPosts = 3
	}

	profile, err := s.fetcher.FetchProfile(r.Context(), req.Username, req.NumPosts)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("error fetching Instagram data: %v", err))
		return
	}
	if profile.Bio == "" && len(profile.Captions) == 0 {
		writeError(w, http.StatusBadRequest, "no data found for this Instagram profile")
		return
	}

	s.analyze(w, r, req.Username, profile.Bio, profile.Captions)
}

// analyze runs the shared analysis pipeline and writes the response.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request, username, bio string, captions []string) {
	ctx := r.Context()

	trending, err := s.store.ListTrendingItems(ctx, trendCandidates)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("error loading trends: %v", err))
		return
	}
	if len(trending) == 0 {
		writeError(w, http.StatusServiceUnavailable, "no trending data available, please try again later")
		return
	}

	hashtags := make([]string, len(trending))
	for i, t := range trending {
		hashtags[i] = t.Hashtag
	}

	analysis := s.analyzer.AnalyzeProfile(ctx, bio, captions, hashtags)

	// Persisting matches is best-effort: the analysis response is served
	// even when the save fails.
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
		if err := s.store.ReplaceMatchedTrends(ctx, username, rows); err != nil {
			fmt.Fprintf(os.Stderr, "server: could not save matches for %s: %v\n", username, err)
		}
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Username:        username,
		UserInterests:   analysis.UserInterests,
		MatchedTrends:   analysis.MatchedTrends,
		PostSuggestions: analysis.PostSuggestions,
	})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	matches, err := s.store.ListMatchedTrends(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("error loading matches: %v", err))
		return
	}
	if len(matches) == 0 {
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("no analysis found for username %q, please analyze the profile first", username))
		return
	}

	hashtags := make([]string, 0, 5)
	for _, m := range matches {
		if len(hashtags) == 5 {
			break
		}
		hashtags = append(hashtags, m.Hashtag)
	}

	suggestions, err := s.analyzer.SuggestPosts(r.Context(), hashtags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "server: suggestions for %s failed: %v\n", username, err)
		suggestions = []gemini.PostSuggestion{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"matched_trends":   matches,
		"post_suggestions": suggestions,
	})
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	trends, err := s.store.ListTrendingItems(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("error fetching trends: %v", err))
		return
	}
	if trends == nil {
		trends = []store.TrendingItem{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trends":      trends,
		"total_count": len(trends),
	})
}

// handleDemoAnalysis runs the analysis pipeline against sample profile
// data, bypassing the live fetcher.
func (s *Server) handleDemoAnalysis(w http.ResponseWriter, r *http.Request) {
	bio := "Bios are overrated. Skip the assumptions - meet me in person"
	captions := []string{
		"Le Chat GPT when the prompt is: 'Suggest a house design inspired from my life story.' #TechHumor #AILife",
		"Just Another Sunday, But Better #WeekendVibes #SundayMood #ChillDay",
		"Sometimes you just need a little chaos to feel alive. #LifePhilosophy #Adventure",
	}
	s.analyze(w, r, "demo_user", bio, captions)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
