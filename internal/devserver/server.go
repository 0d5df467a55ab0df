// Package devserver is a small development server for the app shell. It
// serves the embedded assets with the MIME types and headers a PWA needs,
// answers CORS preflights, and mocks the usage API so the shell has
// something to render.
package devserver

import (
	"context"
	"encoding/json"
	"io/fs"
	"math/rand"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/mkarpov/usagevault/internal/logging"
	"github.com/mkarpov/usagevault/internal/stats"
)

// mimeOverrides forces the content types browsers require for PWA assets,
// regardless of what the platform's MIME database says.
var mimeOverrides = map[string]string{
	".webmanifest": "application/manifest+json",
	".js":          "application/javascript",
	".mjs":         "application/javascript",
	".css":         "text/css",
	".svg":         "image/svg+xml",
	".webp":        "image/webp",
	".ico":         "image/x-icon",
}

// Server serves the app shell plus mock API endpoints.
type Server struct {
	assets fs.FS
	logger logging.Logger
	now    func() time.Time
}

func New(assets fs.FS, logger logging.Logger) *Server {
	return &Server{assets: assets, logger: logger, now: time.Now}
}

// Handler returns the dev server's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/validate", s.handleValidate)
	mux.HandleFunc("/api/usage", s.handleUsage)
	mux.Handle("/", http.FileServer(http.FS(s.assets)))
	return s.withHeaders(mux)
}

// withHeaders applies the security, no-cache and CORS headers to every
// response and short-circuits CORS preflights. Development caching is
// disabled outright so the offline layer under test is always the one
// doing the caching.
func (s *Server) withHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		if mime, ok := mimeOverrides[strings.ToLower(path.Ext(r.URL.Path))]; ok {
			h.Set("Content-Type", mime)
		}

		s.logger.Debug(r.Context(), "request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleValidate mocks key validation: any key is reported valid, matching
// the no-verification auth flow the client implements.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"valid":   true,
		"message": "API key is valid",
	})
}

type dailyUsage struct {
	Date     string  `json:"date"`
	Tokens   uint64  `json:"tokens"`
	APICalls uint64  `json:"apiCalls"`
	Cost     float64 `json:"cost"`
}

type usagePayload struct {
	TotalTokens uint64       `json:"totalTokens"`
	APICalls    uint64       `json:"apiCalls"`
	TotalCost   float64      `json:"totalCost"`
	WebTokens   uint64       `json:"webTokens"`
	CodeTokens  uint64       `json:"codeTokens"`
	DailyUsage  []dailyUsage `json:"dailyUsage"`
	UsageLimit  uint64       `json:"usageLimit"`
	LastUpdated string       `json:"lastUpdated"`
}

// handleUsage fabricates a plausible 7-day usage payload for the shell.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	rng := rand.New(rand.NewSource(now.UnixNano()))

	var payload usagePayload
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		tokens := uint64(rng.Intn(140_000) + 10_000)
		payload.DailyUsage = append(payload.DailyUsage, dailyUsage{
			Date:     day.Format("2006-01-02"),
			Tokens:   tokens,
			APICalls: tokens / 500,
			Cost:     stats.CostFor("claude-3-5-sonnet", tokens),
		})
		payload.TotalTokens += tokens
		payload.APICalls += tokens / 500
	}
	payload.TotalCost = stats.CostFor("claude-3-5-sonnet", payload.TotalTokens)
	payload.WebTokens = payload.TotalTokens * 7 / 10
	payload.CodeTokens = payload.TotalTokens - payload.WebTokens
	payload.UsageLimit = 5_000_000
	payload.LastUpdated = now.Format(time.RFC3339)

	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn(context.Background(), "failed to write response", "error", err)
	}
}
