package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/biz/repo"
	"github.com/devricklin/chatguard/internal/biz/usecase"
	"github.com/devricklin/chatguard/internal/service"
)

// Deps are the collaborators of the admin HTTP API
type Deps struct {
	Whitelist *usecase.WhitelistUsecase
	Keywords  *usecase.KeywordUsecase
	Profiles  *usecase.ProfileProvider
	Stats     *service.StatsService
	Reports   repo.ReportRepo
	Platform  string
	Logger    *zap.Logger
}

// Server serves health checks, metrics and the admin API
type Server struct {
	Deps
	started time.Time
	server  *http.Server
	addr    string
	logger  *zap.Logger
}

// NewServer creates a new API server listening on host:port
func NewServer(deps Deps, host string, port int) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Deps:    deps,
		started: time.Now(),
		addr:    fmt.Sprintf("%s:%d", host, port),
		logger:  logger.Named("api"),
	}
}

// Router returns the HTTP routes
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/stats", s.handleStats)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Whitelist management
		r.Get("/whitelist", s.handleWhitelistList)
		r.Post("/whitelist", s.handleWhitelistAdd)
		r.Delete("/whitelist/{userID}", s.handleWhitelistRemove)

		// Learned keywords
		r.Get("/keywords", s.handleKeywordList)
		r.Post("/keywords", s.handleKeywordAdd)
		r.Delete("/keywords/{keyword}", s.handleKeywordRemove)

		r.Post("/score", s.handleScore)
		r.Get("/reports/spam", s.handleRecentSpam)
		r.Post("/signals/reload", s.handleReload)
	})
	return r
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting HTTP server", zap.String("addr", s.addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the HTTP server down
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":  "chatguard",
		"status":   "running",
		"platform": s.Platform,
		"uptime":   time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Stats.Today(r.Context(), r.URL.Query().Get("chat_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ============ Whitelist Handlers ============

type whitelistEntry struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	AddedBy   string    `json:"added_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleWhitelistList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Whitelist.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]whitelistEntry, len(entries))
	for i, e := range entries {
		out[i] = whitelistEntry{UserID: e.UserID, Username: e.Username, AddedBy: e.AddedBy, CreatedAt: e.CreatedAt}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": out})
}

func (s *Server) handleWhitelistAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}
	if err := s.Whitelist.Add(r.Context(), req.UserID, req.Username, "api"); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handleWhitelistRemove(w http.ResponseWriter, r *http.Request) {
	removed, err := s.Whitelist.Remove(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, errors.New("user is not whitelisted"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// ============ Keyword Handlers ============

type keywordEntry struct {
	Keyword       string    `json:"keyword"`
	Category      string    `json:"category"`
	AddedBy       string    `json:"added_by"`
	AddedAt       time.Time `json:"added_at"`
	SourceExcerpt string    `json:"source_excerpt,omitempty"`
	Active        bool      `json:"active"`
}

func (s *Server) handleKeywordList(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") == "true"
	var out []keywordEntry
	for _, e := range s.Keywords.AllEntries() {
		if !all && !e.Active {
			continue
		}
		out = append(out, keywordEntry{
			Keyword:       e.Keyword,
			Category:      e.Category,
			AddedBy:       e.AddedBy,
			AddedAt:       e.AddedAt,
			SourceExcerpt: e.SourceExcerpt,
			Active:        e.Active,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"keywords": out})
}

func (s *Server) handleKeywordAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keyword       string `json:"keyword"`
		Category      string `json:"category"`
		SourceExcerpt string `json:"source_excerpt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if domain.NormalizeKeyword(req.Keyword) == "" {
		writeError(w, http.StatusBadRequest, errors.New("keyword is required"))
		return
	}
	if req.Category == "" {
		req.Category = "manual"
	}
	if !s.Keywords.Add(r.Context(), req.Keyword, req.Category, "api", req.SourceExcerpt) {
		writeError(w, http.StatusConflict, errors.New("keyword is already learned"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "keyword": domain.NormalizeKeyword(req.Keyword)})
}

func (s *Server) handleKeywordRemove(w http.ResponseWriter, r *http.Request) {
	if !s.Keywords.Deactivate(r.Context(), chi.URLParam(r, "keyword")) {
		writeError(w, http.StatusNotFound, errors.New("keyword is not active"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// ============ Scoring Handlers ============

type scoreResponse struct {
	IsSpam  bool     `json:"is_spam"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text        string `json:"text"`
		HasMedia    bool   `json:"has_media"`
		IsNewMember bool   `json:"is_new_member"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res := usecase.Evaluate(req.Text, req.HasMedia, req.IsNewMember, false, service.CurrentSignals(s.Profiles, s.Keywords))
	reasons := res.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	writeJSON(w, http.StatusOK, scoreResponse{IsSpam: res.IsSpam, Score: res.TotalScore, Reasons: reasons})
}

type spamReport struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Text      string    `json:"text"`
	Score     int       `json:"score"`
	Reasons   []string  `json:"reasons"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleRecentSpam(w http.ResponseWriter, r *http.Request) {
	if s.Reports == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("report log is not configured"))
		return
	}
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}
	reports, err := s.Reports.RecentSpam(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]spamReport, len(reports))
	for i, rep := range reports {
		out[i] = spamReport{
			ID:        rep.ID,
			ChatID:    rep.ChatID,
			UserID:    rep.UserID,
			Username:  rep.Username,
			Text:      rep.Text,
			Score:     rep.Score,
			Reasons:   rep.Reasons,
			Source:    rep.Source,
			CreatedAt: rep.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": out})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Keywords.Load(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if err := s.Profiles.Reload(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	p := s.Profiles.Current()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"keywords":   len(p.Signals.Keywords),
		"domains":    len(p.Signals.SuspiciousDomains),
		"challenges": len(p.Verification.Challenges),
		"learned":    len(s.Keywords.ActiveKeywords()),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
