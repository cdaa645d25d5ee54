// Package api serves the loaded company database over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/company-enrich/internal/company"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

type server struct {
	store company.Store
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter returns the read-only HTTP API over store.
func NewRouter(store company.Store) http.Handler {
	s := &server{store: store}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/companies", func(r chi.Router) {
		r.Get("/", s.handleSearch)
		r.Get("/{id}", s.handleProfile)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	limit := clampInt(r.URL.Query().Get("limit"), defaultLimit, maxLimit)

	companies, err := s.store.SearchCompanies(r.Context(), name, limit)
	if err != nil {
		zap.L().Error("api: search companies", zap.String("name", name), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "search failed"})
		return
	}
	if companies == nil {
		companies = []company.Company{}
	}
	writeJSON(w, http.StatusOK, companies)
}

func (s *server) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid company id"})
		return
	}

	profile, err := s.store.GetProfile(r.Context(), id)
	if err != nil {
		zap.L().Error("api: get profile", zap.Int64("company_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "lookup failed"})
		return
	}
	if profile == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "company not found"})
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	if v > max {
		return max
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
