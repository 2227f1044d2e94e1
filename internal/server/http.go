// Package server exposes the read-side HTTP API: account margin
// summaries, market state, and the log head, plus health probes.
package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"crossmargin/internal/engine"
	"crossmargin/internal/observability"
	"crossmargin/internal/query"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Server struct {
	svc     *query.Service
	eng     *engine.Engine
	health  *observability.HealthChecker
	metrics *observability.Metrics
	logger  zerolog.Logger
}

func New(
	svc *query.Service,
	eng *engine.Engine,
	health *observability.HealthChecker,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	return &Server{svc: svc, eng: eng, health: health, metrics: metrics, logger: logger}
}

// Router builds the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health.LivenessHandler)
	r.Get("/readyz", s.health.ReadinessHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/accounts/{account_id}/margin", s.handleAccountMargin)
		r.Get("/markets", s.handleMarkets)
		r.Get("/head", s.handleHead)
	})

	return r
}

func (s *Server) handleAccountMargin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	accountID := chi.URLParam(r, "account_id")

	resp, err := s.svc.AccountMargin(accountID)
	switch {
	case errors.Is(err, query.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "account not found")
		s.observe("account_margin", "404", start)
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, "internal error")
		s.observe("account_margin", "500", start)
	default:
		s.writeJSON(w, resp)
		s.observe("account_margin", "200", start)
	}
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.writeJSON(w, s.svc.Markets())
	s.observe("markets", "200", start)
}

func (s *Server) handleHead(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	hash := s.eng.StateHash()
	s.writeJSON(w, query.HeadResponse{
		NextSequence: s.eng.Sequence(),
		StateHash:    hex.EncodeToString(hash[:]),
	})
	s.observe("head", "200", start)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("response encode failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) observe(endpoint, status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.QueryRequests.WithLabelValues(endpoint, status).Inc()
	s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
