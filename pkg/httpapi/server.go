// SPDX-License-Identifier: Apache-2.0

// Package httpapi exposes the TraceLens control plane over HTTP+JSON.
// Handlers run store operations through the result type and map the
// outcome onto the response: Ok becomes the JSON body, Err becomes a
// problem document.
package httpapi

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tracelens/tracelens/pkg/errors"
	"github.com/tracelens/tracelens/pkg/session"
	"github.com/tracelens/tracelens/pkg/store"
	"github.com/tracelens/tracelens/pkg/telemetry"
)

// Server routes HTTP+JSON requests to the control-plane stores.
type Server struct {
	agents    *store.AgentStore
	dbconfigs *store.DBConfigStore
	secrets   *store.SecretStore
	usage     *store.UsageStore
	sessions  *session.Registry

	metrics       *telemetry.APIMetrics
	logger        *slog.Logger
	adminToken    string
	revealEnabled bool

	limiterMu sync.RWMutex
	limiter   *rate.Limiter // nil disables limiting
}

// Options configures a Server.
type Options struct {
	AdminToken    string
	RevealEnabled bool
	RateLimit     float64 // requests per second, 0 disables limiting
	RateBurst     int
	Metrics       *telemetry.APIMetrics
	Logger        *slog.Logger
}

// New creates the API server.
func New(agents *store.AgentStore, dbconfigs *store.DBConfigStore, secrets *store.SecretStore,
	usage *store.UsageStore, sessions *session.Registry, opts Options) *Server {
	s := &Server{
		agents:        agents,
		dbconfigs:     dbconfigs,
		secrets:       secrets,
		usage:         usage,
		sessions:      sessions,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		adminToken:    opts.AdminToken,
		revealEnabled: opts.RevealEnabled,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.limiter = newLimiter(opts.RateLimit, opts.RateBurst)
	return s
}

func newLimiter(limit float64, burst int) *rate.Limiter {
	if limit <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(limit), burst)
}

// SetRateLimit replaces the request rate limit at runtime, for config
// reloads. A non-positive limit disables limiting.
func (s *Server) SetRateLimit(limit float64, burst int) {
	s.limiterMu.Lock()
	s.limiter = newLimiter(limit, burst)
	s.limiterMu.Unlock()
}

// Handler returns the server wrapped in its middleware chain.
func (s *Server) Handler() http.Handler {
	return s.instrument(http.HandlerFunc(s.route))
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	s.limiterMu.RLock()
	limiter := s.limiter
	s.limiterMu.RUnlock()
	if limiter != nil && !limiter.Allow() {
		s.fail(w, r, errors.New(errors.CodeRateLimit, "too many requests", nil))
		return
	}

	segments := normalizePath(r.URL.Path)
	if len(segments) == 0 {
		http.NotFound(w, r)
		return
	}
	if segments[0] == "healthz" {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	if segments[0] != "v1" || len(segments) < 2 {
		http.NotFound(w, r)
		return
	}

	// Session routes do their own authorization: login is reachable without
	// an existing session (admin token instead), reset is admin-only.
	switch segments[1] {
	case "sessions":
		s.handleSessions(w, r, segments[2:])
		return
	case "sessions:reset":
		if r.Method != http.MethodPost || len(segments) > 2 {
			http.NotFound(w, r)
			return
		}
		s.resetSessions(w, r)
		return
	}
	if err := s.authorize(r); err != nil {
		s.fail(w, r, err)
		return
	}

	switch segments[1] {
	case "agents":
		s.handleAgents(w, r, segments[2:])
	case "dbconfigs":
		s.handleDBConfigs(w, r, segments[2:])
	case "vault":
		s.handleVault(w, r, segments[2:])
	case "metrics":
		s.handleMetrics(w, r, segments[2:])
	default:
		http.NotFound(w, r)
	}
}

// authorize accepts the admin bootstrap token or a live session token.
func (s *Server) authorize(r *http.Request) error {
	token := bearerToken(r.Header)
	if token == "" {
		return errors.Unauthorized("missing bearer token")
	}
	if s.adminToken != "" && token == s.adminToken {
		return nil
	}
	_, err := s.sessions.Lookup(token)
	return err
}

// fail renders err and records it against the request's route.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	se := errors.AsServiceError(err)
	code := string(se.Code)
	if code == "" {
		code = "UNCLASSIFIED"
	}
	s.metrics.RecordError(r.Context(), routeLabel(r.URL.Path), code)
	writeError(w, err)
}

func bearerToken(h http.Header) string {
	value := h.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(value), "bearer ") {
		return ""
	}
	return strings.TrimSpace(value[len("bearer "):])
}

func normalizePath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// routeLabel reduces a request path to a low-cardinality metric label by
// keeping the first three segments.
func routeLabel(path string) string {
	segments := normalizePath(path)
	if len(segments) > 3 {
		segments = segments[:3]
	}
	return "/" + strings.Join(segments, "/")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := routeLabel(r.URL.Path)
		s.metrics.RecordRequest(r.Context(), route, rec.status, elapsed)
		s.logger.InfoContext(r.Context(), "http.request",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", elapsed),
		)
	})
}
