// Package api exposes the rewards engine over an HTTP admin interface.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/observability"
	"holder-rewards/internal/rewards"
)

// Service is the engine surface served over HTTP. *rewards.Service implements it.
type Service interface {
	PrepareDraw(ctx context.Context) (*domain.SyncStats, error)
	ListEligible(ctx context.Context) ([]*domain.HolderRecord, error)
	ListLedger(ctx context.Context) ([]*domain.HolderRecord, error)
	Exclude(ctx context.Context, address, reason, by string) (*domain.ExclusionRecord, error)
	Include(ctx context.Context, address, by string) error
	Exclusions(ctx context.Context) ([]*domain.ExclusionRecord, error)
	ExclusionHistory(ctx context.Context, address string) ([]*domain.ExclusionRecord, error)
	RunDraw(ctx context.Context, prize uint64) (*domain.DrawResult, error)
	Draws(ctx context.Context, limit int) ([]*domain.DrawResult, error)
	Distributions(ctx context.Context, limit int) ([]*domain.Distribution, error)
	StartMonitor(ctx context.Context) error
	StopMonitor() error
	Status() rewards.Status
}

var _ Service = (*rewards.Service)(nil)

// Options contains configuration for creating a Server.
type Options struct {
	Service Service
	// AdminToken, when set, is required as a bearer token on /api routes.
	AdminToken string
	Logger     log.FieldLogger
}

// Server routes admin requests to the service.
type Server struct {
	router     *chi.Mux
	svc        Service
	adminToken string
	logger     log.FieldLogger
}

// NewServer creates a server with all routes registered.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	s := &Server{
		router:     chi.NewRouter(),
		svc:        opts.Service,
		adminToken: opts.AdminToken,
		logger:     opts.Logger.WithField("component", "api"),
	}
	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", observability.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.requireToken)

		r.Post("/prepare", s.handlePrepare)
		r.Get("/eligible", s.handleEligible)
		r.Get("/ledger", s.handleLedger)

		r.Get("/exclusions", s.handleListExclusions)
		r.Post("/exclusions", s.handleExclude)
		r.Delete("/exclusions/{address}", s.handleInclude)
		r.Get("/exclusions/{address}/history", s.handleExclusionHistory)

		r.Post("/draws", s.handleRunDraw)
		r.Get("/draws", s.handleListDraws)
		r.Get("/distributions", s.handleListDistributions)

		r.Post("/monitor/start", s.handleStartMonitor)
		r.Post("/monitor/stop", s.handleStopMonitor)
		r.Get("/monitor/status", s.handleMonitorStatus)
	})
}

// requestLogger logs each request and records it under its route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		elapsed := time.Since(start)
		observability.RecordHTTPRequest(r.Method, path, ww.Status(), elapsed.Seconds())

		entry := s.logger.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   elapsed,
			"request_id": middleware.GetReqID(r.Context()),
		})
		if ww.Status() >= http.StatusInternalServerError {
			entry.Error("Request failed")
			return
		}
		entry.Debug("Request served")
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
