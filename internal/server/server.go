package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/adoptrack/internal/adoption"
	"github.com/dukerupert/adoptrack/internal/config"
	"github.com/dukerupert/adoptrack/internal/email"
	"github.com/dukerupert/adoptrack/internal/handler"
	"github.com/dukerupert/adoptrack/internal/metrics"
	"github.com/dukerupert/adoptrack/internal/middleware"
	"github.com/dukerupert/adoptrack/internal/notify"
	"github.com/dukerupert/adoptrack/internal/push"
	"github.com/dukerupert/adoptrack/internal/store"
	"github.com/dukerupert/adoptrack/internal/sweep"
	ws "github.com/dukerupert/adoptrack/internal/websocket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// apiRequestsPerMinute caps authenticated API traffic per client IP.
const apiRequestsPerMinute = 300

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	registry    *prometheus.Registry
	adoptions   *adoption.Service
	sweeper     *sweep.Sweeper
	scheduler   *sweep.Scheduler
	adoptionH   *handler.AdoptionHandler
	userH       *handler.UserHandler
	alertH      *handler.AlertHandler
	pushH       *handler.PushHandler
	staffAuth   *middleware.StaffAuth
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger

	stopCleanup context.CancelFunc
}

// New wires the service graph for cfg on top of an open database.
func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	complianceAt, err := sweep.ParseTimeOfDay(cfg.ComplianceAt)
	if err != nil {
		return nil, fmt.Errorf("compliance time: %w", err)
	}
	completionAt, err := sweep.ParseTimeOfDay(cfg.CompletionAt)
	if err != nil {
		return nil, fmt.Errorf("completion time: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	hub := ws.NewHub(logger, m)
	pushStore := store.NewPushStore(db)

	gw, err := newGateway(cfg, pushStore, logger)
	if err != nil {
		return nil, err
	}
	notifier := notify.New(gw, cfg.Channel, logger, m)

	adoptions := adoption.NewService(db, notifier,
		adoption.WithLocation(loc),
		adoption.WithLogger(logger),
		adoption.WithMetrics(m),
		adoption.WithPublisher(hub),
	)
	sweeper := sweep.NewSweeper(db, notifier,
		sweep.WithLocation(loc),
		sweep.WithLogger(logger),
		sweep.WithMetrics(m),
		sweep.WithPublisher(hub),
		sweep.WithDeadline(cfg.ReportDeadline),
		sweep.WithEscalateAfter(cfg.EscalateAfterDays),
	)
	scheduler := sweep.NewScheduler([]sweep.Job{
		{Name: sweep.NameCompliance, At: complianceAt, Run: discardResult(sweeper.Compliance)},
		{Name: sweep.NameCompletion, At: completionAt, Run: discardResult(sweeper.Completion)},
	},
		sweep.WithSchedulerLocation(loc),
		sweep.WithInterval(cfg.TickInterval),
		sweep.WithSchedulerLogger(logger),
	)

	tokens, err := staffTokens(cfg.StaffTokens)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		logger.Warn("no staff tokens configured; the API will reject every request")
	}
	rateLimiter := middleware.NewRateLimiter()

	return &Server{
		db:        db,
		hub:       hub,
		registry:  registry,
		adoptions: adoptions,
		sweeper:   sweeper,
		scheduler: scheduler,
		adoptionH: handler.NewAdoptionHandler(adoptions, logger.With("component", "adoption_handler")),
		userH:     handler.NewUserHandler(adoptions, logger.With("component", "user_handler")),
		alertH:    handler.NewAlertHandler(store.NewAlertStore(db), logger.With("component", "alert_handler")),
		pushH:     handler.NewPushHandler(store.NewUserStore(db), pushStore, cfg.VAPIDPublicKey, logger.With("component", "push_handler")),
		staffAuth: &middleware.StaffAuth{
			Tokens:      tokens,
			Limiter:     rateLimiter,
			MaxFailures: cfg.AuthMaxFailures,
			Window:      cfg.AuthWindow,
			Logger:      logger.With("component", "auth"),
		},
		rateLimiter: rateLimiter,
		logger:      logger,
	}, nil
}

func newGateway(cfg *config.Config, subs *store.PushStore, logger *slog.Logger) (notify.Gateway, error) {
	switch cfg.Channel {
	case config.ChannelLog:
		return notify.NewLogGateway(logger.With("component", "notify_log")), nil
	case config.ChannelEmail:
		return email.NewClient(cfg.PostmarkToken, cfg.PostmarkFrom, email.WithShelterName(cfg.ShelterName)), nil
	case config.ChannelPush:
		return push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber, subs,
			push.WithLogger(logger.With("component", "push")),
		), nil
	}
	return nil, fmt.Errorf("unknown notification channel %q", cfg.Channel)
}

func staffTokens(hashes map[string]string) ([]middleware.StaffToken, error) {
	tokens := make([]middleware.StaffToken, 0, len(hashes))
	for name, hash := range hashes {
		if name == "" || hash == "" {
			return nil, fmt.Errorf("staff token entries must be name:hash")
		}
		tokens = append(tokens, middleware.StaffToken{Name: name, Hash: []byte(hash)})
	}
	return tokens, nil
}

func discardResult(sweepFn func(context.Context) (sweep.Result, error)) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := sweepFn(ctx)
		return err
	}
}

// Adoptions returns the adoption service.
func (s *Server) Adoptions() *adoption.Service {
	return s.adoptions
}

// Sweeper returns the sweeper for one-off runs.
func (s *Server) Sweeper() *sweep.Sweeper {
	return s.sweeper
}

// Start launches the daily sweeps and periodic limiter cleanup.
func (s *Server) Start(ctx context.Context) {
	s.scheduler.Start(ctx)

	ctx, s.stopCleanup = context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.rateLimiter.Cleanup()
			}
		}
	}()
}

// Stop halts background work and waits for a running sweep to finish.
func (s *Server) Stop() {
	if s.stopCleanup != nil {
		s.stopCleanup()
	}
	s.scheduler.Stop()
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// Protected routes
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	limit := middleware.RateLimit(s.rateLimiter, apiKey, apiRequestsPerMinute, time.Minute)
	outerMux.Handle("/", limit(s.staffAuth.Require(protectedMux)))

	return middleware.RequestID(middleware.RequestLogger(s.logger.With("component", "http"))(outerMux))
}

// apiKey keeps request counts apart from the auth failure counts, which are
// keyed on the bare IP in the same limiter.
func apiKey(r *http.Request) string {
	return "api:" + middleware.RealIP(r)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Adoptions, one partition per shelter
	mux.HandleFunc("POST /api/shelters/{species}/adoptions", s.adoptionH.Create)
	mux.HandleFunc("GET /api/shelters/{species}/adoptions", s.adoptionH.List)
	mux.HandleFunc("GET /api/shelters/{species}/adoptions/{id}", s.adoptionH.Get)
	mux.HandleFunc("PUT /api/shelters/{species}/adoptions/{id}/trial", s.adoptionH.SetTrial)
	mux.HandleFunc("DELETE /api/shelters/{species}/adoptions/{id}", s.adoptionH.Delete)
	mux.HandleFunc("GET /api/shelters/{species}/adoptions/{id}/reports", s.adoptionH.Reports)

	// Users
	mux.HandleFunc("GET /api/users/{id}/active-adoption", s.userH.ActiveAdoption)
	mux.HandleFunc("POST /api/users/{id}/warning", s.userH.Warn)
	mux.HandleFunc("POST /api/users/{id}/push-subscriptions", s.pushH.Subscribe)

	// Volunteer alerts
	mux.HandleFunc("GET /api/alerts", s.alertH.List)
	mux.HandleFunc("POST /api/alerts/{id}/resolve", s.alertH.Resolve)

	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)

	// Live staff feed
	mux.HandleFunc("GET /ws", ws.HandleFeed(s.hub, s.logger.With("component", "feed")))
}
