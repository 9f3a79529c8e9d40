package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"planscore/internal/auth"
	"planscore/internal/config"
	"planscore/internal/scoring"
	"planscore/internal/store"
	"planscore/internal/webhooks"
)

type Server struct {
	Store   store.Store
	Pub     *webhooks.Publisher
	Auth    *auth.Verifier
	Broker  EventBroker
	Scorer  *scoring.CharyparNagel
	Limiter *RateLimiter
	Log     zerolog.Logger
	// Workers bounds concurrent searches in a batch.
	Workers int
	// BaseConfig is the process-wide scoring config that tenant overrides
	// are overlaid on.
	BaseConfig scoring.Config
}

// NewServer wires the server from cfg. An empty DATABASE_URL selects the
// in-memory store and an empty REDIS_URL the in-process broker.
func NewServer(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Server, error) {
	var st store.Store
	if cfg.DatabaseURL == "" {
		st = store.NewMemory()
	} else {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		if cfg.DBMigrate {
			if err := pg.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		st = pg
	}

	var broker EventBroker
	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.RedisURL, log)
		if err != nil {
			log.Warn().Err(err).Msg("redis broker unavailable, using in-process broker")
			broker = NewBroker()
		} else {
			broker = rb
		}
	} else {
		broker = NewBroker()
	}

	base := scoring.ExampleConfig()
	if cfg.ScoringConfigPath != "" {
		c, err := scoring.LoadFile(cfg.ScoringConfigPath)
		if err != nil {
			return nil, err
		}
		base = c
	}

	return &Server{
		Store:      st,
		Pub:        webhooks.NewPublisher(cfg.WebhookURL, cfg.WebhookSecret, 256, log),
		Auth:       auth.NewVerifier(cfg.AuthMode, cfg.AuthHMACSecret),
		Broker:     broker,
		Scorer:     scoring.NewCharyparNagel(log),
		Limiter:    NewRateLimiter(cfg.RateRPS, cfg.RateBurst),
		Log:        log.With().Str("component", "api").Logger(),
		Workers:    cfg.RescheduleWorkers,
		BaseConfig: base,
	}, nil
}

// NewWebhookWorker creates the background delivery worker for s.Pub.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Pub, 5, s.Log)
}

// Routes registers every endpoint and wraps the mux in the middleware chain.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/score", s.ScoreHandler)
	mux.HandleFunc("/v1/reschedule", s.RescheduleHandler)
	mux.HandleFunc("/v1/reschedule/batch", s.BatchHandler)
	mux.HandleFunc("/v1/runs", s.RunsHandler)
	mux.HandleFunc("/v1/runs/", s.RunByIDHandler)
	mux.HandleFunc("/v1/scoring/config", s.ScoringConfigHandler)
	mux.HandleFunc("/v1/stream", s.StreamHandler)

	// Admin
	mux.HandleFunc("/v1/admin/scoring/config", s.AdminScoringConfigHandler)
	mux.HandleFunc("/v1/admin/reschedule-metrics", s.RescheduleMetricsHandler)
	mux.HandleFunc("/debug/info", s.DebugJSON)
	mux.Handle("/metrics", MetricsHandler())

	// Health
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)

	return s.logMiddleware(metricsMiddleware(s.rateLimitMiddleware(mux)))
}

// scoringConfig resolves the effective config for tenant: the base config,
// then the tenant's stored overrides, then the per-request overrides.
func (s *Server) scoringConfig(ctx context.Context, tenant string, override map[string]any) (scoring.Config, error) {
	raw := s.BaseConfig.Raw()
	stored, err := s.Store.GetScoringConfig(ctx, tenant)
	if err != nil {
		return scoring.Config{}, err
	}
	if stored != nil {
		raw = scoring.Overlay(raw, stored)
	}
	if override != nil {
		raw = scoring.Overlay(raw, override)
	}
	return scoring.ParseRaw(raw)
}
