package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	settlementengine "meridian/contexts/finance-core/settlement-engine"
	settlementpostgres "meridian/contexts/finance-core/settlement-engine/adapters/postgres"
	"meridian/contexts/finance-core/settlement-engine/adapters/provider"
	"meridian/contexts/finance-core/settlement-engine/application/workers"
	"meridian/contexts/finance-core/settlement-engine/ports"
	sessionservice "meridian/contexts/identity-access/session-service"
	sessionmemory "meridian/contexts/identity-access/session-service/adapters/memory"
	sessionredis "meridian/contexts/identity-access/session-service/adapters/redis"
	sessionsystem "meridian/contexts/identity-access/session-service/adapters/system"
	sessionports "meridian/contexts/identity-access/session-service/ports"
	"meridian/internal/platform/cache"
	"meridian/internal/platform/config"
	"meridian/internal/platform/db"
	"meridian/internal/platform/httpserver"
	"meridian/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	accrual      workers.AccrualConsumer
	confirmation workers.ConfirmationConsumer
	outboxRelay  workers.OutboxRelay
	cfg          config.Config
	logger       *slog.Logger
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := settlementpostgres.NewRepository(pg.DB, logger)
	settlementModule := settlementengine.NewModule(settlementengine.Dependencies{
		Payouts:       repo,
		Provider:      buildProvider(cfg, logger),
		EventDedup:    repo,
		Outbox:        repo,
		Clock:         settlementpostgres.SystemClock{},
		IDGenerator:   settlementpostgres.UUIDGenerator{},
		EventDedupTTL: cfg.EventDedupTTL,
		Logger:        logger,
	})

	sessionStore, err := buildSessionStore(ctx, cfg)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}
	sessionModule := sessionservice.NewModule(sessionservice.Dependencies{
		Sessions:   sessionStore,
		Clock:      sessionsystem.SystemClock{},
		Tokens:     sessionsystem.UUIDTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	})

	server := httpserver.New(settlementModule, sessionModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := settlementpostgres.NewRepository(pg.DB, logger)
	module := settlementengine.NewModule(settlementengine.Dependencies{
		Payouts:       repo,
		Provider:      buildProvider(cfg, logger),
		EventDedup:    repo,
		Outbox:        repo,
		Subscriber:    kafka,
		Clock:         settlementpostgres.SystemClock{},
		IDGenerator:   settlementpostgres.UUIDGenerator{},
		EventDedupTTL: cfg.EventDedupTTL,
		Logger:        logger,
	})

	return &WorkerApp{
		postgres: pg,
		accrual:  module.Accrual,
		confirmation: workers.ConfirmationConsumer{
			Subscriber: kafka,
			Engine:     module.Service,
			Logger:     logger,
		},
		outboxRelay: workers.OutboxRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     settlementpostgres.SystemClock{},
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		cfg:    cfg,
		logger: logger,
	}, nil
}

func buildProvider(cfg config.Config, logger *slog.Logger) ports.SettlementProvider {
	if strings.TrimSpace(cfg.ProviderBaseURL) != "" {
		return provider.NewHTTPProvider(provider.HTTPProviderConfig{
			BaseURL: cfg.ProviderBaseURL,
			APIKey:  cfg.ProviderAPIKey,
			Logger:  logger,
		})
	}
	return provider.NewMemoryProvider()
}

func buildSessionStore(ctx context.Context, cfg config.Config) (sessionports.SessionStore, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return sessionmemory.NewStore(), nil
	}
	client, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return sessionredis.NewStore(client), nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.cfg.EnableAccrualConsumer {
		if err := w.accrual.Start(ctx); err != nil {
			return err
		}
	}
	if w.cfg.EnableConfirmationConsumer {
		if err := w.confirmation.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.cfg.PollInterval.String(),
	)

	for {
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
