package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	treasuryservice "ballotbox/contexts/finance-core/treasury-service"
	treasurypostgres "ballotbox/contexts/finance-core/treasury-service/adapters/postgres"
	treasuryworkers "ballotbox/contexts/finance-core/treasury-service/application/workers"
	pollservice "ballotbox/contexts/governance/poll-service"
	postgresadapter "ballotbox/contexts/governance/poll-service/adapters/postgres"
	workerapp "ballotbox/contexts/governance/poll-service/application/workers"
	"ballotbox/internal/platform/config"
	"ballotbox/internal/platform/db"
	"ballotbox/internal/platform/httpserver"
	"ballotbox/internal/platform/messaging"
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
	outboxRelay  workerapp.OutboxRelay
	treasury     treasuryworkers.PollEventsConsumer
	relayEnabled bool
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
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

	pollRepo := postgresadapter.NewRepository(pg.DB, logger)
	wallet := postgresadapter.NewWalletGateway(pg.DB, logger)
	pollModule := pollservice.NewModule(pollservice.Dependencies{
		Polls:           pollRepo,
		Funds:           wallet,
		Outbox:          pollRepo,
		Clock:           postgresadapter.SystemClock{},
		IDGen:           postgresadapter.UUIDGenerator{},
		MinContribution: cfg.MinContribution,
		Logger:          logger,
	})

	treasuryRepo := treasurypostgres.NewRepository(pg.DB, logger)
	treasuryModule := treasuryservice.NewModule(treasuryservice.Dependencies{
		Ledger:   treasuryRepo,
		Dedup:    treasuryRepo,
		Clock:    treasurypostgres.SystemClock{},
		IDGen:    treasurypostgres.UUIDGenerator{},
		DedupTTL: 7 * 24 * time.Hour,
		Logger:   logger,
	})

	server := httpserver.New(pollModule, treasuryModule, logger, normalizeAddr(cfg.HTTPPort))
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

	pollRepo := postgresadapter.NewRepository(pg.DB, logger)
	treasuryRepo := treasurypostgres.NewRepository(pg.DB, logger)
	treasuryService := treasuryservice.NewModule(treasuryservice.Dependencies{
		Ledger:   treasuryRepo,
		Dedup:    treasuryRepo,
		Clock:    treasurypostgres.SystemClock{},
		IDGen:    treasurypostgres.UUIDGenerator{},
		DedupTTL: 7 * 24 * time.Hour,
		Logger:   logger,
	}).Service

	return &WorkerApp{
		postgres: pg,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    pollRepo,
			Publisher: kafka,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		treasury: treasuryworkers.PollEventsConsumer{
			Subscriber:    kafka,
			Service:       treasuryService,
			ConsumerGroup: "treasury-service-poll-cg",
			Disabled:      !cfg.EnableTreasuryConsumer,
			Logger:        logger,
		},
		relayEnabled: cfg.EnablePollOutboxRelay,
		pollInterval: 2 * time.Second,
		logger:       logger,
	}, nil
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
	if err := w.treasury.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if w.relayEnabled {
			if err := w.outboxRelay.RunOnce(ctx); err != nil {
				return err
			}
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
