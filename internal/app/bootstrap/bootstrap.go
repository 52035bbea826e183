package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	notificationengine "meridian/contexts/field-operations/notification-engine"
	postgresadapter "meridian/contexts/field-operations/notification-engine/adapters/postgres"
	"meridian/contexts/field-operations/notification-engine/application"
	"meridian/contexts/field-operations/notification-engine/ports"
	"meridian/internal/platform/config"
	"meridian/internal/platform/db"
	"meridian/internal/platform/httpserver"
	"meridian/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server          *httpserver.Server
	postgres        *db.Postgres
	engine          notificationengine.Module
	consumerEnabled bool
	logger          *slog.Logger
}

type WorkerApp struct {
	postgres *db.Postgres
	engine   notificationengine.Module
	logger   *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	pg, module, err := buildEngine(cfg, kafka, logger)
	if err != nil {
		return nil, err
	}

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:          server,
		postgres:        pg,
		engine:          module,
		consumerEnabled: cfg.EnableEventConsumer,
		logger:          logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	pg, module, err := buildEngine(cfg, kafka, logger)
	if err != nil {
		return nil, err
	}

	return &WorkerApp{
		postgres: pg,
		engine:   module,
		logger:   logger,
	}, nil
}

func buildEngine(cfg config.Config, kafka *messaging.Kafka, logger *slog.Logger) (*db.Postgres, notificationengine.Module, error) {
	if cfg.UseInMemoryStore {
		return nil, notificationengine.NewInMemoryModule(kafka, kafka, logger), nil
	}

	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, notificationengine.Module{}, errors.New("POSTGRES_DSN is required")
	}
	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, notificationengine.Module{}, err
	}

	repo := postgresadapter.NewRepository(pg.DB, db.DetectCapabilities(pg), logger)
	module := notificationengine.NewModule(notificationengine.Dependencies{
		Notifications: repo,
		Rules:         repo,
		Directory:     repo,
		Tasks:         repo,
		Leads:         repo,
		WorkOrders:    repo,
		Conversations: repo,
		Publisher:     kafka,
		Subscriber:    kafka,
		Clock:         postgresadapter.SystemClock{},
		IDGen:         postgresadapter.UUIDGenerator{},
		Logger:        logger,
	})
	return pg, module, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	if a.consumerEnabled {
		if err := a.engine.Consumer.Start(ctx); err != nil {
			return err
		}
	}
	if a.engine.Store != nil {
		if err := a.subscribeUnreadInvalidation(ctx); err != nil {
			return err
		}
	}
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"consumer_enabled", a.consumerEnabled,
	)
	return a.server.Start()
}

// subscribeUnreadInvalidation keeps the memory store's unread-count cache
// coherent with dispatch inserts flowing over the bus.
func (a *APIApp) subscribeUnreadInvalidation(ctx context.Context) error {
	store := a.engine.Store
	return a.engine.Consumer.Subscriber.Subscribe(
		ctx,
		application.TopicInboxInvalidated,
		"field-operations.notification-engine.unread-cache",
		func(_ context.Context, event ports.EventEnvelope) error {
			store.InvalidateUnread(event.EntityID)
			return nil
		},
	)
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.engine.Consumer.Start(ctx); err != nil {
		return err
	}

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)

	<-ctx.Done()
	return nil
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
