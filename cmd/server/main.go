// Command server runs the release control service: consent issuance, the
// policy decision point, and the enforcement pipeline behind one HTTP
// surface.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twmb/franz-go/pkg/kgo"

	"placet/internal/consent"
	consentsvc "placet/internal/consent/service"
	"placet/internal/decision"
	decisionMetrics "placet/internal/decision/metrics"
	"placet/internal/platform/config"
	"placet/internal/platform/httpserver"
	"placet/internal/platform/logger"
	"placet/internal/platform/metrics"
	platformpg "placet/internal/platform/postgres"
	platformredis "placet/internal/platform/redis"
	"placet/internal/platform/token"
	"placet/internal/release"
	"placet/internal/release/adapters"
	releaseMetrics "placet/internal/release/metrics"
	httptransport "placet/internal/transport/http"
	"placet/pkg/platform/audit"
	"placet/pkg/platform/audit/publisher"
	auditmem "placet/pkg/platform/audit/store/memory"
	auditpg "placet/pkg/platform/audit/store/postgres"
	auditworker "placet/pkg/platform/audit/worker"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildConsentStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("consent store: %w", err)
	}
	defer closeStore()

	auditStore, kafkaClient, err := buildAuditStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("audit store: %w", err)
	}
	pub := publisher.NewPublisher(auditStore,
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(1024),
	)
	defer pub.Close()

	if outbox, ok := auditStore.(*auditpg.Store); ok && kafkaClient != nil {
		defer kafkaClient.Close()
		w := auditworker.New(outbox, kafkaClient, cfg.Kafka.AuditTopic, cfg.Kafka.OutboxBatch, log)
		go w.Run(ctx, cfg.Kafka.PollEvery)
	}

	consentSvc := consentsvc.NewService(store, pub, log, consentsvc.Limits{
		MaxTTL:     cfg.Consent.MaxTTL,
		DefaultTTL: cfg.Consent.DefaultTTL,
	})
	go consentSvc.RunJanitor(ctx, cfg.Consent.CleanupInterval)

	pdp := decision.NewService(store, decisionMetrics.New())

	signer, err := buildSigner(cfg)
	if err != nil {
		return fmt.Errorf("signer: %w", err)
	}
	pipeline := release.NewPipeline(
		adapters.NewSchemaValidator(),
		pdp,
		signer,
		adapters.NewLogDeliverer(log),
		pub,
		releaseMetrics.New(),
		log,
		cfg.Signing.Timeout,
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Release:      pipeline,
		Consent:      consentSvc,
		Logger:       log,
		Metrics:      metrics.New(),
		JWTValidator: token.NewHMACValidator(cfg.Server.JWTSigningKey),
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr, "consent_store", cfg.Consent.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildConsentStore selects the consent backend. Memory is the default for
// single-instance deployments; redis and postgres share state across
// replicas.
func buildConsentStore(ctx context.Context, cfg config.Config, log *slog.Logger) (consent.Store, func(), error) {
	noop := func() {}
	switch cfg.Consent.Store {
	case "memory", "":
		return consent.NewInMemoryStore(), noop, nil
	case "redis":
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		if client == nil {
			return nil, noop, fmt.Errorf("PLACET_REDIS_URL is required for the redis store")
		}
		return consent.NewRedisStore(client.Client), func() { _ = client.Close() }, nil
	case "postgres":
		if cfg.Postgres.URL == "" {
			return nil, noop, fmt.Errorf("PLACET_POSTGRES_URL is required for the postgres store")
		}
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, noop, err
		}
		store := consent.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return store, pool.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown consent store %q", cfg.Consent.Store)
	}
}

// buildAuditStore prefers the Postgres outbox when configured; the worker
// then relays events to Kafka. Without Postgres the trail stays in memory.
func buildAuditStore(ctx context.Context, cfg config.Config) (audit.Store, *kgo.Client, error) {
	if cfg.Postgres.URL == "" {
		return auditmem.NewInMemoryStore(), nil, nil
	}
	db, err := platformpg.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	store := auditpg.New(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, nil, err
	}

	if len(cfg.Kafka.Brokers) == 0 {
		return store, nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Kafka.Brokers...),
		kgo.DefaultProduceTopic(cfg.Kafka.AuditTopic),
	)
	if err != nil {
		return nil, nil, err
	}
	return store, client, nil
}

func buildSigner(cfg config.Config) (release.Signer, error) {
	if cfg.Signing.BundlePath == "" {
		return adapters.UnconfiguredSigner{}, nil
	}
	return adapters.NewLocalSigner(cfg.Signing.BundlePath, cfg.Signing.BundlePassword)
}
