package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"guardian/internal/directory"
	"guardian/internal/ledger"
	"guardian/internal/notify"
	"guardian/internal/platform/config"
	"guardian/internal/platform/kafka"
	"guardian/internal/platform/postgres"
	"guardian/internal/platform/redis"
	"guardian/internal/policy"
	"guardian/internal/ratelimit"
	"guardian/internal/seed"
	httptransport "guardian/internal/transport/http"
	"guardian/internal/workflow"
)

// auditLedger is what both the engine and the audit listing need.
type auditLedger interface {
	workflow.Ledger
	All(ctx context.Context) ([]ledger.Entry, error)
}

type backends struct {
	directory workflow.Directory
	policies  workflow.PolicyTable
	ledger    auditLedger
	locker    workflow.Locker
	rateStore ratelimit.Store
	checks    map[string]httptransport.HealthCheck
	closers   []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func loadDataset(cfg config.Store) (*seed.Dataset, error) {
	if cfg.SeedFile == "" {
		return seed.Demo()
	}
	return seed.Load(cfg.SeedFile)
}

// buildStores selects the directory, policy and ledger backends. A configured
// Redis also carries the request lock and the shared rate limit window.
func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (*backends, error) {
	dataset, err := loadDataset(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	ledgerMetrics := ledger.NewMetrics(reg)
	b := &backends{checks: make(map[string]httptransport.HealthCheck)}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = db.Close() })
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			b.close()
			return nil, err
		}
		loaded, err := seed.NewPostgresLoader(cfg.Store.DatabaseURL, log).Load(ctx, dataset)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("load reference data: %w", err)
		}
		log.Info("reference data loaded",
			"employees", loaded.Employees,
			"policies", loaded.Policies,
			"ledger_entries", loaded.LedgerEntries,
		)
		b.directory = directory.NewPostgres(db)
		b.policies = policy.NewPostgres(db)
		b.ledger = ledger.NewPostgres(db, cfg.Store.LedgerSeed, ledger.WithPostgresMetrics(ledgerMetrics))
		b.checks["postgres"] = db.PingContext
	default:
		stores, err := seed.BuildMemory(ctx, dataset, cfg.Store.LedgerSeed, ledger.WithMetrics(ledgerMetrics))
		if err != nil {
			return nil, err
		}
		log.Info("in-memory stores ready",
			"employees", stores.Directory.Len(),
			"policies", stores.Policies.Len(),
		)
		b.directory = stores.Directory
		b.policies = stores.Policies
		b.ledger = stores.Ledger
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		b.close()
		return nil, err
	}
	if client != nil {
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.locker = workflow.NewRedisLocker(client.Client,
			workflow.WithLockTTL(cfg.Redis.LockTTL),
			workflow.WithLockLostHook(func(key string, err error) {
				log.Warn("request lock lost while held", "key", key, "error", err)
			}),
		)
		b.rateStore = ratelimit.NewRedisStore(client.Client)
		b.checks["redis"] = client.Health
	} else {
		b.rateStore = ratelimit.NewInMemoryStore(nil)
	}
	return b, nil
}

// buildSender returns the notification transport the dispatcher retries over.
func buildSender(ctx context.Context, cfg config.Config, log *slog.Logger) (notify.Sender, func(), error) {
	if cfg.Notify.Driver != config.NotifyKafka {
		return notify.NewLogSender(log), func() {}, nil
	}
	client, err := kafka.NewClient(cfg.Kafka.Brokers)
	if err != nil {
		return nil, nil, err
	}
	if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.Topic, 1, 1); err != nil {
		client.Close()
		return nil, nil, err
	}
	return notify.NewKafkaSender(client, cfg.Kafka.Topic), client.Close, nil
}
