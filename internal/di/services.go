// Package di provides dependency injection for services.
package di

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/agrisentinel/agrisentinel/internal/config"
	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/internal/events"
	"github.com/agrisentinel/agrisentinel/internal/modules/claims"
	"github.com/agrisentinel/agrisentinel/internal/modules/domains"
	"github.com/agrisentinel/agrisentinel/internal/modules/evaluation"
	"github.com/agrisentinel/agrisentinel/internal/modules/lending"
	"github.com/agrisentinel/agrisentinel/internal/modules/providers"
)

// InitializeServices builds the registry, repositories, providers, event plumbing
// and the three services on top of already-open databases
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.EngineDB == nil || container.HistoryDB == nil {
		return fmt.Errorf("container databases must be initialized first")
	}

	registry, err := domains.LoadDefault(cfg.DomainConfigDir)
	if err != nil {
		return err
	}
	container.Registry = registry
	log.Info().Strs("domains", registry.Keys()).Msg("Domain registry loaded")

	// Repositories
	container.EvaluationRepo = evaluation.NewRepository(container.EngineDB.Conn(), log)
	container.LendingRepo = lending.NewRepository(container.EngineDB.Conn(), log)
	container.ClaimsRepo = claims.NewRepository(container.EngineDB.Conn(), log)
	container.HistoryRepo = providers.NewHistoryRepository(container.HistoryDB.Conn(), log)

	// Providers: ingested history first, deterministic stubs as fallback
	container.Snapshots = providers.SnapshotChain{
		container.HistoryRepo,
		providers.NewStubSnapshotProvider(registry, cfg.StubSeed),
	}

	var historySeries domain.SeriesProvider = container.HistoryRepo
	if cfg.Cache.Enabled() {
		container.RedisClient = providers.NewRedisClient(cfg.Cache.RedisAddr)
		container.SeriesCache = providers.NewCachedSeriesProvider(container.RedisClient, container.HistoryRepo, cfg.Cache.TTL, log)
		historySeries = container.SeriesCache
		log.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Redis series cache enabled")
	}
	container.Series = providers.SeriesChain{
		historySeries,
		providers.NewStubSeriesProvider(cfg.StubSeed),
	}

	// Events
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)
	if cfg.Kafka.Enabled() {
		writer := events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		container.KafkaForwarder = events.NewKafkaForwarder(container.EventBus, writer, log)
		container.KafkaForwarder.Start()
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka event forwarding enabled")
	}

	// Metrics
	container.MetricsRegistry = prometheus.NewRegistry()
	container.MetricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := evaluation.NewMetrics(container.MetricsRegistry)

	// Services
	container.EvaluationService = evaluation.NewService(
		evaluation.NewEngine(registry),
		container.Snapshots,
		container.Series,
		container.EvaluationRepo,
		container.EventManager,
		metrics,
		log,
	)

	creditDomain, err := registry.FirstOfKind(domains.KindCredit)
	if err != nil {
		return fmt.Errorf("lending needs a credit domain: %w", err)
	}
	lendingPolicy, err := creditDomain.LendingPolicy()
	if err != nil {
		return err
	}
	container.LendingService = lending.NewService(container.LendingRepo, container.Snapshots, lendingPolicy, container.EventManager, log)

	claimsDomain, err := registry.FirstOfKind(domains.KindClaims)
	if err != nil {
		return fmt.Errorf("claims need a claims domain: %w", err)
	}
	claimsPolicy, err := claimsDomain.ClaimsPolicy()
	if err != nil {
		return err
	}
	container.ClaimsService = claims.NewService(
		container.ClaimsRepo,
		providers.NewRandomDamageAssessor(cfg.StubSeed),
		claimsPolicy,
		container.EventManager,
		log,
	)

	return nil
}
