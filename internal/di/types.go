/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every long-lived dependency of the engine. It is built
 * by Wire() and handed to the HTTP server, which builds its handlers from it.
 */
package di

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/agrisentinel/agrisentinel/internal/database"
	"github.com/agrisentinel/agrisentinel/internal/events"
	"github.com/agrisentinel/agrisentinel/internal/modules/claims"
	"github.com/agrisentinel/agrisentinel/internal/modules/domains"
	"github.com/agrisentinel/agrisentinel/internal/modules/evaluation"
	"github.com/agrisentinel/agrisentinel/internal/modules/lending"
	"github.com/agrisentinel/agrisentinel/internal/modules/providers"
	"github.com/agrisentinel/agrisentinel/internal/reliability"
	"github.com/agrisentinel/agrisentinel/internal/scheduler"
)

/**
 * Container holds all dependencies for the application.
 *
 * - Databases: engine.db (append-only evaluations, loans, claims) and history.db (snapshots, series)
 * - Domains: the loaded domain registry
 * - Providers: snapshot and series chains, optional Redis series cache
 * - Services: evaluation pipeline, lending and claims workflows
 * - Background: event bus, optional Kafka forwarder, scheduler
 */
type Container struct {
	// Databases
	EngineDB  *database.DB
	HistoryDB *database.DB

	Registry *domains.Registry

	// Repositories
	EvaluationRepo *evaluation.Repository
	LendingRepo    *lending.Repository
	ClaimsRepo     *claims.Repository
	HistoryRepo    *providers.HistoryRepository

	// Providers
	Snapshots   providers.SnapshotChain
	Series      providers.SeriesChain
	SeriesCache *providers.CachedSeriesProvider // nil unless REDIS_ADDR is set
	RedisClient *redis.Client                   // nil unless REDIS_ADDR is set

	// Events
	EventBus       *events.Bus
	EventManager   *events.Manager
	KafkaForwarder *events.KafkaForwarder // nil unless KAFKA_BROKERS is set

	// Metrics
	MetricsRegistry *prometheus.Registry

	// Services
	EvaluationService *evaluation.Service
	LendingService    *lending.Service
	ClaimsService     *claims.Service

	// Background
	Scheduler      *scheduler.Scheduler
	ArchiveService *reliability.ArchiveService // nil unless ARCHIVE_BUCKET is set
}

// Databases returns every open database, engine first
func (c *Container) Databases() []*database.DB {
	var dbs []*database.DB
	for _, db := range []*database.DB{c.EngineDB, c.HistoryDB} {
		if db != nil {
			dbs = append(dbs, db)
		}
	}
	return dbs
}

// JobInstances holds the registered background jobs for manual triggering
type JobInstances struct {
	SweepExpired     scheduler.Job
	PruneHistory     scheduler.Job
	WALCheckpoints   scheduler.Job
	DailyMaintenance scheduler.Job
	Archive          scheduler.Job // nil unless archiving is enabled
}

// All returns the non-nil jobs
func (j *JobInstances) All() []scheduler.Job {
	if j == nil {
		return nil
	}
	var jobs []scheduler.Job
	for _, job := range []scheduler.Job{j.SweepExpired, j.PruneHistory, j.WALCheckpoints, j.DailyMaintenance, j.Archive} {
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs
}
