// Package di provides dependency injection for scheduler jobs.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrisentinel/agrisentinel/internal/config"
	"github.com/agrisentinel/agrisentinel/internal/reliability"
	"github.com/agrisentinel/agrisentinel/internal/scheduler"
)

const (
	walCheckpointSchedule = "@every 6h"
	// First sweep looks this far back; later sweeps continue from the last one
	sweepLookback = 24 * time.Hour
)

// RegisterJobs creates the background jobs and adds them to a new scheduler.
// The scheduler is stored on the container but not started.
func RegisterJobs(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	sched := scheduler.New(log)
	instances := &JobInstances{}

	instances.SweepExpired = scheduler.NewSweepExpiredEvaluationsJob(container.EvaluationRepo, container.EventManager, sweepLookback, log)
	if err := sched.AddJob(cfg.Schedules.Sweep, instances.SweepExpired); err != nil {
		return nil, err
	}

	instances.PruneHistory = scheduler.NewPruneHistoryJob(container.HistoryRepo, cfg.HistoryRetention, log)
	if err := sched.AddJob(cfg.Schedules.Prune, instances.PruneHistory); err != nil {
		return nil, err
	}

	instances.WALCheckpoints = scheduler.NewCheckWALCheckpointsJob(log, container.Databases()...)
	if err := sched.AddJob(walCheckpointSchedule, instances.WALCheckpoints); err != nil {
		return nil, err
	}

	instances.DailyMaintenance = reliability.NewDailyMaintenanceJob(container.Databases(), cfg.DataDir, log)
	if err := sched.AddJob(cfg.Schedules.Maintenance, instances.DailyMaintenance); err != nil {
		return nil, err
	}

	if cfg.Archive.Enabled() {
		store, err := reliability.NewS3Store(ctx, reliability.S3Config{
			Bucket:    cfg.Archive.Bucket,
			Endpoint:  cfg.Archive.Endpoint,
			Region:    cfg.Archive.Region,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create archive store: %w", err)
		}
		container.ArchiveService = reliability.NewArchiveService(store, container.Databases(), cfg.DataDir, log)
		instances.Archive = reliability.NewArchiveJob(container.ArchiveService, cfg.Archive.RetentionDays, log)
		if err := sched.AddJob(cfg.Schedules.Archive, instances.Archive); err != nil {
			return nil, err
		}
		log.Info().Str("bucket", cfg.Archive.Bucket).Msg("Database archiving enabled")
	}

	container.Scheduler = sched
	log.Info().Strs("jobs", sched.Jobs()).Msg("Background jobs registered")
	return instances, nil
}
