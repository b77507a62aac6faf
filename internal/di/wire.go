// Package di provides dependency injection wiring and initialization.
package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agrisentinel/agrisentinel/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Initialize databases
// 2. Initialize registry, repositories, providers and services
// 3. Register jobs
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := InitializeServices(container, cfg, log); err != nil {
		container.Close(log)
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	jobs, err := RegisterJobs(ctx, container, cfg, log)
	if err != nil {
		container.Close(log)
		return nil, nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")
	return container, jobs, nil
}

// Close stops background work and closes connections. Safe on a partially built container.
func (c *Container) Close(log zerolog.Logger) {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.KafkaForwarder != nil {
		if err := c.KafkaForwarder.Stop(); err != nil {
			log.Warn().Err(err).Msg("Failed to stop Kafka forwarder")
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	for _, db := range c.Databases() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Str("database", db.Name()).Msg("Failed to close database")
		}
	}
}
