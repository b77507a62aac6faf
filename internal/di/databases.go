// Package di provides dependency injection for database connections.
package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/agrisentinel/agrisentinel/internal/config"
	"github.com/agrisentinel/agrisentinel/internal/database"
)

// InitializeDatabases opens both databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. engine.db - evaluations, loan applications, claims (never updated in place)
	engineDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "engine.db"),
		Profile: database.ProfileLedger,
		Name:    database.NameEngine,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine database: %w", err)
	}
	container.EngineDB = engineDB

	// 2. history.db - ingested snapshots and time series
	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    database.NameHistory,
	})
	if err != nil {
		engineDB.Close()
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}
	container.HistoryDB = historyDB

	for _, db := range container.Databases() {
		if err := db.Migrate(); err != nil {
			container.closeDatabases()
			return nil, fmt.Errorf("failed to migrate %s database: %w", db.Name(), err)
		}
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("Databases initialized")
	return container, nil
}

func (c *Container) closeDatabases() {
	for _, db := range c.Databases() {
		_ = db.Close()
	}
}
