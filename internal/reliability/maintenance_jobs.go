package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/agrisentinel/agrisentinel/internal/database"
	"github.com/agrisentinel/agrisentinel/internal/utils"
)

// Free-space thresholds for the data directory
const (
	CriticalFreeBytes uint64 = 500 << 20
	LowFreeBytes      uint64 = 5 << 30
)

// DailyMaintenanceJob checks integrity, truncates WAL files and watches free disk space
type DailyMaintenanceJob struct {
	databases []*database.DB
	dataDir   string
	log       zerolog.Logger
	usage     func(path string) (*disk.UsageStat, error)
}

// NewDailyMaintenanceJob creates a new daily maintenance job
func NewDailyMaintenanceJob(databases []*database.DB, dataDir string, log zerolog.Logger) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		databases: databases,
		dataDir:   dataDir,
		log:       log.With().Str("job", "daily_maintenance").Logger(),
		usage:     disk.Usage,
	}
}

// Name returns the job name for scheduler
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

// Run executes the daily maintenance job. Integrity failures and critically low
// disk space are returned as errors; everything else is logged.
func (j *DailyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for _, db := range j.databases {
		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Database integrity check failed")
			return err
		}
	}

	for _, db := range j.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
		}
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	for _, db := range j.databases {
		stats, err := db.GetStats()
		if err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			continue
		}
		j.log.Info().
			Str("database", db.Name()).
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Int64("freelist_pages", stats.FreelistCount).
			Msg("Database metrics")
	}

	j.log.Info().Dur("duration_ms", time.Since(startTime)).Msg("Daily maintenance completed")
	return nil
}

func (j *DailyMaintenanceJob) checkDiskSpace() error {
	usage, err := j.usage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	freeGB := float64(usage.Free) / 1e9
	switch {
	case usage.Free < CriticalFreeBytes:
		j.log.Error().Float64("available_gb", freeGB).Msg("Insufficient disk space")
		return fmt.Errorf("only %.2f GB free in %s", freeGB, j.dataDir)
	case usage.Free < LowFreeBytes:
		j.log.Warn().Float64("available_gb", freeGB).Msg("Disk space running low")
	default:
		j.log.Debug().Float64("available_gb", freeGB).Msg("Disk space check")
	}
	return nil
}

// ArchiveJob uploads a fresh archive and rotates old ones
type ArchiveJob struct {
	service       *ArchiveService
	retentionDays int
	log           zerolog.Logger
}

// NewArchiveJob creates a new archive job
func NewArchiveJob(service *ArchiveService, retentionDays int, log zerolog.Logger) *ArchiveJob {
	return &ArchiveJob{
		service:       service,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "archive").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *ArchiveJob) Name() string {
	return "archive_databases"
}

// Run uploads an archive; rotation failures are logged only
func (j *ArchiveJob) Run() error {
	defer utils.OperationTimer("archive_databases", j.log)()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if _, err := j.service.CreateAndUpload(ctx); err != nil {
		return fmt.Errorf("archive upload failed: %w", err)
	}
	if _, err := j.service.RotateOldArchives(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Archive rotation failed")
	}
	return nil
}
