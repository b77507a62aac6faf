package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// SeriesPruner deletes series points older than a cutoff
type SeriesPruner interface {
	PruneSeries(ctx context.Context, before time.Time) (int64, error)
}

// PruneHistoryJob removes stored series points past the retention window
type PruneHistoryJob struct {
	pruner    SeriesPruner
	retention time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewPruneHistoryJob creates a new PruneHistoryJob
func NewPruneHistoryJob(pruner SeriesPruner, retention time.Duration, log zerolog.Logger) *PruneHistoryJob {
	return &PruneHistoryJob{
		pruner:    pruner,
		retention: retention,
		log:       log.With().Str("job", "prune_history").Logger(),
		now:       time.Now,
	}
}

// Name returns the job name
func (j *PruneHistoryJob) Name() string {
	return "prune_history"
}

// Run deletes points older than now - retention
func (j *PruneHistoryJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.pruner.PruneSeries(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}

	j.log.Info().
		Time("cutoff", cutoff).
		Int64("deleted", deleted).
		Msg("History pruned")
	return nil
}
