package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrisentinel/agrisentinel/internal/events"
)

// ExpiryCounter counts evaluations whose validity ended in (since, until]
type ExpiryCounter interface {
	CountExpired(ctx context.Context, since, until time.Time) (int, error)
}

// SweepExpiredEvaluationsJob reports evaluations that expired since the previous sweep.
// Evaluations are immutable, so expiry is reported, never applied.
type SweepExpiredEvaluationsJob struct {
	counter   ExpiryCounter
	events    *events.Manager
	log       zerolog.Logger
	now       func() time.Time
	mu        sync.Mutex
	lastSweep time.Time
}

// NewSweepExpiredEvaluationsJob creates the sweep; the first run covers the
// lookback window before start.
func NewSweepExpiredEvaluationsJob(counter ExpiryCounter, eventManager *events.Manager, lookback time.Duration, log zerolog.Logger) *SweepExpiredEvaluationsJob {
	now := time.Now
	return &SweepExpiredEvaluationsJob{
		counter:   counter,
		events:    eventManager,
		log:       log.With().Str("job", "sweep_expired_evaluations").Logger(),
		now:       now,
		lastSweep: now().Add(-lookback),
	}
}

// Name returns the job name
func (j *SweepExpiredEvaluationsJob) Name() string {
	return "sweep_expired_evaluations"
}

// Run counts newly expired evaluations and emits EVALUATIONS_EXPIRED when any
func (j *SweepExpiredEvaluationsJob) Run() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	until := j.now().UTC()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	count, err := j.counter.CountExpired(ctx, j.lastSweep, until)
	if err != nil {
		return fmt.Errorf("failed to count expired evaluations: %w", err)
	}
	since := j.lastSweep
	j.lastSweep = until

	j.log.Info().
		Time("since", since).
		Time("until", until).
		Int("expired", count).
		Msg("Expired evaluation sweep completed")

	if count > 0 && j.events != nil {
		j.events.EmitTyped("scheduler", &events.EvaluationsExpiredData{
			Before: until,
			Count:  count,
		})
	}
	return nil
}
