package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/internal/events"
)

// Store is the persistence the service needs
type Store interface {
	Save(ctx context.Context, e *Evaluation) error
	History(ctx context.Context, domainKey, entityID string, limit int) ([]*Evaluation, error)
	Current(ctx context.Context, domainKey, entityID string, now time.Time) (*Evaluation, error)
	GetByID(ctx context.Context, id string) (*Evaluation, error)
	CountExpired(ctx context.Context, since, until time.Time) (int, error)
}

// Service fetches data through the provider ports, runs the engine and records the result
type Service struct {
	engine    *Engine
	snapshots domain.SnapshotProvider
	series    domain.SeriesProvider
	store     Store
	events    *events.Manager
	metrics   *Metrics
	log       zerolog.Logger
	now       func() time.Time
}

// NewService creates the evaluation pipeline service. eventManager and metrics may be nil.
func NewService(
	engine *Engine,
	snapshots domain.SnapshotProvider,
	series domain.SeriesProvider,
	store Store,
	eventManager *events.Manager,
	metrics *Metrics,
	log zerolog.Logger,
) *Service {
	return &Service{
		engine:    engine,
		snapshots: snapshots,
		series:    series,
		store:     store,
		events:    eventManager,
		metrics:   metrics,
		log:       log.With().Str("service", "evaluation").Logger(),
		now:       time.Now,
	}
}

// Engine returns the pure engine the service runs
func (s *Service) Engine() *Engine {
	return s.engine
}

// Evaluate runs the full pipeline for one entity and persists the result
func (s *Service) Evaluate(ctx context.Context, domainKey, entityID string) (*Evaluation, error) {
	start := time.Now()
	cfg, err := s.engine.Registry().Get(domainKey)
	if err != nil {
		return nil, err
	}
	if entityID == "" {
		return nil, domain.NewInputError("entity_id", "is required")
	}

	var (
		snapshot domain.Snapshot
		series   []domain.TimeSeriesPoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if snapshot, err = s.snapshots.Snapshot(gctx, cfg.Key, entityID); err != nil {
			return fmt.Errorf("snapshot provider: %w", err)
		}
		return nil
	})
	if cfg.HasTrend() {
		g.Go(func() error {
			var err error
			if series, err = s.series.Series(gctx, cfg.Key, entityID); err != nil {
				return fmt.Errorf("series provider: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.fail(cfg.Key, entityID, start, err)
		return nil, err
	}

	eval, err := s.engine.Run(cfg.Key, entityID, snapshot, series, s.now().UTC())
	if err != nil {
		s.fail(cfg.Key, entityID, start, err)
		return nil, err
	}
	eval.ID = uuid.New().String()

	if err := s.store.Save(ctx, eval); err != nil {
		s.fail(cfg.Key, entityID, start, err)
		return nil, err
	}

	outcome := OutcomeCompleted
	if eval.Rejected() {
		outcome = OutcomeRejected
	}
	s.metrics.observe(cfg.Key, outcome, time.Since(start))
	s.metrics.observeScore(cfg.Key, eval.Score.TotalScore)
	s.publish(eval)

	logEvent := s.log.Info().
		Str("evaluation_id", eval.ID).
		Str("domain", eval.Domain).
		Str("entity_id", eval.EntityID).
		Float64("total_score", eval.Score.TotalScore).
		Str("rating", eval.Score.Rating).
		Int("recommendations", len(eval.Recommendations))
	if eval.Trend != nil {
		logEvent = logEvent.Str("direction", string(eval.Trend.Direction))
	}
	if eval.Rejected() {
		logEvent.Str("reason", eval.Eligibility.Reason).Msg("Evaluation rejected by eligibility gate")
	} else {
		logEvent.Msg("Evaluation completed")
	}
	return eval, nil
}

func (s *Service) fail(domainKey, entityID string, start time.Time, err error) {
	s.metrics.observe(domainKey, OutcomeFailed, time.Since(start))
	s.log.Error().
		Err(err).
		Str("domain", domainKey).
		Str("entity_id", entityID).
		Msg("Evaluation failed")
	if s.events != nil {
		s.events.EmitError("evaluation", err, map[string]interface{}{
			"domain":    domainKey,
			"entity_id": entityID,
		})
	}
}

func (s *Service) publish(eval *Evaluation) {
	if s.events == nil {
		return
	}

	completed := &events.EvaluationCompletedData{
		EvaluationID:    eval.ID,
		Domain:          eval.Domain,
		EntityID:        eval.EntityID,
		TotalScore:      eval.Score.TotalScore,
		Rating:          eval.Score.Rating,
		Recommendations: len(eval.Recommendations),
	}
	if eval.Trend != nil {
		completed.Direction = string(eval.Trend.Direction)
	}
	if eval.Eligibility != nil {
		eligible := eval.Eligibility.Eligible
		completed.Eligible = &eligible
	}
	s.events.EmitTyped("evaluation", completed)

	if eval.Rejected() {
		s.events.EmitTyped("evaluation", &events.EligibilityRejectedData{
			EvaluationID:     eval.ID,
			Domain:           eval.Domain,
			EntityID:         eval.EntityID,
			Reason:           eval.Eligibility.Reason,
			Score:            eval.Eligibility.Score,
			MinimumThreshold: eval.Eligibility.MinimumThreshold,
		})
	}
}

// History returns an entity's past evaluations, newest first
func (s *Service) History(ctx context.Context, domainKey, entityID string, limit int) ([]*Evaluation, error) {
	if _, err := s.engine.Registry().Get(domainKey); err != nil {
		return nil, err
	}
	return s.store.History(ctx, domainKey, entityID, limit)
}

// Current returns the newest evaluation that has not expired
func (s *Service) Current(ctx context.Context, domainKey, entityID string) (*Evaluation, error) {
	if _, err := s.engine.Registry().Get(domainKey); err != nil {
		return nil, err
	}
	return s.store.Current(ctx, domainKey, entityID, s.now().UTC())
}

// Get loads one evaluation by id
func (s *Service) Get(ctx context.Context, id string) (*Evaluation, error) {
	return s.store.GetByID(ctx, id)
}

// CountExpired counts evaluations whose validity ended in (since, until]
func (s *Service) CountExpired(ctx context.Context, since, until time.Time) (int, error) {
	return s.store.CountExpired(ctx, since, until)
}
