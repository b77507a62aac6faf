package claims

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agrisentinel/agrisentinel/internal/events"
	"github.com/agrisentinel/agrisentinel/internal/modules/scoring"
)

// DamageAssessor produces the automated damage assessment score (0-100) for a claim.
// Its production behavior is undecided; implementations live with the data providers.
type DamageAssessor interface {
	Assess(ctx context.Context, claim *Claim) (float64, error)
}

// Store is the persistence the service needs
type Store interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id string) (*Claim, error)
	UpdateAssessment(ctx context.Context, c *Claim) error
}

// Service runs the claim workflow
type Service struct {
	store    Store
	assessor DamageAssessor
	events   *events.Manager
	policy   Policy
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a claim service
func NewService(store Store, assessor DamageAssessor, policy Policy, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		assessor: assessor,
		events:   eventManager,
		policy:   policy,
		log:      log.With().Str("service", "claims").Logger(),
		now:      time.Now,
	}
}

// File records a claim and queues it for assessment
func (s *Service) File(ctx context.Context, req FileRequest) (*Claim, error) {
	claim, err := File(uuid.New().String(), req, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := claim.Transition(StatusPendingAssessment); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, claim); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("claim_id", claim.ID).
		Str("policy_id", claim.PolicyID).
		Float64("damage_percent", claim.DamagePercent).
		Msg("Claim filed")
	return claim, nil
}

// Assess runs the automated assessment on a pending claim
func (s *Service) Assess(ctx context.Context, id string) (*Claim, error) {
	claim, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim.Status != StatusPendingAssessment {
		return nil, fmt.Errorf("%w: claim %s is %s", ErrInvalidStatusTransition, claim.ID, claim.Status)
	}

	now := s.now().UTC()
	claimScore, err := scoring.ScoreEntity(claim.ID, claim.Attributes(), s.policy.Scoring, now)
	if err != nil {
		return nil, err
	}

	var assessment float64
	if s.policy.Gate.Check(claimScore.TotalScore).Eligible {
		assessment, err = s.assessor.Assess(ctx, claim)
		if err != nil {
			return nil, fmt.Errorf("damage assessment failed: %w", err)
		}
	}

	if err := Assess(claim, claimScore, assessment, s.policy, now); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAssessment(ctx, claim); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("claim_id", claim.ID).
		Str("status", claim.Status.String()).
		Float64("claim_score", claim.ClaimScore).
		Str("payout", claim.Payout.StringFixed(2)).
		Msg("Claim assessed")

	if s.events != nil {
		data := &events.ClaimAssessedData{
			ClaimID:  claim.ID,
			PolicyID: claim.PolicyID,
			Status:   claim.Status.String(),
			Payout:   claim.Payout.StringFixed(2),
		}
		if claim.AssessmentScore != nil {
			data.AssessmentScore = *claim.AssessmentScore
		}
		s.events.EmitTyped("claims", data)
	}
	return claim, nil
}

// Get returns one claim
func (s *Service) Get(ctx context.Context, id string) (*Claim, error) {
	return s.store.GetByID(ctx, id)
}
