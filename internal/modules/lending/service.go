package lending

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/internal/events"
	"github.com/agrisentinel/agrisentinel/internal/modules/scoring"
)

// ApplicationStore is the persistence the service needs
type ApplicationStore interface {
	Create(ctx context.Context, app *Application) error
	GetByID(ctx context.Context, id string) (*Application, error)
	ListByFarmer(ctx context.Context, farmerID string) ([]*Application, error)
}

// Service runs the loan application workflow
type Service struct {
	store     ApplicationStore
	snapshots domain.SnapshotProvider
	events    *events.Manager
	policy    Policy
	log       zerolog.Logger
	now       func() time.Time
}

// NewService creates a loan application service
func NewService(store ApplicationStore, snapshots domain.SnapshotProvider, policy Policy, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		snapshots: snapshots,
		events:    eventManager,
		policy:    policy,
		log:       log.With().Str("service", "lending").Logger(),
		now:       time.Now,
	}
}

// Apply scores the farmer, decides the application and persists it
func (s *Service) Apply(ctx context.Context, req Request) (*Application, error) {
	if err := req.Validate(s.policy.Params); err != nil {
		return nil, err
	}

	snapshot, err := s.snapshots.Snapshot(ctx, s.policy.Scoring.Domain, req.FarmerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch credit snapshot: %w", err)
	}

	now := s.now().UTC()
	score, err := scoring.ScoreEntity(req.FarmerID, snapshot, s.policy.Scoring, now)
	if err != nil {
		return nil, err
	}

	income, err := annualIncome(snapshot, s.policy.Params.IncomeAttribute)
	if err != nil {
		return nil, err
	}

	app := NewApplication(uuid.New().String(), req, now)
	if err := Decide(app, score, income, s.policy, now); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, app); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("application_id", app.ID).
		Str("farmer_id", app.FarmerID).
		Str("status", app.Status.String()).
		Float64("credit_score", app.CreditScore).
		Str("rating", app.Rating).
		Msg("Loan application decided")

	if s.events != nil {
		data := &events.LoanApplicationDecidedData{
			ApplicationID: app.ID,
			FarmerID:      app.FarmerID,
			Status:        app.Status.String(),
			Amount:        app.RequestedAmount.String(),
			Reason:        app.Reason,
		}
		if app.Terms != nil {
			data.MonthlyEMI = app.Terms.MonthlyEMI.StringFixed(2)
			data.InterestRate = app.Terms.AnnualRate
		}
		s.events.EmitTyped("lending", data)
	}
	return app, nil
}

// Get returns one application
func (s *Service) Get(ctx context.Context, id string) (*Application, error) {
	return s.store.GetByID(ctx, id)
}

// ListByFarmer returns a farmer's applications
func (s *Service) ListByFarmer(ctx context.Context, farmerID string) ([]*Application, error) {
	return s.store.ListByFarmer(ctx, farmerID)
}

func annualIncome(snapshot domain.Snapshot, attribute string) (decimal.Decimal, error) {
	raw, ok := snapshot[attribute]
	if !ok || raw == nil {
		return decimal.Zero, nil
	}
	v, err := scoring.NumericValue(raw, "")
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(v), nil
}
