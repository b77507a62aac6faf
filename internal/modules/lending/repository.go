package lending

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/agrisentinel/agrisentinel/internal/domain"
)

// Repository persists loan applications in the engine database
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new loan application repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "loan_applications").Logger(),
	}
}

// Create inserts a decided application
func (r *Repository) Create(ctx context.Context, app *Application) error {
	var termsJSON, eligibilityJSON sql.NullString
	if app.Terms != nil {
		b, err := json.Marshal(app.Terms)
		if err != nil {
			return fmt.Errorf("failed to encode terms: %w", err)
		}
		termsJSON = sql.NullString{String: string(b), Valid: true}
	}
	if app.Eligibility != nil {
		b, err := json.Marshal(app.Eligibility)
		if err != nil {
			return fmt.Errorf("failed to encode eligibility: %w", err)
		}
		eligibilityJSON = sql.NullString{String: string(b), Valid: true}
	}
	var decidedAt sql.NullInt64
	if app.DecidedAt != nil {
		decidedAt = sql.NullInt64{Int64: app.DecidedAt.Unix(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO loan_applications
		(id, farmer_id, purpose, requested_amount, tenure_months, status, credit_score,
		 rating, max_eligible_amount, reason, terms, eligibility, created_at, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		app.ID,
		app.FarmerID,
		app.Purpose,
		app.RequestedAmount.String(),
		app.TenureMonths,
		app.Status.String(),
		app.CreditScore,
		app.Rating,
		app.MaxEligibleAmount.String(),
		app.Reason,
		termsJSON,
		eligibilityJSON,
		app.CreatedAt.Unix(),
		decidedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert loan application: %w", err)
	}
	return nil
}

// GetByID loads an application; a missing id wraps domain.ErrNotFound
func (r *Repository) GetByID(ctx context.Context, id string) (*Application, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, farmer_id, purpose, requested_amount, tenure_months, status, credit_score,
		       rating, max_eligible_amount, reason, terms, eligibility, created_at, decided_at
		FROM loan_applications WHERE id = ?
	`, id)

	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loan application %s: %w", id, domain.ErrNotFound)
	}
	return app, err
}

// ListByFarmer returns a farmer's applications, newest first
func (r *Repository) ListByFarmer(ctx context.Context, farmerID string) ([]*Application, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, farmer_id, purpose, requested_amount, tenure_months, status, credit_score,
		       rating, max_eligible_amount, reason, terms, eligibility, created_at, decided_at
		FROM loan_applications WHERE farmer_id = ?
		ORDER BY created_at DESC, id
	`, farmerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query loan applications: %w", err)
	}
	defer rows.Close()

	out := make([]*Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*Application, error) {
	var (
		app                      Application
		status, requested, limit string
		termsJSON, eligibilityJS sql.NullString
		createdAt                int64
		decidedAt                sql.NullInt64
	)
	err := row.Scan(&app.ID, &app.FarmerID, &app.Purpose, &requested, &app.TenureMonths, &status,
		&app.CreditScore, &app.Rating, &limit, &app.Reason, &termsJSON, &eligibilityJS, &createdAt, &decidedAt)
	if err != nil {
		return nil, err
	}

	if app.Status, err = NewApplicationStatus(status); err != nil {
		return nil, err
	}
	if app.RequestedAmount, err = decimal.NewFromString(requested); err != nil {
		return nil, fmt.Errorf("malformed requested amount %q: %w", requested, err)
	}
	if app.MaxEligibleAmount, err = decimal.NewFromString(limit); err != nil {
		return nil, fmt.Errorf("malformed max eligible amount %q: %w", limit, err)
	}
	if termsJSON.Valid {
		app.Terms = &Terms{}
		if err := json.Unmarshal([]byte(termsJSON.String), app.Terms); err != nil {
			return nil, fmt.Errorf("failed to decode terms: %w", err)
		}
	}
	if eligibilityJS.Valid {
		app.Eligibility = &domain.EligibilityDecision{}
		if err := json.Unmarshal([]byte(eligibilityJS.String), app.Eligibility); err != nil {
			return nil, fmt.Errorf("failed to decode eligibility: %w", err)
		}
	}
	app.CreatedAt = time.Unix(createdAt, 0).UTC()
	if decidedAt.Valid {
		t := time.Unix(decidedAt.Int64, 0).UTC()
		app.DecidedAt = &t
	}
	return &app, nil
}
