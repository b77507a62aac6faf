package claims

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

// Repository persists claims in the engine database
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new claim repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "claims").Logger(),
	}
}

// Create inserts a newly filed claim
func (r *Repository) Create(ctx context.Context, c *Claim) error {
	evidence, err := encodeJSON(c.Evidence)
	if err != nil {
		return fmt.Errorf("failed to encode evidence: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO claims
		(id, policy_id, farmer_id, crop, sum_insured, insured_area, damaged_area,
		 damage_percent, status, payout, evidence, loss_date, filed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		c.PolicyID,
		c.FarmerID,
		c.Crop,
		c.SumInsured.String(),
		c.InsuredArea,
		c.DamagedArea,
		c.DamagePercent,
		c.Status.String(),
		c.Payout.String(),
		evidence,
		unixOrNull(c.LossDate),
		c.FiledAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert claim: %w", err)
	}
	return nil
}

// UpdateAssessment stores the assessment outcome; only pending claims are updated
func (r *Repository) UpdateAssessment(ctx context.Context, c *Claim) error {
	eligibility, err := encodeJSON(c.Eligibility)
	if err != nil {
		return fmt.Errorf("failed to encode eligibility: %w", err)
	}
	var assessment sql.NullFloat64
	if c.AssessmentScore != nil {
		assessment = sql.NullFloat64{Float64: *c.AssessmentScore, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE claims
		SET status = ?, claim_score = ?, assessment_score = ?, payout = ?, reason = ?,
		    eligibility = ?, assessed_at = ?
		WHERE id = ? AND status = ?
	`,
		c.Status.String(),
		c.ClaimScore,
		assessment,
		c.Payout.String(),
		c.Reason,
		eligibility,
		unixOrNull(c.AssessedAt),
		c.ID,
		StatusPendingAssessment.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update claim: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check claim update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: claim %s is no longer pending assessment", ErrInvalidStatusTransition, c.ID)
	}
	return nil
}

// GetByID loads a claim; a missing id wraps domain.ErrNotFound
func (r *Repository) GetByID(ctx context.Context, id string) (*Claim, error) {
	var (
		c                         Claim
		sumInsured, payout, state string
		evidence, eligibility     sql.NullString
		assessment                sql.NullFloat64
		lossDate, assessedAt      sql.NullInt64
		filedAt                   int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, policy_id, farmer_id, crop, sum_insured, insured_area, damaged_area,
		       damage_percent, status, claim_score, assessment_score, payout, reason,
		       evidence, eligibility, loss_date, filed_at, assessed_at
		FROM claims WHERE id = ?
	`, id).Scan(&c.ID, &c.PolicyID, &c.FarmerID, &c.Crop, &sumInsured, &c.InsuredArea, &c.DamagedArea,
		&c.DamagePercent, &state, &c.ClaimScore, &assessment, &payout, &c.Reason,
		&evidence, &eligibility, &lossDate, &filedAt, &assessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("claim %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load claim: %w", err)
	}

	if c.Status, err = NewStatus(state); err != nil {
		return nil, err
	}
	if c.SumInsured, err = decimal.NewFromString(sumInsured); err != nil {
		return nil, fmt.Errorf("malformed sum insured %q: %w", sumInsured, err)
	}
	if c.Payout, err = decimal.NewFromString(payout); err != nil {
		return nil, fmt.Errorf("malformed payout %q: %w", payout, err)
	}
	if assessment.Valid {
		v := assessment.Float64
		c.AssessmentScore = &v
	}
	if evidence.Valid {
		if err := json.Unmarshal([]byte(evidence.String), &c.Evidence); err != nil {
			return nil, fmt.Errorf("failed to decode evidence: %w", err)
		}
	}
	if eligibility.Valid {
		c.Eligibility = &domain.EligibilityDecision{}
		if err := json.Unmarshal([]byte(eligibility.String), c.Eligibility); err != nil {
			return nil, fmt.Errorf("failed to decode eligibility: %w", err)
		}
	}
	c.FiledAt = time.Unix(filedAt, 0).UTC()
	c.LossDate = timeOrNil(lossDate)
	c.AssessedAt = timeOrNil(assessedAt)
	return &c, nil
}

func encodeJSON(v interface{}) (sql.NullString, error) {
	switch t := v.(type) {
	case nil:
		return sql.NullString{}, nil
	case domain.Snapshot:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *domain.EligibilityDecision:
		if t == nil {
			return sql.NullString{}, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unixOrNull(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func timeOrNil(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
