package evaluation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/agrisentinel/agrisentinel/internal/domain"
)

// DefaultHistoryLimit caps history queries that do not set a limit
const DefaultHistoryLimit = 50

// Repository is the append-only evaluation store in the engine database
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates an evaluation repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "evaluations").Logger(),
	}
}

// Save inserts a new evaluation; rows are never updated
func (r *Repository) Save(ctx context.Context, e *Evaluation) error {
	breakdown, err := msgpack.Marshal(e.Score.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to encode breakdown: %w", err)
	}
	payload, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode evaluation payload: %w", err)
	}

	var eligible sql.NullBool
	if e.Eligibility != nil {
		eligible = sql.NullBool{Bool: e.Eligibility.Eligible, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO evaluations
		(id, domain, entity_id, total_score, rating, breakdown, payload, eligible, computed_at, valid_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Domain,
		e.EntityID,
		e.Score.TotalScore,
		e.Score.Rating,
		breakdown,
		payload,
		eligible,
		e.ComputedAt.Unix(),
		e.ValidUntil.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, domain, entity_id, breakdown, payload, computed_at, valid_until FROM evaluations`

// History returns an entity's evaluations, newest first
func (r *Repository) History(ctx context.Context, domainKey, entityID string, limit int) ([]*Evaluation, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := r.db.QueryContext(ctx, selectColumns+`
		WHERE domain = ? AND entity_id = ?
		ORDER BY computed_at DESC, rowid DESC
		LIMIT ?
	`, domainKey, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	out := []*Evaluation{}
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Current returns the newest evaluation still valid at now
func (r *Repository) Current(ctx context.Context, domainKey, entityID string, now time.Time) (*Evaluation, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+`
		WHERE domain = ? AND entity_id = ? AND valid_until > ?
		ORDER BY computed_at DESC, rowid DESC
		LIMIT 1
	`, domainKey, entityID, now.Unix())

	e, err := scanEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no current evaluation for %s/%s: %w", domainKey, entityID, domain.ErrNotFound)
	}
	return e, err
}

// GetByID loads one evaluation
func (r *Repository) GetByID(ctx context.Context, id string) (*Evaluation, error) {
	e, err := scanEvaluation(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("evaluation %s: %w", id, domain.ErrNotFound)
	}
	return e, err
}

// CountExpired counts evaluations whose validity ended in (since, until]
func (r *Repository) CountExpired(ctx context.Context, since, until time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM evaluations WHERE valid_until > ? AND valid_until <= ?",
		since.Unix(), until.Unix(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count expired evaluations: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvaluation(row rowScanner) (*Evaluation, error) {
	var (
		id, domainKey, entityID string
		breakdown, payload      []byte
		computedAt, validUntil  int64
	)
	if err := row.Scan(&id, &domainKey, &entityID, &breakdown, &payload, &computedAt, &validUntil); err != nil {
		return nil, err
	}

	e := &Evaluation{}
	if err := msgpack.Unmarshal(payload, e); err != nil {
		return nil, fmt.Errorf("failed to decode evaluation %s: %w", id, err)
	}
	var subtotals map[string]float64
	if err := msgpack.Unmarshal(breakdown, &subtotals); err != nil {
		return nil, fmt.Errorf("failed to decode breakdown of %s: %w", id, err)
	}

	e.ID = id
	e.Domain = domainKey
	e.EntityID = entityID
	e.Score.Breakdown = subtotals
	e.ComputedAt = time.Unix(computedAt, 0).UTC()
	e.ValidUntil = time.Unix(validUntil, 0).UTC()
	return e, nil
}
