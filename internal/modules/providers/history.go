// Package providers holds the data-acquisition adapters behind the engine's snapshot
// and series ports: the sqlite history store, a Redis read-through cache and seeded
// stand-ins for sources that have no live integration yet.
package providers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrisentinel/agrisentinel/internal/database"
	"github.com/agrisentinel/agrisentinel/internal/domain"
)

// HistoryRepository stores entity snapshots and observed series in the history database
type HistoryRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryRepository creates a history repository
func NewHistoryRepository(db *sql.DB, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:  db,
		log: log.With().Str("repository", "history").Logger(),
	}
}

// SaveSnapshot replaces the entity's attribute snapshot
func (r *HistoryRepository) SaveSnapshot(ctx context.Context, domainKey, entityID string, snapshot domain.Snapshot, at time.Time) error {
	attrs, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO entity_snapshots (domain, entity_id, attributes, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(domain, entity_id) DO UPDATE SET
			attributes = excluded.attributes,
			updated_at = excluded.updated_at
	`, domainKey, entityID, string(attrs), at.Unix())
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s/%s: %w", domainKey, entityID, err)
	}
	return nil
}

// Snapshot implements domain.SnapshotProvider; a missing entity wraps domain.ErrNotFound
func (r *HistoryRepository) Snapshot(ctx context.Context, domainKey, entityID string) (domain.Snapshot, error) {
	var attrs string
	err := r.db.QueryRowContext(ctx,
		"SELECT attributes FROM entity_snapshots WHERE domain = ? AND entity_id = ?",
		domainKey, entityID,
	).Scan(&attrs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s/%s: %w", domainKey, entityID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal([]byte(attrs), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s/%s: %w", domainKey, entityID, err)
	}
	return snapshot, nil
}

// AppendSeries upserts observations; an existing timestamp takes the new value
func (r *HistoryRepository) AppendSeries(ctx context.Context, domainKey, entityID string, points []domain.TimeSeriesPoint) error {
	if len(points) == 0 {
		return nil
	}
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO series_points (domain, entity_id, ts, value) VALUES (?, ?, ?, ?)
			ON CONFLICT(domain, entity_id, ts) DO UPDATE SET value = excluded.value
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, domainKey, entityID, p.Timestamp.Unix(), p.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append series %s/%s: %w", domainKey, entityID, err)
	}

	r.log.Debug().
		Str("domain", domainKey).
		Str("entity_id", entityID).
		Int("points", len(points)).
		Msg("Series appended")
	return nil
}

// Series implements domain.SeriesProvider, oldest point first. An unknown entity
// has an empty series.
func (r *HistoryRepository) Series(ctx context.Context, domainKey, entityID string) ([]domain.TimeSeriesPoint, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT ts, value FROM series_points WHERE domain = ? AND entity_id = ? ORDER BY ts",
		domainKey, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query series: %w", err)
	}
	defer rows.Close()

	points := []domain.TimeSeriesPoint{}
	for rows.Next() {
		var (
			ts    int64
			value float64
		)
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, fmt.Errorf("failed to scan series point: %w", err)
		}
		points = append(points, domain.TimeSeriesPoint{Timestamp: time.Unix(ts, 0).UTC(), Value: value})
	}
	return points, rows.Err()
}

// PruneSeries deletes observations older than before and returns how many went
func (r *HistoryRepository) PruneSeries(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM series_points WHERE ts < ?", before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune series: %w", err)
	}
	return result.RowsAffected()
}
