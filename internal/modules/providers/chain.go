package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/agrisentinel/agrisentinel/internal/domain"
)

// SnapshotChain asks each provider in turn and returns the first snapshot found
type SnapshotChain []domain.SnapshotProvider

// Snapshot implements domain.SnapshotProvider
func (c SnapshotChain) Snapshot(ctx context.Context, domainKey, entityID string) (domain.Snapshot, error) {
	for _, p := range c {
		s, err := p.Snapshot(ctx, domainKey, entityID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		return s, err
	}
	return nil, fmt.Errorf("snapshot %s/%s: %w", domainKey, entityID, domain.ErrNotFound)
}

// SeriesChain returns the first non-empty series
type SeriesChain []domain.SeriesProvider

// Series implements domain.SeriesProvider
func (c SeriesChain) Series(ctx context.Context, domainKey, entityID string) ([]domain.TimeSeriesPoint, error) {
	for _, p := range c {
		points, err := p.Series(ctx, domainKey, entityID)
		if err != nil {
			return nil, err
		}
		if len(points) > 0 {
			return points, nil
		}
	}
	return []domain.TimeSeriesPoint{}, nil
}
