package domain

import "context"

// SnapshotProvider supplies the raw attributes of an entity for a domain.
// Implementations own all I/O, retries and any stand-in data generation.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, domain, entityID string) (Snapshot, error)
}

// SeriesProvider supplies the historical series an entity is trended on
type SeriesProvider interface {
	Series(ctx context.Context, domain, entityID string) ([]TimeSeriesPoint, error)
}
