package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/agrisentinel/agrisentinel/internal/domain"
)

func key(domainKey, entityID string) string {
	return domainKey + "/" + entityID
}

// MockSnapshotProvider serves snapshots from memory
type MockSnapshotProvider struct {
	snapshots map[string]domain.Snapshot
	err       error
	calls     int
	mu        sync.Mutex
}

// NewMockSnapshotProvider creates an empty provider
func NewMockSnapshotProvider() *MockSnapshotProvider {
	return &MockSnapshotProvider{snapshots: make(map[string]domain.Snapshot)}
}

// Set stores a snapshot for an entity
func (m *MockSnapshotProvider) Set(domainKey, entityID string, s domain.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[key(domainKey, entityID)] = s
}

// SetError makes every call fail
func (m *MockSnapshotProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Snapshot was called
func (m *MockSnapshotProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Snapshot returns the stored snapshot or a not-found error
func (m *MockSnapshotProvider) Snapshot(_ context.Context, domainKey, entityID string) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.snapshots[key(domainKey, entityID)]
	if !ok {
		return nil, fmt.Errorf("%w: snapshot %s/%s", domain.ErrNotFound, domainKey, entityID)
	}
	return s, nil
}

// MockSeriesProvider serves time series from memory; unknown entities have an empty series
type MockSeriesProvider struct {
	series map[string][]domain.TimeSeriesPoint
	err    error
	calls  int
	mu     sync.Mutex
}

// NewMockSeriesProvider creates an empty provider
func NewMockSeriesProvider() *MockSeriesProvider {
	return &MockSeriesProvider{series: make(map[string][]domain.TimeSeriesPoint)}
}

// Set stores a series for an entity
func (m *MockSeriesProvider) Set(domainKey, entityID string, points []domain.TimeSeriesPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[key(domainKey, entityID)] = points
}

// SetError makes every call fail
func (m *MockSeriesProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Series was called
func (m *MockSeriesProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Series returns a copy of the stored series
func (m *MockSeriesProvider) Series(_ context.Context, domainKey, entityID string) ([]domain.TimeSeriesPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.err != nil {
		return nil, m.err
	}
	points := m.series[key(domainKey, entityID)]
	out := make([]domain.TimeSeriesPoint, len(points))
	copy(out, points)
	return out, nil
}
