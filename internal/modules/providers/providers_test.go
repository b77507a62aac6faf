package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/internal/modules/claims"
	"github.com/agrisentinel/agrisentinel/internal/modules/domains"
	"github.com/agrisentinel/agrisentinel/internal/modules/scoring"
	testutil "github.com/agrisentinel/agrisentinel/internal/testing"
)

func quietLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func TestHistoryRepository_Snapshots(t *testing.T) {
	repo := NewHistoryRepository(testutil.NewMemoryDB(t, "history"), quietLogger())
	ctx := context.Background()

	_, err := repo.Snapshot(ctx, "credit", "F1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.SaveSnapshot(ctx, "credit", "F1", domain.Snapshot{"age": 30, "irrigation": "drip"}, testutil.FixtureEpoch))
	require.NoError(t, repo.SaveSnapshot(ctx, "credit", "F1", domain.Snapshot{"age": 31, "irrigation": "canal"}, testutil.FixtureEpoch.Add(time.Hour)))

	got, err := repo.Snapshot(ctx, "credit", "F1")
	require.NoError(t, err)
	assert.Equal(t, domain.Snapshot{"age": 31.0, "irrigation": "canal"}, got)
}

func TestHistoryRepository_Series(t *testing.T) {
	repo := NewHistoryRepository(testutil.NewMemoryDB(t, "history"), quietLogger())
	ctx := context.Background()

	empty, err := repo.Series(ctx, "market_price", "wheat")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	series := testutil.FallingPriceSeriesFixture()
	// Out of order on purpose; storage orders by timestamp
	require.NoError(t, repo.AppendSeries(ctx, "market_price", "wheat", []domain.TimeSeriesPoint{series[3], series[4]}))
	require.NoError(t, repo.AppendSeries(ctx, "market_price", "wheat", series[:3]))
	require.NoError(t, repo.AppendSeries(ctx, "market_price", "wheat", []domain.TimeSeriesPoint{{Timestamp: series[4].Timestamp, Value: 91}}))

	got, err := repo.Series(ctx, "market_price", "wheat")
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, series[0].Timestamp, got[0].Timestamp)
	assert.Equal(t, 91.0, got[4].Value)

	pruned, err := repo.PruneSeries(ctx, series[2].Timestamp)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)
}

func TestCachedSeriesProvider_MissLoadsAndStores(t *testing.T) {
	client, mock := redismock.NewClientMock()
	backing := testutil.NewMockSeriesProvider()
	backing.Set("market_price", "wheat", testutil.FallingPriceSeriesFixture())
	cache := NewCachedSeriesProvider(client, backing, time.Minute, quietLogger())

	key := seriesKey("market_price", "wheat")
	encoded, err := encodeSeries(testutil.FallingPriceSeriesFixture())
	require.NoError(t, err)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, encoded, time.Minute).SetVal("OK")

	got, err := cache.Series(context.Background(), "market_price", "wheat")
	require.NoError(t, err)
	assert.Equal(t, testutil.FallingPriceSeriesFixture(), got)
	assert.Equal(t, 1, backing.Calls())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedSeriesProvider_HitSkipsBacking(t *testing.T) {
	client, mock := redismock.NewClientMock()
	backing := testutil.NewMockSeriesProvider()
	cache := NewCachedSeriesProvider(client, backing, 0, quietLogger())

	encoded, err := encodeSeries(testutil.DailySeries(1, 2, 3))
	require.NoError(t, err)
	mock.ExpectGet(seriesKey("yield", "plot-7")).SetVal(string(encoded))

	got, err := cache.Series(context.Background(), "yield", "plot-7")
	require.NoError(t, err)
	assert.Equal(t, testutil.DailySeries(1, 2, 3), got)
	assert.Equal(t, 0, backing.Calls())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedSeriesProvider_RedisDownFallsThrough(t *testing.T) {
	client, mock := redismock.NewClientMock()
	backing := testutil.NewMockSeriesProvider()
	backing.Set("yield", "plot-7", testutil.DailySeries(4, 5))
	cache := NewCachedSeriesProvider(client, backing, time.Minute, quietLogger())

	key := seriesKey("yield", "plot-7")
	encoded, err := encodeSeries(testutil.DailySeries(4, 5))
	require.NoError(t, err)
	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	mock.ExpectSet(key, encoded, time.Minute).SetErr(errors.New("connection refused"))

	got, err := cache.Series(context.Background(), "yield", "plot-7")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedSeriesProvider_BackingErrorPropagates(t *testing.T) {
	client, mock := redismock.NewClientMock()
	backing := testutil.NewMockSeriesProvider()
	backing.SetError(errors.New("history offline"))
	cache := NewCachedSeriesProvider(client, backing, time.Minute, quietLogger())

	mock.ExpectGet(seriesKey("yield", "plot-7")).RedisNil()
	_, err := cache.Series(context.Background(), "yield", "plot-7")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedSeriesProvider_Invalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCachedSeriesProvider(client, testutil.NewMockSeriesProvider(), time.Minute, quietLogger())

	mock.ExpectDel(seriesKey("yield", "plot-7")).SetVal(1)
	require.NoError(t, cache.Invalidate(context.Background(), "yield", "plot-7"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStubSnapshotProvider_ScoresEveryDomain(t *testing.T) {
	registry, err := domains.LoadDefault("")
	require.NoError(t, err)
	stub := NewStubSnapshotProvider(registry, 42)
	ctx := context.Background()

	for _, cfg := range registry.All() {
		t.Run(cfg.Key, func(t *testing.T) {
			snapshot, err := stub.Snapshot(ctx, cfg.Key, "entity-1")
			require.NoError(t, err)

			again, err := stub.Snapshot(ctx, cfg.Key, "entity-1")
			require.NoError(t, err)
			assert.Equal(t, snapshot, again, "stand-in data is stable per entity")

			score, err := scoring.ScoreEntity("entity-1", snapshot, cfg.Scoring(), testutil.FixtureEpoch)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, score.TotalScore, 0.0)
			assert.LessOrEqual(t, score.TotalScore, cfg.Scoring().DomainMax)

			for _, flag := range cfg.Flags {
				assert.Contains(t, snapshot, flag.Attribute)
			}
		})
	}

	_, err = stub.Snapshot(ctx, "livestock", "x")
	assert.ErrorIs(t, err, domain.ErrInput)
}

func TestStubSeriesProvider(t *testing.T) {
	stub := NewStubSeriesProvider(7)
	stub.now = func() time.Time { return testutil.FixtureEpoch.Add(15 * time.Hour) }

	a, err := stub.Series(context.Background(), "market_price", "onion")
	require.NoError(t, err)
	b, err := stub.Series(context.Background(), "market_price", "onion")
	require.NoError(t, err)
	c, err := stub.Series(context.Background(), "market_price", "garlic")
	require.NoError(t, err)

	require.Len(t, a, StubSeriesLength)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, testutil.FixtureEpoch, a[len(a)-1].Timestamp)
	for _, p := range a {
		assert.Greater(t, p.Value, 0.0)
	}
}

func TestRandomDamageAssessor(t *testing.T) {
	assessor := NewRandomDamageAssessor(99)
	c := &claims.Claim{ID: "claim-1"}

	first, err := assessor.Assess(context.Background(), c)
	require.NoError(t, err)
	second, err := assessor.Assess(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, first, 0.0)
	assert.LessOrEqual(t, first, 100.0)
}

func TestChains(t *testing.T) {
	ctx := context.Background()
	primary := testutil.NewMockSnapshotProvider()
	fallback := testutil.NewMockSnapshotProvider()
	primary.Set("credit", "F1", domain.Snapshot{"source": "history"})
	fallback.Set("credit", "F1", domain.Snapshot{"source": "stub"})
	fallback.Set("credit", "F2", domain.Snapshot{"source": "stub"})

	snapshots := SnapshotChain{primary, fallback}
	s, err := snapshots.Snapshot(ctx, "credit", "F1")
	require.NoError(t, err)
	assert.Equal(t, "history", s["source"])
	s, err = snapshots.Snapshot(ctx, "credit", "F2")
	require.NoError(t, err)
	assert.Equal(t, "stub", s["source"])
	_, err = snapshots.Snapshot(ctx, "credit", "F3")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	failing := testutil.NewMockSnapshotProvider()
	failing.SetError(errors.New("boom"))
	_, err = SnapshotChain{failing, fallback}.Snapshot(ctx, "credit", "F2")
	assert.EqualError(t, err, "boom")

	emptySeries := testutil.NewMockSeriesProvider()
	fullSeries := testutil.NewMockSeriesProvider()
	fullSeries.Set("yield", "p", testutil.DailySeries(1, 2))
	points, err := SeriesChain{emptySeries, fullSeries}.Series(ctx, "yield", "p")
	require.NoError(t, err)
	assert.Len(t, points, 2)

	points, err = SeriesChain{emptySeries}.Series(ctx, "yield", "p")
	require.NoError(t, err)
	assert.NotNil(t, points)
	assert.Empty(t, points)
}
