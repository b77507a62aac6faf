package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"github.com/agrisentinel/agrisentinel/internal/domain"
)

// DefaultSeriesCacheTTL applies when the cache is built with a non-positive TTL
const DefaultSeriesCacheTTL = 5 * time.Minute

const seriesKeyPrefix = "agrisentinel:series:"

type cachedPoint struct {
	Timestamp int64   `msgpack:"t"`
	Value     float64 `msgpack:"v"`
}

// CachedSeriesProvider is a read-through Redis cache in front of another series provider.
// Cache failures are logged and fall through to the backing provider.
type CachedSeriesProvider struct {
	client redis.Cmdable
	next   domain.SeriesProvider
	group  singleflight.Group
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCachedSeriesProvider wraps next with a Redis cache
func NewCachedSeriesProvider(client redis.Cmdable, next domain.SeriesProvider, ttl time.Duration, log zerolog.Logger) *CachedSeriesProvider {
	if ttl <= 0 {
		ttl = DefaultSeriesCacheTTL
	}
	return &CachedSeriesProvider{
		client: client,
		next:   next,
		ttl:    ttl,
		log:    log.With().Str("component", "series_cache").Logger(),
	}
}

// NewRedisClient creates a client for addr
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

func seriesKey(domainKey, entityID string) string {
	return seriesKeyPrefix + domainKey + ":" + entityID
}

// Series implements domain.SeriesProvider
func (c *CachedSeriesProvider) Series(ctx context.Context, domainKey, entityID string) ([]domain.TimeSeriesPoint, error) {
	key := seriesKey(domainKey, entityID)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		points, decodeErr := decodeSeries(raw)
		if decodeErr == nil {
			return points, nil
		}
		c.log.Warn().Err(decodeErr).Str("key", key).Msg("Discarding undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Str("key", key).Msg("Series cache read failed")
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		points, err := c.next.Series(ctx, domainKey, entityID)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, points)
		return points, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.TimeSeriesPoint), nil
}

// Invalidate drops the cached series of one entity
func (c *CachedSeriesProvider) Invalidate(ctx context.Context, domainKey, entityID string) error {
	if err := c.client.Del(ctx, seriesKey(domainKey, entityID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate series cache: %w", err)
	}
	return nil
}

func (c *CachedSeriesProvider) store(ctx context.Context, key string, points []domain.TimeSeriesPoint) {
	encoded, err := encodeSeries(points)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to encode series for cache")
		return
	}
	if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Series cache write failed")
	}
}

func encodeSeries(points []domain.TimeSeriesPoint) ([]byte, error) {
	out := make([]cachedPoint, len(points))
	for i, p := range points {
		out[i] = cachedPoint{Timestamp: p.Timestamp.Unix(), Value: p.Value}
	}
	return msgpack.Marshal(out)
}

func decodeSeries(raw []byte) ([]domain.TimeSeriesPoint, error) {
	var in []cachedPoint
	if err := msgpack.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	points := make([]domain.TimeSeriesPoint, len(in))
	for i, p := range in {
		points[i] = domain.TimeSeriesPoint{Timestamp: time.Unix(p.Timestamp, 0).UTC(), Value: p.Value}
	}
	return points, nil
}
