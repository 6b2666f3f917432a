package elevation

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/couchcryptid/hazard-risk-service/internal/observability"
	"github.com/patrickmn/go-cache"
)

// CachedProvider wraps an ElevationProvider with an in-memory TTL cache.
type CachedProvider struct {
	inner   domain.ElevationProvider
	cache   *cache.Cache
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator around an elevation provider.
func NewCachedProvider(inner domain.ElevationProvider, ttl time.Duration, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cache:   cache.New(ttl, 2*ttl),
		metrics: metrics,
	}
}

func (c *CachedProvider) Elevation(ctx context.Context, lat, lon float64) (float64, error) {
	key := cacheKey(lat, lon)
	if v, ok := c.cache.Get(key); ok {
		c.metrics.ElevationCache.WithLabelValues("hit").Inc()
		return v.(float64), nil
	}
	c.metrics.ElevationCache.WithLabelValues("miss").Inc()

	v, err := c.inner.Elevation(ctx, lat, lon)
	if err != nil {
		// Failures are not cached so the next request retries the provider.
		return 0, err
	}
	c.cache.SetDefault(key, v)
	return v, nil
}

// cacheKey rounds to four decimals (about 11 m).
func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}
