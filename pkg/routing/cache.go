package routing

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/xpayn3/cyclinghub-server/pkg/geo"
)

const (
	DefaultCacheTTL = 24 * time.Hour
	cacheKeyPrefix  = "route:"
)

// CachingProvider stores successful results in Redis. Cache failures are
// logged and never fail a route.
type CachingProvider struct {
	Next   Provider
	Redis  redis.Cmdable
	TTL    time.Duration
	Logger *slog.Logger
}

func NewCachingProvider(next Provider, client redis.Cmdable, ttl time.Duration) *CachingProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachingProvider{
		Next:   next,
		Redis:  client,
		TTL:    ttl,
		Logger: slog.Default().With("component", "route_cache"),
	}
}

func (c *CachingProvider) Name() string { return c.Next.Name() }

func (c *CachingProvider) Route(ctx context.Context, req Request) ([]Route, error) {
	key := CacheKey(c.Next.Name(), req)

	raw, err := c.Redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var routes []Route
		if jsonErr := json.Unmarshal(raw, &routes); jsonErr == nil && len(routes) > 0 {
			RouteCacheLookupsTotal.WithLabelValues("hit").Inc()
			return routes, nil
		}
		RouteCacheLookupsTotal.WithLabelValues("error").Inc()
		c.Logger.Warn("Discarding unreadable cache entry", "key", key)
	case stderrors.Is(err, redis.Nil):
		RouteCacheLookupsTotal.WithLabelValues("miss").Inc()
	default:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		RouteCacheLookupsTotal.WithLabelValues("error").Inc()
		c.Logger.Warn("Route cache read failed", "error", err)
	}

	routes, err := c.Next.Route(ctx, req)
	if err != nil || len(routes) == 0 {
		return routes, err
	}

	payload, err := json.Marshal(routes)
	if err == nil {
		err = c.Redis.Set(ctx, key, payload, c.TTL).Err()
	}
	if err != nil {
		c.Logger.Warn("Route cache write failed", "error", err)
	}
	return routes, nil
}

func cacheCoord(p geo.LatLng) string {
	return strconv.FormatFloat(p.Lat, 'f', 5, 64) + "," + strconv.FormatFloat(p.Lng, 'f', 5, 64)
}

// CacheKey identifies a request for a given provider name. Coordinates are
// rounded to five decimals (about a metre).
func CacheKey(provider string, req Request) string {
	var b strings.Builder
	b.WriteString(cacheKeyPrefix)
	b.WriteString(provider)
	b.WriteByte(':')
	b.WriteString(cacheCoord(req.From))
	b.WriteByte(';')
	b.WriteString(cacheCoord(req.To))
	if req.Alternatives {
		b.WriteString(":alt")
	}
	if len(req.Avoid) > 0 {
		h := xxhash.New()
		for _, p := range req.Avoid {
			h.WriteString(cacheCoord(p))
			h.WriteString("|")
		}
		fmt.Fprintf(&b, ":avoid=%x", h.Sum64())
	}
	return b.String()
}
