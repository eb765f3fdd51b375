package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openride/seatreserve/config"
	"github.com/openride/seatreserve/internal/domain"
)

func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

// RedisCache caches route lists per (origin, destination) pair. Callers pass
// normalized place names.
type RedisCache struct {
	client    redis.Cmdable
	routesTTL time.Duration
}

func NewRedisCache(client redis.Cmdable, routesTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, routesTTL: routesTTL}
}

func (c *RedisCache) GetRoutes(ctx context.Context, origin, destination string) ([]domain.Route, error) {
	data, err := c.client.Get(ctx, routesKey(origin, destination)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var routes []domain.Route
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, err
	}
	return routes, nil
}

func (c *RedisCache) SetRoutes(ctx context.Context, origin, destination string, routes []domain.Route) error {
	payload, err := json.Marshal(routes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, routesKey(origin, destination), payload, c.routesTTL).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, origin, destination string) error {
	return c.client.Del(ctx, routesKey(origin, destination)).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func routesKey(origin, destination string) string {
	return "cache:routes:" + origin + ":" + destination
}
