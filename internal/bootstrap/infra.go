package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/openride/seatreserve/config"
	"github.com/openride/seatreserve/internal/cache"
	"github.com/openride/seatreserve/internal/clock"
	"github.com/openride/seatreserve/internal/kafka"
	"github.com/openride/seatreserve/internal/lock"
	"github.com/openride/seatreserve/internal/repository"
	"github.com/openride/seatreserve/internal/service/catalog"
)

// Infra holds the backing services a process runs against. Without a
// database the store lives in memory; without Redis locks are in-process and
// searches are not cached; without brokers events are only logged.
type Infra struct {
	Store     repository.Store
	Locker    lock.Locker
	Cache     catalog.RouteCache
	Publisher kafka.Publisher
	Clock     clock.Clock
	Logger    *slog.Logger

	checks  map[string]func(context.Context) error
	closers []func()
}

func OpenInfra(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Infra, error) {
	infra := &Infra{
		Clock:  clock.Real(),
		Logger: logger,
		checks: make(map[string]func(context.Context) error),
	}

	if cfg.Database.Enabled() {
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		infra.closers = append(infra.closers, pool.Close)
		if err := pool.Ping(ctx); err != nil {
			infra.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}

		db := stdlib.OpenDBFromPool(pool)
		infra.closers = append(infra.closers, func() { _ = db.Close() })
		if cfg.Database.Migrate {
			if err := repository.Migrate(ctx, db); err != nil {
				infra.Close()
				return nil, err
			}
		}
		infra.Store = repository.NewPostgresStore(db)
		infra.checks["postgres"] = pool.Ping
	} else {
		logger.Warn("no database configured, using the in-memory store")
		infra.Store = repository.NewMemoryStore()
	}

	if cfg.Redis.Addr != "" {
		client := cache.NewClient(cfg.Redis)
		infra.closers = append(infra.closers, func() { _ = client.Close() })
		routes := cache.NewRedisCache(client, cfg.Booking.RoutesCacheTTL())
		infra.Cache = routes
		infra.Locker = cache.NewRedisLocker(client, cfg.Booking.RouteLockTTL(), logger)
		infra.checks["redis"] = routes.Ping
	} else {
		infra.Locker = lock.NewLocal()
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
		infra.closers = append(infra.closers, func() { _ = producer.Close() })
		infra.Publisher = producer
		infra.checks["kafka"] = producer.CheckConnection
	}
	return infra, nil
}

// Ready fails when any configured backing service is unreachable.
func (i *Infra) Ready(ctx context.Context) error {
	var errs []error
	for name, check := range i.checks {
		if err := check(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases resources in reverse order of acquisition.
func (i *Infra) Close() {
	for j := len(i.closers) - 1; j >= 0; j-- {
		i.closers[j]()
	}
	i.closers = nil
}
