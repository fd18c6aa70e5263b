package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/boostly/boosting-marketplace/internal/api/handler"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
	"github.com/boostly/boosting-marketplace/internal/infrastructure/config"
	"github.com/boostly/boosting-marketplace/internal/infrastructure/db/memory"
	"github.com/boostly/boosting-marketplace/internal/infrastructure/db/mongo"
	"github.com/boostly/boosting-marketplace/internal/infrastructure/db/postgres"
	"github.com/boostly/boosting-marketplace/internal/infrastructure/db/redis"
)

// stores bundles the repositories of the selected backend.
type stores struct {
	orders   ports.OrderRepository
	users    ports.UserRepository
	messages ports.MessageRepository
	events   ports.EventRepository
	dedup    ports.MessageDeduplicator
	pingers  map[string]handler.Pinger
	closers  []func(context.Context) error
}

func (s *stores) close(ctx context.Context) error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// openStores connects the backend named by cfg.StoreDriver and, when an
// address is configured, the Redis nonce store.
func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	s := &stores{pingers: make(map[string]handler.Pinger)}

	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client.Disconnect)
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			_ = s.close(ctx)
			return nil, err
		}
		s.orders = mongo.NewOrderRepository(db)
		s.users = mongo.NewUserRepository(db)
		s.messages = mongo.NewMessageRepository(db)
		s.events = mongo.NewEventRepository(db)
		s.pingers["mongodb"] = mongo.Pinger(client)

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN, MaxConns: cfg.Postgres.MaxConns})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func(context.Context) error { pool.Close(); return nil })
		s.orders = postgres.NewOrderRepository(pool)
		s.users = postgres.NewUserRepository(pool)
		s.messages = postgres.NewMessageRepository(pool)
		s.events = postgres.NewEventRepository(pool)
		s.pingers["postgres"] = postgres.Pinger(pool)

	case config.DriverMemory:
		log.Warn().Msg("using the in-memory store, data is lost on restart")
		mem := memory.New()
		s.orders = mem.Orders()
		s.users = mem.Users()
		s.messages = mem.Messages()
		s.events = mem.Events()

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.Redis.Addr != "" {
		client, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			_ = s.close(ctx)
			return nil, err
		}
		s.closers = append(s.closers, func(context.Context) error { return client.Close() })
		s.dedup = redis.NewMessageDedup(client, cfg.Redis.NonceTTL)
		s.pingers["redis"] = redis.Pinger(client)
	}

	return s, nil
}
