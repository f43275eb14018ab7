package blackboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Store is the blackboard's Redis-backed implementation. All mutation in
// the coordination substrate funnels through its methods; there is no
// direct cross-agent memory sharing.
type Store struct {
	rdb    *redis.Client
	logger *slog.Logger

	claimScript  *redis.Script
	statusScript *redis.Script
}

// Config configures the Redis connection backing a Store.
type Config struct {
	URL      string
	PoolSize int
}

// New connects to Redis and returns a ready Store. It pings once to fail
// fast on misconfiguration, mirroring the teacher's storage.New.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("blackboard: parse redis url: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("blackboard: ping redis: %w", err)
	}
	return newStore(rdb, logger), nil
}

// NewWithClient wraps an already-constructed go-redis client, used by tests
// to point the store at a miniredis instance.
func NewWithClient(rdb *redis.Client, logger *slog.Logger) *Store {
	return newStore(rdb, logger)
}

func newStore(rdb *redis.Client, logger *slog.Logger) *Store {
	return &Store{
		rdb:          rdb,
		logger:       logger,
		claimScript:  redis.NewScript(claimTaskScript),
		statusScript: redis.NewScript(updateTaskStatusScript),
	}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping checks connectivity to the backing Redis instance.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
