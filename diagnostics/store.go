/*
Package diagnostics is the connection core's optional observability
sink: it turns connmgr.Observer callbacks into a small externally
queryable record of what a running client instance is doing, backed by
Redis for presence, sequencing, and buffered event history.

None of this is on the request path. A Manager built with nil Observer
(NopObserver) behaves identically whether or not a diagnostics.Store is
reachable; wiring a Publisher in only adds a side channel a separate
monitoring process can watch.
*/
package diagnostics

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config configures the Redis connection diagnostics is stored in.
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

func (c Config) withDefaults() Config {
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	return c
}

// Store wraps a *redis.Client for the diagnostics sub-packages. It is
// an instance a caller constructs and passes around explicitly, never
// a package-level global — a process embedding this core may run more
// than one Manager, each with its own instance id but sharing, or not,
// a Store.
type Store struct {
	client *redis.Client
}

// Open dials Redis and verifies it is reachable before returning.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: min(cfg.PoolSize, 2),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("diagnostics: redis connection failed: %w", err)
	}
	return &Store{client: client}, nil
}

// Close releases the underlying Redis connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
