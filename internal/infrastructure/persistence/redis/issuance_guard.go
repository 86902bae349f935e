// Package redis implements Redis-backed coordination for the issuance
// pipeline. The back office usually runs as a single worker process, where
// the record store's conditional status flip is enough to serialize
// issuance; the guard here adds a short-lived distributed lock for
// deployments that run more than one worker against the same store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	// Host is the Redis server hostname.
	Host string

	// Port is the Redis server port.
	Port int

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// MinIdleConns is the minimum number of idle connections.
	MinIdleConns int

	// MaxRetries is the maximum number of retries before giving up.
	MaxRetries int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrGuardHeld is returned when another worker already holds the
	// issuance lock for the record.
	ErrGuardHeld = errors.New("issuance guard: lock held by another worker")

	// ErrGuardConnection is returned when the Redis connection fails.
	ErrGuardConnection = errors.New("issuance guard: connection failed")
)

// Key prefix for issuance locks.
const prefixIssuanceLock = "lock:issuance:"

// TTLIssuanceLock bounds how long a crashed worker can block issuance
// for a record. Render plus delivery comfortably fits in this window.
const TTLIssuanceLock = 2 * time.Minute

// ══════════════════════════════════════════════════════════════════════════════
// ISSUANCE GUARD
// ══════════════════════════════════════════════════════════════════════════════

// releaseScript deletes the lock only when the caller still holds it, so
// a slow worker cannot release a lock that already expired and was
// re-acquired by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// IssuanceGuard is a per-record distributed lock for the issuance
// pipeline, built on SET NX with a TTL.
type IssuanceGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIssuanceGuard creates an IssuanceGuard and verifies connectivity.
func NewIssuanceGuard(cfg Config) (*IssuanceGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGuardConnection, err)
	}

	return &IssuanceGuard{client: client, ttl: TTLIssuanceLock}, nil
}

// Acquire takes the issuance lock for a feedback record. The token must
// be unique per caller (a UUID works) and is required to release.
// Returns ErrGuardHeld when the lock is already taken.
func (g *IssuanceGuard) Acquire(ctx context.Context, feedbackID, token string) error {
	ok, err := g.client.SetNX(ctx, prefixIssuanceLock+feedbackID, token, g.ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGuardConnection, err)
	}
	if !ok {
		return ErrGuardHeld
	}
	return nil
}

// Release gives the lock back. Releasing a lock held by another token is
// a no-op.
func (g *IssuanceGuard) Release(ctx context.Context, feedbackID, token string) error {
	if err := releaseScript.Run(ctx, g.client, []string{prefixIssuanceLock + feedbackID}, token).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrGuardConnection, err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (g *IssuanceGuard) Close() error {
	return g.client.Close()
}
