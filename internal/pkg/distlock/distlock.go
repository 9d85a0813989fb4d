// Package distlock provides the cross-process mutual exclusion around sweep
// runs: when several worker instances share a database, only one may run a
// given sweep at a time. Redis is the preferred backend; PostgreSQL advisory
// locks are the fallback when no Redis is configured.
package distlock

import (
	"context"
	"database/sql"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock is a single-use, non-blocking distributed lock. A Lock instance is
// meant for one goroutine; concurrent holders need separate instances.
type Lock interface {
	// TryAcquire attempts to take the lock without blocking. Returns true on
	// success.
	TryAcquire(ctx context.Context) (bool, error)
	// Release gives the lock back if this instance still owns it.
	Release(ctx context.Context) error
}

// New picks the best available backend: Redis when a client is configured,
// PostgreSQL advisory locks otherwise.
func New(redisClient *redis.Client, db *sql.DB, name string, ttl time.Duration) Lock {
	if redisClient != nil {
		return newRedisLock(redisClient, name, ttl)
	}
	return newAdvisoryLock(db, name)
}

// advisoryLock uses pg_try_advisory_lock / pg_advisory_unlock. Advisory locks
// are session-scoped, so a crashed holder releases when its connection drops,
// which gives crash-safety comparable to the Redis TTL.
type advisoryLock struct {
	db     *sql.DB
	conn   *sql.Conn
	lockID int64
}

func newAdvisoryLock(db *sql.DB, name string) *advisoryLock {
	h := fnv.New64a()
	h.Write([]byte("retention:" + name))
	return &advisoryLock{db: db, lockID: int64(h.Sum64())}
}

func (l *advisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	// Pin a connection: the advisory lock belongs to a session and must be
	// released on the same one.
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

func (l *advisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	l.conn.Close()
	l.conn = nil
	return err
}
