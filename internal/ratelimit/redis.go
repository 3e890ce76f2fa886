package ratelimit

import (
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/rs/zerolog/log"
)

// Redis is a shared-counter limiter for horizontally scaled deployments.
// It implements the same Check contract as Memory, so swapping backends is
// a wiring change only. Backend failures degrade to allow: the limiter is
// best-effort and must never fail a request on its own.
type Redis struct {
	pool *redis.Pool
	now  func() time.Time
}

// NewRedis creates a Redis-backed limiter against addr (host:port).
func NewRedis(addr string) *Redis {
	return &Redis{
		pool: &redis.Pool{
			MaxIdle:     3,
			IdleTimeout: 240 * time.Second,
			Dial: func() (redis.Conn, error) {
				return redis.Dial("tcp", addr,
					redis.DialConnectTimeout(2*time.Second),
					redis.DialReadTimeout(2*time.Second),
					redis.DialWriteTimeout(2*time.Second),
				)
			},
		},
		now: time.Now,
	}
}

// Check atomically increments the identity's counter, attaching the window
// expiry on first increment. Remaining and reset metadata mirror the
// in-memory limiter.
func (r *Redis) Check(identity string, cfg Config) Result {
	conn := r.pool.Get()
	defer conn.Close()

	key := "ratelimit:" + identity

	count, err := redis.Int(conn.Do("INCR", key))
	if err != nil {
		log.Warn().Err(err).Msg("Rate limit backend unavailable, allowing request")
		return Result{Allowed: true, Remaining: cfg.MaxRequests - 1, ResetTime: r.now().Add(cfg.Window)}
	}

	if count == 1 {
		if _, err := conn.Do("PEXPIRE", key, cfg.Window.Milliseconds()); err != nil {
			log.Warn().Err(err).Msg("Failed to set rate limit window expiry")
		}
	}

	ttl, err := redis.Int64(conn.Do("PTTL", key))
	if err != nil || ttl < 0 {
		ttl = cfg.Window.Milliseconds()
	}
	reset := r.now().Add(time.Duration(ttl) * time.Millisecond)

	if count > cfg.MaxRequests {
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetTime: reset,
			Reason:    "Rate limit exceeded",
		}
	}

	return Result{
		Allowed:   true,
		Remaining: cfg.MaxRequests - count,
		ResetTime: reset,
	}
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.pool.Close()
}
