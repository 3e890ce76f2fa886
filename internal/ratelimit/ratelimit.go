// Package ratelimit provides fixed-window request limiting keyed by hashed
// client identity. The limiter never returns an error: every check yields a
// structured result the caller translates into a 429 with remaining/reset
// metadata.
package ratelimit

import (
	"sync"
	"time"
)

// Config is a named quota: MaxRequests per fixed Window.
type Config struct {
	Window      time.Duration
	MaxRequests int
}

// Result is the outcome of a single check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
	Reason    string
}

// Limiter gates expensive operations per client identity.
type Limiter interface {
	Check(identity string, cfg Config) Result
}

type entry struct {
	count     int
	resetTime time.Time
}

// Memory is the process-local limiter. State is ephemeral and lost on
// restart; entries past their window are lazily evicted on each check.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewMemory creates a process-local limiter.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Check counts a request against the identity's current window. The first
// request in a window always succeeds and opens a fresh window; once the
// window resets the full quota is available again regardless of how the
// previous window was spent.
func (m *Memory) Check(identity string, cfg Config) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	// Lazy eviction of expired windows.
	for key, e := range m.entries {
		if now.After(e.resetTime) {
			delete(m.entries, key)
		}
	}

	cur, ok := m.entries[identity]
	if !ok || now.After(cur.resetTime) {
		reset := now.Add(cfg.Window)
		m.entries[identity] = &entry{count: 1, resetTime: reset}
		return Result{
			Allowed:   true,
			Remaining: cfg.MaxRequests - 1,
			ResetTime: reset,
		}
	}

	if cur.count >= cfg.MaxRequests {
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetTime: cur.resetTime,
			Reason:    "Rate limit exceeded",
		}
	}

	cur.count++
	return Result{
		Allowed:   true,
		Remaining: cfg.MaxRequests - cur.count,
		ResetTime: cur.resetTime,
	}
}

// Len reports the number of live entries, for tests and diagnostics.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
