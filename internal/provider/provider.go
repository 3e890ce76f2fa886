// Package provider normalizes heterogeneous AI-completion backends behind a
// single contract so the fan-out runner can treat them symmetrically. Each
// adapter makes a single attempt, no retries; all failures surface as a
// normalized *Error with a string summary, never raw vendor internals.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Defaults for full-text generation calls. Clarifier generation overrides
// these with a lower temperature for more deterministic JSON.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4000
)

// Options tune a single completion call.
type Options struct {
	Temperature float32
	MaxTokens   int
}

func (o Options) withDefaults() Options {
	if o.Temperature == 0 {
		o.Temperature = DefaultTemperature
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	return o
}

// Provider is one AI-completion backend. An empty returned string is a
// degenerate success, not an error.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// ErrNotConfigured marks a provider whose credential is absent. The adapter
// fails immediately, before any network call.
var ErrNotConfigured = errors.New("API key not configured")

// Error is the normalized provider failure. Message is safe to surface to
// clients; the wrapped cause stays server-side.
type Error struct {
	Provider string
	Message  string
	cause    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// newError wraps a backend failure with a human-readable summary.
func newError(provider, message string, cause error) *Error {
	return &Error{Provider: provider, Message: message, cause: cause}
}

// notConfigured builds the immediate no-credential failure.
func notConfigured(provider string) *Error {
	return newError(provider, ErrNotConfigured.Error(), ErrNotConfigured)
}

// Registry maps provider names to adapters. Missing credentials degrade
// individual entries at call time; construction never fails.
type Registry map[string]Provider

// Names returns the registered provider names.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	return names
}
