// Package runner fans an optimized prompt out across selected providers
// concurrently and joins their outcomes. One provider's failure is data in
// the aggregate, never a reason to cancel or fail a sibling; the join waits
// for every outcome.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/finprompt/refinery/internal/provider"
)

// Aggregate is the joint result of one fan-out. Maps are keyed by provider
// name: an absent key means "not selected", a nil Results entry means "ran
// and failed" (with a matching Errors entry), a present pointer means
// success even when the text is empty.
type Aggregate struct {
	Results   map[string]*string
	Timings   map[string]time.Duration
	Errors    map[string]string
	TotalTime time.Duration
}

// Runner executes fan-outs against a fixed provider registry.
type Runner struct {
	providers provider.Registry

	// perCallTimeout bounds each provider call, converting a hang into a
	// timeout error entry. Zero means wait indefinitely.
	perCallTimeout time.Duration
}

// New creates a Runner. perCallTimeout of zero disables the per-provider
// bound.
func New(providers provider.Registry, perCallTimeout time.Duration) *Runner {
	return &Runner{providers: providers, perCallTimeout: perCallTimeout}
}

// RunAll invokes every selected provider concurrently and waits for all of
// them. It never returns an error itself; an empty selection yields empty
// maps immediately.
func (r *Runner) RunAll(ctx context.Context, prompt string, selection map[string]bool) Aggregate {
	agg := Aggregate{
		Results: make(map[string]*string),
		Timings: make(map[string]time.Duration),
		Errors:  make(map[string]string),
	}

	start := time.Now()

	var mu sync.Mutex
	var g errgroup.Group

	for name, p := range r.providers {
		if !selection[name] {
			continue
		}
		name, p := name, p

		g.Go(func() error {
			callCtx := ctx
			if r.perCallTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, r.perCallTimeout)
				defer cancel()
			}

			callStart := time.Now()
			text, err := p.Complete(callCtx, prompt, provider.Options{})
			elapsed := time.Since(callStart)

			mu.Lock()
			defer mu.Unlock()
			agg.Timings[name] = elapsed
			if err != nil {
				log.Warn().Str("provider", name).Dur("elapsed", elapsed).Err(err).Msg("Provider call failed")
				agg.Results[name] = nil
				agg.Errors[name] = errorMessage(name, err)
				return nil
			}
			agg.Results[name] = &text
			return nil
		})
	}

	// Tasks convert their own failures into entries, so Wait never errors.
	_ = g.Wait()

	agg.TotalTime = time.Since(start)
	return agg
}

// errorMessage extracts the client-safe summary from a provider failure.
func errorMessage(name string, err error) string {
	var perr *provider.Error
	if errors.As(err, &perr) {
		return perr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return name + " call timed out"
	}
	return err.Error()
}
