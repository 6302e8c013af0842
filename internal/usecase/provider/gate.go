// Package provider bounds and retries outbound embedding and generation calls.
package provider

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/tourassist/internal/metrics"
)

// Gate limits concurrent provider calls process-wide and puts a timeout on each one.
// One Gate is shared by every provider so the bound holds across embed and chat.
type Gate struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewGate creates a gate with maxInFlight slots. callTimeout <= 0 disables the per-call timeout.
func NewGate(maxInFlight int, callTimeout time.Duration) *Gate {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(maxInFlight)), timeout: callTimeout}
}

// Do waits for a slot, then runs fn under the per-call timeout.
// Waiting respects ctx, so a cancelled request never queues forever.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire provider slot: %w", err)
	}
	defer g.sem.Release(1)

	metrics.ProviderInFlight.Inc()
	defer metrics.ProviderInFlight.Dec()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return fn(ctx)
}

// Call is Do for functions returning a value.
func Call[T any](ctx context.Context, g *Gate, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	})
	return out, err
}
