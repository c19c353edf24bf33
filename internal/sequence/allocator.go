// Package sequence allocates strictly increasing integers per scope path,
// backed by the remote store's atomic transaction primitive.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/orbitdesk/tracker/internal/store"
)

// ErrAllocationFailed is returned once the transaction could not commit
// within the retry budget. Callers abort the whole creation: no task or
// project may exist with a missing or duplicate number.
var ErrAllocationFailed = errors.New("sequence: allocation failed after retries")

const (
	defaultRetries = 5
	retryBackoff   = 10 * time.Millisecond
)

// Allocator hands out counter values. Safe for concurrent use.
type Allocator struct {
	store   store.RemoteStore
	retries int

	// degraded flips on after the store reports transactions unsupported.
	// Allocation then falls back to read-then-write, which can hand out
	// duplicates under concurrent writers.
	degraded bool
}

// New returns an allocator with the default retry budget.
func New(s store.RemoteStore) *Allocator {
	return &Allocator{store: s, retries: defaultRetries}
}

// NewWithRetries overrides the retry budget, mainly for tests.
func NewWithRetries(s store.RemoteStore, retries int) *Allocator {
	return &Allocator{store: s, retries: retries}
}

// Next returns a value never returned before for scopePath, even when
// multiple callers race. On conflict the transaction is retried against the
// freshly read counter.
func (a *Allocator) Next(ctx context.Context, scopePath string) (int64, error) {
	if a.degraded {
		return a.nextDegraded(ctx, scopePath)
	}

	for attempt := 0; attempt <= a.retries; attempt++ {
		committed, err := a.store.Transaction(ctx, scopePath, increment)
		if err == nil {
			return toInt64(committed), nil
		}
		if errors.Is(err, store.ErrTransactionsUnsupported) {
			log.Printf("sequence: store has no transaction primitive, falling back to read-then-write for %s", scopePath)
			a.degraded = true
			return a.nextDegraded(ctx, scopePath)
		}
		if !errors.Is(err, store.ErrConflict) {
			return 0, fmt.Errorf("sequence: transaction on %s: %w", scopePath, err)
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(retryBackoff):
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrAllocationFailed, scopePath)
}

// Degraded reports whether the allocator has fallen back to plain
// read-then-write.
func (a *Allocator) Degraded() bool {
	return a.degraded
}

// nextDegraded is the documented fallback: a non-atomic read-then-write that
// risks duplicate values under concurrent writers.
func (a *Allocator) nextDegraded(ctx context.Context, scopePath string) (int64, error) {
	current, err := a.store.Get(ctx, scopePath)
	if err != nil {
		return 0, fmt.Errorf("sequence: read %s: %w", scopePath, err)
	}

	next := toInt64(current) + 1
	if err := a.store.Set(ctx, scopePath, next); err != nil {
		return 0, fmt.Errorf("sequence: write %s: %w", scopePath, err)
	}
	return next, nil
}

func increment(current any) (any, error) {
	return toInt64(current) + 1, nil
}

// toInt64 tolerates the numeric shapes a JSON tree store hands back.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case nil:
		return 0
	default:
		return 0
	}
}
