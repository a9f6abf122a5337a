// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package loopkeep provides a generational lifetime registry for dynamically
// compiled code artifacts ("loops") produced by a tracing JIT.
//
// This is the main public API for the loopkeep library. It decides when a
// compiled artifact may be safely reclaimed: the compilation driver touches a
// handle whenever the artifact is executed or kept reachable, advances the
// registry once per compilation unit processed, and frees the native
// resources of exactly the handles each advance reports as evicted.
//
// # Quick Start
//
//	import "github.com/kianostad/loopkeep"
//
//	reg := loopkeep.New[uint64]()
//	if err := reg.Configure(ctx, 4, 1); err != nil {
//	    log.Fatal(err)
//	}
//
//	reg.Touch(ctx, loopID)      // loop entered or kept reachable
//	evicted := reg.Advance(ctx) // one compilation unit processed
//	for _, id := range evicted {
//	    codeCache.Free(id)
//	}
//
// # Key Features
//
//   - Logical-time aging: one generation per Advance, no timers
//   - O(1) touch and liveness checks, amortized O(n) sweeps
//   - Sweep cadence decoupled from generation rate via a check interval
//   - Exact eviction reporting, by return value and by optional handler
//   - Opaque generic handles constrained only to comparability
//   - Optional mutex-guarded wrapper for multi-threaded drivers
//
// # Usage Examples
//
// Eviction handler wired to a code-cache reclaimer:
//
//	reg := loopkeep.New[uint64](loopkeep.WithEvictionHandler[uint64](codeCache.Free))
//
// Transitive keep-alive is the driver's job: when a loop that jumps or calls
// into other loops is entered, touch every reachable target too:
//
//	reg.Touch(ctx, entered)
//	for _, target := range jumpTargetsOf(entered) {
//	    reg.Touch(ctx, target)
//	}
//
// Multi-threaded drivers:
//
//	reg := loopkeep.NewGuarded[uint64]()
//	// Touch/Advance/IsAlive are now safe from any goroutine.
//
// # API Design Philosophy
//
// The registry never inspects, dereferences, or owns what a handle refers to.
// It records one fact per handle (the generation at last touch) and makes one
// decision per sweep (evict everything idle for at least maxAge generations).
// Which artifacts are reachable from which, and how evicted code buffers are
// freed, belong to the surrounding system.
//
// # Aging Semantics
//
// Read maxAge as "survives strictly fewer than maxAge idle generations": an
// artifact untouched for exactly maxAge generations is evicted on the next
// eligible sweep. A touch resets age to 0, so a frequently entered loop never
// ages regardless of how many generations have elapsed overall. maxAge 0
// disables aging entirely: the counter still grows, but no sweep ever runs.
//
// # Best Practices
//
//   - Use the unguarded registry when a single thread drives compilation
//   - Raise the check interval when compilation throughput is high; between
//     sweeps, stale entries may transiently outlive maxAge
//   - Treat Configure errors as setup defects, not conditions to retry
//   - Free evicted handles exactly once; the registry reports each eviction
//     exactly once
//
// # See Also
//
// For registry implementation details, see the core package.
// For scenario-driven benchmarks, see cmd/bench.
package loopkeep

import (
	"github.com/kianostad/loopkeep/internal/concurrency/guard"
	core "github.com/kianostad/loopkeep/internal/core"
	"github.com/kianostad/loopkeep/internal/monitoring/metrics"
)

// Re-export core types
type (
	// Registry is the main loop lifetime registry interface
	Registry[H comparable] = core.Registry[H]

	// Option configures a registry at construction time
	Option[H comparable] = core.Option[H]

	// Guarded is a mutex-guarded registry for multi-threaded drivers
	Guarded[H comparable] = guard.Guarded[H]

	// MetricsSnapshot is a point-in-time view of registry statistics
	MetricsSnapshot = metrics.Snapshot
)

// Configuration errors returned by Configure.
var (
	ErrMaxAge        = core.ErrMaxAge
	ErrCheckInterval = core.ErrCheckInterval
)

// New creates a single-owner registry with aging disabled. Call Configure to
// enable aging.
func New[H comparable](opts ...Option[H]) Registry[H] {
	return core.New[H](opts...)
}

// NewGuarded creates a registry wrapped in a single exclusive lock, for hosts
// that drive it from multiple threads.
func NewGuarded[H comparable](opts ...Option[H]) *Guarded[H] {
	return guard.Wrap(core.New[H](opts...))
}

// WithEvictionHandler registers a code-cache reclaimer callback fired exactly
// once per evicted handle during a sweep.
func WithEvictionHandler[H comparable](fn func(H)) Option[H] {
	return core.WithEvictionHandler[H](fn)
}

// WithCapacityHint presizes the retention map.
func WithCapacityHint[H comparable](n int) Option[H] {
	return core.WithCapacityHint[H](n)
}

// Common type aliases for convenience
type (
	// TokenRegistry keys on uint64 loop tokens, the usual shape for a JIT
	// that numbers its compiled traces
	TokenRegistry = Registry[uint64]

	// StringRegistry keys on string identifiers, convenient for tools and
	// tests
	StringRegistry = Registry[string]
)

// NewTokenRegistry creates a registry keyed on uint64 loop tokens.
func NewTokenRegistry() TokenRegistry {
	return New[uint64]()
}

// NewStringRegistry creates a registry keyed on string identifiers.
func NewStringRegistry() StringRegistry {
	return New[string]()
}
