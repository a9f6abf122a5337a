// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package registry provides a generational lifetime registry for dynamically
// compiled code artifacts ("loops") produced by a tracing JIT.
//
// This package implements the retain/evict policy that decides when a compiled
// artifact may be safely reclaimed. A tracing JIT continuously compiles new
// specialized code paths; without bounds this grows memory without limit. The
// registry amortizes the cost of liveness decisions over compilation activity:
// aging is driven by a logical event counter (one tick per compiled unit), not
// wall-clock time, so behavior is deterministic and timer-free.
//
// # Key Features
//
//   - O(1) touch and liveness checks, amortized O(n) sweeps
//   - Logical-time aging: one generation per Advance call
//   - Exact eviction reporting for external code-cache reclaimers
//   - Opaque generic handles constrained only to comparability
//   - Sweep cadence decoupled from generation rate via a check interval
//   - Hard aging disable (max age 0) independent of counter growth
//
// # Usage Examples
//
// Basic compile/execute/retire cycle:
//
//	reg := registry.New[uint64]()
//	if err := reg.Configure(ctx, 4, 1); err != nil {
//	    // max age or check interval out of range
//	}
//
//	reg.Touch(ctx, loopID)        // loop entered or kept reachable
//	evicted := reg.Advance(ctx)   // one compilation unit processed
//	for _, id := range evicted {
//	    codeCache.Free(id)
//	}
//
// Eviction notification hook:
//
//	reg := registry.New[uint64](registry.WithEvictionHandler[uint64](func(id uint64) {
//	    codeCache.Free(id)
//	}))
//
// Introspection:
//
//	alive := reg.IsAlive(ctx, loopID)
//	retained := reg.RetainedHandles(ctx)
//	stats := reg.Metrics(ctx)
//
// # Dangers and Warnings
//
//   - **Single Owner**: The registry is designed to be driven by exactly one
//     controlling thread of execution. For multi-threaded drivers, use the
//     guard package wrapper.
//   - **Transitive Reachability**: The registry does not traverse dependency
//     graphs. A driver must Touch every artifact reachable from an executed
//     one (jump targets, call_assembler targets), not just the one entered.
//   - **Bounded Staleness**: With a check interval above 1, entries older than
//     the max age can transiently survive between sweeps. This is an accepted
//     trade-off for sweep-cost amortization.
//   - **Resource Ownership**: The registry never owns the native resource a
//     handle denotes. Freeing evicted code buffers exactly once is the
//     reclaimer's responsibility.
//   - **Eviction Order**: The order of handles within one sweep's eviction set
//     is unspecified.
//
// # Best Practices
//
//   - Read max age as "survives strictly fewer than maxAge idle generations":
//     an artifact untouched for exactly maxAge generations is evicted on the
//     next eligible sweep.
//   - Touch an artifact on every re-entry to its hot path; a frequently used
//     artifact then never ages, regardless of total generations elapsed.
//   - Raise the check interval when compilation throughput is high and sweep
//     cost matters more than eviction promptness.
//   - Treat configuration errors as setup defects, not runtime conditions to
//     retry.
//
// # Performance Considerations
//
//   - Touch and IsAlive are O(1) map operations
//   - Advance is O(1) when no sweep runs, O(n) for a sweeping call where n is
//     the retained-handle count
//   - No operation suspends, blocks, yields, or spawns goroutines
//
// # Thread Safety
//
// The registry is not internally synchronized. It assumes a single logical
// owner serializes all calls. See the guard package for a mutex-guarded
// wrapper suitable for multi-threaded hosts.
//
// # See Also
//
// For sweep and eviction statistics, see the metrics package.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/kianostad/loopkeep/internal/monitoring/metrics"
)

// Registry tracks the liveness of compiled code artifacts and decides when an
// artifact may be reclaimed. Handles are opaque: the registry never inspects
// or dereferences them, only compares them by identity.
type Registry[H comparable] interface {
	// Configure sets the aging policy. maxAge must be >= 0 (0 disables aging
	// entirely) and checkInterval must be >= 1 (sweep cadence in generations).
	// On violation the prior policy is left unchanged. Valid calls take effect
	// on subsequent Advance calls, even mid-sequence, and never trigger a
	// sweep themselves.
	Configure(ctx context.Context, maxAge, checkInterval int) error

	// Touch records that handle is currently in use or must remain
	// retrievable, resetting its age to 0. Inserts the handle if absent,
	// including one that was previously evicted. Never fails.
	Touch(ctx context.Context, handle H)

	// Advance moves time forward by exactly one generation, then sweeps if
	// aging is enabled and the generation is a multiple of the check
	// interval. Returns exactly the handles evicted by this call's sweep,
	// empty when no sweep ran or nothing was stale.
	Advance(ctx context.Context) []H

	// IsAlive reports whether handle is currently retained. Unknown handles
	// report false. Does not refresh age.
	IsAlive(ctx context.Context, handle H) bool

	// RetainedHandles returns a snapshot of all currently retained handles,
	// reflecting the post-sweep state as of the last Advance.
	RetainedHandles(ctx context.Context) []H

	// Len returns the number of currently retained handles.
	Len(ctx context.Context) int

	// Generation returns the current generation counter.
	Generation(ctx context.Context) uint64

	// Metrics returns a snapshot of operation, sweep, and eviction
	// statistics.
	Metrics(ctx context.Context) metrics.Snapshot
}

// manager is the single-owner Registry implementation.
type manager[H comparable] struct {
	maxAge        uint64
	checkInterval uint64
	generation    uint64
	touched       map[H]uint64 // handle -> generation at last touch
	onEvict       func(H)
	stats         *metrics.Metrics
}

// New creates a registry with aging disabled (max age 0, check interval 1).
// Call Configure to enable aging.
func New[H comparable](opts ...Option[H]) Registry[H] {
	m := &manager[H]{
		checkInterval: 1,
		touched:       make(map[H]uint64),
		stats:         metrics.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *manager[H]) Configure(_ context.Context, maxAge, checkInterval int) error {
	if maxAge < 0 {
		return fmt.Errorf("configure: max age %d: %w", maxAge, ErrMaxAge)
	}
	if checkInterval < 1 {
		return fmt.Errorf("configure: check interval %d: %w", checkInterval, ErrCheckInterval)
	}
	m.maxAge = uint64(maxAge)
	m.checkInterval = uint64(checkInterval)
	return nil
}

func (m *manager[H]) Touch(_ context.Context, handle H) {
	before := len(m.touched)
	m.touched[handle] = m.generation
	if len(m.touched) != before {
		m.stats.RecordInsert()
	} else {
		m.stats.RecordRefresh()
	}
	m.stats.SetRetained(uint64(len(m.touched)))
}

func (m *manager[H]) Advance(_ context.Context) []H {
	m.generation++
	m.stats.RecordAdvance()
	m.stats.SetGeneration(m.generation)

	// max age 0 is a hard disable: no age computation, no removals.
	if m.maxAge == 0 || m.generation%m.checkInterval != 0 {
		return nil
	}

	start := time.Now()
	var evicted []H
	for handle, touched := range m.touched {
		if m.generation-touched >= m.maxAge {
			delete(m.touched, handle)
			evicted = append(evicted, handle)
		}
	}
	m.stats.RecordSweep(time.Since(start), uint64(len(evicted)))
	m.stats.SetRetained(uint64(len(m.touched)))

	if m.onEvict != nil {
		for _, handle := range evicted {
			m.onEvict(handle)
		}
	}
	return evicted
}

func (m *manager[H]) IsAlive(_ context.Context, handle H) bool {
	m.stats.RecordIsAlive()
	_, ok := m.touched[handle]
	return ok
}

func (m *manager[H]) RetainedHandles(_ context.Context) []H {
	handles := make([]H, 0, len(m.touched))
	for handle := range m.touched {
		handles = append(handles, handle)
	}
	return handles
}

func (m *manager[H]) Len(_ context.Context) int {
	return len(m.touched)
}

func (m *manager[H]) Generation(_ context.Context) uint64 {
	return m.generation
}

func (m *manager[H]) Metrics(_ context.Context) metrics.Snapshot {
	return m.stats.Snapshot()
}
