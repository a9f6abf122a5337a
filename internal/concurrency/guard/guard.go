// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package guard provides a mutex-guarded wrapper around the loop lifetime
// registry for hosts that drive it from multiple threads.
//
// The registry itself is single-owner: its state is designed to be mutated by
// exactly one controlling thread of execution at a time. When the host
// environment cannot guarantee that, the entire state must be protected by a
// single exclusive lock held for the duration of each operation. This package
// implements exactly that wrapper.
//
// # Key Features
//
//   - One exclusive lock covering every registry operation
//   - No operation re-enters the lock, so no deadlock risk from within
//   - Implements the same Registry interface as the unguarded manager
//   - Safe metrics reads from any goroutine
//
// # Usage Examples
//
//	reg := guard.Wrap(registry.New[uint64]())
//	reg.Configure(ctx, 4, 1)
//
//	// Safe from any goroutine:
//	reg.Touch(ctx, loopID)
//	evicted := reg.Advance(ctx)
//
// # Dangers and Warnings
//
//   - **No Cross-Handle Ordering**: The lock serializes individual calls, but
//     provides no ordering guarantee across different handles beyond what the
//     caller's own call order implies.
//   - **Eviction Handler Context**: A WithEvictionHandler callback fires while
//     the lock is held. The callback must not call back into the registry.
//   - **Throughput**: Every operation takes the lock. For single-threaded
//     drivers, use the unguarded registry directly.
//
// # See Also
//
// For the underlying registry semantics, see the core package.
package guard

import (
	"context"
	"sync"

	core "github.com/kianostad/loopkeep/internal/core"
	"github.com/kianostad/loopkeep/internal/monitoring/metrics"
)

// Guarded serializes all access to a wrapped registry with a single mutex.
type Guarded[H comparable] struct {
	mu  sync.Mutex
	reg core.Registry[H]
}

// Wrap returns a guarded view of reg. The caller must not keep using reg
// directly once wrapped.
func Wrap[H comparable](reg core.Registry[H]) *Guarded[H] {
	return &Guarded[H]{reg: reg}
}

func (g *Guarded[H]) Configure(ctx context.Context, maxAge, checkInterval int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reg.Configure(ctx, maxAge, checkInterval)
}

func (g *Guarded[H]) Touch(ctx context.Context, handle H) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reg.Touch(ctx, handle)
}

func (g *Guarded[H]) Advance(ctx context.Context) []H {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reg.Advance(ctx)
}

func (g *Guarded[H]) IsAlive(ctx context.Context, handle H) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reg.IsAlive(ctx, handle)
}

func (g *Guarded[H]) RetainedHandles(ctx context.Context) []H {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reg.RetainedHandles(ctx)
}

func (g *Guarded[H]) Len(ctx context.Context) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reg.Len(ctx)
}

func (g *Guarded[H]) Generation(ctx context.Context) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reg.Generation(ctx)
}

func (g *Guarded[H]) Metrics(ctx context.Context) metrics.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reg.Metrics(ctx)
}
