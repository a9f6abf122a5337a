// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package metrics provides performance monitoring and observability for the
// loop lifetime registry.
//
// This package implements metrics collection using atomic counters and a ring
// buffer of sweep latencies. It tracks touch/advance/liveness operation
// counts, sweep and eviction totals, and registry gauges, enabling drivers to
// monitor eviction behavior and sweep cost in production.
//
// # Key Features
//
//   - Inline atomic counters with no background processing
//   - Touch tracking split into inserts and refreshes
//   - Sweep and eviction totals for reclaimer accounting
//   - Sweep latency ring buffer with percentile statistics
//   - Retained-size and generation gauges
//   - Bounded memory usage regardless of registry lifetime
//
// # Usage Examples
//
// Creating and using metrics:
//
//	stats := metrics.New()
//
//	stats.RecordInsert()
//	stats.RecordAdvance()
//	stats.RecordSweep(duration, evicted)
//
//	snap := stats.Snapshot()
//	fmt.Printf("sweeps: %d, evictions: %d, p99 sweep: %v\n",
//	    snap.Sweeps.Count, snap.Sweeps.Evictions, snap.Sweeps.Latency.P99)
//
// # Dangers and Warnings
//
//   - **Snapshot Consistency**: Snapshot reads each counter atomically but not
//     the set of counters as one transaction; totals taken mid-operation can
//     be off by one relative to each other.
//   - **Ring Buffer Capacity**: Only the most recent sweep latencies are kept.
//     Percentiles describe recent behavior, not the full history.
//
// # Thread Safety
//
// All recording operations are safe for concurrent use. The registry itself
// is single-owner, but the guard package wrapper may expose metrics reads
// from other goroutines.
//
// # See Also
//
// For the registry that feeds these metrics, see the core package.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// sweepLatencyWindow is the number of recent sweep durations retained for
// percentile statistics.
const sweepLatencyWindow = 1024

// LatencyStats provides latency statistics over the retained window.
type LatencyStats struct {
	Count uint64        `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
}

// OperationCounts tracks counts for all registry operation types. Touch is
// split into first-time inserts and refreshes of already-retained handles.
type OperationCounts struct {
	Insert  uint64 `json:"insert"`
	Refresh uint64 `json:"refresh"`
	Advance uint64 `json:"advance"`
	IsAlive uint64 `json:"is_alive"`
}

// SweepStats tracks sweep executions and their outcome.
type SweepStats struct {
	Count     uint64       `json:"count"`
	Evictions uint64       `json:"evictions"`
	Latency   LatencyStats `json:"latency"`
}

// RegistryGauges tracks point-in-time registry state.
type RegistryGauges struct {
	Retained   uint64 `json:"retained"`
	Generation uint64 `json:"generation"`
}

// Snapshot provides a complete snapshot of all metrics.
type Snapshot struct {
	Operations OperationCounts `json:"operations"`
	Sweeps     SweepStats      `json:"sweeps"`
	Registry   RegistryGauges  `json:"registry"`
}

// DurationRingBuffer implements a thread-safe bounded ring buffer for
// time.Duration samples.
type DurationRingBuffer struct {
	buffer []time.Duration
	head   int
	tail   int
	size   int
	count  int
	mu     sync.RWMutex
}

// NewDurationRingBuffer creates a new ring buffer with specified capacity.
func NewDurationRingBuffer(capacity int) *DurationRingBuffer {
	return &DurationRingBuffer{
		buffer: make([]time.Duration, capacity),
		size:   capacity,
	}
}

// Push adds an item to the ring buffer.
func (rb *DurationRingBuffer) Push(item time.Duration) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.buffer[rb.tail] = item
	rb.tail = (rb.tail + 1) % rb.size

	if rb.count < rb.size {
		rb.count++
	} else {
		rb.head = (rb.head + 1) % rb.size
	}
}

// Stats calculates latency statistics over the buffered samples.
func (rb *DurationRingBuffer) Stats() LatencyStats {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.count == 0 {
		return LatencyStats{}
	}

	// Copy values to avoid holding lock during sort
	values := make([]time.Duration, rb.count)
	for i := 0; i < rb.count; i++ {
		idx := (rb.head + i) % rb.size
		values[i] = rb.buffer[idx]
	}

	sort.Slice(values, func(i, j int) bool {
		return values[i] < values[j]
	})

	stats := LatencyStats{
		Count: uint64(rb.count),
		Min:   values[0],
		Max:   values[rb.count-1],
	}

	var total time.Duration
	for _, v := range values {
		total += v
	}
	stats.Mean = total / time.Duration(rb.count)

	stats.P50 = percentile(values, 0.50)
	stats.P95 = percentile(values, 0.95)
	stats.P99 = percentile(values, 0.99)

	return stats
}

// percentile calculates the nth percentile from sorted values.
func percentile(values []time.Duration, p float64) time.Duration {
	if len(values) == 0 {
		return 0
	}

	index := int(float64(len(values)-1) * p)
	if index >= len(values) {
		index = len(values) - 1
	}
	return values[index]
}

// Metrics collects registry statistics. All recording methods are inline and
// non-blocking: the registry contract forbids operations that suspend or
// spawn goroutines.
type Metrics struct {
	inserts    atomic.Uint64
	refreshes  atomic.Uint64
	advances   atomic.Uint64
	aliveReads atomic.Uint64
	sweeps     atomic.Uint64
	evictions  atomic.Uint64
	retained   atomic.Uint64
	generation atomic.Uint64

	sweepLatency *DurationRingBuffer
}

// New creates a new metrics instance.
func New() *Metrics {
	return &Metrics{
		sweepLatency: NewDurationRingBuffer(sweepLatencyWindow),
	}
}

// RecordInsert records a touch that created a new retention record.
func (m *Metrics) RecordInsert() {
	m.inserts.Add(1)
}

// RecordRefresh records a touch that refreshed an existing retention record.
func (m *Metrics) RecordRefresh() {
	m.refreshes.Add(1)
}

// RecordAdvance records a generation advance.
func (m *Metrics) RecordAdvance() {
	m.advances.Add(1)
}

// RecordIsAlive records a liveness query.
func (m *Metrics) RecordIsAlive() {
	m.aliveReads.Add(1)
}

// RecordSweep records one sweep execution, its duration, and the number of
// handles it evicted.
func (m *Metrics) RecordSweep(d time.Duration, evicted uint64) {
	m.sweeps.Add(1)
	m.evictions.Add(evicted)
	m.sweepLatency.Push(d)
}

// SetRetained updates the retained-handle gauge.
func (m *Metrics) SetRetained(n uint64) {
	m.retained.Store(n)
}

// SetGeneration updates the generation gauge.
func (m *Metrics) SetGeneration(g uint64) {
	m.generation.Store(g)
}

// Snapshot returns the current state of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Operations: OperationCounts{
			Insert:  m.inserts.Load(),
			Refresh: m.refreshes.Load(),
			Advance: m.advances.Load(),
			IsAlive: m.aliveReads.Load(),
		},
		Sweeps: SweepStats{
			Count:     m.sweeps.Load(),
			Evictions: m.evictions.Load(),
			Latency:   m.sweepLatency.Stats(),
		},
		Registry: RegistryGauges{
			Retained:   m.retained.Load(),
			Generation: m.generation.Load(),
		},
	}
}
