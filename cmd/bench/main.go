// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package main provides benchmarking tools for the loop lifetime registry.
//
// This command-line tool replays simulated JIT workloads against the registry
// to evaluate sweep cost, eviction behavior, and per-operation throughput
// under different aging policies. It's useful for tuning max age and check
// interval for a given compilation rate.
//
// # Benchmark Categories
//
// The built-in suite includes:
//   - Steady re-touch (hot loops that never age out)
//   - Churn (compile-once, never reuse; everything ages out)
//   - Hot/cold mix (a hot core set plus a cold churning tail)
//   - Sweep cadence comparison (same workload across check intervals)
//   - Linked loops (driver-side transitive keep-alive of jump targets)
//
// # Usage
//
// Run the built-in suite:
//
//	go run cmd/bench/main.go
//
// Replay scenarios from a YAML file:
//
//	go run cmd/bench/main.go -scenario scenarios.yaml
//
// # Interpreting Results
//
// Key numbers to consider:
//   - **ops/sec**: touch+advance throughput (higher is better)
//   - **evictions**: total handles reclaimed over the run
//   - **retained**: registry size at the end of the run
//   - **sweep p99**: tail latency of a single sweep; grows with registry size
//     and shrinks as the check interval amortizes sweeps
//
// # Dangers and Warnings
//
//   - **Resource Consumption**: Large workloads consume significant CPU and memory.
//   - **System Impact**: Results vary with hardware, Go runtime version, and GC settings.
//   - **Data Loss**: The registry is in-memory; nothing survives the run.
//
// # See Also
//
// For interactive exploration, see the repl tool.
// For the scenario file schema, see the config package.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/kianostad/loopkeep/internal/config"
	core "github.com/kianostad/loopkeep/internal/core"
)

func main() {
	scenarioPath := flag.String("scenario", "", "YAML scenario file to replay instead of the built-in suite")
	flag.Parse()

	fmt.Println("Loop Lifetime Registry Benchmarks")
	fmt.Println("=================================")

	if *scenarioPath != "" {
		cfg, err := config.Load(*scenarioPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading scenario file: %v\n", err)
			os.Exit(1)
		}
		for _, s := range cfg.Scenarios {
			runScenario(s)
		}
		return
	}

	benchmarkSteady()
	benchmarkChurn()
	benchmarkHotCold()
	benchmarkSweepCadence()
	benchmarkLinkedLoops()
}

// runScenario replays one YAML-defined workload: each generation compiles one
// fresh loop and re-touches every live loop with probability touch_percent/100.
func runScenario(s config.Scenario) {
	fmt.Printf("\nScenario %q (max_age=%d, check_interval=%d)\n",
		s.Name, s.Policy.MaxAge, s.Policy.CheckInterval)

	ctx := context.Background()
	registry := core.New[uint64](core.WithCapacityHint[uint64](s.Workload.Handles))
	if err := registry.Configure(ctx, s.Policy.MaxAge, s.Policy.CheckInterval); err != nil {
		fmt.Fprintf(os.Stderr, "configure: %v\n", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(s.Workload.Seed))
	live := make([]uint64, 0, s.Workload.Handles)
	var next uint64
	var ops, evictions int

	start := time.Now()
	for gen := 0; gen < s.Workload.Generations; gen++ {
		// Compile one new loop per generation.
		if len(live) < s.Workload.Handles {
			registry.Touch(ctx, next)
			live = append(live, next)
			next++
			ops++
		}

		// Re-enter a random subset of compiled loops.
		if s.Workload.TouchPercent > 0 {
			for _, h := range live {
				if rng.Intn(100) < s.Workload.TouchPercent {
					registry.Touch(ctx, h)
					ops++
				}
			}
		}

		evicted := registry.Advance(ctx)
		evictions += len(evicted)
		ops++
	}
	duration := time.Since(start)

	report(registry, ops, evictions, duration)
}

func benchmarkSteady() {
	fmt.Println("\n1. Steady re-touch (hot loops never age out)")
	ctx := context.Background()
	registry := core.New[uint64]()
	mustConfigure(registry, 4, 1)

	const numLoops = 1024
	const generations = 100000

	var ops, evictions int
	start := time.Now()
	for gen := 0; gen < generations; gen++ {
		registry.Touch(ctx, uint64(gen%numLoops))
		evictions += len(registry.Advance(ctx))
		ops += 2
	}
	duration := time.Since(start)

	report(registry, ops, evictions, duration)
}

func benchmarkChurn() {
	fmt.Println("\n2. Churn (compile once, never reuse)")
	ctx := context.Background()
	registry := core.New[uint64]()
	mustConfigure(registry, 4, 1)

	const generations = 100000

	var ops, evictions int
	start := time.Now()
	for gen := 0; gen < generations; gen++ {
		registry.Touch(ctx, uint64(gen))
		evictions += len(registry.Advance(ctx))
		ops += 2
	}
	duration := time.Since(start)

	report(registry, ops, evictions, duration)
}

func benchmarkHotCold() {
	fmt.Println("\n3. Hot/cold mix (hot core set, cold churning tail)")
	ctx := context.Background()
	registry := core.New[uint64]()
	mustConfigure(registry, 8, 1)

	const hotLoops = 64
	const generations = 100000

	var ops, evictions int
	cold := uint64(hotLoops)
	start := time.Now()
	for gen := 0; gen < generations; gen++ {
		// The hot set is re-entered every generation.
		registry.Touch(ctx, uint64(gen%hotLoops))
		ops++

		// One cold loop is compiled, used once, and abandoned.
		registry.Touch(ctx, cold)
		cold++
		ops++

		evictions += len(registry.Advance(ctx))
		ops++
	}
	duration := time.Since(start)

	report(registry, ops, evictions, duration)
}

func benchmarkSweepCadence() {
	fmt.Println("\n4. Sweep cadence (same churn across check intervals)")

	const generations = 100000

	for _, checkInterval := range []int{1, 4, 16, 64, 256} {
		ctx := context.Background()
		registry := core.New[uint64]()
		mustConfigure(registry, 16, checkInterval)

		var evictions int
		start := time.Now()
		for gen := 0; gen < generations; gen++ {
			registry.Touch(ctx, uint64(gen))
			evictions += len(registry.Advance(ctx))
		}
		duration := time.Since(start)

		snap := registry.Metrics(ctx)
		fmt.Printf("   check_interval=%-4d %d gens in %v (%.0f gens/sec), sweeps: %d, evictions: %d, sweep p99: %v\n",
			checkInterval, generations, duration, float64(generations)/duration.Seconds(),
			snap.Sweeps.Count, evictions, snap.Sweeps.Latency.P99)
	}
}

// benchmarkLinkedLoops demonstrates the driver-side keep-alive convention:
// entering a loop touches the loop itself and every loop it can jump into.
func benchmarkLinkedLoops() {
	fmt.Println("\n5. Linked loops (transitive keep-alive by the driver)")
	ctx := context.Background()
	registry := core.New[uint64]()
	mustConfigure(registry, 4, 1)

	const chains = 256
	const chainLength = 4
	const generations = 100000

	// Each chain head jumps into chainLength-1 targets. Only heads are
	// entered directly; targets stay alive because the driver touches them
	// alongside the head.
	var ops, evictions int
	start := time.Now()
	for gen := 0; gen < generations; gen++ {
		head := uint64(gen%chains) * chainLength
		for i := uint64(0); i < chainLength; i++ {
			registry.Touch(ctx, head+i)
			ops++
		}
		evictions += len(registry.Advance(ctx))
		ops++
	}
	duration := time.Since(start)

	report(registry, ops, evictions, duration)
}

func mustConfigure(registry core.Registry[uint64], maxAge, checkInterval int) {
	if err := registry.Configure(context.Background(), maxAge, checkInterval); err != nil {
		fmt.Fprintf(os.Stderr, "configure: %v\n", err)
		os.Exit(1)
	}
}

func report(registry core.Registry[uint64], ops, evictions int, duration time.Duration) {
	ctx := context.Background()
	snap := registry.Metrics(ctx)
	fmt.Printf("   %d ops in %v (%.0f ops/sec)\n", ops, duration, float64(ops)/duration.Seconds())
	fmt.Printf("   generation: %d, retained: %d, evictions: %d\n",
		registry.Generation(ctx), registry.Len(ctx), evictions)
	fmt.Printf("   sweeps: %d, sweep mean: %v, sweep p99: %v\n",
		snap.Sweeps.Count, snap.Sweeps.Latency.Mean, snap.Sweeps.Latency.P99)
}
