// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package main provides an interactive REPL (Read-Eval-Print Loop) for the
// loop lifetime registry.
//
// This command-line tool allows users to interactively drive the registry
// through a simple command interface. It's useful for development, testing,
// and learning how the generational aging policy behaves.
//
// # Features
//
//   - Interactive command-line interface
//   - Touch, advance, liveness, and retention commands
//   - Live policy reconfiguration
//   - Metrics inspection
//   - Graceful shutdown handling
//
// # Usage
//
// Start the REPL:
//
//	go run cmd/repl/main.go
//
// Available commands:
//
//	touch <id>                  - Mark a loop as in use (age resets to 0)
//	advance [n]                 - Advance n generations (default 1), printing evictions
//	alive <id>                  - Query whether a loop is retained
//	retained                    - List all retained loops
//	config <max_age> <interval> - Set the aging policy
//	gen                         - Print the current generation
//	stats                       - Print the metrics snapshot as JSON
//	quit, exit                  - Exit the REPL
//
// Example session:
//
//	> config 4 1
//	OK
//	> touch loop:a
//	OK
//	> advance 3
//	generation 3, evicted: none
//	> alive loop:a
//	true
//	> advance
//	generation 4, evicted: loop:a
//	> alive loop:a
//	false
//	> quit
//	Goodbye!
//
// # Dangers and Warnings
//
//   - **No Persistence**: The registry is in-memory. All state is lost when the program exits.
//   - **Input Validation**: Limited input validation - malformed input may cause unexpected behavior.
//   - **Single-Threaded**: The REPL drives a single-owner registry and is not designed for concurrent access.
//
// # See Also
//
// For scenario-driven performance runs, see the bench tool.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	core "github.com/kianostad/loopkeep/internal/core"
)

type REPL struct {
	registry core.Registry[string]
}

func NewREPL(registry core.Registry[string]) *REPL {
	return &REPL{
		registry: registry,
	}
}

func (r *REPL) Run() {
	fmt.Println("Loop Lifetime Registry REPL")
	fmt.Println("Commands: touch <id>, advance [n], alive <id>, retained, config <max_age> <interval>, gen, stats, quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		ctx := context.Background()

		switch cmd {
		case "touch":
			if len(args) != 1 {
				fmt.Println("Usage: touch <id>")
				continue
			}
			r.registry.Touch(ctx, args[0])
			fmt.Println("OK")

		case "advance":
			n := 1
			if len(args) == 1 {
				parsed, err := strconv.Atoi(args[0])
				if err != nil || parsed < 1 {
					fmt.Println("Usage: advance [n]  (n >= 1)")
					continue
				}
				n = parsed
			} else if len(args) > 1 {
				fmt.Println("Usage: advance [n]")
				continue
			}
			for i := 0; i < n; i++ {
				evicted := r.registry.Advance(ctx)
				sort.Strings(evicted)
				if len(evicted) == 0 {
					fmt.Printf("generation %d, evicted: none\n", r.registry.Generation(ctx))
				} else {
					fmt.Printf("generation %d, evicted: %s\n", r.registry.Generation(ctx), strings.Join(evicted, ", "))
				}
			}

		case "alive":
			if len(args) != 1 {
				fmt.Println("Usage: alive <id>")
				continue
			}
			fmt.Println(r.registry.IsAlive(ctx, args[0]))

		case "retained":
			handles := r.registry.RetainedHandles(ctx)
			sort.Strings(handles)
			if len(handles) == 0 {
				fmt.Println("(empty)")
			} else {
				fmt.Println(strings.Join(handles, ", "))
			}

		case "config":
			if len(args) != 2 {
				fmt.Println("Usage: config <max_age> <check_interval>")
				continue
			}
			maxAge, err1 := strconv.Atoi(args[0])
			checkInterval, err2 := strconv.Atoi(args[1])
			if err1 != nil || err2 != nil {
				fmt.Println("Usage: config <max_age> <check_interval>")
				continue
			}
			if err := r.registry.Configure(ctx, maxAge, checkInterval); err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Println("OK")

		case "gen":
			fmt.Println(r.registry.Generation(ctx))

		case "stats":
			snap := r.registry.Metrics(ctx)
			out, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Println(string(out))

		case "quit", "exit":
			fmt.Println("Goodbye!")
			return

		default:
			fmt.Printf("Unknown command: %s\n", cmd)
		}
	}
}

func main() {
	_ = flag.Bool("quiet", false, "Run in quiet mode")
	flag.Parse()

	registry := core.New[string]()

	repl := NewREPL(registry)

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived shutdown signal.")
		os.Exit(0)
	}()

	repl.Run()
}
