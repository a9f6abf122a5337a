// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config defines the YAML scenario schema for the bench driver.
//
// A scenario file describes one or more simulated JIT workloads: the aging
// policy to configure and the shape of the touch/advance traffic to replay
// against the registry. Scenarios keep benchmark runs reproducible and
// shareable.
//
// # Example scenario file
//
//	scenarios:
//	  - name: steady-hot
//	    policy:
//	      max_age: 4
//	      check_interval: 1
//	    workload:
//	      generations: 100000
//	      handles: 1024
//	      touch_percent: 80
//	      seed: 42
//	  - name: churn
//	    policy:
//	      max_age: 8
//	      check_interval: 16
//	    workload:
//	      generations: 100000
//	      handles: 100000
//	      touch_percent: 0
//	      seed: 7
//
// Values may reference environment variables as $(VAR_NAME); they are expanded
// before parsing.
package config

import "fmt"

// Policy mirrors the registry's Configure parameters.
type Policy struct {
	MaxAge        int `yaml:"max_age"`
	CheckInterval int `yaml:"check_interval"`
}

// Workload describes the simulated traffic for one scenario.
//
// Each generation the driver compiles one new loop (touch of a fresh handle)
// and re-enters a random subset of previously compiled loops: every live
// handle is re-touched with probability TouchPercent/100. TouchPercent 0 is a
// pure churn workload where nothing is ever reused.
type Workload struct {
	Generations  int   `yaml:"generations"`
	Handles      int   `yaml:"handles"`
	TouchPercent int   `yaml:"touch_percent"`
	Seed         int64 `yaml:"seed"`
}

// Scenario pairs a policy with a workload.
type Scenario struct {
	Name     string   `yaml:"name"`
	Policy   Policy   `yaml:"policy"`
	Workload Workload `yaml:"workload"`
}

// Config is the top-level scenario file structure.
type Config struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Validate checks every scenario against the registry's configuration
// constraints and the driver's workload bounds.
func (c *Config) Validate() error {
	if len(c.Scenarios) == 0 {
		return fmt.Errorf("no scenarios defined")
	}
	for i, s := range c.Scenarios {
		if s.Name == "" {
			return fmt.Errorf("scenario %d: name is required", i)
		}
		if s.Policy.MaxAge < 0 {
			return fmt.Errorf("scenario %q: max_age must be >= 0", s.Name)
		}
		if s.Policy.CheckInterval < 1 {
			return fmt.Errorf("scenario %q: check_interval must be >= 1", s.Name)
		}
		if s.Workload.Generations < 1 {
			return fmt.Errorf("scenario %q: generations must be >= 1", s.Name)
		}
		if s.Workload.Handles < 1 {
			return fmt.Errorf("scenario %q: handles must be >= 1", s.Name)
		}
		if s.Workload.TouchPercent < 0 || s.Workload.TouchPercent > 100 {
			return fmt.Errorf("scenario %q: touch_percent must be in [0, 100]", s.Name)
		}
	}
	return nil
}
