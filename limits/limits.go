// Package limits implements the global caps enforced before and during
// execution (spec §4.9): defaults with RUNNER_MAX_* environment
// overrides.
package limits

import (
	"os"
	"strconv"
	"time"
)

// Config is the set of global caps the scheduler enforces.
type Config struct {
	MaxSteps          int
	MaxParallel       int
	MaxRetriesTotal   int
	MaxExecutionTime  time.Duration
	MaxStepTimeout    time.Duration
}

// Defaults returns the spec §4.9 defaults: 100 / 10 / 50 / 300s / 30s.
func Defaults() Config {
	return Config{
		MaxSteps:         100,
		MaxParallel:      10,
		MaxRetriesTotal:  50,
		MaxExecutionTime: 300 * time.Second,
		MaxStepTimeout:   30 * time.Second,
	}
}

// FromEnv returns Defaults() with any RUNNER_MAX_* environment
// variable present overriding its field.
func FromEnv() Config {
	c := Defaults()
	if v, ok := envInt("RUNNER_MAX_STEPS"); ok {
		c.MaxSteps = v
	}
	if v, ok := envInt("RUNNER_MAX_PARALLEL"); ok {
		c.MaxParallel = v
	}
	if v, ok := envInt("RUNNER_MAX_RETRIES"); ok {
		c.MaxRetriesTotal = v
	}
	if v, ok := envInt("RUNNER_MAX_EXECUTION_SECS"); ok {
		c.MaxExecutionTime = time.Duration(v) * time.Second
	}
	if v, ok := envInt("RUNNER_MAX_STEP_TIMEOUT"); ok {
		c.MaxStepTimeout = time.Duration(v) * time.Second
	}
	return c
}

func envInt(name string) (int, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
