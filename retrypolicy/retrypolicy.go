// Package retrypolicy implements the per-step retry state machine
// (spec §4.4): an explicit Attempting/Sleeping/Terminated machine
// wrapping a step's executor invocation, rather than a closure-based
// retry helper, so cancellation and attempt counting are first-class.
package retrypolicy

import (
	"context"
	"math"
	"time"

	"utdlrunner/core"
	"utdlrunner/plan"
)

// State is one of the machine's three states.
type State int

const (
	Attempting State = iota
	Sleeping
	Terminated
)

// Outcome is what Run returns: the last attempt's result, the total
// attempt count, and whether the machine considers the step passed.
type Outcome struct {
	Passed  bool
	Attempt int
	Err     error
}

// AttemptResult is what the caller's attempt function reports back
// to the machine for one executor invocation.
type AttemptResult struct {
	Passed bool
	Err    error
}

// Run drives policy's state machine, invoking attempt once per try.
// attempt is the step's executor body; it is called at least once
// regardless of policy.
func Run(ctx context.Context, policy plan.RecoveryPolicy, attempt func(attemptNum int) AttemptResult) Outcome {
	state := Attempting
	attemptNum := 1
	var lastErr error

	for {
		switch state {
		case Attempting:
			select {
			case <-ctx.Done():
				return Outcome{Passed: false, Attempt: attemptNum, Err: core.ErrCancelled}
			default:
			}

			res := attempt(attemptNum)
			if res.Passed {
				return Outcome{Passed: true, Attempt: attemptNum}
			}
			lastErr = res.Err

			switch {
			case policy.Strategy == plan.StrategyRetry && attemptNum < policy.MaxAttempts:
				state = Sleeping
			case policy.Strategy == plan.StrategyIgnore:
				return Outcome{Passed: true, Attempt: attemptNum}
			default:
				return Outcome{Passed: false, Attempt: attemptNum, Err: lastErr}
			}

		case Sleeping:
			delay := backoffDelay(policy, attemptNum)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return Outcome{Passed: false, Attempt: attemptNum, Err: core.ErrCancelled}
			case <-timer.C:
				attemptNum++
				state = Attempting
			}

		case Terminated:
			return Outcome{Passed: false, Attempt: attemptNum, Err: lastErr}
		}
	}
}

// backoffDelay computes backoff_ms * backoff_factor^(attempt-1).
func backoffDelay(policy plan.RecoveryPolicy, attempt int) time.Duration {
	factor := policy.BackoffFactor
	if factor <= 0 {
		factor = 2.0
	}
	ms := float64(policy.BackoffMs) * math.Pow(factor, float64(attempt-1))
	return time.Duration(ms) * time.Millisecond
}
