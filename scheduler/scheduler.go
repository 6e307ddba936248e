// Package scheduler implements the DAG scheduler (spec §4.7): wave
// execution with a counting semaphore bounding concurrently-running
// step bodies, skip propagation on failed predecessors, and
// cooperative cancellation on the global deadline. Grounded on the
// teacher's workflow DAG (node/dependents bookkeeping) and its
// worker-pool execution loop (bounded concurrency, panic safety).
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"utdlrunner/core"
	"utdlrunner/executor"
	"utdlrunner/limits"
	"utdlrunner/plan"
	"utdlrunner/retrypolicy"
	"utdlrunner/runctx"
	"utdlrunner/telemetry"
)

// Scheduler runs a validated Plan's DAG to completion.
type Scheduler struct {
	registry  *executor.Registry
	limits    limits.Config
	logger    core.Logger
	telemetry core.Telemetry
}

// New builds a Scheduler. A nil logger or telemetry falls back to the
// no-op implementations in core.
func New(registry *executor.Registry, cfg limits.Config, logger core.Logger, tel core.Telemetry) *Scheduler {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if tel == nil {
		tel = core.NoOpTelemetry{}
	}
	return &Scheduler{registry: registry, limits: cfg, logger: logger, telemetry: tel}
}

type node struct {
	step   plan.Step
	status plan.Status
}

// runState holds everything the wave loop mutates, behind one mutex. The
// canonical lock order from spec §5 (nodes → completed → failed →
// ready) collapses to a single mutex here since all four registries
// are read and written together on every transition; splitting them
// would only reintroduce the ordering hazard the spec's finer-grained
// design exists to avoid.
type runState struct {
	mu            sync.Mutex
	nodes         map[string]*node
	dependents    map[string][]string
	ready         []string
	results       []plan.StepResult
	totalRetries  int
	limitExceeded bool
}

// Run executes p's DAG to completion, returning the ExecutionReport
// (spec §4.8). executionID identifies this run in the report and in
// telemetry.
func (s *Scheduler) Run(ctx context.Context, p plan.Plan, vars *runctx.Context, executionID string) (plan.ExecutionReport, error) {
	startedAt := time.Now()
	s.logger.Info("execution started", map[string]interface{}{"execution_id": executionID, "plan_id": p.Meta.ID, "steps": len(p.Steps)})

	if len(p.Steps) > s.limits.MaxSteps {
		return plan.ExecutionReport{}, core.Wrap(core.ErrInternalError, core.ErrLimitExceeded).WithOp("max_steps")
	}

	runCtx, cancel := context.WithTimeout(ctx, s.limits.MaxExecutionTime)
	defer cancel()

	runCtx, rootSpan := s.telemetry.StartSpan(runCtx, "utdl_execution")
	defer rootSpan.End()

	st := &runState{
		nodes:      make(map[string]*node, len(p.Steps)),
		dependents: make(map[string][]string),
		results:    make([]plan.StepResult, 0, len(p.Steps)),
	}
	for _, step := range p.Steps {
		st.nodes[step.ID] = &node{step: step, status: plan.StatusReady}
	}
	for _, step := range p.Steps {
		for _, dep := range step.DependsOn {
			st.dependents[dep] = append(st.dependents[dep], step.ID)
		}
	}
	for _, step := range p.Steps {
		if len(step.DependsOn) == 0 {
			st.ready = append(st.ready, step.ID)
		}
	}

	for {
		st.mu.Lock()
		wave := st.ready
		st.ready = nil
		st.mu.Unlock()

		if len(wave) == 0 {
			if allTerminal(st) {
				break
			}
			select {
			case <-runCtx.Done():
				drainRemaining(st)
				return s.buildReport(p, executionID, startedAt, st), runCtx.Err()
			case <-time.After(10 * time.Millisecond):
				continue
			}
		}

		s.runWave(runCtx, st, wave, vars)

		if st.limitExceeded {
			cancel()
		}
	}

	report := s.buildReport(p, executionID, startedAt, st)
	s.logger.Info("execution finished", map[string]interface{}{
		"execution_id": executionID, "status": report.Status,
		"passed": report.Summary.Passed, "failed": report.Summary.Failed, "skipped": report.Summary.Skipped,
	})
	if st.limitExceeded {
		return report, core.Wrap(core.ErrInternalError, core.ErrLimitExceeded).WithOp("max_retries_total")
	}
	return report, nil
}

func (s *Scheduler) runWave(ctx context.Context, st *runState, wave []string, vars *runctx.Context) {
	sem := make(chan struct{}, s.limits.MaxParallel)
	var wg sync.WaitGroup

	for _, id := range wave {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result := s.runOne(ctx, st, id, vars)

			st.mu.Lock()
			st.nodes[id].status = result.Status
			st.totalRetries += result.Attempt - 1
			st.results = append(st.results, result)
			if st.totalRetries > s.limits.MaxRetriesTotal {
				st.limitExceeded = true
				s.logger.Error("max_retries_total exceeded, cancelling execution", map[string]interface{}{"total_retries": st.totalRetries, "limit": s.limits.MaxRetriesTotal})
			}
			for _, depID := range st.dependents[id] {
				if allPredecessorsTerminal(st.nodes, depID) {
					st.ready = append(st.ready, depID)
				}
			}
			st.mu.Unlock()
		}(id)
	}
	wg.Wait()
}

// runOne resolves skip-propagation, then dispatches to the retry
// machine and executor. Panics inside the executor body are caught
// and converted to a Failed result (spec §7: exceptional errors must
// not tear down the scheduler).
func (s *Scheduler) runOne(ctx context.Context, st *runState, id string, vars *runctx.Context) (result plan.StepResult) {
	st.mu.Lock()
	n := st.nodes[id]
	failedDep := ""
	for _, dep := range n.step.DependsOn {
		if depNode, ok := st.nodes[dep]; ok &&
			(depNode.status == plan.StatusFailed || depNode.status == plan.StatusSkipped) {
			failedDep = dep
			break
		}
	}
	st.mu.Unlock()

	if failedDep != "" {
		s.logger.Warn("step skipped", map[string]interface{}{"step_id": id, "failed_dependency": failedDep})
		return plan.StepResult{
			StepID: id,
			Status: plan.StatusSkipped,
			Error:  fmt.Sprintf("Dependency '%s' failed", failedDep),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("step panicked", map[string]interface{}{"step_id": id, "panic": fmt.Sprintf("%v", r)})
			result = plan.StepResult{
				StepID: id,
				Status: plan.StatusFailed,
				Error:  fmt.Sprintf("internal: panic in step body: %v\n%s", r, debug.Stack()),
				Attempt: 1,
			}
		}
	}()

	return s.executeWithRetry(ctx, n.step, vars)
}

func (s *Scheduler) executeWithRetry(ctx context.Context, step plan.Step, vars *runctx.Context) plan.StepResult {
	exec, ok := s.registry.Resolve(step.Action)
	if !ok {
		return plan.StepResult{
			StepID:  step.ID,
			Status:  plan.StatusFailed,
			Error:   executor.ErrNoExecutor(step.Action).Error(),
			Attempt: 1,
		}
	}

	policy := step.RecoveryPolicy.Effective()
	var last plan.StepResult
	wantsSpan := step.Action == plan.ActionHTTPRequest || step.Action == "graphql"

	outcome := retrypolicy.Run(ctx, policy, func(attemptNum int) retrypolicy.AttemptResult {
		attemptCtx := ctx
		var span core.Span
		if wantsSpan {
			var spanCtx context.Context
			spanCtx, span = s.telemetry.StartSpan(ctx, "http_request")
			attemptCtx = spanCtx
		}

		stepCtx, cancel := context.WithTimeout(attemptCtx, s.limits.MaxStepTimeout)
		res, err := exec.Execute(stepCtx, step, vars)
		cancel()

		if err != nil {
			if span != nil {
				span.RecordError(err)
				span.End()
			}
			return retrypolicy.AttemptResult{Passed: false, Err: err}
		}

		res.Attempt = attemptNum
		if span != nil {
			telemetry.AnnotateHTTPStep(span, step.ID, res.HTTPDetails)
			if res.Status != plan.StatusPassed && res.Error != "" {
				span.RecordError(errors.New(res.Error))
			}
			span.End()
		}
		last = res
		return retrypolicy.AttemptResult{Passed: res.Status == plan.StatusPassed, Err: resultErr(res)}
	})

	last.Attempt = outcome.Attempt
	switch {
	case outcome.Passed && last.Status != plan.StatusPassed:
		// strategy=ignore coerced a failure to Passed (spec §4.4):
		// clear the error but keep the preserved context/extractions.
		last.Status = plan.StatusPassed
		last.Error = ""
	case !outcome.Passed:
		last.Status = plan.StatusFailed
		if outcome.Err != nil && last.Error == "" {
			last.Error = outcome.Err.Error()
		}
	}
	return last
}

func resultErr(res plan.StepResult) error {
	if res.Error == "" {
		return nil
	}
	return errors.New(res.Error)
}
