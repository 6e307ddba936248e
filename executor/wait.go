package executor

import (
	"context"
	"encoding/json"
	"time"

	"utdlrunner/core"
	"utdlrunner/plan"
	"utdlrunner/runctx"
)

// WaitExecutor handles the wait/sleep action (spec §4.5.2).
type WaitExecutor struct{}

func NewWaitExecutor() *WaitExecutor {
	return &WaitExecutor{}
}

func (e *WaitExecutor) CanHandle(action string) bool {
	return action == plan.ActionWait || action == plan.ActionSleep
}

type waitParams struct {
	DurationMs *int64 `json:"duration_ms"`
	Ms         *int64 `json:"ms"`
}

func (e *WaitExecutor) Execute(ctx context.Context, step plan.Step, vars *runctx.Context) (plan.StepResult, error) {
	var params waitParams
	if len(step.Params) > 0 {
		if err := json.Unmarshal(step.Params, &params); err != nil {
			return plan.StepResult{}, core.New(core.ErrMissingParam, "invalid wait params: "+err.Error()).WithStep(step.ID)
		}
	}

	duration := params.DurationMs
	if duration == nil {
		duration = params.Ms
	}
	if duration == nil || *duration < 0 {
		return plan.StepResult{}, core.New(core.ErrMissingParam, "wait requires a non-negative duration_ms").WithStep(step.ID)
	}

	contextBefore := vars.Snapshot()
	start := time.Now()

	timer := time.NewTimer(time.Duration(*duration) * time.Millisecond)
	select {
	case <-ctx.Done():
		timer.Stop()
		return plan.StepResult{
			StepID:        step.ID,
			Status:        plan.StatusFailed,
			DurationMs:    time.Since(start).Milliseconds(),
			Error:         "cancelled",
			ContextBefore: contextBefore,
			ContextAfter:  contextBefore,
		}, nil
	case <-timer.C:
	}

	elapsed := time.Since(start).Milliseconds()
	return plan.StepResult{
		StepID:        step.ID,
		Status:        plan.StatusPassed,
		DurationMs:    elapsed,
		ContextBefore: contextBefore,
		ContextAfter:  contextBefore,
	}, nil
}
