package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"utdlrunner/plan"
	"utdlrunner/runctx"
)

func TestWaitExecutorSleepsAndPasses(t *testing.T) {
	vars := runctx.New(nil)
	step := plan.Step{ID: "w1", Action: plan.ActionWait, Params: rawJSON(map[string]interface{}{"duration_ms": 20})}
	exec := NewWaitExecutor()
	start := time.Now()
	res, err := exec.Execute(context.Background(), step, vars)
	require.NoError(t, err)
	require.Equal(t, plan.StatusPassed, res.Status)
	require.GreaterOrEqual(t, time.Since(start).Milliseconds(), int64(19))
}

func TestWaitExecutorSleepAliasHandled(t *testing.T) {
	exec := NewWaitExecutor()
	require.True(t, exec.CanHandle(plan.ActionSleep))
	require.True(t, exec.CanHandle(plan.ActionWait))
}

func TestWaitExecutorMissingDurationIsExceptional(t *testing.T) {
	vars := runctx.New(nil)
	step := plan.Step{ID: "w1", Action: plan.ActionWait, Params: rawJSON(map[string]interface{}{})}
	exec := NewWaitExecutor()
	_, err := exec.Execute(context.Background(), step, vars)
	require.Error(t, err)
}

func TestWaitExecutorCancellation(t *testing.T) {
	vars := runctx.New(nil)
	step := plan.Step{ID: "w1", Action: plan.ActionWait, Params: rawJSON(map[string]interface{}{"duration_ms": 5000})}
	exec := NewWaitExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	res, err := exec.Execute(ctx, step, vars)
	require.NoError(t, err)
	require.Equal(t, plan.StatusFailed, res.Status)
	require.Equal(t, "cancelled", res.Error)
}
