package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"utdlrunner/plan"
)

func TestBuildAllPassed(t *testing.T) {
	p := plan.Plan{Meta: plan.Meta{ID: "p1"}, Steps: []plan.Step{{ID: "a"}, {ID: "b"}}}
	start := time.Now()
	end := start.Add(50 * time.Millisecond)
	steps := []plan.StepResult{
		{StepID: "a", Status: plan.StatusPassed, Attempt: 1},
		{StepID: "b", Status: plan.StatusPassed, Attempt: 2},
	}

	r := Build(p, "exec-1", start, end, steps)
	require.Equal(t, "passed", r.Status)
	require.Equal(t, 2, r.Summary.TotalSteps)
	require.Equal(t, 2, r.Summary.Passed)
	require.Equal(t, 0, r.Summary.Failed)
	require.Equal(t, 1, r.Summary.TotalRetries)
	require.Equal(t, int64(50), r.Summary.DurationMs)
	require.Equal(t, "exec-1", r.ExecutionID)
	require.Equal(t, "p1", r.PlanID)
}

func TestBuildSkipReportsAsFailed(t *testing.T) {
	p := plan.Plan{Meta: plan.Meta{ID: "p1"}, Steps: []plan.Step{{ID: "a"}, {ID: "b"}}}
	steps := []plan.StepResult{
		{StepID: "a", Status: plan.StatusFailed},
		{StepID: "b", Status: plan.StatusSkipped},
	}

	r := Build(p, "exec-2", time.Now(), time.Now(), steps)
	require.Equal(t, "failed", r.Status)
	require.Equal(t, 1, r.Summary.Failed)
	require.Equal(t, 1, r.Summary.Skipped)
}
