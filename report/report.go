// Package report implements the Reporter (spec §4.8): it aggregates
// the StepResults a scheduler run collects into a single
// ExecutionReport, computing the summary counters and the overall
// pass/fail status external consumers key off.
package report

import (
	"time"

	"utdlrunner/plan"
)

// Build aggregates steps into an ExecutionReport. startedAt/endedAt
// bound the execution's wall-clock duration; the overall status is
// "passed" only if every step passed (a skipped step fails the run,
// since it means a dependency failed upstream).
func Build(p plan.Plan, executionID string, startedAt, endedAt time.Time, steps []plan.StepResult) plan.ExecutionReport {
	summary := plan.Summary{TotalSteps: len(p.Steps)}
	status := "passed"

	for _, r := range steps {
		switch r.Status {
		case plan.StatusPassed:
			summary.Passed++
		case plan.StatusFailed:
			summary.Failed++
			status = "failed"
		case plan.StatusSkipped:
			summary.Skipped++
			status = "failed"
		}
		if r.Attempt > 1 {
			summary.TotalRetries += r.Attempt - 1
		}
	}
	summary.DurationMs = endedAt.Sub(startedAt).Milliseconds()

	return plan.ExecutionReport{
		ExecutionID: executionID,
		PlanID:      p.Meta.ID,
		Status:      status,
		StartTime:   startedAt.UTC().Format(time.RFC3339Nano),
		EndTime:     endedAt.UTC().Format(time.RFC3339Nano),
		Summary:     summary,
		Steps:       steps,
	}
}
