package scheduler

import (
	"time"

	"utdlrunner/plan"
	"utdlrunner/report"
)

func allTerminal(st *runState) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, n := range st.nodes {
		if !n.status.Terminal() {
			return false
		}
	}
	return true
}

// allPredecessorsTerminal reports whether every dependency of id has
// reached a terminal status. Caller must hold st.mu.
func allPredecessorsTerminal(nodes map[string]*node, id string) bool {
	n, ok := nodes[id]
	if !ok {
		return false
	}
	if n.status != plan.StatusReady {
		return false // already dispatched or terminal
	}
	for _, dep := range n.step.DependsOn {
		depNode, ok := nodes[dep]
		if !ok || !depNode.status.Terminal() {
			return false
		}
	}
	return true
}

// drainRemaining marks every non-terminal node Failed (if it was
// running-equivalent) or Skipped (if it never started) on a global
// cancellation (spec §4.7: "drains to Failed for running tasks and
// Skipped for not-yet-started tasks"). Since runOne's executor body
// already returns Failed on a cancelled context, any node left in
// StatusReady here never started and is marked Skipped.
func drainRemaining(st *runState) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for id, n := range st.nodes {
		if n.status.Terminal() {
			continue
		}
		n.status = plan.StatusSkipped
		st.results = append(st.results, plan.StepResult{
			StepID: id,
			Status: plan.StatusSkipped,
			Error:  "cancelled",
		})
	}
}

func (s *Scheduler) buildReport(p plan.Plan, executionID string, startedAt time.Time, st *runState) plan.ExecutionReport {
	st.mu.Lock()
	steps := make([]plan.StepResult, len(st.results))
	copy(steps, st.results)
	st.mu.Unlock()

	return report.Build(p, executionID, startedAt, time.Now(), steps)
}
