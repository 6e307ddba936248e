package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"utdlrunner/plan"
	"utdlrunner/runctx"
)

type stubExecutor struct {
	action string
	tag    string
}

func (s stubExecutor) CanHandle(action string) bool { return action == s.action }
func (s stubExecutor) Execute(ctx context.Context, step plan.Step, vars *runctx.Context) (plan.StepResult, error) {
	return plan.StepResult{StepID: step.ID, Status: plan.StatusPassed}, nil
}

func TestRegistryResolvesFirstMatch(t *testing.T) {
	r := NewRegistry()
	r.Register(stubExecutor{action: "a"})
	r.Register(stubExecutor{action: "b"})

	e, ok := r.Resolve("b")
	require.True(t, ok)
	require.NotNil(t, e)
}

func TestRegistryNoMatch(t *testing.T) {
	r := NewRegistry()
	r.Register(stubExecutor{action: "a"})
	_, ok := r.Resolve("z")
	require.False(t, ok)
}

func TestRegistryFirstRegisteredWinsOnOverlap(t *testing.T) {
	r := NewRegistry()
	r.Register(stubExecutor{action: "dup", tag: "first"})
	r.Register(stubExecutor{action: "dup", tag: "second"})
	e, ok := r.Resolve("dup")
	require.True(t, ok)
	require.Equal(t, "first", e.(stubExecutor).tag)
}
