// Package executor implements the executor registry and its built-in
// protocol implementations (spec §4.5): a polymorphic can_handle/
// execute contract dispatched by first match.
package executor

import (
	"context"

	"utdlrunner/core"
	"utdlrunner/plan"
	"utdlrunner/runctx"
)

// Executor is the contract every protocol implementation satisfies.
// Implementations must be safe for concurrent invocation: the
// scheduler dispatches many steps across the same Executor instance.
type Executor interface {
	CanHandle(action string) bool
	Execute(ctx context.Context, step plan.Step, vars *runctx.Context) (plan.StepResult, error)
}

// Registry holds executors in registration order; Resolve returns the
// first whose CanHandle matches.
type Registry struct {
	executors []Executor
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends e to the registry. Earlier registrations take
// priority on overlapping CanHandle.
func (r *Registry) Register(e Executor) {
	r.executors = append(r.executors, e)
}

// Resolve returns the first executor whose CanHandle(action) is true.
func (r *Registry) Resolve(action string) (Executor, bool) {
	for _, e := range r.executors {
		if e.CanHandle(action) {
			return e, true
		}
	}
	return nil, false
}

// ErrNoExecutor builds the taxonomy error for an unresolvable action.
func ErrNoExecutor(action string) *core.RunnerError {
	return core.New(core.ErrNoExecutorForAction, "no executor for action: "+action)
}
