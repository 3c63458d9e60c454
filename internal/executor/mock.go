package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/triadhq/trio/internal/schema"
)

// Step scripts one mock invocation: either a report or an error.
type Step struct {
	Report *Report
	Err    error
}

// Mock is a deterministic Invoker for tests. Steps are consumed per role
// in order; running out of steps is an error so tests notice unexpected
// invocations.
type Mock struct {
	mu    sync.Mutex
	steps map[schema.Role][]Step
	Calls []schema.Role // invocation order, for assertions
}

// NewMock creates an empty mock.
func NewMock() *Mock {
	return &Mock{steps: make(map[schema.Role][]Step)}
}

// Script appends scripted steps for a role.
func (m *Mock) Script(role schema.Role, steps ...Step) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[role] = append(m.steps[role], steps...)
}

// Invoke pops the next scripted step for the role.
func (m *Mock) Invoke(_ context.Context, role schema.Role, _ string) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, role)
	queue := m.steps[role]
	if len(queue) == 0 {
		return nil, fmt.Errorf("mock: unexpected invocation of %s", role)
	}
	step := queue[0]
	m.steps[role] = queue[1:]

	if step.Err != nil {
		return nil, step.Err
	}
	return step.Report, nil
}
