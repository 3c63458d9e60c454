// Package executor invokes the configured external collaborators and
// parses their structured output. It enforces per-attempt timeouts and a
// bounded retry budget, classifying every failure as transient (retried),
// fatal (aborted immediately), or schema-invalid (escalated without
// further retries). The executor never writes to the context store.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/triadhq/trio/internal/schema"
)

// ErrTimeout marks an attempt that was canceled after exceeding its
// timeout. Timeouts are transient: the attempt counts as failed and the
// invocation may be retried.
var ErrTimeout = errors.New("collaborator attempt timed out")

// FatalError reports a collaborator command that is absent, unexecutable
// or misconfigured. It aborts the invocation without retry.
type FatalError struct {
	Role schema.Role
	Cmd  string
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("collaborator %s (%s) cannot be invoked: %v", e.Role, e.Cmd, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// SchemaError reports collaborator output that failed structural parsing
// after the attempt budget was exhausted. The executor does not retry it
// further; escalation lives in the orchestrator.
type SchemaError struct {
	Role schema.Role
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("collaborator %s returned malformed output: %v", e.Role, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Report is the tagged result of one collaborator invocation. Exactly one
// of the payload fields is set, keyed by Role: a task packet from the
// architect, an implementation report from the implementer, a review
// report from the auditor. Reports are immutable once parsed.
type Report struct {
	Role           schema.Role
	Task           *schema.TaskPacket
	Implementation *schema.ImplementationReport
	Review         *schema.ReviewReport
}

// Invoker runs one external collaborator with an input payload and
// returns its parsed report. Implementations must not leave durable side
// effects in the workflow state.
type Invoker interface {
	Invoke(ctx context.Context, role schema.Role, payload string) (*Report, error)
}
