// Package phase implements the workflow phase state machine. It is pure
// validation logic: given the current phase, a requested phase, and the
// role asking for the change, it decides whether the transition is legal.
// It holds no state of its own.
package phase

import (
	"fmt"

	"github.com/triadhq/trio/internal/schema"
)

// InvalidTransitionError reports an illegal phase edge or a request from
// an unauthorized role. The phase is left unchanged by the caller.
type InvalidTransitionError struct {
	Current   schema.Phase
	Requested schema.Phase
	Role      schema.Role
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid phase transition %s -> %s by %s", e.Current, e.Requested, e.Role)
}

type edge struct {
	from, to schema.Phase
}

// transitions is the complete allowed-edge table. Any edge not listed, or
// a request whose role does not match, is rejected. The rejected ->
// implementation edge is the minor-severity fast path that skips
// re-planning.
var transitions = map[edge]schema.Role{
	{schema.PhasePlanning, schema.PhaseImplementation}: schema.RoleArchitect,
	{schema.PhaseImplementation, schema.PhaseReview}:   schema.RoleImplementer,
	{schema.PhaseReview, schema.PhaseApproved}:         schema.RoleAuditor,
	{schema.PhaseReview, schema.PhaseRejected}:         schema.RoleAuditor,
	{schema.PhaseRejected, schema.PhasePlanning}:       schema.RoleArchitect,
	{schema.PhaseRejected, schema.PhaseImplementation}: schema.RoleArchitect,
}

// Transition validates the requested phase change and returns the new
// phase. On any illegal edge or role mismatch it returns an
// *InvalidTransitionError and the current phase is to be kept.
func Transition(current, requested schema.Phase, role schema.Role) (schema.Phase, error) {
	required, ok := transitions[edge{current, requested}]
	if !ok || role != required {
		return current, &InvalidTransitionError{Current: current, Requested: requested, Role: role}
	}
	return requested, nil
}

// ValidTargets returns the phases reachable from current, in a stable order.
func ValidTargets(current schema.Phase) []schema.Phase {
	ordered := []schema.Phase{
		schema.PhasePlanning,
		schema.PhaseImplementation,
		schema.PhaseReview,
		schema.PhaseApproved,
		schema.PhaseRejected,
	}
	var targets []schema.Phase
	for _, to := range ordered {
		if _, ok := transitions[edge{current, to}]; ok {
			targets = append(targets, to)
		}
	}
	return targets
}

// ActiveRole returns the collaborator responsible for work in the given
// phase, or "" for the terminal approved phase.
func ActiveRole(p schema.Phase) schema.Role {
	switch p {
	case schema.PhasePlanning, schema.PhaseRejected:
		return schema.RoleArchitect
	case schema.PhaseImplementation:
		return schema.RoleImplementer
	case schema.PhaseReview:
		return schema.RoleAuditor
	}
	return ""
}
