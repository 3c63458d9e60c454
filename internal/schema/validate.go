package schema

import (
	"fmt"
	"regexp"
)

var taskIDPattern = regexp.MustCompile(`^TASK-\d{3,}$`)

// ValidateTaskPacket checks the structural shape of a task packet.
// It does not check dependencies against a record; see ValidateDependencies.
func ValidateTaskPacket(t *TaskPacket) error {
	if !taskIDPattern.MatchString(t.TaskID) {
		return fmt.Errorf("task_id %q does not match TASK-NNN format", t.TaskID)
	}
	if t.Title == "" {
		return fmt.Errorf("task %s: title is required", t.TaskID)
	}
	if len(t.AcceptanceCriteria) == 0 {
		return fmt.Errorf("task %s: at least one acceptance criterion is required", t.TaskID)
	}
	switch t.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
	case "":
		t.Priority = PriorityMedium
	default:
		return fmt.Errorf("task %s: unknown priority %q", t.TaskID, t.Priority)
	}
	for _, dep := range t.DependsOn {
		if dep == t.TaskID {
			return fmt.Errorf("task %s: depends on itself", t.TaskID)
		}
	}
	return nil
}

// ValidateDependencies checks that every depends_on reference of t resolves
// to a task already completed or queued in the record, and that adding t
// introduces no dependency cycle among queued tasks.
func ValidateDependencies(record *ContextRecord, t *TaskPacket) error {
	for _, dep := range t.DependsOn {
		if record.IsCompleted(dep) || record.FindQueued(dep) != nil {
			continue
		}
		return fmt.Errorf("task %s: depends_on %q references an unknown task", t.TaskID, dep)
	}

	// Cycle check over the queue plus the candidate task. Completed tasks
	// cannot participate in a cycle: nothing queued is allowed to be a
	// dependency of an already-completed task.
	deps := make(map[string][]string, len(record.TaskQueue)+1)
	for i := range record.TaskQueue {
		q := &record.TaskQueue[i]
		deps[q.TaskID] = q.DependsOn
	}
	deps[t.TaskID] = t.DependsOn

	const (
		white = 0
		gray  = 1
		black = 2
	)
	state := make(map[string]int, len(deps))
	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case gray:
			return fmt.Errorf("task %s: dependency cycle detected", id)
		case black:
			return nil
		}
		state[id] = gray
		for _, dep := range deps[id] {
			if _, queued := deps[dep]; !queued {
				continue // completed, cannot cycle
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = black
		return nil
	}
	return visit(t.TaskID)
}

// ValidateImplementationReport checks the structural shape of an
// implementation report.
func ValidateImplementationReport(r *ImplementationReport) error {
	if r.TaskID == "" {
		return fmt.Errorf("implementation report: task_id is required")
	}
	if r.Status == "" {
		return fmt.Errorf("implementation report %s: status is required", r.TaskID)
	}
	if r.Tests != nil {
		if r.Tests.Passed+r.Tests.Failed > r.Tests.Total {
			return fmt.Errorf("implementation report %s: test counts exceed total", r.TaskID)
		}
		if r.Tests.Coverage < 0 || r.Tests.Coverage > 100 {
			return fmt.Errorf("implementation report %s: coverage %.1f out of range", r.TaskID, r.Tests.Coverage)
		}
	}
	for _, fc := range r.FilesChanged {
		switch fc.Action {
		case "created", "modified", "deleted":
		default:
			return fmt.Errorf("implementation report %s: unknown file action %q", r.TaskID, fc.Action)
		}
	}
	return nil
}

// ValidateReviewReport checks the structural shape of a review report.
func ValidateReviewReport(r *ReviewReport) error {
	if r.TaskID == "" {
		return fmt.Errorf("review report: task_id is required")
	}
	switch r.Verdict {
	case VerdictApproved, VerdictRejected:
	default:
		return fmt.Errorf("review report %s: unknown verdict %q", r.TaskID, r.Verdict)
	}
	if r.Severity != "" {
		switch r.Severity {
		case SeverityMinor, SeverityMajor, SeverityCritical:
		default:
			return fmt.Errorf("review report %s: unknown severity %q", r.TaskID, r.Severity)
		}
	}
	for _, item := range r.ReviewItems {
		switch item.Severity {
		case SeverityInfo, SeverityMinor, SeverityMajor, SeverityCritical:
		default:
			return fmt.Errorf("review report %s: item %s has unknown severity %q", r.TaskID, item.File, item.Severity)
		}
	}
	return nil
}
