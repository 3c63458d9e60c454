package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/triadhq/trio/internal/executor"
	"github.com/triadhq/trio/internal/prompt"
	"github.com/triadhq/trio/internal/schema"
)

// plan invokes the architect and commits the resulting task packet. The
// store lock is never held while the collaborator runs; the enqueue and
// phase change land in one atomic update afterwards.
func (o *Orchestrator) plan(ctx context.Context, runID, request string, feedback *schema.ReviewReport) error {
	record, err := o.store.Load()
	if err != nil {
		return o.fail(StagePlan, err)
	}

	fmt.Fprintf(o.out, "[plan] invoking architect\n")
	report, err := o.invoker.Invoke(ctx, schema.RoleArchitect, prompt.Plan(record, request, feedback))
	if err != nil {
		return o.fail(StagePlan, err)
	}
	task := report.Task

	if err := schema.ValidateDependencies(record, task); err != nil {
		return o.fail(StagePlan, &executor.SchemaError{Role: schema.RoleArchitect, Err: err})
	}
	o.saveArtifact(runID, "plan", task)

	_, err = o.store.Update(schema.RoleArchitect, func(r *schema.ContextRecord) error {
		if r.FindQueued(task.TaskID) != nil || r.IsCompleted(task.TaskID) {
			return fmt.Errorf("task %s already exists", task.TaskID)
		}
		r.TaskQueue = append(r.TaskQueue, *task)
		r.CurrentTask = r.TaskQueue[0].TaskID
		if err := o.transition(r, schema.PhaseImplementation, schema.RoleArchitect); err != nil {
			return err
		}
		return o.store.PushLog(r, schema.LogEntry{
			Role:    schema.RoleArchitect,
			TaskID:  task.TaskID,
			Action:  "plan_generated",
			Summary: fmt.Sprintf("planned %s: %s", task.TaskID, task.Title),
		})
	})
	if err != nil {
		return o.fail(StagePlan, err)
	}

	fmt.Fprintf(o.out, "[plan] queued %s: %s\n", task.TaskID, task.Title)
	return nil
}

// implement invokes the implementer on the current task and records the
// report in the reasoning log before moving to review.
func (o *Orchestrator) implement(ctx context.Context, runID string, feedback *schema.ReviewReport) (*schema.ImplementationReport, error) {
	record, err := o.store.Load()
	if err != nil {
		return nil, o.fail(StageImplement, err)
	}

	task := o.currentTask(record)
	if task == nil {
		return nil, o.fail(StageImplement, fmt.Errorf("no task queued for implementation"))
	}

	fmt.Fprintf(o.out, "[implement] invoking implementer for %s\n", task.TaskID)
	report, err := o.invoker.Invoke(ctx, schema.RoleImplementer, prompt.Implement(record, task, feedback))
	if err != nil {
		return nil, o.fail(StageImplement, err)
	}
	impl := report.Implementation
	o.saveArtifact(runID, "implement", impl)

	raw, err := json.Marshal(impl)
	if err != nil {
		return nil, o.fail(StageImplement, fmt.Errorf("encode implementation report: %w", err))
	}

	_, err = o.store.Update(schema.RoleImplementer, func(r *schema.ContextRecord) error {
		r.CurrentTask = task.TaskID
		if err := o.store.PushLog(r, schema.LogEntry{
			Role:    schema.RoleImplementer,
			TaskID:  task.TaskID,
			Action:  "implementation_submitted",
			Summary: fmt.Sprintf("implemented %s (status: %s)", impl.TaskID, impl.Status),
			Details: map[string]string{"report": string(raw)},
		}); err != nil {
			return err
		}
		return o.transition(r, schema.PhaseReview, schema.RoleImplementer)
	})
	if err != nil {
		return nil, o.fail(StageImplement, err)
	}

	fmt.Fprintf(o.out, "[implement] %s submitted for review\n", impl.TaskID)
	return impl, nil
}

// review invokes the auditor on the implementation report. Branching on
// the verdict is the orchestrator loop's job; review only produces the
// parsed report.
func (o *Orchestrator) review(ctx context.Context, runID string, impl *schema.ImplementationReport) (*schema.ReviewReport, error) {
	record, err := o.store.Load()
	if err != nil {
		return nil, o.fail(StageReview, err)
	}

	task := o.currentTask(record)
	if task == nil {
		return nil, o.fail(StageReview, fmt.Errorf("no task under review"))
	}

	fmt.Fprintf(o.out, "[review] invoking auditor for %s\n", task.TaskID)
	report, err := o.invoker.Invoke(ctx, schema.RoleAuditor, prompt.Review(record, task, impl))
	if err != nil {
		return nil, o.fail(StageReview, err)
	}
	o.saveArtifact(runID, "review", report.Review)
	return report.Review, nil
}

// approve moves the current task to the completed list, transitions to
// the terminal approved phase, and (best effort) commits the change set.
func (o *Orchestrator) approve(review *schema.ReviewReport) error {
	_, err := o.store.Update(schema.RoleAuditor, func(r *schema.ContextRecord) error {
		head := r.HeadTask()
		if head == nil {
			return fmt.Errorf("approval with empty task queue")
		}
		task := *head
		r.TaskQueue = r.TaskQueue[1:]
		r.CompletedTasks = append(r.CompletedTasks, task)
		r.CurrentTask = ""
		for _, finding := range review.SecurityFindings {
			r.AddKnownIssue(finding)
		}
		if err := o.transition(r, schema.PhaseApproved, schema.RoleAuditor); err != nil {
			return err
		}
		return o.store.PushLog(r, schema.LogEntry{
			Role:    schema.RoleAuditor,
			TaskID:  task.TaskID,
			Action:  "review_approved",
			Summary: fmt.Sprintf("approved %s", task.TaskID),
		})
	})
	if err != nil {
		return o.fail(StageReview, err)
	}

	fmt.Fprintf(o.out, "[review] APPROVED %s\n", review.TaskID)

	if o.committer != nil && o.cfg.Pipeline.AutoCommit {
		msg := fmt.Sprintf("feat: %s", review.TaskID)
		if review.ChangelogEntry != "" {
			msg = fmt.Sprintf("feat: %s\n\n%s", review.TaskID, review.ChangelogEntry)
		}
		committed, err := o.committer.CommitAll(msg)
		switch {
		case err != nil:
			fmt.Fprintf(o.out, "[review] commit failed: %v\n", err)
		case committed:
			fmt.Fprintf(o.out, "[review] changes committed\n")
			if o.cfg.Pipeline.AutoPush {
				if err := o.committer.Push(); err != nil {
					fmt.Fprintf(o.out, "[review] push failed: %v\n", err)
				}
			}
		}
	}

	return nil
}

// rejectToImplement takes the minor-severity fast path: review ->
// rejected -> implementation, bypassing re-planning. Both edges are
// validated; the task stays at the head of the queue.
func (o *Orchestrator) rejectToImplement(review *schema.ReviewReport) error {
	_, err := o.store.Update(schema.RoleArchitect, func(r *schema.ContextRecord) error {
		if err := o.transition(r, schema.PhaseRejected, schema.RoleAuditor); err != nil {
			return err
		}
		if err := o.transition(r, schema.PhaseImplementation, schema.RoleArchitect); err != nil {
			return err
		}
		return o.store.PushLog(r, schema.LogEntry{
			Role:    schema.RoleAuditor,
			TaskID:  review.TaskID,
			Action:  "review_rejected",
			Summary: fmt.Sprintf("rejected %s (minor): fast re-implementation", review.TaskID),
		})
	})
	if err != nil {
		return o.fail(StageReview, err)
	}
	return nil
}

// rejectToPlan handles a major rejection: the current packet is dequeued
// and the workflow routes back to planning, where a revised packet is
// expected with the review attached as context.
func (o *Orchestrator) rejectToPlan(review *schema.ReviewReport) error {
	_, err := o.store.Update(schema.RoleArchitect, func(r *schema.ContextRecord) error {
		if head := r.HeadTask(); head != nil && head.TaskID == r.CurrentTask {
			r.TaskQueue = r.TaskQueue[1:]
		}
		r.CurrentTask = ""
		for _, finding := range review.SecurityFindings {
			r.AddKnownIssue(finding)
		}
		if err := o.transition(r, schema.PhaseRejected, schema.RoleAuditor); err != nil {
			return err
		}
		if err := o.transition(r, schema.PhasePlanning, schema.RoleArchitect); err != nil {
			return err
		}
		return o.store.PushLog(r, schema.LogEntry{
			Role:    schema.RoleAuditor,
			TaskID:  review.TaskID,
			Action:  "review_rejected",
			Summary: fmt.Sprintf("rejected %s (major): re-planning", review.TaskID),
		})
	})
	if err != nil {
		return o.fail(StageReview, err)
	}
	return nil
}

// rejectCritical commits the rejected phase and nothing else: no
// re-queue, no re-plan. The run aborts for operator intervention.
func (o *Orchestrator) rejectCritical(review *schema.ReviewReport) error {
	_, err := o.store.Update(schema.RoleAuditor, func(r *schema.ContextRecord) error {
		r.CurrentTask = ""
		for _, finding := range review.SecurityFindings {
			r.AddKnownIssue(finding)
		}
		if err := o.transition(r, schema.PhaseRejected, schema.RoleAuditor); err != nil {
			return err
		}
		return o.store.PushLog(r, schema.LogEntry{
			Role:    schema.RoleAuditor,
			TaskID:  review.TaskID,
			Action:  "review_rejected",
			Summary: fmt.Sprintf("rejected %s (critical): run aborted", review.TaskID),
		})
	})
	if err != nil {
		return o.fail(StageReview, err)
	}
	fmt.Fprintf(o.out, "[review] REJECTED %s (critical)\n", review.TaskID)
	return nil
}

// currentTask resolves the task being worked on: the one current_task
// points at, falling back to the queue head.
func (o *Orchestrator) currentTask(record *schema.ContextRecord) *schema.TaskPacket {
	if record.CurrentTask != "" {
		if task := record.FindQueued(record.CurrentTask); task != nil {
			return task
		}
	}
	return record.HeadTask()
}

// recoverImplementation finds the most recent implementation report in
// the reasoning log, used when resuming a run at the review stage.
func (o *Orchestrator) recoverImplementation() *schema.ImplementationReport {
	record, err := o.store.Load()
	if err != nil {
		return nil
	}
	for i := len(record.ReasoningLogs) - 1; i >= 0; i-- {
		entry := record.ReasoningLogs[i]
		if entry.Role != schema.RoleImplementer {
			continue
		}
		raw, ok := entry.Details["report"]
		if !ok {
			continue
		}
		var impl schema.ImplementationReport
		if err := json.Unmarshal([]byte(raw), &impl); err != nil {
			continue
		}
		return &impl
	}
	return nil
}

// saveArtifact writes a stage's parsed report under the runs directory.
// Artifacts are diagnostics; failures are ignored.
func (o *Orchestrator) saveArtifact(runID, stage string, v any) {
	if o.runsDir == "" {
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(o.runsDir, 0755); err != nil {
		return
	}
	path := filepath.Join(o.runsDir, fmt.Sprintf("run-%s-%s.json", runID, stage))
	_ = os.WriteFile(path, append(data, '\n'), 0644)
}
