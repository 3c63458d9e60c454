// Package pipeline drives one end-to-end delivery run: plan, implement,
// review, then the approve/reject branch. The orchestrator composes the
// context store, the phase state machine and the collaborator executor;
// it is the only component that changes the global phase, and it consults
// the state machine before every such change.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/triadhq/trio/internal/config"
	"github.com/triadhq/trio/internal/ctxstore"
	"github.com/triadhq/trio/internal/executor"
	"github.com/triadhq/trio/internal/phase"
	"github.com/triadhq/trio/internal/schema"
)

// Stage names a pipeline stage for failure reporting.
type Stage string

const (
	StagePlan      Stage = "plan"
	StageImplement Stage = "implement"
	StageReview    Stage = "review"
)

// Failure is the terminal abort of a run. The global phase is left at its
// last successfully committed value; Failure only reports where and why
// the run stopped.
type Failure struct {
	Stage Stage
	Phase schema.Phase
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("pipeline aborted at %s stage (phase %s): %v", f.Stage, f.Phase, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Committer is the version-control collaborator invoked after approval.
type Committer interface {
	CommitAll(message string) (bool, error)
	Push() error
}

// Orchestrator runs the pipeline. At most one live orchestrator per
// project is assumed; the context store's lock enforces it.
type Orchestrator struct {
	store     *ctxstore.Store
	invoker   executor.Invoker
	cfg       *config.Config
	committer Committer // nil disables commit-on-approve
	runsDir   string    // "" disables report artifacts
	out       io.Writer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCommitter attaches the version-control collaborator.
func WithCommitter(c Committer) Option {
	return func(o *Orchestrator) { o.committer = c }
}

// WithRunsDir saves each stage's parsed report under dir.
func WithRunsDir(dir string) Option {
	return func(o *Orchestrator) { o.runsDir = dir }
}

// WithOutput directs progress output, which defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) { o.out = w }
}

// New creates an orchestrator over the given store, executor and config.
func New(store *ctxstore.Store, invoker executor.Invoker, cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:   store,
		invoker: invoker,
		cfg:     cfg,
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run drives the pipeline for a user request until a terminal outcome.
// If a previous run crashed, it resumes from the stage implied by the
// persisted phase instead of restarting at Plan.
func (o *Orchestrator) Run(ctx context.Context, request string) error {
	record, err := o.store.Load()
	if err != nil {
		return err
	}

	runID := uuid.NewString()[:8]
	fmt.Fprintf(o.out, "run %s: %q (phase: %s)\n", runID, request, record.GlobalPhase)

	stage, err := o.resume(record)
	if err != nil {
		return err
	}
	if stage != StagePlan {
		fmt.Fprintf(o.out, "resuming at %s stage\n", stage)
	}

	var (
		feedback     *schema.ReviewReport
		lastImpl     *schema.ImplementationReport
		minorRetries int
	)

	for {
		if err := ctx.Err(); err != nil {
			// Operator cancellation between stage boundaries. Committed
			// stages stay committed.
			return o.fail(stage, err)
		}

		switch stage {
		case StagePlan:
			if err := o.plan(ctx, runID, request, feedback); err != nil {
				return err
			}
			feedback = nil
			stage = StageImplement

		case StageImplement:
			impl, err := o.implement(ctx, runID, feedback)
			if err != nil {
				return err
			}
			lastImpl = impl
			feedback = nil
			stage = StageReview

		case StageReview:
			if lastImpl == nil {
				// Crash resumption: recover the last recorded report.
				lastImpl = o.recoverImplementation()
				if lastImpl == nil {
					fmt.Fprintf(o.out, "no recorded implementation report; re-running implement\n")
					stage = StageImplement
					continue
				}
			}

			review, err := o.review(ctx, runID, lastImpl)
			if err != nil {
				return err
			}

			if review.Verdict == schema.VerdictApproved {
				return o.approve(review)
			}

			severity := review.RejectionSeverity()
			if severity == schema.SeverityMinor {
				minorRetries++
				if minorRetries > o.cfg.Pipeline.EffectiveMinorRetries() {
					fmt.Fprintf(o.out, "minor-retry budget exhausted, escalating to major\n")
					severity = schema.SeverityMajor
				}
			}

			switch severity {
			case schema.SeverityMinor:
				// Fast path: back to the implementer with the findings,
				// without re-planning.
				if err := o.rejectToImplement(review); err != nil {
					return err
				}
				fmt.Fprintf(o.out, "rejected (minor, retry %d/%d): re-implementing\n",
					minorRetries, o.cfg.Pipeline.EffectiveMinorRetries())
				feedback = review
				lastImpl = nil
				stage = StageImplement

			case schema.SeverityCritical:
				if err := o.rejectCritical(review); err != nil {
					return err
				}
				return &Failure{
					Stage: StageReview,
					Phase: schema.PhaseRejected,
					Err:   fmt.Errorf("critical rejection of %s: operator intervention required", review.TaskID),
				}

			default: // major
				if err := o.rejectToPlan(review); err != nil {
					return err
				}
				fmt.Fprintf(o.out, "rejected (major): re-planning\n")
				feedback = review
				lastImpl = nil
				minorRetries = 0
				stage = StagePlan
			}
		}
	}
}

// resume maps the persisted phase to the stage the run continues at.
func (o *Orchestrator) resume(record *schema.ContextRecord) (Stage, error) {
	switch record.GlobalPhase {
	case schema.PhasePlanning:
		if record.HeadTask() != nil {
			// A packet is already queued (add-task or a crash between
			// enqueue and transition): move straight to implementation.
			_, err := o.store.Update(schema.RoleArchitect, func(r *schema.ContextRecord) error {
				return o.transition(r, schema.PhaseImplementation, schema.RoleArchitect)
			})
			if err != nil {
				return "", err
			}
			return StageImplement, nil
		}
		return StagePlan, nil

	case schema.PhaseImplementation:
		return StageImplement, nil

	case schema.PhaseReview:
		return StageReview, nil

	case schema.PhaseRejected:
		// A previous run aborted mid-rejection. Re-plan; the severity
		// that caused the rejection is not recoverable, so take the
		// conservative path.
		_, err := o.store.Update(schema.RoleArchitect, func(r *schema.ContextRecord) error {
			return o.transition(r, schema.PhasePlanning, schema.RoleArchitect)
		})
		if err != nil {
			return "", err
		}
		return StagePlan, nil

	case schema.PhaseApproved:
		// Terminal for the previous task. A new request begins a fresh
		// cycle: this is explicit re-initialization of the phase, not a
		// state-machine transition.
		_, err := o.store.Update(schema.RoleArchitect, func(r *schema.ContextRecord) error {
			r.GlobalPhase = schema.PhasePlanning
			r.CurrentTask = ""
			return nil
		})
		if err != nil {
			return "", err
		}
		return StagePlan, nil
	}
	return "", fmt.Errorf("cannot resume from phase %q", record.GlobalPhase)
}

// transition asks the state machine for permission and applies the result.
func (o *Orchestrator) transition(record *schema.ContextRecord, to schema.Phase, role schema.Role) error {
	next, err := phase.Transition(record.GlobalPhase, to, role)
	if err != nil {
		return err
	}
	record.GlobalPhase = next
	return nil
}

// fail wraps an error in a Failure carrying the last committed phase.
func (o *Orchestrator) fail(stage Stage, err error) error {
	current := schema.PhasePlanning
	if record, loadErr := o.store.Load(); loadErr == nil {
		current = record.GlobalPhase
	}
	return &Failure{Stage: stage, Phase: current, Err: err}
}
