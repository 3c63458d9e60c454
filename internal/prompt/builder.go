// Package prompt assembles the text payloads handed to the collaborators.
// Each prompt carries the role briefing, the relevant workflow state, and
// the exact JSON shape the collaborator must answer with so the executor
// can parse the output.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/triadhq/trio/internal/schema"
)

const planHeader = `You are the ARCHITECT in a three-stage delivery workflow.
Break the user's request into ONE implementable task packet.
Respond with a single JSON object and nothing else:

{
  "task_id": "TASK-001",
  "title": "...",
  "description": "...",
  "acceptance_criteria": ["..."],
  "constraints": ["..."],
  "affected_files": ["..."],
  "priority": "low|medium|high",
  "depends_on": []
}`

const implementHeader = `You are the IMPLEMENTER in a three-stage delivery workflow.
Carry out the task packet below, then respond with a single JSON object
and nothing else:

{
  "task_id": "...",
  "status": "completed",
  "files_changed": [{"path": "...", "action": "created|modified|deleted", "summary": "..."}],
  "tests": {"total": 0, "passed": 0, "failed": 0, "coverage": 0},
  "deviations": [],
  "notes": ""
}`

const reviewHeader = `You are the AUDITOR in a three-stage delivery workflow.
Review the implementation report below against the task packet, then
respond with a single JSON object and nothing else:

{
  "task_id": "...",
  "verdict": "approved|rejected",
  "severity": "minor|major|critical",
  "review_items": [{"file": "...", "line": 0, "severity": "info|minor|major|critical", "message": "..."}],
  "security_findings": [],
  "changelog_entry": ""
}

Severity is required when the verdict is rejected.`

// Plan builds the architect payload for a user request. Feedback from a
// prior rejected review, if any, is attached so the revised task packet
// addresses it.
func Plan(record *schema.ContextRecord, request string, feedback *schema.ReviewReport) string {
	var b strings.Builder
	b.WriteString(planHeader)
	writeProjectState(&b, record)

	b.WriteString("\n\n## Request\n")
	b.WriteString(request)

	if feedback != nil {
		b.WriteString("\n\n## Previous Review (rejected)\n")
		b.WriteString("The prior plan for this request was implemented and rejected. Address these findings:\n")
		writeReviewFindings(&b, feedback)
	}
	return b.String()
}

// Implement builds the implementer payload for the current task packet.
func Implement(record *schema.ContextRecord, task *schema.TaskPacket, feedback *schema.ReviewReport) string {
	var b strings.Builder
	b.WriteString(implementHeader)
	writeProjectState(&b, record)

	b.WriteString("\n\n## Task Packet\n")
	writeJSON(&b, task)

	if feedback != nil {
		b.WriteString("\n\n## Review Feedback\n")
		b.WriteString("Your previous submission was rejected. Fix these findings:\n")
		writeReviewFindings(&b, feedback)
	}
	return b.String()
}

// Review builds the auditor payload from the task packet and the
// implementation report under review.
func Review(record *schema.ContextRecord, task *schema.TaskPacket, impl *schema.ImplementationReport) string {
	var b strings.Builder
	b.WriteString(reviewHeader)
	writeProjectState(&b, record)

	b.WriteString("\n\n## Task Packet\n")
	writeJSON(&b, task)

	b.WriteString("\n\n## Implementation Report\n")
	writeJSON(&b, impl)
	return b.String()
}

func writeProjectState(b *strings.Builder, record *schema.ContextRecord) {
	fmt.Fprintf(b, "\n\n## Project: %s (phase: %s)\n", record.ProjectName, record.GlobalPhase)

	if len(record.ActiveConstraints) > 0 {
		b.WriteString("\nActive constraints:\n")
		for category, value := range record.ActiveConstraints {
			fmt.Fprintf(b, "- %s: %s\n", category, value)
		}
	}
	if len(record.KnownIssues) > 0 {
		b.WriteString("\nKnown issues:\n")
		for _, issue := range record.KnownIssues {
			fmt.Fprintf(b, "- %s\n", issue)
		}
	}
	if len(record.CompletedTasks) > 0 {
		b.WriteString("\nCompleted tasks:\n")
		for _, t := range record.CompletedTasks {
			fmt.Fprintf(b, "- %s: %s\n", t.TaskID, t.Title)
		}
	}
}

func writeReviewFindings(b *strings.Builder, review *schema.ReviewReport) {
	fmt.Fprintf(b, "Severity: %s\n", review.RejectionSeverity())
	for _, item := range review.ReviewItems {
		if item.Line > 0 {
			fmt.Fprintf(b, "- [%s] %s:%d %s\n", item.Severity, item.File, item.Line, item.Message)
		} else {
			fmt.Fprintf(b, "- [%s] %s %s\n", item.Severity, item.File, item.Message)
		}
	}
	for _, finding := range review.SecurityFindings {
		fmt.Fprintf(b, "- [security] %s\n", finding)
	}
}

func writeJSON(b *strings.Builder, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(b, "(unrenderable: %v)", err)
		return
	}
	b.Write(data)
}
