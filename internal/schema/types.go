// Package schema defines the shared data model: workflow phases, roles,
// the task packet handed from planning to implementation, the reports the
// collaborators return, and the context record everything is persisted in.
package schema

import "time"

// Phase is the workflow's current macro-state.
type Phase string

const (
	PhasePlanning       Phase = "planning"
	PhaseImplementation Phase = "implementation"
	PhaseReview         Phase = "review"
	PhaseApproved       Phase = "approved" // terminal per task
	PhaseRejected       Phase = "rejected" // transient, routes back to planning
)

// Valid reports whether p is a member of the fixed phase set.
func (p Phase) Valid() bool {
	switch p {
	case PhasePlanning, PhaseImplementation, PhaseReview, PhaseApproved, PhaseRejected:
		return true
	}
	return false
}

// Role identifies one of the three external collaborators.
type Role string

const (
	RoleArchitect   Role = "architect"
	RoleImplementer Role = "implementer"
	RoleAuditor     Role = "auditor"
)

// Valid reports whether r is a known collaborator role.
func (r Role) Valid() bool {
	switch r {
	case RoleArchitect, RoleImplementer, RoleAuditor:
		return true
	}
	return false
}

// Priority ranks a task packet.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Severity classifies a review finding or a rejection, and determines the
// escalation path after a rejected verdict.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// rank orders severities for comparison. Unknown values rank lowest.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityMajor:
		return 2
	case SeverityMinor:
		return 1
	}
	return 0
}

// Verdict is the auditor's decision on an implementation.
type Verdict string

const (
	VerdictApproved Verdict = "approved"
	VerdictRejected Verdict = "rejected"
)

// TaskPacket is the unit of implementation work created by the architect.
type TaskPacket struct {
	TaskID             string   `json:"task_id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	Constraints        []string `json:"constraints,omitempty"`
	AffectedFiles      []string `json:"affected_files,omitempty"`
	Priority           Priority `json:"priority"`
	DependsOn          []string `json:"depends_on,omitempty"`
}

// FileChange records one file touched by the implementer.
type FileChange struct {
	Path    string `json:"path"`
	Action  string `json:"action"` // created, modified, deleted
	Summary string `json:"summary,omitempty"`
}

// TestSummary aggregates test execution results.
type TestSummary struct {
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Coverage float64 `json:"coverage"`
}

// ImplementationReport is the implementer's structured output for a task.
type ImplementationReport struct {
	TaskID       string       `json:"task_id"`
	Status       string       `json:"status"`
	FilesChanged []FileChange `json:"files_changed,omitempty"`
	Tests        *TestSummary `json:"tests,omitempty"`
	Deviations   []string     `json:"deviations,omitempty"`
	Notes        string       `json:"notes,omitempty"`
}

// ReviewItem is a single finding in a review.
type ReviewItem struct {
	File     string   `json:"file"`
	Line     int      `json:"line,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// ReviewReport is the auditor's structured output.
type ReviewReport struct {
	TaskID           string       `json:"task_id"`
	Verdict          Verdict      `json:"verdict"`
	Severity         Severity     `json:"severity,omitempty"`
	ReviewItems      []ReviewItem `json:"review_items,omitempty"`
	SecurityFindings []string     `json:"security_findings,omitempty"`
	ChangelogEntry   string       `json:"changelog_entry,omitempty"`
}

// RejectionSeverity returns the severity driving escalation for a rejected
// verdict. The explicit field wins; otherwise it is the highest severity
// among the review items, and minor when there are none.
func (r ReviewReport) RejectionSeverity() Severity {
	if r.Severity != "" {
		return r.Severity
	}
	top := SeverityMinor
	for _, item := range r.ReviewItems {
		if item.Severity.rank() > top.rank() {
			top = item.Severity
		}
	}
	return top
}

// LogEntry is one entry in the context record's reasoning log.
type LogEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Role      Role              `json:"role"`
	TaskID    string            `json:"task_id,omitempty"`
	Action    string            `json:"action"`
	Summary   string            `json:"summary"`
	Details   map[string]string `json:"details,omitempty"`
}

// MaxLiveLogs is the number of reasoning log entries kept live in the
// context record. Older entries are evicted to the archive.
const MaxLiveLogs = 50

// ContextRecord is the single durable workflow state document. All reads
// and writes go through the context store; no other component touches the
// persisted form directly.
type ContextRecord struct {
	ProjectName       string            `json:"project_name"`
	GlobalPhase       Phase             `json:"global_phase"`
	CurrentTask       string            `json:"current_task,omitempty"` // task_id of the queue head while implementing/reviewing
	TaskQueue         []TaskPacket      `json:"task_queue"`
	CompletedTasks    []TaskPacket      `json:"completed_tasks"`
	ActiveConstraints map[string]string `json:"active_constraints,omitempty"`
	ReasoningLogs     []LogEntry        `json:"reasoning_logs"`
	KnownIssues       []string          `json:"known_issues,omitempty"`
	LastUpdatedBy     Role              `json:"last_updated_by"`
	LastUpdatedAt     time.Time         `json:"last_updated_at"`
}

// NewContextRecord returns a fresh record in the planning phase.
func NewContextRecord(projectName string) *ContextRecord {
	return &ContextRecord{
		ProjectName:    projectName,
		GlobalPhase:    PhasePlanning,
		TaskQueue:      []TaskPacket{},
		CompletedTasks: []TaskPacket{},
		ReasoningLogs:  []LogEntry{},
		LastUpdatedBy:  RoleArchitect,
		LastUpdatedAt:  time.Now().UTC(),
	}
}

// HeadTask returns the task at the front of the queue, or nil if empty.
func (c *ContextRecord) HeadTask() *TaskPacket {
	if len(c.TaskQueue) == 0 {
		return nil
	}
	return &c.TaskQueue[0]
}

// FindQueued returns the queued task with the given id, or nil.
func (c *ContextRecord) FindQueued(taskID string) *TaskPacket {
	for i := range c.TaskQueue {
		if c.TaskQueue[i].TaskID == taskID {
			return &c.TaskQueue[i]
		}
	}
	return nil
}

// IsCompleted reports whether a task id is in the completed list.
func (c *ContextRecord) IsCompleted(taskID string) bool {
	for _, t := range c.CompletedTasks {
		if t.TaskID == taskID {
			return true
		}
	}
	return false
}

// AddKnownIssue appends an issue, keeping the list free of duplicates.
func (c *ContextRecord) AddKnownIssue(issue string) {
	for _, existing := range c.KnownIssues {
		if existing == issue {
			return
		}
	}
	c.KnownIssues = append(c.KnownIssues, issue)
}
