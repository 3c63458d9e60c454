package executor

import (
	"strings"
	"testing"

	"github.com/triadhq/trio/internal/schema"
)

func TestParseReport_Architect(t *testing.T) {
	out := `Here is the plan you asked for:

` + "```json" + `
{"task_id": "TASK-003", "title": "Wire cache", "description": "d",
 "acceptance_criteria": ["cached"], "priority": "high", "depends_on": ["TASK-002"]}
` + "```" + `

Let me know if you need changes.`

	report, err := ParseReport(schema.RoleArchitect, out)
	if err != nil {
		t.Fatalf("ParseReport: %v", err)
	}
	if report.Task == nil {
		t.Fatal("task not set")
	}
	if report.Task.TaskID != "TASK-003" {
		t.Errorf("task_id = %q", report.Task.TaskID)
	}
	if len(report.Task.DependsOn) != 1 || report.Task.DependsOn[0] != "TASK-002" {
		t.Errorf("depends_on = %v", report.Task.DependsOn)
	}
}

func TestParseReport_Implementer(t *testing.T) {
	out := `{"task_id": "TASK-001", "status": "completed",
 "files_changed": [{"path": "a.go", "action": "modified", "summary": "s"}],
 "tests": {"total": 4, "passed": 4, "failed": 0, "coverage": 81.5}}`

	report, err := ParseReport(schema.RoleImplementer, out)
	if err != nil {
		t.Fatalf("ParseReport: %v", err)
	}
	if report.Implementation == nil {
		t.Fatal("implementation not set")
	}
	if report.Implementation.Tests.Passed != 4 {
		t.Errorf("tests.passed = %d", report.Implementation.Tests.Passed)
	}
}

func TestParseReport_Auditor(t *testing.T) {
	out := `{"task_id": "TASK-001", "verdict": "rejected", "severity": "major",
 "review_items": [{"file": "a.go", "line": 10, "severity": "major", "message": "m"}]}`

	report, err := ParseReport(schema.RoleAuditor, out)
	if err != nil {
		t.Fatalf("ParseReport: %v", err)
	}
	if report.Review == nil {
		t.Fatal("review not set")
	}
	if report.Review.RejectionSeverity() != schema.SeverityMajor {
		t.Errorf("severity = %s", report.Review.RejectionSeverity())
	}
}

func TestParseReport_ValidationFailureSurfaces(t *testing.T) {
	// Parses as JSON but violates the task packet shape.
	out := `{"task_id": "BAD-1", "title": "x", "acceptance_criteria": ["y"]}`
	if _, err := ParseReport(schema.RoleArchitect, out); err == nil {
		t.Fatal("expected validation error for bad task_id")
	}
}

func TestParseReport_NoJSON(t *testing.T) {
	_, err := ParseReport(schema.RoleArchitect, "I refuse to answer in JSON.")
	if err == nil || !strings.Contains(err.Error(), "no JSON object") {
		t.Fatalf("expected no-JSON error, got %v", err)
	}
}

func TestExtractJSON_BalancedWithNestedBraces(t *testing.T) {
	out := `prefix {"a": {"b": "{literal} \" brace"}, "c": [1, 2]} suffix {"d": 1}`
	raw, err := extractJSON(out)
	if err != nil {
		t.Fatalf("extractJSON: %v", err)
	}
	want := `{"a": {"b": "{literal} \" brace"}, "c": [1, 2]}`
	if string(raw) != want {
		t.Errorf("extracted %q, want %q", raw, want)
	}
}

func TestExtractJSON_Unterminated(t *testing.T) {
	if _, err := extractJSON(`{"a": 1`); err == nil {
		t.Fatal("expected error for unterminated object")
	}
}
