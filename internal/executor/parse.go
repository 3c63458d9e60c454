package executor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/triadhq/trio/internal/schema"
)

// ParseReport parses raw collaborator output into the typed report for a
// role: TaskPacket for the architect, ImplementationReport for the
// implementer, ReviewReport for the auditor. Collaborators tend to wrap
// their JSON in prose or markdown fences, so the first balanced JSON
// object in the output is used.
func ParseReport(role schema.Role, output string) (*Report, error) {
	raw, err := extractJSON(output)
	if err != nil {
		return nil, err
	}

	report := &Report{Role: role}
	switch role {
	case schema.RoleArchitect:
		var task schema.TaskPacket
		if err := json.Unmarshal(raw, &task); err != nil {
			return nil, fmt.Errorf("decode task packet: %w", err)
		}
		if err := schema.ValidateTaskPacket(&task); err != nil {
			return nil, err
		}
		report.Task = &task

	case schema.RoleImplementer:
		var impl schema.ImplementationReport
		if err := json.Unmarshal(raw, &impl); err != nil {
			return nil, fmt.Errorf("decode implementation report: %w", err)
		}
		if err := schema.ValidateImplementationReport(&impl); err != nil {
			return nil, err
		}
		report.Implementation = &impl

	case schema.RoleAuditor:
		var review schema.ReviewReport
		if err := json.Unmarshal(raw, &review); err != nil {
			return nil, fmt.Errorf("decode review report: %w", err)
		}
		if err := schema.ValidateReviewReport(&review); err != nil {
			return nil, err
		}
		report.Review = &review

	default:
		return nil, fmt.Errorf("no report schema for role %q", role)
	}
	return report, nil
}

// extractJSON returns the first balanced top-level JSON object in the
// output, skipping any prose or fence markers around it.
func extractJSON(output string) (json.RawMessage, error) {
	start := strings.IndexByte(output, '{')
	if start < 0 {
		return nil, fmt.Errorf("no JSON object in output")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(output); i++ {
		ch := output[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return json.RawMessage(output[start : i+1]), nil
			}
		}
	}
	return nil, fmt.Errorf("unterminated JSON object in output")
}
