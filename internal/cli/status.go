package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/triadhq/trio/internal/phase"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current phase, task queue, and recent activity",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	record, _, arch, err := mustRecord()
	if err != nil {
		return err
	}
	defer arch.Close()

	active := phase.ActiveRole(record.GlobalPhase)
	activeStr := string(active)
	if activeStr == "" {
		activeStr = "—"
	}

	var targets []string
	for _, t := range phase.ValidTargets(record.GlobalPhase) {
		targets = append(targets, string(t))
	}
	targetsStr := strings.Join(targets, ", ")
	if targetsStr == "" {
		targetsStr = "—"
	}

	current := record.CurrentTask
	if current == "" {
		current = "—"
	}

	fmt.Printf("%s%s%s\n", colorBold, record.ProjectName, colorReset)
	fmt.Printf("  Phase:       %s%s%s\n", phaseColor(record.GlobalPhase), record.GlobalPhase, colorReset)
	fmt.Printf("  Active role: %s\n", activeStr)
	fmt.Printf("  Can move to: %s\n", targetsStr)
	fmt.Printf("  Current:     %s\n", current)
	fmt.Printf("  Updated:     %s by %s\n", record.LastUpdatedAt.Local().Format("2006-01-02 15:04"), record.LastUpdatedBy)

	if len(record.TaskQueue) > 0 {
		fmt.Printf("\n%sTask queue:%s\n", colorBold, colorReset)
		for i, t := range record.TaskQueue {
			deps := ""
			if len(t.DependsOn) > 0 {
				deps = fmt.Sprintf(" %s(after %s)%s", colorDim, strings.Join(t.DependsOn, ", "), colorReset)
			}
			fmt.Printf("  %d. %s%s%s [%s] %s%s\n", i+1, colorYellow, t.TaskID, colorReset, t.Priority, t.Title, deps)
		}
	} else {
		fmt.Printf("\n%sNo tasks in queue.%s\n", colorDim, colorReset)
	}

	if len(record.CompletedTasks) > 0 {
		fmt.Printf("\n%sCompleted:%s", colorGreen, colorReset)
		for _, t := range record.CompletedTasks {
			fmt.Printf(" %s", t.TaskID)
		}
		fmt.Println()
	}

	if len(record.ReasoningLogs) > 0 {
		fmt.Printf("\n%sRecent activity:%s\n", colorBold, colorReset)
		logs := record.ReasoningLogs
		if len(logs) > 5 {
			logs = logs[len(logs)-5:]
		}
		for _, e := range logs {
			fmt.Printf("  %s [%s] %s: %s\n", e.Timestamp.Local().Format("15:04"), e.Role, e.Action, e.Summary)
		}
	}

	if len(record.KnownIssues) > 0 {
		fmt.Printf("\n%sKnown issues: %d%s\n", colorYellow, len(record.KnownIssues), colorReset)
	}

	return nil
}
