package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	logArchived bool
	logLimit    int
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the reasoning log",
	Long: `Prints the live reasoning log window from the shared context. With
--archived, prints entries that have been evicted to the archive instead.`,
	RunE: runLog,
}

func init() {
	logCmd.Flags().BoolVar(&logArchived, "archived", false, "show archived entries instead of the live window")
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 0, "maximum entries to show (0 = all)")
}

func runLog(cmd *cobra.Command, args []string) error {
	record, _, arch, err := mustRecord()
	if err != nil {
		return err
	}
	defer arch.Close()

	if logArchived {
		entries, err := arch.List(logLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No archived entries.")
			return nil
		}
		for _, e := range entries {
			taskID := e.TaskID
			if taskID == "" {
				taskID = "-"
			}
			fmt.Printf("%s%s%s  %s%-11s%s %-9s %-24s %s\n",
				colorDim, e.Timestamp.Format("2006-01-02 15:04:05"), colorReset,
				colorCyan, e.Role, colorReset, taskID, e.Action, e.Summary)
		}
		return nil
	}

	logs := record.ReasoningLogs
	if logLimit > 0 && len(logs) > logLimit {
		logs = logs[len(logs)-logLimit:]
	}
	if len(logs) == 0 {
		fmt.Println("No log entries.")
		return nil
	}
	for _, e := range logs {
		taskID := e.TaskID
		if taskID == "" {
			taskID = "-"
		}
		fmt.Printf("%s%s%s  %s%-11s%s %-9s %-24s %s\n",
			colorDim, e.Timestamp.Format("2006-01-02 15:04:05"), colorReset,
			colorCyan, e.Role, colorReset, taskID, e.Action, e.Summary)
	}
	return nil
}
