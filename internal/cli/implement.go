package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/triadhq/trio/internal/prompt"
	"github.com/triadhq/trio/internal/schema"
)

var implementTaskID string

var implementCmd = &cobra.Command{
	Use:   "implement",
	Short: "Generate the implementer prompt for the current task",
	RunE:  runImplement,
}

func init() {
	implementCmd.Flags().StringVar(&implementTaskID, "task-id", "", "Build the prompt for a specific queued task")
}

func runImplement(cmd *cobra.Command, args []string) error {
	record, _, arch, err := mustRecord()
	if err != nil {
		return err
	}
	defer arch.Close()

	var task *schema.TaskPacket
	if implementTaskID != "" {
		task = record.FindQueued(implementTaskID)
		if task == nil {
			return fmt.Errorf("task %s is not in the queue", implementTaskID)
		}
	} else {
		task = record.HeadTask()
		if task == nil {
			return fmt.Errorf("no tasks queued. Run: trio task \"your request\"")
		}
	}

	fmt.Println(prompt.Implement(record, task, nil))
	return nil
}
