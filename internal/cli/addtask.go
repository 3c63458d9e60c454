package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/triadhq/trio/internal/schema"
)

var addTaskCmd = &cobra.Command{
	Use:   "add-task [file]",
	Short: "Enqueue a task packet from a JSON file",
	Long: `Validates a task packet and appends it to the queue. Reads the
packet from the given file, or from stdin when the argument is "-".`,
	Args: cobra.ExactArgs(1),
	RunE: runAddTask,
}

func runAddTask(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read task packet: %w", err)
	}

	var task schema.TaskPacket
	if err := json.Unmarshal(data, &task); err != nil {
		return fmt.Errorf("parse task packet: %w", err)
	}
	if err := schema.ValidateTaskPacket(&task); err != nil {
		return err
	}

	_, store, arch, err := mustRecord()
	if err != nil {
		return err
	}
	defer arch.Close()

	_, err = store.Update(schema.RoleArchitect, func(r *schema.ContextRecord) error {
		if r.FindQueued(task.TaskID) != nil || r.IsCompleted(task.TaskID) {
			return fmt.Errorf("task %s already exists", task.TaskID)
		}
		if err := schema.ValidateDependencies(r, &task); err != nil {
			return err
		}
		r.TaskQueue = append(r.TaskQueue, task)
		return store.PushLog(r, schema.LogEntry{
			Role:    schema.RoleArchitect,
			TaskID:  task.TaskID,
			Action:  "task_added",
			Summary: fmt.Sprintf("enqueued %s: %s", task.TaskID, task.Title),
		})
	})
	if err != nil {
		return err
	}

	fmt.Printf("Enqueued %s%s%s: %s [%s]\n", colorYellow, task.TaskID, colorReset, task.Title, task.Priority)
	return nil
}
