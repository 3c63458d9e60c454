package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/triadhq/trio/internal/prompt"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Generate the auditor prompt for the last implementation",
	RunE:  runReview,
}

func runReview(cmd *cobra.Command, args []string) error {
	record, _, arch, err := mustRecord()
	if err != nil {
		return err
	}
	defer arch.Close()

	task := record.HeadTask()
	if task == nil {
		return fmt.Errorf("no task under review")
	}

	impl := lastImplementationReport(record)
	if impl == nil {
		return fmt.Errorf("no implementation report recorded for %s", task.TaskID)
	}

	fmt.Println(prompt.Review(record, task, impl))
	return nil
}
