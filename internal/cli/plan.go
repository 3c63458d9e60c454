package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/triadhq/trio/internal/prompt"
)

var planCmd = &cobra.Command{
	Use:   "plan [request]",
	Short: "Generate the architect prompt for a request",
	Long: `Builds the planning prompt from the current context record and prints
it, without invoking any collaborator. Useful for running a stage by hand
or inspecting what the orchestrator would send.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	record, _, arch, err := mustRecord()
	if err != nil {
		return err
	}
	defer arch.Close()

	request := strings.Join(args, " ")
	fmt.Println(prompt.Plan(record, request, nil))
	return nil
}
