package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/triadhq/trio/internal/phase"
	"github.com/triadhq/trio/internal/schema"
)

var transitionRole string

var transitionCmd = &cobra.Command{
	Use:   "transition <phase>",
	Short: "Request a phase transition as a given role",
	Long: `Applies a phase transition to the shared context. The transition is
validated against the allowed-edge table; an illegal edge or a request
from the wrong role leaves the phase unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runTransition,
}

func init() {
	transitionCmd.Flags().StringVarP(&transitionRole, "role", "r", "", "acting role (architect, implementer, auditor)")
	transitionCmd.MarkFlagRequired("role")
}

func runTransition(cmd *cobra.Command, args []string) error {
	requested := schema.Phase(args[0])
	if !requested.Valid() {
		return fmt.Errorf("unknown phase %q", args[0])
	}
	role := schema.Role(transitionRole)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", transitionRole)
	}

	_, store, arch, err := mustRecord()
	if err != nil {
		return err
	}
	defer arch.Close()

	record, err := store.Update(role, func(r *schema.ContextRecord) error {
		next, err := phase.Transition(r.GlobalPhase, requested, role)
		if err != nil {
			return err
		}
		prev := r.GlobalPhase
		r.GlobalPhase = next
		return store.PushLog(r, schema.LogEntry{
			Role:    role,
			TaskID:  r.CurrentTask,
			Action:  "phase_transition",
			Summary: fmt.Sprintf("%s -> %s", prev, next),
		})
	})
	if err != nil {
		return err
	}

	fmt.Printf("Phase is now %s%s%s\n", phaseColor(record.GlobalPhase), record.GlobalPhase, colorReset)
	return nil
}
