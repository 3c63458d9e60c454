package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/triadhq/trio/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live status dashboard",
	Long: `Launches a terminal dashboard showing the current phase, task queue,
and recent activity. The view refreshes automatically when the shared
context changes on disk.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	_, store, arch, err := mustRecord()
	if err != nil {
		return err
	}
	defer arch.Close()

	p := tea.NewProgram(tui.New(store), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}
