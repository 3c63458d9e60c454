package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/triadhq/trio/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize trio in the current directory",
	Long:  "Creates a .trio/ directory with default config, a fresh context record, and the log archive.",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(trioDirName); err == nil {
		return fmt.Errorf("trio already initialized in this directory (.trio/ exists)")
	}

	if err := os.MkdirAll(trioPath("runs"), 0755); err != nil {
		return fmt.Errorf("create %s: %w", trioPath("runs"), err)
	}

	if err := config.Save(trioPath("config.yaml"), config.DefaultConfig()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	// Opening the store creates the context record and the archive db.
	store, arch, err := openStore()
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer arch.Close()
	if _, err := store.Load(); err != nil {
		return fmt.Errorf("create context record: %w", err)
	}

	fmt.Println("Initialized trio in .trio/")
	fmt.Println("")
	fmt.Println("Next steps:")
	fmt.Println("  1. Edit .trio/config.yaml to point each role at a collaborator CLI")
	fmt.Println("  2. Run: trio task \"your request\"")
	fmt.Println("  3. Run: trio status")

	return nil
}
