package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/triadhq/trio/internal/executor"
	"github.com/triadhq/trio/internal/git"
	"github.com/triadhq/trio/internal/pipeline"
)

var taskNoCommit bool

var taskCmd = &cobra.Command{
	Use:   "task [request]",
	Short: "Run the full pipeline on a request",
	Long: `Drives the complete pipeline for one request:

  1. Architect plans a task packet
  2. Implementer carries it out
  3. Auditor reviews and approves or rejects

Rejections escalate by severity: minor re-implements, major re-plans,
critical aborts for operator intervention. If a previous run crashed,
the pipeline resumes from the persisted phase.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTask,
}

func init() {
	taskCmd.Flags().BoolVar(&taskNoCommit, "no-commit", false, "Skip committing approved changes")
}

func runTask(cmd *cobra.Command, args []string) error {
	cfg, err := mustConfig()
	if err != nil {
		return err
	}

	store, arch, err := openStore()
	if err != nil {
		return err
	}
	defer arch.Close()

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithRunsDir(trioPath("runs")),
	}
	if !taskNoCommit {
		if vcs := git.New(workDir); vcs.IsRepo() {
			opts = append(opts, pipeline.WithCommitter(vcs))
		}
	}

	orch := pipeline.New(store, executor.NewCLI(cfg, workDir), cfg, opts...)

	request := strings.Join(args, " ")
	if err := orch.Run(cmd.Context(), request); err != nil {
		var failure *pipeline.Failure
		if errors.As(err, &failure) {
			fmt.Printf("%s✗ %v%s\n", colorRed, failure, colorReset)
		}
		return err
	}

	fmt.Printf("%s✓ Task approved.%s Run %strio status%s for details.\n",
		colorGreen+colorBold, colorReset, colorCyan, colorReset)
	return nil
}
