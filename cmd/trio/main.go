package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/triadhq/trio/internal/cli"
	"github.com/triadhq/trio/internal/config"
	"github.com/triadhq/trio/internal/ctxstore"
	"github.com/triadhq/trio/internal/phase"
	"github.com/triadhq/trio/internal/pipeline"
)

// Exit codes: 0 success, 2 configuration or validation error, 3 pipeline
// failure, 1 anything else.
func main() {
	err := cli.Execute()
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	var cfgErr *config.Error
	var transErr *phase.InvalidTransitionError
	var corruptErr *ctxstore.CorruptionError
	if errors.As(err, &cfgErr) || errors.As(err, &transErr) || errors.As(err, &corruptErr) {
		return 2
	}
	var failure *pipeline.Failure
	if errors.As(err, &failure) {
		return 3
	}
	return 1
}
