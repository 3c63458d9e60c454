package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/triadhq/trio/internal/archive"
	"github.com/triadhq/trio/internal/config"
	"github.com/triadhq/trio/internal/ctxstore"
	"github.com/triadhq/trio/internal/schema"
)

const trioDirName = ".trio"

// ANSI color codes.
const (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
)

// trioPath returns the path to a file inside .trio/.
func trioPath(parts ...string) string {
	elems := append([]string{trioDirName}, parts...)
	return filepath.Join(elems...)
}

// projectName derives the project name from the working directory.
func projectName() string {
	wd, err := os.Getwd()
	if err != nil {
		return "trio-project"
	}
	return filepath.Base(wd)
}

// mustConfig loads the config, failing if trio is not initialized.
func mustConfig() (*config.Config, error) {
	path := trioPath("config.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("trio not initialized. Run: trio init")
	}
	return config.Load(path)
}

// openStore opens the context store backed by the SQLite log archive.
// The caller must Close the returned archive.
func openStore() (*ctxstore.Store, *archive.Archive, error) {
	arch, err := archive.New(trioPath("archive.db"))
	if err != nil {
		return nil, nil, err
	}
	store := ctxstore.New(trioPath("context.json"), projectName(), arch)
	return store, arch, nil
}

// mustRecord loads the context record, failing if trio is not initialized.
func mustRecord() (*schema.ContextRecord, *ctxstore.Store, *archive.Archive, error) {
	if _, err := os.Stat(trioDirName); os.IsNotExist(err) {
		return nil, nil, nil, fmt.Errorf("trio not initialized. Run: trio init")
	}
	store, arch, err := openStore()
	if err != nil {
		return nil, nil, nil, err
	}
	record, err := store.Load()
	if err != nil {
		arch.Close()
		return nil, nil, nil, err
	}
	return record, store, arch, nil
}

// lastImplementationReport recovers the most recent implementation report
// from the reasoning log, or nil.
func lastImplementationReport(record *schema.ContextRecord) *schema.ImplementationReport {
	for i := len(record.ReasoningLogs) - 1; i >= 0; i-- {
		entry := record.ReasoningLogs[i]
		if entry.Role != schema.RoleImplementer {
			continue
		}
		raw, ok := entry.Details["report"]
		if !ok {
			continue
		}
		var impl schema.ImplementationReport
		if err := json.Unmarshal([]byte(raw), &impl); err != nil {
			continue
		}
		return &impl
	}
	return nil
}

// phaseColor picks a display color for a phase.
func phaseColor(p schema.Phase) string {
	switch p {
	case schema.PhasePlanning:
		return colorMagenta
	case schema.PhaseImplementation:
		return colorBlue
	case schema.PhaseReview:
		return colorYellow
	case schema.PhaseApproved:
		return colorGreen
	case schema.PhaseRejected:
		return colorRed
	}
	return colorReset
}
