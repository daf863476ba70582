package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// newRunCmdForTest builds a fresh run command with the same flags runCmd
// declares in init(), so each test gets its own flag state instead of
// sharing the package-level runCmd across test runs.
func newRunCmdForTest() *cobra.Command {
	cmd := &cobra.Command{Use: "run", RunE: runExperiment}
	cmd.Flags().Int("times", 1, "")
	cmd.Flags().String("report", "", "")
	cmd.Flags().Bool("accounting", false, "")
	cmd.Flags().Bool("randomize", false, "")
	cmd.Flags().String("extend", "", "")
	cmd.Flags().String("loglevel", "info", "")
	cmd.Flags().String("logfile", "", "")
	cmd.Flags().String("timeout", "1m", "")
	return cmd
}

func TestRunExperimentRejectsAccountingWithoutReport(t *testing.T) {
	specPath := filepath.Join(t.TempDir(), "experiment.yml")
	if err := os.WriteFile(specPath, []byte("experiment:\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cmd := newRunCmdForTest()
	if err := cmd.Flags().Set("accounting", "true"); err != nil {
		t.Fatalf("Set(accounting) error = %v", err)
	}

	err := runExperiment(cmd, []string{specPath})
	if err == nil {
		t.Fatal("runExperiment() error = nil, want an error for --accounting without --report")
	}
	if !strings.Contains(err.Error(), "--accounting requires --report") {
		t.Errorf("runExperiment() error = %q, want it to mention --accounting requires --report", err.Error())
	}
}

func TestRunExperimentAllowsAccountingWithReport(t *testing.T) {
	specPath := filepath.Join(t.TempDir(), "missing.yml")

	cmd := newRunCmdForTest()
	if err := cmd.Flags().Set("accounting", "true"); err != nil {
		t.Fatalf("Set(accounting) error = %v", err)
	}
	if err := cmd.Flags().Set("report", filepath.Join(t.TempDir(), "report.json")); err != nil {
		t.Fatalf("Set(report) error = %v", err)
	}

	// specPath intentionally does not exist: runExperiment's spec-existence
	// check runs before any Docker/spec-loading work, so this exercises the
	// accounting/report boundary without needing a live Docker daemon — the
	// resulting error must come from the missing-file check, not the
	// accounting/report boundary the two prior flags satisfy.
	err := runExperiment(cmd, []string{specPath})
	if err == nil {
		t.Fatal("runExperiment() error = nil, want an error because the spec file does not exist")
	}
	if strings.Contains(err.Error(), "--accounting requires --report") {
		t.Errorf("runExperiment() error = %q, should not trip the accounting/report boundary once --report is set", err.Error())
	}
}
