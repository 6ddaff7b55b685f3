package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anujt65/covpipe/internal/output"
)

const coverageWorkflowYAML = `name: Coverage
on:
  push:
    branches:
      - main
jobs:
  test:
    runs-on: ubuntu-latest
    steps:
      - name: Check out repository
        uses: actions/checkout@v4
      - name: Set up Python
        uses: actions/setup-python@v5
        with:
          python-version: "3.10"
      - name: Install dependencies
        run: pip install -r requirements.txt
      - name: Run tests
        run: coverage run -m pytest || true
        continue-on-error: true
      - name: Upload coverage report
        uses: actions/upload-artifact@v4
        with:
          name: coverage-report
          path: coverage/coverage.json
`

// setupRepo builds a throwaway repository containing the given workflow
// and a requirements.txt, then makes it the working directory.
func setupRepo(t *testing.T, workflowYAML string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, ".github", "workflows")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir workflows: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "coverage.yml"), []byte(workflowYAML), 0o644); err != nil {
		t.Fatalf("write workflow: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "requirements.txt"), []byte("pytest\ncoverage\n"), 0o644); err != nil {
		t.Fatalf("write requirements: %v", err)
	}
	chdir(t, root)
	return root
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %q: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore dir: %v", err)
		}
	})
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	out := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errBuf)
	err := cmd.Execute()
	return out.String(), errBuf.String(), err
}

func TestListCommandPretty(t *testing.T) {
	setupRepo(t, coverageWorkflowYAML)

	out, _, err := execute(t, "list")
	if err != nil {
		t.Fatalf("command execute: %v", err)
	}
	for _, want := range []string{
		"Workflow Coverage (.github/workflows/coverage.yml)",
		"  Job test",
		"    • Run tests",
		"    • Upload coverage report",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestListCommandJSON(t *testing.T) {
	setupRepo(t, coverageWorkflowYAML)

	out, _, err := execute(t, "list", "--format", "json")
	if err != nil {
		t.Fatalf("command execute: %v", err)
	}

	var listReport output.Report
	if err := json.Unmarshal([]byte(out), &listReport); err != nil {
		t.Fatalf("decode list JSON: %v", err)
	}
	if listReport.Provider != "github" {
		t.Fatalf("expected github provider, got %q", listReport.Provider)
	}
	if len(listReport.Workflows) != 1 {
		t.Fatalf("expected one workflow, got %d", len(listReport.Workflows))
	}
	if listReport.Summary.TotalSteps != 5 {
		t.Fatalf("expected 5 steps in summary, got %d", listReport.Summary.TotalSteps)
	}
}

func TestListCommandJobFilter(t *testing.T) {
	setupRepo(t, coverageWorkflowYAML)

	out, _, err := execute(t, "list", "--job", "nonexistent")
	if err != nil {
		t.Fatalf("command execute: %v", err)
	}
	if !strings.Contains(out, "No matching jobs or steps") {
		t.Fatalf("expected empty selection message, got:\n%s", out)
	}
}

func TestCheckCommandFindsMaskedFailures(t *testing.T) {
	setupRepo(t, coverageWorkflowYAML)

	out, _, err := execute(t, "check")
	if err != nil {
		t.Fatalf("warnings must not fail the check: %v", err)
	}
	if !strings.Contains(out, "[masked-failures]") {
		t.Fatalf("expected masked-failures finding, got:\n%s", out)
	}
}

func TestCheckCommandClean(t *testing.T) {
	clean := `name: Clean
on:
  push:
    branches:
      - main
jobs:
  test:
    steps:
      - name: Check out repository
        uses: actions/checkout@v4
      - name: Tests
        run: pip install -r requirements.txt && coverage run -m pytest
      - name: Upload coverage report
        uses: actions/upload-artifact@v4
        with:
          name: coverage-report
          path: coverage/coverage.json
`
	setupRepo(t, clean)

	out, _, err := execute(t, "check")
	if err != nil {
		t.Fatalf("command execute: %v", err)
	}
	if !strings.Contains(out, "No findings") {
		t.Fatalf("expected clean check, got:\n%s", out)
	}
}

func TestCheckCommandMissingTrigger(t *testing.T) {
	broken := `name: Broken
on:
  pull_request: {}
jobs:
  test:
    steps:
      - name: Tests
        run: coverage run -m pytest
`
	setupRepo(t, broken)

	out, _, err := execute(t, "check")
	if err == nil || !strings.Contains(err.Error(), "workflow check failed") {
		t.Fatalf("expected check failure, got err=%v", err)
	}
	if !strings.Contains(out, "[trigger-policy]") {
		t.Fatalf("expected trigger-policy finding, got:\n%s", out)
	}
}
