package github

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/anujt65/covpipe/internal/provider"
)

const coverageWorkflow = `name: Python Coverage
on:
  push:
    branches: [main]
jobs:
  coverage:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - name: Set up Python
        uses: actions/setup-python@v5
        with:
          python-version: "3.10"
      - name: Install dependencies
        run: |
          pip install --upgrade pip
          pip install -r requirements.txt
      - name: Run tests with coverage
        run: coverage run -m pytest
        continue-on-error: true
      - name: Generate coverage report
        run: coverage json -o coverage/coverage.json
      - name: Upload coverage report
        uses: actions/upload-artifact@v4
        with:
          name: coverage-report
          path: coverage/coverage.json
`

func TestParserParseCoverageWorkflow(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "coverage.yml")
	if err := os.WriteFile(path, []byte(coverageWorkflow), 0o644); err != nil {
		t.Fatalf("write workflow: %v", err)
	}

	parser := NewParser(root)
	pipeline, err := parser.Parse([]string{"coverage.yml"})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if pipeline.Provider != ProviderName {
		t.Fatalf("expected provider %q, got %q", ProviderName, pipeline.Provider)
	}
	if len(pipeline.Workflows) != 1 {
		t.Fatalf("expected 1 workflow, got %d", len(pipeline.Workflows))
	}

	wf := pipeline.Workflows[0]
	if wf.Name != "Python Coverage" {
		t.Fatalf("expected workflow name 'Python Coverage', got %q", wf.Name)
	}
	wantTrigger := provider.Trigger{Push: &provider.PushFilter{Branches: []string{"main"}}}
	if diff := cmp.Diff(wantTrigger, wf.On); diff != "" {
		t.Fatalf("unexpected trigger (-want +got):\n%s", diff)
	}

	if len(wf.Jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(wf.Jobs))
	}
	job := wf.Jobs[0]
	if job.RawID != "coverage" {
		t.Fatalf("expected job id 'coverage', got %q", job.RawID)
	}
	if len(job.Steps) != 6 {
		t.Fatalf("expected 6 steps, got %d", len(job.Steps))
	}

	checkout := job.Steps[0]
	if checkout.Uses != "actions/checkout@v4" {
		t.Fatalf("expected checkout uses step, got %+v", checkout)
	}
	if checkout.Name != "actions/checkout@v4" {
		t.Fatalf("expected anonymous uses step named after action, got %q", checkout.Name)
	}

	setup := job.Steps[1]
	if setup.With["python-version"] != "3.10" {
		t.Fatalf("expected python-version 3.10, got %v", setup.With)
	}

	testStep := job.Steps[3]
	if !testStep.ContinueOnError {
		t.Fatalf("expected test step to carry continue-on-error, got %+v", testStep)
	}
	if job.Steps[2].ContinueOnError || job.Steps[4].ContinueOnError {
		t.Fatalf("continue-on-error leaked onto neighbouring steps")
	}

	upload := job.Steps[5]
	if upload.With["name"] != "coverage-report" || upload.With["path"] != "coverage/coverage.json" {
		t.Fatalf("unexpected upload inputs: %v", upload.With)
	}
}

func TestDecodeTriggerForms(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want provider.Trigger
	}{
		{
			name: "bare scalar",
			yaml: "on: push\njobs: {}\n",
			want: provider.Trigger{Push: &provider.PushFilter{}},
		},
		{
			name: "sequence",
			yaml: "on: [push, workflow_dispatch]\njobs: {}\n",
			want: provider.Trigger{Push: &provider.PushFilter{}, Others: []string{"workflow_dispatch"}},
		},
		{
			name: "mapping with branches",
			yaml: "on:\n  push:\n    branches:\n      - main\n      - release/*\njobs: {}\n",
			want: provider.Trigger{Push: &provider.PushFilter{Branches: []string{"main", "release/*"}}},
		},
		{
			name: "mapping without push",
			yaml: "on:\n  pull_request:\n    branches: [main]\njobs: {}\n",
			want: provider.Trigger{Others: []string{"pull_request"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wf, _, err := decodeWorkflow(strings.NewReader(tc.yaml), "wf.yml")
			if err != nil {
				t.Fatalf("decodeWorkflow: %v", err)
			}
			if diff := cmp.Diff(tc.want, wf.On); diff != "" {
				t.Fatalf("unexpected trigger (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeWorkflowWarnings(t *testing.T) {
	doc := `name: warned
on:
  schedule:
    - cron: "0 0 * * *"
jobs:
  build:
    if: github.ref == 'refs/heads/main'
    services:
      db:
        image: postgres
    steps:
      - name: noop
        run: "true"
        if: success()
`
	wf, warnings, err := decodeWorkflow(strings.NewReader(doc), "warned.yml")
	if err != nil {
		t.Fatalf("decodeWorkflow: %v", err)
	}
	if wf.On.Push != nil {
		t.Fatalf("expected no push trigger, got %+v", wf.On.Push)
	}

	var messages []string
	for _, w := range warnings {
		messages = append(messages, w.Message)
	}
	joined := strings.Join(messages, "\n")
	for _, want := range []string{
		`trigger "schedule" cannot run locally`,
		"services are not supported",
		"job-level if condition is ignored",
		"unsupported if condition",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected warning containing %q, got:\n%s", want, joined)
		}
	}
}

func TestDecodeWorkflowNoTriggers(t *testing.T) {
	wf, warnings, err := decodeWorkflow(strings.NewReader("name: silent\njobs: {}\n"), "silent.yml")
	if err != nil {
		t.Fatalf("decodeWorkflow: %v", err)
	}
	if wf.On.Push != nil {
		t.Fatalf("expected no push trigger")
	}
	found := false
	for _, w := range warnings {
		if strings.Contains(w.Message, "no triggers") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected missing-trigger warning, got %+v", warnings)
	}
}

func TestParserParseMissingFile(t *testing.T) {
	parser := NewParser(t.TempDir())
	if _, err := parser.Parse([]string{"absent.yml"}); err == nil {
		t.Fatalf("expected error for missing workflow file")
	}
}
