package lint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anujt65/covpipe/internal/provider"
)

func coverageJob(steps ...provider.Step) provider.Job {
	return provider.Job{RawID: "coverage", Name: "coverage", Steps: steps}
}

func findByRule(findings []Finding, rule string) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Rule == rule {
			out = append(out, f)
		}
	}
	return out
}

func TestCheckCleanWorkflow(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "requirements.txt"), []byte("pytest\n"), 0o644))

	wf := provider.Workflow{
		Path: "coverage.yml",
		On:   provider.Trigger{Push: &provider.PushFilter{Branches: []string{"main"}}},
		Jobs: []provider.Job{coverageJob(
			provider.Step{Name: "checkout", Uses: "actions/checkout@v4"},
			provider.Step{Name: "install", Run: "pip install -r requirements.txt"},
			provider.Step{Name: "test", Run: "coverage run -m pytest"},
			provider.Step{Name: "upload", Uses: "actions/upload-artifact@v4", With: map[string]string{
				"name": "coverage-report",
				"path": "coverage/coverage.json",
			}},
		)},
	}

	findings := Check(root, []provider.Workflow{wf})
	assert.Empty(t, findings)
}

func TestCheckTriggerPolicy(t *testing.T) {
	noTrigger := provider.Workflow{Path: "a.yml"}
	noFilter := provider.Workflow{Path: "b.yml", On: provider.Trigger{Push: &provider.PushFilter{}}}
	extraEvents := provider.Workflow{Path: "c.yml", On: provider.Trigger{
		Push:   &provider.PushFilter{Branches: []string{"main"}},
		Others: []string{"workflow_dispatch"},
	}}

	findings := Check(t.TempDir(), []provider.Workflow{noTrigger, noFilter, extraEvents})
	policy := findByRule(findings, RuleTriggerPolicy)
	require.Len(t, policy, 3)
	assert.Equal(t, SeverityError, policy[0].Severity)
	assert.Equal(t, SeverityWarning, policy[1].Severity)
	assert.Contains(t, policy[2].Message, "workflow_dispatch")
	assert.True(t, HasErrors(findings))
}

func TestCheckStepOrder(t *testing.T) {
	wf := provider.Workflow{
		Path: "wf.yml",
		On:   provider.Trigger{Push: &provider.PushFilter{Branches: []string{"main"}}},
		Jobs: []provider.Job{coverageJob(
			provider.Step{Name: "test", Run: "pytest"},
			provider.Step{Name: "checkout", Uses: "actions/checkout@v4"},
			provider.Step{Name: "upload", Uses: "actions/upload-artifact@v4", With: map[string]string{
				"name": "r", "path": "p",
			}},
			provider.Step{Name: "late", Run: "echo late"},
		)},
	}

	findings := findByRule(Check(t.TempDir(), []provider.Workflow{wf}), RuleStepOrder)
	require.Len(t, findings, 2)
	assert.Contains(t, findings[0].Message, "checkout")
	assert.Contains(t, findings[1].Message, "upload-artifact")
}

func TestCheckArtifactContract(t *testing.T) {
	wf := provider.Workflow{
		Path: "wf.yml",
		On:   provider.Trigger{Push: &provider.PushFilter{Branches: []string{"main"}}},
		Jobs: []provider.Job{coverageJob(
			provider.Step{Name: "upload", Uses: "actions/upload-artifact@v4"},
		)},
	}

	findings := findByRule(Check(t.TempDir(), []provider.Workflow{wf}), RuleArtifactContract)
	require.Len(t, findings, 2)
	for _, f := range findings {
		assert.Equal(t, SeverityError, f.Severity)
	}
}

func TestCheckMaskedFailures(t *testing.T) {
	wf := provider.Workflow{
		Path: "wf.yml",
		On:   provider.Trigger{Push: &provider.PushFilter{Branches: []string{"main"}}},
		Jobs: []provider.Job{coverageJob(
			provider.Step{Name: "flagged attr", Run: "pytest", ContinueOnError: true},
			provider.Step{Name: "flagged script", Run: "coverage run -m pytest || true"},
			provider.Step{Name: "clean", Run: "pytest"},
		)},
	}

	findings := findByRule(Check(t.TempDir(), []provider.Workflow{wf}), RuleMaskedFailures)
	require.Len(t, findings, 2)
	assert.Contains(t, findings[0].Message, "flagged attr")
	assert.Contains(t, findings[1].Message, "flagged script")
	for _, f := range findings {
		assert.Equal(t, SeverityWarning, f.Severity)
	}
}

func TestCheckManifestPresent(t *testing.T) {
	root := t.TempDir()

	wf := provider.Workflow{
		Path: "wf.yml",
		On:   provider.Trigger{Push: &provider.PushFilter{Branches: []string{"main"}}},
		Jobs: []provider.Job{coverageJob(
			provider.Step{Name: "install", Run: "pip install --upgrade pip\npip install -r requirements.txt"},
		)},
	}

	findings := findByRule(Check(root, []provider.Workflow{wf}), RuleManifestPresent)
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityError, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "requirements.txt")

	require.NoError(t, os.WriteFile(filepath.Join(root, "requirements.txt"), []byte("pytest\n"), 0o644))
	findings = findByRule(Check(root, []provider.Workflow{wf}), RuleManifestPresent)
	assert.Empty(t, findings)
}
