// Package lint checks workflow definitions for pipeline-level defects:
// trigger policy, step ordering, the artifact contract, masked test
// failures and missing dependency manifests.
package lint

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/anujt65/covpipe/internal/provider"
)

// Severity levels for findings.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rule identifiers, one per check.
const (
	RuleTriggerPolicy    = "trigger-policy"
	RuleStepOrder        = "step-order"
	RuleArtifactContract = "artifact-contract"
	RuleMaskedFailures   = "masked-failures"
	RuleManifestPresent  = "manifest-present"
)

// Finding is one lint result tied to a workflow and optionally a job.
type Finding struct {
	Workflow string `json:"workflow"`
	Job      string `json:"job,omitempty"`
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// HasErrors reports whether any finding is an error.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

var (
	maskedTailRegex = regexp.MustCompile(`\|\|\s*true\s*$`)
	manifestRegex   = regexp.MustCompile(`pip3?\s+install\s+(?:[^\n]*\s)?-r\s+(\S+)`)
)

// Check runs every rule over the workflows. root anchors filesystem
// checks such as manifest presence.
func Check(root string, workflows []provider.Workflow) []Finding {
	var findings []Finding
	for _, wf := range workflows {
		findings = append(findings, checkTriggerPolicy(wf)...)
		for _, job := range wf.Jobs {
			findings = append(findings, checkStepOrder(wf, job)...)
			findings = append(findings, checkArtifactContract(wf, job)...)
			findings = append(findings, checkMaskedFailures(wf, job)...)
			findings = append(findings, checkManifestPresent(root, wf, job)...)
		}
	}
	return findings
}

func checkTriggerPolicy(wf provider.Workflow) []Finding {
	var findings []Finding
	if wf.On.Push == nil {
		findings = append(findings, Finding{
			Workflow: wf.Path,
			Rule:     RuleTriggerPolicy,
			Severity: SeverityError,
			Message:  "workflow has no push trigger and never activates",
		})
		return findings
	}
	if len(wf.On.Push.Branches) == 0 {
		findings = append(findings, Finding{
			Workflow: wf.Path,
			Rule:     RuleTriggerPolicy,
			Severity: SeverityWarning,
			Message:  "push trigger has no branch filter; every branch activates the pipeline",
		})
	}
	for _, other := range wf.On.Others {
		findings = append(findings, Finding{
			Workflow: wf.Path,
			Rule:     RuleTriggerPolicy,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("trigger %q is declared but cannot run locally", other),
		})
	}
	return findings
}

func checkStepOrder(wf provider.Workflow, job provider.Job) []Finding {
	var findings []Finding
	lastIdx := len(job.Steps) - 1
	for idx, step := range job.Steps {
		switch actionName(step.Uses) {
		case "actions/checkout":
			if idx != 0 {
				findings = append(findings, Finding{
					Workflow: wf.Path,
					Job:      job.RawID,
					Rule:     RuleStepOrder,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("checkout is step %d; steps before it run against an unfetched tree", idx+1),
				})
			}
		case "actions/upload-artifact":
			if idx != lastIdx {
				findings = append(findings, Finding{
					Workflow: wf.Path,
					Job:      job.RawID,
					Rule:     RuleStepOrder,
					Severity: SeverityWarning,
					Message:  "upload-artifact is not the final step; later steps cannot affect the published artifact",
				})
			}
		}
	}
	return findings
}

func checkArtifactContract(wf provider.Workflow, job provider.Job) []Finding {
	var findings []Finding
	for _, step := range job.Steps {
		if actionName(step.Uses) != "actions/upload-artifact" {
			continue
		}
		if strings.TrimSpace(step.With["name"]) == "" {
			findings = append(findings, Finding{
				Workflow: wf.Path,
				Job:      job.RawID,
				Rule:     RuleArtifactContract,
				Severity: SeverityError,
				Message:  fmt.Sprintf("step %q uploads an artifact without with.name", step.Name),
			})
		}
		if strings.TrimSpace(step.With["path"]) == "" {
			findings = append(findings, Finding{
				Workflow: wf.Path,
				Job:      job.RawID,
				Rule:     RuleArtifactContract,
				Severity: SeverityError,
				Message:  fmt.Sprintf("step %q uploads an artifact without with.path", step.Name),
			})
		}
	}
	return findings
}

// checkMaskedFailures flags steps whose failure cannot fail the run,
// either through continue-on-error or a trailing `|| true` in the
// script. A green pipeline then says nothing about the test suite.
func checkMaskedFailures(wf provider.Workflow, job provider.Job) []Finding {
	var findings []Finding
	for _, step := range job.Steps {
		masked := step.ContinueOnError
		if !masked && step.Run != "" {
			for _, line := range strings.Split(step.Run, "\n") {
				if maskedTailRegex.MatchString(strings.TrimSpace(line)) {
					masked = true
					break
				}
			}
		}
		if masked {
			findings = append(findings, Finding{
				Workflow: wf.Path,
				Job:      job.RawID,
				Rule:     RuleMaskedFailures,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("step %q masks failures; pipeline success is decoupled from its outcome", step.Name),
			})
		}
	}
	return findings
}

func checkManifestPresent(root string, wf provider.Workflow, job provider.Job) []Finding {
	var findings []Finding
	for _, step := range job.Steps {
		if step.Run == "" {
			continue
		}
		for _, match := range manifestRegex.FindAllStringSubmatch(step.Run, -1) {
			manifest := match[1]
			full := manifest
			if !filepath.IsAbs(full) {
				full = filepath.Join(root, manifest)
			}
			if _, err := os.Stat(full); err != nil {
				findings = append(findings, Finding{
					Workflow: wf.Path,
					Job:      job.RawID,
					Rule:     RuleManifestPresent,
					Severity: SeverityError,
					Message:  fmt.Sprintf("step %q installs from %q but the manifest does not exist; the run would abort before testing", step.Name, manifest),
				})
			}
		}
	}
	return findings
}

func actionName(uses string) string {
	if idx := strings.Index(uses, "@"); idx != -1 {
		return uses[:idx]
	}
	return uses
}
