package report

import "time"

// Step statuses as rendered and serialized.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusMasked  = "masked"
	StatusSkipped = "skipped"
	StatusAborted = "aborted"
)

// StepResult captures the outcome of a single step.
type StepResult struct {
	WorkflowPath string        `json:"workflow_path"`
	WorkflowName string        `json:"workflow_name"`
	JobName      string        `json:"job_name"`
	StepName     string        `json:"step_name"`
	StepRun      string        `json:"step_run,omitempty"`
	StepUses     string        `json:"step_uses,omitempty"`
	Status       string        `json:"status"`
	Duration     time.Duration `json:"-"`
	DurationMS   int64         `json:"duration_ms"`
	Stdout       string        `json:"stdout,omitempty"`
	Stderr       string        `json:"stderr,omitempty"`
	ExitCode     int           `json:"exit_code"`
	DryRun       bool          `json:"dry_run"`
}

// Summary aggregates pipeline execution results. Masked counts steps
// that failed but were configured to not fail the run; they contribute
// nothing to ExitCode.
type Summary struct {
	TotalWorkflows  int           `json:"total_workflows"`
	TotalJobs       int           `json:"total_jobs"`
	TotalSteps      int           `json:"total_steps"`
	Passed          int           `json:"passed"`
	Failed          int           `json:"failed"`
	Masked          int           `json:"masked"`
	Skipped         int           `json:"skipped"`
	Aborted         int           `json:"aborted"`
	Duration        time.Duration `json:"-"`
	DurationMS      int64         `json:"duration_ms"`
	ExitCode        int           `json:"exit_code"`
	CoveragePercent *float64      `json:"coverage_percent,omitempty"`
}
