package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/anujt65/covpipe/internal/artifact"
	"github.com/anujt65/covpipe/internal/coverage"
	"github.com/anujt65/covpipe/internal/provider"
	"github.com/anujt65/covpipe/internal/report"
	"github.com/anujt65/covpipe/internal/version"
)

// Options configure how the runner executes steps.
type Options struct {
	Root               string
	Stdout             io.Writer
	Stderr             io.Writer
	Verbose            bool
	DryRun             bool
	TailLines          int
	Env                []string
	Now                func() time.Time
	RunID              string
	Artifacts          *artifact.Store
	DetectPython       func() (version.Info, error)
	AllowPrivileged    bool
	PrivilegedPatterns []string
}

// Runner executes workflow steps sequentially. The first fatal step
// failure aborts the run; steps marked continue-on-error record their
// failure as masked and never abort.
type Runner struct {
	opts     Options
	coverage *coverage.Summary
}

// New creates a runner with the supplied options.
func New(opts Options) *Runner {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.TailLines <= 0 {
		opts.TailLines = 20
	}
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DetectPython == nil {
		opts.DetectPython = version.DetectPython
	}
	if len(opts.PrivilegedPatterns) == 0 {
		opts.PrivilegedPatterns = DefaultPrivilegedPatterns()
	}
	opts.PrivilegedPatterns = append([]string{}, opts.PrivilegedPatterns...)

	return &Runner{opts: opts}
}

// Run executes the provided workflows returning step results and a summary.
func (r *Runner) Run(workflows []provider.Workflow) ([]report.StepResult, report.Summary, error) {
	summary := report.Summary{TotalWorkflows: len(workflows)}
	results := make([]report.StepResult, 0)
	aborted := false

	for _, wf := range workflows {
		summary.TotalJobs += len(wf.Jobs)
		for _, job := range wf.Jobs {
			for _, step := range job.Steps {
				if step.Run == "" && step.Uses == "" {
					continue
				}
				summary.TotalSteps++

				result := report.StepResult{
					WorkflowPath: wf.Path,
					WorkflowName: wf.Name,
					JobName:      job.Name,
					StepName:     step.Name,
					StepRun:      step.Run,
					StepUses:     step.Uses,
					DryRun:       r.opts.DryRun,
				}

				if aborted {
					result.Status = report.StatusAborted
					result.Stderr = "not run: a previous step failed"
					summary.Aborted++
					results = append(results, result)
					continue
				}

				if step.Run != "" {
					if msg, skip := shouldSkipStep(step.Run, r.opts); skip {
						result.Status = report.StatusSkipped
						result.Stderr = msg
						summary.Skipped++
						results = append(results, result)
						continue
					}
				}

				if r.opts.DryRun {
					result.Status = report.StatusSkipped
					summary.Skipped++
					results = append(results, result)
					continue
				}

				start := r.opts.Now()
				var err error
				if step.Uses != "" {
					err = r.runAction(wf, job, step, &result)
				} else {
					err = r.runStep(context.Background(), wf, job, step, &result)
				}
				result.Duration = r.opts.Now().Sub(start)
				result.DurationMS = result.Duration.Milliseconds()
				summary.Duration += result.Duration

				switch {
				case err == nil && result.Status != "":
					// Unsupported actions report themselves as skipped.
					summary.Skipped++
				case err == nil:
					result.Status = report.StatusPassed
					summary.Passed++
				case step.ContinueOnError:
					result.Status = report.StatusMasked
					result.Stderr = tailLines(result.Stderr, r.opts.TailLines)
					result.Stdout = tailLines(result.Stdout, r.opts.TailLines)
					summary.Masked++
				default:
					result.Status = report.StatusFailed
					result.Stderr = tailLines(result.Stderr, r.opts.TailLines)
					result.Stdout = tailLines(result.Stdout, r.opts.TailLines)
					summary.Failed++
					summary.ExitCode = 1
					aborted = true
				}

				results = append(results, result)
			}
		}
	}

	summary.DurationMS = summary.Duration.Milliseconds()
	if r.coverage != nil {
		pct := r.coverage.PercentCovered
		summary.CoveragePercent = &pct
	}
	return results, summary, nil
}

func (r *Runner) runStep(ctx context.Context, wf provider.Workflow, job provider.Job, step provider.Step, result *report.StepResult) error {
	env := mergeEnv(r.opts.Env, wf.Env, job.Env, step.Env)
	cmdArgs := buildCommand(step, job, wf)

	workingDir, err := resolveWorkingDirectory(r.opts.Root, wf, job, step)
	if err != nil {
		result.Stderr = err.Error()
		result.ExitCode = 127
		return err
	}

	cmd := exec.CommandContext(ctx, cmdArgs[0], cmdArgs[1:]...)
	cmd.Dir = workingDir
	cmd.Env = env

	var stdoutBuf, stderrBuf strings.Builder
	if r.opts.Verbose {
		cmd.Stdout = io.MultiWriter(r.opts.Stdout, &stdoutBuf)
		cmd.Stderr = io.MultiWriter(r.opts.Stderr, &stderrBuf)
	} else {
		cmd.Stdout = &stdoutBuf
		cmd.Stderr = &stderrBuf
	}

	err = cmd.Run()
	result.Stdout = stdoutBuf.String()
	result.Stderr = simplifyError(stderrBuf.String())
	result.ExitCode = exitCode(err)
	return err
}

func buildCommand(step provider.Step, job provider.Job, wf provider.Workflow) []string {
	shell := strings.TrimSpace(step.Shell)
	if shell == "" {
		shell = strings.TrimSpace(job.Defaults.RunShell)
	}
	if shell == "" {
		shell = strings.TrimSpace(wf.Defaults.RunShell)
	}
	return commandArgs(shell, step.Run)
}

func commandArgs(shellSpec, script string) []string {
	if shellSpec == "" {
		if runtime.GOOS == "windows" {
			return []string{"cmd", "/C", script}
		}
		return []string{"bash", "-c", script}
	}

	fields := strings.Fields(shellSpec)
	shell := fields[0]
	args := append([]string{}, fields[1:]...)
	base := strings.ToLower(filepath.Base(shell))

	switch base {
	case "bash", "zsh", "ksh", "fish", "sh":
		args = append(args, "-c", script)
	case "cmd", "cmd.exe":
		args = append(args, "/C", script)
	case "pwsh", "powershell", "powershell.exe":
		args = append(args, "-Command", script)
	case "python", "python3", "python.exe":
		args = append(args, "-c", script)
	default:
		args = append(args, script)
	}
	return append([]string{shell}, args...)
}

func resolveWorkingDirectory(root string, wf provider.Workflow, job provider.Job, step provider.Step) (string, error) {
	candidates := []string{step.WorkingDirectory, job.Defaults.WorkingDirectory, wf.Defaults.WorkingDirectory}
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}

		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(root, candidate)
		}
		info, err := os.Stat(candidate)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("working directory %q not found", candidate)
			}
			return "", fmt.Errorf("stat working directory %q: %w", candidate, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("working directory %q is not a directory", candidate)
		}
		return candidate, nil
	}
	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
	}
	return root, nil
}

func mergeEnv(base []string, overlays ...map[string]string) []string {
	envMap := make(map[string]string, len(base)+len(overlays)*4)
	for _, kv := range base {
		if idx := strings.Index(kv, "="); idx != -1 {
			envMap[kv[:idx]] = kv[idx+1:]
		}
	}
	for _, overlay := range overlays {
		for k, v := range overlay {
			envMap[k] = v
		}
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, envMap[k]))
	}
	return out
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

func tailLines(input string, maxLines int) string {
	if input == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(input, "\n"), "\n")
	if len(lines) <= maxLines {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-maxLines:], "\n")
}

func shouldSkipStep(script string, opts Options) (string, bool) {
	if opts.AllowPrivileged {
		return "", false
	}
	for _, pattern := range opts.PrivilegedPatterns {
		if pattern == "" {
			continue
		}
		matched, err := regexp.MatchString(pattern, script)
		if err != nil {
			continue
		}
		if matched {
			return fmt.Sprintf("skipped privileged command matching pattern %q; pass --allow-privileged to run", pattern), true
		}
	}
	return "", false
}

// simplifyError rewrites common pip and pytest failures into actionable
// messages; anything unrecognized passes through untouched.
func simplifyError(stderr string) string {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "could not open requirements file"):
		return "missing dependency manifest; expected requirements.txt in the repository"
	case strings.Contains(lower, "no module named pytest"):
		return "pytest is not installed; run `pip install -r requirements.txt` first"
	case strings.Contains(lower, "no module named coverage"):
		return "coverage is not installed; run `pip install -r requirements.txt` first"
	}
	return stderr
}

// DefaultPrivilegedPatterns lists command shapes that are refused
// without --allow-privileged because they can modify the host system.
func DefaultPrivilegedPatterns() []string {
	return []string{
		`(?i)^sudo\b`,
		`(?i)\bapt-get\b`,
		`(?i)\bapt\b`,
		`(?i)\byum\b`,
		`(?i)\bdnf\b`,
		`(?i)\bpacman\b`,
		`(?i)\bbrew\b`,
		`(?i)\bpip\s+install\s+--user`,
		`(?i)\bnpm\s+install\s+-g`,
	}
}
