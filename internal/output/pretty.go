package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/anujt65/covpipe/internal/provider"
	"github.com/anujt65/covpipe/internal/report"
)

// PrettyRenderer renders execution results in a human-friendly format.
type PrettyRenderer struct {
	out io.Writer
}

// NewPretty creates a PrettyRenderer writing to the provided writer.
func NewPretty(out io.Writer) *PrettyRenderer {
	return &PrettyRenderer{out: out}
}

// RenderList renders workflows/jobs/steps in list mode.
func (p *PrettyRenderer) RenderList(workflows []provider.Workflow) error {
	for _, wf := range workflows {
		if _, err := fmt.Fprintf(p.out, "Workflow %s\n", decorateName(wf.Name, wf.Path)); err != nil {
			return err
		}
		for _, job := range wf.Jobs {
			if _, err := fmt.Fprintf(p.out, "  Job %s\n", job.Name); err != nil {
				return err
			}
			for _, step := range job.Steps {
				label := stepLabel(step.Name, step.Run, step.Uses)
				if label == "" {
					continue
				}
				if _, err := fmt.Fprintf(p.out, "    • %s\n", label); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// RenderResults shows execution outcomes for steps with a summary.
func (p *PrettyRenderer) RenderResults(results []report.StepResult, summary report.Summary) error {
	type key struct {
		workflow string
		job      string
	}

	var current key
	var buffer bytes.Buffer

	flush := func() error {
		if buffer.Len() == 0 {
			return nil
		}
		if _, err := buffer.WriteTo(p.out); err != nil {
			return err
		}
		buffer.Reset()
		return nil
	}

	for _, res := range results {
		k := key{workflow: res.WorkflowName, job: res.JobName}
		if current != k {
			if err := flush(); err != nil {
				return err
			}
			current = k
			fmt.Fprintf(&buffer, "Workflow %s\n", decorateName(res.WorkflowName, res.WorkflowPath))
			fmt.Fprintf(&buffer, "  Job %s\n", res.JobName)
		}

		label := stepLabel(res.StepName, res.StepRun, res.StepUses)
		fmt.Fprintf(&buffer, "    %s %s (%s)\n", statusGlyph(res.Status), label, formatDuration(res.Duration))
		switch {
		case res.Status == report.StatusFailed && res.Stderr != "":
			fmt.Fprintf(&buffer, "      stderr: %s\n", indent(res.Stderr, "      "))
		case res.Status == report.StatusMasked:
			fmt.Fprintf(&buffer, "      note: step failed but was masked by continue-on-error\n")
			if res.Stderr != "" {
				fmt.Fprintf(&buffer, "      stderr: %s\n", indent(res.Stderr, "      "))
			}
		case res.Status == report.StatusSkipped && res.Stderr != "":
			fmt.Fprintf(&buffer, "      note: %s\n", indent(res.Stderr, "      "))
		case res.Status == report.StatusAborted && res.Stderr != "":
			fmt.Fprintf(&buffer, "      note: %s\n", indent(res.Stderr, "      "))
		}
		if res.DryRun && res.StepRun != "" {
			fmt.Fprintf(&buffer, "      command: %s\n", res.StepRun)
		}
	}

	if err := flush(); err != nil {
		return err
	}

	fmt.Fprintf(p.out, "SUMMARY: %s\n", summaryLine(summary))
	return nil
}

func summaryLine(summary report.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d passed, %d failed", summary.Passed, summary.Failed)
	if summary.Masked > 0 {
		fmt.Fprintf(&b, ", %d masked", summary.Masked)
	}
	fmt.Fprintf(&b, ", %d skipped", summary.Skipped)
	if summary.Aborted > 0 {
		fmt.Fprintf(&b, ", %d aborted", summary.Aborted)
	}
	fmt.Fprintf(&b, " (%s)", formatDuration(summary.Duration))
	if summary.CoveragePercent != nil {
		fmt.Fprintf(&b, " coverage: %.1f%%", *summary.CoveragePercent)
	}
	return b.String()
}

func stepLabel(name, run, uses string) string {
	if name != "" {
		return name
	}
	if uses != "" {
		return uses
	}
	return run
}

func decorateName(name, path string) string {
	if name == "" || name == path {
		return path
	}
	return fmt.Sprintf("%s (%s)", name, path)
}

func statusGlyph(status string) string {
	switch status {
	case report.StatusPassed:
		return "✓"
	case report.StatusFailed:
		return "✗"
	case report.StatusMasked:
		return "!"
	case report.StatusSkipped:
		return "-"
	case report.StatusAborted:
		return "·"
	default:
		return "?"
	}
}

func indent(s, pad string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Truncate(time.Millisecond).String()
}
