package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/anujt65/covpipe/internal/artifact"
	"github.com/anujt65/covpipe/internal/coverage"
	"github.com/anujt65/covpipe/internal/provider"
	"github.com/anujt65/covpipe/internal/report"
	"github.com/anujt65/covpipe/internal/version"
)

// Builtin action handlers. A hosted runner downloads and executes these
// actions; covpipe maps the ones the coverage pipeline needs onto local
// equivalents and skips everything else with a note.
const (
	actionCheckout       = "actions/checkout"
	actionSetupPython    = "actions/setup-python"
	actionUploadArtifact = "actions/upload-artifact"
)

func (r *Runner) runAction(wf provider.Workflow, job provider.Job, step provider.Step, result *report.StepResult) error {
	switch actionName(step.Uses) {
	case actionCheckout:
		return r.runCheckout(result)
	case actionSetupPython:
		return r.runSetupPython(step, result)
	case actionUploadArtifact:
		return r.runUploadArtifact(wf, job, step, result)
	default:
		result.Status = report.StatusSkipped
		result.Stderr = fmt.Sprintf("action %q is not supported locally", step.Uses)
		return nil
	}
}

// actionName strips the version pin, e.g. "actions/checkout@v4".
func actionName(uses string) string {
	if idx := strings.Index(uses, "@"); idx != -1 {
		return uses[:idx]
	}
	return uses
}

// runCheckout validates the working tree. The hosted action fetches the
// triggering commit; locally the tree is already present, so the step
// only verifies it exists.
func (r *Runner) runCheckout(result *report.StepResult) error {
	root := r.opts.Root
	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			result.Stderr = err.Error()
			return fmt.Errorf("determine working tree: %w", err)
		}
	}
	info, err := os.Stat(root)
	if err != nil {
		result.Stderr = err.Error()
		return fmt.Errorf("working tree %q: %w", root, err)
	}
	if !info.IsDir() {
		err := fmt.Errorf("working tree %q is not a directory", root)
		result.Stderr = err.Error()
		return err
	}
	result.Stdout = fmt.Sprintf("using working tree %s", root)
	return nil
}

// runSetupPython checks the system interpreter against the requested
// version pin. Provisioning failures are fatal, matching hosted runner
// behavior.
func (r *Runner) runSetupPython(step provider.Step, result *report.StepResult) error {
	pin := strings.TrimSpace(step.With["python-version"])
	info, err := r.opts.DetectPython()
	if err != nil {
		if version.Missing(err) {
			err = fmt.Errorf("python executable not found; required %s", pin)
		} else {
			err = fmt.Errorf("detect python version: %w", err)
		}
		result.Stderr = err.Error()
		result.ExitCode = 127
		return err
	}
	if pin != "" && !version.CompareMajorMinor(pin, info.Version) {
		err := fmt.Errorf("python version mismatch: required %s but found %s", pin, info.Version)
		result.Stderr = err.Error()
		return err
	}
	result.Stdout = fmt.Sprintf("using %s %s", info.Name, info.Version)
	return nil
}

// runUploadArtifact publishes the step's `with.path` files into the
// artifact store under `with.name`. A missing source file fails the
// step; the upload must only succeed when the declared content exists.
func (r *Runner) runUploadArtifact(wf provider.Workflow, job provider.Job, step provider.Step, result *report.StepResult) error {
	if r.opts.Artifacts == nil {
		err := errors.New("no artifact store configured")
		result.Stderr = err.Error()
		return err
	}
	name := strings.TrimSpace(step.With["name"])
	if name == "" {
		err := errors.New("upload-artifact requires with.name")
		result.Stderr = err.Error()
		return err
	}
	rawPath := strings.TrimSpace(step.With["path"])
	if rawPath == "" {
		err := errors.New("upload-artifact requires with.path")
		result.Stderr = err.Error()
		return err
	}

	workingDir, err := resolveWorkingDirectory(r.opts.Root, wf, job, step)
	if err != nil {
		result.Stderr = err.Error()
		return err
	}

	var files []artifact.File
	for _, entry := range strings.Split(rawPath, "\n") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		source := entry
		if !filepath.IsAbs(source) {
			source = filepath.Join(workingDir, entry)
		}
		collected, err := collectFiles(source, entry)
		if err != nil {
			result.Stderr = err.Error()
			return err
		}
		files = append(files, collected...)
	}

	if err := r.opts.Artifacts.Upload(name, r.opts.RunID, files); err != nil {
		result.Stderr = err.Error()
		return err
	}

	for _, f := range files {
		if filepath.Base(f.Source) == "coverage.json" {
			if summary, err := coverage.ReadFile(f.Source); err == nil {
				r.coverage = &summary
			}
		}
	}

	result.Stdout = fmt.Sprintf("uploaded artifact %q (%d file(s))", name, len(files))
	return nil
}

func collectFiles(source, archiveBase string) ([]artifact.File, error) {
	info, err := os.Stat(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("artifact path %q not found", archiveBase)
		}
		return nil, fmt.Errorf("stat artifact path %q: %w", archiveBase, err)
	}
	if !info.IsDir() {
		return []artifact.File{{Source: source, ArchivePath: filepath.ToSlash(archiveBase)}}, nil
	}

	var files []artifact.File
	walkErr := filepath.WalkDir(source, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(source, p)
		if err != nil {
			return err
		}
		files = append(files, artifact.File{
			Source:      p,
			ArchivePath: filepath.ToSlash(filepath.Join(archiveBase, rel)),
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk artifact path %q: %w", archiveBase, walkErr)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("artifact path %q contains no files", archiveBase)
	}
	return files, nil
}
