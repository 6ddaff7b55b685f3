// Package trigger evaluates whether a push event activates a workflow.
package trigger

import (
	"bytes"
	"fmt"
	"os/exec"
	"path"
	"strings"

	"github.com/anujt65/covpipe/internal/provider"
)

// PushEvent captures the context of a push for trigger evaluation.
type PushEvent struct {
	// Branch is the short branch name, e.g. "main".
	Branch string
	// Commit is the commit SHA when known.
	Commit string
}

// Ref returns the fully qualified git ref for the event branch.
func (e PushEvent) Ref() string {
	return "refs/heads/" + e.Branch
}

// Matches reports whether the workflow's triggers activate for the
// event. Workflows without a push trigger never match. An empty branch
// filter matches every branch.
func Matches(wf provider.Workflow, event PushEvent) bool {
	if wf.On.Push == nil {
		return false
	}
	if len(wf.On.Push.Branches) == 0 {
		return true
	}
	for _, pattern := range wf.On.Push.Branches {
		if branchMatches(pattern, event.Branch) {
			return true
		}
	}
	return false
}

// branchMatches applies Actions-style branch filter patterns. Plain
// names match exactly; `*` matches within a path segment and `**`
// matches across segments.
func branchMatches(pattern, branch string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == branch
	}
	if strings.Contains(pattern, "**") {
		return deepMatches(pattern, branch)
	}
	ok, err := path.Match(pattern, branch)
	if err != nil {
		return false
	}
	return ok
}

// deepMatches handles `**`, which unlike `*` crosses `/` boundaries.
func deepMatches(pattern, branch string) bool {
	parts := strings.SplitN(pattern, "**", 2)
	prefix, suffix := parts[0], parts[1]
	if !strings.HasPrefix(branch, prefix) {
		return false
	}
	rest := branch[len(prefix):]
	if suffix == "" {
		return true
	}
	for i := 0; i <= len(rest); i++ {
		tail := rest[i:]
		if strings.Contains(suffix, "**") {
			if deepMatches(suffix, tail) {
				return true
			}
			continue
		}
		if ok, err := path.Match(suffix, tail); err == nil && ok {
			return true
		}
	}
	return false
}

// CurrentEvent synthesizes a push event from the repository at root
// using git. The commit is best effort and may be empty.
func CurrentEvent(root string) (PushEvent, error) {
	branch, err := gitOutput(root, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return PushEvent{}, fmt.Errorf("detect current branch: %w", err)
	}
	if branch == "" || branch == "HEAD" {
		return PushEvent{}, fmt.Errorf("repository at %q is not on a branch", root)
	}
	commit, err := gitOutput(root, "rev-parse", "HEAD")
	if err != nil {
		commit = ""
	}
	return PushEvent{Branch: branch, Commit: commit}, nil
}

func gitOutput(root string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = root
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
