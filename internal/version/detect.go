package version

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Info captures a language runtime installed on the system.
type Info struct {
	Name    string
	Version string
}

var pythonRegex = regexp.MustCompile(`(?i)python\s+(\d+\.\d+(?:\.\d+)?)`)

// DetectPython returns the system Python version, preferring `python3`
// and falling back to `python`.
func DetectPython() (Info, error) {
	var firstErr error
	for _, name := range []string{"python3", "python"} {
		out, err := runCommand(name, "--version")
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		match := pythonRegex.FindStringSubmatch(out)
		if len(match) < 2 {
			return Info{}, fmt.Errorf("unable to parse python version from %q", out)
		}
		return Info{Name: name, Version: match[1]}, nil
	}
	return Info{}, firstErr
}

// Missing reports whether err indicates the executable was not found.
func Missing(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

// CompareMajorMinor reports whether the required and actual versions
// agree on their major and minor components.
func CompareMajorMinor(required, actual string) bool {
	reqParts := strings.Split(required, ".")
	actParts := strings.Split(actual, ".")
	if len(reqParts) < 2 || len(actParts) < 2 {
		return required == actual
	}
	return reqParts[0] == actParts[0] && reqParts[1] == actParts[1]
}

func runCommand(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdin = nil
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
