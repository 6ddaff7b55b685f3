package github

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/anujt65/covpipe/internal/provider"
)

const ProviderName = "github"

// Parser loads GitHub Actions workflow files from disk.
type Parser struct {
	Root string
}

// NewParser constructs a Parser that resolves workflow paths relative to root.
func NewParser(root string) *Parser {
	return &Parser{Root: root}
}

// Parse reads the supplied workflow paths and produces a Pipeline data model.
func (p *Parser) Parse(paths []string) (provider.Pipeline, error) {
	pipeline := provider.Pipeline{Provider: ProviderName}
	for _, relPath := range paths {
		full := relPath
		if !filepath.IsAbs(full) {
			full = filepath.Join(p.Root, relPath)
		}
		wf, warnings, err := parseWorkflow(full, relPath)
		if err != nil {
			return provider.Pipeline{}, err
		}
		pipeline.Workflows = append(pipeline.Workflows, wf)
		pipeline.Warnings = append(pipeline.Warnings, warnings...)
	}
	return pipeline, nil
}

func parseWorkflow(fullPath, displayPath string) (provider.Workflow, []provider.Warning, error) {
	f, err := os.Open(fullPath)
	if err != nil {
		return provider.Workflow{}, nil, fmt.Errorf("open workflow %q: %w", displayPath, err)
	}
	defer f.Close()
	return decodeWorkflow(f, displayPath)
}

func decodeWorkflow(r io.Reader, displayPath string) (provider.Workflow, []provider.Warning, error) {
	decoder := yaml.NewDecoder(r)

	var wfDoc workflowDocument
	if err := decoder.Decode(&wfDoc); err != nil {
		return provider.Workflow{}, nil, fmt.Errorf("parse workflow %q: %w", displayPath, err)
	}

	wf := provider.Workflow{
		Path: displayPath,
		Name: wfDoc.Name,
		Env:  convertEnv(wfDoc.Env),
		Defaults: provider.Defaults{
			RunShell:         wfDoc.Defaults.Run.Shell,
			WorkingDirectory: wfDoc.Defaults.Run.WorkingDirectory,
		},
	}

	if wf.Name == "" {
		wf.Name = filepath.Base(displayPath)
	}

	warnings := make([]provider.Warning, 0)

	trigger, triggerWarnings, err := decodeTrigger(&wfDoc.On, displayPath)
	if err != nil {
		return provider.Workflow{}, nil, err
	}
	wf.On = trigger
	warnings = append(warnings, triggerWarnings...)

	jobIDs := make([]string, 0, len(wfDoc.Jobs))
	for id := range wfDoc.Jobs {
		jobIDs = append(jobIDs, id)
	}
	sort.Strings(jobIDs)

	wf.Jobs = make([]provider.Job, 0, len(jobIDs))
	for _, jobID := range jobIDs {
		jobDoc := wfDoc.Jobs[jobID]
		job := provider.Job{
			RawID: jobID,
			Name:  jobDoc.Name,
			Env:   convertEnv(jobDoc.Env),
			Defaults: provider.Defaults{
				RunShell:         jobDoc.Defaults.Run.Shell,
				WorkingDirectory: jobDoc.Defaults.Run.WorkingDirectory,
			},
		}
		if job.Name == "" {
			job.Name = jobID
		}

		if jobDoc.Services != nil {
			warnings = append(warnings, provider.Warning{
				Workflow: displayPath,
				Job:      jobID,
				Message:  "services are not supported",
			})
		}
		if jobDoc.Strategy.Matrix != nil {
			warnings = append(warnings, provider.Warning{
				Workflow: displayPath,
				Job:      jobID,
				Message:  "strategy.matrix is not supported",
			})
		}
		if jobDoc.If != "" {
			warnings = append(warnings, provider.Warning{
				Workflow: displayPath,
				Job:      jobID,
				Message:  "job-level if condition is ignored",
			})
		}

		job.Steps = make([]provider.Step, 0, len(jobDoc.Steps))
		for idx, stepDoc := range jobDoc.Steps {
			step := provider.Step{
				Name:             stepDoc.Name,
				Run:              stepDoc.Run,
				Uses:             stepDoc.Uses,
				With:             convertEnv(stepDoc.With),
				Env:              convertEnv(stepDoc.Env),
				Shell:            stepDoc.Shell,
				WorkingDirectory: stepDoc.WorkingDirectory,
				ContinueOnError:  stepDoc.ContinueOnError,
			}
			if step.Name == "" {
				if step.Uses != "" {
					step.Name = step.Uses
				} else {
					step.Name = fmt.Sprintf("step %d", idx+1)
				}
			}
			if stepDoc.If != "" {
				warnings = append(warnings, provider.Warning{
					Workflow: displayPath,
					Job:      jobID,
					Message:  fmt.Sprintf("step %q has unsupported if condition", step.Name),
				})
			}
			job.Steps = append(job.Steps, step)
		}

		wf.Jobs = append(wf.Jobs, job)
	}

	return wf, warnings, nil
}

// decodeTrigger interprets the `on:` block, which YAML allows as a bare
// event name, a sequence of names, or a mapping from event name to
// filter configuration.
func decodeTrigger(node *yaml.Node, displayPath string) (provider.Trigger, []provider.Warning, error) {
	var trigger provider.Trigger
	var warnings []provider.Warning

	addEvent := func(name string, filter *pushFilterDocument) {
		if name == "push" {
			pf := &provider.PushFilter{}
			if filter != nil && len(filter.Branches) > 0 {
				pf.Branches = append([]string{}, filter.Branches...)
			}
			trigger.Push = pf
			return
		}
		trigger.Others = append(trigger.Others, name)
		warnings = append(warnings, provider.Warning{
			Workflow: displayPath,
			Message:  fmt.Sprintf("trigger %q cannot run locally", name),
		})
	}

	switch node.Kind {
	case 0:
		// No `on:` block; the workflow never activates.
		warnings = append(warnings, provider.Warning{
			Workflow: displayPath,
			Message:  "workflow declares no triggers",
		})
	case yaml.ScalarNode:
		var name string
		if err := node.Decode(&name); err != nil {
			return trigger, nil, fmt.Errorf("parse trigger in %q: %w", displayPath, err)
		}
		addEvent(name, nil)
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return trigger, nil, fmt.Errorf("parse triggers in %q: %w", displayPath, err)
		}
		for _, name := range names {
			addEvent(name, nil)
		}
	case yaml.MappingNode:
		// Mapping nodes interleave key and value nodes.
		for i := 0; i+1 < len(node.Content); i += 2 {
			var name string
			if err := node.Content[i].Decode(&name); err != nil {
				return trigger, nil, fmt.Errorf("parse trigger name in %q: %w", displayPath, err)
			}
			var filter pushFilterDocument
			if node.Content[i+1].Kind == yaml.MappingNode {
				if err := node.Content[i+1].Decode(&filter); err != nil {
					return trigger, nil, fmt.Errorf("parse trigger %q filter in %q: %w", name, displayPath, err)
				}
			}
			addEvent(name, &filter)
		}
	default:
		return trigger, nil, fmt.Errorf("parse trigger in %q: unexpected YAML node", displayPath)
	}

	return trigger, warnings, nil
}

type workflowDocument struct {
	Name     string                 `yaml:"name"`
	On       yaml.Node              `yaml:"on"`
	Env      map[string]interface{} `yaml:"env"`
	Defaults defaultsDocument       `yaml:"defaults"`
	Jobs     map[string]jobDocument `yaml:"jobs"`
}

type pushFilterDocument struct {
	Branches []string `yaml:"branches"`
}

type defaultsDocument struct {
	Run runDefaults `yaml:"run"`
}

type runDefaults struct {
	Shell            string `yaml:"shell"`
	WorkingDirectory string `yaml:"working-directory"`
}

type jobDocument struct {
	Name     string                 `yaml:"name"`
	Env      map[string]interface{} `yaml:"env"`
	Defaults defaultsDocument       `yaml:"defaults"`
	Steps    []stepDocument         `yaml:"steps"`
	Services interface{}            `yaml:"services"`
	Strategy strategyDocument       `yaml:"strategy"`
	If       string                 `yaml:"if"`
}

type strategyDocument struct {
	Matrix interface{} `yaml:"matrix"`
}

type stepDocument struct {
	Name             string                 `yaml:"name"`
	Run              string                 `yaml:"run"`
	Uses             string                 `yaml:"uses"`
	With             map[string]interface{} `yaml:"with"`
	Env              map[string]interface{} `yaml:"env"`
	Shell            string                 `yaml:"shell"`
	WorkingDirectory string                 `yaml:"working-directory"`
	If               string                 `yaml:"if"`
	ContinueOnError  bool                   `yaml:"continue-on-error"`
}

func convertEnv(input map[string]interface{}) map[string]string {
	if len(input) == 0 {
		return nil
	}
	out := make(map[string]string, len(input))
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out[k] = fmt.Sprint(input[k])
	}
	return out
}
