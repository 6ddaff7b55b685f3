package provider

// Pipeline represents a parsed set of workflows from a provider.
type Pipeline struct {
	Provider  string     `json:"provider"`
	Workflows []Workflow `json:"workflows"`
	Warnings  []Warning  `json:"warnings"`
}

// Warning captures non-fatal issues encountered while parsing workflows.
type Warning struct {
	Workflow string `json:"workflow"`
	Job      string `json:"job"`
	Message  string `json:"message"`
}

// Workflow mirrors a GitHub Actions workflow file.
type Workflow struct {
	Path     string            `json:"path"`
	Name     string            `json:"name"`
	On       Trigger           `json:"on"`
	Env      map[string]string `json:"env,omitempty"`
	Defaults Defaults          `json:"defaults"`
	Jobs     []Job             `json:"jobs"`
}

// Trigger describes the events that activate a workflow. Only push
// events are executable locally; other event names are retained so
// callers can warn about them.
type Trigger struct {
	Push   *PushFilter `json:"push,omitempty"`
	Others []string    `json:"others,omitempty"`
}

// PushFilter narrows push triggers to a set of branch patterns. A nil
// Branches slice means every branch matches.
type PushFilter struct {
	Branches []string `json:"branches,omitempty"`
}

// Defaults capture shared configuration for jobs and steps.
type Defaults struct {
	RunShell         string `json:"run_shell,omitempty"`
	WorkingDirectory string `json:"working_directory,omitempty"`
}

// Job represents a workflow job with resolved steps.
type Job struct {
	Name     string            `json:"name"`
	RawID    string            `json:"id"`
	Env      map[string]string `json:"env,omitempty"`
	Defaults Defaults          `json:"defaults"`
	Steps    []Step            `json:"steps"`
}

// Step represents an individual workflow step. Exactly one of Run or
// Uses is populated for executable steps.
type Step struct {
	Name             string            `json:"name"`
	Run              string            `json:"run,omitempty"`
	Uses             string            `json:"uses,omitempty"`
	With             map[string]string `json:"with,omitempty"`
	Shell            string            `json:"shell,omitempty"`
	WorkingDirectory string            `json:"working_directory,omitempty"`
	Env              map[string]string `json:"env,omitempty"`
	ContinueOnError  bool              `json:"continue_on_error,omitempty"`
}
