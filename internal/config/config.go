package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config captures CLI options sourced from config files or flags.
type Config struct {
	Workflows []string `yaml:"workflows"`
	Jobs      []string `yaml:"jobs"`
	Branch    string   `yaml:"branch"`

	Format      string `yaml:"format"`
	ArtifactDir string `yaml:"artifact_dir"`

	DryRun         bool `yaml:"dry_run"`
	Verbose        bool `yaml:"verbose"`
	DisableHistory bool `yaml:"disable_history"`

	// FailOnMasked propagates masked step failures into the run's exit
	// code while still attempting every later step, for pipelines where
	// the masking is considered a defect rather than intent.
	FailOnMasked bool `yaml:"fail_on_masked"`

	AllowPrivileged           bool     `yaml:"allow_privileged"`
	PrivilegedCommandPatterns []string `yaml:"privileged_command_patterns"`
}

const (
	// FormatPretty renders human readable output.
	FormatPretty = "pretty"
	// FormatJSON renders machine readable output.
	FormatJSON = "json"

	// DefaultArtifactDir is where uploaded artifacts land, relative to
	// the repository root.
	DefaultArtifactDir = ".covpipe/artifacts"

	// DefaultHistoryPath is the run ledger location, relative to the
	// repository root.
	DefaultHistoryPath = ".covpipe/history.db"

	configFileName = ".covpipe.yml"
)

// Default returns the baseline configuration used when no flags or
// config file specify values.
func Default() Config {
	return Config{
		Format:      FormatPretty,
		ArtifactDir: DefaultArtifactDir,
	}
}

// Load reads .covpipe.yml from the repository root when present.
// Missing files are ignored.
func Load(root string) (Config, error) {
	cfg := Default()
	path := filepath.Join(root, configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}

	return merge(cfg, fileCfg), nil
}

func merge(base, override Config) Config {
	out := base

	if len(override.Workflows) > 0 {
		out.Workflows = append([]string{}, override.Workflows...)
	}
	if len(override.Jobs) > 0 {
		out.Jobs = append([]string{}, override.Jobs...)
	}
	if override.Branch != "" {
		out.Branch = override.Branch
	}
	if override.Format != "" {
		out.Format = override.Format
	}
	if override.ArtifactDir != "" {
		out.ArtifactDir = override.ArtifactDir
	}
	if len(override.PrivilegedCommandPatterns) > 0 {
		out.PrivilegedCommandPatterns = append([]string{}, override.PrivilegedCommandPatterns...)
	}
	if override.DryRun {
		out.DryRun = true
	}
	if override.Verbose {
		out.Verbose = true
	}
	if override.DisableHistory {
		out.DisableHistory = true
	}
	if override.FailOnMasked {
		out.FailOnMasked = true
	}
	if override.AllowPrivileged {
		out.AllowPrivileged = true
	}

	return out
}

// ApplyFlags mutates cfg by applying values from CLI flags when they
// were set explicitly.
func ApplyFlags(cfg *Config, flags FlagValues) {
	if len(flags.Workflows.Values) > 0 {
		cfg.Workflows = append([]string{}, flags.Workflows.Values...)
	}
	if len(flags.Jobs.Values) > 0 {
		cfg.Jobs = append([]string{}, flags.Jobs.Values...)
	}
	if flags.Branch.Set {
		cfg.Branch = flags.Branch.Value
	}
	if flags.Format.Set {
		cfg.Format = flags.Format.Value
	}
	if flags.ArtifactDir.Set {
		cfg.ArtifactDir = flags.ArtifactDir.Value
	}
	if flags.DryRun.Set {
		cfg.DryRun = flags.DryRun.Value
	}
	if flags.Verbose.Set {
		cfg.Verbose = flags.Verbose.Value
	}
	if flags.NoHistory.Set {
		cfg.DisableHistory = flags.NoHistory.Value
	}
	if flags.FailOnMasked.Set {
		cfg.FailOnMasked = flags.FailOnMasked.Value
	}
	if flags.AllowPrivileged.Set {
		cfg.AllowPrivileged = flags.AllowPrivileged.Value
	}
}

// FlagValues captures CLI flag state with knowledge of whether each
// flag was set explicitly.
type FlagValues struct {
	Workflows       SliceFlag
	Jobs            SliceFlag
	Branch          StringFlag
	Format          StringFlag
	ArtifactDir     StringFlag
	DryRun          BoolFlag
	Verbose         BoolFlag
	NoHistory       BoolFlag
	FailOnMasked    BoolFlag
	AllowPrivileged BoolFlag
}

// StringFlag represents a string flag and whether it was set.
type StringFlag struct {
	Value string
	Set   bool
}

// SliceFlag represents a slice flag and the values it captured.
type SliceFlag struct {
	Values []string
}

// BoolFlag represents a bool flag and whether it was set.
type BoolFlag struct {
	Value bool
	Set   bool
}
