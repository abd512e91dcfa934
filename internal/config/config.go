package config

import (
	"os"
	"path/filepath"

	"github.com/dshills/snaketasks/internal/integration/process"
)

// DefaultFileName is the workspace configuration file name.
const DefaultFileName = ".snaketasks.toml"

// Log levels and formats accepted by LogConfig.
var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"console", "json"}
)

// Config is the complete snaketasks configuration.
type Config struct {
	Snakemake SnakemakeConfig `toml:"snakemake"`
	Log       LogConfig       `toml:"log"`
}

// SnakemakeConfig configures task discovery.
type SnakemakeConfig struct {
	// Command is the Snakemake executable.
	Command string `toml:"command"`
	// DefinitionFile is the workflow file name looked up in the workspace.
	DefinitionFile string `toml:"definition_file"`
	// Shell runs the listing command.
	Shell string `toml:"shell"`
	// MaxConcurrent bounds simultaneous tool invocations.
	MaxConcurrent int `toml:"max_concurrent"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	inv := process.DefaultInvokerConfig()
	return &Config{
		Snakemake: SnakemakeConfig{
			Command:        "snakemake",
			DefinitionFile: "Snakefile",
			Shell:          inv.Shell,
			MaxConcurrent:  inv.MaxConcurrent,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPath returns the configuration file path for a workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, DefaultFileName)
}

// Validate checks every setting and returns the first problem found.
func (c *Config) Validate() error {
	switch {
	case c.Snakemake.Command == "":
		return &ValidationError{Path: "snakemake.command", Message: "must not be empty"}
	case c.Snakemake.DefinitionFile == "":
		return &ValidationError{Path: "snakemake.definition_file", Message: "must not be empty"}
	case filepath.Base(c.Snakemake.DefinitionFile) != c.Snakemake.DefinitionFile:
		return &ValidationError{Path: "snakemake.definition_file", Message: "must be a file name, not a path"}
	case c.Snakemake.MaxConcurrent < 0:
		return &ValidationError{Path: "snakemake.max_concurrent", Message: "must not be negative"}
	case !contains(logLevels, c.Log.Level):
		return &ValidationError{Path: "log.level", Message: "unknown level " + quote(c.Log.Level)}
	case !contains(logFormats, c.Log.Format):
		return &ValidationError{Path: "log.format", Message: "unknown format " + quote(c.Log.Format)}
	}
	return nil
}

// InvokerConfig returns the process invoker settings.
func (c *Config) InvokerConfig() process.InvokerConfig {
	inv := process.DefaultInvokerConfig()
	if c.Snakemake.Shell != "" {
		inv.Shell = c.Snakemake.Shell
	}
	if c.Snakemake.MaxConcurrent > 0 {
		inv.MaxConcurrent = c.Snakemake.MaxConcurrent
	}
	return inv
}

// ApplyEnv overrides settings from SNAKETASKS_* environment variables.
// Values that cannot be parsed are left unapplied and reported as
// validation errors.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func quote(s string) string {
	return `"` + s + `"`
}
