package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Snakemake.Command != "snakemake" {
		t.Errorf("Command = %q, want snakemake", cfg.Snakemake.Command)
	}
	if cfg.Snakemake.DefinitionFile != "Snakefile" {
		t.Errorf("DefinitionFile = %q, want Snakefile", cfg.Snakemake.DefinitionFile)
	}
	if cfg.Snakemake.Shell == "" {
		t.Error("Shell should have a default")
	}
	if cfg.Snakemake.MaxConcurrent <= 0 {
		t.Errorf("MaxConcurrent = %d, want > 0", cfg.Snakemake.MaxConcurrent)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Errorf("Log = %+v, want info/console", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestDefaultPath(t *testing.T) {
	if got := DefaultPath("/ws"); got != filepath.Join("/ws", ".snaketasks.toml") {
		t.Errorf("DefaultPath() = %q", got)
	}
}

func TestLoadFS(t *testing.T) {
	fsys := NewMemFS()
	fsys.AddFile("/ws/.snaketasks.toml", `
[snakemake]
command = "/opt/snakemake/bin/snakemake"
max_concurrent = 2

[log]
level = "debug"
`)

	cfg, err := LoadFS(fsys, "/ws/.snaketasks.toml", false)
	if err != nil {
		t.Fatalf("LoadFS error = %v", err)
	}

	if cfg.Snakemake.Command != "/opt/snakemake/bin/snakemake" {
		t.Errorf("Command = %q", cfg.Snakemake.Command)
	}
	if cfg.Snakemake.MaxConcurrent != 2 {
		t.Errorf("MaxConcurrent = %d, want 2", cfg.Snakemake.MaxConcurrent)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
	// Unset keys keep their defaults.
	if cfg.Snakemake.DefinitionFile != "Snakefile" {
		t.Errorf("DefinitionFile = %q, want Snakefile", cfg.Snakemake.DefinitionFile)
	}
	if cfg.Log.Format != "console" {
		t.Errorf("Format = %q, want console", cfg.Log.Format)
	}
}

func TestLoadFS_Missing(t *testing.T) {
	cfg, err := LoadFS(NewMemFS(), "/ws/.snaketasks.toml", false)
	if err != nil {
		t.Fatalf("LoadFS error = %v", err)
	}
	if cfg.Snakemake.Command != "snakemake" {
		t.Errorf("missing file should yield defaults, got %+v", cfg)
	}

	if _, err := LoadFS(NewMemFS(), "/ws/custom.toml", true); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("required LoadFS error = %v, want ErrFileNotFound", err)
	}
}

func TestLoadFS_SyntaxError(t *testing.T) {
	fsys := NewMemFS()
	fsys.AddFile("bad.toml", "[snakemake]\ncommand = \n")

	_, err := LoadFS(fsys, "bad.toml", false)

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("LoadFS error = %v, want *ParseError", err)
	}
	if perr.Path != "bad.toml" {
		t.Errorf("Path = %q, want bad.toml", perr.Path)
	}
	if perr.Line <= 0 {
		t.Errorf("Line = %d, want a position", perr.Line)
	}
	if perr.Unwrap() == nil {
		t.Error("Unwrap() should return the decoder error")
	}
}

func TestLoadFS_UnknownKey(t *testing.T) {
	fsys := NewMemFS()
	fsys.AddFile("typo.toml", "[snakemake]\ncomand = \"snakemake\"\n")

	_, err := LoadFS(fsys, "typo.toml", false)

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("LoadFS error = %v, want *ParseError", err)
	}
	if !strings.Contains(perr.Message, "snakemake.comand") {
		t.Errorf("Message = %q, want the unknown key", perr.Message)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := DefaultPath(dir)
	if err := os.WriteFile(path, []byte("[log]\nformat = \"json\"\n"), 0644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Log.Format)
	}

	if _, err := LoadRequired(filepath.Join(dir, "missing.toml")); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("LoadRequired error = %v, want ErrFileNotFound", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		path   string
	}{
		{"empty command", func(c *Config) { c.Snakemake.Command = "" }, "snakemake.command"},
		{"empty definition file", func(c *Config) { c.Snakemake.DefinitionFile = "" }, "snakemake.definition_file"},
		{"definition file path", func(c *Config) { c.Snakemake.DefinitionFile = "sub/Snakefile" }, "snakemake.definition_file"},
		{"negative concurrency", func(c *Config) { c.Snakemake.MaxConcurrent = -1 }, "snakemake.max_concurrent"},
		{"unknown level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, ErrValidationFailed) {
				t.Fatalf("Validate() = %v, want ErrValidationFailed", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Path != tt.path {
				t.Errorf("Validate() path = %v, want %q", err, tt.path)
			}
		})
	}
}

func TestInvokerConfig(t *testing.T) {
	cfg := Default()
	cfg.Snakemake.Shell = "/bin/bash"
	cfg.Snakemake.MaxConcurrent = 0

	inv := cfg.InvokerConfig()
	if inv.Shell != "/bin/bash" {
		t.Errorf("Shell = %q, want /bin/bash", inv.Shell)
	}
	if inv.MaxConcurrent <= 0 {
		t.Errorf("MaxConcurrent = %d, want the default", inv.MaxConcurrent)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SNAKETASKS_SNAKEMAKE_COMMAND": "/usr/local/bin/snakemake",
		"SNAKETASKS_MAX_CONCURRENT":    "8",
		"SNAKETASKS_LOG_LEVEL":         "DEBUG",
		"SNAKETASKS_LOG_FORMAT":        "",
		"SNAKETASKS_DEFINITION_FILE":   "workflow.smk",
	}
	lookup := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("applyEnv error = %v", err)
	}

	if cfg.Snakemake.Command != "/usr/local/bin/snakemake" {
		t.Errorf("Command = %q", cfg.Snakemake.Command)
	}
	if cfg.Snakemake.MaxConcurrent != 8 {
		t.Errorf("MaxConcurrent = %d, want 8", cfg.Snakemake.MaxConcurrent)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Log.Format != "console" {
		t.Errorf("Format = %q, empty env value should be ignored", cfg.Log.Format)
	}
	if cfg.Snakemake.DefinitionFile != "workflow.smk" {
		t.Errorf("DefinitionFile = %q", cfg.Snakemake.DefinitionFile)
	}
}

func TestApplyEnv_BadInteger(t *testing.T) {
	cfg := Default()
	want := cfg.Snakemake.MaxConcurrent
	err := cfg.applyEnv(func(name string) (string, bool) {
		switch name {
		case "SNAKETASKS_MAX_CONCURRENT":
			return "many", true
		case "SNAKETASKS_SHELL":
			return "/bin/bash", true
		}
		return "", false
	})

	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("applyEnv error = %v, want ErrValidationFailed", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path != "SNAKETASKS_MAX_CONCURRENT" {
		t.Errorf("error = %v, want a ValidationError for SNAKETASKS_MAX_CONCURRENT", err)
	}
	if !strings.Contains(err.Error(), `"many"`) {
		t.Errorf("error = %q, want the rejected value", err)
	}
	if cfg.Snakemake.Shell != "/bin/bash" {
		t.Errorf("Shell = %q, valid variables should still apply", cfg.Snakemake.Shell)
	}
	if cfg.Snakemake.MaxConcurrent != want {
		t.Errorf("MaxConcurrent = %d, want unchanged %d", cfg.Snakemake.MaxConcurrent, want)
	}
}

func TestApplyEnv_Process(t *testing.T) {
	t.Setenv("SNAKETASKS_SHELL", "/bin/zsh")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv error = %v", err)
	}
	if cfg.Snakemake.Shell != "/bin/zsh" {
		t.Errorf("Shell = %q, want /bin/zsh", cfg.Snakemake.Shell)
	}
}
