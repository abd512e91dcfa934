// Package config provides the configuration for snaketasks.
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  4. Command Line Flags      │  ← Highest priority (applied by the CLI)
//	├─────────────────────────────┤
//	│  3. Environment Variables   │  ← SNAKETASKS_*
//	├─────────────────────────────┤
//	│  2. Workspace File          │  ← <workspace>/.snaketasks.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// # File Format
//
//	[snakemake]
//	command = "snakemake"
//	definition_file = "Snakefile"
//	shell = "/bin/sh"
//	max_concurrent = 4
//
//	[log]
//	level = "info"
//	format = "console"
//
// Unknown keys are rejected so that typos surface as a ParseError.
//
// # Basic Usage
//
//	cfg, err := config.Load(config.DefaultPath(workspace))
//	if err != nil {
//	    return err
//	}
//	if err := cfg.ApplyEnv(); err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
