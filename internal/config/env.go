package config

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SNAKETASKS_"

// envMapping maps environment variables to setters.
var envMapping = map[string]func(c *Config, v string) error{
	"SNAKETASKS_SNAKEMAKE_COMMAND": func(c *Config, v string) error { c.Snakemake.Command = v; return nil },
	"SNAKETASKS_DEFINITION_FILE":   func(c *Config, v string) error { c.Snakemake.DefinitionFile = v; return nil },
	"SNAKETASKS_SHELL":             func(c *Config, v string) error { c.Snakemake.Shell = v; return nil },
	"SNAKETASKS_MAX_CONCURRENT":    setMaxConcurrent,
	"SNAKETASKS_LOG_LEVEL":         func(c *Config, v string) error { c.Log.Level = strings.ToLower(v); return nil },
	"SNAKETASKS_LOG_FORMAT":        func(c *Config, v string) error { c.Log.Format = strings.ToLower(v); return nil },
}

// setMaxConcurrent rejects values that are not integers; Validate catches
// negative ones.
func setMaxConcurrent(c *Config, v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return &ValidationError{
			Path:    "SNAKETASKS_MAX_CONCURRENT",
			Message: "not an integer: " + quote(v),
		}
	}
	c.Snakemake.MaxConcurrent = n
	return nil
}

// applyEnv applies every mapped variable that lookup reports as set.
// Empty values are treated as unset. Variables are applied in name order
// and every rejected value is reported.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	names := make([]string, 0, len(envMapping))
	for name := range envMapping {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		if err := envMapping[name](c, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
