package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/snaketasks/internal/app"
	"github.com/dshills/snaketasks/internal/integration/task"
)

const (
	rootUse              = "snaketasks"
	rootShortDescription = "Discover Snakemake rules as editor tasks"

	workspaceFlagName   = "workspace"
	configFlagName      = "config"
	logLevelFlagName    = "log-level"
	logFormatFlagName   = "log-format"
	commandFlagName     = "snakemake"
	formatFlagName      = "format"
	metricsAddrFlagName = "metrics-addr"
)

// rootFlags holds the persistent flags shared by every subcommand.
type rootFlags struct {
	workspace string
	config    string
	logLevel  string
	logFormat string
	command   string
}

func (f *rootFlags) options(cmd *cobra.Command) app.Options {
	return app.Options{
		Workspace:  f.workspace,
		ConfigPath: f.config,
		LogLevel:   f.logLevel,
		LogFormat:  f.logFormat,
		Command:    f.command,
		Stderr:     cmd.ErrOrStderr(),
	}
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.workspace, workspaceFlagName, "w", "", "Workspace directory (default: working directory)")
	pf.StringVarP(&flags.config, configFlagName, "c", "", "Path to configuration file")
	pf.StringVar(&flags.logLevel, logLevelFlagName, "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, logFormatFlagName, "", "Log format (console, json)")
	pf.StringVar(&flags.command, commandFlagName, "", "Snakemake executable")

	root.AddCommand(newListCommand(flags), newWatchCommand(flags))
	return root
}

func newListCommand(flags *rootFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the Snakemake rules of the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.CheckFormat(format); err != nil {
				return err
			}
			application, err := app.New(flags.options(cmd))
			if err != nil {
				return err
			}
			defer application.Shutdown()

			tasks, err := application.List(cmd.Context())
			if err != nil {
				return err
			}
			return app.Render(cmd.OutOrStdout(), tasks, format)
		},
	}

	cmd.Flags().StringVarP(&format, formatFlagName, "f", app.FormatText, formatUsage())
	return cmd
}

func newWatchCommand(flags *rootFlags) *cobra.Command {
	var (
		format      string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the Snakemake rules and reprint them whenever the Snakefile changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.CheckFormat(format); err != nil {
				return err
			}
			application, err := app.New(flags.options(cmd))
			if err != nil {
				return err
			}
			defer application.Shutdown()

			ctx := cmd.Context()
			if metricsAddr != "" {
				if _, err := application.ServeMetrics(ctx, metricsAddr); err != nil {
					return fmt.Errorf("serve metrics: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			return application.Watch(ctx, func(tasks []*task.Task, err error) {
				if err != nil {
					application.Logger().Error("task discovery failed", zap.Error(err))
					return
				}
				if err := app.Render(out, tasks, format); err != nil {
					application.Logger().Error("render tasks", zap.Error(err))
				}
			})
		},
	}

	cmd.Flags().StringVarP(&format, formatFlagName, "f", app.FormatText, formatUsage())
	cmd.Flags().StringVar(&metricsAddr, metricsAddrFlagName, "", "Serve Prometheus metrics on this address, e.g. 127.0.0.1:9090")
	return cmd
}

func formatUsage() string {
	return "Output format (" + strings.Join(app.Formats, ", ") + ")"
}
